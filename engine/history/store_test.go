package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.json")
	store := NewFileStore(path)

	// missing file reads as empty, not as an error
	got, err := store.Load(ctx)
	if err != nil || len(got) != 0 {
		t.Fatalf("load missing file: %v, %v", got, err)
	}

	want := []Entry{
		{ID: "b", Guide: testGuide(2), CompletedAt: 2000},
		{ID: "a", Guide: testGuide(1), CompletedAt: 1000, Rating: 4},
	}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].Rating != 4 {
		t.Fatalf("got = %+v", got)
	}
	if got[0].Guide.DeviceInfo.Category != testGuide(2).DeviceInfo.Category {
		t.Error("guide snapshot not preserved")
	}
}

func TestFileStoreMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path).Load(context.Background()); err == nil {
		t.Fatal("malformed file must surface a decode error")
	}
	// the recorder turns that error into an empty list
	r := NewRecorder(context.Background(), NewFileStore(path), nil)
	if len(r.List()) != 0 {
		t.Fatal("recorder must degrade to empty on malformed data")
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	got, err := store.Load(ctx)
	if err != nil || len(got) != 0 {
		t.Fatalf("load empty db: %v, %v", got, err)
	}

	want := []Entry{
		{ID: "newest", Guide: testGuide(3), CompletedAt: 3000},
		{ID: "older", Guide: testGuide(2), CompletedAt: 2000, Rating: 5},
	}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got[0].ID != "newest" || got[1].Rating != 5 {
		t.Fatalf("got = %+v", got)
	}

	// wholesale replace drops rows missing from the new list
	if err := store.Save(ctx, want[:1]); err != nil {
		t.Fatalf("save shrunk list: %v", err)
	}
	got, _ = store.Load(ctx)
	if len(got) != 1 || got[0].ID != "newest" {
		t.Fatalf("after shrink got = %+v", got)
	}
}
