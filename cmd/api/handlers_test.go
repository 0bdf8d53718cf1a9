package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zester4/fixium/engine/diagnose"
	"github.com/zester4/fixium/engine/domain"
	"github.com/zester4/fixium/engine/history"
	"github.com/zester4/fixium/engine/session"
	"github.com/zester4/fixium/pkg/metrics"
)

const analysisReply = `{
  "diagnosis": {
    "damages": [{"type": "cracked screen", "description": "spiderweb crack", "severity": "moderate"}],
    "difficulty": "intermediate",
    "estimatedTime": "45 min",
    "confidence": 85,
    "failurePredictions": [],
    "repairability": "high"
  },
  "steps": [
    {"id": "step-1", "stepNumber": 1, "title": "Power down", "instruction": "Turn the device off."},
    {"id": "step-2", "stepNumber": 2, "title": "Replace panel", "instruction": "Swap the display."}
  ],
  "parts": [],
  "tools": []
}`

type scriptedChat struct {
	reply string
	err   error
	calls int
}

func (c *scriptedChat) Complete(_ context.Context, _, _ string, _ []domain.CapturedPhoto) (string, error) {
	c.calls++
	return c.reply, c.err
}

func newTestServer(t *testing.T, chat diagnose.ChatClient) (*server, http.Handler) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
	opts := diagnose.DefaultOptions()
	opts.Burst = 100
	srv := &server{
		sessions: session.NewRegistry(),
		diag:     diagnose.New(chat, nil, nil, opts, logger),
		history:  history.NewRecorder(context.Background(), history.NewMemStore(), logger),
		metrics:  metrics.New(),
		logger:   logger,
	}
	return srv, srv.routes()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, rec.Body.String())
	}
	return v
}

const photoData = "data:image/jpeg;base64,/9j/4AAQSkZJRg=="

func TestRepairFlow(t *testing.T) {
	chat := &scriptedChat{reply: analysisReply}
	srv, h := newTestServer(t, chat)

	// create
	rec := do(t, h, "POST", "/api/sessions", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", rec.Code, rec.Body)
	}
	view := decode[sessionView](t, rec)
	if view.Screen != session.ScreenWelcome {
		t.Fatalf("screen = %s", view.Screen)
	}
	base := "/api/sessions/" + view.ID

	// device
	rec = do(t, h, "POST", base+"/device", map[string]string{
		"category": "phone", "model": "Pixel 8", "condition": "cracked screen",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("device = %d: %s", rec.Code, rec.Body)
	}

	// photos
	for _, role := range []string{"front", "problem"} {
		rec = do(t, h, "POST", base+"/photos", map[string]string{"type": role, "dataUrl": photoData})
		if rec.Code != http.StatusCreated {
			t.Fatalf("photo %s = %d: %s", role, rec.Code, rec.Body)
		}
	}
	view = decode[sessionView](t, rec)
	if view.PhotosComplete {
		t.Fatal("two photos must not satisfy all three roles")
	}
	if view.NextPhotoRole != "detail" {
		t.Fatalf("next role = %q", view.NextPhotoRole)
	}

	// analyze
	rec = do(t, h, "POST", base+"/analyze", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze = %d: %s", rec.Code, rec.Body)
	}
	guide := decode[domain.RepairGuide](t, rec)
	if len(guide.Steps) != 2 || guide.ID == "" {
		t.Fatalf("guide = %+v", guide)
	}
	if chat.calls != 1 {
		t.Fatalf("gateway calls = %d", chat.calls)
	}

	// premature completion is refused
	rec = do(t, h, "POST", base+"/complete", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("early complete = %d", rec.Code)
	}

	// work through the steps
	for i := 0; i < 2; i++ {
		rec = do(t, h, "POST", fmt.Sprintf("%s/steps/%d/complete", base, i), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("step %d = %d: %s", i, rec.Code, rec.Body)
		}
	}
	progress := decode[session.Progress](t, rec)
	if !progress.AllComplete || progress.Fraction != 1 {
		t.Fatalf("progress = %+v", progress)
	}

	// complete records history exactly once
	rec = do(t, h, "POST", base+"/complete", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete = %d: %s", rec.Code, rec.Body)
	}
	done := decode[completeResponse](t, rec)
	if !done.Recorded || done.HistoryID == "" {
		t.Fatalf("completion not recorded: %+v", done)
	}

	rec = do(t, h, "POST", base+"/complete", nil)
	done = decode[completeResponse](t, rec)
	if done.Recorded {
		t.Fatal("second completion must not re-record history")
	}
	if got := len(srv.history.List()); got != 1 {
		t.Fatalf("history entries = %d", got)
	}

	// reset wipes the session but not history
	rec = do(t, h, "POST", base+"/reset", nil)
	view = decode[sessionView](t, rec)
	if view.Screen != session.ScreenWelcome || len(view.Photos) != 0 || view.Device != nil {
		t.Fatalf("after reset: %+v", view)
	}
	if got := len(srv.history.List()); got != 1 {
		t.Fatalf("history entries after reset = %d", got)
	}
}

func TestAnalyzeRequiresDeviceAndPhotos(t *testing.T) {
	_, h := newTestServer(t, &scriptedChat{reply: analysisReply})

	view := decode[sessionView](t, do(t, h, "POST", "/api/sessions", nil))
	base := "/api/sessions/" + view.ID

	if rec := do(t, h, "POST", base+"/analyze", nil); rec.Code != http.StatusConflict {
		t.Fatalf("analyze without device = %d", rec.Code)
	}

	do(t, h, "POST", base+"/device", map[string]string{"category": "phone"})
	if rec := do(t, h, "POST", base+"/analyze", nil); rec.Code != http.StatusConflict {
		t.Fatalf("analyze without photos = %d", rec.Code)
	}
}

func TestAnalyzeErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		chat *scriptedChat
		want int
	}{
		{"quota", &scriptedChat{err: diagnose.ErrQuotaExhausted}, http.StatusPaymentRequired},
		{"ratelimit", &scriptedChat{err: diagnose.ErrRateLimited}, http.StatusTooManyRequests},
		{"unparseable", &scriptedChat{reply: "sorry, no idea"}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, h := newTestServer(t, tt.chat)
			view := decode[sessionView](t, do(t, h, "POST", "/api/sessions", nil))
			base := "/api/sessions/" + view.ID
			do(t, h, "POST", base+"/device", map[string]string{"category": "phone"})
			do(t, h, "POST", base+"/photos", map[string]string{"type": "front", "dataUrl": photoData})

			rec := do(t, h, "POST", base+"/analyze", nil)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body)
			}

			// failure returns the session to photo capture with photos intact
			view = decode[sessionView](t, do(t, h, "GET", base, nil))
			if view.Screen != session.ScreenPhotoCapture || len(view.Photos) != 1 {
				t.Fatalf("after failure: %+v", view)
			}
		})
	}
}

func TestRejectsInvalidInput(t *testing.T) {
	_, h := newTestServer(t, &scriptedChat{reply: analysisReply})
	view := decode[sessionView](t, do(t, h, "POST", "/api/sessions", nil))
	base := "/api/sessions/" + view.ID

	if rec := do(t, h, "POST", base+"/device", map[string]string{"category": "toaster-oven"}); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad category = %d", rec.Code)
	}
	if rec := do(t, h, "POST", base+"/photos", map[string]string{"type": "selfie", "dataUrl": photoData}); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad role = %d", rec.Code)
	}
	if rec := do(t, h, "POST", base+"/photos", map[string]string{"type": "front", "dataUrl": "nope"}); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad data url = %d", rec.Code)
	}
	if rec := do(t, h, "GET", "/api/sessions/unknown", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown session = %d", rec.Code)
	}
}

func TestHistoryEndpoints(t *testing.T) {
	srv, h := newTestServer(t, &scriptedChat{})

	entry, err := srv.history.Add(context.Background(), domain.RepairGuide{
		ID:         "g-1",
		DeviceInfo: domain.DeviceInfo{Category: domain.DevicePhone},
	})
	if err != nil {
		t.Fatal(err)
	}

	entries := decode[[]history.Entry](t, do(t, h, "GET", "/api/history", nil))
	if len(entries) != 1 || entries[0].ID != entry.ID {
		t.Fatalf("entries = %+v", entries)
	}

	if rec := do(t, h, "POST", "/api/history/"+entry.ID+"/rating", map[string]int{"rating": 9}); rec.Code != http.StatusBadRequest {
		t.Fatalf("rating 9 = %d", rec.Code)
	}
	if rec := do(t, h, "POST", "/api/history/"+entry.ID+"/rating", map[string]int{"rating": 4}); rec.Code != http.StatusNoContent {
		t.Fatalf("rating 4 = %d", rec.Code)
	}
	if got := srv.history.List()[0].Rating; got != 4 {
		t.Fatalf("rating = %d", got)
	}

	if rec := do(t, h, "DELETE", "/api/history/"+entry.ID, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", rec.Code)
	}
	entries = decode[[]history.Entry](t, do(t, h, "GET", "/api/history", nil))
	if len(entries) != 0 {
		t.Fatalf("entries after delete = %+v", entries)
	}
}

func TestHealth(t *testing.T) {
	_, h := newTestServer(t, &scriptedChat{})
	rec := do(t, h, "GET", "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health = %d", rec.Code)
	}
}
