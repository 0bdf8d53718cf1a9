// Package history records completed repairs into a bounded, newest-first
// list persisted wholesale on every mutation.
package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zester4/fixium/engine/domain"
)

// MaxEntries caps the persisted list; the oldest entries are dropped first.
const MaxEntries = 20

// Entry is one completed repair. Entries are immutable once recorded,
// except for the optional user rating.
type Entry struct {
	ID          string             `json:"id"`
	Guide       domain.RepairGuide `json:"guide"`
	CompletedAt int64              `json:"completedAt"`
	Rating      int                `json:"rating,omitempty"`
}

// Store persists the entry list as a whole. Save replaces the previous value
// entirely, last-writer-wins.
type Store interface {
	Load(ctx context.Context) ([]Entry, error)
	Save(ctx context.Context, entries []Entry) error
}

// Recorder keeps the in-memory list and writes it through to the Store on
// every mutation. The store is read exactly once, at construction; a load
// failure is logged and degrades to an empty list.
type Recorder struct {
	mu      sync.Mutex
	store   Store
	entries []Entry
	logger  *slog.Logger
	now     func() time.Time
}

// NewRecorder loads the persisted list and returns a Recorder over it.
func NewRecorder(ctx context.Context, store Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{store: store, logger: logger, now: time.Now}
	entries, err := store.Load(ctx)
	if err != nil {
		logger.Warn("history: load failed, starting empty", "err", err)
		entries = nil
	}
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	r.entries = entries
	return r
}

// Add wraps guide in a new Entry, prepends it, truncates to MaxEntries and
// persists the list. The in-memory list is updated even when persistence
// fails; the error is returned for the caller to surface.
func (r *Recorder) Add(ctx context.Context, guide domain.RepairGuide) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := Entry{
		ID:          uuid.NewString(),
		Guide:       guide,
		CompletedAt: r.now().UnixMilli(),
	}
	r.entries = append([]Entry{e}, r.entries...)
	if len(r.entries) > MaxEntries {
		r.entries = r.entries[:MaxEntries]
	}
	return e, r.persist(ctx)
}

// Remove deletes the entry with the given id. Unknown ids are a no-op.
func (r *Recorder) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.entries[:0]
	for _, e := range r.entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(r.entries) {
		return nil
	}
	r.entries = kept
	return r.persist(ctx)
}

// Clear wipes the whole list.
func (r *Recorder) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
	return r.persist(ctx)
}

// SetRating attaches a user rating to an existing entry.
func (r *Recorder) SetRating(ctx context.Context, id string, rating int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.entries {
		if r.entries[i].ID == id {
			r.entries[i].Rating = rating
			return r.persist(ctx)
		}
	}
	return nil
}

// List returns a copy of the entries, newest first.
func (r *Recorder) List() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *Recorder) persist(ctx context.Context) error {
	if err := r.store.Save(ctx, r.entries); err != nil {
		r.logger.Warn("history: persist failed", "entries", len(r.entries), "err", err)
		return err
	}
	return nil
}
