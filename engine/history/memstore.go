package history

import (
	"context"
	"sync"
)

// MemStore holds the list in memory. Useful for tests and for running
// without a configured durable backend.
type MemStore struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{}
}

func (m *MemStore) Load(ctx context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

func (m *MemStore) Save(ctx context.Context, entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make([]Entry, len(entries))
	copy(m.entries, entries)
	return nil
}
