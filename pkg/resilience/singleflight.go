package resilience

import (
	"context"
	"sync"
)

// Group deduplicates concurrent calls that share a key: late arrivals wait
// for the in-flight call and receive its result instead of issuing their own.
type Group[T any] struct {
	mu    sync.Mutex
	calls map[string]*call[T]
}

type call[T any] struct {
	wg  sync.WaitGroup
	val T
	err error
}

// NewGroup creates an empty Group.
func NewGroup[T any]() *Group[T] {
	return &Group[T]{calls: make(map[string]*call[T])}
}

// Do runs f once per key at a time. Callers that arrive while a call for the
// same key is in flight block until it finishes and share its result; shared
// is true for those callers.
func (g *Group[T]) Do(ctx context.Context, key string, f func(context.Context) (T, error)) (val T, shared bool, err error) {
	g.mu.Lock()
	if c, ok := g.calls[key]; ok {
		g.mu.Unlock()
		c.wg.Wait()
		return c.val, true, c.err
	}
	c := &call[T]{}
	c.wg.Add(1)
	g.calls[key] = c
	g.mu.Unlock()

	c.val, c.err = f(ctx)
	c.wg.Done()

	g.mu.Lock()
	delete(g.calls, key)
	g.mu.Unlock()

	return c.val, false, c.err
}
