package handlers

import (
	"context"
	"sync"
)

// ViewStore keeps the single chain run before every view render. It is
// generic over the render data type.
type ViewStore[T any] struct {
	mu      sync.RWMutex
	entries []entry[T]
}

func NewViewStore[T any]() *ViewStore[T] {
	return &ViewStore[T]{}
}

func (s *ViewStore[T]) Register(handler Func[T]) HandlerID {
	id := nextID()
	s.mu.Lock()
	s.entries = append(s.entries, entry[T]{id: id, fn: handler})
	s.mu.Unlock()
	return id
}

func (s *ViewStore[T]) Unregister(id HandlerID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	remaining, removed := without(s.entries, id)
	s.entries = remaining
	return removed
}

// Run executes a snapshot of the chain over data.
func (s *ViewStore[T]) Run(ctx context.Context, data T) (T, error) {
	s.mu.RLock()
	chain := funcs(s.entries)
	s.mu.RUnlock()
	if len(chain) == 0 {
		return data, nil
	}
	return Run(ctx, data, chain...)
}

func (s *ViewStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
