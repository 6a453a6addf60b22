// Package syncx holds small concurrency helpers shared across packages.
package syncx

import "sync"

// RWGuard serializes access to a single value behind an RWMutex.
// Writers replace or mutate the value under the write lock, readers
// copy it out under the read lock, so no caller ever sees a
// half-updated composite.
type RWGuard[T any] struct {
	mu    sync.RWMutex
	value T
}

// NewGuard wraps initial in a guard.
func NewGuard[T any](initial T) *RWGuard[T] {
	return &RWGuard[T]{value: initial}
}

// Get copies the value out under the read lock. T must be a value type
// for the copy to be a real snapshot.
func (g *RWGuard[T]) Get() T {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.value
}

// Set replaces the value.
func (g *RWGuard[T]) Set(v T) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.value = v
}

// Write runs fn with a pointer to the value under the write lock.
func (g *RWGuard[T]) Write(fn func(*T)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(&g.value)
}
