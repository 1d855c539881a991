// pkg/registry/registry.go
package registry

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrDuplicateCorrelationID = errors.New("correlation id already registered")
	ErrClosed                 = errors.New("registry closed")
)

// Registry tracks in-flight waiters keyed by correlation id. It is safe for
// concurrent use by one dispatching goroutine per id and any number of
// completing goroutines.
type Registry[T any] struct {
	mu      sync.RWMutex
	waiters map[int64]*Waiter[T]
	closed  bool
}

func New[T any]() *Registry[T] {
	return &Registry[T]{
		waiters: make(map[int64]*Waiter[T]),
	}
}

// Register creates the waiter for id.
func (r *Registry[T]) Register(id int64) (*Waiter[T], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if _, exists := r.waiters[id]; exists {
		return nil, fmt.Errorf("%w: %d", ErrDuplicateCorrelationID, id)
	}

	w := newWaiter[T](id)
	r.waiters[id] = w
	return w, nil
}

// Complete fulfils the waiter registered for id. It returns false when no
// waiter is registered or the waiter already left the pending state; that is
// the normal outcome for late and duplicate responses.
func (r *Registry[T]) Complete(id int64, value T) bool {
	r.mu.RLock()
	w, ok := r.waiters[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	return w.fulfill(value)
}

// Remove drops the waiter for id. A waiter still pending is cancelled, so a
// Complete racing with Remove either wins outright or is a no-op.
func (r *Registry[T]) Remove(id int64) {
	r.mu.Lock()
	w, ok := r.waiters[id]
	delete(r.waiters, id)
	r.mu.Unlock()

	if ok {
		w.cancel()
	}
}

// Len reports the number of registered waiters.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.waiters)
}

// Close rejects further registrations and releases every blocked waiter
// with ErrClosed. Close is idempotent.
func (r *Registry[T]) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	waiters := r.waiters
	r.waiters = make(map[int64]*Waiter[T])
	r.mu.Unlock()

	for _, w := range waiters {
		w.cancel()
	}
}
