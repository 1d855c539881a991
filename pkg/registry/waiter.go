// pkg/registry/waiter.go
package registry

import (
	"context"
	"sync/atomic"
)

const (
	statePending int32 = iota
	stateFulfilled
	stateCancelled
)

// Waiter is a single-fulfillment handle for one correlation id. It moves
// one way from pending to either fulfilled or cancelled; whichever transition
// happens first wins and every later attempt is a no-op.
type Waiter[T any] struct {
	id    int64
	state atomic.Int32
	value T
	done  chan struct{}
}

func newWaiter[T any](id int64) *Waiter[T] {
	return &Waiter[T]{
		id:   id,
		done: make(chan struct{}),
	}
}

// ID returns the correlation id the waiter is bound to.
func (w *Waiter[T]) ID() int64 {
	return w.id
}

// fulfill stores value and releases the waiter. value is written before the
// channel is closed, so readers that observe done also observe value.
func (w *Waiter[T]) fulfill(value T) bool {
	if !w.state.CompareAndSwap(statePending, stateFulfilled) {
		return false
	}
	w.value = value
	close(w.done)
	return true
}

func (w *Waiter[T]) cancel() bool {
	if !w.state.CompareAndSwap(statePending, stateCancelled) {
		return false
	}
	close(w.done)
	return true
}

// Done is closed once the waiter is fulfilled or cancelled.
func (w *Waiter[T]) Done() <-chan struct{} {
	return w.done
}

// Wait blocks until the waiter is fulfilled, cancelled, or ctx is done.
// A cancelled waiter returns ErrClosed.
func (w *Waiter[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-w.done:
		if v, ok := w.Result(); ok {
			return v, nil
		}
		var zero T
		return zero, ErrClosed
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the fulfilment value. It never blocks on a pending or
// cancelled waiter; once the fulfilled state is set the value is only moments
// away, so Result waits for done rather than report a miss the completer
// already counted as a win.
func (w *Waiter[T]) Result() (T, bool) {
	if w.state.Load() == stateFulfilled {
		<-w.done
		return w.value, true
	}
	var zero T
	return zero, false
}
