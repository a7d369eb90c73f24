// Package task provides cooperatively cancellable futures: a CancelToken
// that latches a cancellation request and notifies listeners, and a
// Task[T] that settles exactly once as succeeded, faulted or cancelled.
// Continuations registered on a task run exactly once for every terminal
// state, which makes them the place for cleanup that must not be skipped.
package task

import (
	"context"
	"sync"

	"github.com/quantfabric/fincore/pkg/faults"
)

// CancelToken carries a cancellation request from an owner to the work
// observing the token. The request is monotonic: once Cancel has been
// called the token reports cancelled forever. Cancellation is cooperative;
// nothing is preempted on behalf of the owner.
type CancelToken struct {
	mu        sync.Mutex
	cancelled bool
	nextID    int64
	listeners []tokenListener
	done      chan struct{}
}

type tokenListener struct {
	id int64
	fn func()
}

// NewCancelToken returns a fresh, uncancelled token.
func NewCancelToken() *CancelToken {
	return &CancelToken{done: make(chan struct{})}
}

// WithContext derives a token that is cancelled when ctx ends. The
// returned stop function releases the watcher without cancelling the
// token; callers should invoke it once the token is no longer needed.
func WithContext(ctx context.Context) (*CancelToken, func()) {
	token := NewCancelToken()
	stopped := make(chan struct{})
	var once sync.Once
	stop := func() { once.Do(func() { close(stopped) }) }
	go func() {
		select {
		case <-ctx.Done():
			// A stop completed before this wake-up wins over the context.
			select {
			case <-stopped:
			default:
				token.Cancel()
			}
		case <-token.done:
		case <-stopped:
		}
	}()
	return token, stop
}

// Cancel requests cancellation. The first call latches the flag, closes
// Done and notifies every registered listener exactly once, outside the
// token's lock and in registration order. Subsequent calls do nothing.
func (t *CancelToken) Cancel() {
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		return
	}
	t.cancelled = true
	listeners := t.listeners
	t.listeners = nil
	close(t.done)
	t.mu.Unlock()

	for _, l := range listeners {
		l.fn()
	}
}

// Cancelled reports whether cancellation has been requested.
func (t *CancelToken) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Check is the synchronous poll: it returns a CancelledError once
// cancellation has been requested and nil before that. Work that wants to
// honour cancellation calls Check at its own safe points.
func (t *CancelToken) Check() error {
	if t.Cancelled() {
		return faults.Cancelledf("cancellation requested")
	}
	return nil
}

// Done returns a channel closed when cancellation is requested.
func (t *CancelToken) Done() <-chan struct{} {
	return t.done
}

// AddCancelListener registers fn to run once when cancellation is
// requested. If the token is already cancelled, fn runs immediately on the
// caller's goroutine. The returned function deregisters fn; it is a no-op
// once the listener has fired or dispatch has begun.
func (t *CancelToken) AddCancelListener(fn func()) (remove func()) {
	if fn == nil {
		return func() {}
	}
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		fn()
		return func() {}
	}
	t.nextID++
	id := t.nextID
	t.listeners = append(t.listeners, tokenListener{id: id, fn: fn})
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		for i, l := range t.listeners {
			if l.id == id {
				t.listeners = append(t.listeners[:i], t.listeners[i+1:]...)
				return
			}
		}
	}
}
