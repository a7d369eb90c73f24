// Package pubsub implements in-process publish/subscribe topics. Events
// carry either a value or a terminal error in an explicit envelope, and a
// subscription that receives an error is permanently retired.
package pubsub

import (
	"errors"
	"sync"

	"golang.org/x/time/rate"

	"github.com/quantfabric/fincore/pkg/faults"
)

// ErrRateLimited is returned by Publish when the topic's rate limit
// rejects an event. Delivery is fire-and-forget: nothing is queued.
var ErrRateLimited = errors.New("pubsub: publish rate limit exceeded")

// Event is the envelope delivered to subscribers: a value or a terminal
// error, never both.
type Event[T any] struct {
	value T
	err   error
}

// ValueEvent wraps a delivered value.
func ValueEvent[T any](v T) Event[T] {
	return Event[T]{value: v}
}

// ErrorEvent wraps a terminal error.
func ErrorEvent[T any](err error) Event[T] {
	return Event[T]{err: err}
}

// Err returns the event's error; nil for value events.
func (e Event[T]) Err() error { return e.err }

// Value returns the carried value, meaningful only when Err is nil.
func (e Event[T]) Value() T { return e.value }

// Publisher is the sending end of a topic.
type Publisher[T any] interface {
	Publish(v T) error
}

// Subscriber is the receiving end of a topic.
type Subscriber[T any] interface {
	Subscribe(fn func(Event[T])) (cancel func(), err error)
}

type subscription[T any] struct {
	id int64
	fn func(Event[T])
}

// Topic fans events out to its subscribers. Each published event reaches
// each live subscription through at most one callback invocation, in
// subscription order, on the publisher's goroutine.
type Topic[T any] struct {
	name    string
	limiter *rate.Limiter

	mu     sync.Mutex
	nextID int64
	subs   []subscription[T]
	closed bool
}

var (
	_ Publisher[int]  = (*Topic[int])(nil)
	_ Subscriber[int] = (*Topic[int])(nil)
)

// Option configures a Topic.
type Option func(*topicOptions)

type topicOptions struct {
	limit rate.Limit
	burst int
}

// WithRateLimit caps publishing at perSecond events with the given burst.
// Publishes beyond the cap fail with ErrRateLimited.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(o *topicOptions) {
		o.limit = rate.Limit(perSecond)
		o.burst = burst
	}
}

// NewTopic creates a named topic.
func NewTopic[T any](name string, opts ...Option) *Topic[T] {
	o := topicOptions{limit: rate.Inf}
	for _, opt := range opts {
		opt(&o)
	}
	t := &Topic[T]{name: name}
	if o.limit != rate.Inf {
		t.limiter = rate.NewLimiter(o.limit, o.burst)
	}
	return t
}

// Name returns the topic name.
func (t *Topic[T]) Name() string { return t.name }

// Subscribe registers fn for future events and returns its cancel
// function. Cancelling is idempotent; an event already being dispatched
// when cancel returns may still be delivered.
func (t *Topic[T]) Subscribe(fn func(Event[T])) (func(), error) {
	if fn == nil {
		return nil, faults.Argumentf("subscriber callback must not be nil")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, faults.InvalidOperationf("subscribe on closed topic %q", t.name)
	}
	t.nextID++
	id := t.nextID
	t.subs = append(t.subs, subscription[T]{id: id, fn: fn})
	return func() { t.unsubscribe(id) }, nil
}

func (t *Topic[T]) unsubscribe(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, s := range t.subs {
		if s.id == id {
			t.subs = append(t.subs[:i], t.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers v to every current subscriber and returns once the
// callbacks have run. Publishing on a closed topic is an
// InvalidOperationError; an over-limit publish returns ErrRateLimited.
func (t *Topic[T]) Publish(v T) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return faults.InvalidOperationf("publish on closed topic %q", t.name)
	}
	if t.limiter != nil && !t.limiter.Allow() {
		t.mu.Unlock()
		return ErrRateLimited
	}
	subs := make([]subscription[T], len(t.subs))
	copy(subs, t.subs)
	t.mu.Unlock()

	ev := ValueEvent(v)
	for _, s := range subs {
		s.fn(ev)
	}
	return nil
}

// Fail delivers a terminal error event to every subscriber, retires them
// all, and closes the topic. Later publishes and subscribes fail with an
// InvalidOperationError.
func (t *Topic[T]) Fail(err error) error {
	if err == nil {
		return faults.Argumentf("Fail requires a non-nil error")
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return faults.InvalidOperationf("fail on closed topic %q", t.name)
	}
	t.closed = true
	subs := t.subs
	t.subs = nil
	t.mu.Unlock()

	ev := ErrorEvent[T](err)
	for _, s := range subs {
		s.fn(ev)
	}
	return nil
}

// Close retires every subscription without delivering anything. Closing
// an already closed topic is a no-op.
func (t *Topic[T]) Close() {
	t.mu.Lock()
	t.closed = true
	t.subs = nil
	t.mu.Unlock()
}
