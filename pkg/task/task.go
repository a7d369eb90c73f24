package task

import (
	"context"
	"fmt"
	"sync"

	"github.com/quantfabric/fincore/pkg/faults"
)

// PanicError wraps a panic recovered from a task body or continuation so
// the panic settles the task as faulted instead of tearing the process
// down.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Task is a write-once future. It settles exactly once — succeeded,
// faulted or cancelled — and every observer sees the same terminal state
// forever after. Continuations registered through Continue or ContinueTask
// run exactly once per registration regardless of which terminal state the
// task reached.
type Task[T any] struct {
	mu            sync.Mutex
	state         State
	result        T
	err           error
	token         *CancelToken
	done          chan struct{}
	continuations []func()
}

func newTask[T any](token *CancelToken) *Task[T] {
	if token == nil {
		token = NewCancelToken()
	}
	return &Task[T]{done: make(chan struct{}), token: token}
}

// settle performs the single terminal transition. Exactly one caller wins;
// everyone else finds the task already settled and backs off. Pending
// continuations run on the winner's goroutine in registration order.
func (t *Task[T]) settle(state State, result T, err error) bool {
	t.mu.Lock()
	if t.state != StatePending {
		t.mu.Unlock()
		return false
	}
	t.state = state
	t.result = result
	t.err = err
	conts := t.continuations
	t.continuations = nil
	close(t.done)
	t.mu.Unlock()

	for _, c := range conts {
		c()
	}
	return true
}

// onSettled runs fn once the task has settled: immediately when already
// terminal, otherwise queued in registration order.
func (t *Task[T]) onSettled(fn func()) {
	t.mu.Lock()
	if t.state == StatePending {
		t.continuations = append(t.continuations, fn)
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	fn()
}

// snapshot returns the settled triple under the lock.
func (t *Task[T]) snapshot() (State, T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state, t.result, t.err
}

// Run executes fn on its own goroutine and returns the task tracking it.
// A nil token gets a fresh one. fn's plain error settles the task faulted,
// an error satisfying faults.IsCancelled settles it cancelled, and a panic
// is recovered into a PanicError. Cancelling the token while the task is
// pending settles it cancelled at once; fn keeps running but its outcome
// is discarded.
func Run[T any](token *CancelToken, fn func(*CancelToken) (T, error)) *Task[T] {
	return RunOn(defaultDispatcher, token, fn)
}

// RunOn is Run on an explicit dispatcher.
func RunOn[T any](d Dispatcher, token *CancelToken, fn func(*CancelToken) (T, error)) *Task[T] {
	t := newTask[T](token)
	token = t.token

	var zero T
	if token.Cancelled() {
		t.settle(StateCancelled, zero, faults.Cancelledf("cancelled before start"))
		return t
	}

	remove := token.AddCancelListener(func() {
		var zero T
		t.settle(StateCancelled, zero, faults.Cancelledf("token cancelled"))
	})

	d.Submit(func() {
		defer remove()
		v, err := invoke(token, fn)
		switch {
		case err == nil:
			t.settle(StateSucceeded, v, nil)
		case faults.IsCancelled(err):
			var zero T
			t.settle(StateCancelled, zero, err)
		default:
			var zero T
			t.settle(StateFaulted, zero, err)
		}
	})
	return t
}

func invoke[T any](token *CancelToken, fn func(*CancelToken) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return fn(token)
}

// FromResult returns a task already settled with v.
func FromResult[T any](v T) *Task[T] {
	t := newTask[T](nil)
	t.settle(StateSucceeded, v, nil)
	return t
}

// FromError returns a task already settled with err: cancelled when the
// error is a cancellation, faulted otherwise.
func FromError[T any](err error) *Task[T] {
	t := newTask[T](nil)
	if err == nil {
		err = faults.InvalidOperationf("FromError called with a nil error")
	}
	var zero T
	if faults.IsCancelled(err) {
		t.settle(StateCancelled, zero, err)
	} else {
		t.settle(StateFaulted, zero, err)
	}
	return t
}

// State returns the current lifecycle state.
func (t *Task[T]) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Completed reports whether the task has settled.
func (t *Task[T]) Completed() bool { return t.State() != StatePending }

// Succeeded reports whether the task settled with a result.
func (t *Task[T]) Succeeded() bool { return t.State() == StateSucceeded }

// Faulted reports whether the task settled with an error.
func (t *Task[T]) Faulted() bool { return t.State() == StateFaulted }

// Cancelled reports whether the task settled through cancellation.
func (t *Task[T]) Cancelled() bool { return t.State() == StateCancelled }

// Token returns the cancellation token the task observes.
func (t *Task[T]) Token() *CancelToken { return t.token }

// Done returns a channel closed when the task settles.
func (t *Task[T]) Done() <-chan struct{} { return t.done }

// Result returns the settled value. It returns the fault when the task
// faulted, the CancelledError when it was cancelled, and an
// InvalidOperationError while the task is still pending.
func (t *Task[T]) Result() (T, error) {
	state, result, err := t.snapshot()
	var zero T
	switch state {
	case StateSucceeded:
		return result, nil
	case StateFaulted, StateCancelled:
		return zero, err
	default:
		return zero, faults.InvalidOperationf("task has not settled")
	}
}

// Err returns the fault or cancellation error, and nil while pending or
// after success.
func (t *Task[T]) Err() error {
	state, _, err := t.snapshot()
	if state == StateFaulted || state == StateCancelled {
		return err
	}
	return nil
}

// Wait blocks until the task settles and then returns nil whatever the
// terminal state is; callers inspect State, Result or Err afterwards. The
// only error Wait returns is ctx's, when the caller abandons the wait
// before settlement.
func (t *Task[T]) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Continue registers fn to run exactly once when parent settles —
// cancellation included, which is what makes continuations the home for
// cleanup that must never be skipped. fn receives the settled parent and
// its outcome becomes the returned task: a value settles it succeeded, a
// cancellation error settles it cancelled, any other error (or a panic)
// settles it faulted. Registered before settlement, continuations run in
// registration order on the settling goroutine; registered after, fn runs
// immediately on the caller's goroutine.
func Continue[T, U any](parent *Task[T], fn func(*Task[T]) (U, error)) *Task[U] {
	child := newTask[U](nil)
	parent.onSettled(func() {
		v, err := invokeContinuation(parent, fn)
		switch {
		case err == nil:
			child.settle(StateSucceeded, v, nil)
		case faults.IsCancelled(err):
			var zero U
			child.settle(StateCancelled, zero, err)
		default:
			var zero U
			child.settle(StateFaulted, zero, err)
		}
	})
	return child
}

func invokeContinuation[T, U any](parent *Task[T], fn func(*Task[T]) (U, error)) (v U, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return fn(parent)
}

// ContinueTask is Continue for task-returning continuations: the returned
// task adopts the outcome of the task fn produces, once that inner task
// settles. A nil inner task faults the child.
func ContinueTask[T, U any](parent *Task[T], fn func(*Task[T]) *Task[U]) *Task[U] {
	child := newTask[U](nil)
	parent.onSettled(func() {
		inner, err := invokeTaskContinuation(parent, fn)
		if err != nil {
			var zero U
			child.settle(StateFaulted, zero, err)
			return
		}
		if inner == nil {
			var zero U
			child.settle(StateFaulted, zero, faults.InvalidOperationf("continuation returned a nil task"))
			return
		}
		inner.onSettled(func() {
			state, v, err := inner.snapshot()
			child.settle(state, v, err)
		})
	})
	return child
}

func invokeTaskContinuation[T, U any](parent *Task[T], fn func(*Task[T]) *Task[U]) (inner *Task[U], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return fn(parent), nil
}
