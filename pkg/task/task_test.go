package task

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/quantfabric/fincore/pkg/faults"
)

func waitSettled[T any](t *testing.T, tk *Task[T]) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := tk.Wait(ctx); err != nil {
		t.Fatalf("task did not settle in time: %v", err)
	}
}

func TestRunSucceeds(t *testing.T) {
	tk := Run(nil, func(*CancelToken) (int, error) {
		return 42, nil
	})
	waitSettled(t, tk)

	if !tk.Succeeded() || tk.State() != StateSucceeded {
		t.Fatalf("state = %s, want succeeded", tk.State())
	}
	v, err := tk.Result()
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if v != 42 {
		t.Fatalf("Result = %d, want 42", v)
	}
	if tk.Err() != nil {
		t.Fatalf("Err = %v, want nil", tk.Err())
	}
}

func TestRunFaults(t *testing.T) {
	boom := errors.New("boom")
	tk := Run(nil, func(*CancelToken) (int, error) {
		return 0, boom
	})
	waitSettled(t, tk)

	if !tk.Faulted() {
		t.Fatalf("state = %s, want faulted", tk.State())
	}
	if _, err := tk.Result(); !errors.Is(err, boom) {
		t.Fatalf("Result error = %v, want boom", err)
	}
	if !errors.Is(tk.Err(), boom) {
		t.Fatalf("Err = %v, want boom", tk.Err())
	}
}

func TestRunRecoversPanics(t *testing.T) {
	tk := Run(nil, func(*CancelToken) (int, error) {
		panic("kaboom")
	})
	waitSettled(t, tk)

	if !tk.Faulted() {
		t.Fatalf("state = %s, want faulted", tk.State())
	}
	var pe *PanicError
	if !errors.As(tk.Err(), &pe) {
		t.Fatalf("Err = %T, want PanicError", tk.Err())
	}
	if pe.Value != "kaboom" {
		t.Fatalf("panic value = %v", pe.Value)
	}
}

func TestRunObservesCheck(t *testing.T) {
	token := NewCancelToken()
	started := make(chan struct{})
	tk := Run(token, func(tok *CancelToken) (int, error) {
		close(started)
		for {
			if err := tok.Check(); err != nil {
				return 0, err
			}
			time.Sleep(time.Millisecond)
		}
	})

	<-started
	token.Cancel()
	waitSettled(t, tk)

	if !tk.Cancelled() {
		t.Fatalf("state = %s, want cancelled", tk.State())
	}
	if _, err := tk.Result(); !faults.IsCancelled(err) {
		t.Fatalf("Result error = %v, want CancelledError", err)
	}
}

func TestCancelSettlesPendingTaskImmediately(t *testing.T) {
	token := NewCancelToken()
	release := make(chan struct{})
	finished := make(chan struct{})
	tk := Run(token, func(*CancelToken) (string, error) {
		<-release
		close(finished)
		return "late", nil
	})

	token.Cancel()
	waitSettled(t, tk)
	if !tk.Cancelled() {
		t.Fatalf("state = %s, want cancelled", tk.State())
	}

	// The body is still running: cancellation never unwinds work. Its
	// eventual result must be discarded.
	close(release)
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("task body never finished")
	}
	if !tk.Cancelled() {
		t.Fatalf("late result overwrote terminal state: %s", tk.State())
	}
	if _, err := tk.Result(); !faults.IsCancelled(err) {
		t.Fatalf("Result error = %v, want CancelledError", err)
	}
}

func TestPreCancelledTokenSkipsBody(t *testing.T) {
	token := NewCancelToken()
	token.Cancel()

	var ran atomic.Bool
	tk := Run(token, func(*CancelToken) (int, error) {
		ran.Store(true)
		return 1, nil
	})
	waitSettled(t, tk)

	if !tk.Cancelled() {
		t.Fatalf("state = %s, want cancelled", tk.State())
	}
	time.Sleep(10 * time.Millisecond)
	if ran.Load() {
		t.Fatal("body ran despite a pre-cancelled token")
	}
}

func TestCancelAfterSettlementIsNoOp(t *testing.T) {
	token := NewCancelToken()
	tk := Run(token, func(*CancelToken) (int, error) {
		return 7, nil
	})
	waitSettled(t, tk)

	token.Cancel()
	if !tk.Succeeded() {
		t.Fatalf("cancel after settlement changed state to %s", tk.State())
	}
	if v, _ := tk.Result(); v != 7 {
		t.Fatalf("result changed to %d", v)
	}
}

func TestWaitNeverSignalsFailure(t *testing.T) {
	cases := map[string]*Task[int]{
		"succeeded": FromResult(1),
		"faulted":   FromError[int](errors.New("bad")),
		"cancelled": FromError[int](faults.Cancelledf("stop")),
	}
	for name, tk := range cases {
		if err := tk.Wait(context.Background()); err != nil {
			t.Errorf("Wait on %s task = %v, want nil", name, err)
		}
	}
}

func TestWaitReturnsContextError(t *testing.T) {
	tk := newTask[int](nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := tk.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait = %v, want deadline exceeded", err)
	}
	if tk.Completed() {
		t.Fatal("abandoning a wait settled the task")
	}
}

func TestResultWhilePending(t *testing.T) {
	tk := newTask[int](nil)
	if _, err := tk.Result(); !faults.IsInvalidOperation(err) {
		t.Fatalf("Result on pending task = %v, want InvalidOperationError", err)
	}
	if tk.Err() != nil {
		t.Fatalf("Err on pending task = %v, want nil", tk.Err())
	}
}

func TestFromError(t *testing.T) {
	faulted := FromError[int](errors.New("x"))
	if !faulted.Faulted() {
		t.Fatalf("state = %s, want faulted", faulted.State())
	}

	cancelled := FromError[int](faults.Cancelledf("x"))
	if !cancelled.Cancelled() {
		t.Fatalf("state = %s, want cancelled", cancelled.State())
	}

	nilErr := FromError[int](nil)
	if !nilErr.Faulted() {
		t.Fatalf("state = %s, want faulted for nil error", nilErr.State())
	}
}

func TestContinueRunsForEveryTerminalState(t *testing.T) {
	parents := map[string]*Task[int]{
		"succeeded": FromResult(10),
		"faulted":   FromError[int](errors.New("bad")),
		"cancelled": FromError[int](faults.Cancelledf("stop")),
	}
	for name, parent := range parents {
		runs := 0
		var seen State
		child := Continue(parent, func(p *Task[int]) (string, error) {
			runs++
			seen = p.State()
			return "cleaned", nil
		})
		waitSettled(t, child)

		if runs != 1 {
			t.Errorf("%s parent: continuation ran %d times, want 1", name, runs)
		}
		if !seen.Terminal() {
			t.Errorf("%s parent: continuation saw state %s", name, seen)
		}
		if v, err := child.Result(); err != nil || v != "cleaned" {
			t.Errorf("%s parent: child result %q, %v", name, v, err)
		}
	}
}

func TestContinueOutcomeMapping(t *testing.T) {
	parent := FromResult(1)

	ok := Continue(parent, func(*Task[int]) (int, error) { return 2, nil })
	if !ok.Succeeded() {
		t.Fatalf("value continuation state = %s", ok.State())
	}

	failed := Continue(parent, func(*Task[int]) (int, error) { return 0, errors.New("no") })
	if !failed.Faulted() {
		t.Fatalf("error continuation state = %s", failed.State())
	}

	cancelled := Continue(parent, func(*Task[int]) (int, error) { return 0, faults.Cancelledf("pass it on") })
	if !cancelled.Cancelled() {
		t.Fatalf("cancellation continuation state = %s", cancelled.State())
	}

	panicked := Continue(parent, func(*Task[int]) (int, error) { panic("in continuation") })
	if !panicked.Faulted() {
		t.Fatalf("panic continuation state = %s", panicked.State())
	}
	var pe *PanicError
	if !errors.As(panicked.Err(), &pe) {
		t.Fatalf("panic continuation error = %T", panicked.Err())
	}
}

func TestContinuationsRunInRegistrationOrder(t *testing.T) {
	token := NewCancelToken()
	release := make(chan struct{})
	parent := Run(token, func(*CancelToken) (int, error) {
		<-release
		return 1, nil
	})

	var order []int
	c1 := Continue(parent, func(*Task[int]) (int, error) { order = append(order, 1); return 0, nil })
	c2 := Continue(parent, func(*Task[int]) (int, error) { order = append(order, 2); return 0, nil })
	c3 := Continue(parent, func(*Task[int]) (int, error) { order = append(order, 3); return 0, nil })

	close(release)
	waitSettled(t, c1)
	waitSettled(t, c2)
	waitSettled(t, c3)

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("continuations ran in order %v", order)
	}
}

func TestContinueAfterSettlementRunsImmediately(t *testing.T) {
	parent := FromResult(5)
	ran := false
	child := Continue(parent, func(p *Task[int]) (int, error) {
		ran = true
		v, _ := p.Result()
		return v * 2, nil
	})

	// Post-settlement registration runs on this goroutine, so the child
	// must already be terminal when Continue returns.
	if !ran {
		t.Fatal("continuation on settled parent did not run immediately")
	}
	if v, err := child.Result(); err != nil || v != 10 {
		t.Fatalf("child result = %d, %v", v, err)
	}
}

func TestContinueChain(t *testing.T) {
	start := FromResult(2)
	doubled := Continue(start, func(p *Task[int]) (int, error) {
		v, err := p.Result()
		if err != nil {
			return 0, err
		}
		return v * 2, nil
	})
	labelled := Continue(doubled, func(p *Task[int]) (string, error) {
		v, err := p.Result()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("value=%d", v), nil
	})
	waitSettled(t, labelled)

	v, err := labelled.Result()
	if err != nil {
		t.Fatalf("chain result: %v", err)
	}
	if v != "value=4" {
		t.Fatalf("chain result = %q", v)
	}
}

func TestContinueTaskFlattens(t *testing.T) {
	parent := FromResult(3)
	child := ContinueTask(parent, func(p *Task[int]) *Task[string] {
		v, _ := p.Result()
		return Run(nil, func(*CancelToken) (string, error) {
			return fmt.Sprintf("inner=%d", v), nil
		})
	})
	waitSettled(t, child)

	v, err := child.Result()
	if err != nil {
		t.Fatalf("flattened result: %v", err)
	}
	if v != "inner=3" {
		t.Fatalf("flattened result = %q", v)
	}

	nilChild := ContinueTask(parent, func(*Task[int]) *Task[string] { return nil })
	waitSettled(t, nilChild)
	if !nilChild.Faulted() {
		t.Fatalf("nil inner task state = %s, want faulted", nilChild.State())
	}
}

func ExampleContinue() {
	order := Run(nil, func(*CancelToken) (string, error) {
		return "order-7", nil
	})
	receipt := Continue(order, func(p *Task[string]) (string, error) {
		id, err := p.Result()
		if err != nil {
			return "", err
		}
		return "receipt for " + id, nil
	})
	_ = receipt.Wait(context.Background())

	v, _ := receipt.Result()
	fmt.Println(v)
	// Output: receipt for order-7
}
