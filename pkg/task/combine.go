package task

import (
	"sync"

	"github.com/quantfabric/fincore/pkg/faults"
)

// WhenAll returns a task that settles once every input task has settled.
// When all inputs succeed it succeeds with their results in argument
// order. When any input faults it faults with an AggregateError collecting
// the faults in the order the settlements were observed. When there are no
// faults but at least one cancellation it settles cancelled. With no
// inputs it succeeds immediately with an empty slice.
func WhenAll[T any](tasks ...*Task[T]) *Task[[]T] {
	out := newTask[[]T](nil)
	if len(tasks) == 0 {
		out.settle(StateSucceeded, []T{}, nil)
		return out
	}

	var (
		mu        sync.Mutex
		remaining = len(tasks)
		failures  []error
		cancelled bool
	)

	finish := func() {
		mu.Lock()
		collected := failures
		sawCancel := cancelled
		mu.Unlock()

		switch {
		case len(collected) > 0:
			out.settle(StateFaulted, nil, faults.NewAggregate(collected[0], collected[1:]...))
		case sawCancel:
			out.settle(StateCancelled, nil, faults.Cancelledf("input task cancelled"))
		default:
			results := make([]T, len(tasks))
			for i, tk := range tasks {
				v, err := tk.Result()
				if err != nil {
					out.settle(StateFaulted, nil, err)
					return
				}
				results[i] = v
			}
			out.settle(StateSucceeded, results, nil)
		}
	}

	for _, tk := range tasks {
		tk.onSettled(func() {
			mu.Lock()
			state, _, err := tk.snapshot()
			switch state {
			case StateFaulted:
				failures = append(failures, err)
			case StateCancelled:
				cancelled = true
			}
			remaining--
			last := remaining == 0
			mu.Unlock()
			if last {
				finish()
			}
		})
	}
	return out
}
