// Package lifecycle defines the init/dispose contract resources follow
// and helpers that guarantee release on every exit path.
package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/quantfabric/fincore/pkg/faults"
)

// Initable is a resource that must be initialised before use.
type Initable interface {
	Init(ctx context.Context) error
}

// Disposable is a resource that must be released after use. Dispose is
// called exactly once per successful Init.
type Disposable interface {
	Dispose() error
}

// Resource combines both ends of the contract.
type Resource interface {
	Initable
	Disposable
}

// DisposeFunc adapts a plain function to Disposable.
type DisposeFunc func() error

// Dispose invokes the function.
func (f DisposeFunc) Dispose() error { return f() }

// Use initialises r, runs fn, and disposes r on every exit path. The
// dispose runs even when fn panics, with the panic resuming afterwards.
// Errors from fn and Dispose are combined with faults.Aggregate, so
// callers see both when both fail.
func Use(ctx context.Context, r Resource, fn func(ctx context.Context) error) (err error) {
	if initErr := r.Init(ctx); initErr != nil {
		return fmt.Errorf("init resource: %w", initErr)
	}
	defer func() {
		if disposeErr := r.Dispose(); disposeErr != nil {
			err = faults.Aggregate([]error{err, fmt.Errorf("dispose resource: %w", disposeErr)})
		}
	}()
	err = fn(ctx)
	return err
}

// Scope accumulates disposables and releases them in reverse registration
// order, the way later resources tend to depend on earlier ones.
type Scope struct {
	mu     sync.Mutex
	items  []Disposable
	closed bool
}

// NewScope returns an empty scope.
func NewScope() *Scope {
	return &Scope{}
}

// Add registers d for release at Close. Adding to a closed scope is an
// InvalidOperationError.
func (s *Scope) Add(d Disposable) error {
	if d == nil {
		return faults.Argumentf("disposable must not be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return faults.InvalidOperationf("add on closed scope")
	}
	s.items = append(s.items, d)
	return nil
}

// AddFunc registers a plain release function.
func (s *Scope) AddFunc(fn func() error) error {
	if fn == nil {
		return faults.Argumentf("dispose function must not be nil")
	}
	return s.Add(DisposeFunc(fn))
}

// Len returns the number of pending disposables.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Close disposes everything in reverse order. Every Dispose runs even
// when earlier ones fail; failures come back combined with
// faults.Aggregate. A second Close is a no-op returning nil.
func (s *Scope) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	items := s.items
	s.items = nil
	s.mu.Unlock()

	var errs []error
	for i := len(items) - 1; i >= 0; i-- {
		if err := items[i].Dispose(); err != nil {
			errs = append(errs, err)
		}
	}
	return faults.Aggregate(errs)
}
