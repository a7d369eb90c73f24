package faults

import (
	"errors"
	"fmt"
	"strings"
)

// AggregateError carries an ordered, non-empty collection of errors from a
// compound operation, preserving the order in which the failures were
// observed. The first element is the designated inner error.
type AggregateError struct {
	errs []error
}

// NewAggregate builds an AggregateError from one leading error and any
// number of trailing ones. first must be non-nil; nil entries in rest are
// dropped. Order is preserved.
func NewAggregate(first error, rest ...error) *AggregateError {
	errs := make([]error, 0, 1+len(rest))
	errs = append(errs, first)
	for _, err := range rest {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return &AggregateError{errs: errs}
}

// Aggregate collapses a slice of errors: nil entries are dropped, an empty
// result yields nil, a single survivor is returned as-is, and two or more
// become an AggregateError in slice order.
func Aggregate(errs []error) error {
	kept := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			kept = append(kept, err)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return &AggregateError{errs: kept}
	}
}

func (e *AggregateError) Error() string {
	if len(e.errs) == 1 {
		return "1 error occurred: " + e.errs[0].Error()
	}
	parts := make([]string, len(e.errs))
	for i, err := range e.errs {
		parts[i] = err.Error()
	}
	return fmt.Sprintf("%d errors occurred: %s", len(e.errs), strings.Join(parts, "; "))
}

// InnerError returns the designated (first) error.
func (e *AggregateError) InnerError() error {
	return e.errs[0]
}

// InnerErrors returns a copy of the collected errors in observation order.
func (e *AggregateError) InnerErrors() []error {
	out := make([]error, len(e.errs))
	copy(out, e.errs)
	return out
}

// Len returns the number of collected errors.
func (e *AggregateError) Len() int {
	return len(e.errs)
}

// Unwrap exposes the collection to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error {
	return e.errs
}

// AsAggregate extracts an AggregateError from err's chain.
func AsAggregate(err error) (*AggregateError, bool) {
	var target *AggregateError
	ok := errors.As(err, &target)
	return target, ok
}
