// Package faults defines the error kinds shared across fincore: eager
// validation failures, state-machine violations, cooperative cancellation
// and multi-cause aggregation. All kinds are plain error values intended
// for errors.Is / errors.As inspection.
package faults

import (
	"errors"
	"fmt"
)

// ArgumentError reports input rejected by eager validation: malformed
// decimal strings, zero divisors, negative precision, empty identifiers.
type ArgumentError struct {
	msg string
}

// Argumentf builds an ArgumentError from a format string.
func Argumentf(format string, args ...any) *ArgumentError {
	return &ArgumentError{msg: fmt.Sprintf(format, args...)}
}

func (e *ArgumentError) Error() string {
	return "invalid argument: " + e.msg
}

// IsArgument reports whether err is or wraps an ArgumentError.
func IsArgument(err error) bool {
	var target *ArgumentError
	return errors.As(err, &target)
}

// InvalidOperationError reports an operation that is not legal for the
// receiver's current state, such as publishing on a closed topic or
// reading the result of a task that has not settled.
type InvalidOperationError struct {
	msg string
}

// InvalidOperationf builds an InvalidOperationError from a format string.
func InvalidOperationf(format string, args ...any) *InvalidOperationError {
	return &InvalidOperationError{msg: fmt.Sprintf(format, args...)}
}

func (e *InvalidOperationError) Error() string {
	return "invalid operation: " + e.msg
}

// IsInvalidOperation reports whether err is or wraps an InvalidOperationError.
func IsInvalidOperation(err error) bool {
	var target *InvalidOperationError
	return errors.As(err, &target)
}

// CancelledError marks cooperative cancellation. Token polls return it and
// cancelled tasks carry it; it is how cancellation is told apart from
// failure everywhere in fincore.
type CancelledError struct {
	msg string
}

// Cancelledf builds a CancelledError from a format string.
func Cancelledf(format string, args ...any) *CancelledError {
	return &CancelledError{msg: fmt.Sprintf(format, args...)}
}

func (e *CancelledError) Error() string {
	return "cancelled: " + e.msg
}

// IsCancelled reports whether err is or wraps a CancelledError.
func IsCancelled(err error) bool {
	var target *CancelledError
	return errors.As(err, &target)
}
