package types

import (
	"errors"
	"fmt"
)

// OutOfGasError is returned when a handler reaches its gas ceiling.
// Used is the counter total after the charge that crossed the ceiling.
type OutOfGasError struct {
	Used  Gas
	Limit Gas
}

var _ error = OutOfGasError{}

func (e OutOfGasError) Error() string {
	return fmt.Sprintf("Gas limit exceeded. Used: %s", e.Used)
}

// DeterministicHostError marks a host failure that every node reaches for the same
// input. The invocation harness must treat it as terminal for the handler and must
// not retry it.
type DeterministicHostError struct {
	Err error
}

var _ error = (*DeterministicHostError)(nil)

func (e *DeterministicHostError) Error() string {
	if e == nil || e.Err == nil {
		return "deterministic host error"
	}
	return e.Err.Error()
}

func (e *DeterministicHostError) Unwrap() error {
	return e.Err
}

// NewDeterministicHostError wraps err.
func NewDeterministicHostError(err error) *DeterministicHostError {
	return &DeterministicHostError{Err: err}
}

// IsDeterministic reports whether err, or anything it wraps, is a
// DeterministicHostError.
func IsDeterministic(err error) bool {
	var det *DeterministicHostError
	return errors.As(err, &det)
}

// GasUsedFrom extracts the consumed total from an out of gas error chain.
func GasUsedFrom(err error) (Gas, bool) {
	var oog OutOfGasError
	if errors.As(err, &oog) {
		return oog.Used, true
	}
	return ZeroGas, false
}

// MalformedCostModelError reports a type that participates in metering without
// implementing exactly one of the size-of forms. It is a programming error.
type MalformedCostModelError struct {
	Type   string
	Reason string
}

var _ error = MalformedCostModelError{}

func (e MalformedCostModelError) Error() string {
	return fmt.Sprintf("malformed cost model for %s: %s", e.Type, e.Reason)
}

// ValidationError is returned when a module is rejected at load time.
type ValidationError struct {
	Msg string
	Err error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
