package engine

import "errors"

// Engine error taxonomy. Validation errors are rejected immediately and never
// retried; resource limit errors are surfaced explicitly; internal computation
// errors indicate a broken state invariant and are never papered over with a
// fallback state.
var (
	ErrInvalidGate           = errors.New("invalid gate")
	ErrIndexOutOfRange       = errors.New("qubit index out of range")
	ErrInvalidParameters     = errors.New("invalid gate parameters")
	ErrInvalidNoiseParameter = errors.New("noise probability must be in [0,1]")
	ErrResourceLimitExceeded = errors.New("resource limit exceeded")
	ErrInternalComputation   = errors.New("internal computation error")
)

// IsValidation reports whether err belongs to the validation class
// (bad gate name, bad index, bad parameters, bad noise probability).
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidGate) ||
		errors.Is(err, ErrIndexOutOfRange) ||
		errors.Is(err, ErrInvalidParameters) ||
		errors.Is(err, ErrInvalidNoiseParameter)
}

// IsResourceLimit reports whether err is a resource bound rejection.
func IsResourceLimit(err error) bool {
	return errors.Is(err, ErrResourceLimitExceeded)
}
