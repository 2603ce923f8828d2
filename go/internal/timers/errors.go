package timers

import "errors"

var (
	// ErrUnknownTimer is returned when an operation names a timer that was never defined.
	ErrUnknownTimer = errors.New("unknown timer")

	// ErrInvalidDefinition is returned when a timer definition breaks its invariants.
	ErrInvalidDefinition = errors.New("invalid timer definition")
)
