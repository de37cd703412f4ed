package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when no edge leads to the requested state
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a state is empty or not configured
	ErrInvalidState = errors.New("invalid state")

	// ErrGuardFailed is returned when an edge exists but its guard rejects the caller
	ErrGuardFailed = errors.New("guard condition failed")
)
