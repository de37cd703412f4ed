package workflow

import "context"

// StateMachine tracks the current status of one ticket and validates moves
// against the configured edges.
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if an edge to the target exists from the current state
	CanFire(to State) bool

	// Fire moves to the target state if an edge exists and its guard passes
	Fire(ctx context.Context, to State) error

	// PermittedTransitions returns the targets reachable from the current state, in declaration order
	PermittedTransitions() []State

	// IsTerminal returns true if the current state has no outgoing edges
	IsTerminal() bool
}
