package workflow

import (
	"context"
	"fmt"
)

// GuardFunc is a function that evaluates whether a transition should be allowed
type GuardFunc func(ctx context.Context) bool

// StateMachineBuilder builds a configured state machine
type StateMachineBuilder interface {
	// Configure declares the state and returns its configuration
	Configure(state State) StateConfiguration

	// Build creates a new state machine instance with the given initial state.
	// It fails if the initial state or any edge target was never configured.
	Build(initialState State) (StateMachine, error)
}

// StateConfiguration configures transitions for a specific state
type StateConfiguration interface {
	// Permit allows a transition to the target state
	Permit(toState State) StateConfiguration

	// PermitIf allows a transition to the target state if the guard condition passes
	PermitIf(toState State, guard GuardFunc) StateConfiguration
}

type transition struct {
	toState State
	guard   GuardFunc
}

type stateConfig struct {
	fromState   State
	transitions []transition
}

type stateMachineBuilder struct {
	order          []State
	configurations map[State]*stateConfig
}

type stateMachine struct {
	currentState   State
	configurations map[State]*stateConfig
}

// NewBuilder creates a new state machine builder. The error state is always configured.
func NewBuilder() StateMachineBuilder {
	b := &stateMachineBuilder{
		configurations: make(map[State]*stateConfig),
	}
	b.Configure(StateError)
	return b
}

// Configure returns a state configuration for the given state
func (b *stateMachineBuilder) Configure(state State) StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %q", state))
	}

	config, exists := b.configurations[state]
	if !exists {
		config = &stateConfig{fromState: state}
		b.configurations[state] = config
		b.order = append(b.order, state)
	}

	return config
}

// Build creates a new state machine instance with the given initial state
func (b *stateMachineBuilder) Build(initialState State) (StateMachine, error) {
	if _, ok := b.configurations[initialState]; !ok {
		return nil, fmt.Errorf("%w: initial state %q is not configured", ErrInvalidState, initialState)
	}

	configsCopy := make(map[State]*stateConfig, len(b.configurations))
	for _, state := range b.order {
		config := b.configurations[state]
		for _, t := range config.transitions {
			if _, ok := b.configurations[t.toState]; !ok {
				return nil, fmt.Errorf("%w: %q references unknown state %q", ErrInvalidState, state, t.toState)
			}
		}
		configsCopy[state] = &stateConfig{
			fromState:   state,
			transitions: append([]transition{}, config.transitions...),
		}
	}

	return &stateMachine{
		currentState:   initialState,
		configurations: configsCopy,
	}, nil
}

// Permit allows a transition to the target state
func (c *stateConfig) Permit(toState State) StateConfiguration {
	return c.PermitIf(toState, nil)
}

// PermitIf allows a transition to the target state if the guard condition passes
func (c *stateConfig) PermitIf(toState State, guard GuardFunc) StateConfiguration {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %q", toState))
	}

	c.transitions = append(c.transitions, transition{
		toState: toState,
		guard:   guard,
	})

	return c
}

// State returns the current state
func (m *stateMachine) State() State {
	return m.currentState
}

// CanFire returns true if an edge to the target exists from the current state.
// Guards are not evaluated.
func (m *stateMachine) CanFire(to State) bool {
	for _, t := range m.edges() {
		if t.toState == to {
			return true
		}
	}
	return false
}

// Fire attempts the transition, moving to the new state if allowed
func (m *stateMachine) Fire(ctx context.Context, to State) error {
	found := false
	for _, t := range m.edges() {
		if t.toState != to {
			continue
		}
		found = true
		if t.guard == nil || t.guard(ctx) {
			m.currentState = t.toState
			return nil
		}
	}

	if !found {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.currentState, to)
	}
	return fmt.Errorf("%w: %s -> %s", ErrGuardFailed, m.currentState, to)
}

// PermittedTransitions returns all targets reachable from the current state
func (m *stateMachine) PermittedTransitions() []State {
	edges := m.edges()
	states := make([]State, 0, len(edges))
	for _, t := range edges {
		states = append(states, t.toState)
	}
	return states
}

// IsTerminal returns true if the current state has no outgoing edges
func (m *stateMachine) IsTerminal() bool {
	return len(m.edges()) == 0
}

func (m *stateMachine) edges() []transition {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return nil
	}
	return config.transitions
}
