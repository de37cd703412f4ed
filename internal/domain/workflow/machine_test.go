package workflow

import (
	"context"
	"errors"
	"testing"
)

const (
	stateApplied  State = "applied"
	stateApproved State = "approved"
	stateDone     State = "done"
)

type roleKey struct{}

func withRole(role string) context.Context {
	return context.WithValue(context.Background(), roleKey{}, role)
}

func roleGuard(role string) GuardFunc {
	return func(ctx context.Context) bool {
		r, _ := ctx.Value(roleKey{}).(string)
		return r == role
	}
}

func buildApproval(t *testing.T, initial State) StateMachine {
	t.Helper()
	builder := NewBuilder()
	builder.Configure(stateApplied).PermitIf(stateApproved, roleGuard("director"))
	builder.Configure(stateApproved).PermitIf(stateDone, roleGuard("tenant_admin"))
	builder.Configure(stateDone)

	machine, err := builder.Build(initial)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	return machine
}

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{"declared code", stateApplied, true},
		{"error sink", StateError, true},
		{"empty state", State(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.expected {
				t.Errorf("State.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuilder_Configure(t *testing.T) {
	builder := NewBuilder()

	config := builder.Configure(stateApplied)
	if config == nil {
		t.Fatal("Configure() returned nil")
	}

	config2 := builder.Configure(stateApplied)
	if config != config2 {
		t.Error("Configure() should return same config for same state")
	}
}

func TestBuilder_ConfigurePanicsOnEmptyState(t *testing.T) {
	builder := NewBuilder()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Configure() should panic on empty state")
		}
	}()

	builder.Configure(State(""))
}

func TestBuilder_BuildRejectsUnknownInitialState(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(stateApplied)

	_, err := builder.Build(State("unknown"))
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("Build() error = %v, want %v", err, ErrInvalidState)
	}
}

func TestBuilder_BuildRejectsDanglingEdge(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(stateApplied).Permit(State("missing"))

	_, err := builder.Build(stateApplied)
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("Build() error = %v, want %v", err, ErrInvalidState)
	}
}

func TestBuilder_ErrorStateAlwaysConfigured(t *testing.T) {
	machine, err := NewBuilder().Build(StateError)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if !machine.IsTerminal() {
		t.Error("error state should be terminal")
	}
}

func TestStateMachine_FireWithPassingGuard(t *testing.T) {
	machine := buildApproval(t, stateApplied)

	if err := machine.Fire(withRole("director"), stateApproved); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if machine.State() != stateApproved {
		t.Errorf("State after Fire() = %v, want %v", machine.State(), stateApproved)
	}
}

func TestStateMachine_FireWithFailingGuard(t *testing.T) {
	machine := buildApproval(t, stateApproved)

	err := machine.Fire(withRole("director"), stateDone)
	if !errors.Is(err, ErrGuardFailed) {
		t.Fatalf("Fire() error = %v, want %v", err, ErrGuardFailed)
	}
	if machine.State() != stateApproved {
		t.Errorf("State should remain %v after failed Fire(), got %v", stateApproved, machine.State())
	}
}

func TestStateMachine_FireWithoutEdge(t *testing.T) {
	machine := buildApproval(t, stateApplied)

	err := machine.Fire(withRole("tenant_admin"), stateDone)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}
	if machine.State() != stateApplied {
		t.Errorf("State should remain %v after failed Fire(), got %v", stateApplied, machine.State())
	}
}

func TestStateMachine_FireTriesEdgesInOrder(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(stateApplied).
		PermitIf(stateApproved, roleGuard("director")).
		PermitIf(stateApproved, roleGuard("tenant_admin"))
	builder.Configure(stateApproved)

	machine, err := builder.Build(stateApplied)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	if err := machine.Fire(withRole("tenant_admin"), stateApproved); err != nil {
		t.Errorf("Fire() failed: %v", err)
	}
}

func TestStateMachine_CanFire(t *testing.T) {
	machine := buildApproval(t, stateApplied)

	tests := []struct {
		to       State
		expected bool
	}{
		{stateApproved, true},
		{stateDone, false},
		{StateError, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.to), func(t *testing.T) {
			if got := machine.CanFire(tt.to); got != tt.expected {
				t.Errorf("CanFire() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestStateMachine_PermittedTransitionsAndTerminal(t *testing.T) {
	machine := buildApproval(t, stateApplied)

	got := machine.PermittedTransitions()
	if len(got) != 1 || got[0] != stateApproved {
		t.Errorf("PermittedTransitions() = %v, want [%v]", got, stateApproved)
	}
	if machine.IsTerminal() {
		t.Error("applied should not be terminal")
	}

	done := buildApproval(t, stateDone)
	if !done.IsTerminal() {
		t.Error("done should be terminal")
	}
	if len(done.PermittedTransitions()) != 0 {
		t.Error("terminal state should permit nothing")
	}
}

func TestBuilder_BuildIsolatesInstances(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(stateApplied).Permit(stateApproved)
	builder.Configure(stateApproved)

	first, _ := builder.Build(stateApplied)
	builder.Configure(stateApplied).Permit(stateDone)
	builder.Configure(stateDone)

	if first.CanFire(stateDone) {
		t.Error("machine built earlier should not see later edges")
	}
}
