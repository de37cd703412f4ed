package workflow

import (
	"context"
	"fmt"

	"github.com/aflo-dev/aflo/internal/domain/entity"
	domainwf "github.com/aflo-dev/aflo/internal/domain/workflow"
)

// BuildTicketStateMachine creates a state machine from a workflow pattern,
// positioned at initial. Every edge is guarded by its grant role; admins
// pass every guard.
func BuildTicketStateMachine(pattern entity.PatternContents, initial string) (domainwf.StateMachine, error) {
	builder := domainwf.NewBuilder()

	for _, status := range pattern.StatusList {
		cfg := builder.Configure(domainwf.State(status.StatusCode))
		for _, next := range status.NextStatus {
			if next.StatusCode == "" {
				return nil, fmt.Errorf("%w: status %q has an edge with no target", domainwf.ErrInvalidState, status.StatusCode)
			}
			cfg.PermitIf(domainwf.State(next.StatusCode), grantRoleGuard(next.GrantRole))
		}
	}

	machine, err := builder.Build(domainwf.State(initial))
	if err != nil {
		return nil, fmt.Errorf("build state machine: %w", err)
	}
	return machine, nil
}

// CheckPattern verifies that a pattern declares unique status codes and no
// dangling edges.
func CheckPattern(pattern entity.PatternContents) error {
	if len(pattern.StatusList) == 0 {
		return fmt.Errorf("%w: pattern declares no statuses", domainwf.ErrInvalidState)
	}
	seen := make(map[string]bool, len(pattern.StatusList))
	for _, s := range pattern.StatusList {
		if s.StatusCode == "" {
			return fmt.Errorf("%w: empty status code", domainwf.ErrInvalidState)
		}
		if seen[s.StatusCode] {
			return fmt.Errorf("%w: status %q declared twice", domainwf.ErrInvalidState, s.StatusCode)
		}
		seen[s.StatusCode] = true
		for _, next := range s.NextStatus {
			if next.StatusCode == "" {
				return fmt.Errorf("%w: status %q has an edge with no target", domainwf.ErrInvalidState, s.StatusCode)
			}
		}
	}
	_, err := BuildTicketStateMachine(pattern, pattern.StatusList[0].StatusCode)
	return err
}

func grantRoleGuard(role string) domainwf.GuardFunc {
	return func(ctx context.Context) bool {
		caller, ok := entity.CallerFromContext(ctx)
		if !ok {
			return false
		}
		return caller.IsAdmin || caller.HasRole(role)
	}
}
