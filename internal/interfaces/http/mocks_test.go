package http

import (
	"context"

	"github.com/aflo-dev/aflo/internal/application/port"
	"github.com/aflo-dev/aflo/internal/application/workflow"
	"github.com/aflo-dev/aflo/internal/domain/entity"
)

type mockLogger struct {
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.errors = append(m.errors, msg)
}

type mockTicketService struct {
	getFunc        func(ctx context.Context, caller entity.Caller, id string) (*entity.Ticket, error)
	listFunc       func(ctx context.Context, caller entity.Caller, filter entity.TicketFilter) ([]*entity.Ticket, int64, error)
	createFunc     func(ctx context.Context, caller entity.Caller, req workflow.CreateRequest) (string, error)
	transitionFunc func(ctx context.Context, caller entity.Caller, req workflow.TransitionRequest) error
	deleteFunc     func(ctx context.Context, caller entity.Caller, id string) error
}

func (m *mockTicketService) Get(ctx context.Context, caller entity.Caller, id string) (*entity.Ticket, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, caller, id)
	}
	return &entity.Ticket{ID: id}, nil
}

func (m *mockTicketService) List(ctx context.Context, caller entity.Caller, filter entity.TicketFilter) ([]*entity.Ticket, int64, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, caller, filter)
	}
	return nil, 0, nil
}

func (m *mockTicketService) Create(ctx context.Context, caller entity.Caller, req workflow.CreateRequest) (string, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, caller, req)
	}
	return "ticket-1", nil
}

func (m *mockTicketService) Transition(ctx context.Context, caller entity.Caller, req workflow.TransitionRequest) error {
	if m.transitionFunc != nil {
		return m.transitionFunc(ctx, caller, req)
	}
	return nil
}

func (m *mockTicketService) Delete(ctx context.Context, caller entity.Caller, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, caller, id)
	}
	return nil
}

type mockDefinitionService struct {
	patterns      map[string]*entity.WorkflowPattern
	createPattern func(ctx context.Context, caller entity.Caller, pattern *entity.WorkflowPattern) error
	deletePattern func(ctx context.Context, caller entity.Caller, id string) error
}

func (m *mockDefinitionService) GetTemplate(ctx context.Context, id string) (*entity.TicketTemplate, error) {
	return &entity.TicketTemplate{ID: id}, nil
}

func (m *mockDefinitionService) GetPattern(ctx context.Context, id string) (*entity.WorkflowPattern, error) {
	if p, ok := m.patterns[id]; ok {
		return p, nil
	}
	return nil, errNotFound
}

func (m *mockDefinitionService) GetPatternByCode(ctx context.Context, code string) (*entity.WorkflowPattern, error) {
	return nil, errNotFound
}

func (m *mockDefinitionService) ListPatterns(ctx context.Context) ([]*entity.WorkflowPattern, error) {
	var out []*entity.WorkflowPattern
	for _, p := range m.patterns {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockDefinitionService) ListTemplates(ctx context.Context) ([]*entity.TicketTemplate, error) {
	return nil, nil
}

func (m *mockDefinitionService) CreatePattern(ctx context.Context, caller entity.Caller, pattern *entity.WorkflowPattern) error {
	if m.createPattern != nil {
		return m.createPattern(ctx, caller, pattern)
	}
	return nil
}

func (m *mockDefinitionService) DeletePattern(ctx context.Context, caller entity.Caller, id string) error {
	if m.deletePattern != nil {
		return m.deletePattern(ctx, caller, id)
	}
	return nil
}

func (m *mockDefinitionService) CreateTemplate(ctx context.Context, caller entity.Caller, template *entity.TicketTemplate) error {
	return nil
}

func (m *mockDefinitionService) DeleteTemplate(ctx context.Context, caller entity.Caller, id string) error {
	return nil
}

func (m *mockDefinitionService) Seed(ctx context.Context, patterns []*entity.WorkflowPattern, templates []*entity.TicketTemplate) (int, error) {
	return 0, nil
}

type mockResourceService[T any] struct {
	lastFilter port.ResourceFilter
	created    *T
	createErr  error
}

func (m *mockResourceService[T]) Get(ctx context.Context, id string) (*T, error) {
	return new(T), nil
}

func (m *mockResourceService[T]) List(ctx context.Context, filter port.ResourceFilter) ([]*T, int64, error) {
	m.lastFilter = filter
	return []*T{new(T)}, 1, nil
}

func (m *mockResourceService[T]) Create(ctx context.Context, caller entity.Caller, record *T) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = record
	return nil
}

func (m *mockResourceService[T]) Update(ctx context.Context, caller entity.Caller, id string, record *T) error {
	return nil
}

func (m *mockResourceService[T]) Delete(ctx context.Context, caller entity.Caller, id string) error {
	return nil
}
