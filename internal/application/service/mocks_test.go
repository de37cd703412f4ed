package service

import (
	"context"
	"time"

	"github.com/aflo-dev/aflo/internal/application/port"
	"github.com/aflo-dev/aflo/internal/application/workflow"
	"github.com/aflo-dev/aflo/internal/domain/apperr"
	"github.com/aflo-dev/aflo/internal/domain/entity"
	"github.com/aflo-dev/aflo/internal/domain/task"
)

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

// Mock engine
type mockEngine struct {
	prepareCreateFunc     func(ctx context.Context, caller entity.Caller, req workflow.CreateRequest) error
	prepareTransitionFunc func(ctx context.Context, caller entity.Caller, req workflow.TransitionRequest) error
	prepareDeleteFunc     func(ctx context.Context, caller entity.Caller, ticketID string) error
}

func (m *mockEngine) PrepareCreate(ctx context.Context, caller entity.Caller, req workflow.CreateRequest) error {
	if m.prepareCreateFunc != nil {
		return m.prepareCreateFunc(ctx, caller, req)
	}
	return nil
}

func (m *mockEngine) Create(ctx context.Context, caller entity.Caller, req workflow.CreateRequest) (*entity.Ticket, error) {
	return &entity.Ticket{ID: req.TicketID}, nil
}

func (m *mockEngine) PrepareTransition(ctx context.Context, caller entity.Caller, req workflow.TransitionRequest) error {
	if m.prepareTransitionFunc != nil {
		return m.prepareTransitionFunc(ctx, caller, req)
	}
	return nil
}

func (m *mockEngine) Transition(ctx context.Context, caller entity.Caller, req workflow.TransitionRequest) (*entity.Ticket, error) {
	return &entity.Ticket{ID: req.TicketID}, nil
}

func (m *mockEngine) PrepareDelete(ctx context.Context, caller entity.Caller, ticketID string) error {
	if m.prepareDeleteFunc != nil {
		return m.prepareDeleteFunc(ctx, caller, ticketID)
	}
	return nil
}

func (m *mockEngine) Delete(ctx context.Context, caller entity.Caller, ticketID string) error {
	return nil
}

func (m *mockEngine) Execute(ctx context.Context, t *task.Task) error {
	return nil
}

// Mock ticket repository
type mockTicketRepo struct {
	getTicketFunc       func(ctx context.Context, id string) (*entity.Ticket, error)
	listTicketsFunc     func(ctx context.Context, filter entity.TicketFilter) ([]*entity.Ticket, int64, error)
	listWorkflowsFunc   func(ctx context.Context, ticketIDs ...string) ([]*entity.Workflow, error)
	countByTemplateFunc func(ctx context.Context, templateID string) (int64, error)
}

func (m *mockTicketRepo) GetTicket(ctx context.Context, id string) (*entity.Ticket, error) {
	if m.getTicketFunc != nil {
		return m.getTicketFunc(ctx, id)
	}
	return nil, apperr.NotFound("ticket %s not found", id)
}

func (m *mockTicketRepo) GetActiveWorkflow(ctx context.Context, ticketID string) (*entity.Workflow, error) {
	return nil, apperr.NotFound("active workflow of ticket %s not found", ticketID)
}

func (m *mockTicketRepo) GetWorkflow(ctx context.Context, id string) (*entity.Workflow, error) {
	return nil, apperr.NotFound("workflow %s not found", id)
}

func (m *mockTicketRepo) ListWorkflows(ctx context.Context, ticketIDs ...string) ([]*entity.Workflow, error) {
	if m.listWorkflowsFunc != nil {
		return m.listWorkflowsFunc(ctx, ticketIDs...)
	}
	return nil, nil
}

func (m *mockTicketRepo) ListTickets(ctx context.Context, filter entity.TicketFilter) ([]*entity.Ticket, int64, error) {
	if m.listTicketsFunc != nil {
		return m.listTicketsFunc(ctx, filter)
	}
	return nil, 0, nil
}

func (m *mockTicketRepo) CountByTemplate(ctx context.Context, templateID string) (int64, error) {
	if m.countByTemplateFunc != nil {
		return m.countByTemplateFunc(ctx, templateID)
	}
	return 0, nil
}

func (m *mockTicketRepo) CreateTicket(ctx context.Context, ticket *entity.Ticket, rows []*entity.Workflow) error {
	return nil
}

func (m *mockTicketRepo) SaveTransition(ctx context.Context, patch port.TransitionPatch) error {
	return nil
}

func (m *mockTicketRepo) UpdateActionDetail(ctx context.Context, ticketID string, detail entity.Document) error {
	return nil
}

func (m *mockTicketRepo) SoftDeleteTicketCascade(ctx context.Context, id string) error {
	return nil
}

// Mock task queue
type mockQueue struct {
	tasks []*task.Task
	err   error
}

func (m *mockQueue) Enqueue(ctx context.Context, t *task.Task) error {
	if m.err != nil {
		return m.err
	}
	m.tasks = append(m.tasks, t)
	return nil
}

// Mock pattern repository backed by a map
type mockPatternRepo struct {
	byID    map[string]*entity.WorkflowPattern
	gets    int
	deleted []string
}

func newMockPatternRepo(patterns ...*entity.WorkflowPattern) *mockPatternRepo {
	m := &mockPatternRepo{byID: make(map[string]*entity.WorkflowPattern)}
	for _, p := range patterns {
		m.byID[p.ID] = p
	}
	return m
}

func (m *mockPatternRepo) GetByID(ctx context.Context, id string) (*entity.WorkflowPattern, error) {
	m.gets++
	if p, ok := m.byID[id]; ok {
		return p, nil
	}
	return nil, apperr.NotFound("workflow pattern %s not found", id)
}

func (m *mockPatternRepo) GetByCode(ctx context.Context, code string) (*entity.WorkflowPattern, error) {
	for _, p := range m.byID {
		if p.Code == code {
			return p, nil
		}
	}
	return nil, apperr.NotFound("workflow pattern %s not found", code)
}

func (m *mockPatternRepo) List(ctx context.Context) ([]*entity.WorkflowPattern, error) {
	out := make([]*entity.WorkflowPattern, 0, len(m.byID))
	for _, p := range m.byID {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockPatternRepo) Create(ctx context.Context, pattern *entity.WorkflowPattern) error {
	m.byID[pattern.ID] = pattern
	return nil
}

func (m *mockPatternRepo) SoftDelete(ctx context.Context, id string) error {
	delete(m.byID, id)
	m.deleted = append(m.deleted, id)
	return nil
}

// Mock template repository backed by a map
type mockTemplateRepo struct {
	byID           map[string]*entity.TicketTemplate
	gets           int
	deleted        []string
	countByPattern int64
}

func newMockTemplateRepo(templates ...*entity.TicketTemplate) *mockTemplateRepo {
	m := &mockTemplateRepo{byID: make(map[string]*entity.TicketTemplate)}
	for _, t := range templates {
		m.byID[t.ID] = t
	}
	return m
}

func (m *mockTemplateRepo) GetByID(ctx context.Context, id string) (*entity.TicketTemplate, error) {
	m.gets++
	if t, ok := m.byID[id]; ok {
		return t, nil
	}
	return nil, apperr.NotFound("ticket template %s not found", id)
}

func (m *mockTemplateRepo) List(ctx context.Context) ([]*entity.TicketTemplate, error) {
	out := make([]*entity.TicketTemplate, 0, len(m.byID))
	for _, t := range m.byID {
		out = append(out, t)
	}
	return out, nil
}

func (m *mockTemplateRepo) CountByPattern(ctx context.Context, patternID string) (int64, error) {
	return m.countByPattern, nil
}

func (m *mockTemplateRepo) Create(ctx context.Context, template *entity.TicketTemplate) error {
	m.byID[template.ID] = template
	return nil
}

func (m *mockTemplateRepo) SoftDelete(ctx context.Context, id string) error {
	delete(m.byID, id)
	m.deleted = append(m.deleted, id)
	return nil
}

// Mock cache that stores values as-is
type mockCache struct {
	values  map[string]interface{}
	getErr  error
	deleted []string
}

func newMockCache() *mockCache {
	return &mockCache{values: make(map[string]interface{})}
}

func (m *mockCache) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	if m.getErr != nil {
		return false, m.getErr
	}
	v, ok := m.values[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *entity.WorkflowPattern:
		*d = *v.(*entity.WorkflowPattern)
	case *entity.TicketTemplate:
		*d = *v.(*entity.TicketTemplate)
	}
	return true, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.values[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	m.deleted = append(m.deleted, keys...)
	return nil
}

// Mock resource repository for catalogs
type mockCatalogRepo struct {
	created []*entity.Catalog
	updated []*entity.Catalog
	deleted []string
	filter  port.ResourceFilter
}

func (m *mockCatalogRepo) Get(ctx context.Context, id string) (*entity.Catalog, error) {
	return nil, apperr.NotFound("catalog %s not found", id)
}

func (m *mockCatalogRepo) List(ctx context.Context, filter port.ResourceFilter) ([]*entity.Catalog, int64, error) {
	m.filter = filter
	return nil, 0, nil
}

func (m *mockCatalogRepo) Create(ctx context.Context, record *entity.Catalog) error {
	m.created = append(m.created, record)
	return nil
}

func (m *mockCatalogRepo) Update(ctx context.Context, record *entity.Catalog) error {
	m.updated = append(m.updated, record)
	return nil
}

func (m *mockCatalogRepo) SoftDelete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}
