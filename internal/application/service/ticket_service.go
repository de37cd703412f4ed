package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/aflo-dev/aflo/internal/application/port"
	"github.com/aflo-dev/aflo/internal/application/workflow"
	"github.com/aflo-dev/aflo/internal/domain/apperr"
	"github.com/aflo-dev/aflo/internal/domain/entity"
	"github.com/aflo-dev/aflo/internal/domain/task"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// PaginationConfig bounds list queries
type PaginationConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// apply fills in the default limit and clamps to the maximum
func (c PaginationConfig) apply(page entity.Page) entity.Page {
	if page.Limit <= 0 {
		page.Limit = c.DefaultLimit
	}
	if c.MaxLimit > 0 && page.Limit > c.MaxLimit {
		page.Limit = c.MaxLimit
	}
	if page.Offset < 0 {
		page.Offset = 0
	}
	return page
}

// TicketService is the API-facing ticket use case. Reads go straight to the
// record store, writes are checked by the engine and handed to the task queue.
type TicketService interface {
	Get(ctx context.Context, caller entity.Caller, id string) (*entity.Ticket, error)
	List(ctx context.Context, caller entity.Caller, filter entity.TicketFilter) ([]*entity.Ticket, int64, error)
	Create(ctx context.Context, caller entity.Caller, req workflow.CreateRequest) (string, error)
	Transition(ctx context.Context, caller entity.Caller, req workflow.TransitionRequest) error
	Delete(ctx context.Context, caller entity.Caller, id string) error
}

type ticketServiceImpl struct {
	engine     workflow.Engine
	tickets    port.TicketRepository
	queue      port.TaskQueue
	pagination PaginationConfig
	logger     Logger
}

// NewTicketService creates a new TicketService
func NewTicketService(
	engine workflow.Engine,
	tickets port.TicketRepository,
	queue port.TaskQueue,
	pagination PaginationConfig,
	logger Logger,
) TicketService {
	return &ticketServiceImpl{
		engine:     engine,
		tickets:    tickets,
		queue:      queue,
		pagination: pagination,
		logger:     logger,
	}
}

// Get returns a visible ticket with its live workflow rows
func (s *ticketServiceImpl) Get(ctx context.Context, caller entity.Caller, id string) (*entity.Ticket, error) {
	ticket, err := s.tickets.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ticket.VisibleTo(caller) {
		return nil, apperr.NotFound("ticket %s not found", id)
	}
	if err := s.attachWorkflows(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// List returns one page of visible tickets. Non-admin callers are pinned to
// their own tenant and never see deleted tickets.
func (s *ticketServiceImpl) List(ctx context.Context, caller entity.Caller, filter entity.TicketFilter) ([]*entity.Ticket, int64, error) {
	if !caller.IsAdmin {
		filter.TenantID = caller.TenantID
		filter.IncludeDeleted = false
	}
	filter.Page = s.pagination.apply(filter.Page)

	tickets, total, err := s.tickets.ListTickets(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	if err := s.attachWorkflows(ctx, tickets...); err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

// Create checks the request and queues the write. The ticket ID is assigned
// here so the client can poll it whatever the queue mode.
func (s *ticketServiceImpl) Create(ctx context.Context, caller entity.Caller, req workflow.CreateRequest) (string, error) {
	if req.TicketID == "" {
		req.TicketID = uuid.NewString()
	}
	if err := s.engine.PrepareCreate(ctx, caller, req); err != nil {
		return "", err
	}
	if err := s.enqueue(ctx, task.NewTask(task.OperationCreate, req.TicketID, caller, req.Payload())); err != nil {
		return "", err
	}
	return req.TicketID, nil
}

// Transition checks the request and queues the write
func (s *ticketServiceImpl) Transition(ctx context.Context, caller entity.Caller, req workflow.TransitionRequest) error {
	if err := s.engine.PrepareTransition(ctx, caller, req); err != nil {
		return err
	}
	return s.enqueue(ctx, task.NewTask(task.OperationUpdate, req.TicketID, caller, req.Payload()))
}

// Delete checks the request and queues the soft delete
func (s *ticketServiceImpl) Delete(ctx context.Context, caller entity.Caller, id string) error {
	if err := s.engine.PrepareDelete(ctx, caller, id); err != nil {
		return err
	}
	return s.enqueue(ctx, task.NewTask(task.OperationDelete, id, caller, entity.Document{}))
}

func (s *ticketServiceImpl) enqueue(ctx context.Context, t *task.Task) error {
	if err := s.queue.Enqueue(ctx, t); err != nil {
		// Inline queues return the engine's own error, which is already classified.
		if apperr.KindOf(err) != apperr.KindInternal {
			return err
		}
		s.logger.Error("Failed to enqueue task", "task_id", t.ID, "operation", t.Operation, "ticket_id", t.TicketID, "error", err)
		return fmt.Errorf("enqueue %s task: %w", t.Operation, err)
	}
	s.logger.Info("Task enqueued", "task_id", t.ID, "operation", t.Operation, "ticket_id", t.TicketID)
	return nil
}

// attachWorkflows loads the rows of all tickets in one query
func (s *ticketServiceImpl) attachWorkflows(ctx context.Context, tickets ...*entity.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	ids := make([]string, 0, len(tickets))
	for _, t := range tickets {
		ids = append(ids, t.ID)
	}
	rows, err := s.tickets.ListWorkflows(ctx, ids...)
	if err != nil {
		return err
	}
	byTicket := make(map[string][]entity.Workflow, len(tickets))
	for _, w := range rows {
		byTicket[w.TicketID] = append(byTicket[w.TicketID], *w)
	}
	for _, t := range tickets {
		t.Workflows = byTicket[t.ID]
	}
	return nil
}
