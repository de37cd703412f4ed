package port

import (
	"context"
	"time"

	"github.com/aflo-dev/aflo/internal/domain/entity"
)

// TransactionManager runs fn inside one database transaction carried by ctx.
// Nested calls join the outer transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// WorkflowConfirmation moves a current row to confirmed.
type WorkflowConfirmation struct {
	ID             string
	ConfirmerID    string
	ConfirmerName  string
	ConfirmedAt    time.Time
	AdditionalData entity.Document
}

// TransitionPatch is one atomic ticket write.
//
// The ticket's status_code must still equal ExpectedStatusCode, the confirmed
// row must still be current and the activated row must still be a candidate.
// Any mismatch is a lost update and fails with Conflict without writing.
// Every remaining candidate row of the ticket is soft-deleted before Insert
// rows are added.
type TransitionPatch struct {
	TicketID           string
	ExpectedStatusCode string
	StatusCode         string
	ActionDetail       entity.Document
	Confirm            *WorkflowConfirmation
	Activate           *entity.Workflow
	Insert             []*entity.Workflow
}

// TicketRepository is the record store of tickets and their workflow rows.
type TicketRepository interface {
	// GetTicket returns the ticket, soft-deleted or not. NotFound if absent.
	GetTicket(ctx context.Context, id string) (*entity.Ticket, error)
	// GetActiveWorkflow returns the status=1 row. NotFound if the ticket is terminal.
	GetActiveWorkflow(ctx context.Context, ticketID string) (*entity.Workflow, error)
	GetWorkflow(ctx context.Context, id string) (*entity.Workflow, error)
	// ListWorkflows returns live rows of the tickets ordered by creation.
	ListWorkflows(ctx context.Context, ticketIDs ...string) ([]*entity.Workflow, error)
	ListTickets(ctx context.Context, filter entity.TicketFilter) ([]*entity.Ticket, int64, error)
	CountByTemplate(ctx context.Context, templateID string) (int64, error)

	CreateTicket(ctx context.Context, ticket *entity.Ticket, rows []*entity.Workflow) error
	SaveTransition(ctx context.Context, patch TransitionPatch) error
	UpdateActionDetail(ctx context.Context, ticketID string, detail entity.Document) error
	SoftDeleteTicketCascade(ctx context.Context, id string) error
}

// PatternRepository persists workflow patterns. Reads skip soft-deleted rows.
type PatternRepository interface {
	GetByID(ctx context.Context, id string) (*entity.WorkflowPattern, error)
	GetByCode(ctx context.Context, code string) (*entity.WorkflowPattern, error)
	List(ctx context.Context) ([]*entity.WorkflowPattern, error)
	Create(ctx context.Context, pattern *entity.WorkflowPattern) error
	SoftDelete(ctx context.Context, id string) error
}

// TemplateRepository persists ticket templates. Reads skip soft-deleted rows.
type TemplateRepository interface {
	GetByID(ctx context.Context, id string) (*entity.TicketTemplate, error)
	List(ctx context.Context) ([]*entity.TicketTemplate, error)
	CountByPattern(ctx context.Context, patternID string) (int64, error)
	Create(ctx context.Context, template *entity.TicketTemplate) error
	SoftDelete(ctx context.Context, id string) error
}

// ResourceFilter narrows business-record listings by exact column match.
type ResourceFilter struct {
	Equals map[string]string
	Page   entity.Page
}

// ResourceRepository is the generic record access used by CRUD controllers and brokers.
type ResourceRepository[T any] interface {
	Get(ctx context.Context, id string) (*T, error)
	List(ctx context.Context, filter ResourceFilter) ([]*T, int64, error)
	Create(ctx context.Context, record *T) error
	Update(ctx context.Context, record *T) error
	SoftDelete(ctx context.Context, id string) error
}
