// Package workflow implements the ticket status-transition engine.
package workflow

import (
	"context"

	"github.com/aflo-dev/aflo/internal/domain/entity"
	"github.com/aflo-dev/aflo/internal/domain/task"
)

// Engine validates and applies ticket writes.
//
// The Prepare methods run the checks that need no writes (load, visibility,
// conflict, edge, role) so the API can reject a request before queueing it.
// The write methods repeat those checks, run the hooks and persist.
type Engine interface {
	PrepareCreate(ctx context.Context, caller entity.Caller, req CreateRequest) error
	Create(ctx context.Context, caller entity.Caller, req CreateRequest) (*entity.Ticket, error)

	PrepareTransition(ctx context.Context, caller entity.Caller, req TransitionRequest) error
	Transition(ctx context.Context, caller entity.Caller, req TransitionRequest) (*entity.Ticket, error)

	PrepareDelete(ctx context.Context, caller entity.Caller, ticketID string) error
	Delete(ctx context.Context, caller entity.Caller, ticketID string) error

	// Execute runs a queued task. Replays of already-applied tasks succeed
	// without writing.
	Execute(ctx context.Context, t *task.Task) error
}

// Config is the engine's explicit configuration.
type Config struct {
	// ErrorStatusCode is the status a ticket enters when an after-hook fails.
	ErrorStatusCode string
	// SystemUserID and SystemUserName confirm rows the engine closes itself.
	SystemUserID   string
	SystemUserName string
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		ErrorStatusCode: entity.StatusCodeError,
		SystemUserID:    "system",
		SystemUserName:  "system",
	}
}

// CreateRequest creates a ticket in its template's first status.
type CreateRequest struct {
	TicketID         string
	TicketTemplateID string
	StatusCode       string
	TargetID         string
	TicketDetail     entity.Document
}

// TransitionRequest moves a ticket along one pattern edge.
type TransitionRequest struct {
	TicketID       string
	LastStatusCode string
	LastWorkflowID string
	NextStatusCode string
	NextWorkflowID string
	AdditionalData entity.Document
}

// Recorder observes engine outcomes.
type Recorder interface {
	TransitionDone(operation, result string)
	HookFailed(timing, brokerClass string)
}

// Transition outcomes reported to the Recorder.
const (
	ResultSuccess     = "success"
	ResultRejected    = "rejected"
	ResultCompensated = "compensated"
	ResultFailed      = "failed"
)

// CreateRequestFromTask decodes a create task payload.
func CreateRequestFromTask(t *task.Task) CreateRequest {
	return CreateRequest{
		TicketID:         t.TicketID,
		TicketTemplateID: t.Payload.GetString(task.KeyTicketTemplateID),
		StatusCode:       t.Payload.GetString(task.KeyStatusCode),
		TargetID:         t.Payload.GetString(task.KeyTargetID),
		TicketDetail:     t.Document(task.KeyTicketDetail),
	}
}

// TransitionRequestFromTask decodes an update task payload.
func TransitionRequestFromTask(t *task.Task) TransitionRequest {
	return TransitionRequest{
		TicketID:       t.TicketID,
		LastStatusCode: t.Payload.GetString(task.KeyLastStatusCode),
		LastWorkflowID: t.Payload.GetString(task.KeyLastWorkflowID),
		NextStatusCode: t.Payload.GetString(task.KeyNextStatusCode),
		NextWorkflowID: t.Payload.GetString(task.KeyNextWorkflowID),
		AdditionalData: t.Document(task.KeyAdditionalData),
	}
}

// Payload encodes the request for a create task.
func (r CreateRequest) Payload() entity.Document {
	return entity.Document{
		task.KeyTicketTemplateID: r.TicketTemplateID,
		task.KeyStatusCode:       r.StatusCode,
		task.KeyTargetID:         r.TargetID,
		task.KeyTicketDetail:     map[string]interface{}(r.TicketDetail),
	}
}

// Payload encodes the request for an update task.
func (r TransitionRequest) Payload() entity.Document {
	return entity.Document{
		task.KeyLastStatusCode: r.LastStatusCode,
		task.KeyLastWorkflowID: r.LastWorkflowID,
		task.KeyNextStatusCode: r.NextStatusCode,
		task.KeyNextWorkflowID: r.NextWorkflowID,
		task.KeyAdditionalData: map[string]interface{}(r.AdditionalData),
	}
}
