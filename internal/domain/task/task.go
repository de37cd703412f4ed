// Package task defines the unit of work handed from the API to the
// ticket write path, whether it runs inline, in-process or over a broker.
package task

import (
	"time"

	"github.com/google/uuid"

	"github.com/aflo-dev/aflo/internal/domain/entity"
)

// Operation identifies the ticket write a task performs
type Operation string

const (
	OperationCreate Operation = entity.OperationCreate
	OperationUpdate Operation = entity.OperationUpdate
	OperationDelete Operation = entity.OperationDelete
)

// String returns the string representation of the operation
func (o Operation) String() string {
	return string(o)
}

// IsValid checks if the operation is one of the defined constants
func (o Operation) IsValid() bool {
	switch o {
	case OperationCreate, OperationUpdate, OperationDelete:
		return true
	default:
		return false
	}
}

// Task is one ticket write awaiting execution
type Task struct {
	ID            string          `json:"id"`
	Operation     Operation       `json:"operation"`
	TicketID      string          `json:"ticket_id"`
	Caller        entity.Caller   `json:"caller"`
	Payload       entity.Document `json:"payload"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
}

// NewTask creates a task with a generated ID and timestamp
func NewTask(op Operation, ticketID string, caller entity.Caller, payload entity.Document) *Task {
	id := uuid.NewString()
	return &Task{
		ID:            id,
		Operation:     op,
		TicketID:      ticketID,
		Caller:        caller,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: id,
	}
}

// WithCorrelation returns a copy linked to an existing correlation chain
func (t *Task) WithCorrelation(correlationID string) *Task {
	cp := *t
	cp.CorrelationID = correlationID
	return &cp
}

// Payload keys understood by the ticket write path
const (
	KeyTicketTemplateID = "ticket_template_id"
	KeyStatusCode       = "status_code"
	KeyTicketDetail     = "ticket_detail"
	KeyTargetID         = "target_id"
	KeyLastStatusCode   = "last_status_code"
	KeyLastWorkflowID   = "last_workflow_id"
	KeyNextStatusCode   = "next_status_code"
	KeyNextWorkflowID   = "next_workflow_id"
	KeyAdditionalData   = "additional_data"
)

// Document returns the nested object stored under key, or nil.
func (t *Task) Document(key string) entity.Document {
	switch v := t.Payload[key].(type) {
	case entity.Document:
		return v
	case map[string]interface{}:
		return entity.Document(v)
	}
	return nil
}
