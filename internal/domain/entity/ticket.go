package entity

import "time"

// Ticket is one workflow instance representing a business request.
type Ticket struct {
	ID               string     `gorm:"type:varchar(64);primaryKey" json:"id"`
	TicketTemplateID string     `gorm:"type:varchar(64);index;not null" json:"ticket_template_id"`
	TicketType       string     `gorm:"type:varchar(64)" json:"ticket_type"`
	TargetID         string     `gorm:"type:varchar(64);index" json:"target_id"`
	TenantID         string     `gorm:"type:varchar(64);index" json:"tenant_id"`
	TenantName       string     `gorm:"type:varchar(255)" json:"tenant_name"`
	OwnerID          string     `gorm:"type:varchar(64);index" json:"owner_id"`
	OwnerName        string     `gorm:"type:varchar(255)" json:"owner_name"`
	OwnerAt          time.Time  `json:"owner_at"`
	StatusCode       string     `gorm:"type:varchar(64);index" json:"status_code"`
	TicketDetail     Document   `json:"ticket_detail"`
	ActionDetail     Document   `json:"action_detail"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	Deleted          bool       `gorm:"not null;default:false;index" json:"deleted"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty"`

	Workflows []Workflow `gorm:"-" json:"workflow,omitempty"`
}

// TableName overrides the gorm table name.
func (Ticket) TableName() string { return "tickets" }

// VisibleTo reports whether c may read the ticket. Admins see every tenant,
// including soft-deleted tickets. Everyone else sees live tickets of their
// own tenant.
func (t *Ticket) VisibleTo(c Caller) bool {
	if c.IsAdmin {
		return true
	}
	return !t.Deleted && t.TenantID == c.TenantID
}

// IsOwnedBy reports whether c created the ticket.
func (t *Ticket) IsOwnedBy(c Caller) bool {
	return t.OwnerID != "" && t.OwnerID == c.UserID
}

// Workflow is one status-visit record of a ticket.
type Workflow struct {
	ID             string     `gorm:"type:varchar(64);primaryKey" json:"id"`
	TicketID       string     `gorm:"type:varchar(64);index;not null" json:"ticket_id"`
	Status         int        `gorm:"not null;default:0" json:"status"`
	StatusCode     string     `gorm:"type:varchar(64);not null" json:"status_code"`
	StatusDetail   Document   `json:"status_detail"`
	TargetRole     string     `gorm:"type:varchar(64)" json:"target_role"`
	ConfirmerID    string     `gorm:"type:varchar(64)" json:"confirmer_id,omitempty"`
	ConfirmerName  string     `gorm:"type:varchar(255)" json:"confirmer_name,omitempty"`
	ConfirmedAt    *time.Time `json:"confirmed_at,omitempty"`
	AdditionalData Document   `json:"additional_data"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	Deleted        bool       `gorm:"not null;default:false;index" json:"deleted"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
}

// TableName overrides the gorm table name.
func (Workflow) TableName() string { return "workflows" }

// IsCurrent reports whether the row is the active status of its ticket.
func (w *Workflow) IsCurrent() bool { return w.Status == WorkflowStatusCurrent }

// IsCandidate reports whether the row is an unreached next status.
func (w *Workflow) IsCandidate() bool { return w.Status == WorkflowStatusFuture }

// Confirm marks the row as passed by confirmer at t.
func (w *Workflow) Confirm(confirmerID, confirmerName string, at time.Time) {
	w.Status = WorkflowStatusConfirmed
	w.ConfirmerID = confirmerID
	w.ConfirmerName = confirmerName
	w.ConfirmedAt = &at
}

// TicketFilter narrows ticket listings. Empty fields do not filter.
type TicketFilter struct {
	TenantID         string
	TicketTemplateID string
	TicketType       string
	StatusCode       string
	TargetID         string
	OwnerID          string
	IncludeDeleted   bool
	Page             Page
}

// Page holds pagination and ordering for list queries.
type Page struct {
	Limit   int
	Offset  int
	SortKey string
	SortDir string
}
