package entity

import (
	"database/sql/driver"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// LocalizedText maps a locale to display text, e.g. {"en": "Applied", "ja": "申請済"}.
type LocalizedText map[string]string

// WorkflowPattern is a reusable graph of statuses and role-gated transitions.
type WorkflowPattern struct {
	ID        string          `gorm:"type:varchar(64);primaryKey" json:"id" yaml:"id"`
	Code      string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"code" yaml:"code"`
	Contents  PatternContents `gorm:"column:wf_pattern_contents" json:"wf_pattern_contents" yaml:"wf_pattern_contents"`
	CreatedAt time.Time       `json:"created_at" yaml:"-"`
	UpdatedAt time.Time       `json:"updated_at" yaml:"-"`
	Deleted   bool            `gorm:"not null;default:false;index" json:"deleted" yaml:"-"`
	DeletedAt *time.Time      `json:"deleted_at,omitempty" yaml:"-"`
}

// TableName overrides the gorm table name.
func (WorkflowPattern) TableName() string { return "workflow_patterns" }

// PatternContents is the ordered status list of a pattern.
type PatternContents struct {
	Name       LocalizedText      `json:"name,omitempty" yaml:"name,omitempty"`
	StatusList []StatusDescriptor `json:"status_list" yaml:"status_list"`
}

// StatusDescriptor declares one status and the edges leaving it.
type StatusDescriptor struct {
	StatusCode string        `json:"status_code" yaml:"status_code"`
	StatusName LocalizedText `json:"status_name,omitempty" yaml:"status_name,omitempty"`
	NextStatus []NextStatus  `json:"next_status" yaml:"next_status"`
}

// NextStatus is an edge to StatusCode that GrantRole may execute.
type NextStatus struct {
	StatusCode     string        `json:"status_code" yaml:"status_code"`
	GrantRole      string        `json:"grant_role" yaml:"grant_role"`
	NextStatusName LocalizedText `json:"next_status_name,omitempty" yaml:"next_status_name,omitempty"`
}

// Status returns the descriptor for code.
func (p PatternContents) Status(code string) (StatusDescriptor, bool) {
	for _, s := range p.StatusList {
		if s.StatusCode == code {
			return s, true
		}
	}
	return StatusDescriptor{}, false
}

// Edge returns the edge from one status to another.
func (p PatternContents) Edge(from, to string) (NextStatus, bool) {
	s, ok := p.Status(from)
	if !ok {
		return NextStatus{}, false
	}
	for _, n := range s.NextStatus {
		if n.StatusCode == to {
			return n, true
		}
	}
	return NextStatus{}, false
}

// IsTerminal reports whether code has no outgoing edges. The error status
// and undeclared codes are terminal.
func (p PatternContents) IsTerminal(code string) bool {
	s, ok := p.Status(code)
	return !ok || len(s.NextStatus) == 0
}

// Snapshot renders the descriptor of code as a document for status_detail.
func (p PatternContents) Snapshot(code string) Document {
	s, ok := p.Status(code)
	if !ok {
		return Document{"status_code": code}
	}
	next := make([]interface{}, 0, len(s.NextStatus))
	for _, n := range s.NextStatus {
		next = append(next, map[string]interface{}{
			"status_code":      n.StatusCode,
			"grant_role":       n.GrantRole,
			"next_status_name": map[string]string(n.NextStatusName),
		})
	}
	return Document{
		"status_code": s.StatusCode,
		"status_name": map[string]string(s.StatusName),
		"next_status": next,
	}
}

// Value implements driver.Valuer.
func (p PatternContents) Value() (driver.Value, error) { return valueJSON(p) }

// Scan implements sql.Scanner.
func (p *PatternContents) Scan(src interface{}) error { return scanJSON(src, p) }

// GormDBDataType picks jsonb on postgres and text elsewhere.
func (PatternContents) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	return jsonColumnType(db)
}
