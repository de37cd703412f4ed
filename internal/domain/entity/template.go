package entity

import (
	"database/sql/driver"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// TicketTemplate binds a workflow pattern to validation rules and broker hooks
// for one ticket type.
type TicketTemplate struct {
	ID                string           `gorm:"type:varchar(64);primaryKey" json:"id" yaml:"id"`
	WorkflowPatternID string           `gorm:"type:varchar(64);index;not null" json:"workflow_pattern_id" yaml:"workflow_pattern_id"`
	TicketType        string           `gorm:"type:varchar(64);index" json:"ticket_type" yaml:"ticket_type"`
	Contents          TemplateContents `gorm:"column:template_contents" json:"template_contents" yaml:"template_contents"`
	CreatedAt         time.Time        `json:"created_at" yaml:"-"`
	UpdatedAt         time.Time        `json:"updated_at" yaml:"-"`
	Deleted           bool             `gorm:"not null;default:false;index" json:"deleted" yaml:"-"`
	DeletedAt         *time.Time       `json:"deleted_at,omitempty" yaml:"-"`
}

// TableName overrides the gorm table name.
func (TicketTemplate) TableName() string { return "ticket_templates" }

// TemplateContents is the structured body of a template.
type TemplateContents struct {
	TicketTemplateName LocalizedText `json:"ticket_template_name,omitempty" yaml:"ticket_template_name,omitempty"`
	FirstStatusCode    string        `json:"first_status_code" yaml:"first_status_code"`
	Create             ActionSchema  `json:"create" yaml:"create"`
	Update             ActionSchema  `json:"update" yaml:"update"`
	Action             ActionMap     `json:"action" yaml:"action"`
}

// Schema returns the parameter schema of operation.
func (c TemplateContents) Schema(operation string) []ParamDescriptor {
	if operation == OperationCreate {
		return c.Create.Parameters
	}
	return c.Update.Parameters
}

// ActionSchema holds the ordered parameter descriptors of one action.
type ActionSchema struct {
	Parameters []ParamDescriptor `json:"parameters" yaml:"parameters"`
}

// ParamDescriptor declares one field of ticket_detail.
type ParamDescriptor struct {
	Name      string        `json:"name" yaml:"name"`
	Key       string        `json:"key,omitempty" yaml:"key,omitempty"`
	Type      string        `json:"type" yaml:"type"`
	Required  bool          `json:"required" yaml:"required"`
	MinLength *int          `json:"min_length,omitempty" yaml:"min_length,omitempty"`
	MaxLength *int          `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	Min       *float64      `json:"min,omitempty" yaml:"min,omitempty"`
	Max       *float64      `json:"max,omitempty" yaml:"max,omitempty"`
	Pattern   string        `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Choices   []interface{} `json:"choices,omitempty" yaml:"choices,omitempty"`
	Label     LocalizedText `json:"label,omitempty" yaml:"label,omitempty"`
}

// FieldName returns the detail key the descriptor validates.
func (p ParamDescriptor) FieldName() string {
	if p.Key != "" {
		return p.Key
	}
	return p.Name
}

// HookDescriptor names one broker method to run at a transition.
type HookDescriptor struct {
	BrokerClass  string `json:"broker_class" yaml:"broker_class"`
	BrokerMethod string `json:"broker_method" yaml:"broker_method"`
	Validation   bool   `json:"validation" yaml:"validation"`
}

// ActionMap maps timing, then the status being entered, to ordered hooks.
type ActionMap map[string]map[string][]HookDescriptor

// Hooks returns the ordered hooks for timing and the entered status.
func (a ActionMap) Hooks(timing, statusCode string) []HookDescriptor {
	if a == nil {
		return nil
	}
	return a[timing][statusCode]
}

// BrokerClasses returns every broker class the map references.
func (a ActionMap) BrokerClasses() []string {
	seen := make(map[string]bool)
	var out []string
	for _, byStatus := range a {
		for _, hooks := range byStatus {
			for _, h := range hooks {
				if !seen[h.BrokerClass] {
					seen[h.BrokerClass] = true
					out = append(out, h.BrokerClass)
				}
			}
		}
	}
	return out
}

// Value implements driver.Valuer.
func (c TemplateContents) Value() (driver.Value, error) { return valueJSON(c) }

// Scan implements sql.Scanner.
func (c *TemplateContents) Scan(src interface{}) error { return scanJSON(src, c) }

// GormDBDataType picks jsonb on postgres and text elsewhere.
func (TemplateContents) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	return jsonColumnType(db)
}
