// Package notification renders named message templates and delivers them
// through a MessageSender.
package notification

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"text/template"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/aflo-dev/aflo/internal/application/port"
	"github.com/aflo-dev/aflo/internal/domain/entity"
)

// MessageTemplate is a subject and body pair in text/template syntax
type MessageTemplate struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

// LoadTemplates reads a YAML map of template name to subject and body
func LoadTemplates(path string) (map[string]MessageTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read templates file: %w", err)
	}
	var templates map[string]MessageTemplate
	if err := yaml.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("failed to unmarshal templates: %w", err)
	}
	return templates, nil
}

// DefaultTemplates are registered by NewMailer
var DefaultTemplates = map[string]MessageTemplate{
	"ticket_status_changed": {
		Subject: "[{{.ticket_type}}] {{.ticket_id}} is now {{.to_status}}",
		Body: "Ticket {{.ticket_id}} moved from {{.from_status}} to {{.to_status}}" +
			"{{with .operator}} by {{.}}{{end}}.",
	},
	"ticket_error": {
		Subject: "[{{.ticket_type}}] {{.ticket_id}} needs attention",
		Body:    "Ticket {{.ticket_id}} entered the error status: {{.message}}",
	},
}

type compiled struct {
	subject *template.Template
	body    *template.Template
}

// Mailer implements port.Mailer
type Mailer struct {
	sender    port.MessageSender
	templates map[string]compiled
	logger    *zap.Logger
}

// NewMailer compiles the default templates plus extra. Entries in extra
// replace defaults of the same name.
func NewMailer(sender port.MessageSender, extra map[string]MessageTemplate, logger *zap.Logger) (*Mailer, error) {
	m := &Mailer{
		sender:    sender,
		templates: make(map[string]compiled),
		logger:    logger,
	}
	for name, t := range DefaultTemplates {
		if err := m.Register(name, t); err != nil {
			return nil, err
		}
	}
	for name, t := range extra {
		if err := m.Register(name, t); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Register compiles and adds a template
func (m *Mailer) Register(name string, t MessageTemplate) error {
	subject, err := template.New(name + ".subject").Option("missingkey=zero").Parse(t.Subject)
	if err != nil {
		return fmt.Errorf("parse subject of %s: %w", name, err)
	}
	body, err := template.New(name + ".body").Option("missingkey=zero").Parse(t.Body)
	if err != nil {
		return fmt.Errorf("parse body of %s: %w", name, err)
	}
	m.templates[name] = compiled{subject: subject, body: body}
	return nil
}

// Sendmail renders name with data and sends it to to. It never fails the
// caller, every problem is logged.
func (m *Mailer) Sendmail(ctx context.Context, to string, name string, data entity.Document) {
	subject, body, err := m.Render(name, data)
	if err != nil {
		m.logger.Error("Failed to render notification",
			zap.String("template", name),
			zap.String("to", to),
			zap.Error(err))
		return
	}
	if err := m.sender.SendMessage(ctx, to, subject, body); err != nil {
		m.logger.Error("Failed to send notification",
			zap.String("template", name),
			zap.String("to", to),
			zap.Error(err))
		return
	}
	m.logger.Debug("Notification sent", zap.String("template", name), zap.String("to", to))
}

// Render executes a template
func (m *Mailer) Render(name string, data entity.Document) (string, string, error) {
	t, ok := m.templates[name]
	if !ok {
		return "", "", fmt.Errorf("unknown template %q", name)
	}
	values := map[string]interface{}(data)
	var subject, body bytes.Buffer
	if err := t.subject.Execute(&subject, values); err != nil {
		return "", "", fmt.Errorf("render subject of %s: %w", name, err)
	}
	if err := t.body.Execute(&body, values); err != nil {
		return "", "", fmt.Errorf("render body of %s: %w", name, err)
	}
	return subject.String(), body.String(), nil
}

// LogSender writes messages to the log. It is the sender when no Lark app
// is configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a LogSender
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// SendMessage logs the message
func (s *LogSender) SendMessage(ctx context.Context, to string, subject string, body string) error {
	s.logger.Info("Notification",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body))
	return nil
}

var (
	_ port.Mailer        = (*Mailer)(nil)
	_ port.MessageSender = (*LogSender)(nil)
)
