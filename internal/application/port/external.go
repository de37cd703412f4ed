package port

import (
	"context"

	"github.com/aflo-dev/aflo/internal/domain/entity"
	"github.com/aflo-dev/aflo/internal/domain/task"
)

// Mailer renders a named template and delivers it. Failures are logged by
// the implementation and never returned.
type Mailer interface {
	Sendmail(ctx context.Context, to string, template string, data entity.Document)
}

// MessageSender delivers a rendered message to one recipient.
type MessageSender interface {
	SendMessage(ctx context.Context, to string, subject string, body string) error
}

// TaskQueue accepts ticket writes for at-least-once execution.
type TaskQueue interface {
	Enqueue(ctx context.Context, t *task.Task) error
}
