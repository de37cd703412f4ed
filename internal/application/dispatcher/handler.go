package dispatcher

import (
	"context"

	"github.com/aflo-dev/aflo/internal/domain/task"
)

// Handler executes a ticket task
type Handler func(ctx context.Context, t *task.Task) error

// HandlerInfo describes a registered handler
type HandlerInfo struct {
	Name      string
	Operation task.Operation
	Handler   Handler
}
