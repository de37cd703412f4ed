package dispatcher

import (
	"context"
	"errors"

	"github.com/aflo-dev/aflo/internal/domain/task"
)

var (
	// ErrClosed is returned once Close has been called
	ErrClosed = errors.New("dispatcher is closed")

	// ErrNoHandler is returned when no handler is registered for an operation
	ErrNoHandler = errors.New("no handler registered")
)

// Queue adapts a Dispatcher to the task queue port.
type Queue struct {
	dispatcher Dispatcher
	async      bool
}

// NewInlineQueue executes tasks on the enqueuing goroutine and returns their error.
func NewInlineQueue(d Dispatcher) *Queue {
	return &Queue{dispatcher: d}
}

// NewAsyncQueue executes tasks in background goroutines.
func NewAsyncQueue(d Dispatcher) *Queue {
	return &Queue{dispatcher: d, async: true}
}

// Enqueue hands the task to the dispatcher.
func (q *Queue) Enqueue(ctx context.Context, t *task.Task) error {
	if q.async {
		return q.dispatcher.DispatchAsync(ctx, t)
	}
	return q.dispatcher.Dispatch(ctx, t)
}

// Synchronous reports whether Enqueue returns only after the task ran.
func (q *Queue) Synchronous() bool {
	return !q.async
}
