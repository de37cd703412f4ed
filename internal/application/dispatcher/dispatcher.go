// Package dispatcher routes ticket tasks to the handlers registered for their
// operation, either on the caller's goroutine or in the background.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/aflo-dev/aflo/internal/domain/task"
)

// Dispatcher routes tasks to registered handlers
type Dispatcher interface {
	// Subscribe registers a handler for an operation under a generated name
	Subscribe(op task.Operation, handler Handler)

	// SubscribeNamed registers a handler with a name
	SubscribeNamed(op task.Operation, name string, handler Handler)

	// Unsubscribe removes a handler by name
	Unsubscribe(op task.Operation, name string)

	// Dispatch runs every handler in registration order and returns the first error
	Dispatch(ctx context.Context, t *task.Task) error

	// DispatchAsync runs the handlers in the background
	DispatchAsync(ctx context.Context, t *task.Task) error

	// ListHandlers returns the handlers registered for an operation
	ListHandlers(op task.Operation) []HandlerInfo

	// Pending returns the number of background handlers still running
	Pending() int64

	// Close rejects new tasks and waits for background handlers
	Close() error
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type taskDispatcher struct {
	mu       sync.RWMutex
	handlers map[task.Operation][]HandlerInfo
	logger   Logger

	// closeMu orders wg.Add against Close's Wait
	closeMu sync.Mutex
	wg      sync.WaitGroup
	pending atomic.Int64
	closed  atomic.Bool
}

// Option configures the dispatcher
type Option func(*taskDispatcher)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *taskDispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a new task dispatcher
func NewDispatcher(opts ...Option) Dispatcher {
	d := &taskDispatcher{
		handlers: make(map[task.Operation][]HandlerInfo),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

func (d *taskDispatcher) Subscribe(op task.Operation, handler Handler) {
	d.mu.RLock()
	name := fmt.Sprintf("%s-handler-%d", op, len(d.handlers[op]))
	d.mu.RUnlock()
	d.SubscribeNamed(op, name, handler)
}

func (d *taskDispatcher) SubscribeNamed(op task.Operation, name string, handler Handler) {
	d.mu.Lock()
	d.handlers[op] = append(d.handlers[op], HandlerInfo{
		Name:      name,
		Operation: op,
		Handler:   handler,
	})
	d.mu.Unlock()

	d.logInfo("Handler registered", "operation", op, "handler_name", name)
}

func (d *taskDispatcher) Unsubscribe(op task.Operation, name string) {
	d.mu.Lock()
	handlers := d.handlers[op]
	filtered := make([]HandlerInfo, 0, len(handlers))
	for _, h := range handlers {
		if h.Name != name {
			filtered = append(filtered, h)
		}
	}
	d.handlers[op] = filtered
	d.mu.Unlock()

	d.logInfo("Handler unregistered", "operation", op, "handler_name", name)
}

func (d *taskDispatcher) Dispatch(ctx context.Context, t *task.Task) error {
	if d.closed.Load() {
		return ErrClosed
	}

	handlers := d.snapshot(t.Operation)
	if len(handlers) == 0 {
		return fmt.Errorf("%w: %s", ErrNoHandler, t.Operation)
	}

	d.logInfo("Dispatching task",
		"operation", t.Operation,
		"task_id", t.ID,
		"ticket_id", t.TicketID,
		"handler_count", len(handlers),
	)

	for _, info := range handlers {
		if err := d.safeExecute(ctx, t, info); err != nil {
			d.logError("Handler error",
				"operation", t.Operation,
				"task_id", t.ID,
				"handler_name", info.Name,
				"error", err,
			)
			return fmt.Errorf("handler %s failed: %w", info.Name, err)
		}
	}

	return nil
}

func (d *taskDispatcher) DispatchAsync(ctx context.Context, t *task.Task) error {
	handlers := d.snapshot(t.Operation)

	d.closeMu.Lock()
	if d.closed.Load() {
		d.closeMu.Unlock()
		d.logError("Cannot dispatch async task, dispatcher is closed",
			"operation", t.Operation,
			"task_id", t.ID,
		)
		return ErrClosed
	}
	if len(handlers) == 0 {
		d.closeMu.Unlock()
		return fmt.Errorf("%w: %s", ErrNoHandler, t.Operation)
	}
	d.wg.Add(1)
	d.pending.Add(1)
	d.closeMu.Unlock()

	d.logInfo("Dispatching task asynchronously",
		"operation", t.Operation,
		"task_id", t.ID,
		"ticket_id", t.TicketID,
	)

	// Handlers of one task keep their order; the caller's cancellation does
	// not reach them.
	bg := context.WithoutCancel(ctx)
	go func() {
		defer d.wg.Done()
		defer d.pending.Add(-1)

		for _, info := range handlers {
			if err := d.safeExecute(bg, t, info); err != nil {
				d.logError("Async handler error",
					"operation", t.Operation,
					"task_id", t.ID,
					"handler_name", info.Name,
					"error", err,
				)
				return
			}
		}
	}()

	return nil
}

func (d *taskDispatcher) ListHandlers(op task.Operation) []HandlerInfo {
	handlers := d.snapshot(op)
	result := make([]HandlerInfo, len(handlers))
	for i, h := range handlers {
		result[i] = HandlerInfo{Name: h.Name, Operation: h.Operation}
	}
	return result
}

func (d *taskDispatcher) Pending() int64 {
	return d.pending.Load()
}

func (d *taskDispatcher) Close() error {
	d.closeMu.Lock()
	if !d.closed.CompareAndSwap(false, true) {
		d.closeMu.Unlock()
		return fmt.Errorf("dispatcher already closed")
	}
	d.closeMu.Unlock()

	d.logInfo("Closing dispatcher, waiting for async handlers", "pending", d.pending.Load())
	d.wg.Wait()
	d.logInfo("Dispatcher closed")

	return nil
}

func (d *taskDispatcher) snapshot(op task.Operation) []HandlerInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]HandlerInfo(nil), d.handlers[op]...)
}

// safeExecute runs a handler with panic recovery
func (d *taskDispatcher) safeExecute(ctx context.Context, t *task.Task, info HandlerInfo) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
			d.logError("Handler panic recovered",
				"operation", t.Operation,
				"task_id", t.ID,
				"handler_name", info.Name,
				"panic", r,
			)
		}
	}()

	return info.Handler(ctx, t)
}

func (d *taskDispatcher) logInfo(msg string, keysAndValues ...interface{}) {
	if d.logger != nil {
		d.logger.Info(msg, keysAndValues...)
	}
}

func (d *taskDispatcher) logError(msg string, keysAndValues ...interface{}) {
	if d.logger != nil {
		d.logger.Error(msg, keysAndValues...)
	}
}
