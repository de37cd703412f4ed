package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aflo-dev/aflo/internal/domain/apperr"
	"github.com/aflo-dev/aflo/internal/domain/task"
	"github.com/aflo-dev/aflo/internal/infrastructure/mq"
)

// Task outcomes reported to the Recorder
const (
	OutcomeDone     = "done"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Engine executes a queued ticket task
type Engine interface {
	Execute(ctx context.Context, t *task.Task) error
}

// Recorder counts executed tasks
type Recorder interface {
	TaskDone(operation, outcome string)
}

// TaskExecutor runs tasks against the engine and records their outcome. Its
// Execute method is both a dispatcher handler and a queue consumer handler.
type TaskExecutor struct {
	engine   Engine
	recorder Recorder
	logger   Logger
}

// NewTaskExecutor creates a new executor. recorder may be nil.
func NewTaskExecutor(engine Engine, recorder Recorder, logger Logger) *TaskExecutor {
	return &TaskExecutor{engine: engine, recorder: recorder, logger: logger}
}

// Execute runs t and returns the engine's error unchanged
func (e *TaskExecutor) Execute(ctx context.Context, t *task.Task) error {
	start := time.Now()
	err := e.engine.Execute(ctx, t)

	outcome := OutcomeDone
	switch {
	case err == nil:
		e.logger.Info("Task executed",
			"task_id", t.ID,
			"operation", t.Operation,
			"ticket_id", t.TicketID,
			"duration", time.Since(start).String())
	case apperr.KindOf(err) != apperr.KindInternal:
		outcome = OutcomeRejected
		e.logger.Info("Task rejected",
			"task_id", t.ID,
			"operation", t.Operation,
			"ticket_id", t.TicketID,
			"reason", err.Error())
	default:
		outcome = OutcomeFailed
		e.logger.Error("Task failed",
			"task_id", t.ID,
			"operation", t.Operation,
			"ticket_id", t.TicketID,
			"error", err)
	}

	if e.recorder != nil {
		e.recorder.TaskDone(t.Operation.String(), outcome)
	}
	return err
}

// TaskSource delivers queued tasks to a handler until its context ends
type TaskSource interface {
	Consume(ctx context.Context, handler mq.Handler) error
	Done() <-chan struct{}
	Close() error
}

// TaskWorker consumes tasks from a source and executes them
type TaskWorker struct {
	source      TaskSource
	executor    *TaskExecutor
	logger      Logger
	stopTimeout time.Duration
}

// NewTaskWorker creates a worker for the given source
func NewTaskWorker(source TaskSource, executor *TaskExecutor, logger Logger) *TaskWorker {
	return &TaskWorker{
		source:      source,
		executor:    executor,
		logger:      logger,
		stopTimeout: 10 * time.Second,
	}
}

// Name returns the worker name
func (w *TaskWorker) Name() string {
	return "task-consumer"
}

// Start begins consuming. Delivery stops when ctx is cancelled.
func (w *TaskWorker) Start(ctx context.Context) error {
	if err := w.source.Consume(ctx, w.executor.Execute); err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	return nil
}

// Stop waits for the in-flight task to finish and releases the source
func (w *TaskWorker) Stop() error {
	var errs []error
	select {
	case <-w.source.Done():
	case <-time.After(w.stopTimeout):
		errs = append(errs, errors.New("timed out waiting for the delivery loop"))
	}
	if err := w.source.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close source: %w", err))
	}
	return errors.Join(errs...)
}
