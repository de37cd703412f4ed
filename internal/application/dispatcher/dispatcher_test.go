package dispatcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aflo-dev/aflo/internal/domain/entity"
	"github.com/aflo-dev/aflo/internal/domain/task"
)

// mockLogger implements Logger for testing
type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, _ ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, _ ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func (m *mockLogger) HasError(msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.errors {
		if e == msg {
			return true
		}
	}
	return false
}

func newTask(op task.Operation) *task.Task {
	return task.NewTask(op, "ticket-1", entity.Caller{UserID: "u1"}, entity.Document{})
}

func TestDispatch_RunsHandlersInOrder(t *testing.T) {
	d := NewDispatcher()
	var order []string

	d.SubscribeNamed(task.OperationUpdate, "first", func(ctx context.Context, tk *task.Task) error {
		order = append(order, "first")
		return nil
	})
	d.SubscribeNamed(task.OperationUpdate, "second", func(ctx context.Context, tk *task.Task) error {
		order = append(order, "second")
		return nil
	})

	if err := d.Dispatch(context.Background(), newTask(task.OperationUpdate)); err != nil {
		t.Fatalf("Dispatch() failed: %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("handlers ran in order %v, want [first second]", order)
	}
}

func TestDispatch_StopsAtFirstError(t *testing.T) {
	d := NewDispatcher()
	boom := errors.New("boom")
	var secondRan bool

	d.SubscribeNamed(task.OperationCreate, "failing", func(ctx context.Context, tk *task.Task) error {
		return boom
	})
	d.SubscribeNamed(task.OperationCreate, "never", func(ctx context.Context, tk *task.Task) error {
		secondRan = true
		return nil
	})

	err := d.Dispatch(context.Background(), newTask(task.OperationCreate))
	if !errors.Is(err, boom) {
		t.Fatalf("Dispatch() error = %v, want %v", err, boom)
	}
	if secondRan {
		t.Error("handler after a failure should not run")
	}
}

func TestDispatch_NoHandler(t *testing.T) {
	d := NewDispatcher()

	err := d.Dispatch(context.Background(), newTask(task.OperationDelete))
	if !errors.Is(err, ErrNoHandler) {
		t.Errorf("Dispatch() error = %v, want %v", err, ErrNoHandler)
	}
}

func TestDispatch_RecoversPanic(t *testing.T) {
	logger := &mockLogger{}
	d := NewDispatcher(WithLogger(logger))
	d.Subscribe(task.OperationUpdate, func(ctx context.Context, tk *task.Task) error {
		panic("kaboom")
	})

	err := d.Dispatch(context.Background(), newTask(task.OperationUpdate))
	if err == nil {
		t.Fatal("Dispatch() should return an error when a handler panics")
	}
	if !logger.HasError("Handler panic recovered") {
		t.Error("panic should be logged")
	}
}

func TestUnsubscribe(t *testing.T) {
	d := NewDispatcher()
	d.SubscribeNamed(task.OperationUpdate, "keep", func(ctx context.Context, tk *task.Task) error { return nil })
	d.SubscribeNamed(task.OperationUpdate, "drop", func(ctx context.Context, tk *task.Task) error { return nil })

	d.Unsubscribe(task.OperationUpdate, "drop")

	handlers := d.ListHandlers(task.OperationUpdate)
	if len(handlers) != 1 || handlers[0].Name != "keep" {
		t.Errorf("ListHandlers() = %v, want only keep", handlers)
	}
	if handlers[0].Handler != nil {
		t.Error("ListHandlers() should not expose handler functions")
	}
}

func TestDispatchAsync_CloseWaitsForHandlers(t *testing.T) {
	d := NewDispatcher()
	var done atomic.Bool
	release := make(chan struct{})

	d.Subscribe(task.OperationCreate, func(ctx context.Context, tk *task.Task) error {
		<-release
		done.Store(true)
		return nil
	})

	if err := d.DispatchAsync(context.Background(), newTask(task.OperationCreate)); err != nil {
		t.Fatalf("DispatchAsync() failed: %v", err)
	}
	if d.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", d.Pending())
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()

	if err := d.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if !done.Load() {
		t.Error("Close() returned before the async handler finished")
	}
	if d.Pending() != 0 {
		t.Errorf("Pending() = %d after Close, want 0", d.Pending())
	}
}

func TestDispatchAsync_RacingClose(t *testing.T) {
	d := NewDispatcher()
	var ran atomic.Int64
	d.Subscribe(task.OperationUpdate, func(ctx context.Context, tk *task.Task) error {
		time.Sleep(time.Millisecond)
		ran.Add(1)
		return nil
	})

	var accepted atomic.Int64
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := d.DispatchAsync(context.Background(), newTask(task.OperationUpdate))
			switch {
			case err == nil:
				accepted.Add(1)
			case !errors.Is(err, ErrClosed):
				t.Errorf("DispatchAsync() error = %v, want nil or %v", err, ErrClosed)
			}
		}()
	}

	close(start)
	if err := d.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	// Everything accepted before Close must have finished when it returns.
	ranAtClose := ran.Load()
	wg.Wait()

	if ranAtClose != accepted.Load() {
		t.Errorf("handlers finished at Close = %d, accepted = %d", ranAtClose, accepted.Load())
	}
}

func TestDispatchAsync_SurvivesCallerCancellation(t *testing.T) {
	d := NewDispatcher()
	result := make(chan error, 1)

	d.Subscribe(task.OperationUpdate, func(ctx context.Context, tk *task.Task) error {
		result <- ctx.Err()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := d.DispatchAsync(ctx, newTask(task.OperationUpdate)); err != nil {
		t.Fatalf("DispatchAsync() failed: %v", err)
	}
	if err := <-result; err != nil {
		t.Errorf("handler saw ctx error %v, want nil", err)
	}
	_ = d.Close()
}

func TestClosedDispatcherRejectsTasks(t *testing.T) {
	logger := &mockLogger{}
	d := NewDispatcher(WithLogger(logger))
	d.Subscribe(task.OperationUpdate, func(ctx context.Context, tk *task.Task) error { return nil })

	if err := d.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := d.Close(); err == nil {
		t.Error("second Close() should fail")
	}

	if err := d.Dispatch(context.Background(), newTask(task.OperationUpdate)); !errors.Is(err, ErrClosed) {
		t.Errorf("Dispatch() error = %v, want %v", err, ErrClosed)
	}
	if err := d.DispatchAsync(context.Background(), newTask(task.OperationUpdate)); !errors.Is(err, ErrClosed) {
		t.Errorf("DispatchAsync() error = %v, want %v", err, ErrClosed)
	}
}

func TestQueueModes(t *testing.T) {
	d := NewDispatcher()
	boom := errors.New("boom")
	d.Subscribe(task.OperationUpdate, func(ctx context.Context, tk *task.Task) error { return boom })

	inline := NewInlineQueue(d)
	if !inline.Synchronous() {
		t.Error("inline queue should be synchronous")
	}
	if err := inline.Enqueue(context.Background(), newTask(task.OperationUpdate)); !errors.Is(err, boom) {
		t.Errorf("inline Enqueue() error = %v, want %v", err, boom)
	}

	async := NewAsyncQueue(d)
	if async.Synchronous() {
		t.Error("async queue should not be synchronous")
	}
	if err := async.Enqueue(context.Background(), newTask(task.OperationUpdate)); err != nil {
		t.Errorf("async Enqueue() error = %v, want nil", err)
	}
	_ = d.Close()
}
