// Package worker runs queued ticket tasks in the background.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Worker defines the common contract for all background workers
type Worker interface {
	Start(ctx context.Context) error
	Stop() error
	Name() string
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Manager manages the lifecycle of all background workers
type Manager struct {
	workers []Worker
	logger  Logger

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
}

// NewManager creates a new worker manager
func NewManager(logger Logger) *Manager {
	return &Manager{
		workers: make([]Worker, 0),
		logger:  logger,
	}
}

// Register adds a worker to be managed
func (m *Manager) Register(w Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers = append(m.workers, w)
	m.logger.Info("Worker registered", "name", w.Name(), "total_workers", len(m.workers))
}

// StartAll starts all registered workers. Workers already started are
// stopped again when a later one fails.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return errors.New("workers already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	for i, w := range m.workers {
		if err := w.Start(ctx); err != nil {
			m.logger.Error("Failed to start worker", "name", w.Name(), "error", err)
			cancel()
			for j := i - 1; j >= 0; j-- {
				m.stop(m.workers[j])
			}
			return fmt.Errorf("start worker %s: %w", w.Name(), err)
		}
		m.logger.Info("Worker started", "name", w.Name())
	}

	m.cancel = cancel
	m.running = true
	return nil
}

// StopAll stops all registered workers in reverse order
func (m *Manager) StopAll() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	workers := make([]Worker, len(m.workers))
	copy(workers, m.workers)
	cancel := m.cancel
	m.mu.Unlock()

	cancel()

	var errs []error
	for i := len(workers) - 1; i >= 0; i-- {
		if err := m.stop(workers[i]); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to stop %d workers: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

func (m *Manager) stop(w Worker) error {
	if err := w.Stop(); err != nil {
		m.logger.Error("Failed to stop worker", "name", w.Name(), "error", err)
		return err
	}
	m.logger.Info("Worker stopped", "name", w.Name())
	return nil
}

// Count returns the number of registered workers
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.workers)
}

// IsRunning reports whether StartAll succeeded and StopAll has not been called
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}
