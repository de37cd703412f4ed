// Package txn carries a gorm transaction through context.Context.
package txn

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aflo-dev/aflo/internal/application/port"
)

type contextKey string

const txKey contextKey = "tx"

// Manager implements port.TransactionManager over gorm
type Manager struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewManager creates a new transaction manager
func NewManager(db *gorm.DB, logger *zap.Logger) *Manager {
	return &Manager{
		db:     db,
		logger: logger,
	}
}

// WithTransaction runs fn within a database transaction. A transaction
// already carried by ctx is reused.
func (m *Manager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if extractTx(ctx) != nil {
		return fn(ctx)
	}

	tx := m.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		m.logger.Error("Failed to begin transaction", zap.Error(tx.Error))
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	txCtx := context.WithValue(ctx, txKey, tx)

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			m.logger.Error("Transaction panicked, rolled back", zap.Any("panic", p))
			panic(p)
		}
	}()

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			m.logger.Error("Failed to rollback transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit().Error; err != nil {
		m.logger.Error("Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Conn returns the transaction carried by ctx, or the pool.
func (m *Manager) Conn(ctx context.Context) *gorm.DB {
	if tx := extractTx(ctx); tx != nil {
		return tx.WithContext(ctx)
	}
	return m.db.WithContext(ctx)
}

func extractTx(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return tx
	}
	return nil
}

var _ port.TransactionManager = (*Manager)(nil)
