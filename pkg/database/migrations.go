package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aflo-dev/aflo/internal/domain/entity"
)

// Migration is a versioned SQL step applied after the models are migrated
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// schemaMigration records an applied Migration
type schemaMigration struct {
	Version   int    `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	AppliedAt time.Time
}

func (schemaMigration) TableName() string { return "schema_migrations" }

// Models lists every persisted type
func Models() []interface{} {
	return []interface{}{
		&entity.WorkflowPattern{},
		&entity.TicketTemplate{},
		&entity.Ticket{},
		&entity.Workflow{},
		&entity.Catalog{},
		&entity.Goods{},
		&entity.CatalogContents{},
		&entity.CatalogScope{},
		&entity.Price{},
		&entity.Contract{},
	}
}

// migrations run in version order. The SQL must work on both sqlite and postgres.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "one_current_workflow_per_ticket",
		SQL:     `CREATE UNIQUE INDEX IF NOT EXISTS idx_workflows_one_current ON workflows (ticket_id) WHERE status = 1 AND deleted = false`,
	},
	{
		Version: 2,
		Name:    "workflows_by_ticket_and_status",
		SQL:     `CREATE INDEX IF NOT EXISTS idx_workflows_ticket_status ON workflows (ticket_id, status, deleted)`,
	},
}

// Migrator handles database migrations
type Migrator struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewMigrator creates a new migrator
func NewMigrator(db *gorm.DB, logger *zap.Logger) *Migrator {
	return &Migrator{
		db:     db,
		logger: logger,
	}
}

// Run migrates the models and applies pending versioned steps
func (m *Migrator) Run() error {
	m.logger.Info("Starting database migrations")

	if err := m.db.AutoMigrate(append(Models(), &schemaMigration{})...); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	var applied []schemaMigration
	if err := m.db.Find(&applied).Error; err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}
	done := make(map[int]bool, len(applied))
	for _, a := range applied {
		done[a.Version] = true
	}

	for _, migration := range migrations {
		if done[migration.Version] {
			m.logger.Debug("Skipping applied migration",
				zap.Int("version", migration.Version),
				zap.String("name", migration.Name))
			continue
		}

		m.logger.Info("Applying migration",
			zap.Int("version", migration.Version),
			zap.String("name", migration.Name))

		if err := m.apply(migration); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
		}
	}

	m.logger.Info("Database migrations completed successfully")
	return nil
}

func (m *Migrator) apply(migration Migration) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(migration.SQL).Error; err != nil {
			return fmt.Errorf("failed to execute migration SQL: %w", err)
		}
		return tx.Create(&schemaMigration{
			Version:   migration.Version,
			Name:      migration.Name,
			AppliedAt: time.Now(),
		}).Error
	})
}
