package repository

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aflo-dev/aflo/internal/application/port"
	"github.com/aflo-dev/aflo/internal/domain/apperr"
	"github.com/aflo-dev/aflo/internal/domain/entity"
	"github.com/aflo-dev/aflo/internal/infrastructure/persistence/txn"
)

// PatternRepository implements port.PatternRepository
type PatternRepository struct {
	tx     *txn.Manager
	logger *zap.Logger
}

// NewPatternRepository creates a new workflow pattern repository
func NewPatternRepository(tx *txn.Manager, logger *zap.Logger) *PatternRepository {
	return &PatternRepository{tx: tx, logger: logger}
}

// GetByID retrieves a live pattern by ID
func (r *PatternRepository) GetByID(ctx context.Context, id string) (*entity.WorkflowPattern, error) {
	var p entity.WorkflowPattern
	if err := r.tx.Conn(ctx).Where("id = ? AND deleted = ?", id, false).First(&p).Error; err != nil {
		return nil, translate(err, "workflow pattern %s", id)
	}
	return &p, nil
}

// GetByCode retrieves a live pattern by its unique code
func (r *PatternRepository) GetByCode(ctx context.Context, code string) (*entity.WorkflowPattern, error) {
	var p entity.WorkflowPattern
	if err := r.tx.Conn(ctx).Where("code = ? AND deleted = ?", code, false).First(&p).Error; err != nil {
		return nil, translate(err, "workflow pattern %q", code)
	}
	return &p, nil
}

// List returns live patterns in creation order
func (r *PatternRepository) List(ctx context.Context) ([]*entity.WorkflowPattern, error) {
	var patterns []*entity.WorkflowPattern
	if err := r.tx.Conn(ctx).Where("deleted = ?", false).Order("created_at").Find(&patterns).Error; err != nil {
		return nil, translate(err, "list workflow patterns")
	}
	return patterns, nil
}

// Create stores a new pattern
func (r *PatternRepository) Create(ctx context.Context, pattern *entity.WorkflowPattern) error {
	if err := r.tx.Conn(ctx).Create(pattern).Error; err != nil {
		r.logger.Error("Failed to create workflow pattern", zap.String("code", pattern.Code), zap.Error(err))
		return translate(err, "workflow pattern %q", pattern.Code)
	}
	return nil
}

// SoftDelete marks a pattern deleted
func (r *PatternRepository) SoftDelete(ctx context.Context, id string) error {
	return softDelete(ctx, r.tx, &entity.WorkflowPattern{}, "workflow pattern", id)
}

// TemplateRepository implements port.TemplateRepository
type TemplateRepository struct {
	tx     *txn.Manager
	logger *zap.Logger
}

// NewTemplateRepository creates a new ticket template repository
func NewTemplateRepository(tx *txn.Manager, logger *zap.Logger) *TemplateRepository {
	return &TemplateRepository{tx: tx, logger: logger}
}

// GetByID retrieves a live template by ID
func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*entity.TicketTemplate, error) {
	var t entity.TicketTemplate
	if err := r.tx.Conn(ctx).Where("id = ? AND deleted = ?", id, false).First(&t).Error; err != nil {
		return nil, translate(err, "ticket template %s", id)
	}
	return &t, nil
}

// List returns live templates in creation order
func (r *TemplateRepository) List(ctx context.Context) ([]*entity.TicketTemplate, error) {
	var templates []*entity.TicketTemplate
	if err := r.tx.Conn(ctx).Where("deleted = ?", false).Order("created_at").Find(&templates).Error; err != nil {
		return nil, translate(err, "list ticket templates")
	}
	return templates, nil
}

// CountByPattern counts live templates bound to a pattern
func (r *TemplateRepository) CountByPattern(ctx context.Context, patternID string) (int64, error) {
	var n int64
	err := r.tx.Conn(ctx).Model(&entity.TicketTemplate{}).
		Where("workflow_pattern_id = ? AND deleted = ?", patternID, false).
		Count(&n).Error
	if err != nil {
		return 0, translate(err, "count templates of pattern %s", patternID)
	}
	return n, nil
}

// Create stores a new template
func (r *TemplateRepository) Create(ctx context.Context, template *entity.TicketTemplate) error {
	if err := r.tx.Conn(ctx).Create(template).Error; err != nil {
		r.logger.Error("Failed to create ticket template", zap.String("id", template.ID), zap.Error(err))
		return translate(err, "ticket template %s", template.ID)
	}
	return nil
}

// SoftDelete marks a template deleted
func (r *TemplateRepository) SoftDelete(ctx context.Context, id string) error {
	return softDelete(ctx, r.tx, &entity.TicketTemplate{}, "ticket template", id)
}

func softDelete(ctx context.Context, tx *txn.Manager, model interface{}, kind, id string) error {
	res := tx.Conn(ctx).Model(model).
		Where("id = ? AND deleted = ?", id, false).
		Updates(map[string]interface{}{"deleted": true, "deleted_at": time.Now()})
	if res.Error != nil {
		return translate(res.Error, "delete %s %s", kind, id)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("%s %s not found", kind, id)
	}
	return nil
}

var (
	_ port.PatternRepository  = (*PatternRepository)(nil)
	_ port.TemplateRepository = (*TemplateRepository)(nil)
)
