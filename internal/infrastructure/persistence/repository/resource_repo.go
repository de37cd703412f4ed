package repository

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm/clause"

	"github.com/aflo-dev/aflo/internal/application/port"
	"github.com/aflo-dev/aflo/internal/domain/apperr"
	"github.com/aflo-dev/aflo/internal/domain/entity"
	"github.com/aflo-dev/aflo/internal/infrastructure/persistence/txn"
)

var resourceSortKeys = map[string]bool{
	"created_at": true,
	"updated_at": true,
}

// ResourceRepository is the gorm implementation of port.ResourceRepository
// for any business record embedding entity.Record.
type ResourceRepository[T any] struct {
	tx         *txn.Manager
	logger     *zap.Logger
	kind       string
	filterable map[string]bool
}

// NewResourceRepository creates a repository for records of kind. Only
// the filterable columns may appear in ResourceFilter.Equals.
func NewResourceRepository[T any](tx *txn.Manager, logger *zap.Logger, kind string, filterable ...string) *ResourceRepository[T] {
	cols := make(map[string]bool, len(filterable))
	for _, c := range filterable {
		cols[c] = true
	}
	return &ResourceRepository[T]{
		tx:         tx,
		logger:     logger,
		kind:       kind,
		filterable: cols,
	}
}

// Get retrieves a live record by ID
func (r *ResourceRepository[T]) Get(ctx context.Context, id string) (*T, error) {
	var rec T
	if err := r.tx.Conn(ctx).Where("id = ? AND deleted = ?", id, false).First(&rec).Error; err != nil {
		return nil, translate(err, "%s %s", r.kind, id)
	}
	return &rec, nil
}

// List returns one page of live records and the total count
func (r *ResourceRepository[T]) List(ctx context.Context, filter port.ResourceFilter) ([]*T, int64, error) {
	q := r.tx.Conn(ctx).Model(new(T)).Where("deleted = ?", false)
	for column, value := range filter.Equals {
		if !r.filterable[column] {
			return nil, 0, apperr.InvalidParameterValue("cannot filter %s by %q", r.kind, column)
		}
		q = q.Where(clause.Eq{Column: clause.Column{Name: column}, Value: value})
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count %s", r.kind)
	}

	q, err := paginate(q, filter.Page, resourceSortKeys)
	if err != nil {
		return nil, 0, err
	}
	var out []*T
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, translate(err, "list %s", r.kind)
	}
	return out, total, nil
}

// Create stores a new record
func (r *ResourceRepository[T]) Create(ctx context.Context, record *T) error {
	if err := r.tx.Conn(ctx).Create(record).Error; err != nil {
		r.logger.Error("Failed to create record", zap.String("kind", r.kind), zap.Error(err))
		return translate(err, "%s", r.kind)
	}
	return nil
}

// Update overwrites every mutable column of a live record
func (r *ResourceRepository[T]) Update(ctx context.Context, record *T) error {
	if rec, ok := any(record).(interface{ GetRecord() *entity.Record }); !ok || rec.GetRecord().ID == "" {
		return apperr.InvalidParameterValue("%s update requires an id", r.kind)
	}
	res := r.tx.Conn(ctx).Model(record).
		Where("deleted = ?", false).
		Select("*").
		Omit("id", "created_at", "deleted", "deleted_at").
		Updates(record)
	if res.Error != nil {
		return translate(res.Error, "update %s", r.kind)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("%s not found", r.kind)
	}
	return nil
}

// SoftDelete marks a record deleted
func (r *ResourceRepository[T]) SoftDelete(ctx context.Context, id string) error {
	return softDelete(ctx, r.tx, new(T), r.kind, id)
}
