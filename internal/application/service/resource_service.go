package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/aflo-dev/aflo/internal/application/port"
	"github.com/aflo-dev/aflo/internal/domain/apperr"
	"github.com/aflo-dev/aflo/internal/domain/entity"
)

// recordPtr is satisfied by pointers to models that embed entity.Record
type recordPtr[T any] interface {
	*T
	GetRecord() *entity.Record
}

// ResourceService exposes CRUD over one kind of business record. Any caller
// may read, only administrators may write.
type ResourceService[T any] interface {
	Get(ctx context.Context, id string) (*T, error)
	List(ctx context.Context, filter port.ResourceFilter) ([]*T, int64, error)
	Create(ctx context.Context, caller entity.Caller, record *T) error
	Update(ctx context.Context, caller entity.Caller, id string, record *T) error
	Delete(ctx context.Context, caller entity.Caller, id string) error
}

type resourceServiceImpl[T any, PT recordPtr[T]] struct {
	repo       port.ResourceRepository[T]
	kind       string
	pagination PaginationConfig
	logger     Logger
}

// NewResourceService creates a ResourceService for records named kind
func NewResourceService[T any, PT recordPtr[T]](
	repo port.ResourceRepository[T],
	kind string,
	pagination PaginationConfig,
	logger Logger,
) ResourceService[T] {
	return &resourceServiceImpl[T, PT]{
		repo:       repo,
		kind:       kind,
		pagination: pagination,
		logger:     logger,
	}
}

func (s *resourceServiceImpl[T, PT]) Get(ctx context.Context, id string) (*T, error) {
	return s.repo.Get(ctx, id)
}

func (s *resourceServiceImpl[T, PT]) List(ctx context.Context, filter port.ResourceFilter) ([]*T, int64, error) {
	filter.Page = s.pagination.apply(filter.Page)
	return s.repo.List(ctx, filter)
}

// Create stores a new record under a generated ID
func (s *resourceServiceImpl[T, PT]) Create(ctx context.Context, caller entity.Caller, record *T) error {
	if !caller.IsAdmin {
		return apperr.Forbidden("only administrators may create %s", s.kind)
	}
	rec := PT(record).GetRecord()
	rec.ID = uuid.NewString()
	rec.Deleted = false
	rec.DeletedAt = nil
	if err := s.repo.Create(ctx, record); err != nil {
		return err
	}
	s.logger.Info("Record created", "kind", s.kind, "id", rec.ID, "by", caller.UserID)
	return nil
}

// Update replaces the mutable columns of a live record
func (s *resourceServiceImpl[T, PT]) Update(ctx context.Context, caller entity.Caller, id string, record *T) error {
	if !caller.IsAdmin {
		return apperr.Forbidden("only administrators may update %s", s.kind)
	}
	PT(record).GetRecord().ID = id
	if err := s.repo.Update(ctx, record); err != nil {
		return err
	}
	s.logger.Info("Record updated", "kind", s.kind, "id", id, "by", caller.UserID)
	return nil
}

// Delete soft-deletes a record
func (s *resourceServiceImpl[T, PT]) Delete(ctx context.Context, caller entity.Caller, id string) error {
	if !caller.IsAdmin {
		return apperr.Forbidden("only administrators may delete %s", s.kind)
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Record deleted", "kind", s.kind, "id", id, "by", caller.UserID)
	return nil
}
