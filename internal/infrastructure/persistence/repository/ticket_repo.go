package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aflo-dev/aflo/internal/application/port"
	"github.com/aflo-dev/aflo/internal/domain/apperr"
	"github.com/aflo-dev/aflo/internal/domain/entity"
	"github.com/aflo-dev/aflo/internal/infrastructure/persistence/txn"
)

// ticketSortKeys are the columns tickets may be ordered by
var ticketSortKeys = map[string]bool{
	"created_at":  true,
	"updated_at":  true,
	"owner_at":    true,
	"status_code": true,
	"ticket_type": true,
}

// TicketRepository implements port.TicketRepository
type TicketRepository struct {
	tx     *txn.Manager
	logger *zap.Logger
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(tx *txn.Manager, logger *zap.Logger) *TicketRepository {
	return &TicketRepository{
		tx:     tx,
		logger: logger,
	}
}

// GetTicket retrieves a ticket by ID, including soft-deleted ones
func (r *TicketRepository) GetTicket(ctx context.Context, id string) (*entity.Ticket, error) {
	var ticket entity.Ticket
	if err := r.tx.Conn(ctx).First(&ticket, "id = ?", id).Error; err != nil {
		return nil, translate(err, "ticket %s", id)
	}
	return &ticket, nil
}

// GetActiveWorkflow retrieves the current row of a ticket
func (r *TicketRepository) GetActiveWorkflow(ctx context.Context, ticketID string) (*entity.Workflow, error) {
	var w entity.Workflow
	err := r.tx.Conn(ctx).
		Where("ticket_id = ? AND status = ? AND deleted = ?", ticketID, entity.WorkflowStatusCurrent, false).
		First(&w).Error
	if err != nil {
		return nil, translate(err, "active workflow of ticket %s", ticketID)
	}
	return &w, nil
}

// GetWorkflow retrieves a workflow row by ID
func (r *TicketRepository) GetWorkflow(ctx context.Context, id string) (*entity.Workflow, error) {
	var w entity.Workflow
	if err := r.tx.Conn(ctx).First(&w, "id = ?", id).Error; err != nil {
		return nil, translate(err, "workflow %s", id)
	}
	return &w, nil
}

// ListWorkflows returns the live rows of the tickets in creation order
func (r *TicketRepository) ListWorkflows(ctx context.Context, ticketIDs ...string) ([]*entity.Workflow, error) {
	if len(ticketIDs) == 0 {
		return nil, nil
	}
	var rows []*entity.Workflow
	err := r.tx.Conn(ctx).
		Where("ticket_id IN ? AND deleted = ?", ticketIDs, false).
		Order("created_at").Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err, "list workflows")
	}
	return rows, nil
}

// ListTickets returns one page of tickets matching filter and the total count
func (r *TicketRepository) ListTickets(ctx context.Context, filter entity.TicketFilter) ([]*entity.Ticket, int64, error) {
	q := r.tx.Conn(ctx).Model(&entity.Ticket{})
	if !filter.IncludeDeleted {
		q = q.Where("deleted = ?", false)
	}
	for column, value := range map[string]string{
		"tenant_id":          filter.TenantID,
		"ticket_template_id": filter.TicketTemplateID,
		"ticket_type":        filter.TicketType,
		"status_code":        filter.StatusCode,
		"target_id":          filter.TargetID,
		"owner_id":           filter.OwnerID,
	} {
		if value != "" {
			q = q.Where(clause.Eq{Column: clause.Column{Name: column}, Value: value})
		}
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count tickets")
	}

	q, err := paginate(q, filter.Page, ticketSortKeys)
	if err != nil {
		return nil, 0, err
	}
	var tickets []*entity.Ticket
	if err := q.Find(&tickets).Error; err != nil {
		return nil, 0, translate(err, "list tickets")
	}
	return tickets, total, nil
}

// CountByTemplate counts live tickets bound to a template
func (r *TicketRepository) CountByTemplate(ctx context.Context, templateID string) (int64, error) {
	var n int64
	err := r.tx.Conn(ctx).Model(&entity.Ticket{}).
		Where("ticket_template_id = ? AND deleted = ?", templateID, false).
		Count(&n).Error
	if err != nil {
		return 0, translate(err, "count tickets of template %s", templateID)
	}
	return n, nil
}

// CreateTicket stores a ticket and its first rows in one transaction
func (r *TicketRepository) CreateTicket(ctx context.Context, ticket *entity.Ticket, rows []*entity.Workflow) error {
	return r.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		db := r.tx.Conn(txCtx)
		if err := db.Create(ticket).Error; err != nil {
			r.logger.Error("Failed to create ticket", zap.String("ticket_id", ticket.ID), zap.Error(err))
			return translate(err, "ticket %s", ticket.ID)
		}
		// One insert per row keeps created_at in declaration order.
		for _, w := range rows {
			if err := db.Create(w).Error; err != nil {
				return translate(err, "workflow %s", w.ID)
			}
		}
		return nil
	})
}

// SaveTransition applies patch atomically. Every guarded update must hit
// exactly one row, otherwise a concurrent writer got there first.
func (r *TicketRepository) SaveTransition(ctx context.Context, patch port.TransitionPatch) error {
	err := r.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		db := r.tx.Conn(txCtx)
		now := time.Now()

		res := db.Model(&entity.Ticket{}).
			Where("id = ? AND status_code = ? AND deleted = ?", patch.TicketID, patch.ExpectedStatusCode, false).
			Updates(map[string]interface{}{
				"status_code":   patch.StatusCode,
				"action_detail": patch.ActionDetail,
				"updated_at":    now,
			})
		if err := guardOne(res, "ticket %s is no longer in status %s", patch.TicketID, patch.ExpectedStatusCode); err != nil {
			return err
		}

		if c := patch.Confirm; c != nil {
			updates := map[string]interface{}{
				"status":         entity.WorkflowStatusConfirmed,
				"confirmer_id":   c.ConfirmerID,
				"confirmer_name": c.ConfirmerName,
				"confirmed_at":   c.ConfirmedAt,
				"updated_at":     now,
			}
			if c.AdditionalData != nil {
				updates["additional_data"] = c.AdditionalData
			}
			res := db.Model(&entity.Workflow{}).
				Where("id = ? AND ticket_id = ? AND status = ? AND deleted = ?", c.ID, patch.TicketID, entity.WorkflowStatusCurrent, false).
				Updates(updates)
			if err := guardOne(res, "workflow %s is no longer current", c.ID); err != nil {
				return err
			}
		}

		if a := patch.Activate; a != nil {
			res := db.Model(&entity.Workflow{}).
				Where("id = ? AND ticket_id = ? AND status = ? AND deleted = ?", a.ID, patch.TicketID, entity.WorkflowStatusFuture, false).
				Updates(map[string]interface{}{
					"status":         a.Status,
					"status_detail":  a.StatusDetail,
					"confirmer_id":   a.ConfirmerID,
					"confirmer_name": a.ConfirmerName,
					"confirmed_at":   a.ConfirmedAt,
					"updated_at":     now,
				})
			if err := guardOne(res, "workflow %s is no longer a candidate", a.ID); err != nil {
				return err
			}
		}

		err := db.Model(&entity.Workflow{}).
			Where("ticket_id = ? AND status = ? AND deleted = ?", patch.TicketID, entity.WorkflowStatusFuture, false).
			Updates(map[string]interface{}{"deleted": true, "deleted_at": now}).Error
		if err != nil {
			return translate(err, "retire candidates of ticket %s", patch.TicketID)
		}

		for _, w := range patch.Insert {
			if err := db.Create(w).Error; err != nil {
				return translate(err, "workflow %s", w.ID)
			}
		}
		return nil
	})
	if err != nil && apperr.KindOf(err) != apperr.KindConflict {
		r.logger.Error("Failed to save transition",
			zap.String("ticket_id", patch.TicketID),
			zap.String("status_code", patch.StatusCode),
			zap.Error(err))
	}
	return err
}

// UpdateActionDetail replaces the action detail of a live ticket
func (r *TicketRepository) UpdateActionDetail(ctx context.Context, ticketID string, detail entity.Document) error {
	res := r.tx.Conn(ctx).Model(&entity.Ticket{}).
		Where("id = ? AND deleted = ?", ticketID, false).
		Updates(map[string]interface{}{"action_detail": detail, "updated_at": time.Now()})
	if res.Error != nil {
		return translate(res.Error, "update action detail of ticket %s", ticketID)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("ticket %s not found", ticketID)
	}
	return nil
}

// SoftDeleteTicketCascade marks a ticket and all its rows deleted
func (r *TicketRepository) SoftDeleteTicketCascade(ctx context.Context, id string) error {
	return r.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		db := r.tx.Conn(txCtx)
		now := time.Now()
		deleted := map[string]interface{}{"deleted": true, "deleted_at": now}

		res := db.Model(&entity.Ticket{}).Where("id = ? AND deleted = ?", id, false).Updates(deleted)
		if res.Error != nil {
			return translate(res.Error, "delete ticket %s", id)
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("ticket %s not found", id)
		}

		err := db.Model(&entity.Workflow{}).Where("ticket_id = ? AND deleted = ?", id, false).Updates(deleted).Error
		return translate(err, "delete workflows of ticket %s", id)
	})
}

// guardOne turns a zero-row guarded update into a Conflict
func guardOne(res *gorm.DB, format string, args ...interface{}) error {
	if res.Error != nil {
		return errors.WithStack(res.Error)
	}
	if res.RowsAffected != 1 {
		return apperr.Conflict(format, args...)
	}
	return nil
}

var _ port.TicketRepository = (*TicketRepository)(nil)
