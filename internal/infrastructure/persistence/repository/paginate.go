package repository

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aflo-dev/aflo/internal/domain/apperr"
	"github.com/aflo-dev/aflo/internal/domain/entity"
)

// paginate applies ordering and limits. Unknown sort keys are rejected
// rather than interpolated.
func paginate(q *gorm.DB, page entity.Page, sortKeys map[string]bool) (*gorm.DB, error) {
	key := page.SortKey
	if key == "" {
		key = "created_at"
	}
	if !sortKeys[key] {
		return nil, apperr.InvalidParameterValue("cannot sort by %q", key)
	}

	desc := true
	switch strings.ToLower(page.SortDir) {
	case "", "desc":
	case "asc":
		desc = false
	default:
		return nil, apperr.InvalidParameterValue("sort_dir must be asc or desc")
	}

	q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: key}, Desc: desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}})
	if page.Limit > 0 {
		q = q.Limit(page.Limit)
	}
	if page.Offset > 0 {
		q = q.Offset(page.Offset)
	}
	return q, nil
}
