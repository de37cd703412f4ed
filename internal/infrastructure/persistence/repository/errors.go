package repository

import (
	"fmt"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/aflo-dev/aflo/internal/domain/apperr"
)

// translate maps gorm errors onto the application taxonomy and attaches a
// stack to everything else.
func translate(err error, format string, args ...interface{}) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound(format+" not found", args...)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Conflict(format+" already exists", args...)
	default:
		return errors.Wrap(err, fmt.Sprintf(format, args...))
	}
}
