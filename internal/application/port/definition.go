package port

import (
	"context"
	"time"

	"github.com/aflo-dev/aflo/internal/domain/entity"
)

// DefinitionReader resolves the static definitions a ticket is bound to.
type DefinitionReader interface {
	GetTemplate(ctx context.Context, id string) (*entity.TicketTemplate, error)
	GetPattern(ctx context.Context, id string) (*entity.WorkflowPattern, error)
}

// DefinitionCache is a read-through cache of serialized definitions.
type DefinitionCache interface {
	// Get decodes the cached value into dst and reports whether it was present.
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
