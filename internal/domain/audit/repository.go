package audit

import (
	"context"

	"github.com/google/uuid"
)

// Repository is append-only: records are never updated or pruned here.
type Repository interface {
	Append(ctx context.Context, record *Record) error
	ListByEntity(ctx context.Context, entityType EntityType, entityID uuid.UUID) ([]*Record, error)
}
