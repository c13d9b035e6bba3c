package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/dinero-ledger/internal/domain/audit"
)

// AuditTrail reads the audit records of one account or entry.
type AuditTrail struct {
	repo audit.Repository
}

func NewAuditTrail(repo audit.Repository) *AuditTrail {
	return &AuditTrail{repo: repo}
}

// List returns the records of the entity, oldest first.
func (t *AuditTrail) List(ctx context.Context, entityType audit.EntityType, entityID uuid.UUID) ([]*audit.Record, error) {
	return t.repo.ListByEntity(ctx, entityType, entityID)
}
