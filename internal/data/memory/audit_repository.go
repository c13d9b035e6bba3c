package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/dinero-ledger/internal/domain/audit"
)

type auditRepository view

func (r *auditRepository) Append(ctx context.Context, record *audit.Record) error {
	return view(*r).write(ctx, func(st *state) error {
		rec := *record
		st.audit = append(st.audit, &rec)
		return nil
	})
}

func (r *auditRepository) ListByEntity(_ context.Context, entityType audit.EntityType, entityID uuid.UUID) ([]*audit.Record, error) {
	records := make([]*audit.Record, 0)
	for _, rec := range view(*r).read().audit {
		if rec.EntityType == entityType && rec.EntityID == entityID {
			c := *rec
			records = append(records, &c)
		}
	}
	return records, nil
}
