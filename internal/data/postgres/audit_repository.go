package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dinero-ledger/internal/domain/audit"
	"github.com/dinero-ledger/internal/platform/persistence"
)

// AuditRepository appends to audit_logs. The table rejects updates and
// deletes through rules, so there is nothing here to change a record.
type AuditRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewAuditRepository(logger *slog.Logger, db *persistence.PostgresDB) *AuditRepository {
	return &AuditRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *AuditRepository) WithTx(tx pgx.Tx) *AuditRepository {
	return &AuditRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *AuditRepository) Append(ctx context.Context, record *audit.Record) error {
	query := `
		INSERT INTO audit_logs (id, tenant_id, entity_type, entity_id, action_type, old_data, new_data, performed_by, ip_address, user_agent, correlation_id, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.querier.Exec(ctx, query,
		record.ID,
		record.TenantID,
		record.EntityType,
		record.EntityID,
		record.Action,
		jsonOrNil(record.Before),
		jsonOrNil(record.After),
		record.Actor,
		record.IPAddress,
		record.UserAgent,
		record.CorrelationID,
		record.RecordedAt,
	)
	if err != nil {
		r.logger.Error("Failed to append audit record",
			"entity_type", string(record.EntityType),
			"entity_id", record.EntityID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to append audit record: %w", err)
	}
	return nil
}

func (r *AuditRepository) ListByEntity(ctx context.Context, entityType audit.EntityType, entityID uuid.UUID) ([]*audit.Record, error) {
	query := `
		SELECT id, tenant_id, entity_type, entity_id, action_type, old_data, new_data, performed_by, ip_address, user_agent, correlation_id, recorded_at
		FROM audit_logs
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY recorded_at ASC
	`

	rows, err := r.querier.Query(ctx, query, entityType, entityID)
	if err != nil {
		r.logger.Error("Failed to list audit records", "entity_id", entityID.String(), "error", err)
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}
	defer rows.Close()

	records := make([]*audit.Record, 0)
	for rows.Next() {
		var (
			rec           audit.Record
			before, after []byte
		)
		err := rows.Scan(
			&rec.ID,
			&rec.TenantID,
			&rec.EntityType,
			&rec.EntityID,
			&rec.Action,
			&before,
			&after,
			&rec.Actor,
			&rec.IPAddress,
			&rec.UserAgent,
			&rec.CorrelationID,
			&rec.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		rec.Before = before
		rec.After = after
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit records: %w", err)
	}
	return records, nil
}

// jsonOrNil keeps absent images as SQL NULL rather than an empty document.
func jsonOrNil(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
