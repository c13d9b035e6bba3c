package components

import (
	"context"
	"log/slog"

	"github.com/dinero-ledger/internal/domain/audit"
	"github.com/dinero-ledger/internal/domain/shared"
	"github.com/dinero-ledger/internal/domain/uow"
	"github.com/dinero-ledger/internal/engine/service"
)

type AuditRecorderImpl struct {
	logger *slog.Logger
}

func NewAuditRecorder(logger *slog.Logger) service.AuditRecorder {
	return &AuditRecorderImpl{logger: logger}
}

// Record writes the audit record through the transaction's repositories.
// Any failure is a storage error so the caller rolls back.
func (r *AuditRecorderImpl) Record(ctx context.Context, repos uow.Repositories, change audit.Change, actor shared.Actor) error {
	logger := r.logger
	if actor.CorrelationID != "" {
		logger = r.logger.With("correlation_id", actor.CorrelationID)
	}

	record, err := audit.NewRecord(change, actor)
	if err != nil {
		logger.Error("Failed to build audit record",
			"entity_type", string(change.EntityType),
			"entity_id", change.EntityID.String(),
			"error", err,
		)
		return shared.NewStorageError("record audit", err)
	}

	if err := repos.Audit().Append(ctx, record); err != nil {
		logger.Error("Failed to append audit record",
			"entity_type", string(change.EntityType),
			"entity_id", change.EntityID.String(),
			"action", string(change.Action),
			"error", err,
		)
		return shared.NewStorageError("record audit", err)
	}

	logger.Debug("Audit record appended",
		"entity_type", string(change.EntityType),
		"entity_id", change.EntityID.String(),
		"action", string(change.Action),
		"actor", actor.ID,
	)
	return nil
}
