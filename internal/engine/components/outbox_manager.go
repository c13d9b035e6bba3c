package components

import (
	"context"
	"log/slog"

	"github.com/dinero-ledger/internal/domain/ledger"
	"github.com/dinero-ledger/internal/domain/outbox"
	"github.com/dinero-ledger/internal/domain/shared"
	"github.com/dinero-ledger/internal/domain/uow"
	"github.com/dinero-ledger/internal/engine/service"
)

type OutboxManagerImpl struct {
	logger *slog.Logger
}

func NewOutboxManager(logger *slog.Logger) service.OutboxManager {
	return &OutboxManagerImpl{logger: logger}
}

// Enqueue stores the event for the poller in the caller's transaction.
func (m *OutboxManagerImpl) Enqueue(ctx context.Context, repos uow.Repositories, eventType shared.EventType, entry *ledger.Entry, correlationID string) error {
	logger := m.logger
	if correlationID != "" {
		logger = m.logger.With("correlation_id", correlationID)
	}

	message, err := outbox.NewMessage(eventType, entry, correlationID)
	if err != nil {
		logger.Error("Failed to create outbox message (marshal payload)", "entry_id", entry.ID.String(), "error", err)
		return shared.NewStorageError("enqueue event", err)
	}

	if err := repos.Outbox().Create(ctx, message); err != nil {
		logger.Error("Failed to create outbox message",
			"entry_id", entry.ID.String(),
			"event_type", string(eventType),
			"error", err,
		)
		return shared.NewStorageError("enqueue event", err)
	}

	logger.Info("Outbox message created",
		"entry_id", entry.ID.String(),
		"event_type", string(eventType),
		"outbox_id", message.ID,
	)
	return nil
}
