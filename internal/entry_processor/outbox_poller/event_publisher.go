package outbox_poller

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/dinero-ledger/internal/domain/ledger"
	"github.com/dinero-ledger/internal/domain/outbox"
	"github.com/dinero-ledger/internal/domain/shared"
	"github.com/dinero-ledger/internal/domain/snapshot"
	"github.com/dinero-ledger/internal/platform/messaging/producers"
)

// EventPublisher delivers one outbox message to every downstream consumer.
type EventPublisher interface {
	Publish(ctx context.Context, message *outbox.Message) error
}

// EntryView is the reporting copy of posted entries.
type EntryView interface {
	Upsert(ctx context.Context, entry *ledger.Entry) error
}

// SnapshotRefresher recomputes the monthly snapshot of a tenant.
type SnapshotRefresher interface {
	Refresh(ctx context.Context, tenantID uuid.UUID, month time.Time) (*snapshot.PeriodSnapshot, error)
}

// EventPublisherImpl writes the event to Kafka, mirrors the entry into the
// read model and refreshes the month's snapshot. Each step is idempotent,
// so a message retried after a partial failure is harmless.
type EventPublisherImpl struct {
	outboxRepo outbox.Repository
	producer   producers.MessagePublisher
	view       EntryView
	snapshots  SnapshotRefresher
	logger     *slog.Logger
}

// NewEventPublisher wires the publisher. view and snapshots may be nil when
// no reporting store is configured.
func NewEventPublisher(
	outboxRepo outbox.Repository,
	producer producers.MessagePublisher,
	view EntryView,
	snapshots SnapshotRefresher,
	logger *slog.Logger,
) *EventPublisherImpl {
	return &EventPublisherImpl{
		outboxRepo: outboxRepo,
		producer:   producer,
		view:       view,
		snapshots:  snapshots,
		logger:     logger,
	}
}

// Publish delivers message and marks it processed. A payload that cannot be
// decoded is marked failed at once since retrying cannot fix it.
func (p *EventPublisherImpl) Publish(ctx context.Context, message *outbox.Message) error {
	event, err := message.Event()
	if err != nil || event.Entry == nil {
		if err == nil {
			err = fmt.Errorf("payload carries no entry")
		}
		p.logger.Error("Failed to decode outbox payload", "outbox_id", message.ID, "entry_id", message.EntryID.String(), "error", err)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to mark outbox message FAILED_TO_PUBLISH", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("decode payload of outbox %d failed: %w", message.ID, err)
	}

	logger := p.logger
	if event.CorrelationID != "" {
		logger = p.logger.With("correlation_id", event.CorrelationID)
	}

	if p.producer != nil {
		err := p.producer.Publish(ctx, event.EntryID.String(), json.RawMessage(message.Payload),
			kafka.Header{Key: "event-type", Value: []byte(event.Type)},
			kafka.Header{Key: "tenant-id", Value: []byte(event.TenantID.String())},
		)
		if err != nil {
			return fmt.Errorf("failed to publish event for entry %s: %w", event.EntryID, err)
		}
	}

	if p.view != nil {
		if err := p.view.Upsert(ctx, event.Entry); err != nil {
			logger.Error("Failed to mirror entry into read model", "entry_id", event.EntryID.String(), "error", err)
			return fmt.Errorf("failed to mirror entry %s: %w", event.EntryID, err)
		}
	}

	if p.snapshots != nil {
		if _, err := p.snapshots.Refresh(ctx, event.TenantID, event.EntryDate); err != nil {
			logger.Error("Failed to refresh snapshot",
				"tenant_id", event.TenantID.String(),
				"month", snapshot.MonthLabel(event.EntryDate),
				"error", err,
			)
			return fmt.Errorf("failed to refresh snapshot %s: %w", snapshot.MonthLabel(event.EntryDate), err)
		}
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to mark outbox message PROCESSED", "outbox_id", message.ID, "error", err)
		return fmt.Errorf("event %d delivered, but failed to mark it PROCESSED: %w", message.ID, err)
	}

	logger.Info("Ledger event delivered",
		"outbox_id", message.ID,
		"event_type", string(event.Type),
		"entry_id", event.EntryID.String(),
	)
	return nil
}
