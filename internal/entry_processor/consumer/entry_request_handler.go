// Package consumer turns entry request messages into posted entries.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dinero-ledger/internal/domain/ledger"
	"github.com/dinero-ledger/internal/domain/shared"
	"github.com/dinero-ledger/internal/engine/service"
	"github.com/dinero-ledger/internal/platform/messaging/producers"
)

// EntryRequestHandler posts candidate entries read from Kafka. Requests the
// engine rejects go to the DLQ and are committed; storage failures are
// returned so the message is delivered again.
type EntryRequestHandler struct {
	processor service.EntryProcessor
	dlq       producers.DeadLetterPublisher
	logger    *slog.Logger
}

func NewEntryRequestHandler(
	logger *slog.Logger,
	processor service.EntryProcessor,
	dlq producers.DeadLetterPublisher,
) *EntryRequestHandler {
	return &EntryRequestHandler{processor: processor, dlq: dlq, logger: logger}
}

// HandleMessage implements consumers.MessageHandler.
func (h *EntryRequestHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var request ledger.EntryRequest
	if err := json.Unmarshal(value, &request); err != nil {
		h.logger.Error("Failed to unmarshal entry request from Kafka message", "error", err, "message_key", string(key))
		return h.deadLetter(ctx, h.logger, key, value, "malformed payload: "+err.Error())
	}

	logger := h.logger
	if request.CorrelationID != "" {
		logger = h.logger.With("correlation_id", request.CorrelationID)
	}
	logger.Info("Received entry request",
		"tenant_id", request.TenantID.String(),
		"reference", request.Reference,
		"lines", len(request.Lines),
	)

	entry, err := h.processor.ProcessEntry(ctx, &request)
	if err != nil {
		if shared.IsRecoverable(err) {
			return h.deadLetter(ctx, logger, key, value, fmt.Sprintf("%s: %v", shared.KindOf(err), err))
		}
		logger.Error("Failed to process entry request", "reference", request.Reference, "error", err)
		return fmt.Errorf("processing entry %s failed: %w", request.Reference, err)
	}

	logger.Info("Entry request posted", "entry_id", entry.ID.String(), "reference", entry.Reference)
	return nil
}

// deadLetter parks the message. Without a DLQ the rejection is only logged;
// redelivering it would fail the same way.
func (h *EntryRequestHandler) deadLetter(ctx context.Context, logger *slog.Logger, key, value []byte, reason string) error {
	if h.dlq == nil {
		logger.Warn("Dropping rejected entry request, no DLQ configured", "message_key", string(key), "reason", reason)
		return nil
	}
	if err := h.dlq.PublishToDLQ(ctx, string(key), value, reason); err != nil {
		logger.Error("Failed to publish rejected entry request to DLQ", "message_key", string(key), "error", err)
		return fmt.Errorf("failed to dead-letter message %s: %w", string(key), err)
	}
	logger.Warn("Entry request rejected and sent to DLQ", "message_key", string(key), "reason", reason)
	return nil
}
