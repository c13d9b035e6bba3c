// Package outbox_poller drains the ledger outbox: each pending event is
// published and mirrored, then marked processed.
package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dinero-ledger/internal/config"
	"github.com/dinero-ledger/internal/domain/outbox"
	"github.com/dinero-ledger/internal/domain/shared"
)

// Poller processes pending outbox messages
type Poller struct {
	outboxRepo       outbox.Repository
	publisher        EventPublisher
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	publisher EventPublisher,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		publisher:        publisher,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start polls until ctx is cancelled.
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting outbox poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox poller stopping")
			return
		case <-ticker.C:
			if _, err := p.ProcessPending(ctx); err != nil {
				p.logger.Error("Error while processing pending outbox messages", "error", err)
			}
		}
	}
}

// ProcessPending publishes one batch in outbox order and reports how many
// messages were delivered. A message that keeps failing is parked as
// FAILED_TO_PUBLISH after the configured number of attempts.
func (p *Poller) ProcessPending(ctx context.Context) (int, error) {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	if len(messages) == 0 {
		return 0, nil
	}
	p.logger.Debug("Fetched pending outbox messages", "count", len(messages))

	delivered := 0
	for _, msg := range messages {
		if ctx.Err() != nil {
			return delivered, ctx.Err()
		}
		if err := p.publisher.Publish(ctx, msg); err != nil {
			p.recordFailure(ctx, msg, err)
			continue
		}
		delivered++
	}
	return delivered, nil
}

func (p *Poller) recordFailure(ctx context.Context, msg *outbox.Message, cause error) {
	logger := p.logger.With("outbox_id", msg.ID, "entry_id", msg.EntryID.String())
	logger.Error("Failed to deliver outbox message", "attempts", msg.Attempts, "error", cause)

	if err := p.outboxRepo.IncrementAttempts(ctx, msg.ID); err != nil {
		logger.Error("Failed to increment attempts for outbox message", "error", err)
		return
	}
	if msg.Attempts+1 < p.maxRetryAttempts {
		return
	}

	logger.Warn("Max retry attempts reached, marking outbox message FAILED_TO_PUBLISH", "attempts", msg.Attempts+1)
	if err := p.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusFailedToPublish); err != nil {
		logger.Error("Failed to mark outbox message FAILED_TO_PUBLISH", "error", err)
	}
}
