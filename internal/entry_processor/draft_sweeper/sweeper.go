// Package draft_sweeper periodically removes drafts nobody finished.
package draft_sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/dinero-ledger/internal/config"
)

// DraftPurger deletes drafts untouched for longer than retention.
type DraftPurger interface {
	PurgeStaleDrafts(ctx context.Context, retention time.Duration, limit int) (int, error)
}

type Sweeper struct {
	purger    DraftPurger
	logger    *slog.Logger
	interval  time.Duration
	retention time.Duration
	batchSize int
}

func NewSweeper(cfg *config.LedgerConfig, purger DraftPurger, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		purger:    purger,
		logger:    logger,
		interval:  cfg.DraftSweepInterval,
		retention: cfg.DraftRetention,
		batchSize: cfg.SweepBatchSize,
	}
}

// Start sweeps on every tick until ctx is cancelled. A zero retention
// disables the sweeper entirely.
func (s *Sweeper) Start(ctx context.Context) {
	if s.retention <= 0 {
		s.logger.Info("Draft sweeper disabled, no retention configured")
		return
	}
	s.logger.Info("Starting draft sweeper",
		"interval", s.interval.String(),
		"retention", s.retention.String(),
		"batch_size", s.batchSize,
	)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Draft sweeper stopping")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep purges batches until one comes back short, so a backlog larger than
// the batch size clears in a single tick.
func (s *Sweeper) Sweep(ctx context.Context) int {
	total := 0
	for ctx.Err() == nil {
		purged, err := s.purger.PurgeStaleDrafts(ctx, s.retention, s.batchSize)
		total += purged
		if err != nil {
			s.logger.Error("Draft sweep finished with errors", "purged", total, "error", err)
			return total
		}
		if purged < s.batchSize {
			break
		}
	}
	return total
}
