package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dinero-ledger/internal/domain/ledger"
	"github.com/dinero-ledger/internal/domain/snapshot"
)

// ErrSnapshotsDisabled is returned when no snapshot store is configured.
var ErrSnapshotsDisabled = errors.New("snapshot store is not configured")

// SnapshotService computes monthly summaries and keeps them in the
// reporting store.
type SnapshotService struct {
	projector *Projector
	repo      snapshot.Repository
	logger    *slog.Logger
}

func NewSnapshotService(projector *Projector, repo snapshot.Repository, logger *slog.Logger) *SnapshotService {
	return &SnapshotService{projector: projector, repo: repo, logger: logger}
}

// Build computes the snapshot of month without storing it.
func (s *SnapshotService) Build(ctx context.Context, tenantID uuid.UUID, month time.Time) (*snapshot.PeriodSnapshot, error) {
	start, end := snapshot.MonthBounds(month)
	movement, err := s.projector.PeriodActivity(ctx, tenantID, ledger.DateRange{From: start, To: end})
	if err != nil {
		return nil, err
	}
	closing, err := s.projector.PeriodActivity(ctx, tenantID, ledger.AsOf(end))
	if err != nil {
		return nil, err
	}
	return snapshot.Build(tenantID, month, movement, closing), nil
}

// Refresh recomputes the snapshot of month and stores it.
func (s *SnapshotService) Refresh(ctx context.Context, tenantID uuid.UUID, month time.Time) (*snapshot.PeriodSnapshot, error) {
	if s.repo == nil {
		return nil, ErrSnapshotsDisabled
	}
	snap, err := s.Build(ctx, tenantID, month)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Upsert(ctx, snap); err != nil {
		s.logger.Error("Failed to store snapshot", "tenant_id", tenantID.String(), "month", snap.MonthLabel, "error", err)
		return nil, err
	}
	s.logger.Info("Snapshot refreshed",
		"tenant_id", tenantID.String(),
		"month", snap.MonthLabel,
		"profit", snap.Profit.StringFixed(ledger.AmountScale),
	)
	return snap, nil
}

func (s *SnapshotService) Get(ctx context.Context, tenantID uuid.UUID, monthLabel string) (*snapshot.PeriodSnapshot, error) {
	if s.repo == nil {
		return nil, ErrSnapshotsDisabled
	}
	return s.repo.Get(ctx, tenantID, monthLabel)
}

func (s *SnapshotService) List(ctx context.Context, tenantID uuid.UUID, limit int) ([]*snapshot.PeriodSnapshot, error) {
	if s.repo == nil {
		return nil, ErrSnapshotsDisabled
	}
	return s.repo.ListByTenant(ctx, tenantID, limit)
}
