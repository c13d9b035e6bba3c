package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dinero-ledger/internal/domain/ledger"
	"github.com/dinero-ledger/internal/platform/messaging/producers"
)

// ReferenceFinder looks an entry up by its tenant-scoped reference.
type ReferenceFinder interface {
	FindByReference(ctx context.Context, tenantID uuid.UUID, reference string) (*ledger.Entry, error)
}

// EntrySubmitterImpl publishes entry requests to the entry request topic.
// The reference doubles as the idempotency key: a request whose reference is
// already posted is answered from the ledger instead of being queued again.
type EntrySubmitterImpl struct {
	entries  ReferenceFinder
	producer producers.MessagePublisher
	logger   *slog.Logger
}

func NewEntrySubmitter(logger *slog.Logger, entries ReferenceFinder, producer producers.MessagePublisher) EntrySubmitter {
	return &EntrySubmitterImpl{
		entries:  entries,
		producer: producer,
		logger:   logger,
	}
}

func (s *EntrySubmitterImpl) Submit(ctx context.Context, req *ledger.EntryRequest) (*ledger.Entry, error) {
	logger := s.logger
	if req.CorrelationID != "" {
		logger = s.logger.With("correlation_id", req.CorrelationID)
	}
	if req.Reference == "" {
		return nil, ledger.ErrInvalidEntry{Field: "reference", Reason: "required"}
	}

	existing, err := s.entries.FindByReference(ctx, req.TenantID, req.Reference)
	switch {
	case err == nil && existing.State == ledger.StateDraft:
		return nil, ledger.ErrDuplicateReference{TenantID: req.TenantID, Reference: req.Reference}
	case err == nil:
		logger.Info("Entry already recorded for reference",
			"reference", req.Reference,
			"entry_id", existing.ID.String(),
			"state", string(existing.State),
		)
		return existing, nil
	case !errors.Is(err, ledger.ErrEntryNotFound{}):
		logger.Error("Failed to check reference before submitting", "reference", req.Reference, "error", err)
		return nil, err
	}

	// Keyed by tenant and reference so redeliveries land on one partition.
	key := req.TenantID.String() + "/" + req.Reference
	if err := s.producer.Publish(ctx, key, req); err != nil {
		logger.Error("Failed to publish entry request",
			"tenant_id", req.TenantID.String(),
			"reference", req.Reference,
			"error", err,
		)
		return nil, err
	}

	logger.Info("Entry request published",
		"tenant_id", req.TenantID.String(),
		"reference", req.Reference,
		"lines", len(req.Lines),
	)
	return nil, nil
}
