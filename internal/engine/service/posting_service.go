package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dinero-ledger/internal/domain/audit"
	"github.com/dinero-ledger/internal/domain/ledger"
	"github.com/dinero-ledger/internal/domain/shared"
	"github.com/dinero-ledger/internal/domain/uow"
)

// DraftSweeperActor is recorded on audit records of purged drafts.
var DraftSweeperActor = shared.SystemActor("draft-sweeper")

// DraftUpdate carries the editable content of a draft.
type DraftUpdate struct {
	Description string
	EntryDate   time.Time
	Lines       []ledger.LineRequest
}

// ReverseOptions controls a reversal. A zero Date reuses the original's date.
type ReverseOptions struct {
	Date  time.Time
	Actor shared.Actor
}

// PostingService owns every entry lifecycle transition.
type PostingService struct {
	store     uow.Store
	validator EntryValidator
	auditor   AuditRecorder
	outbox    OutboxManager
	logger    *slog.Logger
	now       func() time.Time
}

func NewPostingService(
	store uow.Store,
	validator EntryValidator,
	auditor AuditRecorder,
	outbox OutboxManager,
	logger *slog.Logger,
) *PostingService {
	return &PostingService{
		store:     store,
		validator: validator,
		auditor:   auditor,
		outbox:    outbox,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateDraft stores a new draft. Balance is not required yet.
func (s *PostingService) CreateDraft(ctx context.Context, req ledger.EntryRequest, actor shared.Actor) (*ledger.Entry, error) {
	logger := s.loggerFor(actor)
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	entry, err := ledger.NewDraft(req, actor.ID)
	if err != nil {
		return nil, s.rejected(logger, "create draft", req.Reference, err)
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx uow.Repositories) error {
		if err := s.validator.ValidateDraft(ctx, tx.Accounts(), entry); err != nil {
			return err
		}
		if err := tx.Entries().Append(ctx, entry); err != nil {
			return err
		}
		return s.auditor.Record(ctx, tx, audit.Change{
			TenantID:   entry.TenantID,
			EntityType: audit.EntityJournalEntry,
			EntityID:   entry.ID,
			Action:     audit.ActionInsert,
			After:      entry,
		}, actor)
	})
	if err != nil {
		return nil, s.rejected(logger, "create draft", entry.Reference, err)
	}

	logger.Info("Draft entry created", "entry_id", entry.ID.String(), "reference", entry.Reference)
	return entry, nil
}

// UpdateDraft replaces the description, date and lines of a draft.
func (s *PostingService) UpdateDraft(ctx context.Context, entryID uuid.UUID, update DraftUpdate, actor shared.Actor) (*ledger.Entry, error) {
	logger := s.loggerFor(actor)
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var entry *ledger.Entry
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx uow.Repositories) error {
		current, err := tx.Entries().GetForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		before := current.Clone()
		if err := current.Revise(update.Description, update.EntryDate, update.Lines); err != nil {
			return err
		}
		if err := s.validator.ValidateDraft(ctx, tx.Accounts(), current); err != nil {
			return err
		}
		if err := tx.Entries().UpdateDraft(ctx, current); err != nil {
			return err
		}
		entry = current
		return s.auditor.Record(ctx, tx, audit.Change{
			TenantID:   current.TenantID,
			EntityType: audit.EntityJournalEntry,
			EntityID:   current.ID,
			Action:     audit.ActionUpdate,
			Before:     before,
			After:      current,
		}, actor)
	})
	if err != nil {
		return nil, s.rejected(logger, "update draft", entryID.String(), err)
	}

	logger.Info("Draft entry updated", "entry_id", entryID.String())
	return entry, nil
}

// DeleteDraft removes a draft. Posted and reversed entries are immutable.
func (s *PostingService) DeleteDraft(ctx context.Context, entryID uuid.UUID, actor shared.Actor) error {
	logger := s.loggerFor(actor)
	if err := requireActor(actor); err != nil {
		return err
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx uow.Repositories) error {
		return s.deleteDraft(ctx, tx, entryID, actor)
	})
	if err != nil {
		return s.rejected(logger, "delete draft", entryID.String(), err)
	}

	logger.Info("Draft entry deleted", "entry_id", entryID.String())
	return nil
}

func (s *PostingService) deleteDraft(ctx context.Context, tx uow.Repositories, entryID uuid.UUID, actor shared.Actor) error {
	entry, err := tx.Entries().GetForUpdate(ctx, entryID)
	if err != nil {
		return err
	}
	if err := entry.CheckTransition(ledger.OpDelete); err != nil {
		return err
	}
	if err := tx.Entries().DeleteDraft(ctx, entryID); err != nil {
		return err
	}
	return s.auditor.Record(ctx, tx, audit.Change{
		TenantID:   entry.TenantID,
		EntityType: audit.EntityJournalEntry,
		EntityID:   entry.ID,
		Action:     audit.ActionDelete,
		Before:     entry,
	}, actor)
}

// PostDraft validates a stored draft in full and moves it to posted. Of two
// concurrent posts of the same draft exactly one succeeds; the other gets
// ErrAlreadyPosted.
func (s *PostingService) PostDraft(ctx context.Context, entryID uuid.UUID, actor shared.Actor) (*ledger.Entry, error) {
	logger := s.loggerFor(actor)
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var entry *ledger.Entry
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx uow.Repositories) error {
		current, err := tx.Entries().GetForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if err := current.CheckTransition(ledger.OpPost); err != nil {
			return err
		}
		if err := s.validator.Validate(ctx, tx.Accounts(), current); err != nil {
			return err
		}

		before := current.Clone()
		if err := current.Post(actor.ID, s.now()); err != nil {
			return err
		}
		if err := tx.Entries().TransitionState(ctx, current, ledger.StateDraft); err != nil {
			if errors.As(err, new(ledger.ErrConcurrentModification)) {
				return ledger.ErrAlreadyPosted{EntryID: entryID}
			}
			return err
		}
		if err := s.auditor.Record(ctx, tx, audit.Change{
			TenantID:   current.TenantID,
			EntityType: audit.EntityJournalEntry,
			EntityID:   current.ID,
			Action:     audit.ActionUpdate,
			Before:     before,
			After:      current,
		}, actor); err != nil {
			return err
		}
		entry = current
		return s.outbox.Enqueue(ctx, tx, shared.EventEntryPosted, current, actor.CorrelationID)
	})
	if err != nil {
		return nil, s.rejected(logger, "post draft", entryID.String(), err)
	}

	logger.Info("Journal entry posted", "entry_id", entry.ID.String(), "reference", entry.Reference)
	return entry, nil
}

// PostEntry creates and posts a candidate in one unit of work.
func (s *PostingService) PostEntry(ctx context.Context, req ledger.EntryRequest, actor shared.Actor) (*ledger.Entry, error) {
	logger := s.loggerFor(actor)
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	entry, err := ledger.NewDraft(req, actor.ID)
	if err != nil {
		return nil, s.rejected(logger, "post entry", req.Reference, err)
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx uow.Repositories) error {
		if err := s.validator.Validate(ctx, tx.Accounts(), entry); err != nil {
			return err
		}
		if err := entry.Post(actor.ID, s.now()); err != nil {
			return err
		}
		if err := tx.Entries().Append(ctx, entry); err != nil {
			return err
		}
		if err := s.auditor.Record(ctx, tx, audit.Change{
			TenantID:   entry.TenantID,
			EntityType: audit.EntityJournalEntry,
			EntityID:   entry.ID,
			Action:     audit.ActionInsert,
			After:      entry,
		}, actor); err != nil {
			return err
		}
		return s.outbox.Enqueue(ctx, tx, shared.EventEntryPosted, entry, actor.CorrelationID)
	})
	if err != nil {
		return nil, s.rejected(logger, "post entry", entry.Reference, err)
	}

	logger.Info("Journal entry posted", "entry_id", entry.ID.String(), "reference", entry.Reference)
	return entry, nil
}

// ProcessEntry posts a candidate received from the message bus. A request
// whose reference is already posted is treated as a redelivery and returns
// the stored entry.
func (s *PostingService) ProcessEntry(ctx context.Context, request *ledger.EntryRequest) (*ledger.Entry, error) {
	actor := shared.Actor{ID: request.Actor, CorrelationID: request.CorrelationID}
	if actor.ID == "" {
		actor = shared.SystemActor("entry-processor")
		actor.CorrelationID = request.CorrelationID
	}
	logger := s.loggerFor(actor)

	existing, err := s.store.Entries().FindByReference(ctx, request.TenantID, request.Reference)
	switch {
	case err == nil && existing.State != ledger.StateDraft:
		logger.Info("Entry already processed, skipping", "entry_id", existing.ID.String(), "reference", existing.Reference)
		return existing, nil
	case err != nil && !errors.Is(err, ledger.ErrEntryNotFound{}):
		logger.Error("Failed to check entry idempotency", "reference", request.Reference, "error", err)
		return nil, shared.NewStorageError("check idempotency", err)
	}

	return s.PostEntry(ctx, *request, actor)
}

// ReverseEntry posts the mirror of a posted entry and marks the original
// reversed, both in one unit of work. It returns the reversal.
func (s *PostingService) ReverseEntry(ctx context.Context, entryID uuid.UUID, opts ReverseOptions) (*ledger.Entry, error) {
	actor := opts.Actor
	logger := s.loggerFor(actor)
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var reversal *ledger.Entry
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx uow.Repositories) error {
		original, err := tx.Entries().GetForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if err := original.CheckTransition(ledger.OpReverse); err != nil {
			return err
		}

		now := s.now()
		rev := original.Reversal(opts.Date, actor.ID)
		// The mirror of a balanced entry is balanced; this guards stored data
		// that predates validation. Accounts deactivated since the original
		// posted may still be reversed against.
		if err := errors.Join(ledger.CheckLineShape(rev.Lines), ledger.CheckBalance(rev.Lines)); err != nil {
			return err
		}
		if err := rev.Post(actor.ID, now); err != nil {
			return err
		}
		if err := tx.Entries().Append(ctx, rev); err != nil {
			return err
		}

		before := original.Clone()
		if err := original.MarkReversed(rev.ID, now); err != nil {
			return err
		}
		if err := tx.Entries().TransitionState(ctx, original, ledger.StatePosted); err != nil {
			if errors.As(err, new(ledger.ErrConcurrentModification)) {
				return ledger.ErrAlreadyReversed{EntryID: entryID}
			}
			return err
		}

		if err := s.auditor.Record(ctx, tx, audit.Change{
			TenantID:   rev.TenantID,
			EntityType: audit.EntityJournalEntry,
			EntityID:   rev.ID,
			Action:     audit.ActionInsert,
			After:      rev,
		}, actor); err != nil {
			return err
		}
		if err := s.auditor.Record(ctx, tx, audit.Change{
			TenantID:   original.TenantID,
			EntityType: audit.EntityJournalEntry,
			EntityID:   original.ID,
			Action:     audit.ActionUpdate,
			Before:     before,
			After:      original,
		}, actor); err != nil {
			return err
		}
		if err := s.outbox.Enqueue(ctx, tx, shared.EventEntryPosted, rev, actor.CorrelationID); err != nil {
			return err
		}
		if err := s.outbox.Enqueue(ctx, tx, shared.EventEntryReversed, original, actor.CorrelationID); err != nil {
			return err
		}
		reversal = rev
		return nil
	})
	if err != nil {
		return nil, s.rejected(logger, "reverse entry", entryID.String(), err)
	}

	logger.Info("Journal entry reversed",
		"entry_id", entryID.String(),
		"reversal_id", reversal.ID.String(),
		"reference", reversal.Reference,
	)
	return reversal, nil
}

func (s *PostingService) GetEntry(ctx context.Context, entryID uuid.UUID) (*ledger.Entry, error) {
	return s.store.Entries().Get(ctx, entryID)
}

func (s *PostingService) FindByReference(ctx context.Context, tenantID uuid.UUID, reference string) (*ledger.Entry, error) {
	return s.store.Entries().FindByReference(ctx, tenantID, reference)
}

// ListEntries returns one page of a tenant's entries, newest first, and the
// tenant's total entry count.
func (s *PostingService) ListEntries(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*ledger.Entry, int64, error) {
	entries, err := s.store.Entries().ListByTenant(ctx, tenantID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.Entries().CountByTenant(ctx, tenantID)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// PurgeStaleDrafts deletes up to limit drafts created more than retention
// ago. Each draft goes in its own unit of work so one failure does not hold
// back the rest; a draft posted in the meantime is skipped.
func (s *PostingService) PurgeStaleDrafts(ctx context.Context, retention time.Duration, limit int) (int, error) {
	if retention <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-retention)
	drafts, err := s.store.Entries().ListStaleDrafts(ctx, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale drafts: %w", err)
	}

	purged := 0
	var errs []error
	for _, draft := range drafts {
		err := s.store.WithinTx(ctx, func(ctx context.Context, tx uow.Repositories) error {
			return s.deleteDraft(ctx, tx, draft.ID, DraftSweeperActor)
		})
		switch {
		case err == nil:
			purged++
		case shared.KindOf(err) == shared.KindState || errors.Is(err, ledger.ErrEntryNotFound{}):
			s.logger.Info("Skipping draft changed since listing", "entry_id", draft.ID.String(), "error", err)
		default:
			s.logger.Error("Failed to purge stale draft", "entry_id", draft.ID.String(), "error", err)
			errs = append(errs, err)
		}
	}

	if purged > 0 {
		s.logger.Info("Purged stale drafts", "count", purged, "cutoff", cutoff)
	}
	return purged, errors.Join(errs...)
}

func (s *PostingService) loggerFor(actor shared.Actor) *slog.Logger {
	if actor.CorrelationID != "" {
		return s.logger.With("correlation_id", actor.CorrelationID)
	}
	return s.logger
}

// rejected logs a failed operation at the level its kind deserves and
// returns err unchanged. Rejections leave no audit record behind.
func (s *PostingService) rejected(logger *slog.Logger, op, subject string, err error) error {
	kind := shared.KindOf(err)
	if kind == shared.KindStorage {
		logger.Error("Ledger operation failed", "operation", op, "subject", subject, "error", err)
	} else {
		logger.Warn("Ledger operation rejected", "operation", op, "subject", subject, "kind", string(kind), "error", err)
	}
	return err
}

func requireActor(actor shared.Actor) error {
	if actor.ID == "" {
		return ledger.ErrInvalidEntry{Field: "actor", Reason: "is required"}
	}
	return nil
}
