package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dinero-ledger/internal/data/memory"
	"github.com/dinero-ledger/internal/domain/account"
	"github.com/dinero-ledger/internal/domain/audit"
	"github.com/dinero-ledger/internal/domain/ledger"
	"github.com/dinero-ledger/internal/domain/shared"
	"github.com/dinero-ledger/internal/domain/uow"
)

type MockEntryValidator struct {
	mock.Mock
}

func (m *MockEntryValidator) Validate(ctx context.Context, accounts account.Repository, entry *ledger.Entry) error {
	args := m.Called(ctx, accounts, entry)
	return args.Error(0)
}

func (m *MockEntryValidator) ValidateDraft(ctx context.Context, accounts account.Repository, entry *ledger.Entry) error {
	args := m.Called(ctx, accounts, entry)
	return args.Error(0)
}

type MockAuditRecorder struct {
	mock.Mock
}

func (m *MockAuditRecorder) Record(ctx context.Context, repos uow.Repositories, change audit.Change, actor shared.Actor) error {
	args := m.Called(ctx, repos, change, actor)
	return args.Error(0)
}

type MockOutboxManager struct {
	mock.Mock
}

func (m *MockOutboxManager) Enqueue(ctx context.Context, repos uow.Repositories, eventType shared.EventType, entry *ledger.Entry, correlationID string) error {
	args := m.Called(ctx, repos, eventType, entry, correlationID)
	return args.Error(0)
}

type postingFixture struct {
	store     *memory.Store
	validator *MockEntryValidator
	auditor   *MockAuditRecorder
	outbox    *MockOutboxManager
	service   *PostingService
	tenantID  uuid.UUID
	cash      *account.Account
	revenue   *account.Account
	actor     shared.Actor
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newPostingFixture(t *testing.T) *postingFixture {
	t.Helper()
	f := &postingFixture{
		store:     memory.NewStore(),
		validator: new(MockEntryValidator),
		auditor:   new(MockAuditRecorder),
		outbox:    new(MockOutboxManager),
		tenantID:  uuid.New(),
		actor:     shared.Actor{ID: "user-1", CorrelationID: "corr-1"},
	}
	f.service = NewPostingService(f.store, f.validator, f.auditor, f.outbox, newTestLogger())

	var err error
	f.cash, err = account.NewAccount(f.tenantID, "1010", "Cash", account.TypeAsset, nil)
	require.NoError(t, err)
	f.revenue, err = account.NewAccount(f.tenantID, "4010", "Sales Revenue", account.TypeIncome, nil)
	require.NoError(t, err)
	require.NoError(t, f.store.Accounts().Create(context.Background(), f.cash))
	require.NoError(t, f.store.Accounts().Create(context.Background(), f.revenue))
	return f
}

func (f *postingFixture) request(reference, debit, credit string) ledger.EntryRequest {
	return ledger.EntryRequest{
		TenantID:  f.tenantID,
		Reference: reference,
		EntryDate: time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
		Lines: []ledger.LineRequest{
			{AccountID: f.cash.ID, Side: ledger.SideDebit, Amount: decimal.RequireFromString(debit)},
			{AccountID: f.revenue.ID, Side: ledger.SideCredit, Amount: decimal.RequireFromString(credit)},
		},
	}
}

func (f *postingFixture) acceptAll() {
	f.validator.On("Validate", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.validator.On("ValidateDraft", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.auditor.On("Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.outbox.On("Enqueue", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

func TestPostEntry_Success(t *testing.T) {
	f := newPostingFixture(t)
	f.acceptAll()

	entry, err := f.service.PostEntry(context.Background(), f.request("E1", "500.00", "500.00"), f.actor)

	require.NoError(t, err)
	assert.Equal(t, ledger.StatePosted, entry.State)
	assert.Equal(t, "user-1", entry.PostedBy)
	assert.NotNil(t, entry.PostedAt)

	stored, err := f.store.Entries().Get(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatePosted, stored.State)

	f.auditor.AssertCalled(t, "Record", mock.Anything, mock.Anything, mock.MatchedBy(func(c audit.Change) bool {
		return c.Action == audit.ActionInsert && c.EntityID == entry.ID && c.Before == nil
	}), f.actor)
	f.outbox.AssertCalled(t, "Enqueue", mock.Anything, mock.Anything, shared.EventEntryPosted, mock.Anything, "corr-1")
}

func TestPostEntry_RejectionWritesNothing(t *testing.T) {
	f := newPostingFixture(t)
	unbalanced := ledger.ErrUnbalanced{
		DebitTotal:  decimal.RequireFromString("100"),
		CreditTotal: decimal.RequireFromString("90"),
	}
	f.validator.On("Validate", mock.Anything, mock.Anything, mock.Anything).Return(unbalanced)

	_, err := f.service.PostEntry(context.Background(), f.request("E1", "100.00", "90.00"), f.actor)

	require.Error(t, err)
	assert.ErrorIs(t, err, unbalanced)
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))
	f.auditor.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.outbox.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	_, err = f.store.Entries().FindByReference(context.Background(), f.tenantID, "E1")
	assert.ErrorIs(t, err, ledger.ErrEntryNotFound{})
}

func TestPostEntry_AuditFailureRollsBack(t *testing.T) {
	f := newPostingFixture(t)
	f.validator.On("Validate", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.auditor.On("Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(shared.NewStorageError("record audit", errors.New("disk full")))

	_, err := f.service.PostEntry(context.Background(), f.request("E1", "500.00", "500.00"), f.actor)

	require.Error(t, err)
	assert.Equal(t, shared.KindStorage, shared.KindOf(err))

	_, err = f.store.Entries().FindByReference(context.Background(), f.tenantID, "E1")
	assert.ErrorIs(t, err, ledger.ErrEntryNotFound{})
	pending, err := f.store.Outbox().GetPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
	f.outbox.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPostEntry_RequiresActor(t *testing.T) {
	f := newPostingFixture(t)

	_, err := f.service.PostEntry(context.Background(), f.request("E1", "1.00", "1.00"), shared.Actor{})

	var invalid ledger.ErrInvalidEntry
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "actor", invalid.Field)
}

func TestPostDraft_TransitionsAndRejectsRepost(t *testing.T) {
	f := newPostingFixture(t)
	f.acceptAll()
	ctx := context.Background()

	draft, err := f.service.CreateDraft(ctx, f.request("E1", "10.00", "10.00"), f.actor)
	require.NoError(t, err)
	assert.Equal(t, ledger.StateDraft, draft.State)

	posted, err := f.service.PostDraft(ctx, draft.ID, f.actor)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatePosted, posted.State)
	assert.Equal(t, draft.Version+1, posted.Version)

	_, err = f.service.PostDraft(ctx, draft.ID, f.actor)
	assert.ErrorIs(t, err, ledger.ErrAlreadyPosted{EntryID: draft.ID})
	assert.Equal(t, shared.KindState, shared.KindOf(err))
	f.outbox.AssertNumberOfCalls(t, "Enqueue", 1)
}

func TestUpdateDraft_PostedEntryIsImmutable(t *testing.T) {
	f := newPostingFixture(t)
	f.acceptAll()
	ctx := context.Background()

	entry, err := f.service.PostEntry(ctx, f.request("E1", "10.00", "10.00"), f.actor)
	require.NoError(t, err)

	_, err = f.service.UpdateDraft(ctx, entry.ID, DraftUpdate{
		Description: "changed",
		Lines:       f.request("E1", "99.00", "99.00").Lines,
	}, f.actor)
	assert.ErrorIs(t, err, ledger.ErrImmutableEntry{EntryID: entry.ID})

	err = f.service.DeleteDraft(ctx, entry.ID, f.actor)
	assert.ErrorIs(t, err, ledger.ErrImmutableEntry{EntryID: entry.ID})

	stored, err := f.store.Entries().Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, stored.Lines[0].Amount.Equal(decimal.RequireFromString("10")))
}

func TestUpdateDraft_ReplacesLines(t *testing.T) {
	f := newPostingFixture(t)
	f.acceptAll()
	ctx := context.Background()

	draft, err := f.service.CreateDraft(ctx, f.request("E1", "10.00", "12.00"), f.actor)
	require.NoError(t, err)

	updated, err := f.service.UpdateDraft(ctx, draft.ID, DraftUpdate{
		Description: "fixed",
		Lines:       f.request("E1", "12.00", "12.00").Lines,
	}, f.actor)
	require.NoError(t, err)
	assert.Equal(t, "fixed", updated.Description)

	stored, err := f.store.Entries().Get(ctx, draft.ID)
	require.NoError(t, err)
	debit, credit := stored.Totals()
	assert.True(t, debit.Equal(credit))
	f.auditor.AssertCalled(t, "Record", mock.Anything, mock.Anything, mock.MatchedBy(func(c audit.Change) bool {
		return c.Action == audit.ActionUpdate && c.Before != nil && c.After != nil
	}), f.actor)
}

func TestReverseEntry(t *testing.T) {
	f := newPostingFixture(t)
	f.acceptAll()
	ctx := context.Background()

	original, err := f.service.PostEntry(ctx, f.request("E1", "500.00", "500.00"), f.actor)
	require.NoError(t, err)

	reversal, err := f.service.ReverseEntry(ctx, original.ID, ReverseOptions{Actor: f.actor})
	require.NoError(t, err)

	assert.Equal(t, "E1-REV", reversal.Reference)
	assert.Equal(t, ledger.StatePosted, reversal.State)
	assert.Equal(t, original.EntryDate, reversal.EntryDate)
	assert.Equal(t, shared.SourceSystemGenerated, reversal.Source)
	require.NotNil(t, reversal.ReversesEntryID)
	assert.Equal(t, original.ID, *reversal.ReversesEntryID)
	for i, line := range reversal.Lines {
		assert.Equal(t, original.Lines[i].AccountID, line.AccountID)
		assert.Equal(t, original.Lines[i].Side.Opposite(), line.Side)
		assert.True(t, original.Lines[i].Amount.Equal(line.Amount))
	}

	stored, err := f.store.Entries().Get(ctx, original.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StateReversed, stored.State)
	require.NotNil(t, stored.ReversedByEntryID)
	assert.Equal(t, reversal.ID, *stored.ReversedByEntryID)

	_, err = f.service.ReverseEntry(ctx, original.ID, ReverseOptions{Actor: f.actor})
	assert.ErrorIs(t, err, ledger.ErrAlreadyReversed{EntryID: original.ID})

	f.outbox.AssertCalled(t, "Enqueue", mock.Anything, mock.Anything, shared.EventEntryReversed, mock.Anything, "corr-1")
}

func TestReverseEntry_DraftCannotBeReversed(t *testing.T) {
	f := newPostingFixture(t)
	f.acceptAll()
	ctx := context.Background()

	draft, err := f.service.CreateDraft(ctx, f.request("E1", "1.00", "1.00"), f.actor)
	require.NoError(t, err)

	_, err = f.service.ReverseEntry(ctx, draft.ID, ReverseOptions{Actor: f.actor})
	assert.ErrorIs(t, err, ledger.ErrImmutableEntry{EntryID: draft.ID})
}

func TestProcessEntry_SkipsRedelivery(t *testing.T) {
	f := newPostingFixture(t)
	f.acceptAll()
	ctx := context.Background()

	req := f.request("E1", "5.00", "5.00")
	req.CorrelationID = "corr-9"
	first, err := f.service.ProcessEntry(ctx, &req)
	require.NoError(t, err)
	assert.Equal(t, "system:entry-processor", first.PostedBy)

	second, err := f.service.ProcessEntry(ctx, &req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	f.outbox.AssertNumberOfCalls(t, "Enqueue", 1)
}

func TestPurgeStaleDrafts(t *testing.T) {
	f := newPostingFixture(t)
	f.acceptAll()
	ctx := context.Background()

	draft, err := f.service.CreateDraft(ctx, f.request("D1", "1.00", "2.00"), f.actor)
	require.NoError(t, err)
	posted, err := f.service.PostEntry(ctx, f.request("P1", "1.00", "1.00"), f.actor)
	require.NoError(t, err)

	purged, err := f.service.PurgeStaleDrafts(ctx, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, purged)

	f.service.now = func() time.Time { return time.Now().UTC().Add(48 * time.Hour) }
	purged, err = f.service.PurgeStaleDrafts(ctx, 24*time.Hour, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	_, err = f.store.Entries().Get(ctx, draft.ID)
	assert.ErrorIs(t, err, ledger.ErrEntryNotFound{})
	_, err = f.store.Entries().Get(ctx, posted.ID)
	assert.NoError(t, err)
	f.auditor.AssertCalled(t, "Record", mock.Anything, mock.Anything, mock.MatchedBy(func(c audit.Change) bool {
		return c.Action == audit.ActionDelete && c.EntityID == draft.ID
	}), DraftSweeperActor)
}
