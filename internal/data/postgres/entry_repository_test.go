package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dinero-ledger/internal/domain/ledger"
	"github.com/dinero-ledger/internal/domain/shared"
)

var (
	entryRowColumns = []string{"id", "tenant_id", "reference", "entry_date", "description", "source_type", "state", "reverses_entry_id", "reversed_by_entry_id", "created_by", "created_at", "posted_by", "posted_at", "reversed_at", "version"}
	lineRowColumns  = []string{"id", "entry_id", "line_number", "account_id", "counterparty_id", "debit_amount", "credit_amount", "memo", "tax_tag"}
)

func testEntry(cash, revenue uuid.UUID) *ledger.Entry {
	id := uuid.New()
	return &ledger.Entry{
		ID:          id,
		TenantID:    uuid.New(),
		Reference:   "E1",
		EntryDate:   time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		Description: "Invoice 42",
		Source:      shared.SourceManual,
		State:       ledger.StateDraft,
		CreatedBy:   "user-1",
		CreatedAt:   time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC),
		Version:     1,
		Lines: []ledger.Line{
			{ID: uuid.New(), EntryID: id, LineNumber: 1, AccountID: cash, Side: ledger.SideDebit, Amount: decimal.RequireFromString("500.00")},
			{ID: uuid.New(), EntryID: id, LineNumber: 2, AccountID: revenue, Side: ledger.SideCredit, Amount: decimal.RequireFromString("500.00")},
		},
	}
}

func entryRows(e *ledger.Entry) *pgxmock.Rows {
	var postedBy *string
	if e.PostedBy != "" {
		postedBy = &e.PostedBy
	}
	return pgxmock.NewRows(entryRowColumns).AddRow(
		e.ID, e.TenantID, e.Reference, e.EntryDate, e.Description, e.Source, e.State,
		e.ReversesEntryID, e.ReversedByEntryID, e.CreatedBy, e.CreatedAt, postedBy, e.PostedAt, e.ReversedAt, e.Version,
	)
}

func lineRows(lines ...ledger.Line) *pgxmock.Rows {
	rows := pgxmock.NewRows(lineRowColumns)
	for _, l := range lines {
		debit, credit := lineColumnsFor(l)
		rows.AddRow(l.ID, l.EntryID, l.LineNumber, l.AccountID, l.CounterpartyID, debit, credit, l.Memo, l.TaxTag)
	}
	return rows
}

func TestEntryRepository_Append(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &EntryRepository{querier: mock, logger: newTestLogger()}
	cash, revenue := uuid.New(), uuid.New()
	headerQuery := regexp.QuoteMeta("INSERT INTO journal_entries (")
	lineQuery := regexp.QuoteMeta("INSERT INTO journal_entry_lines (")

	t.Run("header and lines", func(t *testing.T) {
		entry := testEntry(cash, revenue)
		mock.ExpectExec(headerQuery).
			WithArgs(entry.ID, entry.TenantID, "E1", entry.EntryDate, entry.Description, shared.SourceManual, ledger.StateDraft,
				entry.ReversesEntryID, entry.ReversedByEntryID, "user-1", entry.CreatedAt, (*string)(nil), entry.PostedAt, entry.ReversedAt, 1).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec(lineQuery).
			WithArgs(entry.Lines[0].ID, entry.ID, 1, cash, (*uuid.UUID)(nil), "500.00", "0.00", "", "").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec(lineQuery).
			WithArgs(entry.Lines[1].ID, entry.ID, 2, revenue, (*uuid.UUID)(nil), "0.00", "500.00", "", "").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.Append(ctx, entry))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate reference", func(t *testing.T) {
		entry := testEntry(cash, revenue)
		mock.ExpectExec(headerQuery).
			WithArgs(anyArgs(15)...).
			WillReturnError(&pgconn.PgError{Code: uniqueViolation, ConstraintName: "uq_journal_entries_tenant_reference"})

		err := repo.Append(ctx, entry)
		assert.ErrorIs(t, err, ledger.ErrDuplicateReference{TenantID: entry.TenantID, Reference: "E1"})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("second reversal of the same entry", func(t *testing.T) {
		entry := testEntry(cash, revenue)
		original := uuid.New()
		entry.ReversesEntryID = &original
		mock.ExpectExec(headerQuery).
			WithArgs(anyArgs(15)...).
			WillReturnError(&pgconn.PgError{Code: uniqueViolation, ConstraintName: "uq_journal_entries_reverses"})

		err := repo.Append(ctx, entry)
		assert.ErrorIs(t, err, ledger.ErrAlreadyReversed{EntryID: original})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown account on a line", func(t *testing.T) {
		entry := testEntry(cash, revenue)
		mock.ExpectExec(headerQuery).WithArgs(anyArgs(15)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec(lineQuery).WithArgs(anyArgs(9)...).WillReturnError(&pgconn.PgError{Code: foreignKeyViolation})

		err := repo.Append(ctx, entry)
		assert.Equal(t, shared.KindReferential, shared.KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEntryRepository_Get(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &EntryRepository{querier: mock, logger: newTestLogger()}
	stored := testEntry(uuid.New(), uuid.New())
	postedAt := time.Date(2026, 1, 16, 10, 0, 0, 0, time.UTC)
	stored.State = ledger.StatePosted
	stored.PostedBy = "user-2"
	stored.PostedAt = &postedAt

	t.Run("header with ordered lines", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("FROM journal_entries WHERE id = $1")).
			WithArgs(stored.ID).
			WillReturnRows(entryRows(stored))
		mock.ExpectQuery(regexp.QuoteMeta("FROM journal_entry_lines WHERE entry_id = $1 ORDER BY line_number ASC")).
			WithArgs(stored.ID).
			WillReturnRows(lineRows(stored.Lines...))

		entry, err := repo.Get(ctx, stored.ID)
		require.NoError(t, err)
		assert.Equal(t, ledger.StatePosted, entry.State)
		assert.Equal(t, "user-2", entry.PostedBy)
		require.Len(t, entry.Lines, 2)
		assert.Equal(t, ledger.SideDebit, entry.Lines[0].Side)
		assert.True(t, entry.Lines[0].Amount.Equal(decimal.NewFromInt(500)))
		assert.Equal(t, ledger.SideCredit, entry.Lines[1].Side)
		assert.True(t, entry.Lines[1].Amount.Equal(decimal.NewFromInt(500)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("FROM journal_entries WHERE id = $1")).
			WithArgs(stored.ID).
			WillReturnError(pgx.ErrNoRows)

		entry, err := repo.Get(ctx, stored.ID)
		assert.Nil(t, entry)
		assert.ErrorIs(t, err, ledger.ErrEntryNotFound{EntryID: stored.ID})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEntryRepository_TransitionState(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &EntryRepository{querier: mock, logger: newTestLogger()}
	query := regexp.QuoteMeta("UPDATE journal_entries SET state = $1, posted_by = $2, posted_at = $3, reversed_by_entry_id = $4, reversed_at = $5, version = version + 1 WHERE id = $6 AND state = $7")

	t.Run("posted", func(t *testing.T) {
		entry := testEntry(uuid.New(), uuid.New())
		require.NoError(t, entry.Post("user-2", time.Now()))
		mock.ExpectExec(query).
			WithArgs(ledger.StatePosted, pgxmock.AnyArg(), entry.PostedAt, entry.ReversedByEntryID, entry.ReversedAt, entry.ID, ledger.StateDraft).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.TransitionState(ctx, entry, ledger.StateDraft))
		assert.Equal(t, 2, entry.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lost race", func(t *testing.T) {
		entry := testEntry(uuid.New(), uuid.New())
		require.NoError(t, entry.Post("user-2", time.Now()))
		mock.ExpectExec(query).
			WithArgs(ledger.StatePosted, pgxmock.AnyArg(), entry.PostedAt, entry.ReversedByEntryID, entry.ReversedAt, entry.ID, ledger.StateDraft).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.TransitionState(ctx, entry, ledger.StateDraft)
		assert.ErrorIs(t, err, ledger.ErrConcurrentModification{EntryID: entry.ID})
		assert.Equal(t, shared.KindState, shared.KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEntryRepository_UpdateDraft(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &EntryRepository{querier: mock, logger: newTestLogger()}
	entry := testEntry(uuid.New(), uuid.New())

	mock.ExpectExec(regexp.QuoteMeta("UPDATE journal_entries SET description = $1, entry_date = $2, version = version + 1 WHERE id = $3 AND state = 'draft' AND version = $4")).
		WithArgs(entry.Description, entry.EntryDate, entry.ID, 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM journal_entry_lines WHERE entry_id = $1")).
		WithArgs(entry.ID).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO journal_entry_lines (")).
		WithArgs(entry.Lines[0].ID, entry.ID, 1, entry.Lines[0].AccountID, (*uuid.UUID)(nil), "500.00", "0.00", "", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO journal_entry_lines (")).
		WithArgs(entry.Lines[1].ID, entry.ID, 2, entry.Lines[1].AccountID, (*uuid.UUID)(nil), "0.00", "500.00", "", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.UpdateDraft(ctx, entry))
	assert.Equal(t, 2, entry.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepository_DeleteDraft(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &EntryRepository{querier: mock, logger: newTestLogger()}
	id := uuid.New()
	query := regexp.QuoteMeta("DELETE FROM journal_entries WHERE id = $1 AND state = 'draft'")

	mock.ExpectExec(query).WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	assert.NoError(t, repo.DeleteDraft(ctx, id))

	mock.ExpectExec(query).WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	assert.ErrorIs(t, repo.DeleteDraft(ctx, id), ledger.ErrConcurrentModification{EntryID: id})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepository_LinesForAccount(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &EntryRepository{querier: mock, logger: newTestLogger()}
	accountID, tenantID := uuid.New(), uuid.New()
	to := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	columns := append(append([]string{}, lineRowColumns...), "tenant_id", "entry_date", "reference", "state")
	query := regexp.QuoteMeta("FROM journal_entry_lines l JOIN journal_entries e ON e.id = l.entry_id WHERE l.account_id = $1")

	newRows := func() *pgxmock.Rows {
		return pgxmock.NewRows(columns).
			AddRow(uuid.New(), uuid.New(), 1, accountID, (*uuid.UUID)(nil), "50000.00", "0.00", "", "", tenantID, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), "E1", ledger.StateReversed).
			AddRow(uuid.New(), uuid.New(), 2, accountID, (*uuid.UUID)(nil), "0.00", "50000.00", "", "", tenantID, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), "E1-REV", ledger.StatePosted)
	}

	t.Run("yields every line in order", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(accountID, (*time.Time)(nil), &to).WillReturnRows(newRows())

		var refs []string
		net := decimal.Zero
		for line, err := range repo.LinesForAccount(ctx, accountID, ledger.AsOf(to)) {
			require.NoError(t, err)
			refs = append(refs, line.Reference)
			net = net.Add(line.Debit()).Sub(line.Credit())
		}
		assert.Equal(t, []string{"E1", "E1-REV"}, refs)
		assert.True(t, net.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stops early", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(accountID, (*time.Time)(nil), (*time.Time)(nil)).WillReturnRows(newRows())

		count := 0
		for _, err := range repo.LinesForAccount(ctx, accountID, ledger.DateRange{}) {
			require.NoError(t, err)
			count++
			break
		}
		assert.Equal(t, 1, count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query failure is yielded", func(t *testing.T) {
		dbErr := errors.New("connection reset")
		mock.ExpectQuery(query).WithArgs(accountID, (*time.Time)(nil), (*time.Time)(nil)).WillReturnError(dbErr)

		var got error
		for _, err := range repo.LinesForAccount(ctx, accountID, ledger.DateRange{}) {
			got = err
		}
		assert.ErrorIs(t, got, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEntryRepository_TotalsByAccount(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &EntryRepository{querier: mock, logger: newTestLogger()}
	tenantID, cash, revenue := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY l.account_id")).
		WithArgs(tenantID, (*time.Time)(nil), (*time.Time)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{"account_id", "debit", "credit"}).
			AddRow(cash, "750.50", "0.00").
			AddRow(revenue, "0.00", "750.50"))

	totals, err := repo.TotalsByAccount(ctx, tenantID, ledger.DateRange{})
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, cash, totals[0].AccountID)
	assert.Equal(t, "750.5", totals[0].Debit.String())
	assert.True(t, totals[1].Credit.Equal(totals[0].Debit))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepository_HasActivity(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &EntryRepository{querier: mock, logger: newTestLogger()}
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.HasActivity(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
