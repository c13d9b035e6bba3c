package postgres

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/dinero-ledger/internal/domain/account"
	"github.com/dinero-ledger/internal/domain/ledger"
	"github.com/dinero-ledger/internal/platform/persistence"
)

const entryColumns = `id, tenant_id, reference, entry_date, description, source_type, state, reverses_entry_id, reversed_by_entry_id, created_by, created_at, posted_by, posted_at, reversed_at, version`

const lineColumns = `id, entry_id, line_number, account_id, counterparty_id, debit_amount::text, credit_amount::text, memo, tax_tag`

// EntryRepository implements ledger.Repository over journal_entries and
// journal_entry_lines. Amounts cross the wire as fixed point text.
type EntryRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewEntryRepository(logger *slog.Logger, db *persistence.PostgresDB) *EntryRepository {
	return &EntryRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *EntryRepository) WithTx(tx pgx.Tx) *EntryRepository {
	return &EntryRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func scanEntry(row pgx.Row) (*ledger.Entry, error) {
	var (
		e        ledger.Entry
		postedBy *string
	)
	err := row.Scan(
		&e.ID,
		&e.TenantID,
		&e.Reference,
		&e.EntryDate,
		&e.Description,
		&e.Source,
		&e.State,
		&e.ReversesEntryID,
		&e.ReversedByEntryID,
		&e.CreatedBy,
		&e.CreatedAt,
		&postedBy,
		&e.PostedAt,
		&e.ReversedAt,
		&e.Version,
	)
	if err != nil {
		return nil, err
	}
	if postedBy != nil {
		e.PostedBy = *postedBy
	}
	e.EntryDate = ledger.DateOf(e.EntryDate)
	return &e, nil
}

func scanLine(row pgx.Row) (ledger.Line, error) {
	var (
		l             ledger.Line
		debit, credit string
	)
	err := row.Scan(
		&l.ID,
		&l.EntryID,
		&l.LineNumber,
		&l.AccountID,
		&l.CounterpartyID,
		&debit,
		&credit,
		&l.Memo,
		&l.TaxTag,
	)
	if err != nil {
		return l, err
	}
	if err := setAmount(&l, debit, credit); err != nil {
		return l, err
	}
	return l, nil
}

// setAmount folds the two stored columns back into side and amount.
func setAmount(l *ledger.Line, debit, credit string) error {
	d, err := decimal.NewFromString(debit)
	if err != nil {
		return fmt.Errorf("invalid debit amount %q: %w", debit, err)
	}
	c, err := decimal.NewFromString(credit)
	if err != nil {
		return fmt.Errorf("invalid credit amount %q: %w", credit, err)
	}
	if d.IsPositive() {
		l.Side, l.Amount = ledger.SideDebit, d
	} else {
		l.Side, l.Amount = ledger.SideCredit, c
	}
	return nil
}

func lineColumnsFor(l ledger.Line) (debit, credit string) {
	zero := decimal.Zero.StringFixed(ledger.AmountScale)
	amount := l.Amount.StringFixed(ledger.AmountScale)
	if l.Side == ledger.SideDebit {
		return amount, zero
	}
	return zero, amount
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func dateBound(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Append inserts the header and then every line. Callers run it inside a
// transaction so a failing line leaves nothing behind.
func (r *EntryRepository) Append(ctx context.Context, entry *ledger.Entry) error {
	query := `
		INSERT INTO journal_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.querier.Exec(ctx, query,
		entry.ID,
		entry.TenantID,
		entry.Reference,
		entry.EntryDate,
		entry.Description,
		entry.Source,
		entry.State,
		entry.ReversesEntryID,
		entry.ReversedByEntryID,
		entry.CreatedBy,
		entry.CreatedAt,
		nullableString(entry.PostedBy),
		entry.PostedAt,
		entry.ReversedAt,
		entry.Version,
	)
	if err != nil {
		if isUniqueViolation(err, "uq_journal_entries_tenant_reference") {
			return ledger.ErrDuplicateReference{TenantID: entry.TenantID, Reference: entry.Reference}
		}
		if isUniqueViolation(err, "uq_journal_entries_reverses") && entry.ReversesEntryID != nil {
			return ledger.ErrAlreadyReversed{EntryID: *entry.ReversesEntryID}
		}
		r.logger.Error("Failed to insert journal entry", "reference", entry.Reference, "tenant_id", entry.TenantID.String(), "error", err)
		return fmt.Errorf("failed to insert journal entry: %w", err)
	}

	return r.insertLines(ctx, entry)
}

func (r *EntryRepository) insertLines(ctx context.Context, entry *ledger.Entry) error {
	query := `
		INSERT INTO journal_entry_lines (id, entry_id, line_number, account_id, counterparty_id, debit_amount, credit_amount, memo, tax_tag)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8, $9)
	`

	for _, l := range entry.Lines {
		debit, credit := lineColumnsFor(l)
		_, err := r.querier.Exec(ctx, query,
			l.ID,
			entry.ID,
			l.LineNumber,
			l.AccountID,
			l.CounterpartyID,
			debit,
			credit,
			l.Memo,
			l.TaxTag,
		)
		if err != nil {
			if isUniqueViolation(err, "uq_journal_entry_lines_number") {
				return ledger.ErrDuplicateLineNumber{LineNumber: l.LineNumber}
			}
			if code, _ := pgErrorCode(err); code == foreignKeyViolation {
				return account.ErrAccountNotFound{AccountID: l.AccountID}
			}
			r.logger.Error("Failed to insert journal entry line", "entry_id", entry.ID.String(), "line_number", l.LineNumber, "error", err)
			return fmt.Errorf("failed to insert journal entry line %d: %w", l.LineNumber, err)
		}
	}
	return nil
}

func (r *EntryRepository) Get(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM journal_entries
		WHERE id = $1
	`
	return r.getOne(ctx, "get journal entry", query, ledger.ErrEntryNotFound{EntryID: id}, id)
}

func (r *EntryRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM journal_entries
		WHERE id = $1
		FOR UPDATE
	`
	return r.getOne(ctx, "lock journal entry", query, ledger.ErrEntryNotFound{EntryID: id}, id)
}

func (r *EntryRepository) FindByReference(ctx context.Context, tenantID uuid.UUID, reference string) (*ledger.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM journal_entries
		WHERE tenant_id = $1 AND reference = $2
	`
	return r.getOne(ctx, "find journal entry by reference", query,
		ledger.ErrEntryNotFound{TenantID: tenantID, Reference: reference}, tenantID, reference)
}

func (r *EntryRepository) getOne(ctx context.Context, op, query string, notFound error, args ...interface{}) (*ledger.Entry, error) {
	entry, err := scanEntry(r.querier.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound
		}
		r.logger.Error("Failed to "+op, "error", err)
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}

	lines, err := r.loadLines(ctx, entry.ID)
	if err != nil {
		return nil, err
	}
	entry.Lines = lines
	return entry, nil
}

func (r *EntryRepository) loadLines(ctx context.Context, entryID uuid.UUID) ([]ledger.Line, error) {
	query := `
		SELECT ` + lineColumns + `
		FROM journal_entry_lines
		WHERE entry_id = $1
		ORDER BY line_number ASC
	`

	rows, err := r.querier.Query(ctx, query, entryID)
	if err != nil {
		r.logger.Error("Failed to load journal entry lines", "entry_id", entryID.String(), "error", err)
		return nil, fmt.Errorf("failed to load journal entry lines: %w", err)
	}
	defer rows.Close()

	lines := make([]ledger.Line, 0)
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan journal entry line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate journal entry lines: %w", err)
	}
	return lines, nil
}

func (r *EntryRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM journal_entries
		WHERE tenant_id = $1
		ORDER BY entry_date DESC, created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.listWithLines(ctx, "list journal entries", query, tenantID, limit, offset)
}

func (r *EntryRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM journal_entries
		WHERE tenant_id = $1
	`

	var count int64
	if err := r.querier.QueryRow(ctx, query, tenantID).Scan(&count); err != nil {
		r.logger.Error("Failed to count journal entries", "tenant_id", tenantID.String(), "error", err)
		return 0, fmt.Errorf("failed to count journal entries: %w", err)
	}
	return count, nil
}

func (r *EntryRepository) ListStaleDrafts(ctx context.Context, createdBefore time.Time, limit int) ([]*ledger.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM journal_entries
		WHERE state = 'draft' AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2
	`
	return r.listWithLines(ctx, "list stale drafts", query, createdBefore, limit)
}

func (r *EntryRepository) listWithLines(ctx context.Context, op, query string, args ...interface{}) ([]*ledger.Entry, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to "+op, "error", err)
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}

	entries := make([]*ledger.Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		entries = append(entries, entry)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate journal entries: %w", err)
	}

	// Lines are read after the header cursor is closed; a transaction
	// connection cannot run two queries at once.
	for _, entry := range entries {
		lines, err := r.loadLines(ctx, entry.ID)
		if err != nil {
			return nil, err
		}
		entry.Lines = lines
	}
	return entries, nil
}

// TransitionState writes the lifecycle columns when the stored state still
// equals from. A lost race surfaces as ErrConcurrentModification.
func (r *EntryRepository) TransitionState(ctx context.Context, entry *ledger.Entry, from ledger.State) error {
	query := `
		UPDATE journal_entries
		SET state = $1, posted_by = $2, posted_at = $3, reversed_by_entry_id = $4, reversed_at = $5, version = version + 1
		WHERE id = $6 AND state = $7
	`

	result, err := r.querier.Exec(ctx, query,
		entry.State,
		nullableString(entry.PostedBy),
		entry.PostedAt,
		entry.ReversedByEntryID,
		entry.ReversedAt,
		entry.ID,
		from,
	)
	if err != nil {
		r.logger.Error("Failed to transition journal entry", "id", entry.ID.String(), "from", from, "to", entry.State, "error", err)
		return fmt.Errorf("failed to transition journal entry: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ledger.ErrConcurrentModification{EntryID: entry.ID}
	}

	entry.Version++
	return nil
}

// UpdateDraft rewrites a draft's header and replaces its lines.
func (r *EntryRepository) UpdateDraft(ctx context.Context, entry *ledger.Entry) error {
	query := `
		UPDATE journal_entries
		SET description = $1, entry_date = $2, version = version + 1
		WHERE id = $3 AND state = 'draft' AND version = $4
	`

	result, err := r.querier.Exec(ctx, query, entry.Description, entry.EntryDate, entry.ID, entry.Version)
	if err != nil {
		r.logger.Error("Failed to update draft", "id", entry.ID.String(), "error", err)
		return fmt.Errorf("failed to update draft: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ledger.ErrConcurrentModification{EntryID: entry.ID}
	}

	if _, err := r.querier.Exec(ctx, `DELETE FROM journal_entry_lines WHERE entry_id = $1`, entry.ID); err != nil {
		r.logger.Error("Failed to clear draft lines", "id", entry.ID.String(), "error", err)
		return fmt.Errorf("failed to clear draft lines: %w", err)
	}
	if err := r.insertLines(ctx, entry); err != nil {
		return err
	}

	entry.Version++
	return nil
}

// DeleteDraft removes a draft. Lines go with it through the cascade.
func (r *EntryRepository) DeleteDraft(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM journal_entries
		WHERE id = $1 AND state = 'draft'
	`

	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete draft", "id", id.String(), "error", err)
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ledger.ErrConcurrentModification{EntryID: id}
	}
	return nil
}

// LinesForAccount streams the account's lines. Rows are read lazily and the
// cursor is closed when the consumer stops ranging.
func (r *EntryRepository) LinesForAccount(ctx context.Context, accountID uuid.UUID, dates ledger.DateRange) iter.Seq2[ledger.PostedLine, error] {
	query := `
		SELECT l.id, l.entry_id, l.line_number, l.account_id, l.counterparty_id, l.debit_amount::text, l.credit_amount::text, l.memo, l.tax_tag,
			e.tenant_id, e.entry_date, e.reference, e.state
		FROM journal_entry_lines l
		JOIN journal_entries e ON e.id = l.entry_id
		WHERE l.account_id = $1
			AND e.state IN ('posted', 'reversed')
			AND ($2::date IS NULL OR e.entry_date >= $2::date)
			AND ($3::date IS NULL OR e.entry_date <= $3::date)
		ORDER BY e.entry_date ASC, e.posted_at ASC, e.id ASC, l.line_number ASC
	`

	return func(yield func(ledger.PostedLine, error) bool) {
		rows, err := r.querier.Query(ctx, query, accountID, dateBound(dates.From), dateBound(dates.To))
		if err != nil {
			r.logger.Error("Failed to query account lines", "account_id", accountID.String(), "error", err)
			yield(ledger.PostedLine{}, fmt.Errorf("failed to query account lines: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var (
				pl            ledger.PostedLine
				debit, credit string
			)
			err := rows.Scan(
				&pl.ID,
				&pl.EntryID,
				&pl.LineNumber,
				&pl.AccountID,
				&pl.CounterpartyID,
				&debit,
				&credit,
				&pl.Memo,
				&pl.TaxTag,
				&pl.TenantID,
				&pl.EntryDate,
				&pl.Reference,
				&pl.EntryState,
			)
			if err == nil {
				err = setAmount(&pl.Line, debit, credit)
			}
			if err != nil {
				yield(ledger.PostedLine{}, fmt.Errorf("failed to scan account line: %w", err))
				return
			}
			pl.EntryDate = ledger.DateOf(pl.EntryDate)
			if !yield(pl, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(ledger.PostedLine{}, fmt.Errorf("failed to iterate account lines: %w", err))
		}
	}
}

func (r *EntryRepository) TotalsByAccount(ctx context.Context, tenantID uuid.UUID, dates ledger.DateRange) ([]ledger.AccountTotals, error) {
	query := `
		SELECT l.account_id, SUM(l.debit_amount)::text, SUM(l.credit_amount)::text
		FROM journal_entry_lines l
		JOIN journal_entries e ON e.id = l.entry_id
		WHERE e.tenant_id = $1
			AND e.state IN ('posted', 'reversed')
			AND ($2::date IS NULL OR e.entry_date >= $2::date)
			AND ($3::date IS NULL OR e.entry_date <= $3::date)
		GROUP BY l.account_id
	`

	rows, err := r.querier.Query(ctx, query, tenantID, dateBound(dates.From), dateBound(dates.To))
	if err != nil {
		r.logger.Error("Failed to total account lines", "tenant_id", tenantID.String(), "error", err)
		return nil, fmt.Errorf("failed to total account lines: %w", err)
	}
	defer rows.Close()

	totals := make([]ledger.AccountTotals, 0)
	for rows.Next() {
		var (
			t             ledger.AccountTotals
			debit, credit string
		)
		if err := rows.Scan(&t.AccountID, &debit, &credit); err != nil {
			return nil, fmt.Errorf("failed to scan account totals: %w", err)
		}
		if t.Debit, err = decimal.NewFromString(debit); err != nil {
			return nil, fmt.Errorf("invalid debit total %q: %w", debit, err)
		}
		if t.Credit, err = decimal.NewFromString(credit); err != nil {
			return nil, fmt.Errorf("invalid credit total %q: %w", credit, err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate account totals: %w", err)
	}
	return totals, nil
}

// HasActivity reports whether any posted or reversed line touches the account.
func (r *EntryRepository) HasActivity(ctx context.Context, accountID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM journal_entry_lines l
			JOIN journal_entries e ON e.id = l.entry_id
			WHERE l.account_id = $1 AND e.state IN ('posted', 'reversed')
		)
	`

	var exists bool
	if err := r.querier.QueryRow(ctx, query, accountID).Scan(&exists); err != nil {
		r.logger.Error("Failed to check account activity", "account_id", accountID.String(), "error", err)
		return false, fmt.Errorf("failed to check account activity: %w", err)
	}
	return exists, nil
}
