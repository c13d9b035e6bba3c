package ledger

import (
	"context"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateRange is an inclusive range of entry dates. A zero bound is open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// AsOf is the open-start range ending at asOf.
func AsOf(asOf time.Time) DateRange {
	return DateRange{To: DateOf(asOf)}
}

// Normalize truncates both bounds to dates and rejects inverted ranges.
func (r DateRange) Normalize() (DateRange, error) {
	n := DateRange{}
	if !r.From.IsZero() {
		n.From = DateOf(r.From)
	}
	if !r.To.IsZero() {
		n.To = DateOf(r.To)
	}
	if !n.From.IsZero() && !n.To.IsZero() && n.From.After(n.To) {
		return n, ErrInvalidDateRange{Range: n}
	}
	return n, nil
}

// Contains reports whether the date d falls inside the range.
func (r DateRange) Contains(d time.Time) bool {
	d = DateOf(d)
	if !r.From.IsZero() && d.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && d.After(r.To) {
		return false
	}
	return true
}

// PostedLine is a line of a posted or reversed entry with the header fields
// needed for ordering and display.
type PostedLine struct {
	Line
	TenantID   uuid.UUID `json:"tenant_id"`
	EntryDate  time.Time `json:"entry_date"`
	Reference  string    `json:"reference"`
	EntryState State     `json:"entry_state"`
}

// AccountTotals is the sum of both columns for one account.
type AccountTotals struct {
	AccountID uuid.UUID
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// Repository is the ledger store. Only the posting service writes through it.
type Repository interface {
	// Append stores the header and every line atomically.
	Append(ctx context.Context, entry *Entry) error
	Get(ctx context.Context, id uuid.UUID) (*Entry, error)
	// GetForUpdate loads the entry and locks it for the rest of the transaction.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Entry, error)
	FindByReference(ctx context.Context, tenantID uuid.UUID, reference string) (*Entry, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*Entry, error)
	CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// TransitionState persists the lifecycle fields of entry provided the
	// stored state is still from.
	TransitionState(ctx context.Context, entry *Entry, from State) error
	// UpdateDraft rewrites the header text, date and lines of a draft.
	UpdateDraft(ctx context.Context, entry *Entry) error
	// DeleteDraft removes a draft and its lines.
	DeleteDraft(ctx context.Context, id uuid.UUID) error
	ListStaleDrafts(ctx context.Context, createdBefore time.Time, limit int) ([]*Entry, error)

	// LinesForAccount yields posted and reversed lines of the account ordered
	// by entry date, posting time and line number. Each range over the
	// sequence re-reads the store.
	LinesForAccount(ctx context.Context, accountID uuid.UUID, dates DateRange) iter.Seq2[PostedLine, error]
	// TotalsByAccount sums posted and reversed lines per account of a tenant.
	TotalsByAccount(ctx context.Context, tenantID uuid.UUID, dates DateRange) ([]AccountTotals, error)
	HasActivity(ctx context.Context, accountID uuid.UUID) (bool, error)
}
