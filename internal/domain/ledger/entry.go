package ledger

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dinero-ledger/internal/domain/shared"
)

// Side is the column a line's amount is booked in.
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

func (s Side) Valid() bool {
	return s == SideDebit || s == SideCredit
}

// Opposite swaps debit and credit.
func (s Side) Opposite() Side {
	if s == SideDebit {
		return SideCredit
	}
	return SideDebit
}

// State is the lifecycle state of a journal entry.
type State string

const (
	StateDraft    State = "draft"
	StatePosted   State = "posted"
	StateReversed State = "reversed"
)

// ReversalSuffix is appended to the original reference to name its reversal.
const ReversalSuffix = "-REV"

// Widths of the reference and tax tag columns, in bytes.
const (
	MaxReferenceLength = 50
	MaxTaxTagLength    = 50
)

// Line is one debit or credit movement against a single account.
type Line struct {
	ID             uuid.UUID       `json:"id"`
	EntryID        uuid.UUID       `json:"entry_id"`
	LineNumber     int             `json:"line_number"`
	AccountID      uuid.UUID       `json:"account_id"`
	CounterpartyID *uuid.UUID      `json:"counterparty_id,omitempty"`
	Side           Side            `json:"side"`
	Amount         decimal.Decimal `json:"amount"`
	Memo           string          `json:"memo,omitempty"`
	TaxTag         string          `json:"tax_tag,omitempty"`
}

// Debit returns the amount if the line is a debit, zero otherwise.
func (l Line) Debit() decimal.Decimal {
	if l.Side == SideDebit {
		return l.Amount
	}
	return decimal.Zero
}

// Credit returns the amount if the line is a credit, zero otherwise.
func (l Line) Credit() decimal.Decimal {
	if l.Side == SideCredit {
		return l.Amount
	}
	return decimal.Zero
}

// Entry is a journal entry together with its ordered lines.
type Entry struct {
	ID                uuid.UUID         `json:"id"`
	TenantID          uuid.UUID         `json:"tenant_id"`
	Reference         string            `json:"reference"`
	EntryDate         time.Time         `json:"entry_date"`
	Description       string            `json:"description"`
	Source            shared.SourceType `json:"source"`
	State             State             `json:"state"`
	ReversesEntryID   *uuid.UUID        `json:"reverses_entry_id,omitempty"`
	ReversedByEntryID *uuid.UUID        `json:"reversed_by_entry_id,omitempty"`
	Lines             []Line            `json:"lines"`
	CreatedBy         string            `json:"created_by"`
	CreatedAt         time.Time         `json:"created_at"`
	PostedBy          string            `json:"posted_by,omitempty"`
	PostedAt          *time.Time        `json:"posted_at,omitempty"`
	ReversedAt        *time.Time        `json:"reversed_at,omitempty"`
	Version           int               `json:"version"`
}

// DateOf truncates t to a calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewDraft builds a draft entry from a candidate. Line shape and balance are
// not checked here; posting does that.
func NewDraft(req EntryRequest, createdBy string) (*Entry, error) {
	reference := strings.TrimSpace(req.Reference)
	switch {
	case req.TenantID == uuid.Nil:
		return nil, ErrInvalidEntry{Field: "tenant_id", Reason: "is required"}
	case reference == "":
		return nil, ErrInvalidEntry{Field: "reference", Reason: "is required"}
	case len(reference) > MaxReferenceLength:
		return nil, ErrInvalidEntry{Field: "reference", Reason: fmt.Sprintf("must be at most %d characters", MaxReferenceLength)}
	case req.EntryDate.IsZero():
		return nil, ErrInvalidEntry{Field: "entry_date", Reason: "is required"}
	case len(req.Lines) == 0:
		return nil, ErrInvalidEntry{Field: "lines", Reason: "entry must have at least one line"}
	}

	source := req.Source
	if source == "" {
		source = shared.SourceManual
	}
	if !source.Valid() {
		return nil, ErrInvalidEntry{Field: "source", Reason: "unknown source type " + string(source)}
	}

	entry := &Entry{
		ID:          uuid.New(),
		TenantID:    req.TenantID,
		Reference:   reference,
		EntryDate:   DateOf(req.EntryDate),
		Description: strings.TrimSpace(req.Description),
		Source:      source,
		State:       StateDraft,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now().UTC(),
		Version:     1,
	}
	entry.setLines(req.Lines)
	return entry, nil
}

func (e *Entry) setLines(reqs []LineRequest) {
	lines := make([]Line, len(reqs))
	for i, r := range reqs {
		number := r.LineNumber
		if number == 0 {
			number = i + 1
		}
		lines[i] = Line{
			ID:             uuid.New(),
			EntryID:        e.ID,
			LineNumber:     number,
			AccountID:      r.AccountID,
			CounterpartyID: r.CounterpartyID,
			Side:           r.Side,
			Amount:         r.Amount,
			Memo:           strings.TrimSpace(r.Memo),
			TaxTag:         r.TaxTag,
		}
	}
	e.Lines = lines
}

// Totals sums both columns of the entry.
func (e *Entry) Totals() (debit, credit decimal.Decimal) {
	return Totals(e.Lines)
}

// AccountIDs returns the distinct accounts touched by the entry, in line order.
func (e *Entry) AccountIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(e.Lines))
	ids := make([]uuid.UUID, 0, len(e.Lines))
	for _, l := range e.Lines {
		if _, ok := seen[l.AccountID]; ok {
			continue
		}
		seen[l.AccountID] = struct{}{}
		ids = append(ids, l.AccountID)
	}
	return ids
}

// Clone returns a deep copy, used for audit images and by stores that must
// not share memory with callers.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	c.ReversesEntryID = cloneID(e.ReversesEntryID)
	c.ReversedByEntryID = cloneID(e.ReversedByEntryID)
	c.PostedAt = cloneTime(e.PostedAt)
	c.ReversedAt = cloneTime(e.ReversedAt)
	c.Lines = make([]Line, len(e.Lines))
	for i, l := range e.Lines {
		l.CounterpartyID = cloneID(l.CounterpartyID)
		c.Lines[i] = l
	}
	return &c
}

// ReversalReference names the reversal of the entry with the given reference
// and id. A reference too long to take ReversalSuffix is cut short and tagged
// with the start of the original's id, so the result never exceeds
// MaxReferenceLength and reversals of distinct originals stay distinct.
func ReversalReference(reference string, original uuid.UUID) string {
	if len(reference)+len(ReversalSuffix) <= MaxReferenceLength {
		return reference + ReversalSuffix
	}
	tag := "-" + original.String()[:8]
	n := MaxReferenceLength - len(tag) - len(ReversalSuffix)
	for n > 0 && !utf8.RuneStart(reference[n]) {
		n--
	}
	return reference[:n] + tag + ReversalSuffix
}

// Reversal builds the draft that offsets e: same accounts and amounts with
// the sides swapped, linked back to e.
func (e *Entry) Reversal(date time.Time, createdBy string) *Entry {
	if date.IsZero() {
		date = e.EntryDate
	}
	original := e.ID
	rev := &Entry{
		ID:              uuid.New(),
		TenantID:        e.TenantID,
		Reference:       ReversalReference(e.Reference, original),
		EntryDate:       DateOf(date),
		Description:     "Reversal of " + e.Reference,
		Source:          shared.SourceSystemGenerated,
		State:           StateDraft,
		ReversesEntryID: &original,
		CreatedBy:       createdBy,
		CreatedAt:       time.Now().UTC(),
		Version:         1,
	}
	rev.Lines = make([]Line, len(e.Lines))
	for i, l := range e.Lines {
		rev.Lines[i] = Line{
			ID:             uuid.New(),
			EntryID:        rev.ID,
			LineNumber:     l.LineNumber,
			AccountID:      l.AccountID,
			CounterpartyID: cloneID(l.CounterpartyID),
			Side:           l.Side.Opposite(),
			Amount:         l.Amount,
			Memo:           l.Memo,
			TaxTag:         l.TaxTag,
		}
	}
	return rev
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
