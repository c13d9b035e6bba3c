package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dinero-ledger/internal/domain/shared"
)

// ErrInvalidEntry reports a malformed entry header.
type ErrInvalidEntry struct {
	Field  string
	Reason string
}

func (e ErrInvalidEntry) Error() string {
	return fmt.Sprintf("invalid entry %s: %s", e.Field, e.Reason)
}

func (e ErrInvalidEntry) Kind() shared.ErrorKind { return shared.KindValidation }

// ErrInvalidLine reports a line with a bad shape.
type ErrInvalidLine struct {
	LineNumber int
	Reason     string
}

func (e ErrInvalidLine) Error() string {
	return fmt.Sprintf("invalid line %d: %s", e.LineNumber, e.Reason)
}

func (e ErrInvalidLine) Kind() shared.ErrorKind { return shared.KindValidation }

// ErrDuplicateLineNumber reports two lines sharing a number.
type ErrDuplicateLineNumber struct {
	LineNumber int
}

func (e ErrDuplicateLineNumber) Error() string {
	return fmt.Sprintf("duplicate line number %d", e.LineNumber)
}

func (e ErrDuplicateLineNumber) Kind() shared.ErrorKind { return shared.KindValidation }

// ErrUnbalanced carries both totals of an entry whose columns differ.
type ErrUnbalanced struct {
	DebitTotal  decimal.Decimal
	CreditTotal decimal.Decimal
}

func (e ErrUnbalanced) Error() string {
	return fmt.Sprintf("entry is unbalanced: debits %s, credits %s", e.DebitTotal.StringFixed(AmountScale), e.CreditTotal.StringFixed(AmountScale))
}

func (e ErrUnbalanced) Kind() shared.ErrorKind { return shared.KindValidation }

// Is matches any ErrUnbalanced when both target totals are zero.
func (e ErrUnbalanced) Is(target error) bool {
	t, ok := target.(ErrUnbalanced)
	if !ok {
		return false
	}
	if t.DebitTotal.IsZero() && t.CreditTotal.IsZero() {
		return true
	}
	return e.DebitTotal.Equal(t.DebitTotal) && e.CreditTotal.Equal(t.CreditTotal)
}

// ErrInvalidDateRange reports a range whose start follows its end.
type ErrInvalidDateRange struct {
	Range DateRange
}

func (e ErrInvalidDateRange) Error() string {
	return fmt.Sprintf("invalid date range: %s is after %s", e.Range.From.Format(time.DateOnly), e.Range.To.Format(time.DateOnly))
}

func (e ErrInvalidDateRange) Kind() shared.ErrorKind { return shared.KindValidation }

// ErrEntryNotFound indicates missing journal entry
type ErrEntryNotFound struct {
	EntryID   uuid.UUID
	TenantID  uuid.UUID
	Reference string
}

func (e ErrEntryNotFound) Error() string {
	if e.Reference != "" {
		return fmt.Sprintf("journal entry not found: reference %q in tenant %s", e.Reference, e.TenantID)
	}
	return "journal entry not found: " + e.EntryID.String()
}

func (e ErrEntryNotFound) Kind() shared.ErrorKind { return shared.KindReferential }

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	if t.EntryID == uuid.Nil && t.Reference == "" {
		return true
	}
	return e.EntryID == t.EntryID && e.Reference == t.Reference
}

// ErrDuplicateReference indicates (tenant, reference) uniqueness violation
type ErrDuplicateReference struct {
	TenantID  uuid.UUID
	Reference string
}

func (e ErrDuplicateReference) Error() string {
	return fmt.Sprintf("reference %q already exists for tenant %s", e.Reference, e.TenantID)
}

func (e ErrDuplicateReference) Kind() shared.ErrorKind { return shared.KindReferential }

func (e ErrDuplicateReference) Is(target error) bool {
	t, ok := target.(ErrDuplicateReference)
	if !ok {
		return false
	}
	return t.Reference == "" || t.Reference == e.Reference
}

// ErrAlreadyPosted rejects a second post of the same entry.
type ErrAlreadyPosted struct {
	EntryID uuid.UUID
}

func (e ErrAlreadyPosted) Error() string {
	return "journal entry already posted: " + e.EntryID.String()
}

func (e ErrAlreadyPosted) Kind() shared.ErrorKind { return shared.KindState }

func (e ErrAlreadyPosted) Is(target error) bool {
	t, ok := target.(ErrAlreadyPosted)
	return ok && (t.EntryID == uuid.Nil || t.EntryID == e.EntryID)
}

// ErrAlreadyReversed rejects a second reversal of the same entry.
type ErrAlreadyReversed struct {
	EntryID uuid.UUID
}

func (e ErrAlreadyReversed) Error() string {
	return "journal entry already reversed: " + e.EntryID.String()
}

func (e ErrAlreadyReversed) Kind() shared.ErrorKind { return shared.KindState }

func (e ErrAlreadyReversed) Is(target error) bool {
	t, ok := target.(ErrAlreadyReversed)
	return ok && (t.EntryID == uuid.Nil || t.EntryID == e.EntryID)
}

// ErrImmutableEntry rejects any other operation the entry's state forbids.
type ErrImmutableEntry struct {
	EntryID   uuid.UUID
	State     State
	Operation Operation
}

func (e ErrImmutableEntry) Error() string {
	return fmt.Sprintf("journal entry %s is %s: %s not allowed", e.EntryID, e.State, e.Operation)
}

func (e ErrImmutableEntry) Kind() shared.ErrorKind { return shared.KindState }

func (e ErrImmutableEntry) Is(target error) bool {
	t, ok := target.(ErrImmutableEntry)
	return ok && (t.EntryID == uuid.Nil || t.EntryID == e.EntryID)
}

// ErrConcurrentModification indicates the stored entry changed under a
// conditional update.
type ErrConcurrentModification struct {
	EntryID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for journal entry: " + e.EntryID.String()
}

func (e ErrConcurrentModification) Kind() shared.ErrorKind { return shared.KindState }
