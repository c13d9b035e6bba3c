package ledger

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits a line amount may carry.
const AmountScale = 2

// maxAmount is the exclusive upper bound of NUMERIC(14,2).
var maxAmount = decimal.New(1, 12)

// Totals sums the debit and credit columns.
func Totals(lines []Line) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, l := range lines {
		debit = debit.Add(l.Debit())
		credit = credit.Add(l.Credit())
	}
	return debit, credit
}

// CheckBalance requires the debit and credit totals to be exactly equal.
func CheckBalance(lines []Line) error {
	debit, credit := Totals(lines)
	if !debit.Equal(credit) {
		return ErrUnbalanced{DebitTotal: debit, CreditTotal: credit}
	}
	return nil
}

// CheckLineShape requires every line to book a single positive amount of at
// most AmountScale decimals on one side against a named account.
func CheckLineShape(lines []Line) error {
	if len(lines) == 0 {
		return ErrInvalidEntry{Field: "lines", Reason: "entry must have at least one line"}
	}
	var errs []error
	for _, l := range lines {
		switch {
		case l.AccountID == uuid.Nil:
			errs = append(errs, ErrInvalidLine{LineNumber: l.LineNumber, Reason: "account is required"})
		case !l.Side.Valid():
			errs = append(errs, ErrInvalidLine{LineNumber: l.LineNumber, Reason: fmt.Sprintf("side must be debit or credit, got %q", l.Side)})
		case !l.Amount.IsPositive():
			errs = append(errs, ErrInvalidLine{LineNumber: l.LineNumber, Reason: "amount must be greater than zero"})
		case !l.Amount.Equal(l.Amount.Truncate(AmountScale)):
			errs = append(errs, ErrInvalidLine{LineNumber: l.LineNumber, Reason: fmt.Sprintf("amount %s has more than %d decimal places", l.Amount, AmountScale)})
		case l.Amount.GreaterThanOrEqual(maxAmount):
			errs = append(errs, ErrInvalidLine{LineNumber: l.LineNumber, Reason: "amount exceeds the supported range"})
		case len(l.TaxTag) > MaxTaxTagLength:
			errs = append(errs, ErrInvalidLine{LineNumber: l.LineNumber, Reason: fmt.Sprintf("tax tag must be at most %d characters", MaxTaxTagLength)})
		}
	}
	return errors.Join(errs...)
}

// CheckLineNumbers requires positive line numbers, unique within the entry.
func CheckLineNumbers(lines []Line) error {
	seen := make(map[int]struct{}, len(lines))
	var errs []error
	for _, l := range lines {
		if l.LineNumber <= 0 {
			errs = append(errs, ErrInvalidLine{LineNumber: l.LineNumber, Reason: "line number must be positive"})
			continue
		}
		if _, dup := seen[l.LineNumber]; dup {
			errs = append(errs, ErrDuplicateLineNumber{LineNumber: l.LineNumber})
			continue
		}
		seen[l.LineNumber] = struct{}{}
	}
	return errors.Join(errs...)
}
