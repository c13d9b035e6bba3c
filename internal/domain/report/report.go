// Package report holds the read-side shapes derived from posted lines.
package report

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dinero-ledger/internal/domain/account"
)

// NetBalance applies the sign convention: debit minus credit for
// debit-normal accounts, credit minus debit for the rest.
func NetBalance(t account.Type, debit, credit decimal.Decimal) decimal.Decimal {
	if t.DebitNormal() {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

// AccountBalance is the balance of one account as of a date.
type AccountBalance struct {
	AccountID   uuid.UUID       `json:"account_id"`
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	AccountType account.Type    `json:"account_type"`
	AsOf        time.Time       `json:"as_of"`
	DebitTotal  decimal.Decimal `json:"debit_total"`
	CreditTotal decimal.Decimal `json:"credit_total"`
	Balance     decimal.Decimal `json:"balance"`
	LineCount   int             `json:"line_count"`
}

// AccountActivity is one account's movement over a period.
type AccountActivity struct {
	AccountID   uuid.UUID       `json:"account_id"`
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	AccountType account.Type    `json:"account_type"`
	Active      bool            `json:"active"`
	DebitTotal  decimal.Decimal `json:"debit_total"`
	CreditTotal decimal.Decimal `json:"credit_total"`
	NetBalance  decimal.Decimal `json:"net_balance"`
}

// RawNet is debit minus credit regardless of account type.
func (a AccountActivity) RawNet() decimal.Decimal {
	return a.DebitTotal.Sub(a.CreditTotal)
}

// TrialBalance lists every account with non-zero movement up to AsOf.
type TrialBalance struct {
	TenantID     uuid.UUID         `json:"tenant_id"`
	AsOf         time.Time         `json:"as_of"`
	Rows         []AccountActivity `json:"rows"`
	TotalDebits  decimal.Decimal   `json:"total_debits"`
	TotalCredits decimal.Decimal   `json:"total_credits"`
}

// Imbalance is zero for any ledger that only ever accepted balanced entries.
func (tb *TrialBalance) Imbalance() decimal.Decimal {
	return tb.TotalDebits.Sub(tb.TotalCredits)
}

func (tb *TrialBalance) IsBalanced() bool {
	return tb.Imbalance().IsZero()
}
