// Package snapshot defines the monthly financial summary kept in the
// reporting store. Snapshots are recomputed from the ledger at any time.
package snapshot

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dinero-ledger/internal/domain/account"
	"github.com/dinero-ledger/internal/domain/report"
)

// PeriodSnapshot summarises one tenant month.
type PeriodSnapshot struct {
	TenantID         uuid.UUID                `json:"tenant_id"`
	MonthLabel       string                   `json:"month_label"`
	PeriodStart      time.Time                `json:"period_start"`
	PeriodEnd        time.Time                `json:"period_end"`
	Revenue          decimal.Decimal          `json:"revenue"`
	Expenses         decimal.Decimal          `json:"expenses"`
	Profit           decimal.Decimal          `json:"profit"`
	ProfitMargin     decimal.Decimal          `json:"profit_margin"`
	TotalAssets      decimal.Decimal          `json:"total_assets"`
	TotalLiabilities decimal.Decimal          `json:"total_liabilities"`
	TotalEquity      decimal.Decimal          `json:"total_equity"`
	Accounts         []report.AccountActivity `json:"accounts"`
	GeneratedAt      time.Time                `json:"generated_at"`
}

// Repository stores snapshots keyed by tenant and month label.
type Repository interface {
	Upsert(ctx context.Context, s *PeriodSnapshot) error
	Get(ctx context.Context, tenantID uuid.UUID, monthLabel string) (*PeriodSnapshot, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]*PeriodSnapshot, error)
}

// ErrSnapshotNotFound indicates no snapshot exists for the month.
type ErrSnapshotNotFound struct {
	TenantID   uuid.UUID
	MonthLabel string
}

func (e ErrSnapshotNotFound) Error() string {
	return "snapshot not found: " + e.TenantID.String() + " " + e.MonthLabel
}

// MonthBounds returns the first and last calendar day of t's month.
func MonthBounds(t time.Time) (start, end time.Time) {
	y, m, _ := t.UTC().Date()
	start = time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, -1)
	return start, end
}

// MonthLabel formats t as YYYY-MM.
func MonthLabel(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// Build derives the snapshot from the month's movement and the closing
// positions at the end of the month.
func Build(tenantID uuid.UUID, month time.Time, movement, closing []report.AccountActivity) *PeriodSnapshot {
	start, end := MonthBounds(month)
	s := &PeriodSnapshot{
		TenantID:         tenantID,
		MonthLabel:       MonthLabel(start),
		PeriodStart:      start,
		PeriodEnd:        end,
		Revenue:          decimal.Zero,
		Expenses:         decimal.Zero,
		ProfitMargin:     decimal.Zero,
		TotalAssets:      decimal.Zero,
		TotalLiabilities: decimal.Zero,
		TotalEquity:      decimal.Zero,
		Accounts:         movement,
		GeneratedAt:      time.Now().UTC(),
	}

	for _, a := range movement {
		switch a.AccountType {
		case account.TypeIncome:
			s.Revenue = s.Revenue.Add(a.NetBalance)
		case account.TypeExpense:
			s.Expenses = s.Expenses.Add(a.NetBalance)
		}
	}
	s.Profit = s.Revenue.Sub(s.Expenses)
	if !s.Revenue.IsZero() {
		s.ProfitMargin = s.Profit.Mul(decimal.NewFromInt(100)).DivRound(s.Revenue, 2)
	}

	for _, a := range closing {
		switch a.AccountType {
		case account.TypeAsset:
			s.TotalAssets = s.TotalAssets.Add(a.NetBalance)
		case account.TypeLiability:
			s.TotalLiabilities = s.TotalLiabilities.Add(a.NetBalance)
		case account.TypeEquity:
			s.TotalEquity = s.TotalEquity.Add(a.NetBalance)
		}
	}
	return s
}
