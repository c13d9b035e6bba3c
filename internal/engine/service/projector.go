package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dinero-ledger/internal/domain/account"
	"github.com/dinero-ledger/internal/domain/ledger"
	"github.com/dinero-ledger/internal/domain/report"
	"github.com/dinero-ledger/internal/domain/uow"
)

// Projector derives balances from posted lines. It holds no state: every
// call re-reads the ledger, so results always match the current lines.
type Projector struct {
	store  uow.Repositories
	logger *slog.Logger
}

func NewProjector(store uow.Repositories, logger *slog.Logger) *Projector {
	return &Projector{store: store, logger: logger}
}

// AccountBalance folds every posted line of the account dated on or before
// asOf. Reversed entries and their reversals both count, so they cancel.
func (p *Projector) AccountBalance(ctx context.Context, accountID uuid.UUID, asOf time.Time) (*report.AccountBalance, error) {
	acc, err := p.store.Accounts().GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	balance := &report.AccountBalance{
		AccountID:   acc.ID,
		AccountCode: acc.Code,
		AccountName: acc.Name,
		AccountType: acc.Type,
		AsOf:        ledger.DateOf(asOf),
		DebitTotal:  decimal.Zero,
		CreditTotal: decimal.Zero,
	}
	for line, err := range p.store.Entries().LinesForAccount(ctx, accountID, ledger.AsOf(asOf)) {
		if err != nil {
			return nil, fmt.Errorf("failed to read lines for account %s: %w", accountID, err)
		}
		balance.DebitTotal = balance.DebitTotal.Add(line.Debit())
		balance.CreditTotal = balance.CreditTotal.Add(line.Credit())
		balance.LineCount++
	}
	balance.Balance = report.NetBalance(acc.Type, balance.DebitTotal, balance.CreditTotal)
	return balance, nil
}

// AccountLines returns the account's posted lines within dates, in ledger
// order.
func (p *Projector) AccountLines(ctx context.Context, accountID uuid.UUID, dates ledger.DateRange) ([]ledger.PostedLine, error) {
	dates, err := dates.Normalize()
	if err != nil {
		return nil, err
	}
	if _, err := p.store.Accounts().GetByID(ctx, accountID); err != nil {
		return nil, err
	}
	var lines []ledger.PostedLine
	for line, err := range p.store.Entries().LinesForAccount(ctx, accountID, dates) {
		if err != nil {
			return nil, fmt.Errorf("failed to read lines for account %s: %w", accountID, err)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// TrialBalance lists every account, active or not, whose net movement up to
// asOf is non-zero. Totals come from one read of the ledger so a concurrent
// post is either fully in or fully out.
func (p *Projector) TrialBalance(ctx context.Context, tenantID uuid.UUID, asOf time.Time) (*report.TrialBalance, error) {
	rows, err := p.activity(ctx, tenantID, ledger.AsOf(asOf), func(a report.AccountActivity) bool {
		return !a.RawNet().IsZero()
	})
	if err != nil {
		return nil, err
	}

	tb := &report.TrialBalance{
		TenantID:     tenantID,
		AsOf:         ledger.DateOf(asOf),
		Rows:         rows,
		TotalDebits:  decimal.Zero,
		TotalCredits: decimal.Zero,
	}
	for _, row := range rows {
		tb.TotalDebits = tb.TotalDebits.Add(row.DebitTotal)
		tb.TotalCredits = tb.TotalCredits.Add(row.CreditTotal)
	}
	if !tb.IsBalanced() {
		p.logger.Error("Trial balance does not net to zero",
			"tenant_id", tenantID.String(),
			"imbalance", tb.Imbalance().StringFixed(ledger.AmountScale),
		)
	}
	return tb, nil
}

// PeriodActivity returns the movement of every account that has any line
// within dates.
func (p *Projector) PeriodActivity(ctx context.Context, tenantID uuid.UUID, dates ledger.DateRange) ([]report.AccountActivity, error) {
	dates, err := dates.Normalize()
	if err != nil {
		return nil, err
	}
	return p.activity(ctx, tenantID, dates, func(a report.AccountActivity) bool {
		return !a.DebitTotal.IsZero() || !a.CreditTotal.IsZero()
	})
}

func (p *Projector) activity(ctx context.Context, tenantID uuid.UUID, dates ledger.DateRange, keep func(report.AccountActivity) bool) ([]report.AccountActivity, error) {
	totals, err := p.store.Entries().TotalsByAccount(ctx, tenantID, dates)
	if err != nil {
		return nil, fmt.Errorf("failed to total lines for tenant %s: %w", tenantID, err)
	}
	accounts, err := p.store.Accounts().ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*account.Account, len(accounts))
	for _, acc := range accounts {
		byID[acc.ID] = acc
	}

	rows := make([]report.AccountActivity, 0, len(totals))
	for _, t := range totals {
		acc, ok := byID[t.AccountID]
		if !ok {
			p.logger.Error("Posted lines reference an account outside the chart",
				"tenant_id", tenantID.String(),
				"account_id", t.AccountID.String(),
			)
			return nil, account.ErrAccountNotFound{AccountID: t.AccountID}
		}
		row := report.AccountActivity{
			AccountID:   acc.ID,
			AccountCode: acc.Code,
			AccountName: acc.Name,
			AccountType: acc.Type,
			Active:      acc.Active,
			DebitTotal:  t.Debit,
			CreditTotal: t.Credit,
			NetBalance:  report.NetBalance(acc.Type, t.Debit, t.Credit),
		}
		if keep(row) {
			rows = append(rows, row)
		}
	}
	slices.SortFunc(rows, func(a, b report.AccountActivity) int {
		if a.AccountCode < b.AccountCode {
			return -1
		}
		if a.AccountCode > b.AccountCode {
			return 1
		}
		return 0
	})
	return rows, nil
}
