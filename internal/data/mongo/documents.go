package mongo

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dinero-ledger/internal/domain/account"
	"github.com/dinero-ledger/internal/domain/ledger"
	"github.com/dinero-ledger/internal/domain/report"
	"github.com/dinero-ledger/internal/domain/shared"
	"github.com/dinero-ledger/internal/domain/snapshot"
)

// Documents keep identifiers and amounts as strings so the collections stay
// readable from the shell and decimals survive without float rounding.

type lineDocument struct {
	ID             string `bson:"id"`
	LineNumber     int    `bson:"line_number"`
	AccountID      string `bson:"account_id"`
	CounterpartyID string `bson:"counterparty_id,omitempty"`
	Side           string `bson:"side"`
	Amount         string `bson:"amount"`
	Memo           string `bson:"memo,omitempty"`
	TaxTag         string `bson:"tax_tag,omitempty"`
}

type entryDocument struct {
	ID                string         `bson:"_id"`
	TenantID          string         `bson:"tenant_id"`
	Reference         string         `bson:"reference"`
	EntryDate         time.Time      `bson:"entry_date"`
	Description       string         `bson:"description"`
	Source            string         `bson:"source"`
	State             string         `bson:"state"`
	ReversesEntryID   string         `bson:"reverses_entry_id,omitempty"`
	ReversedByEntryID string         `bson:"reversed_by_entry_id,omitempty"`
	Lines             []lineDocument `bson:"lines"`
	AccountIDs        []string       `bson:"account_ids"`
	DebitTotal        string         `bson:"debit_total"`
	CreditTotal       string         `bson:"credit_total"`
	CreatedBy         string         `bson:"created_by"`
	CreatedAt         time.Time      `bson:"created_at"`
	PostedBy          string         `bson:"posted_by,omitempty"`
	PostedAt          *time.Time     `bson:"posted_at,omitempty"`
	ReversedAt        *time.Time     `bson:"reversed_at,omitempty"`
	Version           int            `bson:"version"`
	SyncedAt          time.Time      `bson:"synced_at"`
}

func optionalID(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func parseOptionalID(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func newEntryDocument(e *ledger.Entry) entryDocument {
	debit, credit := e.Totals()
	doc := entryDocument{
		ID:                e.ID.String(),
		TenantID:          e.TenantID.String(),
		Reference:         e.Reference,
		EntryDate:         e.EntryDate,
		Description:       e.Description,
		Source:            string(e.Source),
		State:             string(e.State),
		ReversesEntryID:   optionalID(e.ReversesEntryID),
		ReversedByEntryID: optionalID(e.ReversedByEntryID),
		Lines:             make([]lineDocument, len(e.Lines)),
		DebitTotal:        debit.StringFixed(ledger.AmountScale),
		CreditTotal:       credit.StringFixed(ledger.AmountScale),
		CreatedBy:         e.CreatedBy,
		CreatedAt:         e.CreatedAt,
		PostedBy:          e.PostedBy,
		PostedAt:          e.PostedAt,
		ReversedAt:        e.ReversedAt,
		Version:           e.Version,
		SyncedAt:          time.Now().UTC(),
	}
	for i, l := range e.Lines {
		doc.Lines[i] = lineDocument{
			ID:             l.ID.String(),
			LineNumber:     l.LineNumber,
			AccountID:      l.AccountID.String(),
			CounterpartyID: optionalID(l.CounterpartyID),
			Side:           string(l.Side),
			Amount:         l.Amount.StringFixed(ledger.AmountScale),
			Memo:           l.Memo,
			TaxTag:         l.TaxTag,
		}
	}
	for _, id := range e.AccountIDs() {
		doc.AccountIDs = append(doc.AccountIDs, id.String())
	}
	return doc
}

func (d entryDocument) toEntry() (*ledger.Entry, error) {
	var err error
	e := &ledger.Entry{
		Reference:   d.Reference,
		EntryDate:   ledger.DateOf(d.EntryDate),
		Description: d.Description,
		Source:      shared.SourceType(d.Source),
		State:       ledger.State(d.State),
		CreatedBy:   d.CreatedBy,
		CreatedAt:   d.CreatedAt,
		PostedBy:    d.PostedBy,
		PostedAt:    d.PostedAt,
		ReversedAt:  d.ReversedAt,
		Version:     d.Version,
		Lines:       make([]ledger.Line, len(d.Lines)),
	}
	if e.ID, err = uuid.Parse(d.ID); err != nil {
		return nil, fmt.Errorf("invalid entry id %q: %w", d.ID, err)
	}
	if e.TenantID, err = uuid.Parse(d.TenantID); err != nil {
		return nil, fmt.Errorf("invalid tenant id %q: %w", d.TenantID, err)
	}
	if e.ReversesEntryID, err = parseOptionalID(d.ReversesEntryID); err != nil {
		return nil, fmt.Errorf("invalid reverses_entry_id: %w", err)
	}
	if e.ReversedByEntryID, err = parseOptionalID(d.ReversedByEntryID); err != nil {
		return nil, fmt.Errorf("invalid reversed_by_entry_id: %w", err)
	}

	for i, ld := range d.Lines {
		l := ledger.Line{
			EntryID:    e.ID,
			LineNumber: ld.LineNumber,
			Side:       ledger.Side(ld.Side),
			Memo:       ld.Memo,
			TaxTag:     ld.TaxTag,
		}
		if l.ID, err = uuid.Parse(ld.ID); err != nil {
			return nil, fmt.Errorf("invalid line id %q: %w", ld.ID, err)
		}
		if l.AccountID, err = uuid.Parse(ld.AccountID); err != nil {
			return nil, fmt.Errorf("invalid account id %q: %w", ld.AccountID, err)
		}
		if l.CounterpartyID, err = parseOptionalID(ld.CounterpartyID); err != nil {
			return nil, fmt.Errorf("invalid counterparty id: %w", err)
		}
		if l.Amount, err = decimal.NewFromString(ld.Amount); err != nil {
			return nil, fmt.Errorf("invalid amount %q: %w", ld.Amount, err)
		}
		e.Lines[i] = l
	}
	return e, nil
}

type activityDocument struct {
	AccountID   string `bson:"account_id"`
	AccountCode string `bson:"account_code"`
	AccountName string `bson:"account_name"`
	AccountType string `bson:"account_type"`
	Active      bool   `bson:"active"`
	DebitTotal  string `bson:"debit_total"`
	CreditTotal string `bson:"credit_total"`
	NetBalance  string `bson:"net_balance"`
}

type snapshotDocument struct {
	TenantID         string             `bson:"tenant_id"`
	MonthLabel       string             `bson:"month_label"`
	PeriodStart      time.Time          `bson:"period_start"`
	PeriodEnd        time.Time          `bson:"period_end"`
	Revenue          string             `bson:"revenue"`
	Expenses         string             `bson:"expenses"`
	Profit           string             `bson:"profit"`
	ProfitMargin     string             `bson:"profit_margin"`
	TotalAssets      string             `bson:"total_assets"`
	TotalLiabilities string             `bson:"total_liabilities"`
	TotalEquity      string             `bson:"total_equity"`
	Accounts         []activityDocument `bson:"accounts"`
	GeneratedAt      time.Time          `bson:"generated_at"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(ledger.AmountScale)
}

func newSnapshotDocument(s *snapshot.PeriodSnapshot) snapshotDocument {
	doc := snapshotDocument{
		TenantID:         s.TenantID.String(),
		MonthLabel:       s.MonthLabel,
		PeriodStart:      s.PeriodStart,
		PeriodEnd:        s.PeriodEnd,
		Revenue:          money(s.Revenue),
		Expenses:         money(s.Expenses),
		Profit:           money(s.Profit),
		ProfitMargin:     money(s.ProfitMargin),
		TotalAssets:      money(s.TotalAssets),
		TotalLiabilities: money(s.TotalLiabilities),
		TotalEquity:      money(s.TotalEquity),
		Accounts:         make([]activityDocument, len(s.Accounts)),
		GeneratedAt:      s.GeneratedAt,
	}
	for i, a := range s.Accounts {
		doc.Accounts[i] = activityDocument{
			AccountID:   a.AccountID.String(),
			AccountCode: a.AccountCode,
			AccountName: a.AccountName,
			AccountType: string(a.AccountType),
			Active:      a.Active,
			DebitTotal:  money(a.DebitTotal),
			CreditTotal: money(a.CreditTotal),
			NetBalance:  money(a.NetBalance),
		}
	}
	return doc
}

// decimals parses every named string into its target, stopping at the first
// failure.
func decimals(fields map[string]string, targets map[string]*decimal.Decimal) error {
	for name, raw := range fields {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, raw, err)
		}
		*targets[name] = v
	}
	return nil
}

func (d snapshotDocument) toSnapshot() (*snapshot.PeriodSnapshot, error) {
	tenantID, err := uuid.Parse(d.TenantID)
	if err != nil {
		return nil, fmt.Errorf("invalid tenant id %q: %w", d.TenantID, err)
	}
	s := &snapshot.PeriodSnapshot{
		TenantID:    tenantID,
		MonthLabel:  d.MonthLabel,
		PeriodStart: d.PeriodStart.UTC(),
		PeriodEnd:   d.PeriodEnd.UTC(),
		Accounts:    make([]report.AccountActivity, len(d.Accounts)),
		GeneratedAt: d.GeneratedAt,
	}
	err = decimals(map[string]string{
		"revenue":           d.Revenue,
		"expenses":          d.Expenses,
		"profit":            d.Profit,
		"profit_margin":     d.ProfitMargin,
		"total_assets":      d.TotalAssets,
		"total_liabilities": d.TotalLiabilities,
		"total_equity":      d.TotalEquity,
	}, map[string]*decimal.Decimal{
		"revenue":           &s.Revenue,
		"expenses":          &s.Expenses,
		"profit":            &s.Profit,
		"profit_margin":     &s.ProfitMargin,
		"total_assets":      &s.TotalAssets,
		"total_liabilities": &s.TotalLiabilities,
		"total_equity":      &s.TotalEquity,
	})
	if err != nil {
		return nil, err
	}

	for i, ad := range d.Accounts {
		a := report.AccountActivity{
			AccountCode: ad.AccountCode,
			AccountName: ad.AccountName,
			AccountType: account.Type(ad.AccountType),
			Active:      ad.Active,
		}
		if a.AccountID, err = uuid.Parse(ad.AccountID); err != nil {
			return nil, fmt.Errorf("invalid account id %q: %w", ad.AccountID, err)
		}
		err = decimals(map[string]string{
			"debit_total":  ad.DebitTotal,
			"credit_total": ad.CreditTotal,
			"net_balance":  ad.NetBalance,
		}, map[string]*decimal.Decimal{
			"debit_total":  &a.DebitTotal,
			"credit_total": &a.CreditTotal,
			"net_balance":  &a.NetBalance,
		})
		if err != nil {
			return nil, err
		}
		s.Accounts[i] = a
	}
	return s, nil
}
