package handler

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dinero-ledger/internal/domain/account"
	"github.com/dinero-ledger/internal/domain/ledger"
	"github.com/dinero-ledger/internal/domain/shared"
)

// Dates travel as calendar days.
const dateLayout = time.DateOnly

type CreateAccountRequest struct {
	Code        string `json:"code" binding:"required,max=20"`
	Name        string `json:"name" binding:"required,max=200"`
	Description string `json:"description"`
	Type        string `json:"type" binding:"required,oneof=asset liability equity income expense"`
	ParentID    string `json:"parent_id" binding:"omitempty,uuid"`
}

// UpdateAccountRequest changes only the fields present in the body.
type UpdateAccountRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=200"`
	Description *string `json:"description"`
	Type        *string `json:"type" binding:"omitempty,oneof=asset liability equity income expense"`
	ParentID    *string `json:"parent_id" binding:"omitempty,uuid"`
	ClearParent bool    `json:"clear_parent"`
}

type AccountResponse struct {
	ID              string  `json:"id"`
	TenantID        string  `json:"tenant_id"`
	Code            string  `json:"code"`
	Name            string  `json:"name"`
	Description     string  `json:"description,omitempty"`
	Type            string  `json:"type"`
	ParentID        *string `json:"parent_id,omitempty"`
	SystemProtected bool    `json:"system_protected"`
	Active          bool    `json:"active"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

type LineRequest struct {
	LineNumber     int             `json:"line_number" binding:"omitempty,min=1"`
	AccountID      string          `json:"account_id" binding:"required,uuid"`
	Side           string          `json:"side" binding:"required,oneof=debit credit"`
	Amount         decimal.Decimal `json:"amount"`
	CounterpartyID string          `json:"counterparty_id" binding:"omitempty,uuid"`
	Memo           string          `json:"memo"`
	TaxTag         string          `json:"tax_tag" binding:"max=50"`
}

type EntryRequest struct {
	Reference   string        `json:"reference" binding:"required,max=50"`
	EntryDate   string        `json:"entry_date" binding:"required"`
	Description string        `json:"description"`
	Source      string        `json:"source" binding:"omitempty,oneof=manual csv_import ai_suggested system_generated"`
	Lines       []LineRequest `json:"lines" binding:"required,dive"`
}

type UpdateDraftRequest struct {
	EntryDate   string        `json:"entry_date" binding:"required"`
	Description string        `json:"description"`
	Lines       []LineRequest `json:"lines" binding:"required,dive"`
}

type ReverseRequest struct {
	Date string `json:"date"`
}

type LineResponse struct {
	LineNumber     int     `json:"line_number"`
	AccountID      string  `json:"account_id"`
	Side           string  `json:"side"`
	Amount         string  `json:"amount"`
	CounterpartyID *string `json:"counterparty_id,omitempty"`
	Memo           string  `json:"memo,omitempty"`
	TaxTag         string  `json:"tax_tag,omitempty"`
}

type EntryResponse struct {
	ID                string         `json:"id"`
	TenantID          string         `json:"tenant_id"`
	Reference         string         `json:"reference"`
	EntryDate         string         `json:"entry_date"`
	Description       string         `json:"description,omitempty"`
	Source            string         `json:"source"`
	State             string         `json:"state"`
	ReversesEntryID   *string        `json:"reverses_entry_id,omitempty"`
	ReversedByEntryID *string        `json:"reversed_by_entry_id,omitempty"`
	Lines             []LineResponse `json:"lines"`
	DebitTotal        string         `json:"debit_total"`
	CreditTotal       string         `json:"credit_total"`
	CreatedBy         string         `json:"created_by"`
	CreatedAt         string         `json:"created_at"`
	PostedBy          string         `json:"posted_by,omitempty"`
	PostedAt          string         `json:"posted_at,omitempty"`
	ReversedAt        string         `json:"reversed_at,omitempty"`
}

type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=20" binding:"min=1,max=100"`
}

func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.PerPage
}

func parseDate(field, value string) (time.Time, error) {
	d, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a date formatted as YYYY-MM-DD", field)
	}
	return d, nil
}

// parseOptionalDate returns fallback for an empty value.
func parseOptionalDate(field, value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	return parseDate(field, value)
}

func parseOptionalUUID(value string) (*uuid.UUID, error) {
	if value == "" {
		return nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (r LineRequest) toDomain() (ledger.LineRequest, error) {
	accountID, err := uuid.Parse(r.AccountID)
	if err != nil {
		return ledger.LineRequest{}, fmt.Errorf("invalid account_id %q", r.AccountID)
	}
	counterparty, err := parseOptionalUUID(r.CounterpartyID)
	if err != nil {
		return ledger.LineRequest{}, fmt.Errorf("invalid counterparty_id %q", r.CounterpartyID)
	}
	return ledger.LineRequest{
		LineNumber:     r.LineNumber,
		AccountID:      accountID,
		Side:           ledger.Side(r.Side),
		Amount:         r.Amount,
		CounterpartyID: counterparty,
		Memo:           r.Memo,
		TaxTag:         r.TaxTag,
	}, nil
}

func linesToDomain(lines []LineRequest) ([]ledger.LineRequest, error) {
	out := make([]ledger.LineRequest, 0, len(lines))
	for _, l := range lines {
		line, err := l.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, nil
}

func (r EntryRequest) toDomain(tenantID uuid.UUID, actor shared.Actor) (ledger.EntryRequest, error) {
	entryDate, err := parseDate("entry_date", r.EntryDate)
	if err != nil {
		return ledger.EntryRequest{}, err
	}
	lines, err := linesToDomain(r.Lines)
	if err != nil {
		return ledger.EntryRequest{}, err
	}
	source := shared.SourceType(r.Source)
	if source == "" {
		source = shared.SourceManual
	}
	return ledger.EntryRequest{
		TenantID:      tenantID,
		Reference:     r.Reference,
		EntryDate:     entryDate,
		Description:   r.Description,
		Source:        source,
		Lines:         lines,
		Actor:         actor.ID,
		CorrelationID: actor.CorrelationID,
	}, nil
}

func mapAccountToResponse(a *account.Account) AccountResponse {
	resp := AccountResponse{
		ID:              a.ID.String(),
		TenantID:        a.TenantID.String(),
		Code:            a.Code,
		Name:            a.Name,
		Description:     a.Description,
		Type:            string(a.Type),
		SystemProtected: a.SystemProtected,
		Active:          a.Active,
		CreatedAt:       a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       a.UpdatedAt.Format(time.RFC3339),
	}
	resp.ParentID = uuidString(a.ParentID)
	return resp
}

func mapAccountsToResponse(accounts []*account.Account) []AccountResponse {
	out := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, mapAccountToResponse(a))
	}
	return out
}

func mapEntryToResponse(e *ledger.Entry) EntryResponse {
	resp := EntryResponse{
		ID:                e.ID.String(),
		TenantID:          e.TenantID.String(),
		Reference:         e.Reference,
		EntryDate:         e.EntryDate.Format(dateLayout),
		Description:       e.Description,
		Source:            string(e.Source),
		State:             string(e.State),
		ReversesEntryID:   uuidString(e.ReversesEntryID),
		ReversedByEntryID: uuidString(e.ReversedByEntryID),
		Lines:             make([]LineResponse, 0, len(e.Lines)),
		CreatedBy:         e.CreatedBy,
		CreatedAt:         e.CreatedAt.Format(time.RFC3339),
		PostedBy:          e.PostedBy,
	}

	for _, l := range e.Lines {
		resp.Lines = append(resp.Lines, LineResponse{
			LineNumber:     l.LineNumber,
			AccountID:      l.AccountID.String(),
			Side:           string(l.Side),
			Amount:         l.Amount.StringFixed(ledger.AmountScale),
			CounterpartyID: uuidString(l.CounterpartyID),
			Memo:           l.Memo,
			TaxTag:         l.TaxTag,
		})
	}
	debits, credits := e.Totals()
	resp.DebitTotal = debits.StringFixed(ledger.AmountScale)
	resp.CreditTotal = credits.StringFixed(ledger.AmountScale)

	if e.PostedAt != nil {
		resp.PostedAt = e.PostedAt.Format(time.RFC3339)
	}
	if e.ReversedAt != nil {
		resp.ReversedAt = e.ReversedAt.Format(time.RFC3339)
	}
	return resp
}

func mapEntriesToResponse(entries []*ledger.Entry) []EntryResponse {
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, mapEntryToResponse(e))
	}
	return out
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
