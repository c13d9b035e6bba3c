package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dinero-ledger/internal/domain/shared"
)

// EntryRequest is a candidate entry as supplied by callers, over HTTP or
// as a Kafka message on the entry request topic.
type EntryRequest struct {
	TenantID      uuid.UUID         `json:"tenant_id"`
	Reference     string            `json:"reference"`
	EntryDate     time.Time         `json:"entry_date"`
	Description   string            `json:"description"`
	Source        shared.SourceType `json:"source"`
	Lines         []LineRequest     `json:"lines"`
	Actor         string            `json:"actor,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
}

// LineRequest is one candidate line. LineNumber may be zero, in which case
// the line's position (1-based) is used.
type LineRequest struct {
	LineNumber     int             `json:"line_number,omitempty"`
	AccountID      uuid.UUID       `json:"account_id"`
	Side           Side            `json:"side"`
	Amount         decimal.Decimal `json:"amount"`
	CounterpartyID *uuid.UUID      `json:"counterparty_id,omitempty"`
	Memo           string          `json:"memo,omitempty"`
	TaxTag         string          `json:"tax_tag,omitempty"`
}
