package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/dinero-ledger/internal/domain/ledger"
	"github.com/dinero-ledger/internal/domain/shared"
)

// Event is the payload published for every posted or reversed entry.
type Event struct {
	Type          shared.EventType `json:"type"`
	TenantID      uuid.UUID        `json:"tenant_id"`
	EntryID       uuid.UUID        `json:"entry_id"`
	Reference     string           `json:"reference"`
	EntryDate     time.Time        `json:"entry_date"`
	CorrelationID string           `json:"correlation_id,omitempty"`
	OccurredAt    time.Time        `json:"occurred_at"`
	Entry         *ledger.Entry    `json:"entry"`
}

// Message stores an event until the poller has published it.
type Message struct {
	ID            int64               `json:"id"`
	EventType     shared.EventType    `json:"event_type"`
	EntryID       uuid.UUID           `json:"entry_id"`
	TenantID      uuid.UUID           `json:"tenant_id"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

func NewMessage(eventType shared.EventType, entry *ledger.Entry, correlationID string) (*Message, error) {
	now := time.Now().UTC()
	payload, err := json.Marshal(Event{
		Type:          eventType,
		TenantID:      entry.TenantID,
		EntryID:       entry.ID,
		Reference:     entry.Reference,
		EntryDate:     entry.EntryDate,
		CorrelationID: correlationID,
		OccurredAt:    now,
		Entry:         entry,
	})
	if err != nil {
		return nil, err
	}

	return &Message{
		EventType: eventType,
		EntryID:   entry.ID,
		TenantID:  entry.TenantID,
		Payload:   payload,
		Status:    shared.OutboxStatusPending,
		CreatedAt: now,
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now().UTC()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = shared.OutboxStatusProcessed
	now := time.Now().UTC()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = shared.OutboxStatusFailedToPublish
	now := time.Now().UTC()
	m.LastAttemptAt = &now
}

// Event decodes the payload.
func (m *Message) Event() (*Event, error) {
	var ev Event
	if err := json.Unmarshal(m.Payload, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
