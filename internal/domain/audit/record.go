package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dinero-ledger/internal/domain/shared"
)

// EntityType names the kind of record an audit entry describes.
type EntityType string

const (
	EntityAccount      EntityType = "account"
	EntityJournalEntry EntityType = "journal_entry"
)

func (t EntityType) Valid() bool {
	return t == EntityAccount || t == EntityJournalEntry
}

// Action is the kind of mutation audited.
type Action string

const (
	ActionInsert     Action = "insert"
	ActionUpdate     Action = "update"
	ActionDeactivate Action = "deactivate"
	ActionDelete     Action = "delete"
)

// Record is an append-only audit trail item with full before and after images.
type Record struct {
	ID            uuid.UUID       `json:"id"`
	TenantID      uuid.UUID       `json:"tenant_id"`
	EntityType    EntityType      `json:"entity_type"`
	EntityID      uuid.UUID       `json:"entity_id"`
	Action        Action          `json:"action"`
	Before        json.RawMessage `json:"before,omitempty"`
	After         json.RawMessage `json:"after,omitempty"`
	Actor         string          `json:"actor"`
	IPAddress     string          `json:"ip_address,omitempty"`
	UserAgent     string          `json:"user_agent,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	RecordedAt    time.Time       `json:"recorded_at"`
}

// Change describes one mutation to be audited. Before is nil for inserts and
// After is nil for deletes.
type Change struct {
	TenantID   uuid.UUID
	EntityType EntityType
	EntityID   uuid.UUID
	Action     Action
	Before     any
	After      any
}

// NewRecord snapshots the change into JSON images.
func NewRecord(change Change, actor shared.Actor) (*Record, error) {
	if actor.ID == "" {
		return nil, fmt.Errorf("audit record for %s %s requires an actor", change.EntityType, change.EntityID)
	}
	before, err := image(change.Before)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal before-image: %w", err)
	}
	after, err := image(change.After)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal after-image: %w", err)
	}
	return &Record{
		ID:            uuid.New(),
		TenantID:      change.TenantID,
		EntityType:    change.EntityType,
		EntityID:      change.EntityID,
		Action:        change.Action,
		Before:        before,
		After:         after,
		Actor:         actor.ID,
		IPAddress:     actor.IPAddress,
		UserAgent:     actor.UserAgent,
		CorrelationID: actor.CorrelationID,
		RecordedAt:    time.Now().UTC(),
	}, nil
}

func image(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return nil, nil
	}
	return b, nil
}
