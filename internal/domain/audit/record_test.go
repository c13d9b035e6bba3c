package audit

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dinero-ledger/internal/domain/shared"
)

type accountImage struct {
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

func TestNewRecord(t *testing.T) {
	entityID := uuid.New()
	actor := shared.Actor{ID: "alice", IPAddress: "10.0.0.1", UserAgent: "curl/8", CorrelationID: "corr-1"}

	rec, err := NewRecord(Change{
		TenantID:   uuid.New(),
		EntityType: EntityAccount,
		EntityID:   entityID,
		Action:     ActionDeactivate,
		Before:     accountImage{Name: "Cash", Active: true},
		After:      accountImage{Name: "Cash", Active: false},
	}, actor)
	require.NoError(t, err)

	assert.Equal(t, entityID, rec.EntityID)
	assert.Equal(t, "alice", rec.Actor)
	assert.Equal(t, "10.0.0.1", rec.IPAddress)
	assert.Equal(t, "corr-1", rec.CorrelationID)
	assert.False(t, rec.RecordedAt.IsZero())

	var before, after accountImage
	require.NoError(t, json.Unmarshal(rec.Before, &before))
	require.NoError(t, json.Unmarshal(rec.After, &after))
	assert.True(t, before.Active)
	assert.False(t, after.Active)
}

func TestNewRecord_InsertHasNoBeforeImage(t *testing.T) {
	var nilImage *accountImage
	rec, err := NewRecord(Change{EntityType: EntityJournalEntry, Action: ActionInsert, Before: nilImage, After: accountImage{Name: "E1"}}, shared.Actor{ID: "bob"})
	require.NoError(t, err)
	assert.Nil(t, rec.Before)
	assert.NotNil(t, rec.After)
}

func TestNewRecord_RequiresActor(t *testing.T) {
	_, err := NewRecord(Change{EntityType: EntityAccount, Action: ActionInsert}, shared.Actor{})
	assert.Error(t, err)
}

func TestNewRecord_UnmarshalableImage(t *testing.T) {
	_, err := NewRecord(Change{EntityType: EntityAccount, Action: ActionInsert, After: make(chan int)}, shared.Actor{ID: "bob"})
	assert.Error(t, err)
}
