package outbox

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dinero-ledger/internal/domain/ledger"
	"github.com/dinero-ledger/internal/domain/shared"
)

func postedEntry(t *testing.T) *ledger.Entry {
	t.Helper()
	entry, err := ledger.NewDraft(ledger.EntryRequest{
		TenantID:  uuid.New(),
		Reference: "INV-7",
		EntryDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Lines: []ledger.LineRequest{
			{AccountID: uuid.New(), Side: ledger.SideDebit, Amount: decimal.RequireFromString("12.50")},
			{AccountID: uuid.New(), Side: ledger.SideCredit, Amount: decimal.RequireFromString("12.50")},
		},
	}, "alice")
	require.NoError(t, err)
	require.NoError(t, entry.Post("alice", time.Now()))
	return entry
}

func TestNewMessage(t *testing.T) {
	entry := postedEntry(t)

	msg, err := NewMessage(shared.EventEntryPosted, entry, "corr-9")
	require.NoError(t, err)

	assert.Equal(t, shared.EventEntryPosted, msg.EventType)
	assert.Equal(t, entry.ID, msg.EntryID)
	assert.Equal(t, entry.TenantID, msg.TenantID)
	assert.Equal(t, shared.OutboxStatusPending, msg.Status)
	assert.Zero(t, msg.Attempts)
	assert.Nil(t, msg.LastAttemptAt)

	ev, err := msg.Event()
	require.NoError(t, err)
	assert.Equal(t, "INV-7", ev.Reference)
	assert.Equal(t, "corr-9", ev.CorrelationID)
	require.NotNil(t, ev.Entry)
	require.Len(t, ev.Entry.Lines, 2)
	assert.True(t, ev.Entry.Lines[0].Amount.Equal(decimal.RequireFromString("12.50")))
}

func TestMessage_StatusChanges(t *testing.T) {
	msg, err := NewMessage(shared.EventEntryReversed, postedEntry(t), "")
	require.NoError(t, err)

	msg.IncrementAttempts()
	assert.Equal(t, 1, msg.Attempts)
	require.NotNil(t, msg.LastAttemptAt)

	msg.MarkAsFailed()
	assert.Equal(t, shared.OutboxStatusFailedToPublish, msg.Status)

	msg.MarkAsProcessed()
	assert.Equal(t, shared.OutboxStatusProcessed, msg.Status)
}

func TestMessage_EventBadPayload(t *testing.T) {
	msg := &Message{Payload: []byte("{not json")}
	_, err := msg.Event()
	assert.Error(t, err)
}
