package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dinero-ledger/internal/domain/shared"
)

func TestState_Transitions(t *testing.T) {
	testCases := []struct {
		from    State
		op      Operation
		to      State
		allowed bool
	}{
		{StateDraft, OpPost, StatePosted, true},
		{StateDraft, OpEdit, StateDraft, true},
		{StateDraft, OpDelete, StateDraft, true},
		{StateDraft, OpReverse, "", false},
		{StatePosted, OpReverse, StateReversed, true},
		{StatePosted, OpPost, "", false},
		{StatePosted, OpEdit, "", false},
		{StatePosted, OpDelete, "", false},
		{StateReversed, OpReverse, "", false},
		{StateReversed, OpEdit, "", false},
	}

	for _, tc := range testCases {
		t.Run(string(tc.from)+"_"+string(tc.op), func(t *testing.T) {
			next, ok := tc.from.Next(tc.op)
			assert.Equal(t, tc.allowed, ok)
			assert.Equal(t, tc.to, next)
		})
	}
}

func TestEntry_CheckTransitionErrors(t *testing.T) {
	id := uuid.New()

	posted := &Entry{ID: id, State: StatePosted}
	assert.ErrorIs(t, posted.CheckTransition(OpPost), ErrAlreadyPosted{})
	assert.ErrorIs(t, posted.CheckTransition(OpEdit), ErrImmutableEntry{EntryID: id})
	assert.ErrorIs(t, posted.CheckTransition(OpDelete), ErrImmutableEntry{})

	reversed := &Entry{ID: id, State: StateReversed}
	assert.ErrorIs(t, reversed.CheckTransition(OpReverse), ErrAlreadyReversed{EntryID: id})
	assert.ErrorIs(t, reversed.CheckTransition(OpPost), ErrAlreadyPosted{})

	draft := &Entry{ID: id, State: StateDraft}
	err := draft.CheckTransition(OpReverse)
	assert.ErrorIs(t, err, ErrImmutableEntry{})
	assert.Equal(t, shared.KindState, shared.KindOf(err))
}

func TestEntry_PostAndReverse(t *testing.T) {
	entry, err := NewDraft(sampleRequest(), "alice")
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, entry.Post("bob", now))
	assert.Equal(t, StatePosted, entry.State)
	assert.Equal(t, "bob", entry.PostedBy)
	require.NotNil(t, entry.PostedAt)

	assert.ErrorIs(t, entry.Post("bob", now), ErrAlreadyPosted{EntryID: entry.ID})

	linesBefore := entry.Clone().Lines
	revID := uuid.New()
	require.NoError(t, entry.MarkReversed(revID, now))
	assert.Equal(t, StateReversed, entry.State)
	assert.Equal(t, revID, *entry.ReversedByEntryID)
	assert.Equal(t, linesBefore, entry.Lines, "reversal never touches the original lines")

	assert.ErrorIs(t, entry.MarkReversed(uuid.New(), now), ErrAlreadyReversed{})
}

func TestEntry_Revise(t *testing.T) {
	entry, _ := NewDraft(sampleRequest(), "alice")
	newLines := []LineRequest{{AccountID: uuid.New(), Side: SideDebit}}

	require.NoError(t, entry.Revise("fixed", time.Time{}, newLines))
	assert.Equal(t, "fixed", entry.Description)
	assert.Len(t, entry.Lines, 1)

	assert.ErrorAs(t, entry.Revise("x", time.Time{}, nil), &ErrInvalidEntry{})

	require.NoError(t, entry.Post("alice", time.Now()))
	before := entry.Clone()
	err := entry.Revise("sneaky", time.Time{}, sampleRequest().Lines)
	assert.ErrorIs(t, err, ErrImmutableEntry{})
	assert.Equal(t, before, entry)
}
