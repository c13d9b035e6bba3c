package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Operation is a lifecycle request against an entry.
type Operation string

const (
	OpPost    Operation = "post"
	OpReverse Operation = "reverse"
	OpEdit    Operation = "edit"
	OpDelete  Operation = "delete"
)

// transitions lists every legal move. Anything absent is rejected.
var transitions = map[State]map[Operation]State{
	StateDraft: {
		OpPost:   StatePosted,
		OpEdit:   StateDraft,
		OpDelete: StateDraft,
	},
	StatePosted: {
		OpReverse: StateReversed,
	},
}

// Next returns the state reached by applying op to s.
func (s State) Next(op Operation) (State, bool) {
	next, ok := transitions[s][op]
	return next, ok
}

// CheckTransition returns the typed error for an illegal op on the entry.
func (e *Entry) CheckTransition(op Operation) error {
	if _, ok := e.State.Next(op); ok {
		return nil
	}
	switch {
	case op == OpPost && (e.State == StatePosted || e.State == StateReversed):
		return ErrAlreadyPosted{EntryID: e.ID}
	case op == OpReverse && e.State == StateReversed:
		return ErrAlreadyReversed{EntryID: e.ID}
	default:
		return ErrImmutableEntry{EntryID: e.ID, State: e.State, Operation: op}
	}
}

// Post moves a draft to posted and stamps the posting actor.
func (e *Entry) Post(actor string, at time.Time) error {
	if err := e.CheckTransition(OpPost); err != nil {
		return err
	}
	at = at.UTC()
	e.State = StatePosted
	e.PostedBy = actor
	e.PostedAt = &at
	return nil
}

// MarkReversed records that reversalID offsets this posted entry. The lines
// are left untouched.
func (e *Entry) MarkReversed(reversalID uuid.UUID, at time.Time) error {
	if err := e.CheckTransition(OpReverse); err != nil {
		return err
	}
	at = at.UTC()
	e.State = StateReversed
	e.ReversedByEntryID = &reversalID
	e.ReversedAt = &at
	return nil
}

// Revise replaces the editable content of a draft.
func (e *Entry) Revise(description string, entryDate time.Time, lines []LineRequest) error {
	if err := e.CheckTransition(OpEdit); err != nil {
		return err
	}
	if len(lines) == 0 {
		return ErrInvalidEntry{Field: "lines", Reason: "entry must have at least one line"}
	}
	e.Description = description
	if !entryDate.IsZero() {
		e.EntryDate = DateOf(entryDate)
	}
	e.setLines(lines)
	return nil
}
