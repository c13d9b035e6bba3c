package memory

import (
	"context"
	"iter"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dinero-ledger/internal/domain/account"
	"github.com/dinero-ledger/internal/domain/ledger"
)

type entryRepository view

func (r *entryRepository) Append(ctx context.Context, entry *ledger.Entry) error {
	return view(*r).write(ctx, func(st *state) error {
		key := codeKey{tenantID: entry.TenantID, code: entry.Reference}
		if _, ok := st.entryByRef[key]; ok {
			return ledger.ErrDuplicateReference{TenantID: entry.TenantID, Reference: entry.Reference}
		}
		if entry.ReversesEntryID != nil {
			if _, ok := st.reversals[*entry.ReversesEntryID]; ok {
				return ledger.ErrAlreadyReversed{EntryID: *entry.ReversesEntryID}
			}
		}
		if err := checkLines(st, entry); err != nil {
			return err
		}

		st.entries[entry.ID] = entry.Clone()
		st.entryByRef[key] = entry.ID
		if entry.ReversesEntryID != nil {
			st.reversals[*entry.ReversesEntryID] = entry.ID
		}
		return nil
	})
}

// checkLines enforces what the relational schema would: known accounts and
// unique line numbers.
func checkLines(st *state, entry *ledger.Entry) error {
	seen := make(map[int]struct{}, len(entry.Lines))
	for _, l := range entry.Lines {
		if _, ok := st.accounts[l.AccountID]; !ok {
			return account.ErrAccountNotFound{AccountID: l.AccountID}
		}
		if _, dup := seen[l.LineNumber]; dup {
			return ledger.ErrDuplicateLineNumber{LineNumber: l.LineNumber}
		}
		seen[l.LineNumber] = struct{}{}
	}
	return nil
}

func (r *entryRepository) Get(_ context.Context, id uuid.UUID) (*ledger.Entry, error) {
	e, ok := view(*r).read().entries[id]
	if !ok {
		return nil, ledger.ErrEntryNotFound{EntryID: id}
	}
	return e.Clone(), nil
}

func (r *entryRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	return r.Get(ctx, id)
}

func (r *entryRepository) FindByReference(_ context.Context, tenantID uuid.UUID, reference string) (*ledger.Entry, error) {
	st := view(*r).read()
	id, ok := st.entryByRef[codeKey{tenantID: tenantID, code: reference}]
	if !ok {
		return nil, ledger.ErrEntryNotFound{TenantID: tenantID, Reference: reference}
	}
	return st.entries[id].Clone(), nil
}

func (r *entryRepository) ListByTenant(_ context.Context, tenantID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	entries := make([]*ledger.Entry, 0)
	for _, e := range view(*r).read().entries {
		if e.TenantID == tenantID {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].EntryDate.Equal(entries[j].EntryDate) {
			return entries[i].EntryDate.After(entries[j].EntryDate)
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return page(entries, limit, offset), nil
}

func page(entries []*ledger.Entry, limit, offset int) []*ledger.Entry {
	if offset >= len(entries) {
		return []*ledger.Entry{}
	}
	entries = entries[offset:]
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]*ledger.Entry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out
}

func (r *entryRepository) CountByTenant(_ context.Context, tenantID uuid.UUID) (int64, error) {
	var n int64
	for _, e := range view(*r).read().entries {
		if e.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

func (r *entryRepository) TransitionState(ctx context.Context, entry *ledger.Entry, from ledger.State) error {
	return view(*r).write(ctx, func(st *state) error {
		stored, ok := st.entries[entry.ID]
		if !ok {
			return ledger.ErrEntryNotFound{EntryID: entry.ID}
		}
		if stored.State != from {
			return ledger.ErrConcurrentModification{EntryID: entry.ID}
		}
		next := stored.Clone()
		next.State = entry.State
		next.PostedBy = entry.PostedBy
		next.PostedAt = entry.PostedAt
		next.ReversedByEntryID = entry.ReversedByEntryID
		next.ReversedAt = entry.ReversedAt
		next.Version = stored.Version + 1
		st.entries[entry.ID] = next
		entry.Version++
		return nil
	})
}

func (r *entryRepository) UpdateDraft(ctx context.Context, entry *ledger.Entry) error {
	return view(*r).write(ctx, func(st *state) error {
		stored, ok := st.entries[entry.ID]
		if !ok || stored.State != ledger.StateDraft || stored.Version != entry.Version {
			return ledger.ErrConcurrentModification{EntryID: entry.ID}
		}
		if err := checkLines(st, entry); err != nil {
			return err
		}
		next := stored.Clone()
		next.Description = entry.Description
		next.EntryDate = entry.EntryDate
		next.Lines = entry.Clone().Lines
		next.Version++
		st.entries[entry.ID] = next
		entry.Version++
		return nil
	})
}

func (r *entryRepository) DeleteDraft(ctx context.Context, id uuid.UUID) error {
	return view(*r).write(ctx, func(st *state) error {
		stored, ok := st.entries[id]
		if !ok || stored.State != ledger.StateDraft {
			return ledger.ErrConcurrentModification{EntryID: id}
		}
		delete(st.entries, id)
		delete(st.entryByRef, codeKey{tenantID: stored.TenantID, code: stored.Reference})
		return nil
	})
}

func (r *entryRepository) ListStaleDrafts(_ context.Context, createdBefore time.Time, limit int) ([]*ledger.Entry, error) {
	drafts := make([]*ledger.Entry, 0)
	for _, e := range view(*r).read().entries {
		if e.State == ledger.StateDraft && e.CreatedAt.Before(createdBefore) {
			drafts = append(drafts, e)
		}
	}
	sort.Slice(drafts, func(i, j int) bool { return drafts[i].CreatedAt.Before(drafts[j].CreatedAt) })
	return page(drafts, limit, 0), nil
}

func isPosted(e *ledger.Entry) bool {
	return e.State == ledger.StatePosted || e.State == ledger.StateReversed
}

// LinesForAccount collects matching lines from the state committed when the
// range starts, then yields them in posting order.
func (r *entryRepository) LinesForAccount(ctx context.Context, accountID uuid.UUID, dates ledger.DateRange) iter.Seq2[ledger.PostedLine, error] {
	return func(yield func(ledger.PostedLine, error) bool) {
		type ordered struct {
			line     ledger.PostedLine
			postedAt time.Time
		}

		var lines []ordered
		for _, e := range view(*r).read().entries {
			if !isPosted(e) || !dates.Contains(e.EntryDate) {
				continue
			}
			for _, l := range e.Lines {
				if l.AccountID != accountID {
					continue
				}
				var postedAt time.Time
				if e.PostedAt != nil {
					postedAt = *e.PostedAt
				}
				lines = append(lines, ordered{
					line: ledger.PostedLine{
						Line:       l,
						TenantID:   e.TenantID,
						EntryDate:  e.EntryDate,
						Reference:  e.Reference,
						EntryState: e.State,
					},
					postedAt: postedAt,
				})
			}
		}

		slices.SortFunc(lines, func(a, b ordered) int {
			if c := a.line.EntryDate.Compare(b.line.EntryDate); c != 0 {
				return c
			}
			if c := a.postedAt.Compare(b.postedAt); c != 0 {
				return c
			}
			if c := slices.Compare(a.line.EntryID[:], b.line.EntryID[:]); c != 0 {
				return c
			}
			return a.line.LineNumber - b.line.LineNumber
		})

		for _, o := range lines {
			if err := ctx.Err(); err != nil {
				yield(ledger.PostedLine{}, err)
				return
			}
			if !yield(o.line, nil) {
				return
			}
		}
	}
}

func (r *entryRepository) TotalsByAccount(_ context.Context, tenantID uuid.UUID, dates ledger.DateRange) ([]ledger.AccountTotals, error) {
	byAccount := make(map[uuid.UUID]*ledger.AccountTotals)
	for _, e := range view(*r).read().entries {
		if e.TenantID != tenantID || !isPosted(e) || !dates.Contains(e.EntryDate) {
			continue
		}
		for _, l := range e.Lines {
			t, ok := byAccount[l.AccountID]
			if !ok {
				t = &ledger.AccountTotals{AccountID: l.AccountID}
				byAccount[l.AccountID] = t
			}
			t.Debit = t.Debit.Add(l.Debit())
			t.Credit = t.Credit.Add(l.Credit())
		}
	}

	totals := make([]ledger.AccountTotals, 0, len(byAccount))
	for _, t := range byAccount {
		totals = append(totals, *t)
	}
	return totals, nil
}

func (r *entryRepository) HasActivity(_ context.Context, accountID uuid.UUID) (bool, error) {
	for _, e := range view(*r).read().entries {
		if !isPosted(e) {
			continue
		}
		for _, l := range e.Lines {
			if l.AccountID == accountID {
				return true, nil
			}
		}
	}
	return false, nil
}
