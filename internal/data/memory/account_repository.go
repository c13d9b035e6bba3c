package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/dinero-ledger/internal/domain/account"
)

type accountRepository view

func (r *accountRepository) Create(ctx context.Context, acc *account.Account) error {
	return view(*r).write(ctx, func(st *state) error {
		key := codeKey{tenantID: acc.TenantID, code: acc.Code}
		if _, ok := st.accountByCode[key]; ok {
			return account.ErrDuplicateCode{TenantID: acc.TenantID, Code: acc.Code}
		}
		if acc.ParentID != nil {
			if _, ok := st.accounts[*acc.ParentID]; !ok {
				return account.ErrInvalidHierarchy{AccountID: acc.ID, ParentID: *acc.ParentID, Reason: "parent does not exist"}
			}
		}
		st.accounts[acc.ID] = acc.Clone()
		st.accountByCode[key] = acc.ID
		return nil
	})
}

func (r *accountRepository) GetByID(_ context.Context, id uuid.UUID) (*account.Account, error) {
	acc, ok := view(*r).read().accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound{AccountID: id}
	}
	return acc.Clone(), nil
}

func (r *accountRepository) GetByCode(_ context.Context, tenantID uuid.UUID, code string) (*account.Account, error) {
	st := view(*r).read()
	id, ok := st.accountByCode[codeKey{tenantID: tenantID, code: code}]
	if !ok {
		return nil, account.ErrAccountNotFound{Code: code}
	}
	return st.accounts[id].Clone(), nil
}

func (r *accountRepository) ListByTenant(_ context.Context, tenantID uuid.UUID) ([]*account.Account, error) {
	return r.filter(func(a *account.Account) bool { return a.TenantID == tenantID }), nil
}

func (r *accountRepository) ListByType(_ context.Context, tenantID uuid.UUID, accountType account.Type) ([]*account.Account, error) {
	return r.filter(func(a *account.Account) bool {
		return a.TenantID == tenantID && a.Type == accountType
	}), nil
}

func (r *accountRepository) filter(keep func(*account.Account) bool) []*account.Account {
	accounts := make([]*account.Account, 0)
	for _, a := range view(*r).read().accounts {
		if keep(a) {
			accounts = append(accounts, a.Clone())
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Code < accounts[j].Code })
	return accounts
}

func (r *accountRepository) Update(ctx context.Context, acc *account.Account) error {
	return view(*r).write(ctx, func(st *state) error {
		stored, ok := st.accounts[acc.ID]
		if !ok {
			return account.ErrAccountNotFound{AccountID: acc.ID}
		}
		if stored.Version != acc.Version {
			return account.ErrConcurrentModification{AccountID: acc.ID}
		}
		next := acc.Clone()
		next.Version++
		st.accounts[acc.ID] = next
		acc.Version++
		return nil
	})
}

// LockForUpdate is a plain read: writers are already serialized.
func (r *accountRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return r.GetByID(ctx, id)
}

// LockForShare is a plain read for the same reason.
func (r *accountRepository) LockForShare(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return r.GetByID(ctx, id)
}
