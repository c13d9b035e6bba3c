package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dinero-ledger/internal/domain/account"
	"github.com/dinero-ledger/internal/domain/audit"
	"github.com/dinero-ledger/internal/domain/shared"
	"github.com/dinero-ledger/internal/domain/uow"
)

// CreateAccountRequest carries the attributes of a new account.
type CreateAccountRequest struct {
	TenantID        uuid.UUID
	Code            string
	Name            string
	Description     string
	Type            account.Type
	ParentID        *uuid.UUID
	SystemProtected bool
}

// UpdateAccountRequest lists the attributes to change; nil fields are kept.
// ClearParent moves the account to the root.
type UpdateAccountRequest struct {
	Name        *string
	Description *string
	Type        *account.Type
	ParentID    *uuid.UUID
	ClearParent bool
}

// AccountDirectory maintains the chart of accounts.
type AccountDirectory struct {
	store   uow.Store
	auditor AuditRecorder
	logger  *slog.Logger
}

func NewAccountDirectory(store uow.Store, auditor AuditRecorder, logger *slog.Logger) *AccountDirectory {
	return &AccountDirectory{store: store, auditor: auditor, logger: logger}
}

// CreateAccount adds an account to a tenant's chart. The parent, if any,
// must exist in the same tenant.
func (d *AccountDirectory) CreateAccount(ctx context.Context, req CreateAccountRequest, actor shared.Actor) (*account.Account, error) {
	if err := requireAccountActor(actor); err != nil {
		return nil, err
	}
	acc, err := account.NewAccount(req.TenantID, req.Code, req.Name, req.Type, req.ParentID)
	if err != nil {
		return nil, err
	}
	acc.Description = req.Description
	acc.SystemProtected = req.SystemProtected

	err = d.store.WithinTx(ctx, func(ctx context.Context, tx uow.Repositories) error {
		return d.create(ctx, tx, acc, actor)
	})
	if err != nil {
		d.logger.Warn("Account creation rejected", "tenant_id", req.TenantID.String(), "code", req.Code, "error", err)
		return nil, err
	}

	d.logger.Info("Account created", "account_id", acc.ID.String(), "code", acc.Code, "type", string(acc.Type))
	return acc, nil
}

func (d *AccountDirectory) create(ctx context.Context, tx uow.Repositories, acc *account.Account, actor shared.Actor) error {
	if acc.ParentID != nil {
		if err := d.checkParent(ctx, tx.Accounts(), acc, *acc.ParentID); err != nil {
			return err
		}
	}
	if err := tx.Accounts().Create(ctx, acc); err != nil {
		return err
	}
	return d.auditor.Record(ctx, tx, audit.Change{
		TenantID:   acc.TenantID,
		EntityType: audit.EntityAccount,
		EntityID:   acc.ID,
		Action:     audit.ActionInsert,
		After:      acc,
	}, actor)
}

// checkParent requires parentID to name an account of acc's tenant that
// does not descend from acc.
func (d *AccountDirectory) checkParent(ctx context.Context, accounts account.Repository, acc *account.Account, parentID uuid.UUID) error {
	seen := map[uuid.UUID]struct{}{}
	next := &parentID
	for next != nil {
		if *next == acc.ID {
			return account.ErrInvalidHierarchy{AccountID: acc.ID, ParentID: parentID, Reason: "parent link would create a cycle"}
		}
		if _, ok := seen[*next]; ok {
			return account.ErrInvalidHierarchy{AccountID: acc.ID, ParentID: parentID, Reason: "ancestor chain contains a cycle"}
		}
		seen[*next] = struct{}{}

		ancestor, err := accounts.GetByID(ctx, *next)
		if err != nil {
			if errors.Is(err, account.ErrAccountNotFound{}) {
				return account.ErrInvalidHierarchy{AccountID: acc.ID, ParentID: parentID, Reason: "parent account does not exist"}
			}
			return err
		}
		if ancestor.TenantID != acc.TenantID {
			return account.ErrInvalidHierarchy{AccountID: acc.ID, ParentID: parentID, Reason: "parent belongs to another tenant"}
		}
		next = ancestor.ParentID
	}
	return nil
}

// UpdateAccount applies the requested changes. Type and parent are frozen
// once the account has posted activity.
func (d *AccountDirectory) UpdateAccount(ctx context.Context, id uuid.UUID, req UpdateAccountRequest, actor shared.Actor) (*account.Account, error) {
	if err := requireAccountActor(actor); err != nil {
		return nil, err
	}

	var updated *account.Account
	err := d.store.WithinTx(ctx, func(ctx context.Context, tx uow.Repositories) error {
		acc, err := tx.Accounts().LockForUpdate(ctx, id)
		if err != nil {
			return err
		}
		before := acc.Clone()

		if req.Name != nil {
			if err := acc.Rename(*req.Name); err != nil {
				return err
			}
		}
		if req.Description != nil {
			acc.Description = *req.Description
		}

		structural := req.Type != nil || req.ParentID != nil || req.ClearParent
		hasActivity := false
		if structural {
			if hasActivity, err = tx.Entries().HasActivity(ctx, id); err != nil {
				return err
			}
		}
		if req.Type != nil {
			if err := acc.Retype(*req.Type, hasActivity); err != nil {
				return err
			}
		}
		if req.ParentID != nil || req.ClearParent {
			parentID := req.ParentID
			if req.ClearParent {
				parentID = nil
			}
			if err := acc.Reparent(parentID, hasActivity); err != nil {
				return err
			}
			if parentID != nil {
				if err := d.checkParent(ctx, tx.Accounts(), acc, *parentID); err != nil {
					return err
				}
			}
		}

		if err := tx.Accounts().Update(ctx, acc); err != nil {
			return err
		}
		updated = acc
		return d.auditor.Record(ctx, tx, audit.Change{
			TenantID:   acc.TenantID,
			EntityType: audit.EntityAccount,
			EntityID:   acc.ID,
			Action:     audit.ActionUpdate,
			Before:     before,
			After:      acc,
		}, actor)
	})
	if err != nil {
		d.logger.Warn("Account update rejected", "account_id", id.String(), "error", err)
		return nil, err
	}

	d.logger.Info("Account updated", "account_id", id.String())
	return updated, nil
}

// Deactivate switches an account off. Deactivating an inactive account is
// a no-op and writes no audit record.
func (d *AccountDirectory) Deactivate(ctx context.Context, id uuid.UUID, actor shared.Actor) error {
	if err := requireAccountActor(actor); err != nil {
		return err
	}

	return d.store.WithinTx(ctx, func(ctx context.Context, tx uow.Repositories) error {
		acc, err := tx.Accounts().LockForUpdate(ctx, id)
		if err != nil {
			return err
		}
		before := acc.Clone()
		changed, err := acc.Deactivate()
		if err != nil || !changed {
			return err
		}
		if err := tx.Accounts().Update(ctx, acc); err != nil {
			return err
		}
		d.logger.Info("Account deactivated", "account_id", id.String(), "code", acc.Code)
		return d.auditor.Record(ctx, tx, audit.Change{
			TenantID:   acc.TenantID,
			EntityType: audit.EntityAccount,
			EntityID:   acc.ID,
			Action:     audit.ActionDeactivate,
			Before:     before,
			After:      acc,
		}, actor)
	})
}

// SeedDefaultChart creates the system chart for a tenant. Codes already in
// use are left alone, so seeding twice is harmless.
func (d *AccountDirectory) SeedDefaultChart(ctx context.Context, tenantID uuid.UUID, actor shared.Actor) ([]*account.Account, error) {
	if err := requireAccountActor(actor); err != nil {
		return nil, err
	}

	var created []*account.Account
	err := d.store.WithinTx(ctx, func(ctx context.Context, tx uow.Repositories) error {
		byCode := map[string]uuid.UUID{}
		for _, tmpl := range account.DefaultChart() {
			existing, err := tx.Accounts().GetByCode(ctx, tenantID, tmpl.Code)
			if err == nil {
				byCode[tmpl.Code] = existing.ID
				continue
			}
			if !errors.Is(err, account.ErrAccountNotFound{}) {
				return err
			}

			var parentID *uuid.UUID
			if tmpl.ParentCode != "" {
				if id, ok := byCode[tmpl.ParentCode]; ok {
					parentID = &id
				}
			}
			acc, err := account.NewAccount(tenantID, tmpl.Code, tmpl.Name, tmpl.Type, parentID)
			if err != nil {
				return err
			}
			acc.Description = tmpl.Description
			acc.SystemProtected = true
			if err := d.create(ctx, tx, acc, actor); err != nil {
				return err
			}
			byCode[tmpl.Code] = acc.ID
			created = append(created, acc)
		}
		return nil
	})
	if err != nil {
		d.logger.Error("Failed to seed default chart", "tenant_id", tenantID.String(), "error", err)
		return nil, err
	}

	d.logger.Info("Default chart seeded", "tenant_id", tenantID.String(), "created", len(created))
	return created, nil
}

func (d *AccountDirectory) Lookup(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return d.store.Accounts().GetByID(ctx, id)
}

func (d *AccountDirectory) LookupByCode(ctx context.Context, tenantID uuid.UUID, code string) (*account.Account, error) {
	return d.store.Accounts().GetByCode(ctx, tenantID, code)
}

// ListAccounts returns the tenant's chart ordered by code.
func (d *AccountDirectory) ListAccounts(ctx context.Context, tenantID uuid.UUID) ([]*account.Account, error) {
	return d.store.Accounts().ListByTenant(ctx, tenantID)
}

func (d *AccountDirectory) ListByType(ctx context.Context, tenantID uuid.UUID, t account.Type) ([]*account.Account, error) {
	if !t.Valid() {
		return nil, account.ErrInvalidAccount{Field: "type", Reason: "unknown account type " + string(t)}
	}
	return d.store.Accounts().ListByType(ctx, tenantID, t)
}

func requireAccountActor(actor shared.Actor) error {
	if actor.ID == "" {
		return account.ErrInvalidAccount{Field: "actor", Reason: "is required"}
	}
	return nil
}
