package components

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dinero-ledger/internal/domain/account"
	"github.com/dinero-ledger/internal/domain/ledger"
	"github.com/dinero-ledger/internal/domain/shared"
	"github.com/dinero-ledger/internal/engine/service"
)

// EntryValidatorImpl runs the line, account and balance checks. All
// failures are reported together; none of them depends on another.
type EntryValidatorImpl struct {
	logger *slog.Logger
}

func NewEntryValidator(logger *slog.Logger) service.EntryValidator {
	return &EntryValidatorImpl{logger: logger}
}

// Validate checks everything posting requires.
func (v *EntryValidatorImpl) Validate(ctx context.Context, accounts account.Repository, entry *ledger.Entry) error {
	return v.validate(ctx, accounts, entry, true)
}

// ValidateDraft skips the balance check; drafts may be unbalanced.
func (v *EntryValidatorImpl) ValidateDraft(ctx context.Context, accounts account.Repository, entry *ledger.Entry) error {
	return v.validate(ctx, accounts, entry, false)
}

func (v *EntryValidatorImpl) validate(ctx context.Context, accounts account.Repository, entry *ledger.Entry, balance bool) error {
	errs := []error{
		ledger.CheckLineShape(entry.Lines),
		ledger.CheckLineNumbers(entry.Lines),
	}

	accountErrs, err := v.checkAccounts(ctx, accounts, entry, balance)
	if err != nil {
		return err
	}
	errs = append(errs, accountErrs...)

	if balance {
		errs = append(errs, ledger.CheckBalance(entry.Lines))
	}

	if err := errors.Join(errs...); err != nil {
		v.logger.Debug("Entry failed validation", "reference", entry.Reference, "error", err)
		return err
	}
	return nil
}

// checkAccounts requires every referenced account to be active and to
// belong to the entry's tenant. An account of another tenant is reported as
// not found. When posting, the accounts stay share-locked until the
// transaction ends so a retype cannot slip past the activity check. The
// returned error is a storage failure, not a rejection.
func (v *EntryValidatorImpl) checkAccounts(ctx context.Context, accounts account.Repository, entry *ledger.Entry, posting bool) ([]error, error) {
	load := accounts.GetByID
	if posting {
		load = accounts.LockForShare
	}
	var errs []error
	for _, id := range entry.AccountIDs() {
		if id == uuid.Nil {
			continue // reported by the line shape check
		}
		acc, err := load(ctx, id)
		switch {
		case errors.Is(err, account.ErrAccountNotFound{}):
			errs = append(errs, account.ErrAccountNotFound{AccountID: id})
			continue
		case err != nil:
			v.logger.Error("Failed to load account for validation", "account_id", id.String(), "error", err)
			return nil, shared.NewStorageError("load account", err)
		}
		if acc.TenantID != entry.TenantID {
			errs = append(errs, account.ErrAccountNotFound{AccountID: id})
			continue
		}
		if !acc.Active {
			errs = append(errs, account.ErrAccountInactive{AccountID: id})
		}
	}
	return errs, nil
}
