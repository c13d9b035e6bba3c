// Package postgres implements the ledger repositories on PostgreSQL. Every
// repository runs against a pool or, through WithTx, a transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dinero-ledger/internal/domain/account"
	"github.com/dinero-ledger/internal/platform/persistence"
)

const accountColumns = `id, tenant_id, code, name, description, account_type, parent_id, system_protected, active, version, created_at, updated_at`

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) *AccountRepository {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx binds the repository to tx.
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func scanAccount(row pgx.Row) (*account.Account, error) {
	var acc account.Account
	err := row.Scan(
		&acc.ID,
		&acc.TenantID,
		&acc.Code,
		&acc.Name,
		&acc.Description,
		&acc.Type,
		&acc.ParentID,
		&acc.SystemProtected,
		&acc.Active,
		&acc.Version,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// Create stores a new account. The (tenant, code) constraint maps to ErrDuplicateCode.
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	query := `
		INSERT INTO accounts (id, tenant_id, code, name, description, account_type, parent_id, system_protected, active, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.querier.Exec(ctx, query,
		acc.ID,
		acc.TenantID,
		acc.Code,
		acc.Name,
		acc.Description,
		acc.Type,
		acc.ParentID,
		acc.SystemProtected,
		acc.Active,
		acc.Version,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "uq_accounts_tenant_code") {
			return account.ErrDuplicateCode{TenantID: acc.TenantID, Code: acc.Code}
		}
		if code, _ := pgErrorCode(err); code == foreignKeyViolation && acc.ParentID != nil {
			return account.ErrInvalidHierarchy{AccountID: acc.ID, ParentID: *acc.ParentID, Reason: "parent does not exist"}
		}
		r.logger.Error("Failed to create account", "code", acc.Code, "tenant_id", acc.TenantID.String(), "error", err)
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1
	`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to get account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return acc, nil
}

func (r *AccountRepository) GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE tenant_id = $1 AND code = $2
	`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, tenantID, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{Code: code}
		}
		r.logger.Error("Failed to get account by code", "code", code, "error", err)
		return nil, fmt.Errorf("failed to get account by code: %w", err)
	}

	return acc, nil
}

func (r *AccountRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE tenant_id = $1
		ORDER BY code ASC
	`
	return r.list(ctx, "list accounts", query, tenantID)
}

func (r *AccountRepository) ListByType(ctx context.Context, tenantID uuid.UUID, accountType account.Type) ([]*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE tenant_id = $1 AND account_type = $2
		ORDER BY code ASC
	`
	return r.list(ctx, "list accounts by type", query, tenantID, accountType)
}

func (r *AccountRepository) list(ctx context.Context, op, query string, args ...interface{}) ([]*account.Account, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to "+op, "error", err)
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	accounts := make([]*account.Account, 0)
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			r.logger.Error("Failed to scan account row", "error", err)
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate account rows: %w", err)
	}
	return accounts, nil
}

// Update writes the mutable attributes and bumps the version when the stored
// version still matches.
func (r *AccountRepository) Update(ctx context.Context, acc *account.Account) error {
	query := `
		UPDATE accounts
		SET name = $1, description = $2, account_type = $3, parent_id = $4, active = $5, version = version + 1, updated_at = $6
		WHERE id = $7 AND version = $8
	`

	result, err := r.querier.Exec(ctx, query,
		acc.Name,
		acc.Description,
		acc.Type,
		acc.ParentID,
		acc.Active,
		acc.UpdatedAt,
		acc.ID,
		acc.Version,
	)
	if err != nil {
		r.logger.Error("Failed to update account", "id", acc.ID.String(), "error", err)
		return fmt.Errorf("failed to update account: %w", err)
	}

	if result.RowsAffected() == 0 {
		return account.ErrConcurrentModification{AccountID: acc.ID}
	}

	acc.Version++
	return nil
}

// LockForUpdate obtains a row lock on the account for the rest of the transaction.
func (r *AccountRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to lock account for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock account for update: %w", err)
	}

	return acc, nil
}

// LockForShare reads the account under a share lock; a concurrent
// LockForUpdate waits until this transaction ends.
func (r *AccountRepository) LockForShare(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1
		FOR SHARE
	`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to lock account for share", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock account for share: %w", err)
	}

	return acc, nil
}
