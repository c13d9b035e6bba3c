package account

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines account persistence operations
type Repository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (*Account, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*Account, error)
	ListByType(ctx context.Context, tenantID uuid.UUID, accountType Type) ([]*Account, error)

	// Update persists the account if its stored version still equals
	// account.Version, then bumps the version.
	Update(ctx context.Context, account *Account) error

	// LockForUpdate acquires a pessimistic lock for the rest of the transaction
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)

	// LockForShare reads the account and blocks writers until the
	// transaction ends.
	LockForShare(ctx context.Context, id uuid.UUID) (*Account, error)
}
