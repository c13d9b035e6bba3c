// Package uow defines the transactional boundary the engine writes through.
package uow

import (
	"context"

	"github.com/dinero-ledger/internal/domain/account"
	"github.com/dinero-ledger/internal/domain/audit"
	"github.com/dinero-ledger/internal/domain/ledger"
	"github.com/dinero-ledger/internal/domain/outbox"
)

// Repositories groups the stores touched by a ledger operation.
type Repositories interface {
	Accounts() account.Repository
	Entries() ledger.Repository
	Audit() audit.Repository
	Outbox() outbox.Repository
}

// Store exposes non-transactional repositories for reads and runs fn inside
// one atomic unit. Every write fn makes commits together or not at all.
type Store interface {
	Repositories
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
}
