package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/dinero-ledger/internal/domain/account"
	"github.com/dinero-ledger/internal/domain/audit"
	"github.com/dinero-ledger/internal/domain/ledger"
	"github.com/dinero-ledger/internal/domain/outbox"
	"github.com/dinero-ledger/internal/domain/uow"
	"github.com/dinero-ledger/internal/platform/persistence"
)

// txExecutor runs fn in a database transaction.
type txExecutor interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Store is the Postgres unit of work. Reads outside WithinTx use the pool.
type Store struct {
	accounts *AccountRepository
	entries  *EntryRepository
	audit    *AuditRepository
	outbox   *OutboxRepository
	executor txExecutor
}

var _ uow.Store = (*Store)(nil)

func NewStore(logger *slog.Logger, db *persistence.PostgresDB) *Store {
	return newStore(logger, db.Pool(), db)
}

func newStore(logger *slog.Logger, querier persistence.Querier, executor txExecutor) *Store {
	return &Store{
		accounts: &AccountRepository{querier: querier, logger: logger},
		entries:  &EntryRepository{querier: querier, logger: logger},
		audit:    &AuditRepository{querier: querier, logger: logger},
		outbox:   &OutboxRepository{querier: querier, logger: logger},
		executor: executor,
	}
}

func (s *Store) Accounts() account.Repository { return s.accounts }
func (s *Store) Entries() ledger.Repository   { return s.entries }
func (s *Store) Audit() audit.Repository      { return s.audit }
func (s *Store) Outbox() outbox.Repository    { return s.outbox }

// WithinTx hands fn repositories bound to one transaction. Returning an
// error rolls back every write fn made.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx uow.Repositories) error) error {
	return s.executor.ExecuteTx(ctx, func(tx pgx.Tx) error {
		return fn(ctx, &txRepositories{
			accounts: s.accounts.WithTx(tx),
			entries:  s.entries.WithTx(tx),
			audit:    s.audit.WithTx(tx),
			outbox:   s.outbox.WithTx(tx),
		})
	})
}

type txRepositories struct {
	accounts *AccountRepository
	entries  *EntryRepository
	audit    *AuditRepository
	outbox   *OutboxRepository
}

func (t *txRepositories) Accounts() account.Repository { return t.accounts }
func (t *txRepositories) Entries() ledger.Repository   { return t.entries }
func (t *txRepositories) Audit() audit.Repository      { return t.audit }
func (t *txRepositories) Outbox() outbox.Repository    { return t.outbox }
