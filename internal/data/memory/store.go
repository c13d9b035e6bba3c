// Package memory is an in-process ledger store. Each transaction works on a
// private copy of the state that replaces the shared one on commit, so
// readers never observe a partial write. Writers are serialized.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/google/uuid"

	"github.com/dinero-ledger/internal/domain/account"
	"github.com/dinero-ledger/internal/domain/audit"
	"github.com/dinero-ledger/internal/domain/ledger"
	"github.com/dinero-ledger/internal/domain/outbox"
	"github.com/dinero-ledger/internal/domain/uow"
)

type codeKey struct {
	tenantID uuid.UUID
	code     string
}

// state is never modified once committed. Stored objects are replaced, not
// mutated, so a shallow copy of the maps isolates a transaction.
type state struct {
	accounts      map[uuid.UUID]*account.Account
	accountByCode map[codeKey]uuid.UUID
	entries       map[uuid.UUID]*ledger.Entry
	entryByRef    map[codeKey]uuid.UUID
	reversals     map[uuid.UUID]uuid.UUID // original -> reversal
	audit         []*audit.Record
	outbox        map[int64]*outbox.Message
	nextOutboxID  int64
}

func newState() *state {
	return &state{
		accounts:      make(map[uuid.UUID]*account.Account),
		accountByCode: make(map[codeKey]uuid.UUID),
		entries:       make(map[uuid.UUID]*ledger.Entry),
		entryByRef:    make(map[codeKey]uuid.UUID),
		reversals:     make(map[uuid.UUID]uuid.UUID),
		outbox:        make(map[int64]*outbox.Message),
	}
}

func (s *state) clone() *state {
	return &state{
		accounts:      maps.Clone(s.accounts),
		accountByCode: maps.Clone(s.accountByCode),
		entries:       maps.Clone(s.entries),
		entryByRef:    maps.Clone(s.entryByRef),
		reversals:     maps.Clone(s.reversals),
		audit:         s.audit[:len(s.audit):len(s.audit)],
		outbox:        maps.Clone(s.outbox),
		nextOutboxID:  s.nextOutboxID,
	}
}

// Store implements uow.Store in memory.
type Store struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	current *state
}

var _ uow.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{current: newState()}
}

func (s *Store) snapshot() *state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// WithinTx runs fn against a private copy and publishes it only if fn
// returns nil.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx uow.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	working := s.snapshot().clone()
	if err := fn(ctx, &repositories{tx: working}); err != nil {
		return err
	}

	s.mu.Lock()
	s.current = working
	s.mu.Unlock()
	return nil
}

func (s *Store) Accounts() account.Repository { return &accountRepository{store: s} }
func (s *Store) Entries() ledger.Repository   { return &entryRepository{store: s} }
func (s *Store) Audit() audit.Repository      { return &auditRepository{store: s} }
func (s *Store) Outbox() outbox.Repository    { return &outboxRepository{store: s} }

// repositories is the transactional view handed to WithinTx callbacks.
type repositories struct {
	tx *state
}

func (r *repositories) Accounts() account.Repository { return &accountRepository{tx: r.tx} }
func (r *repositories) Entries() ledger.Repository   { return &entryRepository{tx: r.tx} }
func (r *repositories) Audit() audit.Repository      { return &auditRepository{tx: r.tx} }
func (r *repositories) Outbox() outbox.Repository    { return &outboxRepository{tx: r.tx} }

// view is embedded by every repository. Inside a transaction it works on
// the private state; outside, reads use the committed state and each write
// runs as its own transaction.
type view struct {
	store *Store
	tx    *state
}

func (v view) read() *state {
	if v.tx != nil {
		return v.tx
	}
	return v.store.snapshot()
}

func (v view) write(ctx context.Context, fn func(st *state) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	return v.store.WithinTx(ctx, func(_ context.Context, tx uow.Repositories) error {
		return fn(tx.(*repositories).tx)
	})
}
