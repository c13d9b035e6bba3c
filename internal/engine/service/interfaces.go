// Package service implements the ledger engine operations. Every mutation
// runs inside one unit of work together with its audit record and, for
// entries, its outbox event.
package service

import (
	"context"

	"github.com/dinero-ledger/internal/domain/account"
	"github.com/dinero-ledger/internal/domain/audit"
	"github.com/dinero-ledger/internal/domain/ledger"
	"github.com/dinero-ledger/internal/domain/shared"
	"github.com/dinero-ledger/internal/domain/uow"
)

// EntryValidator checks a candidate entry against the chart of accounts.
// It never reads other entries.
type EntryValidator interface {
	// Validate runs every posting check, balance included.
	Validate(ctx context.Context, accounts account.Repository, entry *ledger.Entry) error
	// ValidateDraft runs the same checks except balance.
	ValidateDraft(ctx context.Context, accounts account.Repository, entry *ledger.Entry) error
}

// AuditRecorder appends the audit record of a mutation inside the caller's
// unit of work. A failure must abort that unit.
type AuditRecorder interface {
	Record(ctx context.Context, repos uow.Repositories, change audit.Change, actor shared.Actor) error
}

// OutboxManager queues a ledger event in the caller's unit of work.
type OutboxManager interface {
	Enqueue(ctx context.Context, repos uow.Repositories, eventType shared.EventType, entry *ledger.Entry, correlationID string) error
}

// EntryProcessor posts candidate entries arriving from the message bus.
type EntryProcessor interface {
	ProcessEntry(ctx context.Context, request *ledger.EntryRequest) (*ledger.Entry, error)
}
