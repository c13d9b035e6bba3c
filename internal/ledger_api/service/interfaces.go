// Package service declares what the HTTP layer needs from the ledger. The
// engine services satisfy these interfaces directly; only asynchronous
// submission lives here.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dinero-ledger/internal/domain/account"
	"github.com/dinero-ledger/internal/domain/audit"
	"github.com/dinero-ledger/internal/domain/ledger"
	"github.com/dinero-ledger/internal/domain/report"
	"github.com/dinero-ledger/internal/domain/shared"
	"github.com/dinero-ledger/internal/domain/snapshot"
	engine "github.com/dinero-ledger/internal/engine/service"
)

// AccountService manages the chart of accounts.
type AccountService interface {
	CreateAccount(ctx context.Context, req engine.CreateAccountRequest, actor shared.Actor) (*account.Account, error)
	UpdateAccount(ctx context.Context, id uuid.UUID, req engine.UpdateAccountRequest, actor shared.Actor) (*account.Account, error)
	Deactivate(ctx context.Context, id uuid.UUID, actor shared.Actor) error
	SeedDefaultChart(ctx context.Context, tenantID uuid.UUID, actor shared.Actor) ([]*account.Account, error)
	Lookup(ctx context.Context, id uuid.UUID) (*account.Account, error)
	ListAccounts(ctx context.Context, tenantID uuid.UUID) ([]*account.Account, error)
	ListByType(ctx context.Context, tenantID uuid.UUID, t account.Type) ([]*account.Account, error)
}

// EntryService drives journal entries through their lifecycle.
type EntryService interface {
	CreateDraft(ctx context.Context, req ledger.EntryRequest, actor shared.Actor) (*ledger.Entry, error)
	UpdateDraft(ctx context.Context, entryID uuid.UUID, update engine.DraftUpdate, actor shared.Actor) (*ledger.Entry, error)
	DeleteDraft(ctx context.Context, entryID uuid.UUID, actor shared.Actor) error
	PostDraft(ctx context.Context, entryID uuid.UUID, actor shared.Actor) (*ledger.Entry, error)
	PostEntry(ctx context.Context, req ledger.EntryRequest, actor shared.Actor) (*ledger.Entry, error)
	ReverseEntry(ctx context.Context, entryID uuid.UUID, opts engine.ReverseOptions) (*ledger.Entry, error)
	GetEntry(ctx context.Context, entryID uuid.UUID) (*ledger.Entry, error)
	FindByReference(ctx context.Context, tenantID uuid.UUID, reference string) (*ledger.Entry, error)
	// ListEntries returns one page and the total number of entries of the tenant.
	ListEntries(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*ledger.Entry, int64, error)
}

// ReportService derives balances from posted lines.
type ReportService interface {
	AccountBalance(ctx context.Context, accountID uuid.UUID, asOf time.Time) (*report.AccountBalance, error)
	AccountLines(ctx context.Context, accountID uuid.UUID, dates ledger.DateRange) ([]ledger.PostedLine, error)
	TrialBalance(ctx context.Context, tenantID uuid.UUID, asOf time.Time) (*report.TrialBalance, error)
	PeriodActivity(ctx context.Context, tenantID uuid.UUID, dates ledger.DateRange) ([]report.AccountActivity, error)
}

type SnapshotService interface {
	Refresh(ctx context.Context, tenantID uuid.UUID, month time.Time) (*snapshot.PeriodSnapshot, error)
	Get(ctx context.Context, tenantID uuid.UUID, monthLabel string) (*snapshot.PeriodSnapshot, error)
	List(ctx context.Context, tenantID uuid.UUID, limit int) ([]*snapshot.PeriodSnapshot, error)
}

type AuditService interface {
	List(ctx context.Context, entityType audit.EntityType, entityID uuid.UUID) ([]*audit.Record, error)
}

// EntryHistory reads the posted-entry read model.
type EntryHistory interface {
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*ledger.Entry, error)
	CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)
}

// EntrySubmitter queues an entry request for the entry processor.
type EntrySubmitter interface {
	// Submit returns the already recorded entry when the reference is known,
	// or nil once the request is queued.
	Submit(ctx context.Context, req *ledger.EntryRequest) (*ledger.Entry, error)
}
