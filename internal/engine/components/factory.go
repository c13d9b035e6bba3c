package components

import (
	"log/slog"

	"github.com/dinero-ledger/internal/config"
	"github.com/dinero-ledger/internal/domain/snapshot"
	"github.com/dinero-ledger/internal/domain/uow"
	"github.com/dinero-ledger/internal/engine/service"
)

// Engine bundles the services built over one store.
type Engine struct {
	Accounts  *service.AccountDirectory
	Posting   *service.PostingService
	Projector *service.Projector
	Snapshots *service.SnapshotService
	Audit     *service.AuditTrail
}

// NewEngine wires the engine services. snapshots may be nil, in which case
// snapshot storage is disabled but snapshots can still be built.
func NewEngine(store uow.Store, snapshots snapshot.Repository, logger *slog.Logger) *Engine {
	auditor := NewAuditRecorder(logger.With("component", "audit"))
	projector := service.NewProjector(store, logger.With("component", "projector"))

	return &Engine{
		Accounts: service.NewAccountDirectory(store, auditor, logger.With("component", "accounts")),
		Posting: service.NewPostingService(
			store,
			NewEntryValidator(logger),
			auditor,
			NewOutboxManager(logger.With("component", "outbox")),
			logger.With("component", "posting"),
		),
		Projector: projector,
		Snapshots: service.NewSnapshotService(projector, snapshots, logger.With("component", "snapshots")),
		Audit:     service.NewAuditTrail(store.Audit()),
	}
}

// CreateEntryProcessor wraps the posting service in a worker pool sized by
// cfg, falling back to the bare service if the pool cannot be created.
func CreateEntryProcessor(engine *Engine, cfg *config.Config, logger *slog.Logger) service.EntryProcessor {
	pooled, err := service.NewWorkerPoolEntryProcessor(
		engine.Posting,
		service.WorkerPoolConfig{Size: cfg.WorkerPool.Size},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		logger.Error("Failed to create worker pool, falling back to base service", "error", err)
		return engine.Posting
	}

	logger.Info("Created worker pool entry processor", "pool_size", cfg.WorkerPool.Size)
	return pooled
}
