package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dinero-ledger/internal/config"
	"github.com/dinero-ledger/internal/data/memory"
	mongodata "github.com/dinero-ledger/internal/data/mongo"
	"github.com/dinero-ledger/internal/data/postgres"
	"github.com/dinero-ledger/internal/domain/snapshot"
	"github.com/dinero-ledger/internal/domain/uow"
	"github.com/dinero-ledger/internal/platform/persistence"
)

// BackendOptions selects what OpenBackend connects to.
type BackendOptions struct {
	// Migrate applies pending schema migrations before opening the pool.
	Migrate bool
	// ReadModels connects MongoDB for the entry view and snapshots.
	ReadModels bool
}

// Backend is an opened ledger store plus the optional read models.
// EntryView is nil on the memory backend or without read models.
type Backend struct {
	Store     uow.Store
	Snapshots snapshot.Repository
	EntryView *mongodata.EntryViewRepository

	postgresDB *persistence.PostgresDB
	mongoDB    *persistence.MongoDB
	logger     *slog.Logger
}

// OpenBackend opens the store named by cfg.Ledger.StorageBackend.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts BackendOptions) (*Backend, error) {
	b := &Backend{logger: logger}

	if cfg.Ledger.StorageBackend == config.StorageBackendMemory {
		logger.Warn("Using in-memory ledger store, data is lost on exit")
		b.Store = memory.NewStore()
		b.Snapshots = memory.NewSnapshotRepository()
		return b, nil
	}

	open := persistence.OpenPostgresDB
	if opts.Migrate {
		open = persistence.NewPostgresDB
	}
	db, err := open(ctx, logger, &cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	b.postgresDB = db
	b.Store = postgres.NewStore(logger, db)

	if !opts.ReadModels {
		return b, nil
	}

	mongoDB, err := persistence.NewMongoDB(ctx, logger, &cfg.MongoDB)
	if err != nil {
		b.Close(ctx)
		return nil, fmt.Errorf("failed to initialize MongoDB: %w", err)
	}
	b.mongoDB = mongoDB
	if err := mongoDB.EnsureIndexes(ctx, mongodata.EntryCollectionName, mongodata.EntryIndexes()); err != nil {
		b.Close(ctx)
		return nil, err
	}
	if err := mongoDB.EnsureIndexes(ctx, mongodata.SnapshotCollectionName, mongodata.SnapshotIndexes()); err != nil {
		b.Close(ctx)
		return nil, err
	}
	b.EntryView = mongodata.NewEntryViewRepository(logger, mongoDB.Database())
	b.Snapshots = mongodata.NewSnapshotRepository(logger, mongoDB.Database())
	return b, nil
}

// Close releases every connection the backend opened.
func (b *Backend) Close(ctx context.Context) {
	if b.mongoDB != nil {
		if err := b.mongoDB.Close(ctx); err != nil {
			b.logger.Error("Error closing MongoDB connection", "error", err)
		}
	}
	if b.postgresDB != nil {
		b.postgresDB.Close()
	}
}
