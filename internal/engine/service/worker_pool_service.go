package service

import (
	"context"
	"log/slog"

	"github.com/panjf2000/ants/v2"

	"github.com/dinero-ledger/internal/domain/ledger"
)

// WorkerPoolEntryProcessor bounds the number of entries posted concurrently
// by running the base processor on an ants pool.
type WorkerPoolEntryProcessor struct {
	base   EntryProcessor
	pool   *ants.Pool
	logger *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

type processResult struct {
	entry *ledger.Entry
	err   error
}

func NewWorkerPoolEntryProcessor(base EntryProcessor, config WorkerPoolConfig, logger *slog.Logger) (*WorkerPoolEntryProcessor, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}
	return &WorkerPoolEntryProcessor{base: base, pool: pool, logger: logger}, nil
}

// ProcessEntry submits the request to the pool and waits for its result.
func (p *WorkerPoolEntryProcessor) ProcessEntry(ctx context.Context, request *ledger.EntryRequest) (*ledger.Entry, error) {
	logger := p.logger
	if request.CorrelationID != "" {
		logger = p.logger.With("correlation_id", request.CorrelationID)
	}
	logger.Debug("Submitting entry to worker pool", "reference", request.Reference, "tenant_id", request.TenantID.String())

	// The worker gets its own copy; the caller may reuse request.
	requestCopy := *request
	results := make(chan processResult, 1)

	err := p.pool.Submit(func() {
		entry, err := p.base.ProcessEntry(ctx, &requestCopy)
		results <- processResult{entry: entry, err: err}
	})
	if err != nil {
		logger.Error("Failed to submit entry to worker pool", "reference", request.Reference, "error", err)
		return nil, err
	}

	select {
	case res := <-results:
		return res.entry, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown releases the pool. Tasks already running finish on their own.
func (p *WorkerPoolEntryProcessor) Shutdown() {
	p.logger.Info("Shutting down worker pool", "running_workers", p.pool.Running())
	p.pool.Release()
}

func (p *WorkerPoolEntryProcessor) Running() int {
	return p.pool.Running()
}

func (p *WorkerPoolEntryProcessor) Capacity() int {
	return p.pool.Cap()
}
