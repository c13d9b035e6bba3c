package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dinero-ledger/internal/config"
	"github.com/dinero-ledger/internal/engine/components"
	"github.com/dinero-ledger/internal/ledger_api"
	"github.com/dinero-ledger/internal/ledger_api/service"
	"github.com/dinero-ledger/internal/logger"
	"github.com/dinero-ledger/internal/platform/messaging/producers"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("ledger_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)
	log.Info("Starting Ledger API",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
		"storage_backend", cfg.Ledger.StorageBackend,
	)

	backend, err := components.OpenBackend(appCtx, cfg, log, components.BackendOptions{Migrate: true, ReadModels: true})
	if err != nil {
		log.Error("Failed to open ledger backend", "error", err)
		os.Exit(1)
	}

	engine := components.NewEngine(backend.Store, backend.Snapshots, log)
	services := ledger_api.Services{
		Accounts:  engine.Accounts,
		Entries:   engine.Posting,
		Reports:   engine.Projector,
		Snapshots: engine.Snapshots,
		Audit:     engine.Audit,
	}
	if backend.EntryView != nil {
		services.History = backend.EntryView
	}

	// The memory backend runs standalone, without Kafka.
	var entryProducer *producers.TopicProducer
	if cfg.Ledger.StorageBackend != config.StorageBackendMemory {
		entryProducer, err = producers.NewEntryRequestProducer(appCtx, log, &cfg.Kafka)
		if err != nil {
			log.Error("Failed to initialize entry request producer", "error", err)
			os.Exit(1)
		}
		services.Submitter = service.NewEntrySubmitter(log, engine.Posting, entryProducer)
	}

	server := ledger_api.NewServer(log, cfg, services)

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Drain requests before closing what they use.
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}
	if entryProducer != nil {
		if err = entryProducer.Close(); err != nil {
			log.Error("Error closing entry request producer", "error", err)
		}
	}
	backend.Close(shutdownCtx)

	if serverErr != nil || err != nil {
		log.Error("Ledger API shutdown completed with errors", "error", serverErr)
		os.Exit(1)
	}
	log.Info("Ledger API shutdown completed successfully")
}
