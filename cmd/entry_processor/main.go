package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dinero-ledger/internal/config"
	"github.com/dinero-ledger/internal/engine/components"
	"github.com/dinero-ledger/internal/engine/service"
	"github.com/dinero-ledger/internal/entry_processor/consumer"
	"github.com/dinero-ledger/internal/entry_processor/draft_sweeper"
	"github.com/dinero-ledger/internal/entry_processor/outbox_poller"
	"github.com/dinero-ledger/internal/logger"
	"github.com/dinero-ledger/internal/platform/messaging/consumers"
	"github.com/dinero-ledger/internal/platform/messaging/producers"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("entry_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)
	log.Info("Starting Entry Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Outbox rows written by the API are only visible through a shared store.
	if cfg.Ledger.StorageBackend == config.StorageBackendMemory {
		log.Error("Entry processor requires the postgres storage backend")
		os.Exit(1)
	}

	backend, err := components.OpenBackend(appCtx, cfg, log, components.BackendOptions{Migrate: true, ReadModels: true})
	if err != nil {
		log.Error("Failed to open ledger backend", "error", err)
		os.Exit(1)
	}
	engine := components.NewEngine(backend.Store, backend.Snapshots, log)

	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	var dlq producers.DeadLetterPublisher
	if dlqProducer != nil {
		dlq = dlqProducer
	}

	eventProducer, err := producers.NewLedgerEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize ledger event producer", "error", err)
		os.Exit(1)
	}

	processor := components.CreateEntryProcessor(engine, cfg, log)
	entryRequestHandler := consumer.NewEntryRequestHandler(log, processor, dlq)

	var view outbox_poller.EntryView
	if backend.EntryView != nil {
		view = backend.EntryView
	}
	publisher := outbox_poller.NewEventPublisher(
		backend.Store.Outbox(),
		eventProducer,
		view,
		engine.Snapshots,
		log.With("component", "event_publisher"),
	)
	poller := outbox_poller.NewPoller(&cfg.Outbox, backend.Store.Outbox(), publisher, log.With("component", "outbox_poller"))
	sweeper := draft_sweeper.NewSweeper(&cfg.Ledger, engine.Posting, log.With("component", "draft_sweeper"))

	errChan := make(chan error, 1)
	var wg sync.WaitGroup

	if err := kafkaConsumer.Subscribe(appCtx, entryRequestHandler.HandleMessage); err != nil {
		errChan <- fmt.Errorf("kafka consumer error: %w", err)
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()
	go func() {
		defer wg.Done()
		sweeper.Start(appCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	cancelAppCtx()

	if pooled, ok := processor.(*service.WorkerPoolEntryProcessor); ok {
		log.Info("Shutting down worker pool", "running_workers", pooled.Running())
		pooled.Shutdown()
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")
	stopped := make(chan struct{})
	go func() {
		wg.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}
	if dlqProducer != nil {
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}
	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing ledger event producer", "error", err)
	}
	backend.Close(shutdownCtx)

	if serviceErr != nil || err != nil {
		log.Error("Entry Processor shutdown completed with errors", "error", serviceErr)
		os.Exit(1)
	}
	log.Info("Entry Processor shutdown completed successfully")
}
