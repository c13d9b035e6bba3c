// Package ledger_api exposes the ledger engine over HTTP.
package ledger_api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dinero-ledger/internal/config"
	"github.com/dinero-ledger/internal/ledger_api/handler"
	"github.com/dinero-ledger/internal/ledger_api/service"
)

// Services bundles what the handlers call. History and Submitter are
// optional.
type Services struct {
	Accounts  service.AccountService
	Entries   service.EntryService
	Reports   service.ReportService
	Snapshots service.SnapshotService
	Audit     service.AuditService
	History   service.EntryHistory
	Submitter service.EntrySubmitter
}

// Server handles HTTP requests and manages the application's lifecycle
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
	httpRouter *gin.Engine
}

// NewServer creates and configures a new HTTP server with the given services
func NewServer(log *slog.Logger, cfg *config.Config, services Services) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()
	setupRouter(log, httpRouter,
		handler.NewAccountHandler(log, services.Accounts, services.Reports, services.History),
		handler.NewEntryHandler(log, services.Entries, services.Submitter),
		handler.NewReportHandler(log, services.Reports, services.Snapshots, services.Audit),
	)

	return &Server{
		logger: log,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      httpRouter,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
		httpRouter: httpRouter,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpRouter
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop drains in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	return nil
}
