package ledger_api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dinero-ledger/internal/ledger_api/handler"
	"github.com/dinero-ledger/internal/ledger_api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	accountHandler *handler.AccountHandler,
	entryHandler *handler.EntryHandler,
	reportHandler *handler.ReportHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Actor())
	r.Use(middleware.Logger(logger))

	v1 := r.Group("/api/v1")
	{
		tenant := v1.Group("/tenants/:tenant_id")
		{
			tenant.GET("/accounts", accountHandler.List)
			tenant.POST("/accounts", accountHandler.Create)
			tenant.POST("/accounts/seed", accountHandler.SeedChart)

			tenant.GET("/entries", entryHandler.List)
			tenant.POST("/entries", entryHandler.Post)
			tenant.POST("/entries/drafts", entryHandler.CreateDraft)
			tenant.POST("/entries/submissions", entryHandler.Submit)
			tenant.GET("/entries/by-reference/:reference", entryHandler.GetByReference)

			tenant.GET("/reports/trial-balance", reportHandler.TrialBalance)
			tenant.GET("/reports/activity", reportHandler.Activity)

			tenant.GET("/snapshots", reportHandler.ListSnapshots)
			tenant.GET("/snapshots/:month", reportHandler.GetSnapshot)
			tenant.POST("/snapshots/:month/refresh", reportHandler.RefreshSnapshot)
		}

		accounts := v1.Group("/accounts/:id")
		{
			accounts.GET("", accountHandler.Get)
			accounts.PATCH("", accountHandler.Update)
			accounts.POST("/deactivate", accountHandler.Deactivate)
			accounts.GET("/balance", accountHandler.Balance)
			accounts.GET("/lines", accountHandler.Lines)
			accounts.GET("/history", accountHandler.History)
			accounts.GET("/audit", reportHandler.AccountAudit)
		}

		entries := v1.Group("/entries/:id")
		{
			entries.GET("", entryHandler.Get)
			entries.PUT("", entryHandler.UpdateDraft)
			entries.DELETE("", entryHandler.DeleteDraft)
			entries.POST("/post", entryHandler.PostDraft)
			entries.POST("/reverse", entryHandler.Reverse)
			entries.GET("/audit", reportHandler.EntryAudit)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
