package handler

import (
	"log/slog"
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/dinero-ledger/internal/domain/audit"
	"github.com/dinero-ledger/internal/ledger_api/service"
)

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ReportHandler serves tenant-wide reports, snapshots and audit trails.
type ReportHandler struct {
	reports   service.ReportService
	snapshots service.SnapshotService
	audit     service.AuditService
	logger    *slog.Logger
}

func NewReportHandler(logger *slog.Logger, reports service.ReportService, snapshots service.SnapshotService, audit service.AuditService) *ReportHandler {
	return &ReportHandler{
		reports:   reports,
		snapshots: snapshots,
		audit:     audit,
		logger:    logger,
	}
}

// TrialBalance lists net balances as of ?as_of=, default today.
func (h *ReportHandler) TrialBalance(c *gin.Context) {
	tenantID, ok := uuidParam(c, "tenant_id")
	if !ok {
		return
	}
	asOf, ok := asOfQuery(c)
	if !ok {
		return
	}
	tb, err := h.reports.TrialBalance(c.Request.Context(), tenantID, asOf)
	if err != nil {
		RespondDomainError(c, h.logger, "trial balance", err)
		return
	}
	RespondOK(c, gin.H{
		"trial_balance": tb,
		"balanced":      tb.IsBalanced(),
	})
}

// Activity lists per-account movement between ?from= and ?to=.
func (h *ReportHandler) Activity(c *gin.Context) {
	tenantID, ok := uuidParam(c, "tenant_id")
	if !ok {
		return
	}
	dates, ok := rangeQuery(c)
	if !ok {
		return
	}
	rows, err := h.reports.PeriodActivity(c.Request.Context(), tenantID, dates)
	if err != nil {
		RespondDomainError(c, h.logger, "period activity", err)
		return
	}
	RespondOK(c, rows)
}

func (h *ReportHandler) ListSnapshots(c *gin.Context) {
	tenantID, ok := uuidParam(c, "tenant_id")
	if !ok {
		return
	}
	limit, ok := limitQuery(c, 12, 120)
	if !ok {
		return
	}
	snapshots, err := h.snapshots.List(c.Request.Context(), tenantID, limit)
	if err != nil {
		RespondDomainError(c, h.logger, "list snapshots", err)
		return
	}
	RespondOK(c, snapshots)
}

// GetSnapshot returns the stored snapshot of :month (YYYY-MM).
func (h *ReportHandler) GetSnapshot(c *gin.Context) {
	tenantID, ok := uuidParam(c, "tenant_id")
	if !ok {
		return
	}
	month := c.Param("month")
	if !monthPattern.MatchString(month) {
		RespondBadRequest(c, "month must be formatted as YYYY-MM")
		return
	}
	s, err := h.snapshots.Get(c.Request.Context(), tenantID, month)
	if err != nil {
		RespondDomainError(c, h.logger, "get snapshot", err)
		return
	}
	RespondOK(c, s)
}

// RefreshSnapshot recomputes and stores the snapshot of :month.
func (h *ReportHandler) RefreshSnapshot(c *gin.Context) {
	tenantID, ok := uuidParam(c, "tenant_id")
	if !ok {
		return
	}
	month := c.Param("month")
	if !monthPattern.MatchString(month) {
		RespondBadRequest(c, "month must be formatted as YYYY-MM")
		return
	}
	start, err := parseDate("month", month+"-01")
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}
	s, err := h.snapshots.Refresh(c.Request.Context(), tenantID, start)
	if err != nil {
		RespondDomainError(c, h.logger, "refresh snapshot", err)
		return
	}
	RespondOK(c, s)
}

func (h *ReportHandler) AccountAudit(c *gin.Context) {
	h.auditTrail(c, audit.EntityAccount)
}

func (h *ReportHandler) EntryAudit(c *gin.Context) {
	h.auditTrail(c, audit.EntityJournalEntry)
}

func (h *ReportHandler) auditTrail(c *gin.Context, entityType audit.EntityType) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	records, err := h.audit.List(c.Request.Context(), entityType, id)
	if err != nil {
		RespondDomainError(c, h.logger, "audit trail", err)
		return
	}
	RespondOK(c, records)
}
