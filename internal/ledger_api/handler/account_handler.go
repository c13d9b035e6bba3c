package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dinero-ledger/internal/domain/account"
	engine "github.com/dinero-ledger/internal/engine/service"
	"github.com/dinero-ledger/internal/ledger_api/middleware"
	"github.com/dinero-ledger/internal/ledger_api/service"
)

// AccountHandler serves the chart of accounts and per-account reads.
type AccountHandler struct {
	accounts service.AccountService
	reports  service.ReportService
	history  service.EntryHistory
	logger   *slog.Logger
}

// NewAccountHandler builds the handler. history may be nil when no read
// model is configured; the history endpoint then answers 501.
func NewAccountHandler(logger *slog.Logger, accounts service.AccountService, reports service.ReportService, history service.EntryHistory) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		reports:  reports,
		history:  history,
		logger:   logger,
	}
}

// Create adds an account to the tenant's chart.
func (h *AccountHandler) Create(c *gin.Context) {
	tenantID, ok := uuidParam(c, "tenant_id")
	if !ok {
		return
	}
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	parentID, err := parseOptionalUUID(req.ParentID)
	if err != nil {
		RespondBadRequest(c, "Invalid parent_id")
		return
	}

	acc, err := h.accounts.CreateAccount(c.Request.Context(), engine.CreateAccountRequest{
		TenantID:    tenantID,
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Type:        account.Type(req.Type),
		ParentID:    parentID,
	}, middleware.GetActor(c))
	if err != nil {
		RespondDomainError(c, h.logger, "create account", err)
		return
	}
	RespondCreated(c, mapAccountToResponse(acc))
}

// List returns the tenant's chart, optionally filtered by ?type=.
func (h *AccountHandler) List(c *gin.Context) {
	tenantID, ok := uuidParam(c, "tenant_id")
	if !ok {
		return
	}

	var (
		accounts []*account.Account
		err      error
	)
	if t := c.Query("type"); t != "" {
		accounts, err = h.accounts.ListByType(c.Request.Context(), tenantID, account.Type(t))
	} else {
		accounts, err = h.accounts.ListAccounts(c.Request.Context(), tenantID)
	}
	if err != nil {
		RespondDomainError(c, h.logger, "list accounts", err)
		return
	}
	RespondOK(c, mapAccountsToResponse(accounts))
}

// SeedChart installs the default chart of accounts. Codes already present
// are left alone, so the call is safe to repeat.
func (h *AccountHandler) SeedChart(c *gin.Context) {
	tenantID, ok := uuidParam(c, "tenant_id")
	if !ok {
		return
	}
	created, err := h.accounts.SeedDefaultChart(c.Request.Context(), tenantID, middleware.GetActor(c))
	if err != nil {
		RespondDomainError(c, h.logger, "seed chart", err)
		return
	}
	RespondCreated(c, mapAccountsToResponse(created))
}

func (h *AccountHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	acc, err := h.accounts.Lookup(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, h.logger, "get account", err)
		return
	}
	RespondOK(c, mapAccountToResponse(acc))
}

func (h *AccountHandler) Update(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	update := engine.UpdateAccountRequest{
		Name:        req.Name,
		Description: req.Description,
		ClearParent: req.ClearParent,
	}
	if req.Type != nil {
		t := account.Type(*req.Type)
		update.Type = &t
	}
	if req.ParentID != nil {
		parentID, err := parseOptionalUUID(*req.ParentID)
		if err != nil {
			RespondBadRequest(c, "Invalid parent_id")
			return
		}
		update.ParentID = parentID
	}

	acc, err := h.accounts.UpdateAccount(c.Request.Context(), id, update, middleware.GetActor(c))
	if err != nil {
		RespondDomainError(c, h.logger, "update account", err)
		return
	}
	RespondOK(c, mapAccountToResponse(acc))
}

// Deactivate retires an account. Its history stays in every report.
func (h *AccountHandler) Deactivate(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.accounts.Deactivate(c.Request.Context(), id, middleware.GetActor(c)); err != nil {
		RespondDomainError(c, h.logger, "deactivate account", err)
		return
	}
	RespondNoContent(c)
}

func (h *AccountHandler) Balance(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	asOf, ok := asOfQuery(c)
	if !ok {
		return
	}
	balance, err := h.reports.AccountBalance(c.Request.Context(), id, asOf)
	if err != nil {
		RespondDomainError(c, h.logger, "account balance", err)
		return
	}
	RespondOK(c, balance)
}

// Lines lists the account's posted lines in entry date order.
func (h *AccountHandler) Lines(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	dates, ok := rangeQuery(c)
	if !ok {
		return
	}
	lines, err := h.reports.AccountLines(c.Request.Context(), id, dates)
	if err != nil {
		RespondDomainError(c, h.logger, "account lines", err)
		return
	}
	RespondOK(c, lines)
}

// History pages through entries touching the account, newest first, from
// the read model. The read model lags the ledger by one outbox poll.
func (h *AccountHandler) History(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if h.history == nil {
		RespondWithError(c, http.StatusNotImplemented, "NOT_IMPLEMENTED", "entry history is not configured")
		return
	}
	var page PaginationParams
	if err := c.ShouldBindQuery(&page); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	entries, err := h.history.ListByAccount(c.Request.Context(), id, page.PerPage, page.Offset())
	if err != nil {
		RespondDomainError(c, h.logger, "account history", err)
		return
	}
	total, err := h.history.CountByAccount(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, h.logger, "account history", err)
		return
	}
	RespondWithPaginatedData(c, mapEntriesToResponse(entries), page.Page, page.PerPage, int(total))
}
