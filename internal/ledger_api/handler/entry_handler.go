package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dinero-ledger/internal/domain/ledger"
	"github.com/dinero-ledger/internal/domain/shared"
	engine "github.com/dinero-ledger/internal/engine/service"
	"github.com/dinero-ledger/internal/ledger_api/middleware"
	"github.com/dinero-ledger/internal/ledger_api/service"
)

// EntryHandler serves journal entries: drafts, posting, reversal and reads.
type EntryHandler struct {
	entries   service.EntryService
	submitter service.EntrySubmitter
	logger    *slog.Logger
}

// NewEntryHandler builds the handler. submitter may be nil, in which case
// asynchronous submission answers 501.
func NewEntryHandler(logger *slog.Logger, entries service.EntryService, submitter service.EntrySubmitter) *EntryHandler {
	return &EntryHandler{
		entries:   entries,
		submitter: submitter,
		logger:    logger,
	}
}

type ledgerRequest struct {
	req   ledger.EntryRequest
	actor shared.Actor
}

// bindEntry reads an entry request body for the tenant in the path.
func (h *EntryHandler) bindEntry(c *gin.Context) (ledgerRequest, bool) {
	tenantID, ok := uuidParam(c, "tenant_id")
	if !ok {
		return ledgerRequest{}, false
	}
	var req EntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return ledgerRequest{}, false
	}
	actor := middleware.GetActor(c)
	domainReq, err := req.toDomain(tenantID, actor)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return ledgerRequest{}, false
	}
	return ledgerRequest{req: domainReq, actor: actor}, true
}

// Post records a balanced entry and posts it in one step.
func (h *EntryHandler) Post(c *gin.Context) {
	in, ok := h.bindEntry(c)
	if !ok {
		return
	}
	entry, err := h.entries.PostEntry(c.Request.Context(), in.req, in.actor)
	if err != nil {
		RespondDomainError(c, h.logger, "post entry", err)
		return
	}
	RespondCreated(c, mapEntryToResponse(entry))
}

// CreateDraft stores an entry without posting it. Drafts may be unbalanced.
func (h *EntryHandler) CreateDraft(c *gin.Context) {
	in, ok := h.bindEntry(c)
	if !ok {
		return
	}
	entry, err := h.entries.CreateDraft(c.Request.Context(), in.req, in.actor)
	if err != nil {
		RespondDomainError(c, h.logger, "create draft", err)
		return
	}
	RespondCreated(c, mapEntryToResponse(entry))
}

// Submit queues the entry for the entry processor and answers 202. A
// reference that is already posted is answered with the existing entry.
func (h *EntryHandler) Submit(c *gin.Context) {
	if h.submitter == nil {
		RespondWithError(c, http.StatusNotImplemented, "NOT_IMPLEMENTED", "asynchronous submission is not configured")
		return
	}
	in, ok := h.bindEntry(c)
	if !ok {
		return
	}
	existing, err := h.submitter.Submit(c.Request.Context(), &in.req)
	if err != nil {
		RespondDomainError(c, h.logger, "submit entry", err)
		return
	}
	if existing != nil {
		RespondOK(c, mapEntryToResponse(existing))
		return
	}
	RespondAccepted(c, gin.H{
		"tenant_id": in.req.TenantID.String(),
		"reference": in.req.Reference,
		"status":    "QUEUED",
	})
}

func (h *EntryHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	entry, err := h.entries.GetEntry(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, h.logger, "get entry", err)
		return
	}
	RespondOK(c, mapEntryToResponse(entry))
}

func (h *EntryHandler) GetByReference(c *gin.Context) {
	tenantID, ok := uuidParam(c, "tenant_id")
	if !ok {
		return
	}
	entry, err := h.entries.FindByReference(c.Request.Context(), tenantID, c.Param("reference"))
	if err != nil {
		RespondDomainError(c, h.logger, "find entry by reference", err)
		return
	}
	RespondOK(c, mapEntryToResponse(entry))
}

// List pages through the tenant's entries.
func (h *EntryHandler) List(c *gin.Context) {
	tenantID, ok := uuidParam(c, "tenant_id")
	if !ok {
		return
	}
	var page PaginationParams
	if err := c.ShouldBindQuery(&page); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}
	entries, total, err := h.entries.ListEntries(c.Request.Context(), tenantID, page.PerPage, page.Offset())
	if err != nil {
		RespondDomainError(c, h.logger, "list entries", err)
		return
	}
	RespondWithPaginatedData(c, mapEntriesToResponse(entries), page.Page, page.PerPage, int(total))
}

// UpdateDraft replaces a draft's header fields and lines.
func (h *EntryHandler) UpdateDraft(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req UpdateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	entryDate, err := parseDate("entry_date", req.EntryDate)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}
	lines, err := linesToDomain(req.Lines)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	entry, err := h.entries.UpdateDraft(c.Request.Context(), id, engine.DraftUpdate{
		Description: req.Description,
		EntryDate:   entryDate,
		Lines:       lines,
	}, middleware.GetActor(c))
	if err != nil {
		RespondDomainError(c, h.logger, "update draft", err)
		return
	}
	RespondOK(c, mapEntryToResponse(entry))
}

func (h *EntryHandler) DeleteDraft(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.entries.DeleteDraft(c.Request.Context(), id, middleware.GetActor(c)); err != nil {
		RespondDomainError(c, h.logger, "delete draft", err)
		return
	}
	RespondNoContent(c)
}

// PostDraft posts a stored draft.
func (h *EntryHandler) PostDraft(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	entry, err := h.entries.PostDraft(c.Request.Context(), id, middleware.GetActor(c))
	if err != nil {
		RespondDomainError(c, h.logger, "post draft", err)
		return
	}
	RespondOK(c, mapEntryToResponse(entry))
}

// Reverse posts the mirror of a posted entry and answers with the reversal.
// The body is optional; without a date the reversal takes the original's.
func (h *EntryHandler) Reverse(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req ReverseRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondBadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}
	date, err := parseOptionalDate("date", req.Date, time.Time{})
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	reversal, err := h.entries.ReverseEntry(c.Request.Context(), id, engine.ReverseOptions{
		Date:  date,
		Actor: middleware.GetActor(c),
	})
	if err != nil {
		RespondDomainError(c, h.logger, "reverse entry", err)
		return
	}
	RespondCreated(c, mapEntryToResponse(reversal))
}
