package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dinero-ledger/internal/domain/account"
	"github.com/dinero-ledger/internal/domain/ledger"
	"github.com/dinero-ledger/internal/domain/shared"
	"github.com/dinero-ledger/internal/domain/snapshot"
	engine "github.com/dinero-ledger/internal/engine/service"
	"github.com/dinero-ledger/internal/ledger_api/middleware"
)

// Response is the envelope of every JSON body.
type Response struct {
	Data          any        `json:"data,omitempty"`
	Error         *ErrorInfo `json:"error,omitempty"`
	CorrelationID string     `json:"correlation_id,omitempty"`
	Meta          *MetaInfo  `json:"meta,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

type MetaInfo struct {
	Page       int `json:"page,omitempty"`
	PerPage    int `json:"per_page,omitempty"`
	TotalPages int `json:"total_pages,omitempty"`
	TotalItems int `json:"total_items,omitempty"`
}

func NewPaginatedResponse(data any, page, perPage, totalItems int) *Response {
	totalPages := totalItems / perPage
	if totalItems%perPage > 0 {
		totalPages++
	}
	return &Response{
		Data: data,
		Meta: &MetaInfo{
			Page:       page,
			PerPage:    perPage,
			TotalPages: totalPages,
			TotalItems: totalItems,
		},
	}
}

func RespondWithData(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, &Response{Data: data, CorrelationID: middleware.GetCorrelationID(c)})
}

func RespondWithError(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, &Response{
		Error:         &ErrorInfo{Code: code, Message: message},
		CorrelationID: middleware.GetCorrelationID(c),
	})
}

func RespondWithPaginatedData(c *gin.Context, data any, page, perPage, totalItems int) {
	response := NewPaginatedResponse(data, page, perPage, totalItems)
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(http.StatusOK, response)
}

func RespondOK(c *gin.Context, data any)       { RespondWithData(c, http.StatusOK, data) }
func RespondCreated(c *gin.Context, data any)  { RespondWithData(c, http.StatusCreated, data) }
func RespondAccepted(c *gin.Context, data any) { RespondWithData(c, http.StatusAccepted, data) }

func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

func RespondInternalError(c *gin.Context) {
	RespondWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
}

// RespondDomainError maps err to a status by its kind:
//
//	validation  -> 422
//	referential -> 404 for a missing target, 409 otherwise
//	state       -> 409
//	storage     -> 500, message hidden
func RespondDomainError(c *gin.Context, logger *slog.Logger, op string, err error) {
	if errors.Is(err, engine.ErrSnapshotsDisabled) {
		RespondWithError(c, http.StatusNotImplemented, "NOT_IMPLEMENTED", err.Error())
		return
	}
	var snapshotMissing snapshot.ErrSnapshotNotFound
	if errors.As(err, &snapshotMissing) {
		RespondWithError(c, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}

	kind := shared.KindOf(err)
	status, code := http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"
	switch kind {
	case shared.KindValidation:
		status, code = http.StatusUnprocessableEntity, "VALIDATION_FAILED"
	case shared.KindReferential:
		status, code = http.StatusConflict, "CONFLICT"
		if isNotFound(err) {
			status, code = http.StatusNotFound, "NOT_FOUND"
		}
	case shared.KindState:
		status, code = http.StatusConflict, "INVALID_STATE"
	}

	if status == http.StatusInternalServerError {
		logger.Error("Request failed", "operation", op, "correlation_id", middleware.GetCorrelationID(c), "error", err)
		RespondInternalError(c)
		return
	}

	c.JSON(status, &Response{
		Error:         &ErrorInfo{Code: code, Kind: string(kind), Message: err.Error()},
		CorrelationID: middleware.GetCorrelationID(c),
	})
}

// isNotFound reports whether the error names an entity that does not exist.
func isNotFound(err error) bool {
	var accountMissing account.ErrAccountNotFound
	var entryMissing ledger.ErrEntryNotFound
	return errors.As(err, &entryMissing) || errors.As(err, &accountMissing)
}
