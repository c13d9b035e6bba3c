package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dinero-ledger/internal/domain/account"
	"github.com/dinero-ledger/internal/domain/ledger"
	"github.com/dinero-ledger/internal/domain/shared"
	"github.com/dinero-ledger/internal/domain/snapshot"
	engine "github.com/dinero-ledger/internal/engine/service"
	"github.com/dinero-ledger/internal/ledger_api/middleware"
)

func TestRespondDomainError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	entryID := uuid.New()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantKind   string
	}{
		{
			name:       "unbalanced",
			err:        ledger.ErrUnbalanced{DebitTotal: decimal.NewFromInt(100), CreditTotal: decimal.NewFromInt(90)},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "VALIDATION_FAILED",
			wantKind:   "validation",
		},
		{
			name: "joined validation failures",
			err: errors.Join(
				ledger.ErrInvalidLine{LineNumber: 2, Reason: "amount must be positive"},
				ledger.ErrUnbalanced{},
			),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "VALIDATION_FAILED",
			wantKind:   "validation",
		},
		{
			name:       "missing entry",
			err:        fmt.Errorf("load: %w", ledger.ErrEntryNotFound{EntryID: entryID}),
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
			wantKind:   "referential",
		},
		{
			name:       "missing account",
			err:        account.ErrAccountNotFound{AccountID: uuid.New()},
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
			wantKind:   "referential",
		},
		{
			name:       "inactive account",
			err:        account.ErrAccountInactive{AccountID: uuid.New()},
			wantStatus: http.StatusConflict,
			wantCode:   "CONFLICT",
			wantKind:   "referential",
		},
		{
			name:       "already posted",
			err:        ledger.ErrAlreadyPosted{EntryID: entryID},
			wantStatus: http.StatusConflict,
			wantCode:   "INVALID_STATE",
			wantKind:   "state",
		},
		{
			name:       "missing snapshot",
			err:        snapshot.ErrSnapshotNotFound{TenantID: uuid.New(), MonthLabel: "2026-01"},
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "snapshots disabled",
			err:        engine.ErrSnapshotsDisabled,
			wantStatus: http.StatusNotImplemented,
			wantCode:   "NOT_IMPLEMENTED",
		},
		{
			name:       "storage failure hides details",
			err:        shared.NewStorageError("insert entry", errors.New("connection reset")),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_SERVER_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rr)
			c.Set(middleware.CorrelationIDKey, "corr-err")

			RespondDomainError(c, logger, "test", tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			var body Response
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.Equal(t, tt.wantKind, body.Error.Kind)
			assert.Equal(t, "corr-err", body.CorrelationID)
			if tt.wantStatus == http.StatusInternalServerError {
				assert.NotContains(t, body.Error.Message, "connection reset")
			}
		})
	}
}

func TestNewPaginatedResponse(t *testing.T) {
	resp := NewPaginatedResponse([]int{1, 2}, 2, 10, 21)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 3, resp.Meta.TotalPages)
	assert.Equal(t, 21, resp.Meta.TotalItems)
}
