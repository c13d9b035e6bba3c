package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/dinero-ledger/internal/domain/ledger"
	"github.com/dinero-ledger/internal/domain/shared"
	"github.com/dinero-ledger/internal/ledger_api/middleware"
)

type MockEntrySubmitter struct {
	mock.Mock
}

func (m *MockEntrySubmitter) Submit(ctx context.Context, req *ledger.EntryRequest) (*ledger.Entry, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func submitBody(t *testing.T) []byte {
	t.Helper()
	raw, err := json.Marshal(EntryRequest{
		Reference: "INV-9",
		EntryDate: "2026-05-04",
		Source:    "csv_import",
		Lines: []LineRequest{
			{AccountID: uuid.NewString(), Side: "debit"},
			{AccountID: uuid.NewString(), Side: "credit"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestEntryHandler_Submit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tenantID := uuid.New()

	tests := []struct {
		name       string
		submitter  func() *MockEntrySubmitter
		body       []byte
		wantStatus int
	}{
		{
			name: "queued",
			submitter: func() *MockEntrySubmitter {
				m := &MockEntrySubmitter{}
				m.On("Submit", mock.Anything, mock.MatchedBy(func(req *ledger.EntryRequest) bool {
					return req.TenantID == tenantID &&
						req.Source == shared.SourceCSVImport &&
						req.Actor == "importer" &&
						req.CorrelationID != "" &&
						len(req.Lines) == 2
				})).Return(nil, nil).Once()
				return m
			},
			wantStatus: http.StatusAccepted,
		},
		{
			name: "broker failure",
			submitter: func() *MockEntrySubmitter {
				m := &MockEntrySubmitter{}
				m.On("Submit", mock.Anything, mock.Anything).Return(nil, errors.New("kafka unavailable")).Once()
				return m
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name: "draft holds the reference",
			submitter: func() *MockEntrySubmitter {
				m := &MockEntrySubmitter{}
				m.On("Submit", mock.Anything, mock.Anything).
					Return(nil, ledger.ErrDuplicateReference{TenantID: tenantID, Reference: "INV-9"}).Once()
				return m
			},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "invalid body",
			submitter:  func() *MockEntrySubmitter { return &MockEntrySubmitter{} },
			body:       []byte(`{"reference":`),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:      "reference wider than the column",
			submitter: func() *MockEntrySubmitter { return &MockEntrySubmitter{} },
			body: func() []byte {
				var req EntryRequest
				if err := json.Unmarshal(submitBody(t), &req); err != nil {
					t.Fatal(err)
				}
				req.Reference = strings.Repeat("X", 51)
				raw, _ := json.Marshal(req)
				return raw
			}(),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "not configured",
			wantStatus: http.StatusNotImplemented,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h *EntryHandler
			var submitter *MockEntrySubmitter
			if tt.submitter != nil {
				submitter = tt.submitter()
				h = NewEntryHandler(logger, nil, submitter)
			} else {
				h = NewEntryHandler(logger, nil, nil)
			}

			router := gin.New()
			router.Use(middleware.CorrelationID(), middleware.Actor())
			router.POST("/tenants/:tenant_id/entries/submissions", h.Submit)

			body := tt.body
			if body == nil {
				body = submitBody(t)
			}
			req := httptest.NewRequest(http.MethodPost, "/tenants/"+tenantID.String()+"/entries/submissions", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set(middleware.ActorHeader, "importer")
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			if submitter != nil {
				submitter.AssertExpectations(t)
			}
		})
	}
}
