package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/dinero-ledger/internal/domain/shared"
)

// Recovery aborts a panicking request with a 500 in the same envelope the
// handlers use.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				recovered(c, logger, r)
			}
		}()
		c.Next()
	}
}

func recovered(c *gin.Context, logger *slog.Logger, r any) {
	corrID := GetCorrelationID(c)
	logger.Error("Handler panicked",
		"panic", r,
		"route", c.FullPath(),
		"method", c.Request.Method,
		"actor", GetActor(c).ID,
		"correlation_id", corrID,
		"stack", string(debug.Stack()),
	)

	body := gin.H{
		"error": gin.H{
			"code":    "INTERNAL_SERVER_ERROR",
			"kind":    string(shared.KindStorage),
			"message": "An internal server error occurred",
		},
	}
	if corrID != "" {
		body["correlation_id"] = corrID
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, body)
}
