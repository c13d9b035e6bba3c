package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dinero-ledger/internal/domain/shared"
)

const (
	// ActorHeader names the user on whose behalf the request mutates the ledger.
	ActorHeader = "X-Actor"
	ActorKey    = "actor"
)

// Actor captures who is calling. It must run after CorrelationID. A missing
// header leaves the actor id empty and the engine rejects the mutation.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ActorKey, shared.Actor{
			ID:            strings.TrimSpace(c.GetHeader(ActorHeader)),
			IPAddress:     c.ClientIP(),
			UserAgent:     c.Request.UserAgent(),
			CorrelationID: GetCorrelationID(c),
		})
		c.Next()
	}
}

// GetActor returns the request's actor. Without the middleware it still
// carries the client address and correlation id.
func GetActor(c *gin.Context) shared.Actor {
	if v, ok := c.Get(ActorKey); ok {
		if actor, ok := v.(shared.Actor); ok {
			return actor
		}
	}
	return shared.Actor{
		IPAddress:     c.ClientIP(),
		CorrelationID: GetCorrelationID(c),
	}
}
