package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dinero-ledger/internal/domain/ledger"
)

// uuidParam parses a path parameter and answers 400 when it is malformed.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondBadRequest(c, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// asOfQuery reads ?as_of=, defaulting to today.
func asOfQuery(c *gin.Context) (time.Time, bool) {
	asOf, err := parseOptionalDate("as_of", c.Query("as_of"), time.Now().UTC())
	if err != nil {
		RespondBadRequest(c, err.Error())
		return time.Time{}, false
	}
	return asOf, true
}

// rangeQuery reads ?from=&to=. Either bound may be omitted.
func rangeQuery(c *gin.Context) (ledger.DateRange, bool) {
	from, err := parseOptionalDate("from", c.Query("from"), time.Time{})
	if err != nil {
		RespondBadRequest(c, err.Error())
		return ledger.DateRange{}, false
	}
	to, err := parseOptionalDate("to", c.Query("to"), time.Time{})
	if err != nil {
		RespondBadRequest(c, err.Error())
		return ledger.DateRange{}, false
	}
	return ledger.DateRange{From: from, To: to}, true
}

func limitQuery(c *gin.Context, fallback, max int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > max {
		RespondBadRequest(c, "limit must be between 1 and "+strconv.Itoa(max))
		return 0, false
	}
	return n, true
}
