package shared

// SourceType tags where a journal entry came from.
type SourceType string

const (
	SourceManual          SourceType = "manual"
	SourceCSVImport       SourceType = "csv_import"
	SourceAISuggested     SourceType = "ai_suggested"
	SourceSystemGenerated SourceType = "system_generated"
)

func (s SourceType) Valid() bool {
	switch s {
	case SourceManual, SourceCSVImport, SourceAISuggested, SourceSystemGenerated:
		return true
	}
	return false
}

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)

// EventType names the ledger events published through the outbox.
type EventType string

const (
	EventEntryPosted   EventType = "entry.posted"
	EventEntryReversed EventType = "entry.reversed"
)
