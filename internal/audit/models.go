package audit

import "time"

// Event is emitted from ingestion and queue logic to capture key actions.
// Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp     time.Time
	CorrelationID string
	TenantID      string
	ItemID        int64
	ExternalID    string
	Scope         string
	Action        string
	Detail        string

	// LineItems counts order positions where the document carried any.
	LineItems int

	// Agent records the notifier's user agent as seen at the boundary.
	Agent string
}

type Action = string

const (
	ActionItemCreated     Action = "work_item_created"
	ActionItemRetried     Action = "work_item_retried"
	ActionDecryptFailed   Action = "decrypt_failed"
	ActionClassifyFailed  Action = "classify_failed"
	ActionIngestFailed    Action = "ingest_failed"
	ActionRetentionSweep  Action = "retention_sweep"
	ActionRelationCreated Action = "relation_created"
)
