// Package strategy builds work items from classified documents. One strategy
// exists per recognized document kind plus a catch-all; the dispatcher picks
// the first applicable one from an explicit, constant priority sequence.
package strategy

import (
	"context"

	"docket/internal/classify"
	"docket/internal/workqueue"
)

// Input carries everything one strategy invocation may use. It lives for a
// single ingestion call; strategies hold no state that outlives it.
type Input struct {
	// CorrelationID is the opaque identifier the sender attached to the
	// notification, kept for audit.
	CorrelationID string

	Document *classify.Document

	// RawBody is the decrypted notification verbatim; every built item
	// preserves it for forensic inspection.
	RawBody string

	// DefaultTenantID and SecondaryTenantID are resolved by the boundary
	// filter before the core runs.
	DefaultTenantID   string
	SecondaryTenantID string
}

// Strategy turns a classified document into zero or more unpersisted work
// items. Persistence is the orchestrator's job so that one ingestion's items
// are created all-or-nothing.
type Strategy interface {
	Name() string
	CanHandle(doc *classify.Document) bool
	Process(ctx context.Context, in *Input) ([]*workqueue.WorkItem, error)
}
