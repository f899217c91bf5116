package ingest

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks AuditPublisher

import (
	"context"

	"docket/internal/audit"
)

// AuditPublisher records audit events emitted by the ingestion pipeline.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
