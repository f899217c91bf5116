package audit

import "context"

type Store interface {
	Append(ctx context.Context, event Event) error
	ListByCorrelation(ctx context.Context, correlationID string) ([]Event, error)
	ListByTenant(ctx context.Context, tenantID string) ([]Event, error)
}
