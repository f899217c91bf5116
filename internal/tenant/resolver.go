package tenant

import (
	"context"

	dErrors "docket/pkg/domain-errors"
	"docket/pkg/secrets"
)

// Resolver authenticates a shared-secret header against the tenant roster.
// It backs the boundary filter that short-circuits unauthenticated calls
// before the ingestion core runs.
type Resolver struct {
	store *InMemoryStore
}

func NewResolver(store *InMemoryStore) *Resolver {
	return &Resolver{store: store}
}

// ResolveBySecret returns the tenant whose shared secret matches. The roster
// is small (tens of tenants) so a scan with bcrypt verification per candidate
// is acceptable; misses cost the most, which is the right way around.
func (r *Resolver) ResolveBySecret(ctx context.Context, secret string) (*Tenant, error) {
	if secret == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing shared secret")
	}
	tenants, err := r.store.All(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not load tenants")
	}
	for _, t := range tenants {
		if secrets.Verify(secret, t.SecretHash) == nil {
			return t, nil
		}
	}
	return nil, dErrors.New(dErrors.CodeUnauthorized, "unknown shared secret")
}
