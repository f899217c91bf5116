package tenant

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is an onboarded business unit. Provisioning happens administratively
// outside this service; the ingestion core references tenants and never
// mutates them.
type Tenant struct {
	ID   uuid.UUID
	Name string

	// SecretHash is the bcrypt hash of the shared secret the marketplace
	// presents on every webhook call.
	SecretHash string

	// Endpoint is the routing address of the tenant's ERP instance.
	Endpoint string

	CreatedAt time.Time
}
