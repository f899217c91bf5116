package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process level configuration. Everything the ingestion core
// needs is supplied here by the environment; the core owns none of it.
type Server struct {
	Addr string

	// EncryptionKey is the base64-encoded 256-bit symmetric key used to open
	// notification envelopes.
	EncryptionKey string

	// MarketplaceMarker routes orders whose marketplace field contains this
	// substring (case-insensitive) to the secondary tenant. Empty disables
	// secondary routing.
	MarketplaceMarker string

	// DefaultTenant and SecondaryTenant name the tenant pair seeded at boot.
	// Orders matching the marker land on the secondary tenant.
	DefaultTenant   string
	SecondaryTenant string

	// WebhookSecret and SecondaryWebhookSecret are the shared secrets the
	// seeded tenants present on webhook calls.
	WebhookSecret          string
	SecondaryWebhookSecret string

	// JWTSigningKey protects the admin endpoints (queue inspection, sweeps).
	JWTSigningKey string

	// StoreTimeout bounds every durable store operation.
	StoreTimeout time.Duration

	// RetentionAge is the minimum age of completed work items removed by the
	// retention sweep.
	RetentionAge time.Duration

	// ConsumerWorkers and PollInterval size the queue-draining worker pool.
	// Zero workers disables the built-in consumer.
	ConsumerWorkers int
	PollInterval    time.Duration

	PostgresDSN string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("DOCKET_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	storeTimeout := 5 * time.Second
	if raw := os.Getenv("DOCKET_STORE_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			storeTimeout = d
		}
	}

	retention := 90 * 24 * time.Hour
	if raw := os.Getenv("DOCKET_RETENTION_AGE"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			retention = d
		}
	}

	jwtSigningKey := os.Getenv("DOCKET_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	workers := 4
	if raw := os.Getenv("DOCKET_CONSUMER_WORKERS"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			workers = n
		}
	}

	pollInterval := time.Second
	if raw := os.Getenv("DOCKET_POLL_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			pollInterval = d
		}
	}

	defaultTenant := os.Getenv("DOCKET_DEFAULT_TENANT")
	if defaultTenant == "" {
		defaultTenant = "default"
	}

	return Server{
		Addr:                   addr,
		EncryptionKey:          os.Getenv("DOCKET_ENCRYPTION_KEY"),
		MarketplaceMarker:      os.Getenv("DOCKET_MARKETPLACE_MARKER"),
		DefaultTenant:          defaultTenant,
		SecondaryTenant:        os.Getenv("DOCKET_SECONDARY_TENANT"),
		WebhookSecret:          os.Getenv("DOCKET_WEBHOOK_SECRET"),
		SecondaryWebhookSecret: os.Getenv("DOCKET_SECONDARY_WEBHOOK_SECRET"),
		JWTSigningKey:          jwtSigningKey,
		StoreTimeout:           storeTimeout,
		RetentionAge:           retention,
		ConsumerWorkers:        workers,
		PollInterval:           pollInterval,
		PostgresDSN:            os.Getenv("DOCKET_POSTGRES_DSN"),
	}
}
