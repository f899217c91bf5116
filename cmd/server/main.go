package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"docket/internal/audit"
	"docket/internal/consumer"
	consumermetrics "docket/internal/consumer/metrics"
	"docket/internal/envelope"
	"docket/internal/ingest"
	ingestmetrics "docket/internal/ingest/metrics"
	jwttoken "docket/internal/jwt_token"
	"docket/internal/platform/config"
	"docket/internal/platform/database"
	"docket/internal/platform/health"
	"docket/internal/platform/httpserver"
	"docket/internal/platform/logger"
	"docket/internal/ratelimit"
	"docket/internal/relation"
	"docket/internal/strategy"
	"docket/internal/tenant"
	httptransport "docket/internal/transport/http"
	"docket/internal/workqueue"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	key, err := envelope.KeyFromBase64(cfg.EncryptionKey)
	if err != nil {
		log.Error("invalid encryption key", "error", err)
		os.Exit(1)
	}

	healthHandler := health.New(os.Getenv("DOCKET_ENV"))

	items, edges, cleanup, err := buildStores(cfg, healthHandler)
	if err != nil {
		log.Error("store initialization failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	auditStore := audit.NewInMemoryStore()
	publisher := audit.NewPublisher(auditStore, audit.WithPublisherLogger(log))
	defer publisher.Close()

	tenants := tenant.NewInMemoryStore()
	defaultTenant, err := tenant.Seed(tenants, cfg.DefaultTenant, cfg.WebhookSecret, os.Getenv("DOCKET_DEFAULT_ERP_ENDPOINT"))
	if err != nil {
		log.Error("failed to seed default tenant", "error", err)
		os.Exit(1)
	}
	secondaryID := ""
	if cfg.SecondaryTenant != "" {
		secondary, err := tenant.Seed(tenants, cfg.SecondaryTenant, cfg.SecondaryWebhookSecret, os.Getenv("DOCKET_SECONDARY_ERP_ENDPOINT"))
		if err != nil {
			log.Error("failed to seed secondary tenant", "error", err)
			os.Exit(1)
		}
		secondaryID = secondary.ID.String()
	}

	log.Info("initializing docket",
		"addr", cfg.Addr,
		"default_tenant", defaultTenant.Name,
		"secondary_tenant", cfg.SecondaryTenant,
		"marketplace_marker", cfg.MarketplaceMarker,
		"postgres", cfg.PostgresDSN != "",
		"consumer_workers", cfg.ConsumerWorkers,
	)

	ingestSvc := ingest.New(key, strategy.NewDispatcher(cfg.MarketplaceMarker), items, edges,
		ingest.WithLogger(log),
		ingest.WithAuditPublisher(publisher),
		ingest.WithMetrics(ingestmetrics.New()),
	)
	ops := ingest.NewOps(items, edges, publisher)

	jwtService := jwttoken.NewService(cfg.JWTSigningKey, "docket", 15*time.Minute)
	resolver := tenant.NewResolver(tenants)

	handler := httptransport.NewHandler(ingestSvc, ops, secondaryID, cfg.RetentionAge, log)
	router := httptransport.NewRouter(handler,
		tenantResolverAdapter{resolver: resolver},
		adminValidatorAdapter{svc: jwtService},
		httptransport.RouterOptions{
			Health:  healthHandler,
			Limiter: ratelimit.NewChecker(120, time.Minute),
		},
		log,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if cfg.ConsumerWorkers > 0 {
		pool := consumer.NewPool(items, newERPForwarder(tenants),
			consumer.WithWorkers(cfg.ConsumerWorkers),
			consumer.WithPollInterval(cfg.PollInterval),
			consumer.WithLogger(log),
			consumer.WithMetrics(consumermetrics.New()),
		)
		go func() {
			if err := pool.Run(ctx); err != nil {
				log.Error("consumer pool stopped", "error", err)
			}
		}()
	}

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	log.Info("shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

// buildStores selects Postgres when a DSN is configured and in-memory stores
// otherwise. Both variants enforce the same lifecycle and restrict-on-delete
// semantics.
func buildStores(cfg config.Server, healthHandler *health.Handler) (workqueue.Store, relation.Store, func(), error) {
	if cfg.PostgresDSN == "" {
		wq := workqueue.NewInMemoryStore()
		rel := relation.NewInMemoryStore(wq)
		wq.SetRelationGuard(rel)
		return wq, rel, func() {}, nil
	}

	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.PostgresDSN
	pool, err := database.New(dbCfg)
	if err != nil {
		return nil, nil, nil, err
	}
	healthHandler.RegisterCheck("postgres", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.StoreTimeout)
		defer cancel()
		return pool.Health(ctx)
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.StoreTimeout)
	defer cancel()

	wq := workqueue.NewPostgresStore(pool.DB())
	if err := wq.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	rel := relation.NewPostgresStore(pool.DB())
	if err := rel.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	return wq, rel, func() { pool.Close() }, nil
}
