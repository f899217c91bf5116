// Package httptransport is the thin HTTP layer. It delegates to domain
// services without embedding business logic so transport concerns remain
// isolated.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docket/internal/ingest"
	"docket/internal/platform/health"
	"docket/internal/platform/middleware"
	"docket/internal/ratelimit"
	"docket/internal/transport/httputil"
	"docket/internal/workqueue"
)

// IngestService runs the ingestion pipeline for one notification.
type IngestService interface {
	Ingest(ctx context.Context, env ingest.Envelope, tenants ingest.TenantPair) ([]*workqueue.WorkItem, error)
}

// OpsService exposes the operator maintenance surface.
type OpsService interface {
	ListItems(ctx context.Context, f workqueue.Filter) ([]*workqueue.WorkItem, error)
	RetryItem(ctx context.Context, id int64) error
	RetryLineage(ctx context.Context, rootID int64, olderThan time.Duration) (int, error)
	DependentsReady(ctx context.Context, id int64) (bool, error)
	RetentionSweep(ctx context.Context, age time.Duration) (int, error)
	PurgeItem(ctx context.Context, id int64) error
}

type Handler struct {
	ingest IngestService
	ops    OpsService

	// secondaryTenantID receives marker-routed orders; the authenticated
	// webhook tenant is the default for each call.
	secondaryTenantID string
	retentionAge      time.Duration

	logger *slog.Logger
}

func NewHandler(ingestSvc IngestService, ops OpsService, secondaryTenantID string, retentionAge time.Duration, logger *slog.Logger) *Handler {
	return &Handler{
		ingest:            ingestSvc,
		ops:               ops,
		secondaryTenantID: secondaryTenantID,
		retentionAge:      retentionAge,
		logger:            logger,
	}
}

// RouterOptions carries the optional boundary components.
type RouterOptions struct {
	Health  *health.Handler
	Limiter *ratelimit.Checker
}

// NewRouter wires all public endpoints with middleware.
func NewRouter(h *Handler, resolver middleware.TenantResolver, admin middleware.AdminValidator, opts RouterOptions, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)

	r.Get("/healthz", handleHealth)
	if opts.Health != nil {
		opts.Health.Register(r)
	}
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if opts.Limiter != nil {
			r.Use(ratelimit.Middleware(opts.Limiter, logger))
		}
		r.Use(middleware.WebhookAuth(resolver, logger))
		r.Post("/webhook", h.handleWebhook)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdmin(admin, logger))
		r.Get("/queue", h.handleListQueue)
		r.Post("/items/{id}/retry", h.handleRetryItem)
		r.Post("/items/{id}/lineage/retry", h.handleRetryLineage)
		r.Get("/items/{id}/ready", h.handleDependentsReady)
		r.Delete("/items/{id}", h.handlePurgeItem)
		r.Post("/sweep", h.handleSweep)
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
