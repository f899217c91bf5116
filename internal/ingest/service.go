// Package ingest wires the pipeline: open the envelope, classify the
// document, dispatch a strategy, persist the resulting work items and lineage
// edges. One ingestion call either lands everything it produced or nothing.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"docket/internal/audit"
	"docket/internal/classify"
	"docket/internal/envelope"
	ingestmetrics "docket/internal/ingest/metrics"
	"docket/internal/relation"
	"docket/internal/sentinel"
	"docket/internal/strategy"
	"docket/internal/workqueue"
	dErrors "docket/pkg/domain-errors"
)

const (
	storeAttempts    = 3
	storeBackoffBase = 100 * time.Millisecond
	storeBackoffCap  = time.Second
)

// Envelope is the transient form of one inbound notification, alive only for
// the duration of a single Ingest call.
type Envelope struct {
	CorrelationID string
	TypeHint      string

	// Payload is the base64 ciphertext as received.
	Payload string

	// Agent is the notifier's user agent as captured at the boundary.
	Agent string
}

// TenantPair is what the boundary filter resolves per call: a default tenant
// and an optional secondary tenant for marker-routed orders.
type TenantPair struct {
	DefaultID   string
	SecondaryID string
}

// Service is the orchestrator invoked by the boundary layer.
type Service struct {
	key        []byte
	dispatcher *strategy.Dispatcher
	items      workqueue.Store
	edges      relation.Store

	auditPublisher AuditPublisher
	logger         *slog.Logger
	metrics        *ingestmetrics.Metrics
	tracer         trace.Tracer
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = p }
}

func WithMetrics(m *ingestmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

func New(key []byte, dispatcher *strategy.Dispatcher, items workqueue.Store, edges relation.Store, opts ...Option) *Service {
	s := &Service{
		key:        key,
		dispatcher: dispatcher,
		items:      items,
		edges:      edges,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("docket/ingest")
	}
	return s
}

// Ingest runs the full pipeline for one notification and returns the created
// work items. Decryption and classification failures are fatal to this single
// ingestion; the caller surfaces them so the sender can retry the whole
// notification.
func (s *Service) Ingest(ctx context.Context, env Envelope, tenants TenantPair) ([]*workqueue.WorkItem, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "ingest",
		trace.WithAttributes(attribute.String("correlation_id", env.CorrelationID)))
	defer span.End()

	items, err := s.ingest(ctx, env, tenants)
	if err != nil {
		span.RecordError(err)
		s.observe(start, "error")
		return nil, err
	}
	s.observe(start, "ok")
	return items, nil
}

func (s *Service) ingest(ctx context.Context, env Envelope, tenants TenantPair) ([]*workqueue.WorkItem, error) {
	plaintext, err := s.open(ctx, env)
	if err != nil {
		return nil, err
	}

	doc, err := s.classify(ctx, env, plaintext)
	if err != nil {
		return nil, err
	}

	in := &strategy.Input{
		CorrelationID:     env.CorrelationID,
		Document:          doc,
		RawBody:           plaintext,
		DefaultTenantID:   tenants.DefaultID,
		SecondaryTenantID: tenants.SecondaryID,
	}

	_, dispatchSpan := s.tracer.Start(ctx, "dispatch")
	built, strategyName, err := s.dispatcher.Dispatch(ctx, in)
	dispatchSpan.End()
	if err != nil {
		// Strategy failures propagate untouched; nothing was persisted yet.
		return nil, err
	}

	if err := s.persist(ctx, built); err != nil {
		return nil, err
	}

	s.auditCreated(ctx, env, doc, built, strategyName)
	return built, nil
}

func (s *Service) open(ctx context.Context, env Envelope) (string, error) {
	_, span := s.tracer.Start(ctx, "open_envelope")
	defer span.End()

	plaintext, err := envelope.Decrypt(env.Payload, s.key)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrementDecryptFailure()
		}
		s.emitAudit(ctx, audit.Event{
			CorrelationID: env.CorrelationID,
			Action:        audit.ActionDecryptFailed,
			Detail:        err.Error(),
			Agent:         env.Agent,
		})
		return "", err
	}
	return plaintext, nil
}

func (s *Service) classify(ctx context.Context, env Envelope, plaintext string) (*classify.Document, error) {
	_, span := s.tracer.Start(ctx, "classify")
	defer span.End()

	doc, err := classify.Classify(plaintext, env.TypeHint)
	if err != nil {
		s.emitAudit(ctx, audit.Event{
			CorrelationID: env.CorrelationID,
			Action:        audit.ActionClassifyFailed,
			Detail:        err.Error(),
			Agent:         env.Agent,
		})
		return nil, err
	}
	return doc, nil
}

// persist creates every built item, then the lineage edges chaining later
// items to the first. Any failure rolls back what this call created so the
// unit lands all-or-nothing, including on cancellation mid-way.
func (s *Service) persist(ctx context.Context, built []*workqueue.WorkItem) error {
	ctx, span := s.tracer.Start(ctx, "persist")
	defer span.End()

	var created []*workqueue.WorkItem
	rollback := func() {
		// Edges first: items cannot be deleted while edges reference them.
		for _, item := range created {
			_, _ = s.edges.DeleteTouching(context.WithoutCancel(ctx), item.ID)
		}
		for _, item := range created {
			if err := s.items.Delete(context.WithoutCancel(ctx), item.ID); err != nil {
				s.logger.Error("rollback failed to delete work item",
					"item_id", item.ID, "error", err)
			}
		}
	}

	for _, item := range built {
		if err := ctx.Err(); err != nil {
			rollback()
			return dErrors.Wrap(err, dErrors.CodeTimeout, "ingestion cancelled")
		}
		if err := s.withStoreRetry(ctx, func(ctx context.Context) error {
			return s.items.Create(ctx, item)
		}); err != nil {
			rollback()
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create work item")
		}
		created = append(created, item)
	}

	for _, item := range created[1:] {
		if err := s.withStoreRetry(ctx, func(ctx context.Context) error {
			_, err := s.edges.CreateOrGet(ctx, created[0].ID, item.ID)
			return err
		}); err != nil {
			rollback()
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record work relation")
		}
	}
	return nil
}

func (s *Service) auditCreated(ctx context.Context, env Envelope, doc *classify.Document, items []*workqueue.WorkItem, strategyName string) {
	lineItems := 0
	if doc.Order != nil {
		lineItems = len(doc.Order.Items)
	}
	for _, item := range items {
		if s.metrics != nil {
			s.metrics.IncrementItemCreated(item.Scope.String())
		}
		s.emitAudit(ctx, audit.Event{
			CorrelationID: env.CorrelationID,
			TenantID:      item.TenantID,
			ItemID:        item.ID,
			ExternalID:    item.ExternalID.String(),
			Scope:         item.Scope.String(),
			Action:        audit.ActionItemCreated,
			Detail:        strategyName,
			LineItems:     lineItems,
			Agent:         env.Agent,
		})
		s.logger.InfoContext(ctx, "work item created",
			"correlation_id", env.CorrelationID,
			"item_id", item.ID,
			"tenant_id", item.TenantID,
			"scope", item.Scope.String(),
			"strategy", strategyName,
			"line_items", lineItems,
		)
	}
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.Error("failed to emit audit event", "action", event.Action, "error", err)
	}
}

func (s *Service) observe(start time.Time, result string) {
	if s.metrics != nil {
		s.metrics.ObserveIngest(start, result)
	}
}

// withStoreRetry retries transient store failures a bounded number of times
// with growing backoff. Non-transient errors return immediately.
func (s *Service) withStoreRetry(ctx context.Context, fn func(context.Context) error) error {
	backoff := storeBackoffBase
	var err error
	for attempt := 0; attempt < storeAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > storeBackoffCap {
				backoff = storeBackoffCap
			}
		}
		err = fn(ctx)
		if !errors.Is(err, sentinel.ErrUnavailable) {
			return err
		}
		s.logger.Warn("store unavailable, retrying", "attempt", attempt+1)
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "store unavailable after retries")
}
