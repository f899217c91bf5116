// Package consumer drains the work queue the way a conforming downstream
// processor must: claim a Pending item through the conditional Processing
// transition, perform the side effect, then report Completed with the
// assigned target id or Error with a description. Skipping the Processing
// step is a lifecycle violation the store will not catch.
package consumer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	consumermetrics "docket/internal/consumer/metrics"
	"docket/internal/sentinel"
	"docket/internal/workqueue"
)

// Result reports the outcome of one downstream side effect.
type Result struct {
	// TargetID is the identifier the downstream system assigned.
	TargetID int64

	Description string
}

// Processor performs the real-world side effect for one claimed item, such
// as calling the tenant's ERP.
type Processor interface {
	Process(ctx context.Context, item *workqueue.WorkItem) (Result, error)
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, item *workqueue.WorkItem) (Result, error)

func (f ProcessorFunc) Process(ctx context.Context, item *workqueue.WorkItem) (Result, error) {
	return f(ctx, item)
}

// Pool polls for Pending items and processes them with a bounded set of
// workers. Items are drained on demand; there are no time-based triggers
// beyond the poll interval.
type Pool struct {
	store     workqueue.Store
	processor Processor

	workers      int
	pollInterval time.Duration
	filter       workqueue.Filter

	logger  *slog.Logger
	metrics *consumermetrics.Metrics
}

type Option func(*Pool)

func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.pollInterval = d
		}
	}
}

// WithFilter narrows the pool to one tenant and/or scope.
func WithFilter(f workqueue.Filter) Option {
	return func(p *Pool) { p.filter = f }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) { p.logger = logger }
}

func WithMetrics(m *consumermetrics.Metrics) Option {
	return func(p *Pool) { p.metrics = m }
}

func NewPool(store workqueue.Store, processor Processor, opts ...Option) *Pool {
	p := &Pool{
		store:        store,
		processor:    processor,
		workers:      4,
		pollInterval: time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Run polls until the context is cancelled. Each worker claims and processes
// one item at a time; cancellation is the only way out.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			ticker := time.NewTicker(p.pollInterval)
			defer ticker.Stop()
			for {
				if _, err := p.DrainOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
					p.logger.Error("drain pass failed", "error", err)
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
				}
			}
		})
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// DrainOnce processes every item that is Pending at the start of the pass and
// returns the number this caller actually processed. Items claimed by a
// concurrent consumer in the meantime are counted as conflicts and skipped.
func (p *Pool) DrainOnce(ctx context.Context) (int, error) {
	pending := workqueue.StatusPending
	f := p.filter
	f.Status = &pending

	backlog, err := p.store.List(ctx, f)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, item := range backlog {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		claimed, err := p.claimAndProcess(ctx, item)
		if err != nil {
			return processed, err
		}
		if claimed {
			processed++
		}
	}
	return processed, nil
}

func (p *Pool) claimAndProcess(ctx context.Context, item *workqueue.WorkItem) (bool, error) {
	err := p.store.UpdateStatusIf(ctx, item.ID, workqueue.StatusPending, workqueue.StatusProcessing, "")
	if errors.Is(err, sentinel.ErrStatusMismatch) || errors.Is(err, sentinel.ErrNotFound) {
		if p.metrics != nil {
			p.metrics.IncrementClaimConflict()
		}
		return false, nil
	}
	if err != nil {
		return false, err
	}

	result, procErr := p.processor.Process(ctx, item)
	if procErr != nil {
		if err := p.store.UpdateStatusIf(ctx, item.ID, workqueue.StatusProcessing, workqueue.StatusError, procErr.Error()); err != nil {
			return true, err
		}
		if p.metrics != nil {
			p.metrics.IncrementProcessed("error")
		}
		p.logger.WarnContext(ctx, "work item failed downstream",
			"item_id", item.ID, "scope", item.Scope.String(), "error", procErr)
		return true, nil
	}

	if result.TargetID != 0 {
		if err := p.store.SetTarget(ctx, item.ID, result.TargetID); err != nil {
			return true, err
		}
	}
	if err := p.store.UpdateStatusIf(ctx, item.ID, workqueue.StatusProcessing, workqueue.StatusCompleted, result.Description); err != nil {
		return true, err
	}
	if p.metrics != nil {
		p.metrics.IncrementProcessed("completed")
	}
	p.logger.InfoContext(ctx, "work item completed",
		"item_id", item.ID, "scope", item.Scope.String(), "target_id", result.TargetID)
	return true, nil
}
