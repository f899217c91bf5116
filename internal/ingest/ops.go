package ingest

import (
	"context"
	"errors"
	"strconv"
	"time"

	"docket/internal/audit"
	"docket/internal/relation"
	"docket/internal/sentinel"
	"docket/internal/workqueue"
	dErrors "docket/pkg/domain-errors"
)

// Ops bundles the operator-facing maintenance operations around the queue and
// the relation graph: retries, sweeps and dependency gating.
type Ops struct {
	items workqueue.Store
	edges relation.Store
	graph *relation.Graph

	auditPublisher AuditPublisher
}

func NewOps(items workqueue.Store, edges relation.Store, auditPublisher AuditPublisher) *Ops {
	return &Ops{
		items:          items,
		edges:          edges,
		graph:          relation.NewGraph(edges, items),
		auditPublisher: auditPublisher,
	}
}

// RetryItem resets one Error item back to Pending, the only legal back-edge
// in the lifecycle. A conflicting current status is reported, not forced.
func (o *Ops) RetryItem(ctx context.Context, id int64) error {
	err := o.items.UpdateStatusIf(ctx, id, workqueue.StatusError, workqueue.StatusPending, "retried by operator")
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "work item not found")
	case errors.Is(err, sentinel.ErrStatusMismatch):
		return dErrors.New(dErrors.CodeConflict, "work item is not in error status")
	case err != nil:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to retry work item")
	}

	o.emit(ctx, audit.Event{ItemID: id, Action: audit.ActionItemRetried})
	return nil
}

// RetryLineage resets every Error descendant of root whose failure is older
// than the given age. Items that changed status under the sweep are skipped.
func (o *Ops) RetryLineage(ctx context.Context, rootID int64, olderThan time.Duration) (int, error) {
	stuck, err := o.graph.ErrorDescendantsOlderThan(ctx, rootID, time.Now().Add(-olderThan))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to walk lineage")
	}

	retried := 0
	for _, item := range stuck {
		err := o.items.UpdateStatusIf(ctx, item.ID, workqueue.StatusError, workqueue.StatusPending, "retried by lineage sweep")
		if errors.Is(err, sentinel.ErrStatusMismatch) || errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			return retried, dErrors.Wrap(err, dErrors.CodeInternal, "failed to retry work item")
		}
		o.emit(ctx, audit.Event{ItemID: item.ID, TenantID: item.TenantID, Action: audit.ActionItemRetried, Detail: "lineage sweep"})
		retried++
	}
	return retried, nil
}

// DependentsReady reports whether every descendant of the item is Completed,
// gating dependent processing.
func (o *Ops) DependentsReady(ctx context.Context, id int64) (bool, error) {
	ready, err := o.graph.DescendantsCompleted(ctx, id)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to walk lineage")
	}
	return ready, nil
}

// RetentionSweep removes Completed items older than the given age. Items
// still referenced by relation edges survive; callers purge edges explicitly
// before retiring a whole workflow.
func (o *Ops) RetentionSweep(ctx context.Context, age time.Duration) (int, error) {
	removed, err := o.items.DeleteCompletedOlderThan(ctx, time.Now().Add(-age))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "retention sweep failed")
	}
	if removed > 0 {
		o.emit(ctx, audit.Event{Action: audit.ActionRetentionSweep, Detail: strconv.Itoa(removed) + " items removed"})
	}
	return removed, nil
}

// PurgeItem removes one item together with all edges touching it. This is the
// explicit, lineage-destroying deletion path; plain Delete stays restricted.
func (o *Ops) PurgeItem(ctx context.Context, id int64) error {
	if _, err := o.edges.DeleteTouching(ctx, id); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to purge relations")
	}
	err := o.items.Delete(ctx, id)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "work item not found")
	case err != nil:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete work item")
	}
	return nil
}

// ListItems exposes the queue to the admin surface.
func (o *Ops) ListItems(ctx context.Context, f workqueue.Filter) ([]*workqueue.WorkItem, error) {
	items, err := o.items.List(ctx, f)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list work items")
	}
	return items, nil
}

func (o *Ops) emit(ctx context.Context, event audit.Event) {
	if o.auditPublisher != nil {
		_ = o.auditPublisher.Emit(ctx, event)
	}
}
