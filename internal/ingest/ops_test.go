package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docket/internal/relation"
	"docket/internal/workqueue"
	dErrors "docket/pkg/domain-errors"
)

func newOps(t *testing.T) (*Ops, *workqueue.InMemoryStore, *relation.InMemoryStore) {
	t.Helper()
	items := workqueue.NewInMemoryStore()
	edges := relation.NewInMemoryStore(items)
	items.SetRelationGuard(edges)
	return NewOps(items, edges, nil), items, edges
}

func createItem(t *testing.T, items *workqueue.InMemoryStore, scope workqueue.Scope) *workqueue.WorkItem {
	t.Helper()
	item := &workqueue.WorkItem{TenantID: "t1", Scope: scope}
	require.NoError(t, items.Create(context.Background(), item))
	return item
}

func TestRetryItem(t *testing.T) {
	ops, items, _ := newOps(t)
	ctx := context.Background()

	item := createItem(t, items, workqueue.ScopeOrderCreate)
	require.NoError(t, items.SetStatus(ctx, item.ID, workqueue.StatusError, "erp rejected"))

	require.NoError(t, ops.RetryItem(ctx, item.ID))

	fetched, err := items.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, workqueue.StatusPending, fetched.Status)

	// Already Pending now: retry conflicts instead of forcing.
	err = ops.RetryItem(ctx, item.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	err = ops.RetryItem(ctx, 404)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestRetryLineage(t *testing.T) {
	ops, items, edges := newOps(t)
	ctx := context.Background()

	order := createItem(t, items, workqueue.ScopeOrderCreate)
	invoice := createItem(t, items, workqueue.ScopeInvoice)
	issue := createItem(t, items, workqueue.ScopeWarehouseIssue)
	_, err := edges.Create(ctx, order.ID, invoice.ID)
	require.NoError(t, err)
	_, err = edges.Create(ctx, order.ID, issue.ID)
	require.NoError(t, err)

	now := time.Now()
	items.SetClock(func() time.Time { return now.Add(-2 * time.Hour) })
	require.NoError(t, items.SetStatus(ctx, invoice.ID, workqueue.StatusError, ""))
	items.SetClock(func() time.Time { return now })
	require.NoError(t, items.SetStatus(ctx, issue.ID, workqueue.StatusError, ""))

	retried, err := ops.RetryLineage(ctx, order.ID, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, retried, "only failures older than the age are swept")

	fetched, err := items.GetByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, workqueue.StatusPending, fetched.Status)

	fetched, err = items.GetByID(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, workqueue.StatusError, fetched.Status)
}

func TestDependentsReady(t *testing.T) {
	ops, items, edges := newOps(t)
	ctx := context.Background()

	order := createItem(t, items, workqueue.ScopeOrderCreate)
	invoice := createItem(t, items, workqueue.ScopeInvoice)
	_, err := edges.Create(ctx, order.ID, invoice.ID)
	require.NoError(t, err)

	ready, err := ops.DependentsReady(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, ready)

	require.NoError(t, items.SetStatus(ctx, invoice.ID, workqueue.StatusCompleted, ""))
	ready, err = ops.DependentsReady(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, ready)
}

func TestPurgeItemRemovesEdgesThenItem(t *testing.T) {
	ops, items, edges := newOps(t)
	ctx := context.Background()

	order := createItem(t, items, workqueue.ScopeOrderCreate)
	invoice := createItem(t, items, workqueue.ScopeInvoice)
	_, err := edges.Create(ctx, order.ID, invoice.ID)
	require.NoError(t, err)

	require.NoError(t, ops.PurgeItem(ctx, order.ID))

	_, err = items.GetByID(ctx, order.ID)
	assert.Error(t, err)
	n, err := edges.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	err = ops.PurgeItem(ctx, order.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestRetentionSweepViaOps(t *testing.T) {
	ops, items, _ := newOps(t)
	ctx := context.Background()

	now := time.Now()
	items.SetClock(func() time.Time { return now.Add(-30 * 24 * time.Hour) })
	old := createItem(t, items, workqueue.ScopeOrderCreate)
	require.NoError(t, items.SetStatus(ctx, old.ID, workqueue.StatusCompleted, ""))
	items.SetClock(func() time.Time { return now })

	removed, err := ops.RetentionSweep(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}
