package relation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docket/internal/sentinel"
	"docket/internal/workqueue"
)

func newStores(t *testing.T) (*workqueue.InMemoryStore, *InMemoryStore) {
	t.Helper()
	items := workqueue.NewInMemoryStore()
	edges := NewInMemoryStore(items)
	items.SetRelationGuard(edges)
	return items, edges
}

func mustCreateItem(t *testing.T, items *workqueue.InMemoryStore) *workqueue.WorkItem {
	t.Helper()
	item := &workqueue.WorkItem{TenantID: "t1", Scope: workqueue.ScopeOrderCreate}
	require.NoError(t, items.Create(context.Background(), item))
	return item
}

func TestCreateStrictRejectsDuplicatePair(t *testing.T) {
	items, edges := newStores(t)
	ctx := context.Background()

	a := mustCreateItem(t, items)
	b := mustCreateItem(t, items)

	first, err := edges.Create(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.NotZero(t, first.ID)

	_, err = edges.Create(ctx, a.ID, b.ID)
	assert.ErrorIs(t, err, sentinel.ErrAlreadyExists)

	// The reverse direction is a different ordered pair.
	_, err = edges.Create(ctx, b.ID, a.ID)
	assert.NoError(t, err)
}

func TestCreateOrGetIsIdempotent(t *testing.T) {
	items, edges := newStores(t)
	ctx := context.Background()

	a := mustCreateItem(t, items)
	b := mustCreateItem(t, items)

	first, err := edges.CreateOrGet(ctx, a.ID, b.ID)
	require.NoError(t, err)
	second, err := edges.CreateOrGet(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	n, err := edges.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCreateRequiresExistingEndpoints(t *testing.T) {
	items, edges := newStores(t)
	ctx := context.Background()

	a := mustCreateItem(t, items)

	_, err := edges.Create(ctx, a.ID, 9999)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	_, err = edges.Create(ctx, 9999, a.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestItemDeletionRestrictedUntilEdgesRemoved(t *testing.T) {
	items, edges := newStores(t)
	ctx := context.Background()

	a := mustCreateItem(t, items)
	b := mustCreateItem(t, items)
	_, err := edges.Create(ctx, a.ID, b.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, items.Delete(ctx, a.ID), sentinel.ErrRestricted)
	assert.ErrorIs(t, items.Delete(ctx, b.ID), sentinel.ErrRestricted)

	removed, err := edges.DeleteTouching(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	require.NoError(t, items.Delete(ctx, a.ID))
	require.NoError(t, items.Delete(ctx, b.ID))
}

func TestEdgeDeletionNeverDeletesItems(t *testing.T) {
	items, edges := newStores(t)
	ctx := context.Background()

	a := mustCreateItem(t, items)
	b := mustCreateItem(t, items)
	edge, err := edges.Create(ctx, a.ID, b.ID)
	require.NoError(t, err)

	require.NoError(t, edges.Delete(ctx, edge.ID))

	_, err = items.GetByID(ctx, a.ID)
	assert.NoError(t, err)
	_, err = items.GetByID(ctx, b.ID)
	assert.NoError(t, err)
}

func TestDirectionalQueriesAndDeletes(t *testing.T) {
	items, edges := newStores(t)
	ctx := context.Background()

	order := mustCreateItem(t, items)
	invoice := mustCreateItem(t, items)
	correction := mustCreateItem(t, items)

	_, err := edges.Create(ctx, order.ID, invoice.ID)
	require.NoError(t, err)
	_, err = edges.Create(ctx, invoice.ID, correction.ID)
	require.NoError(t, err)

	out, err := edges.ListFrom(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, invoice.ID, out[0].TargetID)

	in, err := edges.ListTo(ctx, correction.ID)
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, invoice.ID, in[0].SourceID)

	touching, err := edges.ListTouching(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Len(t, touching, 2)

	exists, err := edges.Exists(ctx, order.ID, invoice.ID)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = edges.Exists(ctx, order.ID, correction.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	removed, err := edges.DeleteFrom(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	removed, err = edges.DeleteTo(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	n, err := edges.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGetByPairAndByID(t *testing.T) {
	items, edges := newStores(t)
	ctx := context.Background()

	a := mustCreateItem(t, items)
	b := mustCreateItem(t, items)
	created, err := edges.Create(ctx, a.ID, b.ID)
	require.NoError(t, err)

	byID, err := edges.GetByID(ctx, created.ID)
	require.NoError(t, err)
	byPair, err := edges.GetByPair(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, byID.ID, byPair.ID)

	_, err = edges.GetByPair(ctx, b.ID, a.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
