package workqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docket/internal/sentinel"
)

func newItem(tenant string, scope Scope) *WorkItem {
	return &WorkItem{TenantID: tenant, Scope: scope, Request: `{"x":1}`, RawBody: `{"x":1}`}
}

func TestCreateAssignsIdentityAndPending(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	item := newItem("t1", ScopeOrderCreate)
	item.Status = StatusProcessing // ignored: items always start Pending
	require.NoError(t, store.Create(ctx, item))

	assert.NotZero(t, item.ID)
	assert.NotEqual(t, uuid.Nil, item.ExternalID)
	assert.Equal(t, StatusPending, item.Status)
	assert.Zero(t, item.TargetID)
	assert.False(t, item.CreatedAt.IsZero())

	fetched, err := store.GetByExternalID(ctx, item.ExternalID.String())
	require.NoError(t, err)
	assert.Equal(t, item.ID, fetched.ID)
}

func TestCreateDuplicateExternalID(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	ext := uuid.New()
	first := newItem("t1", ScopeProductUpdate)
	first.ExternalID = ext
	require.NoError(t, store.Create(ctx, first))

	second := newItem("t1", ScopeProductUpdate)
	second.ExternalID = ext
	assert.ErrorIs(t, store.Create(ctx, second), sentinel.ErrAlreadyExists)
}

func TestListAndCountFilters(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newItem("t1", ScopeOrderCreate)))
	require.NoError(t, store.Create(ctx, newItem("t1", ScopeProductUpdate)))
	require.NoError(t, store.Create(ctx, newItem("t2", ScopeOrderCreate)))

	orderScope := ScopeOrderCreate
	items, err := store.List(ctx, Filter{TenantID: "t1", Scope: &orderScope})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "t1", items[0].TenantID)

	pending := StatusPending
	n, err := store.Count(ctx, Filter{Status: &pending})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestConditionalUpdateClaimsExactlyOnce(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	item := newItem("t1", ScopeOrderCreate)
	require.NoError(t, store.Create(ctx, item))

	// Two consumers race on the same Pending item; the conditional update
	// lets exactly one through.
	const consumers = 8
	var wg sync.WaitGroup
	wins := make(chan struct{}, consumers)
	for i := 0; i < consumers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.UpdateStatusIf(ctx, item.ID, StatusPending, StatusProcessing, "") == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	claimed := 0
	for range wins {
		claimed++
	}
	assert.Equal(t, 1, claimed)

	fetched, err := store.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, fetched.Status)
}

func TestConditionalUpdateMismatch(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	item := newItem("t1", ScopeInvoice)
	require.NoError(t, store.Create(ctx, item))

	err := store.UpdateStatusIf(ctx, item.ID, StatusProcessing, StatusCompleted, "")
	assert.ErrorIs(t, err, sentinel.ErrStatusMismatch)

	err = store.UpdateStatusIf(ctx, 404, StatusPending, StatusProcessing, "")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestSetStatusPermitsLifecycleViolations(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	item := newItem("t1", ScopeOrderCreate)
	require.NoError(t, store.Create(ctx, item))

	// The store allows Pending -> Completed directly. Consumers must not do
	// this: the lifecycle requires passing through Processing first.
	require.NoError(t, store.SetStatus(ctx, item.ID, StatusCompleted, "done"))

	fetched, err := store.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, fetched.Status)
	assert.False(t, StatusPending.CanTransitionTo(StatusCompleted),
		"conformance: direct Pending->Completed is a consumer misuse even though the store permits it")
}

func TestSetTarget(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	item := newItem("t1", ScopeOrderCreate)
	require.NoError(t, store.Create(ctx, item))
	require.NoError(t, store.SetTarget(ctx, item.ID, 5512))

	fetched, err := store.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 5512, fetched.TargetID)
}

type stubGuard struct{ related map[int64]bool }

func (g stubGuard) HasAny(_ context.Context, itemID int64) (bool, error) {
	return g.related[itemID], nil
}

func TestDeleteRestrictedByRelations(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	item := newItem("t1", ScopeOrderCreate)
	require.NoError(t, store.Create(ctx, item))
	store.SetRelationGuard(stubGuard{related: map[int64]bool{item.ID: true}})

	assert.ErrorIs(t, store.Delete(ctx, item.ID), sentinel.ErrRestricted)

	store.SetRelationGuard(stubGuard{related: map[int64]bool{}})
	require.NoError(t, store.Delete(ctx, item.ID))
	_, err := store.GetByID(ctx, item.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestRetentionSweep(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	now := time.Now()
	store.SetClock(func() time.Time { return now.Add(-48 * time.Hour) })

	old := newItem("t1", ScopeOrderCreate)
	guarded := newItem("t1", ScopeOrderCreate)
	require.NoError(t, store.Create(ctx, old))
	require.NoError(t, store.Create(ctx, guarded))
	require.NoError(t, store.SetStatus(ctx, old.ID, StatusCompleted, ""))
	require.NoError(t, store.SetStatus(ctx, guarded.ID, StatusCompleted, ""))

	store.SetClock(func() time.Time { return now })
	fresh := newItem("t1", ScopeOrderCreate)
	require.NoError(t, store.Create(ctx, fresh))
	require.NoError(t, store.SetStatus(ctx, fresh.ID, StatusCompleted, ""))

	store.SetRelationGuard(stubGuard{related: map[int64]bool{guarded.ID: true}})

	removed, err := store.DeleteCompletedOlderThan(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.GetByID(ctx, old.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	_, err = store.GetByID(ctx, guarded.ID)
	assert.NoError(t, err, "guarded item survives the sweep")
	_, err = store.GetByID(ctx, fresh.ID)
	assert.NoError(t, err, "fresh item survives the sweep")
}
