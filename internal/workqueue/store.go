package workqueue

import (
	"context"
	"time"
)

// Filter narrows List and Count. Nil pointer fields match everything.
type Filter struct {
	TenantID  string
	Scope     *Scope
	Status    *Status
	OlderThan *time.Time
}

// RelationGuard answers whether a work item still participates in any
// relation edge. Deletion is restricted while it does; lineage is never lost
// silently.
type RelationGuard interface {
	HasAny(ctx context.Context, itemID int64) (bool, error)
}

// Store is the durable work queue. Implementations return sentinel errors
// (sentinel.ErrNotFound, sentinel.ErrStatusMismatch, sentinel.ErrRestricted,
// sentinel.ErrUnavailable) which callers translate exactly once.
type Store interface {
	// Create persists a new item, assigning its numeric id, external id and
	// timestamps. Items always start Pending.
	Create(ctx context.Context, item *WorkItem) error

	GetByID(ctx context.Context, id int64) (*WorkItem, error)
	GetByExternalID(ctx context.Context, externalID string) (*WorkItem, error)
	List(ctx context.Context, f Filter) ([]*WorkItem, error)
	Count(ctx context.Context, f Filter) (int, error)

	// UpdateStatusIf atomically moves an item from expected to next. It fails
	// with sentinel.ErrStatusMismatch when the stored status differs, which
	// is what makes a claim race-free for concurrent consumers.
	UpdateStatusIf(ctx context.Context, id int64, expected, next Status, description string) error

	// SetStatus updates status unconditionally. The store permits transitions
	// the lifecycle does not; conformance tests flag consumers that rely on
	// that.
	SetStatus(ctx context.Context, id int64, status Status, description string) error

	// SetTarget records the identifier the downstream system assigned.
	SetTarget(ctx context.Context, id int64, targetID int64) error

	// Delete removes one item. It fails with sentinel.ErrRestricted while the
	// item participates in any relation; callers purge edges first.
	Delete(ctx context.Context, id int64) error

	// DeleteCompletedOlderThan is the retention sweep. Items still guarded by
	// relations are skipped, not failed. Returns the number removed.
	DeleteCompletedOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
