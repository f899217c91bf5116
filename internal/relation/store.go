package relation

import (
	"context"

	"docket/internal/workqueue"
)

// ItemStore is the slice of the work queue the relation layer needs: endpoint
// existence checks on create and item resolution for edge queries.
type ItemStore interface {
	GetByID(ctx context.Context, id int64) (*workqueue.WorkItem, error)
}

// Store is the durable edge collection. Implementations return sentinel
// errors; deleting an edge never deletes the work items it references.
type Store interface {
	// Create records a new edge. It fails with sentinel.ErrAlreadyExists when
	// the ordered pair already has one and sentinel.ErrNotFound when either
	// endpoint does not exist.
	Create(ctx context.Context, sourceID, targetID int64) (*WorkRelation, error)

	// CreateOrGet is the idempotent variant: a duplicate pair returns the
	// existing edge instead of failing.
	CreateOrGet(ctx context.Context, sourceID, targetID int64) (*WorkRelation, error)

	GetByID(ctx context.Context, id int64) (*WorkRelation, error)
	GetByPair(ctx context.Context, sourceID, targetID int64) (*WorkRelation, error)

	ListFrom(ctx context.Context, sourceID int64) ([]*WorkRelation, error)
	ListTo(ctx context.Context, targetID int64) ([]*WorkRelation, error)
	ListTouching(ctx context.Context, itemID int64) ([]*WorkRelation, error)

	Delete(ctx context.Context, id int64) error
	DeleteFrom(ctx context.Context, sourceID int64) (int, error)
	DeleteTo(ctx context.Context, targetID int64) (int, error)
	DeleteTouching(ctx context.Context, itemID int64) (int, error)

	Exists(ctx context.Context, sourceID, targetID int64) (bool, error)
	Count(ctx context.Context) (int, error)

	// HasAny satisfies workqueue.RelationGuard: true while the item
	// participates in any edge, which restricts its deletion.
	HasAny(ctx context.Context, itemID int64) (bool, error)
}
