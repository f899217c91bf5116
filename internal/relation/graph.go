package relation

import (
	"context"
	"errors"
	"time"

	"docket/internal/sentinel"
	"docket/internal/workqueue"
)

// Graph layers derived lineage queries over an edge store and the work queue.
// It is backend-agnostic: both stores may be in-memory or Postgres.
type Graph struct {
	edges Store
	items ItemStore
}

func NewGraph(edges Store, items ItemStore) *Graph {
	return &Graph{edges: edges, items: items}
}

// ResolveTargets returns the work items on the target end of the given edges.
func (g *Graph) ResolveTargets(ctx context.Context, edges []*WorkRelation) ([]*workqueue.WorkItem, error) {
	return g.resolve(ctx, edges, func(e *WorkRelation) int64 { return e.TargetID })
}

// ResolveSources returns the work items on the source end of the given edges.
func (g *Graph) ResolveSources(ctx context.Context, edges []*WorkRelation) ([]*workqueue.WorkItem, error) {
	return g.resolve(ctx, edges, func(e *WorkRelation) int64 { return e.SourceID })
}

// DescendantsCompleted reports whether every transitive descendant of itemID
// is Completed. An item with no outgoing edges is vacuously complete; the
// query gates dependent processing and an absent dependency must not block.
func (g *Graph) DescendantsCompleted(ctx context.Context, itemID int64) (bool, error) {
	all := true
	err := g.walkDescendants(ctx, itemID, func(item *workqueue.WorkItem) bool {
		if item.Status != workqueue.StatusCompleted {
			all = false
			return false
		}
		return true
	})
	return all, err
}

// ErrorDescendantsOlderThan returns every transitive descendant of itemID in
// Error status whose last update is older than the cutoff. Retry sweeps use
// it to find stuck branches of a workflow.
func (g *Graph) ErrorDescendantsOlderThan(ctx context.Context, itemID int64, cutoff time.Time) ([]*workqueue.WorkItem, error) {
	var out []*workqueue.WorkItem
	err := g.walkDescendants(ctx, itemID, func(item *workqueue.WorkItem) bool {
		if item.Status == workqueue.StatusError && item.UpdatedAt.Before(cutoff) {
			out = append(out, item)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// walkDescendants visits every transitive descendant once, breadth first.
// Visited tracking keeps a cycle from looping the walk. visit returning false
// stops the walk early.
func (g *Graph) walkDescendants(ctx context.Context, itemID int64, visit func(*workqueue.WorkItem) bool) error {
	visited := map[int64]bool{itemID: true}
	frontier := []int64{itemID}

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		current := frontier[0]
		frontier = frontier[1:]

		edges, err := g.edges.ListFrom(ctx, current)
		if err != nil {
			return err
		}
		for _, edge := range edges {
			if visited[edge.TargetID] {
				continue
			}
			visited[edge.TargetID] = true

			item, err := g.items.GetByID(ctx, edge.TargetID)
			if errors.Is(err, sentinel.ErrNotFound) {
				// Endpoint purged out from under the edge; skip rather than
				// fail the whole walk.
				continue
			}
			if err != nil {
				return err
			}
			if !visit(item) {
				return nil
			}
			frontier = append(frontier, edge.TargetID)
		}
	}
	return nil
}

func (g *Graph) resolve(ctx context.Context, edges []*WorkRelation, end func(*WorkRelation) int64) ([]*workqueue.WorkItem, error) {
	seen := make(map[int64]bool, len(edges))
	var out []*workqueue.WorkItem
	for _, edge := range edges {
		id := end(edge)
		if seen[id] {
			continue
		}
		seen[id] = true
		item, err := g.items.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}
