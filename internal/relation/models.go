package relation

import "time"

// WorkRelation is a directed edge between two work items recording workflow
// lineage: the target follows from, or depends on, the source. Edges are
// created once and never mutated; at most one edge exists per ordered pair.
type WorkRelation struct {
	ID        int64
	SourceID  int64
	TargetID  int64
	CreatedAt time.Time
}
