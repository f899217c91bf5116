package strategy

import (
	"context"

	"docket/internal/classify"
	"docket/internal/workqueue"
)

// CatchAllStrategy accepts whatever the classifier could not type. It files
// one item in the reserved sentinel scope with an empty request payload; the
// raw body is preserved for manual triage. Always register it last.
type CatchAllStrategy struct{}

func NewCatchAllStrategy() *CatchAllStrategy { return &CatchAllStrategy{} }

func (s *CatchAllStrategy) Name() string { return "catch-all" }

func (s *CatchAllStrategy) CanHandle(_ *classify.Document) bool { return true }

func (s *CatchAllStrategy) Process(_ context.Context, in *Input) ([]*workqueue.WorkItem, error) {
	return []*workqueue.WorkItem{{
		TenantID: in.DefaultTenantID,
		Scope:    workqueue.ScopeUnrecognized,
		Request:  "",
		RawBody:  in.RawBody,
	}}, nil
}
