package strategy

import (
	"context"
	"encoding/json"

	"docket/internal/classify"
	"docket/internal/workqueue"
	dErrors "docket/pkg/domain-errors"
)

// ProductStrategy handles product documents: one work item in the product
// scope, routed to the default tenant.
type ProductStrategy struct{}

func NewProductStrategy() *ProductStrategy { return &ProductStrategy{} }

func (s *ProductStrategy) Name() string { return "product" }

func (s *ProductStrategy) CanHandle(doc *classify.Document) bool {
	return doc != nil && doc.Kind == classify.KindProduct
}

func (s *ProductStrategy) Process(_ context.Context, in *Input) ([]*workqueue.WorkItem, error) {
	request, err := json.Marshal(in.Document.Product)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not serialize product request")
	}
	return []*workqueue.WorkItem{{
		TenantID: in.DefaultTenantID,
		Scope:    workqueue.ScopeProductUpdate,
		Request:  string(request),
		RawBody:  in.RawBody,
	}}, nil
}
