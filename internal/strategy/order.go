package strategy

import (
	"context"
	"encoding/json"
	"strings"

	"docket/internal/classify"
	"docket/internal/workqueue"
	dErrors "docket/pkg/domain-errors"
)

// OrderStrategy handles order documents: one work item in the order scope.
// Orders whose marketplace field contains the configured marker substring
// (case-insensitive) route to the secondary tenant; everything else goes to
// the default tenant.
type OrderStrategy struct {
	marker string
}

func NewOrderStrategy(marketplaceMarker string) *OrderStrategy {
	return &OrderStrategy{marker: strings.ToLower(marketplaceMarker)}
}

func (s *OrderStrategy) Name() string { return "order" }

func (s *OrderStrategy) CanHandle(doc *classify.Document) bool {
	return doc != nil && doc.Kind == classify.KindOrder
}

func (s *OrderStrategy) Process(_ context.Context, in *Input) ([]*workqueue.WorkItem, error) {
	request, err := json.Marshal(in.Document.Order)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not serialize order request")
	}
	return []*workqueue.WorkItem{{
		TenantID: s.routeTenant(in),
		Scope:    workqueue.ScopeOrderCreate,
		Request:  string(request),
		RawBody:  in.RawBody,
	}}, nil
}

func (s *OrderStrategy) routeTenant(in *Input) string {
	if s.marker == "" || in.SecondaryTenantID == "" {
		return in.DefaultTenantID
	}
	marketplace := strings.ToLower(in.Document.Order.Marketplace)
	if strings.Contains(marketplace, s.marker) {
		return in.SecondaryTenantID
	}
	return in.DefaultTenantID
}
