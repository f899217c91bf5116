package strategy

import (
	"context"

	"docket/internal/workqueue"
	dErrors "docket/pkg/domain-errors"
)

// Dispatcher selects the first applicable strategy in a fixed priority order.
// The sequence is a constant decided at construction, not an injected list,
// so a reordering bug cannot change dispatch semantics.
type Dispatcher struct {
	strategies []Strategy
}

// NewDispatcher builds the production priority sequence: product, order,
// catch-all. The catch-all is always last, which makes a no-match outcome a
// programming error rather than a runtime condition.
func NewDispatcher(marketplaceMarker string) *Dispatcher {
	return &Dispatcher{strategies: []Strategy{
		NewProductStrategy(),
		NewOrderStrategy(marketplaceMarker),
		NewCatchAllStrategy(),
	}}
}

// Dispatch invokes exactly one strategy and returns its built items together
// with the name of the strategy that handled the document.
func (d *Dispatcher) Dispatch(ctx context.Context, in *Input) ([]*workqueue.WorkItem, string, error) {
	for _, s := range d.strategies {
		if !s.CanHandle(in.Document) {
			continue
		}
		items, err := s.Process(ctx, in)
		if err != nil {
			return nil, s.Name(), err
		}
		return items, s.Name(), nil
	}
	return nil, "", dErrors.New(dErrors.CodeNoStrategy, "no strategy matched; catch-all missing")
}
