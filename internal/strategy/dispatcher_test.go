package strategy

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docket/internal/classify"
	"docket/internal/workqueue"
	dErrors "docket/pkg/domain-errors"
)

func orderInput(marketplace string) *Input {
	return &Input{
		CorrelationID: "corr-1",
		Document: &classify.Document{
			Kind: classify.KindOrder,
			Order: &classify.OrderDocument{
				Number:      "123",
				Marketplace: marketplace,
				Items:       []classify.OrderLine{{SKU: "A", Quantity: 2}},
			},
		},
		RawBody:           `{"orderData":{"number":"123"}}`,
		DefaultTenantID:   "tenant-default",
		SecondaryTenantID: "tenant-secondary",
	}
}

func TestDispatchOrderRoutesByMarker(t *testing.T) {
	d := NewDispatcher("ZAWISZA")
	ctx := context.Background()

	items, name, err := d.Dispatch(ctx, orderInput("ZAWISZA-X"))
	require.NoError(t, err)
	assert.Equal(t, "order", name)
	require.Len(t, items, 1)
	assert.Equal(t, "tenant-secondary", items[0].TenantID)
	assert.Equal(t, workqueue.ScopeOrderCreate, items[0].Scope)

	// Marker match is case-insensitive.
	items, _, err = d.Dispatch(ctx, orderInput("shop.zawisza.pl"))
	require.NoError(t, err)
	assert.Equal(t, "tenant-secondary", items[0].TenantID)

	items, _, err = d.Dispatch(ctx, orderInput("allegro"))
	require.NoError(t, err)
	assert.Equal(t, "tenant-default", items[0].TenantID)
}

func TestDispatchOrderWithoutMarkerOrSecondary(t *testing.T) {
	ctx := context.Background()

	items, _, err := NewDispatcher("").Dispatch(ctx, orderInput("ZAWISZA-X"))
	require.NoError(t, err)
	assert.Equal(t, "tenant-default", items[0].TenantID)

	in := orderInput("ZAWISZA-X")
	in.SecondaryTenantID = ""
	items, _, err = NewDispatcher("ZAWISZA").Dispatch(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "tenant-default", items[0].TenantID)
}

func TestDispatchProduct(t *testing.T) {
	d := NewDispatcher("ZAWISZA")

	in := &Input{
		Document: &classify.Document{
			Kind:    classify.KindProduct,
			Product: &classify.ProductDocument{SKU: "P-1", Quantity: 7},
		},
		RawBody:         `{"productData":{"sku":"P-1"}}`,
		DefaultTenantID: "tenant-default",
	}
	items, name, err := d.Dispatch(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "product", name)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, workqueue.ScopeProductUpdate, item.Scope)
	assert.Equal(t, "tenant-default", item.TenantID)
	assert.Zero(t, item.TargetID)
	assert.Equal(t, in.RawBody, item.RawBody)

	var got classify.ProductDocument
	require.NoError(t, json.Unmarshal([]byte(item.Request), &got))
	assert.Equal(t, "P-1", got.SKU)
}

func TestDispatchUnrecognizedFallsToCatchAll(t *testing.T) {
	d := NewDispatcher("")

	in := &Input{
		Document:        &classify.Document{Kind: classify.KindUnrecognized},
		RawBody:         `{"foo":1}`,
		DefaultTenantID: "tenant-default",
	}
	items, name, err := d.Dispatch(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "catch-all", name)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, workqueue.ScopeUnrecognized, item.Scope)
	assert.Empty(t, item.Request, "unrecognized items carry no request payload")
	assert.Equal(t, `{"foo":1}`, item.RawBody, "raw body preserved verbatim")
}

func TestDispatchWithoutCatchAllIsProgrammingError(t *testing.T) {
	d := &Dispatcher{strategies: []Strategy{NewProductStrategy(), NewOrderStrategy("")}}

	in := &Input{Document: &classify.Document{Kind: classify.KindUnrecognized}}
	_, _, err := d.Dispatch(context.Background(), in)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNoStrategy))
}
