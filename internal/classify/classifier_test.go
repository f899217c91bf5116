package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "docket/pkg/domain-errors"
)

func TestNestedProductDataWinsOverOrderHint(t *testing.T) {
	doc, err := Classify(`{"productData":{"sku":"ABC-1","name":"Widget"},"changeType":"update"}`, "order")
	require.NoError(t, err)

	assert.Equal(t, KindProduct, doc.Kind)
	require.NotNil(t, doc.Product)
	assert.Equal(t, "ABC-1", doc.Product.SKU)
	assert.Equal(t, "update", doc.ChangeKind)
	assert.Nil(t, doc.Order)
}

func TestNestedOrderDataWinsOverProductHint(t *testing.T) {
	doc, err := Classify(`{"orderData":{"number":"123","marketplace":"allegro"}}`, "product-sync")
	require.NoError(t, err)

	assert.Equal(t, KindOrder, doc.Kind)
	require.NotNil(t, doc.Order)
	assert.Equal(t, "123", doc.Order.Number)
}

func TestNestedProductDataAcceptedRegardlessOfContent(t *testing.T) {
	// Empty object, no SKU: branch 1 still wins.
	doc, err := Classify(`{"productData":{}}`, "")
	require.NoError(t, err)
	assert.Equal(t, KindProduct, doc.Kind)
	assert.Empty(t, doc.Product.SKU)
}

func TestMalformedNestedObjectIsClassificationError(t *testing.T) {
	_, err := Classify(`{"productData":5}`, "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeClassification))

	_, err = Classify(`{"orderData":"nope"}`, "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeClassification))
}

func TestHintedDecodeOfWholeBody(t *testing.T) {
	doc, err := Classify(`{"number":"777","marketplace":"ebay"}`, "Order.Status")
	require.NoError(t, err)
	assert.Equal(t, KindOrder, doc.Kind)
	assert.Equal(t, "777", doc.Order.Number)

	doc, err = Classify(`{"sku":"P-9","price":19.99}`, "PRODUCT")
	require.NoError(t, err)
	assert.Equal(t, KindProduct, doc.Kind)
	assert.Equal(t, "P-9", doc.Product.SKU)
}

// TestFallbackOrder pins the chain across payload shapes that several
// branches could plausibly match.
func TestFallbackOrder(t *testing.T) {
	cases := []struct {
		name string
		body string
		hint string
		want Kind
	}{
		{
			// Hinted order decode rejects the foreign sku field; the SKU
			// sniffing branch below it picks the body up as a product.
			name: "order hint falls through to sku sniff",
			body: `{"sku":"ABC"}`,
			hint: "order",
			want: KindProduct,
		},
		{
			// Proper order shape is taken by the hinted branch directly.
			name: "order hint with order shape",
			body: `{"number":"42"}`,
			hint: "order",
			want: KindOrder,
		},
		{
			// No hint, no nested keys: the order number is the last
			// discriminator to fire.
			name: "bare order number",
			body: `{"number":"42"}`,
			hint: "",
			want: KindOrder,
		},
		{
			// Nothing discriminates: degrade, never fail.
			name: "unrecognized",
			body: `{"foo":1}`,
			hint: "order",
			want: KindUnrecognized,
		},
		{
			name: "bare sku without hint",
			body: `{"sku":"ABC"}`,
			hint: "",
			want: KindProduct,
		},
		{
			name: "invalid json",
			body: `{{{`,
			hint: "product",
			want: KindUnrecognized,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := Classify(tc.body, tc.hint)
			require.NoError(t, err)
			assert.Equal(t, tc.want, doc.Kind)
		})
	}
}

func TestChangeKindCapturedIndependently(t *testing.T) {
	doc, err := Classify(`{"changeType":"delete","foo":1}`, "")
	require.NoError(t, err)
	assert.Equal(t, KindUnrecognized, doc.Kind)
	assert.Equal(t, "delete", doc.ChangeKind)
	assert.False(t, doc.IsRecognized())
}
