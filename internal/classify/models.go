package classify

// Kind tags the recognized document variant.
type Kind string

const (
	KindProduct      Kind = "product"
	KindOrder        Kind = "order"
	KindUnrecognized Kind = "unrecognized"
)

// ProductDocument is the normalized shape of a product notification. The SKU
// is the discriminating field when classification has to sniff an untyped body.
type ProductDocument struct {
	SKU      string  `json:"sku"`
	EAN      string  `json:"ean,omitempty"`
	Name     string  `json:"name,omitempty"`
	Quantity float64 `json:"quantity,omitempty"`
	Price    float64 `json:"price,omitempty"`
	Currency string  `json:"currency,omitempty"`
}

// OrderLine is one purchased position on an order.
type OrderLine struct {
	SKU      string  `json:"sku,omitempty"`
	Name     string  `json:"name,omitempty"`
	Quantity float64 `json:"quantity,omitempty"`
	Price    float64 `json:"price,omitempty"`
}

// OrderDocument is the normalized shape of an order notification. The order
// number is the discriminating field for untyped bodies; the marketplace field
// drives secondary-tenant routing.
type OrderDocument struct {
	Number      string      `json:"number"`
	Marketplace string      `json:"marketplace,omitempty"`
	Buyer       string      `json:"buyer,omitempty"`
	Currency    string      `json:"currency,omitempty"`
	Items       []OrderLine `json:"items,omitempty"`
}

// Document is the classification result: a tagged union over product, order
// and unrecognized, plus the change-kind annotation carried by the source
// event independently of which branch matched.
type Document struct {
	Kind       Kind
	Product    *ProductDocument
	Order      *OrderDocument
	ChangeKind string
}

// IsRecognized reports whether classification matched a concrete variant.
func (d *Document) IsRecognized() bool {
	return d.Kind != KindUnrecognized
}
