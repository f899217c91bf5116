// Package classify turns decrypted notification text plus a type hint into a
// typed document. Upstream schemas are heterogeneous, so recognition is an
// ordered fallback chain that trades precision for robustness. The branch
// order is load-bearing: several branches can structurally match the same
// payload, and reordering them changes the outcome.
package classify

import (
	"bytes"
	"encoding/json"
	"strings"

	dErrors "docket/pkg/domain-errors"
)

// wrapper captures the outer notification shape without committing to a
// document type. changeType rides at the top level regardless of variant.
type wrapper struct {
	ProductData json.RawMessage `json:"productData"`
	OrderData   json.RawMessage `json:"orderData"`
	ChangeType  string          `json:"changeType"`
}

// Classify resolves plaintext JSON and a type hint into a Document.
//
// Priority order, stopping at the first success:
//  1. nested productData object  -> product, regardless of content
//  2. nested orderData object    -> order, regardless of content
//  3. hint contains "product"    -> whole body as product, strict decode
//  4. hint contains "order"      -> whole body as order, strict decode
//  5. whole body as product, accepted only if the SKU field is present
//  6. whole body as order, accepted only if the order number is present
//  7. unrecognized
//
// Classification degrades to unrecognized rather than failing; an error is
// returned only for structural surprises outside the documented chain, such
// as a present-but-malformed nested object.
func Classify(plaintext, hint string) (*Document, error) {
	var outer wrapper
	outerOK := json.Unmarshal([]byte(plaintext), &outer) == nil

	doc := &Document{Kind: KindUnrecognized}
	if outerOK {
		doc.ChangeKind = outer.ChangeType
	}

	if outerOK && hasValue(outer.ProductData) {
		var product ProductDocument
		if err := json.Unmarshal(outer.ProductData, &product); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeClassification, "malformed productData object")
		}
		doc.Kind = KindProduct
		doc.Product = &product
		return doc, nil
	}

	if outerOK && hasValue(outer.OrderData) {
		var order OrderDocument
		if err := json.Unmarshal(outer.OrderData, &order); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeClassification, "malformed orderData object")
		}
		doc.Kind = KindOrder
		doc.Order = &order
		return doc, nil
	}

	lowerHint := strings.ToLower(hint)

	if strings.Contains(lowerHint, "product") {
		var product ProductDocument
		if strictUnmarshal([]byte(plaintext), &product) == nil {
			doc.Kind = KindProduct
			doc.Product = &product
			return doc, nil
		}
	}

	if strings.Contains(lowerHint, "order") {
		var order OrderDocument
		if strictUnmarshal([]byte(plaintext), &order) == nil {
			doc.Kind = KindOrder
			doc.Order = &order
			return doc, nil
		}
	}

	var product ProductDocument
	if json.Unmarshal([]byte(plaintext), &product) == nil && product.SKU != "" {
		doc.Kind = KindProduct
		doc.Product = &product
		return doc, nil
	}

	var order OrderDocument
	if json.Unmarshal([]byte(plaintext), &order) == nil && order.Number != "" {
		doc.Kind = KindOrder
		doc.Order = &order
		return doc, nil
	}

	return doc, nil
}

// hasValue reports whether a raw field was present with a non-null value.
func hasValue(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// strictUnmarshal rejects bodies carrying fields the target type does not
// declare. Hint-based branches use it so that a hinted decode only succeeds
// when the body really is that document shape; the sniffing branches below
// them stay reachable.
func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
