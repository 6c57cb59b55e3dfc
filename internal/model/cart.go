// Package model defines data structures for the cart engine and the store API.
package model

// === Cart ===

// CartLine is one purchasable size/color combination of a product in a cart.
//
// Name, Image, and UnitPrice are display snapshots taken at add time; they
// may drift from the live catalog. UnitPrice already includes the resolved
// variant's price adjustment.
type CartLine struct {
	ProductID     string  `json:"product_id"`
	Name          string  `json:"name"`
	Image         string  `json:"image,omitempty"`
	UnitPrice     float64 `json:"unit_price"`
	Quantity      int     `json:"quantity"`
	SelectedSize  string  `json:"selected_size,omitempty"`
	SelectedColor string  `json:"selected_color,omitempty"`
	VariantID     string  `json:"variant_id,omitempty"`
}

// Key returns the merge key for this line.
// Two lines with equal keys are the same line; see LineKey.
func (l CartLine) Key() string {
	return LineKey(l.ProductID, l.SelectedSize, l.SelectedColor)
}

// Identity returns the addressable identity of this line.
func (l CartLine) Identity() LineIdentity {
	return LineIdentity{
		ProductID: l.ProductID,
		Size:      l.SelectedSize,
		Color:     l.SelectedColor,
	}
}

// LineIdentity addresses a cart line for remove/update operations.
// Size and Color must already be normalized scalar values.
type LineIdentity struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

// Key returns the merge key for this identity.
func (id LineIdentity) Key() string {
	return LineKey(id.ProductID, id.Size, id.Color)
}

// LinePatch carries the mutable fields of an update operation.
// Nil fields are left unchanged.
type LinePatch struct {
	Quantity  *int     `json:"quantity,omitempty"`
	UnitPrice *float64 `json:"unit_price,omitempty"`
}

// Cart is the persisted cart state for one tier.
//
// Total is only set when the remote tier supplies an authoritative total;
// it always wins over the locally computed sum during enrichment.
type Cart struct {
	Items []CartLine `json:"items"`
	Total *float64   `json:"total,omitempty"`
}

// Clone returns a deep copy of the cart.
// Stores hand out clones so callers cannot mutate persisted state in place.
func (c Cart) Clone() Cart {
	out := Cart{Items: make([]CartLine, len(c.Items))}
	copy(out.Items, c.Items)
	if c.Total != nil {
		t := *c.Total
		out.Total = &t
	}
	return out
}

// === Enrichment ===

// EnrichedCart is the full cart state broadcast to subscribers and returned
// by every engine operation. Derived fields are recomputed on every
// mutation and never persisted. Subscribers treat the payload as a full
// replacement, not a delta.
type EnrichedCart struct {
	Items              []CartLine `json:"items"`
	UniqueProductCount int        `json:"unique_product_count"`
	TotalQuantity      int        `json:"total_quantity"`
	Total              float64    `json:"total"`
}

// Enrich computes the derived fields for a cart snapshot.
// A remote-supplied total takes precedence over the computed sum.
func Enrich(c Cart) EnrichedCart {
	items := c.Items
	if items == nil {
		items = []CartLine{}
	}

	products := make(map[string]struct{}, len(items))
	totalQty := 0
	sum := 0.0
	for _, line := range items {
		products[line.ProductID] = struct{}{}
		totalQty += line.Quantity
		sum += line.UnitPrice * float64(line.Quantity)
	}

	total := sum
	if c.Total != nil {
		total = *c.Total
	}

	return EnrichedCart{
		Items:              items,
		UniqueProductCount: len(products),
		TotalQuantity:      totalQty,
		Total:              total,
	}
}
