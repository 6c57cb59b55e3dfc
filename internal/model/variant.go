package model

// === Variants ===

// Variant is one stocked size/color combination of a product.
// At least one of Size or Color is populated for the variant to be
// meaningful. Inactive variants are never selectable regardless of stock.
type Variant struct {
	ID              string  `json:"id"`
	SKU             string  `json:"sku,omitempty"`
	Size            string  `json:"size,omitempty"`
	Color           string  `json:"color,omitempty"`
	StockQuantity   int     `json:"stock_quantity"`
	PriceAdjustment float64 `json:"price_adjustment"`

	// Active is a tri-state flag from the catalog: only an explicit false
	// deactivates the variant, matching upstream's isActive !== false check.
	Active *bool `json:"is_active,omitempty"`
}

// IsActive reports whether the variant is selectable at all.
func (v Variant) IsActive() bool {
	return v.Active == nil || *v.Active
}

// InStock reports whether the variant is active with stock remaining.
func (v Variant) InStock() bool {
	return v.IsActive() && v.StockQuantity > 0
}

// Key returns the variant-map key for this variant.
func (v Variant) Key() string {
	return VariantKey(v.Size, v.Color)
}

// === Product ===

// Product is the catalog snapshot a caller supplies when adding to cart.
// Price fields are pointers because upstream catalog data may omit any one
// of them; see BasePrice for the fallback chain.
type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Image         string    `json:"image,omitempty"`
	SalePrice     *float64  `json:"sale_price,omitempty"`
	Price         *float64  `json:"price,omitempty"`
	OriginalPrice *float64  `json:"original_price,omitempty"`
	Variants      []Variant `json:"variants,omitempty"`
}

// BasePrice resolves the product's base price.
// First defined value wins: salePrice → price → originalPrice → 0.
func (p Product) BasePrice() float64 {
	switch {
	case p.SalePrice != nil:
		return *p.SalePrice
	case p.Price != nil:
		return *p.Price
	case p.OriginalPrice != nil:
		return *p.OriginalPrice
	default:
		return 0
	}
}

// === Resolution ===

// Resolution is the outcome of matching a selection against a product's
// variants. Variant is nil when the product has no variants at all; a
// non-nil Variant with zero stock signals the caller to block the add
// rather than proceed.
type Resolution struct {
	VariantID string   `json:"variant_id,omitempty"`
	Size      string   `json:"size,omitempty"`
	Color     string   `json:"color,omitempty"`
	Price     float64  `json:"price"`
	Variant   *Variant `json:"variant,omitempty"`
}

// Purchasable reports whether an add based on this resolution should be
// allowed: either the product has no variants, or the resolved variant is
// active with stock.
func (r Resolution) Purchasable() bool {
	return r.Variant == nil || r.Variant.InStock()
}
