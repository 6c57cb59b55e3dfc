package remote

import (
	"encoding/json"

	"cartd/internal/model"
)

// === Wire types for the store API ===
//
// The store API predates this daemon and is not entirely regular: product
// identifiers appear under product_id, id, or _id depending on which
// backend service produced the payload, and colors arrive as strings or
// objects. All of that is normalized here, at the ingestion boundary, so
// nothing past this package ever sees the loose shapes.

// cartPayload is the response body of every cart endpoint.
type cartPayload struct {
	Items []cartLineWire `json:"items"`
	Total *float64       `json:"total,omitempty"`
}

func (p cartPayload) toCart() model.Cart {
	cart := model.Cart{Items: make([]model.CartLine, 0, len(p.Items)), Total: p.Total}
	for _, w := range p.Items {
		cart.Items = append(cart.Items, w.toLine())
	}
	return cart
}

// cartLineWire tolerates the loose shapes of upstream line items.
type cartLineWire struct {
	ProductID     string           `json:"product_id"`
	AltID         string           `json:"id"`
	LegacyID      string           `json:"_id"`
	Name          string           `json:"name"`
	Image         string           `json:"image"`
	UnitPrice     float64          `json:"unit_price"`
	Quantity      int              `json:"quantity"`
	SelectedSize  string           `json:"selected_size"`
	SelectedColor model.ColorValue `json:"selected_color"`
	VariantID     string           `json:"variant_id"`
}

func (w cartLineWire) toLine() model.CartLine {
	id := w.ProductID
	if id == "" {
		id = w.AltID
	}
	if id == "" {
		id = w.LegacyID
	}
	return model.CartLine{
		ProductID:     id,
		Name:          w.Name,
		Image:         w.Image,
		UnitPrice:     w.UnitPrice,
		Quantity:      w.Quantity,
		SelectedSize:  w.SelectedSize,
		SelectedColor: w.SelectedColor.String(),
		VariantID:     w.VariantID,
	}
}

// itemEnvelope wraps mutation request bodies: {"item": ...}.
type itemEnvelope struct {
	Item any `json:"item"`
}

// updateItem is the identity+patch body for POST /api/cart/update.
type updateItem struct {
	model.LineIdentity
	Quantity  *int     `json:"quantity,omitempty"`
	UnitPrice *float64 `json:"unit_price,omitempty"`
}

// variantsPayload is the response of GET /api/products/{id}/variants.
type variantsPayload struct {
	Variants []model.Variant `json:"variants"`
}

// === Stock validation ===

// StockItem is one requested quantity to validate against live inventory.
type StockItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	VariantID string `json:"variant_id,omitempty"`
	Size      string `json:"variant_size,omitempty"`
	Color     string `json:"variant_color,omitempty"`
}

// StockResult is the raw verdict from POST /api/orders/validate-stock.
// On rejection Message is the server's human-readable explanation and
// AvailableQuantity is only present when the server chose to send it.
type StockResult struct {
	Success           bool   `json:"success"`
	Message           string `json:"message,omitempty"`
	AvailableQuantity *int   `json:"available_quantity,omitempty"`
}

type stockValidateRequest struct {
	Items []StockItem `json:"items"`
}

// errorPayload is the store API's error body shape. Some endpoints nest
// the message under "error", others return it flat.
type errorPayload struct {
	Message string `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func parseErrorMessage(body []byte) string {
	var p errorPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return ""
	}
	if p.Error != nil && p.Error.Message != "" {
		return p.Error.Message
	}
	return p.Message
}
