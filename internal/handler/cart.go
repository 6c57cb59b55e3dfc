package handler

import (
	"context"
	"log/slog"
	"net/http"

	"cartd/internal/model"
	"cartd/internal/session"
	"cartd/internal/stock"
	"cartd/internal/variant"
)

// addItemRequest carries a catalog product plus the shopper's selection.
// Color accepts both the scalar and object shapes upstream catalogs emit.
type addItemRequest struct {
	Product   model.Product    `json:"product"`
	Quantity  int              `json:"quantity"`
	VariantID string           `json:"variant_id,omitempty"`
	Size      string           `json:"size,omitempty"`
	Color     model.ColorValue `json:"color,omitempty"`
}

// lineIdentityRequest addresses an existing cart line.
type lineIdentityRequest struct {
	ProductID string           `json:"product_id"`
	Size      string           `json:"size,omitempty"`
	Color     model.ColorValue `json:"color,omitempty"`
}

func (r lineIdentityRequest) identity() model.LineIdentity {
	return model.LineIdentity{
		ProductID: r.ProductID,
		Size:      r.Size,
		Color:     r.Color.String(),
	}
}

// updateItemRequest patches an existing cart line.
type updateItemRequest struct {
	lineIdentityRequest
	Quantity  *int     `json:"quantity,omitempty"`
	UnitPrice *float64 `json:"unit_price,omitempty"`
}

// handleGetCart returns the current cart for the session.
// GET /cart
func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	enriched := h.engine.Fetch(ctx, session.FromContext(ctx))
	h.writeJSON(w, http.StatusOK, enriched)
}

// handleAddItem resolves the selection against the product's variants and
// adds the resulting line to the cart.
// POST /cart/items
//
// An unpurchasable resolution (resolved variant exists but has no stock)
// blocks the add with 409 instead of letting an unfillable line into the
// cart.
func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.Product.ID == "" {
		h.writeError(w, model.NewValidationError("product.id", "product ID required"))
		return
	}

	res := h.resolver.Resolve(ctx, req.Product, variant.Hint{
		VariantID: req.VariantID,
		Size:      req.Size,
		Color:     req.Color.String(),
	})
	if !res.Purchasable() {
		h.writeError(w, model.NewOutOfStockError(req.Product.ID))
		return
	}

	h.logger.InfoContext(ctx, "adding cart item",
		slog.String("product_id", req.Product.ID),
		slog.String("variant_id", res.VariantID),
		slog.Int("quantity", req.Quantity),
	)

	line := model.CartLine{
		ProductID:     req.Product.ID,
		Name:          req.Product.Name,
		Image:         req.Product.Image,
		UnitPrice:     res.Price,
		Quantity:      req.Quantity,
		SelectedSize:  res.Size,
		SelectedColor: res.Color,
		VariantID:     res.VariantID,
	}

	enriched := h.engine.AddItem(ctx, session.FromContext(ctx), line)
	h.writeJSON(w, http.StatusOK, enriched)
}

// handleUpdateItem patches the line addressed by the identity.
// PUT /cart/items
func (h *Handler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.ProductID == "" {
		h.writeError(w, model.NewValidationError("product_id", "product ID required"))
		return
	}

	patch := model.LinePatch{Quantity: req.Quantity, UnitPrice: req.UnitPrice}
	enriched := h.engine.UpdateItem(ctx, session.FromContext(ctx), req.identity(), patch)
	h.writeJSON(w, http.StatusOK, enriched)
}

// handleRemoveItem removes the line addressed by the identity.
// POST /cart/items/remove
//
// Remove is a POST with a body rather than DELETE because the identity is a
// composite that does not fit a path segment.
func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req lineIdentityRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.ProductID == "" {
		h.writeError(w, model.NewValidationError("product_id", "product ID required"))
		return
	}

	enriched := h.engine.RemoveItem(ctx, session.FromContext(ctx), req.identity())
	h.writeJSON(w, http.StatusOK, enriched)
}

// handleClearCart empties the cart.
// POST /cart/clear
func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	enriched := h.engine.Clear(ctx, session.FromContext(ctx))
	h.writeJSON(w, http.StatusOK, enriched)
}

// resolveResponse is a resolution plus the selectability of every option
// value, so a UI can gray out dead size/color choices in one round trip.
type resolveResponse struct {
	model.Resolution
	Options *optionMatrix `json:"options,omitempty"`
}

type optionMatrix struct {
	Sizes  []optionState `json:"sizes,omitempty"`
	Colors []optionState `json:"colors,omitempty"`
}

type optionState struct {
	Value      string `json:"value"`
	Selectable bool   `json:"selectable"`
}

// handleResolve resolves a selection hint against a product's variants.
// GET /products/{id}/resolve?size=&color=&variant_id=
//
// The product here is identified only by ID, so the price in the response
// is the variant adjustment alone; callers holding catalog data get the
// full price from the add operation instead.
func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	productID := r.PathValue("id")
	if productID == "" {
		h.writeError(w, model.NewValidationError("id", "product ID required"))
		return
	}

	q := r.URL.Query()
	size := q.Get("size")
	color := q.Get("color")

	res := h.resolver.Resolve(ctx, model.Product{ID: productID}, variant.Hint{
		VariantID: q.Get("variant_id"),
		Size:      size,
		Color:     color,
	})

	resp := resolveResponse{Resolution: res}
	if variants, err := h.resolver.Variants(ctx, productID); err == nil {
		resp.Options = h.buildOptions(ctx, productID, variants, size, color)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// buildOptions computes per-value selectability for both axes, constrained
// by whatever the shopper has already chosen on the other axis.
func (h *Handler) buildOptions(ctx context.Context, productID string, variants []model.Variant, chosenSize, chosenColor string) *optionMatrix {
	matrix := &optionMatrix{}
	seenSizes := make(map[string]bool)
	seenColors := make(map[string]bool)

	for _, v := range variants {
		if v.Size != "" && !seenSizes[v.Size] {
			seenSizes[v.Size] = true
			matrix.Sizes = append(matrix.Sizes, optionState{
				Value:      v.Size,
				Selectable: h.resolver.SizeSelectable(ctx, productID, v.Size, chosenColor),
			})
		}
		if v.Color != "" && !seenColors[v.Color] {
			seenColors[v.Color] = true
			matrix.Colors = append(matrix.Colors, optionState{
				Value:      v.Color,
				Selectable: h.resolver.ColorSelectable(ctx, productID, v.Color, chosenSize),
			})
		}
	}

	if len(matrix.Sizes) == 0 && len(matrix.Colors) == 0 {
		return nil
	}
	return matrix
}

// handleValidateStock runs a quantity intent through the debounced gate and
// answers with its verdict. The response may take up to the debounce window
// to produce; rapid repeat calls for the same selection collapse to one
// upstream validation.
// POST /stock/validate
func (h *Handler) handleValidateStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req stock.Request
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.ProductID == "" {
		h.writeError(w, model.NewValidationError("product_id", "product ID required"))
		return
	}
	if req.Quantity < 1 {
		h.writeError(w, model.NewValidationError("quantity", "must be at least 1"))
		return
	}

	result := <-h.gate.Validate(ctx, req)
	h.writeJSON(w, http.StatusOK, result)
}
