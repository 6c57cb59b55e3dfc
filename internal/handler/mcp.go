// MCP transport for the cart daemon using the official MCP Go SDK.
// Exposes the cart operations as tools so agent UIs drive the same engine
// as the REST surface.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"cartd/internal/model"
	"cartd/internal/session"
	"cartd/internal/stock"
	"cartd/internal/variant"
)

// === MCP Meta Types ===
// The MCP endpoint bypasses the Cart-Session header middleware, so session
// identity travels in meta instead.

// MCPMeta carries the shopper session on every tool call.
type MCPMeta struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"shopper session ID"`
	Token     string `json:"token,omitempty" jsonschema:"bearer token for the store API; omit for a guest cart"`
}

// session builds the tier-selection session from meta. A call without an ID
// gets a generated guest ID, mirroring the header middleware.
func (m MCPMeta) session() session.Session {
	id := m.SessionID
	if id == "" {
		id = "guest-" + uuid.NewString()
	}
	return session.Session{ID: id, Token: m.Token}
}

// === MCP Tool Input Types ===

// GetCartInput is the input schema for the get_cart tool.
type GetCartInput struct {
	Meta MCPMeta `json:"meta"`
}

// AddCartItemInput is the input schema for the add_cart_item tool.
type AddCartItemInput struct {
	Meta      MCPMeta       `json:"meta"`
	Product   model.Product `json:"product" jsonschema:"catalog product snapshot,required"`
	Quantity  int           `json:"quantity" jsonschema:"quantity to add,required"`
	VariantID string        `json:"variant_id,omitempty" jsonschema:"explicit variant ID"`
	Size      string        `json:"size,omitempty" jsonschema:"selected size"`
	Color     string        `json:"color,omitempty" jsonschema:"selected color, scalar form"`
}

// UpdateCartItemInput is the input schema for the update_cart_item tool.
type UpdateCartItemInput struct {
	Meta      MCPMeta  `json:"meta"`
	ProductID string   `json:"product_id" jsonschema:"product ID of the line,required"`
	Size      string   `json:"size,omitempty" jsonschema:"selected size of the line"`
	Color     string   `json:"color,omitempty" jsonschema:"selected color of the line"`
	Quantity  *int     `json:"quantity,omitempty" jsonschema:"new quantity"`
	UnitPrice *float64 `json:"unit_price,omitempty" jsonschema:"new unit price"`
}

// RemoveCartItemInput is the input schema for the remove_cart_item tool.
type RemoveCartItemInput struct {
	Meta      MCPMeta `json:"meta"`
	ProductID string  `json:"product_id" jsonschema:"product ID of the line,required"`
	Size      string  `json:"size,omitempty" jsonschema:"selected size of the line"`
	Color     string  `json:"color,omitempty" jsonschema:"selected color of the line"`
}

// ClearCartInput is the input schema for the clear_cart tool.
type ClearCartInput struct {
	Meta MCPMeta `json:"meta"`
}

// ValidateStockInput is the input schema for the validate_stock tool.
type ValidateStockInput struct {
	Meta      MCPMeta `json:"meta"`
	ProductID string  `json:"product_id" jsonschema:"product ID,required"`
	Quantity  int     `json:"quantity" jsonschema:"requested quantity,required"`
	VariantID string  `json:"variant_id,omitempty" jsonschema:"variant ID"`
	Size      string  `json:"size,omitempty" jsonschema:"selected size"`
	Color     string  `json:"color,omitempty" jsonschema:"selected color"`
}

// NewMCPServer creates an MCP server with the cart tools registered.
// The server exposes the same operations as the REST API but via MCP protocol.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "cartd",
			Version: "1.0.0",
		},
		&mcp.ServerOptions{
			Instructions: "Shopping cart daemon. Use these tools to read and mutate " +
				"the shopper's cart and to validate requested quantities against stock. " +
				"Pass the shopper's session in meta on every call.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_cart",
		Description: "Get the current cart with derived totals.",
	}, h.mcpGetCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_cart_item",
		Description: "Resolve a product selection to a variant and add it to the cart. Merges with an existing line of the same product/size/color.",
	}, h.mcpAddCartItem)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_cart_item",
		Description: "Update the quantity or unit price of an existing cart line.",
	}, h.mcpUpdateCartItem)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remove_cart_item",
		Description: "Remove a cart line by product/size/color identity.",
	}, h.mcpRemoveCartItem)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "clear_cart",
		Description: "Remove every line from the cart.",
	}, h.mcpClearCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "validate_stock",
		Description: "Validate a requested quantity against live stock. Debounced; rapid repeat calls collapse into one upstream check.",
	}, h.mcpValidateStock)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your mux.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===

func (h *Handler) mcpGetCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input GetCartInput,
) (*mcp.CallToolResult, *model.EnrichedCart, error) {
	enriched := h.engine.Fetch(ctx, input.Meta.session())
	return nil, &enriched, nil
}

func (h *Handler) mcpAddCartItem(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input AddCartItemInput,
) (*mcp.CallToolResult, *model.EnrichedCart, error) {
	if input.Product.ID == "" {
		return nil, nil, fmt.Errorf("product.id is required")
	}

	res := h.resolver.Resolve(ctx, input.Product, variant.Hint{
		VariantID: input.VariantID,
		Size:      input.Size,
		Color:     input.Color,
	})
	if !res.Purchasable() {
		return nil, nil, h.mcpError(model.NewOutOfStockError(input.Product.ID))
	}

	line := model.CartLine{
		ProductID:     input.Product.ID,
		Name:          input.Product.Name,
		Image:         input.Product.Image,
		UnitPrice:     res.Price,
		Quantity:      input.Quantity,
		SelectedSize:  res.Size,
		SelectedColor: res.Color,
		VariantID:     res.VariantID,
	}

	enriched := h.engine.AddItem(ctx, input.Meta.session(), line)
	return nil, &enriched, nil
}

func (h *Handler) mcpUpdateCartItem(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input UpdateCartItemInput,
) (*mcp.CallToolResult, *model.EnrichedCart, error) {
	if input.ProductID == "" {
		return nil, nil, fmt.Errorf("product_id is required")
	}

	id := model.LineIdentity{ProductID: input.ProductID, Size: input.Size, Color: input.Color}
	patch := model.LinePatch{Quantity: input.Quantity, UnitPrice: input.UnitPrice}

	enriched := h.engine.UpdateItem(ctx, input.Meta.session(), id, patch)
	return nil, &enriched, nil
}

func (h *Handler) mcpRemoveCartItem(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input RemoveCartItemInput,
) (*mcp.CallToolResult, *model.EnrichedCart, error) {
	if input.ProductID == "" {
		return nil, nil, fmt.Errorf("product_id is required")
	}

	id := model.LineIdentity{ProductID: input.ProductID, Size: input.Size, Color: input.Color}
	enriched := h.engine.RemoveItem(ctx, input.Meta.session(), id)
	return nil, &enriched, nil
}

func (h *Handler) mcpClearCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ClearCartInput,
) (*mcp.CallToolResult, *model.EnrichedCart, error) {
	enriched := h.engine.Clear(ctx, input.Meta.session())
	return nil, &enriched, nil
}

func (h *Handler) mcpValidateStock(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ValidateStockInput,
) (*mcp.CallToolResult, *stock.Result, error) {
	if input.ProductID == "" {
		return nil, nil, fmt.Errorf("product_id is required")
	}
	if input.Quantity < 1 {
		return nil, nil, fmt.Errorf("quantity must be at least 1")
	}

	result := <-h.gate.Validate(ctx, stock.Request{
		ProductID: input.ProductID,
		Quantity:  input.Quantity,
		VariantID: input.VariantID,
		Size:      input.Size,
		Color:     input.Color,
	})
	return nil, &result, nil
}

// mcpError converts errors to MCP-friendly messages.
func (h *Handler) mcpError(err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}
	// Don't leak internal error details
	h.logger.Error("mcp internal error", "error", err.Error())
	return fmt.Errorf("internal error")
}
