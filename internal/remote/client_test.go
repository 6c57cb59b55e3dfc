package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"cartd/internal/model"
	"cartd/internal/session"
)

// newTestClient points a client at a plain-HTTP test server.
// The browser-fingerprint transport only matters for TLS dials, so tests
// swap in the default transport.
func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.httpClient = srv.Client()
	return c
}

func TestFetchCart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/cart" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok-1" {
			t.Errorf("Authorization = %q, want Bearer tok-1", auth)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"product_id": "prod-1", "name": "Shirt", "unit_price": 25.0, "quantity": 2, "selected_color": "Red"},
			},
			"total": 48.0,
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	cart, err := c.FetchCart(context.Background(), session.Session{Token: "tok-1"})
	if err != nil {
		t.Fatalf("FetchCart: %v", err)
	}

	if len(cart.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(cart.Items))
	}
	if cart.Items[0].SelectedColor != "Red" {
		t.Errorf("SelectedColor = %q, want Red", cart.Items[0].SelectedColor)
	}
	if cart.Total == nil || *cart.Total != 48 {
		t.Errorf("Total = %v, want 48", cart.Total)
	}
}

func TestFetchCart_LooseIDShapes(t *testing.T) {
	// Legacy backends put the product ID under id or _id.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"id": "prod-alt", "quantity": 1},
				{"_id": "prod-legacy", "quantity": 1},
				{"product_id": "prod-canonical", "id": "ignored", "quantity": 1},
			},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	cart, err := c.FetchCart(context.Background(), session.Session{})
	if err != nil {
		t.Fatalf("FetchCart: %v", err)
	}

	want := []string{"prod-alt", "prod-legacy", "prod-canonical"}
	for i, id := range want {
		if cart.Items[i].ProductID != id {
			t.Errorf("item %d ProductID = %q, want %q", i, cart.Items[i].ProductID, id)
		}
	}
}

func TestFetchCart_ObjectColorNormalized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"product_id": "prod-1", "quantity": 1, "selected_color": map[string]string{"name": "Red"}},
			},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	cart, err := c.FetchCart(context.Background(), session.Session{})
	if err != nil {
		t.Fatalf("FetchCart: %v", err)
	}
	if cart.Items[0].SelectedColor != "Red" {
		t.Errorf("SelectedColor = %q, want Red", cart.Items[0].SelectedColor)
	}
}

func TestAddItem_SendsEnvelopeAndIdempotencyKey(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")

		var body struct {
			Item model.CartLine `json:"item"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding body: %v", err)
		}
		if body.Item.ProductID != "prod-1" {
			t.Errorf("item product_id = %q", body.Item.ProductID)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{{"product_id": "prod-1", "quantity": 1}},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.AddItem(context.Background(), session.Session{Token: "t"}, model.CartLine{ProductID: "prod-1", Quantity: 1})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if gotKey == "" {
		t.Error("mutation sent without Idempotency-Key")
	}
}

func TestStatusErrorMapping(t *testing.T) {
	tests := []struct {
		status   int
		body     string
		sentinel error
	}{
		{404, `{}`, model.ErrNotFound},
		{401, `{"message":"bad token"}`, model.ErrUnauthorized},
		{429, `{}`, model.ErrRateLimited},
		{400, `{"error":{"message":"no such size"}}`, model.ErrInvalidRequest},
		{500, `{}`, model.ErrUpstreamError},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			w.Write([]byte(tt.body))
		}))

		c := newTestClient(t, srv)
		_, err := c.FetchCart(context.Background(), session.Session{})
		if err == nil {
			t.Errorf("status %d: expected error", tt.status)
		} else if !errors.Is(err, tt.sentinel) {
			t.Errorf("status %d: error %v does not wrap %v", tt.status, err, tt.sentinel)
		}
		srv.Close()
	}
}

func TestValidateStock_RejectionIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/orders/validate-stock" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"message": "Số lượng không đủ. Còn lại: 3",
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	result, err := c.ValidateStock(context.Background(), []StockItem{{ProductID: "prod-1", Quantity: 5}})
	if err != nil {
		t.Fatalf("ValidateStock: %v", err)
	}
	if result.Success {
		t.Error("expected rejection")
	}
	if result.Message == "" {
		t.Error("rejection message lost")
	}
}

func TestFetchVariants(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/products/prod-1/variants" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"variants": []map[string]any{
				{"id": "var-1", "size": "S", "color": "Red", "stock_quantity": 0},
				{"id": "var-2", "size": "M", "color": "Blue", "stock_quantity": 5, "price_adjustment": 15.0},
			},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	variants, err := c.FetchVariants(context.Background(), "prod-1")
	if err != nil {
		t.Fatalf("FetchVariants: %v", err)
	}
	if len(variants) != 2 {
		t.Fatalf("variants = %d, want 2", len(variants))
	}
	if variants[1].PriceAdjustment != 15 {
		t.Errorf("PriceAdjustment = %v, want 15", variants[1].PriceAdjustment)
	}
}
