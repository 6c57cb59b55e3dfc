package variant

import (
	"context"
	"errors"
	"testing"

	"cartd/internal/model"
)

// fakeFetcher serves canned variants and counts calls.
type fakeFetcher struct {
	variants map[string][]model.Variant
	err      error
	calls    int
}

func (f *fakeFetcher) FetchVariants(_ context.Context, productID string) ([]model.Variant, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.variants[productID], nil
}

func ptr[T any](v T) *T { return &v }

func testProduct() model.Product {
	return model.Product{
		ID:    "prod-1",
		Name:  "Shirt",
		Price: ptr(100.0),
		Variants: []model.Variant{
			{ID: "var-s-red", Size: "S", Color: "Red", StockQuantity: 0},
			{ID: "var-m-blue", Size: "M", Color: "Blue", StockQuantity: 5, PriceAdjustment: 15},
			{ID: "var-l-red", Size: "L", Color: "Red", StockQuantity: 2},
		},
	}
}

func TestResolve_ExplicitVariantID(t *testing.T) {
	r := NewResolver(&fakeFetcher{}, nil)

	res := r.Resolve(context.Background(), testProduct(), Hint{VariantID: "var-l-red"})
	if res.VariantID != "var-l-red" {
		t.Errorf("VariantID = %q, want var-l-red", res.VariantID)
	}
}

func TestResolve_ExactSizeColorMatch(t *testing.T) {
	r := NewResolver(&fakeFetcher{}, nil)

	res := r.Resolve(context.Background(), testProduct(), Hint{Size: "M", Color: "Blue"})
	if res.VariantID != "var-m-blue" {
		t.Errorf("VariantID = %q, want var-m-blue", res.VariantID)
	}
	if res.Size != "M" || res.Color != "Blue" {
		t.Errorf("resolved axes = (%q,%q)", res.Size, res.Color)
	}
}

func TestResolve_ExactMatchSkipsInactive(t *testing.T) {
	product := testProduct()
	product.Variants[1].Active = ptr(false)
	r := NewResolver(&fakeFetcher{}, nil)

	res := r.Resolve(context.Background(), product, Hint{Size: "M", Color: "Blue"})
	if res.VariantID == "var-m-blue" {
		t.Error("resolved an inactive variant from an explicit selection")
	}
}

func TestResolve_FirstInStockWithoutHint(t *testing.T) {
	// S/Red has no stock; the default pick must be M/Blue, in declared
	// order, not re-sorted by stock level.
	r := NewResolver(&fakeFetcher{}, nil)

	res := r.Resolve(context.Background(), testProduct(), Hint{})
	if res.VariantID != "var-m-blue" {
		t.Errorf("VariantID = %q, want var-m-blue", res.VariantID)
	}
}

func TestResolve_AllOutOfStockFallsBackToFirst(t *testing.T) {
	product := testProduct()
	for i := range product.Variants {
		product.Variants[i].StockQuantity = 0
	}
	r := NewResolver(&fakeFetcher{}, nil)

	res := r.Resolve(context.Background(), product, Hint{})
	if res.VariantID != "var-s-red" {
		t.Errorf("VariantID = %q, want first variant var-s-red", res.VariantID)
	}
	if res.Purchasable() {
		t.Error("zero-stock resolution must signal the caller to block the add")
	}
}

func TestResolve_PriceAdjustment(t *testing.T) {
	r := NewResolver(&fakeFetcher{}, nil)

	res := r.Resolve(context.Background(), testProduct(), Hint{VariantID: "var-m-blue"})
	if res.Price != 115 {
		t.Errorf("Price = %v, want 115 (base 100 + adjustment 15)", res.Price)
	}
}

func TestResolve_NoVariants(t *testing.T) {
	f := &fakeFetcher{}
	r := NewResolver(f, nil)

	product := model.Product{ID: "prod-simple", SalePrice: ptr(42.0)}
	res := r.Resolve(context.Background(), product, Hint{Size: "M"})

	if res.Variant != nil {
		t.Errorf("Variant = %+v, want nil", res.Variant)
	}
	if res.Price != 42 {
		t.Errorf("Price = %v, want base 42", res.Price)
	}
	if res.Size != "M" {
		t.Errorf("Size = %q, want hint echoed", res.Size)
	}
	if !res.Purchasable() {
		t.Error("variant-less product should be purchasable")
	}
}

func TestResolve_FetchFailureDegrades(t *testing.T) {
	f := &fakeFetcher{err: errors.New("store down")}
	r := NewResolver(f, nil)

	product := model.Product{ID: "prod-1", Price: ptr(100.0)}
	res := r.Resolve(context.Background(), product, Hint{})

	if res.Variant != nil {
		t.Error("expected nil variant after fetch failure")
	}
	if res.Price != 100 {
		t.Errorf("Price = %v, want base price", res.Price)
	}
}

func TestVariants_CachedAfterFirstFetch(t *testing.T) {
	f := &fakeFetcher{variants: map[string][]model.Variant{
		"prod-1": {{ID: "var-1", Size: "S", StockQuantity: 1}},
	}}
	r := NewResolver(f, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := r.Variants(ctx, "prod-1"); err != nil {
			t.Fatalf("Variants: %v", err)
		}
	}
	if f.calls != 1 {
		t.Errorf("fetch calls = %d, want 1", f.calls)
	}

	if _, err := r.Refresh(ctx, "prod-1"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if f.calls != 2 {
		t.Errorf("fetch calls after Refresh = %d, want 2", f.calls)
	}
}

func TestSelectability(t *testing.T) {
	f := &fakeFetcher{variants: map[string][]model.Variant{
		"prod-1": {
			{ID: "v1", Size: "S", Color: "Red", StockQuantity: 0},
			{ID: "v2", Size: "S", Color: "Blue", StockQuantity: 3},
			{ID: "v3", Size: "M", Color: "Red", StockQuantity: 4},
		},
	}}
	r := NewResolver(f, nil)
	ctx := context.Background()

	// Other axis chosen: both axes must match an in-stock variant.
	if r.SizeSelectable(ctx, "prod-1", "S", "Red") {
		t.Error("S/Red has no stock, size S should not be selectable with Red chosen")
	}
	if !r.SizeSelectable(ctx, "prod-1", "S", "Blue") {
		t.Error("S/Blue has stock, size S should be selectable with Blue chosen")
	}

	// Other axis unset: any in-stock partner qualifies.
	if !r.SizeSelectable(ctx, "prod-1", "S", "") {
		t.Error("size S should be selectable when no color is chosen")
	}
	if !r.ColorSelectable(ctx, "prod-1", "Red", "") {
		t.Error("color Red should be selectable via M/Red stock")
	}
	if r.ColorSelectable(ctx, "prod-1", "Red", "S") {
		t.Error("color Red should not be selectable with size S chosen")
	}
}

func TestSelectability_IgnoresInactive(t *testing.T) {
	f := &fakeFetcher{variants: map[string][]model.Variant{
		"prod-1": {
			{ID: "v1", Size: "S", Color: "Red", StockQuantity: 9, Active: ptr(false)},
		},
	}}
	r := NewResolver(f, nil)

	if r.SizeSelectable(context.Background(), "prod-1", "S", "") {
		t.Error("inactive variant must not make its size selectable")
	}
}
