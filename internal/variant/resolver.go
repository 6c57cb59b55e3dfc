// Package variant resolves abstract product/size/color selections into
// concrete, price- and stock-bearing inventory variants.
package variant

import (
	"context"
	"log/slog"
	"sync"

	"cartd/internal/model"
)

// Fetcher retrieves a product's variant snapshot from the store API.
type Fetcher interface {
	FetchVariants(ctx context.Context, productID string) ([]model.Variant, error)
}

// Hint is a possibly partial selection. All fields optional; Color must be
// the normalized scalar form.
type Hint struct {
	VariantID string
	Size      string
	Color     string
}

// Resolver matches selections against variant snapshots.
//
// Snapshots are fetched per product on demand and cached for the resolver's
// lifetime as immutable slices; Refresh is the only way to replace one.
// The cache is instance state, not package state, so tests and embedders
// can create isolated resolvers.
type Resolver struct {
	fetcher Fetcher
	logger  *slog.Logger

	mu    sync.Mutex
	cache map[string][]model.Variant
}

// NewResolver creates a resolver backed by the given fetcher.
func NewResolver(fetcher Fetcher, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		fetcher: fetcher,
		logger:  logger,
		cache:   make(map[string][]model.Variant),
	}
}

// Variants returns the cached snapshot for a product, fetching it on first
// use. The returned slice must not be mutated.
func (r *Resolver) Variants(ctx context.Context, productID string) ([]model.Variant, error) {
	r.mu.Lock()
	if cached, ok := r.cache[productID]; ok {
		r.mu.Unlock()
		return cached, nil
	}
	r.mu.Unlock()

	return r.Refresh(ctx, productID)
}

// Refresh discards any cached snapshot for the product and fetches a fresh
// one.
func (r *Resolver) Refresh(ctx context.Context, productID string) ([]model.Variant, error) {
	variants, err := r.fetcher.FetchVariants(ctx, productID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[productID] = variants
	r.mu.Unlock()
	return variants, nil
}

// Resolve matches a selection hint against a product's variants and
// computes the adjusted unit price.
//
// Precedence, first match wins:
//  1. explicit variant ID on the hint
//  2. exact normalized (size, color) match among active variants
//  3. first active variant with stock, in declared order (the default
//     "quick add" when the user made no explicit choice)
//  4. first variant regardless of stock; its zero stock tells the caller
//     to block the add instead of silently succeeding
//
// Resolution never fails: a product without variants resolves to its base
// price with a nil Variant, and a fetch failure degrades the same way.
func (r *Resolver) Resolve(ctx context.Context, product model.Product, hint Hint) model.Resolution {
	variants := product.Variants
	if len(variants) == 0 {
		fetched, err := r.Variants(ctx, product.ID)
		if err != nil {
			r.logger.Warn("variant fetch failed, resolving without variants",
				slog.String("product_id", product.ID),
				slog.String("error", err.Error()),
			)
		}
		variants = fetched
	}

	resolved := pick(variants, hint)

	res := model.Resolution{Price: product.BasePrice()}
	if resolved != nil {
		v := *resolved
		res.Variant = &v
		res.VariantID = v.ID
		res.Size = v.Size
		res.Color = v.Color
		res.Price += v.PriceAdjustment
	} else {
		// No variants at all: echo the hint so the cart line still carries
		// the user's selection.
		res.Size = hint.Size
		res.Color = hint.Color
	}
	return res
}

// pick applies the resolution precedence. Returns nil when variants is
// empty.
func pick(variants []model.Variant, hint Hint) *model.Variant {
	if len(variants) == 0 {
		return nil
	}

	if hint.VariantID != "" {
		for i := range variants {
			if variants[i].ID == hint.VariantID {
				return &variants[i]
			}
		}
	}

	if hint.Size != "" || hint.Color != "" {
		for i := range variants {
			v := &variants[i]
			if v.IsActive() && v.Size == hint.Size && v.Color == hint.Color {
				return v
			}
		}
	}

	for i := range variants {
		if variants[i].InStock() {
			return &variants[i]
		}
	}

	return &variants[0]
}

// SizeSelectable reports whether picking the given size could still lead
// to a purchasable variant. When the color axis is already chosen, only
// variants matching both axes count; otherwise any in-stock partner color
// qualifies.
func (r *Resolver) SizeSelectable(ctx context.Context, productID, size, chosenColor string) bool {
	variants, err := r.Variants(ctx, productID)
	if err != nil {
		return false
	}
	return selectable(variants, func(v model.Variant) bool {
		if v.Size != size {
			return false
		}
		return chosenColor == "" || v.Color == chosenColor
	})
}

// ColorSelectable is the color-axis counterpart of SizeSelectable.
func (r *Resolver) ColorSelectable(ctx context.Context, productID, color, chosenSize string) bool {
	variants, err := r.Variants(ctx, productID)
	if err != nil {
		return false
	}
	return selectable(variants, func(v model.Variant) bool {
		if v.Color != color {
			return false
		}
		return chosenSize == "" || v.Size == chosenSize
	})
}

func selectable(variants []model.Variant, match func(model.Variant) bool) bool {
	for _, v := range variants {
		if v.InStock() && match(v) {
			return true
		}
	}
	return false
}
