// Package stock gates checkout-adjacent mutations behind a debounced
// re-validation of requested quantities against live inventory.
package stock

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"cartd/internal/model"
	"cartd/internal/remote"
)

// DefaultWindow is the debounce window for validation calls.
const DefaultWindow = 500 * time.Millisecond

// Validator is the slice of the store client the gate needs.
type Validator interface {
	ValidateStock(ctx context.Context, items []remote.StockItem) (remote.StockResult, error)
}

// Request describes one quantity intent to validate.
type Request struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	VariantID string `json:"variant_id,omitempty"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

// key is the debounce/memo tuple: identical tuples collapse.
func (r Request) key() string {
	return model.LineKey(r.ProductID, r.Size, r.Color) + "|" + strconv.Itoa(r.Quantity)
}

// selectionKey identifies the selection independent of quantity, for the
// last-known-stock memo.
func (r Request) selectionKey() string {
	return model.LineKey(r.ProductID, r.Size, r.Color)
}

// Result is the gate's verdict.
//
// When OK is false, AvailableQuantity is the quantity the caller should
// down-correct to and Message is the server's explanation, to present
// verbatim. Skipped marks results that never reached the network: a memo
// hit on the last validated tuple, or a request superseded by a newer one
// inside the debounce window.
type Result struct {
	OK                bool   `json:"ok"`
	AvailableQuantity int    `json:"available_quantity,omitempty"`
	Message           string `json:"message,omitempty"`
	Skipped           bool   `json:"skipped,omitempty"`
}

// Gate debounces stock validation.
//
// The debounce is cancel-and-restart per gate, not per tuple: a fast-typing
// quantity field issues exactly one trailing network call. The memo of the
// last successfully validated tuple lives on the instance, never in
// package state, so isolated gates can be constructed for tests.
type Gate struct {
	validator Validator
	window    time.Duration
	logger    *slog.Logger

	mu            sync.Mutex
	timer         *time.Timer
	pending       chan Result
	lastValidated string
	lastKnown     map[string]int
}

// NewGate creates a validation gate. A window of 0 selects DefaultWindow.
func NewGate(validator Validator, window time.Duration, logger *slog.Logger) *Gate {
	if window <= 0 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		validator: validator,
		window:    window,
		logger:    logger,
		lastKnown: make(map[string]int),
	}
}

// Validate schedules a validation and returns the channel its result will
// arrive on. The channel receives exactly one Result and is then closed.
//
// A request whose tuple matches the immediately preceding successful
// validation resolves instantly without a network call. Otherwise the
// request waits out the debounce window; a newer request arriving within
// the window supersedes it, resolving the older channel with a skipped OK
// result.
func (g *Gate) Validate(ctx context.Context, req Request) <-chan Result {
	ch := make(chan Result, 1)

	g.mu.Lock()
	defer g.mu.Unlock()

	if req.key() == g.lastValidated {
		resolve(ch, Result{OK: true, Skipped: true})
		return ch
	}

	// Cancel-and-restart: the pending request, if any, is superseded.
	if g.timer != nil && g.timer.Stop() {
		resolve(g.pending, Result{OK: true, Skipped: true})
	}

	g.pending = ch
	g.timer = time.AfterFunc(g.window, func() {
		g.run(ctx, req, ch)
	})
	return ch
}

// run performs the network call after the window elapses.
func (g *Gate) run(ctx context.Context, req Request, ch chan Result) {
	result, err := g.validator.ValidateStock(ctx, []remote.StockItem{{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		VariantID: req.VariantID,
		Size:      req.Size,
		Color:     req.Color,
	}})

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending == ch {
		g.pending = nil
		g.timer = nil
	}

	if err != nil {
		// Transport failure, not a stock verdict. Blocking a purchase on a
		// network blip would down-correct quantities the server never
		// rejected, so the gate fails open and lets the order pipeline do
		// the authoritative check.
		g.logger.Warn("stock validation unreachable",
			slog.String("product_id", req.ProductID),
			slog.String("error", err.Error()),
		)
		resolve(ch, Result{OK: true})
		return
	}

	if result.Success {
		g.lastValidated = req.key()
		g.lastKnown[req.selectionKey()] = req.Quantity
		resolve(ch, Result{OK: true})
		return
	}

	resolve(ch, Result{
		OK:                false,
		AvailableQuantity: g.fallbackQuantity(req, result),
		Message:           result.Message,
	})
}

// fallbackQuantity determines what quantity the caller should fall back
// to after a rejection: the server's explicit figure, else the count
// scraped from its message, else the last known in-stock total for this
// selection, clamped to at least 1. Must be called with g.mu held.
func (g *Gate) fallbackQuantity(req Request, result remote.StockResult) int {
	if result.AvailableQuantity != nil {
		g.lastKnown[req.selectionKey()] = *result.AvailableQuantity
		return *result.AvailableQuantity
	}

	if n, ok := ExtractRemaining(result.Message); ok {
		g.lastKnown[req.selectionKey()] = n
		return n
	}

	if known, ok := g.lastKnown[req.selectionKey()]; ok && known >= 1 {
		return known
	}
	return 1
}

func resolve(ch chan Result, r Result) {
	ch <- r
	close(ch)
}
