// Package cart implements the multi-tier cart synchronization engine.
//
// Three tiers back a cart: the remote store API (authoritative for
// authenticated shoppers), a durable local mirror of it, and an ephemeral
// session tier for guests. Every mutation selects its tier fresh, applies
// one merge algorithm, and broadcasts exactly one change notification.
package cart

import (
	"context"
	"log/slog"

	"cartd/internal/model"
	"cartd/internal/session"
	"cartd/internal/store"
)

// Remote is the authoritative cart tier, implemented by the store client.
type Remote interface {
	FetchCart(ctx context.Context, sess session.Session) (model.Cart, error)
	AddItem(ctx context.Context, sess session.Session, line model.CartLine) (model.Cart, error)
	RemoveItem(ctx context.Context, sess session.Session, id model.LineIdentity) (model.Cart, error)
	UpdateItem(ctx context.Context, sess session.Session, id model.LineIdentity, patch model.LinePatch) (model.Cart, error)
	ClearCart(ctx context.Context, sess session.Session) (model.Cart, error)
}

// Engine orchestrates cart operations across the tiers.
//
// Operations never fail from the caller's perspective: a remote error
// downgrades to the durable mirror, a bad record reads as empty, and the
// result is always a usable enriched cart. There is no retry or backoff:
// one attempt, immediate fallback. Overlapping operations race with
// last-write-wins consistency at the storage layer; the engine holds no
// mutex across I/O by design.
type Engine struct {
	remote Remote
	mirror store.Store
	guest  store.Store
	events *notifier
	logger *slog.Logger
}

// NewEngine creates an engine over the given tiers.
func NewEngine(remote Remote, mirror, guest store.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		remote: remote,
		mirror: mirror,
		guest:  guest,
		events: newNotifier(),
		logger: logger,
	}
}

// Subscribe registers a change subscriber and returns its cancel function.
// Exactly one notification fires per mutation; rapid mutations each get
// their own visible update rather than being coalesced.
func (e *Engine) Subscribe(fn Subscriber) func() {
	return e.events.subscribe(fn)
}

// Fetch returns the current cart for the session without mutating it.
// Authenticated: remote, falling back to the last mirrored snapshot.
// Guest: session tier.
func (e *Engine) Fetch(ctx context.Context, sess session.Session) model.EnrichedCart {
	if !sess.Authenticated() {
		return model.Enrich(e.guest.Load())
	}

	cart, err := e.remote.FetchCart(ctx, sess)
	if err != nil {
		e.logger.Warn("remote fetch failed, serving mirrored snapshot",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()),
		)
		return model.Enrich(e.mirror.Load())
	}

	e.mirrorCart(cart)
	return model.Enrich(cart)
}

// AddItem adds a line to the cart, merging additively with an existing
// line of the same identity, and broadcasts the updated cart.
func (e *Engine) AddItem(ctx context.Context, sess session.Session, line model.CartLine) model.EnrichedCart {
	if line.Quantity < 1 {
		line.Quantity = 1
	}

	return e.mutate(ctx, sess, "add",
		func() (model.Cart, error) { return e.remote.AddItem(ctx, sess, line) },
		func(cart model.Cart) model.Cart { return applyAdd(cart, line) },
	)
}

// RemoveItem removes the line addressed by id. A miss is a no-op, not an
// error; the notification still fires so subscribers converge.
func (e *Engine) RemoveItem(ctx context.Context, sess session.Session, id model.LineIdentity) model.EnrichedCart {
	return e.mutate(ctx, sess, "remove",
		func() (model.Cart, error) { return e.remote.RemoveItem(ctx, sess, id) },
		func(cart model.Cart) model.Cart { return applyRemove(cart, id) },
	)
}

// UpdateItem patches the line addressed by id. A miss is a no-op.
func (e *Engine) UpdateItem(ctx context.Context, sess session.Session, id model.LineIdentity, patch model.LinePatch) model.EnrichedCart {
	return e.mutate(ctx, sess, "update",
		func() (model.Cart, error) { return e.remote.UpdateItem(ctx, sess, id, patch) },
		func(cart model.Cart) model.Cart { return applyUpdate(cart, id, patch) },
	)
}

// Clear empties the cart.
func (e *Engine) Clear(ctx context.Context, sess session.Session) model.EnrichedCart {
	return e.mutate(ctx, sess, "clear",
		func() (model.Cart, error) { return e.remote.ClearCart(ctx, sess) },
		func(model.Cart) model.Cart { return model.Cart{Items: []model.CartLine{}} },
	)
}

// mutate runs one mutation against the tier selected for the session and
// finishes with enrichment plus a single notification.
//
// Authenticated path: try the remote; on failure apply the same mutation
// to the durable mirror so the operation still succeeds, degraded. Remote
// successes are written through to the mirror so the next fallback starts
// from a recent snapshot.
// Guest path: session tier only. A guest cart never touches the mirror
// and does not survive the daemon.
func (e *Engine) mutate(ctx context.Context, sess session.Session, op string, viaRemote func() (model.Cart, error), local func(model.Cart) model.Cart) model.EnrichedCart {
	var cart model.Cart

	switch {
	case !sess.Authenticated():
		cart = local(e.guest.Load())
		if err := e.guest.Save(cart); err != nil {
			e.logger.Error("session tier save failed",
				slog.String("op", op),
				slog.String("error", err.Error()),
			)
		}

	default:
		remoteCart, err := viaRemote()
		if err == nil {
			cart = remoteCart
			e.mirrorCart(cart)
			break
		}

		e.logger.Warn("remote mutation failed, applying to local mirror",
			slog.String("op", op),
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()),
		)
		cart = local(e.mirror.Load())
		// A locally applied mutation invalidates any remote-supplied total.
		cart.Total = nil
		e.mirrorCart(cart)
	}

	enriched := model.Enrich(cart)
	e.events.publish(enriched)
	return enriched
}

// mirrorCart writes a cart through to the durable mirror, logging instead
// of failing; mirror trouble must not break a successful operation.
func (e *Engine) mirrorCart(cart model.Cart) {
	if err := e.mirror.Save(cart); err != nil {
		e.logger.Error("mirror save failed", slog.String("error", err.Error()))
	}
}

// === Merge algorithm ===
//
// The same algorithm serves the mirror fallback and the guest tier; the
// remote applies its own copy server-side. Identity is the normalized
// (productID, size, color) triple and nothing else.

// applyAdd merges a line into the cart: an existing line with the same
// identity gains the quantity, otherwise the line is appended.
func applyAdd(cart model.Cart, line model.CartLine) model.Cart {
	key := line.Key()
	for i := range cart.Items {
		if cart.Items[i].Key() == key {
			cart.Items[i].Quantity += line.Quantity
			return cart
		}
	}
	cart.Items = append(cart.Items, line)
	return cart
}

// applyRemove drops the line with the given identity, if present.
func applyRemove(cart model.Cart, id model.LineIdentity) model.Cart {
	key := id.Key()
	for i := range cart.Items {
		if cart.Items[i].Key() == key {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			return cart
		}
	}
	return cart
}

// applyUpdate patches the line with the given identity, if present.
// Quantities below 1 clamp to 1; removal is an explicit operation, not an
// update side effect.
func applyUpdate(cart model.Cart, id model.LineIdentity, patch model.LinePatch) model.Cart {
	key := id.Key()
	for i := range cart.Items {
		if cart.Items[i].Key() != key {
			continue
		}
		if patch.Quantity != nil {
			q := *patch.Quantity
			if q < 1 {
				q = 1
			}
			cart.Items[i].Quantity = q
		}
		if patch.UnitPrice != nil {
			cart.Items[i].UnitPrice = *patch.UnitPrice
		}
		return cart
	}
	return cart
}
