package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"cartd/internal/model"
	"cartd/internal/session"
)

// eventBuffer bounds how many updates a slow SSE consumer can lag behind.
// Each event is a full cart replacement, so a dropped intermediate frame
// still converges on the next one.
const eventBuffer = 16

// handleCartEvents streams cart change notifications as server-sent events.
// GET /cart/events
//
// The first event is the current cart, so a reconnecting UI renders without
// waiting for a mutation. Every subsequent event carries the full enriched
// cart produced by one mutation.
func (h *Handler) handleCartEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, model.NewInternalError(fmt.Errorf("response writer does not support streaming")))
		return
	}

	ctx := r.Context()
	sess := session.FromContext(ctx)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	events := make(chan model.EnrichedCart, eventBuffer)
	cancel := h.engine.Subscribe(func(c model.EnrichedCart) {
		select {
		case events <- c:
		default:
			// Consumer lagging; drop the frame rather than block mutations.
		}
	})
	defer cancel()

	h.logger.Info("event stream opened", slog.String("session_id", sess.ID))

	if err := writeEvent(w, h.engine.Fetch(ctx, sess)); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("event stream closed", slog.String("session_id", sess.ID))
			return
		case cart := <-events:
			if err := writeEvent(w, cart); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeEvent writes one SSE frame carrying the cart as JSON.
func writeEvent(w http.ResponseWriter, cart model.EnrichedCart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: cart\ndata: %s\n\n", data)
	return err
}
