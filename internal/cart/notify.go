package cart

import (
	"sync"

	"github.com/google/uuid"

	"cartd/internal/model"
)

// Subscriber receives the full enriched cart after each mutation.
// The payload is a replacement state, not a delta; independent UI surfaces
// (badge, drawer, summary) all render from the same notification.
type Subscriber func(model.EnrichedCart)

// notifier fans mutations out to registered subscribers.
// Registration state belongs to the engine instance, not the process, so
// isolated engines in tests do not observe each other.
type notifier struct {
	mu   sync.RWMutex
	subs map[string]Subscriber
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[string]Subscriber)}
}

// subscribe registers fn and returns its cancel function.
func (n *notifier) subscribe(fn Subscriber) func() {
	token := uuid.NewString()

	n.mu.Lock()
	n.subs[token] = fn
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.subs, token)
		n.mu.Unlock()
	}
}

// publish delivers one notification to every subscriber.
// Delivery is synchronous and in unspecified order; subscribers that need
// isolation from slow peers should hand off to their own goroutine.
func (n *notifier) publish(cart model.EnrichedCart) {
	n.mu.RLock()
	subs := make([]Subscriber, 0, len(n.subs))
	for _, fn := range n.subs {
		subs = append(subs, fn)
	}
	n.mu.RUnlock()

	for _, fn := range subs {
		fn(cart)
	}
}
