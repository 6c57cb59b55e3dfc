// Package store provides the cart storage tiers below the remote API:
// an ephemeral session store for guest carts and a durable local store
// that mirrors the authoritative remote cart.
//
// Both tiers share the same contract: Load never fails (a missing or
// unparseable record reads as an empty cart) and Save persists a full
// snapshot. Consistency between concurrent writers is last-write-wins.
package store

import "cartd/internal/model"

// Store is a single cart tier.
type Store interface {
	// Load returns the persisted cart, or an empty cart when no usable
	// record exists. It never returns an error.
	Load() model.Cart

	// Save persists a full cart snapshot, replacing any previous record.
	Save(cart model.Cart) error
}
