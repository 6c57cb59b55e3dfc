package store

import (
	"sync"

	"cartd/internal/model"
)

// SessionStore holds a guest cart in process memory.
// It lives exactly as long as the daemon: restarting discards the cart,
// which is the intended lifetime for unauthenticated shoppers. It is never
// promoted to the durable tier.
type SessionStore struct {
	mu   sync.RWMutex
	cart model.Cart
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

// Load returns a copy of the current guest cart.
func (s *SessionStore) Load() model.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Clone()
}

// Save replaces the guest cart.
func (s *SessionStore) Save(cart model.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = cart.Clone()
	return nil
}
