package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"cartd/internal/model"
)

const (
	cartFile  = "cart.json"
	stampFile = "cart.stamp"
)

// LocalStore is the durable mirror of the authoritative remote cart.
//
// Alongside the cart record it keeps a stamp file holding a strictly
// increasing int64. The stamp advances on every successful Save, including
// saves whose serialized payload is byte-identical to the previous one,
// so other processes watching the data directory can detect that a
// mutation happened even when the record itself did not change (a no-op
// merge still has to be observable). There is no push channel; watchers
// poll Stamp and re-Load when it moves.
type LocalStore struct {
	mu  sync.Mutex
	dir string
}

// NewLocalStore creates a durable store rooted at dir, creating the
// directory if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Load returns the mirrored cart. Missing or corrupt records read as an
// empty cart; the durable tier is a cache, not a source of truth, so a bad
// record is discarded rather than surfaced.
func (s *LocalStore) Load() model.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(s.dir, cartFile))
	if err != nil {
		return model.Cart{}
	}

	var cart model.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return model.Cart{}
	}
	return cart
}

// Save persists the cart and advances the change stamp.
func (s *LocalStore) Save(cart model.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encoding cart: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, cartFile), data, 0o644); err != nil {
		return fmt.Errorf("writing cart: %w", err)
	}

	return s.advanceStamp()
}

// Stamp returns the current change marker, 0 when nothing was ever saved.
func (s *LocalStore) Stamp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readStamp()
}

func (s *LocalStore) readStamp() int64 {
	data, err := os.ReadFile(filepath.Join(s.dir, stampFile))
	if err != nil {
		return 0
	}
	stamp, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0
	}
	return stamp
}

// advanceStamp writes the next marker. Wall-clock nanoseconds are the
// normal source, but the previous value + 1 is the floor so two saves
// within the same clock tick still produce distinct, increasing stamps.
func (s *LocalStore) advanceStamp() error {
	next := time.Now().UnixNano()
	if prev := s.readStamp(); next <= prev {
		next = prev + 1
	}

	path := filepath.Join(s.dir, stampFile)
	if err := os.WriteFile(path, []byte(strconv.FormatInt(next, 10)), 0o644); err != nil {
		return fmt.Errorf("writing stamp: %w", err)
	}
	return nil
}
