package store

import (
	"os"
	"path/filepath"
	"testing"

	"cartd/internal/model"
)

func TestLocalStore_RoundTrip(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	cart := model.Cart{Items: []model.CartLine{
		{ProductID: "prod-1", Name: "Shirt", UnitPrice: 25, Quantity: 2, SelectedSize: "M", SelectedColor: "Red"},
	}}
	if err := s.Save(cart); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := s.Load()
	if len(loaded.Items) != 1 {
		t.Fatalf("loaded %d items, want 1", len(loaded.Items))
	}
	if loaded.Items[0].Key() != cart.Items[0].Key() {
		t.Errorf("loaded key %q, want %q", loaded.Items[0].Key(), cart.Items[0].Key())
	}
}

func TestLocalStore_MissingRecordReadsEmpty(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	cart := s.Load()
	if len(cart.Items) != 0 {
		t.Errorf("fresh store loaded %d items, want 0", len(cart.Items))
	}
}

func TestLocalStore_CorruptRecordReadsEmpty(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "cart.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	cart := s.Load()
	if len(cart.Items) != 0 {
		t.Errorf("corrupt store loaded %d items, want 0", len(cart.Items))
	}
}

func TestLocalStore_StampAdvancesOnIdenticalSaves(t *testing.T) {
	// A no-op merge rewrites the same bytes; watchers must still see the
	// stamp move.
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	cart := model.Cart{Items: []model.CartLine{{ProductID: "prod-1", Quantity: 1}}}

	if s.Stamp() != 0 {
		t.Errorf("initial stamp = %d, want 0", s.Stamp())
	}

	var prev int64
	for i := 0; i < 3; i++ {
		if err := s.Save(cart); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
		stamp := s.Stamp()
		if stamp <= prev {
			t.Errorf("save %d: stamp %d did not advance past %d", i, stamp, prev)
		}
		prev = stamp
	}
}

func TestSessionStore_IsolatedCopies(t *testing.T) {
	s := NewSessionStore()

	cart := model.Cart{Items: []model.CartLine{{ProductID: "prod-1", Quantity: 1}}}
	if err := s.Save(cart); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := s.Load()
	loaded.Items[0].Quantity = 99

	if s.Load().Items[0].Quantity != 1 {
		t.Error("mutating a loaded cart leaked into the store")
	}
}
