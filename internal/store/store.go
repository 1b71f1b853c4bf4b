// Package store holds the shared in-memory inventory.
package store

import (
	"errors"
	"io"
	"sort"
	"sync"

	"github.com/fairyhunter13/pos-register-simulator/internal/model"
	"github.com/fairyhunter13/pos-register-simulator/internal/replenish"
)

// Inventory maps UPCs to immutable catalog entries. All methods are safe for
// concurrent use; every update swaps in a new entry under the write lock.
type Inventory struct {
	mu sync.RWMutex
	m  map[string]model.CatalogEntry
}

func New() *Inventory {
	return &Inventory{m: make(map[string]model.CatalogEntry)}
}

// Find returns the entry for upc.
func (s *Inventory) Find(upc string) (model.CatalogEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.m[upc]
	return e, ok
}

// List returns a snapshot of every entry ordered by UPC.
func (s *Inventory) List() []model.CatalogEntry {
	s.mu.RLock()
	out := make([]model.CatalogEntry, 0, len(s.m))
	for _, e := range s.m {
		out = append(out, e)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].UPC < out[j].UPC })
	return out
}

// Len returns the number of entries.
func (s *Inventory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// Replenish merges every record as one batch: readers see either none or
// all of it. Records with an empty UPC are skipped. It returns the number
// of records merged.
func (s *Inventory) Replenish(records []model.Record) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range records {
		if r.UPC == "" {
			continue
		}
		model.MergeInto(s.m, r.UPC, r.Entry())
		n++
	}
	return n
}

// ReplenishFrom reads a replenishment feed and merges it record by record.
// On a parse error the records merged before the failing line stay in
// place and the error is returned along with their count.
func (s *Inventory) ReplenishFrom(r io.Reader) (int, error) {
	rd := replenish.NewReader(r)
	n := 0
	for {
		rec, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		s.mu.Lock()
		model.MergeInto(s.m, rec.UPC, rec.Entry())
		s.mu.Unlock()
		n++
	}
}

// AdjustQuantity adds delta to the on-hand quantity of upc and returns the
// new entry. Unknown UPCs are left alone and reported with false.
func (s *Inventory) AdjustQuantity(upc string, delta int) (model.CatalogEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[upc]
	if !ok {
		return model.CatalogEntry{}, false
	}
	e = e.WithQuantity(e.Quantity + delta)
	s.m[upc] = e
	return e, true
}
