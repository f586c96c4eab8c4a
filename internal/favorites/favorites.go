// Package favorites tracks which signs the user has marked and orders the
// sign list with favorites first.
package favorites

import (
	"fmt"
	"sort"
	"sync"

	"github.com/danrleybayoshi/horoscopo/internal/catalog"
)

// Store persists favorite sign IDs.
type Store interface {
	AddFavorite(signID int) error
	RemoveFavorite(signID int) error
	FavoriteIDs() ([]int, error)
}

// Set is the in-memory view of the favorites, written through to a Store.
// It is safe for concurrent use.
type Set struct {
	mu    sync.RWMutex
	ids   map[int]bool
	store Store
}

// Load reads the persisted favorites. IDs outside the catalog are ignored.
func Load(store Store) (*Set, error) {
	ids, err := store.FavoriteIDs()
	if err != nil {
		return nil, fmt.Errorf("favorites: loading: %w", err)
	}
	s := &Set{ids: make(map[int]bool, len(ids)), store: store}
	for _, id := range ids {
		if _, ok := catalog.ByID(id); ok {
			s.ids[id] = true
		}
	}
	return s, nil
}

// IsFavorite reports whether id is marked.
func (s *Set) IsFavorite(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ids[id]
}

// Add marks id.
func (s *Set) Add(id int) error {
	if _, ok := catalog.ByID(id); !ok {
		return fmt.Errorf("favorites: unknown sign id %d", id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.AddFavorite(id); err != nil {
		return fmt.Errorf("favorites: add %d: %w", id, err)
	}
	s.ids[id] = true
	return nil
}

// Remove unmarks id.
func (s *Set) Remove(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.RemoveFavorite(id); err != nil {
		return fmt.Errorf("favorites: remove %d: %w", id, err)
	}
	delete(s.ids, id)
	return nil
}

// Toggle flips id and returns the new state.
func (s *Set) Toggle(id int) (bool, error) {
	if _, ok := catalog.ByID(id); !ok {
		return false, fmt.Errorf("favorites: unknown sign id %d", id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ids[id] {
		if err := s.store.RemoveFavorite(id); err != nil {
			return true, fmt.Errorf("favorites: remove %d: %w", id, err)
		}
		delete(s.ids, id)
		return false, nil
	}
	if err := s.store.AddFavorite(id); err != nil {
		return false, fmt.Errorf("favorites: add %d: %w", id, err)
	}
	s.ids[id] = true
	return true, nil
}

// List returns the favorite IDs in ascending order.
func (s *Set) List() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// Sorted returns signs with favorites first. Within each group the input
// order is kept.
func (s *Set) Sorted(signs []catalog.Sign) []catalog.Sign {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.Sign, len(signs))
	copy(out, signs)
	sort.SliceStable(out, func(i, j int) bool {
		return s.ids[out[i].ID] && !s.ids[out[j].ID]
	})
	return out
}
