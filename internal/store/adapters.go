package store

import (
	"database/sql"
	"time"

	cachepkg "github.com/danrleybayoshi/horoscopo/internal/cache"
)

// CacheAdapter adapts Store to cache.Store.
type CacheAdapter struct {
	store *Store
}

// NewCacheAdapter creates a new CacheAdapter wrapping the given Store.
func NewCacheAdapter(s *Store) *CacheAdapter {
	return &CacheAdapter{store: s}
}

// GetCache retrieves an entry and records the hit.
func (a *CacheAdapter) GetCache(key string) (*cachepkg.Entry, error) {
	sc, err := a.store.GetCache(key)
	if err != nil {
		return nil, err
	}
	_ = a.store.RecordCacheHit(key)

	createdAt, _ := time.Parse(time.RFC3339, sc.CreatedAt)
	expiresAt, _ := time.Parse(time.RFC3339, sc.ExpiresAt)
	return &cachepkg.Entry{
		Value:     sc.Value,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}, nil
}

// SetCache stores an entry.
func (a *CacheAdapter) SetCache(key string, entry *cachepkg.Entry) error {
	return a.store.SetCache(&CacheEntry{
		Key:       key,
		Value:     entry.Value,
		CreatedAt: entry.CreatedAt.UTC().Format(time.RFC3339),
		ExpiresAt: entry.ExpiresAt.UTC().Format(time.RFC3339),
		LastHit:   sql.NullString{},
	})
}

// DeleteExpired removes all expired cache entries from the store.
func (a *CacheAdapter) DeleteExpired() error {
	_, err := a.store.DeleteExpired()
	return err
}

// FavoritesAdapter adapts Store to favorites.Store.
type FavoritesAdapter struct {
	store *Store
}

// NewFavoritesAdapter creates a new FavoritesAdapter wrapping the given Store.
func NewFavoritesAdapter(s *Store) *FavoritesAdapter {
	return &FavoritesAdapter{store: s}
}

func (a *FavoritesAdapter) AddFavorite(signID int) error    { return a.store.AddFavorite(signID) }
func (a *FavoritesAdapter) RemoveFavorite(signID int) error { return a.store.RemoveFavorite(signID) }

// FavoriteIDs returns the marked sign IDs in ascending order.
func (a *FavoritesAdapter) FavoriteIDs() ([]int, error) {
	favs, err := a.store.ListFavorites()
	if err != nil {
		return nil, err
	}
	ids := make([]int, len(favs))
	for i, f := range favs {
		ids[i] = f.SignID
	}
	return ids, nil
}
