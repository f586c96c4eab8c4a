// Package cache is a two-tier TTL cache: an in-memory LRU in front of an
// optional persistent store.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
)

// Entry is a cached value with its lifetime.
type Entry struct {
	Value     []byte    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired returns true if the entry has passed its expiration time.
func (e *Entry) Expired() bool {
	return time.Now().After(e.ExpiresAt)
}

// Store is the persistence interface behind the memory tier.
type Store interface {
	GetCache(key string) (*Entry, error)
	SetCache(key string, entry *Entry) error
	DeleteExpired() error
}

// Stats is a snapshot of cache effectiveness.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

// Cache is safe for concurrent use.
type Cache struct {
	memory *lru.Cache[string, *Entry]
	store  Store
	ttl    time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a cache. store may be nil for memory-only operation;
// maxMemoryEntries <= 0 selects 1000.
func New(store Store, ttl time.Duration, maxMemoryEntries int) (*Cache, error) {
	if maxMemoryEntries <= 0 {
		maxMemoryEntries = 1000
	}
	memCache, err := lru.New[string, *Entry](maxMemoryEntries)
	if err != nil {
		return nil, fmt.Errorf("cache: creating LRU: %w", err)
	}
	return &Cache{memory: memCache, store: store, ttl: ttl}, nil
}

// Key hashes parts into a hex SHA-256 key. Parts are NUL-separated so
// ("ab","c") and ("a","bc") differ.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the value for key from memory, then from the store. A store
// hit is promoted to memory.
func (c *Cache) Get(key string) ([]byte, bool) {
	if entry, ok := c.memory.Get(key); ok {
		if !entry.Expired() {
			c.hits.Add(1)
			return entry.Value, true
		}
		c.memory.Remove(key)
	}

	if c.store != nil {
		entry, err := c.store.GetCache(key)
		if err == nil && entry != nil && !entry.Expired() {
			c.memory.Add(key, entry)
			c.hits.Add(1)
			return entry.Value, true
		}
	}

	c.misses.Add(1)
	return nil, false
}

// Set stores value in both tiers. A store failure is logged and the memory
// tier still holds the value.
func (c *Cache) Set(key string, value []byte) {
	now := time.Now()
	entry := &Entry{Value: value, CreatedAt: now, ExpiresAt: now.Add(c.ttl)}
	c.memory.Add(key, entry)

	if c.store != nil {
		if err := c.store.SetCache(key, entry); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("cache: persisting entry failed")
		}
	}
}

// Stats returns hit/miss counters and the memory tier size.
func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Entries: c.memory.Len()}
}

// StartPurger removes expired entries from both tiers every interval until
// ctx is cancelled. The returned channel closes when the goroutine exits so
// callers can wait before closing the store.
func (c *Cache) StartPurger(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Error().Interface("panic", r).Msg("cache purger: recovered from panic")
						}
					}()
					c.purge()
				}()
			}
		}
	}()
	return done
}

func (c *Cache) purge() {
	if c.store != nil {
		if err := c.store.DeleteExpired(); err != nil {
			log.Warn().Err(err).Msg("cache: deleting expired rows failed")
		}
	}
	for _, key := range c.memory.Keys() {
		if entry, ok := c.memory.Peek(key); ok && entry.Expired() {
			c.memory.Remove(key)
		}
	}
}
