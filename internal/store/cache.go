package store

import (
	"database/sql"
	"fmt"
	"time"
)

// CacheEntry is a persisted rewrite result. Times are RFC 3339 strings.
type CacheEntry struct {
	Key       string
	Value     []byte
	CreatedAt string
	ExpiresAt string
	HitCount  int64
	LastHit   sql.NullString
}

// GetCache returns the entry for key, or a wrapped sql.ErrNoRows.
func (s *Store) GetCache(key string) (*CacheEntry, error) {
	var c CacheEntry
	err := s.reader.QueryRow(
		`SELECT key, value, created_at, expires_at, hit_count, last_hit FROM rewrite_cache WHERE key = ?`, key,
	).Scan(&c.Key, &c.Value, &c.CreatedAt, &c.ExpiresAt, &c.HitCount, &c.LastHit)
	if err != nil {
		return nil, fmt.Errorf("store: get cache %s: %w", key, err)
	}
	return &c, nil
}

// SetCache writes c, replacing any entry with the same key.
func (s *Store) SetCache(c *CacheEntry) error {
	if _, err := s.writer.Exec(
		`INSERT OR REPLACE INTO rewrite_cache (key, value, created_at, expires_at, hit_count, last_hit)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.Key, c.Value, c.CreatedAt, c.ExpiresAt, c.HitCount, c.LastHit,
	); err != nil {
		return fmt.Errorf("store: set cache %s: %w", c.Key, err)
	}
	return nil
}

// DeleteExpired drops rewrite results past their expiry.
func (s *Store) DeleteExpired() (int64, error) {
	return s.deleteBefore("rewrite_cache", "expires_at", time.Now())
}

// RecordCacheHit counts a served hit on key. A missing key yields a wrapped
// sql.ErrNoRows.
func (s *Store) RecordCacheHit(key string) error {
	result, err := s.writer.Exec(
		`UPDATE rewrite_cache SET hit_count = hit_count + 1, last_hit = ? WHERE key = ?`,
		time.Now().UTC().Format(time.RFC3339), key,
	)
	if err != nil {
		return fmt.Errorf("store: record cache hit: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("store: record cache hit: %w", err)
	} else if n == 0 {
		return fmt.Errorf("store: record cache hit %s: %w", key, sql.ErrNoRows)
	}
	return nil
}
