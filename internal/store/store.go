// Package store persists favorites, lookup history and rewrite results in
// SQLite.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Store serialises writes through a single connection and serves reads from
// a small query_only pool, both in WAL mode.
type Store struct {
	writer    *sql.DB
	reader    *sql.DB
	path      string
	closeOnce sync.Once
}

const basePragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)"

// Open opens or creates the database at path and applies pending
// migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("store: create directory for %s: %w", path, err)
	}

	writer, err := openPool(path+"?"+basePragmas, 1)
	if err != nil {
		return nil, fmt.Errorf("store: writer: %w", err)
	}
	reader, err := openPool(path+"?"+basePragmas+"&_pragma=query_only(ON)", 4)
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("store: reader: %w", err)
	}

	s := &Store{writer: writer, reader: reader, path: path}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return s, nil
}

func openPool(dsn string, conns int) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(conns)
	db.SetMaxIdleConns(conns)
	db.SetConnMaxLifetime(0)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Close closes both pools. Later calls are no-ops.
func (s *Store) Close() error {
	var firstErr error
	s.closeOnce.Do(func() {
		for _, db := range []*sql.DB{s.writer, s.reader} {
			if err := db.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	})
	return firstErr
}

// Writer returns the single-connection write handle.
func (s *Store) Writer() *sql.DB {
	return s.writer
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Ping checks both pools; the readiness check uses it.
func (s *Store) Ping() error {
	if err := s.writer.Ping(); err != nil {
		return fmt.Errorf("store: writer ping: %w", err)
	}
	if err := s.reader.Ping(); err != nil {
		return fmt.Errorf("store: reader ping: %w", err)
	}
	return nil
}

// Prune deletes lookups older than retentionDays and expired rewrite cache
// rows, returning the number of rows removed. Favorites are kept.
func (s *Store) Prune(retentionDays int) (int64, error) {
	now := time.Now().UTC()
	lookups, err := s.deleteBefore("lookups", "timestamp", now.AddDate(0, 0, -retentionDays))
	if err != nil {
		return 0, err
	}
	cached, err := s.deleteBefore("rewrite_cache", "expires_at", now)
	return lookups + cached, err
}

// deleteBefore removes rows of table whose RFC 3339 column is earlier than t.
// table and column are always package constants.
func (s *Store) deleteBefore(table, column string, t time.Time) (int64, error) {
	result, err := s.writer.Exec(
		fmt.Sprintf("DELETE FROM %s WHERE %s < ?", table, column),
		t.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("store: prune %s: %w", table, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: prune %s rows affected: %w", table, err)
	}
	return n, nil
}
