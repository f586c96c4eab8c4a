package store

import (
	"database/sql"
	"fmt"
	"time"
)

// migration is one schema step. Steps are applied in order, each in its own
// transaction, and recorded in the migrations table.
type migration struct {
	version int
	name    string
	stmts   []string
}

var migrations = []migration{
	{1, "initial schema", []string{schemaFavorites, schemaLookups, schemaRewriteCache}},
	{2, "lookup language and request id", []string{
		`ALTER TABLE lookups ADD COLUMN language TEXT NOT NULL DEFAULT ''`,
		`ALTER TABLE lookups ADD COLUMN request_id TEXT NOT NULL DEFAULT ''`,
	}},
}

// Migrate applies every migration newer than the recorded version.
func (s *Store) Migrate() error {
	if _, err := s.writer.Exec(schemaMigrations); err != nil {
		return fmt.Errorf("store: create migrations table: %w", err)
	}

	var current int
	if err := s.writer.QueryRow("SELECT COALESCE(MAX(version), 0) FROM migrations").Scan(&current); err != nil {
		return fmt.Errorf("store: read migration version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := s.apply(m); err != nil {
			return fmt.Errorf("store: migration %d (%s): %w", m.version, m.name, err)
		}
	}
	return nil
}

func (s *Store) apply(m migration) error {
	tx, err := s.writer.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	for _, stmt := range m.stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	if err := recordMigration(tx, m); err != nil {
		return err
	}
	return tx.Commit()
}

func recordMigration(tx *sql.Tx, m migration) error {
	_, err := tx.Exec(
		"INSERT INTO migrations (version, name, applied_at) VALUES (?, ?, ?)",
		m.version, m.name, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}
