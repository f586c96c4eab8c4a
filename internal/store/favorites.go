package store

import (
	"fmt"
	"time"
)

// Favorite is a sign the user has marked.
type Favorite struct {
	SignID    int
	CreatedAt string
}

// AddFavorite marks signID. Adding an existing favorite keeps its original
// timestamp.
func (s *Store) AddFavorite(signID int) error {
	_, err := s.writer.Exec(
		"INSERT OR IGNORE INTO favorites (sign_id, created_at) VALUES (?, ?)",
		signID, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("store: add favorite %d: %w", signID, err)
	}
	return nil
}

// RemoveFavorite unmarks signID. Removing a missing favorite is not an error.
func (s *Store) RemoveFavorite(signID int) error {
	if _, err := s.writer.Exec("DELETE FROM favorites WHERE sign_id = ?", signID); err != nil {
		return fmt.Errorf("store: remove favorite %d: %w", signID, err)
	}
	return nil
}

// IsFavorite reports whether signID is marked.
func (s *Store) IsFavorite(signID int) (bool, error) {
	var n int
	if err := s.reader.QueryRow("SELECT COUNT(*) FROM favorites WHERE sign_id = ?", signID).Scan(&n); err != nil {
		return false, fmt.Errorf("store: is favorite %d: %w", signID, err)
	}
	return n > 0, nil
}

// ListFavorites returns every favorite ordered by sign ID.
func (s *Store) ListFavorites() ([]Favorite, error) {
	rows, err := s.reader.Query("SELECT sign_id, created_at FROM favorites ORDER BY sign_id")
	if err != nil {
		return nil, fmt.Errorf("store: list favorites: %w", err)
	}
	defer rows.Close()

	var out []Favorite
	for rows.Next() {
		var f Favorite
		if err := rows.Scan(&f.SignID, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan favorite row: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list favorites iteration: %w", err)
	}
	return out, nil
}
