package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Lookup is one horoscope request served (or not) by the failover client.
type Lookup struct {
	ID           string
	RequestID    string
	Timestamp    string
	Sign         string
	Timeframe    string
	Language     string
	Provider     string
	Success      bool
	LatencyMs    int64
	ErrorMessage string
}

// ProviderCount is the number of successful lookups served by one provider.
type ProviderCount struct {
	Provider string `json:"provider"`
	Served   int64  `json:"served"`
}

// LookupStats aggregates lookup history since a point in time.
type LookupStats struct {
	Total        int64           `json:"total"`
	Succeeded    int64           `json:"succeeded"`
	Failed       int64           `json:"failed"`
	AvgLatencyMs float64         `json:"avg_latency_ms"`
	ByProvider   []ProviderCount `json:"by_provider"`
}

// InsertLookup stores a lookup record. The caller provides a unique ID.
func (s *Store) InsertLookup(l *Lookup) error {
	success := 0
	if l.Success {
		success = 1
	}
	_, err := s.writer.Exec(`
		INSERT INTO lookups (
			id, request_id, timestamp, sign, timeframe, language,
			provider, success, latency_ms, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.RequestID, l.Timestamp, l.Sign, l.Timeframe, l.Language,
		l.Provider, success, l.LatencyMs, l.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("store: insert lookup: %w", err)
	}
	return nil
}

// ListLookups returns a page of lookups, newest first.
func (s *Store) ListLookups(limit, offset int) ([]*Lookup, error) {
	rows, err := s.reader.Query(`
		SELECT id, request_id, timestamp, sign, timeframe, language,
		       provider, success, latency_ms, error_message
		FROM lookups
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list lookups: %w", err)
	}
	defer rows.Close()

	var results []*Lookup
	for rows.Next() {
		l := &Lookup{}
		var success int
		if err := rows.Scan(
			&l.ID, &l.RequestID, &l.Timestamp, &l.Sign, &l.Timeframe, &l.Language,
			&l.Provider, &success, &l.LatencyMs, &l.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("store: scan lookup row: %w", err)
		}
		l.Success = success != 0
		results = append(results, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list lookups iteration: %w", err)
	}
	return results, nil
}

// GetLookupStats aggregates lookups whose timestamp is >= since.
func (s *Store) GetLookupStats(since time.Time) (*LookupStats, error) {
	sinceStr := since.UTC().Format(time.RFC3339)
	stats := &LookupStats{}

	err := s.reader.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN success = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(latency_ms), 0.0)
		FROM lookups
		WHERE timestamp >= ?`, sinceStr,
	).Scan(&stats.Total, &stats.Succeeded, &stats.Failed, &stats.AvgLatencyMs)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("store: get lookup stats: %w", err)
	}

	rows, err := s.reader.Query(`
		SELECT provider, COUNT(*)
		FROM lookups
		WHERE timestamp >= ? AND success = 1
		GROUP BY provider
		ORDER BY COUNT(*) DESC, provider`, sinceStr,
	)
	if err != nil {
		return nil, fmt.Errorf("store: lookup stats by provider: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pc ProviderCount
		if err := rows.Scan(&pc.Provider, &pc.Served); err != nil {
			return nil, fmt.Errorf("store: scan provider count: %w", err)
		}
		stats.ByProvider = append(stats.ByProvider, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: lookup stats iteration: %w", err)
	}
	return stats, nil
}
