// Package viewer implements the persistent per-viewer watch-time ledger.
//
// Each viewer observed in chat gets one row keyed by their immutable Twitch
// user id. The stored display name is overwritten on every credit so it is at
// most one sampling interval stale; the minute counter only ever grows.
package viewer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Find when no ledger entry exists for a viewer.
var ErrNotFound = errors.New("viewer not found")

// Record is one viewer's ledger entry.
type Record struct {
	ViewerID      string `json:"viewer_id"`
	Name          string `json:"name"`
	WatchTimeMins int64  `json:"watch_time_mins"`
}

// Store provides ledger access over a Postgres connection. All methods are
// safe for concurrent use; increments are atomic adds executed in SQL, so
// overlapping sampler ticks cannot lose updates.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Find returns the ledger entry for viewerID, or ErrNotFound.
func (s *Store) Find(ctx context.Context, viewerID string) (*Record, error) {
	if viewerID == "" {
		return nil, fmt.Errorf("viewerID empty")
	}
	rec := &Record{ViewerID: viewerID}
	err := s.db.QueryRowContext(ctx,
		`SELECT name, watch_time_mins FROM viewers WHERE viewer_id=$1`, viewerID).
		Scan(&rec.Name, &rec.WatchTimeMins)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find viewer %s: %w", viewerID, err)
	}
	return rec, nil
}

// UpsertIncrement creates the viewer's entry with mins watched, or adds mins to
// the existing counter and refreshes the stored display name. The add happens
// inside the single upsert statement, never as a read-modify-write in Go.
func (s *Store) UpsertIncrement(ctx context.Context, viewerID, name string, mins int64) error {
	if viewerID == "" {
		return fmt.Errorf("viewerID empty")
	}
	if mins < 0 {
		return fmt.Errorf("negative increment %d for viewer %s", mins, viewerID)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO viewers (viewer_id, name, watch_time_mins, last_seen)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (viewer_id) DO UPDATE SET
		   name = EXCLUDED.name,
		   watch_time_mins = viewers.watch_time_mins + EXCLUDED.watch_time_mins,
		   last_seen = NOW()`,
		viewerID, name, mins)
	if err != nil {
		return fmt.Errorf("upsert viewer %s: %w", viewerID, err)
	}
	return nil
}

// Top returns up to n entries ranked by watch time descending. Ties break by
// insertion order (the serial row id), so the leaderboard is stable.
func (s *Store) Top(ctx context.Context, n int) ([]Record, error) {
	if n <= 0 {
		n = 5
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT viewer_id, name, watch_time_mins FROM viewers
		 ORDER BY watch_time_mins DESC, id ASC LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("top viewers: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ViewerID, &rec.Name, &rec.WatchTimeMins); err != nil {
			return nil, fmt.Errorf("scan viewer row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Count returns the number of distinct viewers ever credited.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM viewers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count viewers: %w", err)
	}
	return n, nil
}
