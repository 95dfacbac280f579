// Package checkpoint persists the per-area indexing cursor so
// incremental passes can resume from the last completed run.
package checkpoint

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// Store records when each area was last fully indexed.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

// Open creates or opens the checkpoint database. An empty path opens an
// in-memory store for testing.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint store: %w", err)
	}
	if path != "" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL: %w", err)
		}
	}

	schema := `CREATE TABLE IF NOT EXISTS checkpoints (
		areaid       TEXT PRIMARY KEY,
		last_indexed INTEGER NOT NULL,
		updated_at   INTEGER NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create checkpoint table: %w", err)
	}

	return &Store{db: db}, nil
}

// Get returns the last-indexed timestamp for an area, or 0 when the
// area has never completed a pass.
func (s *Store) Get(ctx context.Context, areaID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, fmt.Errorf("checkpoint store is closed")
	}

	var ts int64
	err := s.db.QueryRowContext(ctx,
		"SELECT last_indexed FROM checkpoints WHERE areaid = ?", areaID).Scan(&ts)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read checkpoint for %s: %w", areaID, err)
	}
	return ts, nil
}

// Set records that a pass over the area completed for everything
// modified up to lastIndexed.
func (s *Store) Set(ctx context.Context, areaID string, lastIndexed int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("checkpoint store is closed")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (areaid, last_indexed, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(areaid) DO UPDATE SET
			last_indexed = excluded.last_indexed,
			updated_at = excluded.updated_at`,
		areaID, lastIndexed, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to write checkpoint for %s: %w", areaID, err)
	}
	return nil
}

// Delete forgets the cursor for one area (after a delete-area, the next
// pass must start from zero).
func (s *Store) Delete(ctx context.Context, areaID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("checkpoint store is closed")
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM checkpoints WHERE areaid = ?", areaID)
	return err
}

// DeleteAll forgets every cursor.
func (s *Store) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("checkpoint store is closed")
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM checkpoints")
	return err
}

// All returns every area's last-indexed timestamp.
func (s *Store) All(ctx context.Context) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("checkpoint store is closed")
	}

	rows, err := s.db.QueryContext(ctx, "SELECT areaid, last_indexed FROM checkpoints")
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var areaID string
		var ts int64
		if err := rows.Scan(&areaID, &ts); err != nil {
			return nil, err
		}
		out[areaID] = ts
	}
	return out, rows.Err()
}

// Close releases the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
