// SPDX-License-Identifier: MPL-2.0

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps every top-level Cache field as one JSON row of the
// snapshots key/value table.
type SQLiteStore struct {
	db   *sql.DB
	path string
	opts options
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string, opts ...Option) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	s := &SQLiteStore{db: db, path: path, opts: applyOptions(opts)}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS snapshots (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return nil
}

// Path returns the database path.
func (s *SQLiteStore) Path() string { return s.path }

// Load reassembles the cache from its rows. Rows that no longer decode are
// logged and skipped.
func (s *SQLiteStore) Load(ctx context.Context) (Cache, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM snapshots`)
	if err != nil {
		return Cache{}, fmt.Errorf("failed to read cache: %w", err)
	}
	defer rows.Close()

	fields := make(map[string]json.RawMessage)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Cache{}, fmt.Errorf("failed to read cache: %w", err)
		}
		if !json.Valid([]byte(value)) {
			s.opts.logger.Warn("discarding corrupt cache entry", "key", key)
			continue
		}
		fields[key] = json.RawMessage(value)
	}
	if err := rows.Err(); err != nil {
		return Cache{}, fmt.Errorf("failed to read cache: %w", err)
	}

	var cache Cache
	if len(fields) == 0 {
		return cache, nil
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return Cache{}, fmt.Errorf("failed to decode cache: %w", err)
	}
	if err := json.Unmarshal(data, &cache); err != nil {
		s.opts.logger.Warn("discarding corrupt cache", "path", s.path, "err", err)
		return Cache{}, nil
	}
	return cache, nil
}

// Save replaces the stored snapshot in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, cache Cache) error {
	data, err := json.Marshal(cache)
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots`); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	for key, value := range fields {
		if _, err := tx.ExecContext(ctx, `INSERT INTO snapshots (key, value) VALUES (?, ?)`, key, string(value)); err != nil {
			return fmt.Errorf("failed to write cache entry %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// Clear deletes every row.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots`); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
