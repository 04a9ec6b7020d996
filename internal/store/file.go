// SPDX-License-Identifier: MPL-2.0

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps the cache as indented JSON in a single file.
type FileStore struct {
	path string
	opts options
}

// NewFileStore creates a FileStore writing to path.
func NewFileStore(path string, opts ...Option) *FileStore {
	return &FileStore{path: path, opts: applyOptions(opts)}
}

// Path returns the cache file path.
func (s *FileStore) Path() string { return s.path }

// Load reads the cache. A missing file is an empty cache; so is a corrupt
// one, which is logged and left in place until the next Save overwrites it.
func (s *FileStore) Load(ctx context.Context) (Cache, error) {
	if err := ctx.Err(); err != nil {
		return Cache{}, err
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Cache{}, nil
	}
	if err != nil {
		return Cache{}, fmt.Errorf("failed to read cache: %w", err)
	}

	var cache Cache
	if err := json.Unmarshal(data, &cache); err != nil {
		s.opts.logger.Warn("discarding corrupt cache", "path", s.path, "err", err)
		return Cache{}, nil
	}
	return cache, nil
}

// Save replaces the cache file atomically.
func (s *FileStore) Save(ctx context.Context, cache Cache) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".cache-*.json")
	if err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// Clear removes the cache file.
func (s *FileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }
