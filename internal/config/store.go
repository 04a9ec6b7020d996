// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/joho/godotenv"
)

type (
	// Store loads and saves whole configuration snapshots.
	Store interface {
		Load(ctx context.Context) (*Config, error)
		Save(ctx context.Context, cfg *Config) error
	}

	// LoadOptions selects where FileStore reads from.
	LoadOptions struct {
		// ConfigFilePath forces a specific file, which must exist.
		ConfigFilePath string
		// ConfigDirPath overrides ConfigDir.
		ConfigDirPath string
	}

	// FileStore keeps the configuration in a CUE file.
	FileStore struct {
		opts LoadOptions
	}
)

// NewFileStore creates a FileStore.
func NewFileStore(opts LoadOptions) *FileStore {
	return &FileStore{opts: opts}
}

// Path returns the file the store reads and writes.
func (s *FileStore) Path() (string, error) {
	if s.opts.ConfigFilePath != "" {
		return s.opts.ConfigFilePath, nil
	}
	dir := s.opts.ConfigDirPath
	if dir == "" {
		var err error
		if dir, err = ConfigDir(); err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt), nil
}

// Load reads the configuration. Without an explicit file, a missing config
// file yields the defaults.
func (s *FileStore) Load(ctx context.Context) (*Config, error) {
	path, err := s.Path()
	if err != nil {
		return nil, err
	}
	return load(ctx, path, s.opts.ConfigFilePath != "")
}

// Save writes cfg, creating the directory when needed.
func (s *FileStore) Save(ctx context.Context, cfg *Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(cfg)), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Init writes the default configuration unless the file already exists.
// It reports whether a file was created.
func (s *FileStore) Init(ctx context.Context) (bool, error) {
	path, err := s.Path()
	if err != nil {
		return false, err
	}
	if fileExists(path) {
		return false, nil
	}
	return true, s.Save(ctx, DefaultConfig())
}

// LoadDotenv loads dir/.env into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotenv(dir string) error {
	path := filepath.Join(dir, ".env")
	if !fileExists(path) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
