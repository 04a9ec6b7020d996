// SPDX-License-Identifier: MPL-2.0

package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/charmbracelet/log"
)

const (
	// BackendJSON selects FileStore.
	BackendJSON = "json"
	// BackendSQLite selects SQLiteStore.
	BackendSQLite = "sqlite"

	// JSONFileName is the FileStore file inside the cache directory.
	JSONFileName = "cache.json"
	// SQLiteFileName is the SQLiteStore database inside the cache directory.
	SQLiteFileName = "cache.db"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown cache backend")

type (
	// SnapshotStore loads and saves whole Cache snapshots.
	SnapshotStore interface {
		Load(ctx context.Context) (Cache, error)
		Save(ctx context.Context, cache Cache) error
		Clear(ctx context.Context) error
		Close() error
	}

	// Option configures a store.
	Option func(*options)

	options struct {
		logger *log.Logger
	}
)

// WithLogger sets the logger used to report discarded corrupt caches.
func WithLogger(logger *log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Open returns the store for backend rooted at dir.
func Open(backend, dir string, opts ...Option) (SnapshotStore, error) {
	switch backend {
	case BackendJSON, "":
		return NewFileStore(filepath.Join(dir, JSONFileName), opts...), nil
	case BackendSQLite:
		return OpenSQLite(filepath.Join(dir, SQLiteFileName), opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// Update loads the snapshot, applies fn and saves the result.
func Update(ctx context.Context, s SnapshotStore, fn func(Cache) Cache) error {
	current, err := s.Load(ctx)
	if err != nil {
		return err
	}
	return s.Save(ctx, fn(current))
}
