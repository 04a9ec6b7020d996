// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const (
	// LogLevelDebug enables debug logging.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo is the default log level.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs warnings and errors only.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs errors only.
	LogLevelError LogLevel = "error"

	// CacheBackendJSON stores the analysis cache in cache.json.
	CacheBackendJSON CacheBackend = "json"
	// CacheBackendSQLite stores the analysis cache in cache.db.
	CacheBackendSQLite CacheBackend = "sqlite"

	// DefaultServerAddr is where `cargoscope serve` listens by default.
	DefaultServerAddr = "127.0.0.1:7420"

	// MaxRecentProjects bounds Config.RecentProjects.
	MaxRecentProjects = 5

	defaultScanDirName = "Workspace"
)

var (
	// ErrInvalidLogLevel is the sentinel wrapped by InvalidLogLevelError.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidCacheBackend is the sentinel wrapped by InvalidCacheBackendError.
	ErrInvalidCacheBackend = errors.New("invalid cache backend")
	// ErrInvalidConfig is the sentinel wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum level the CLI logger emits.
	LogLevel string

	// CacheBackend selects the analysis cache storage.
	CacheBackend string

	// InvalidLogLevelError is returned when a LogLevel is not recognized.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// InvalidCacheBackendError is returned when a CacheBackend is not recognized.
	InvalidCacheBackendError struct {
		Value CacheBackend
	}

	// InvalidConfigError collects field-level validation errors of a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the user configuration.
	Config struct {
		// ScanRoot is the default discovery root. Empty means DefaultScanRoot.
		ScanRoot       string            `json:"scan_root" yaml:"scan_root" mapstructure:"scan_root"`
		Favorites      []string          `json:"favorites" yaml:"favorites" mapstructure:"favorites"`
		Hidden         []string          `json:"hidden" yaml:"hidden" mapstructure:"hidden"`
		RecentProjects []string          `json:"recent_projects" yaml:"recent_projects" mapstructure:"recent_projects"`
		PreferredIDE   string            `json:"preferred_ide" yaml:"preferred_ide" mapstructure:"preferred_ide"`
		Log            LogConfig         `json:"log" yaml:"log" mapstructure:"log"`
		Cache          CacheConfig       `json:"cache" yaml:"cache" mapstructure:"cache"`
		Server         ServerConfig      `json:"server" yaml:"server" mapstructure:"server"`
		Tasks          map[string]string `json:"tasks" yaml:"tasks" mapstructure:"tasks"`
	}

	// LogConfig configures logging.
	LogConfig struct {
		Level LogLevel `json:"level" yaml:"level" mapstructure:"level"`
	}

	// CacheConfig configures the analysis cache.
	CacheConfig struct {
		Backend CacheBackend `json:"backend" yaml:"backend" mapstructure:"backend"`
		// Path is the cache directory. Empty means the config directory.
		Path string `json:"path" yaml:"path" mapstructure:"path"`
	}

	// ServerConfig configures the event server.
	ServerConfig struct {
		Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
	}
)

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Favorites:      []string{},
		Hidden:         []string{},
		RecentProjects: []string{},
		Log:            LogConfig{Level: LogLevelInfo},
		Cache:          CacheConfig{Backend: CacheBackendJSON},
		Server:         ServerConfig{Addr: DefaultServerAddr},
		Tasks:          map[string]string{},
	}
}

// DefaultScanRoot is ~/Workspace, or the filesystem root when the home
// directory is unknown.
func DefaultScanRoot() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return string(filepath.Separator)
	}
	return filepath.Join(home, defaultScanDirName)
}

// EffectiveScanRoot is ScanRoot or DefaultScanRoot.
func (c *Config) EffectiveScanRoot() string {
	if c.ScanRoot != "" {
		return c.ScanRoot
	}
	return DefaultScanRoot()
}

// IsFavorite reports whether path is a favorite.
func (c *Config) IsFavorite(path string) bool { return slices.Contains(c.Favorites, path) }

// IsHidden reports whether path is hidden.
func (c *Config) IsHidden(path string) bool { return slices.Contains(c.Hidden, path) }

// Task returns the cargo argument string of a named task. Names are
// case-insensitive because viper lowercases map keys on load.
func (c *Config) Task(name string) (string, bool) {
	if spec, ok := c.Tasks[name]; ok {
		return spec, true
	}
	spec, ok := c.Tasks[strings.ToLower(name)]
	return spec, ok
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Favorites = slices.Clone(c.Favorites)
	out.Hidden = slices.Clone(c.Hidden)
	out.RecentProjects = slices.Clone(c.RecentProjects)
	out.Tasks = make(map[string]string, len(c.Tasks))
	for k, v := range c.Tasks {
		out.Tasks[k] = v
	}
	return &out
}

// WithFavorite returns a copy with path added to or removed from favorites.
func (c *Config) WithFavorite(path string, favorite bool) *Config {
	out := c.Clone()
	out.Favorites = toggle(out.Favorites, path, favorite)
	return out
}

// WithHidden returns a copy with path added to or removed from hidden.
func (c *Config) WithHidden(path string, hidden bool) *Config {
	out := c.Clone()
	out.Hidden = toggle(out.Hidden, path, hidden)
	return out
}

// WithRecentProject returns a copy with path moved to the front of the
// recent list, which is then trimmed to MaxRecentProjects.
func (c *Config) WithRecentProject(path string) *Config {
	out := c.Clone()
	recent := slices.DeleteFunc(out.RecentProjects, func(p string) bool { return p == path })
	recent = slices.Insert(recent, 0, path)
	if len(recent) > MaxRecentProjects {
		recent = recent[:MaxRecentProjects]
	}
	out.RecentProjects = recent
	return out
}

// WithScanRoot returns a copy with ScanRoot set.
func (c *Config) WithScanRoot(root string) *Config {
	out := c.Clone()
	out.ScanRoot = root
	return out
}

// WithPreferredIDE returns a copy with PreferredIDE set.
func (c *Config) WithPreferredIDE(ide string) *Config {
	out := c.Clone()
	out.PreferredIDE = ide
	return out
}

func toggle(list []string, path string, present bool) []string {
	list = slices.DeleteFunc(list, func(p string) bool { return p == path })
	if present {
		list = append(list, path)
	}
	return list
}

// IsValid validates the enumerated fields.
func (c *Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Log.Level.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Cache.Backend.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// IsValid reports whether l is a known level.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// IsValid reports whether b is a known backend.
func (b CacheBackend) IsValid() (bool, []error) {
	switch b {
	case CacheBackendJSON, CacheBackendSQLite:
		return true, nil
	default:
		return false, []error{&InvalidCacheBackendError{Value: b}}
	}
}

func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

func (e *InvalidCacheBackendError) Error() string {
	return fmt.Sprintf("invalid cache backend %q (valid: json, sqlite)", e.Value)
}

// Unwrap returns ErrInvalidCacheBackend.
func (e *InvalidCacheBackendError) Unwrap() error { return ErrInvalidCacheBackend }

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap exposes ErrInvalidConfig and every field error to errors.Is.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}
