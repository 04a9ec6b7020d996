// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/cargoscope/cargoscope/internal/issue"
	"github.com/cargoscope/cargoscope/pkg/cueutil"
)

const (
	// AppName names the config directory.
	AppName = "cargoscope"
	// ConfigFileName is the config file name without extension.
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides, e.g. CARGOSCOPE_LOG_LEVEL.
	EnvPrefix = "CARGOSCOPE"
)

//go:embed config_schema.cue
var configSchema []byte

// configDirOverride lets tests bypass os.UserHomeDir, which ignores HOME on
// some platforms.
var configDirOverride string

// SetConfigDirOverride forces ConfigDir to return dir. Tests only.
func SetConfigDirOverride(dir string) { configDirOverride = dir }

// Reset clears SetConfigDirOverride.
func Reset() { configDirOverride = "" }

// ConfigDir returns the platform config directory for cargoscope.
//
//nolint:revive // ConfigDir reads better than Dir at call sites
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		base = filepath.Join(home, "Library", "Application Support")
	default:
		base = os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, AppName), nil
}

// load layers defaults, the CUE file at path (if it exists) and the
// environment. A missing file is not an error.
func load(ctx context.Context, path string, mustExist bool) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load config canceled: %w", err)
	}

	v := viper.New()
	defaults := DefaultConfig()
	v.SetDefault("scan_root", defaults.ScanRoot)
	v.SetDefault("favorites", defaults.Favorites)
	v.SetDefault("hidden", defaults.Hidden)
	v.SetDefault("recent_projects", defaults.RecentProjects)
	v.SetDefault("preferred_ide", defaults.PreferredIDE)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("cache.backend", defaults.Cache.Backend)
	v.SetDefault("cache.path", defaults.Cache.Path)
	v.SetDefault("server.addr", defaults.Server.Addr)
	v.SetDefault("tasks", defaults.Tasks)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	switch {
	case fileExists(path):
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Run 'cargoscope config show' to see the effective configuration").
				Wrap(err).
				BuildError()
		}
	case mustExist:
		return nil, issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(path).
			WithSuggestion("Verify the --config path is correct").
			WithSuggestion("Run 'cargoscope config init' to create a default file").
			Wrap(fmt.Errorf("config file not found: %s", path)).
			BuildError()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if valid, errs := cfg.IsValid(); !valid {
		return nil, errs[0]
	}
	if cfg.Tasks == nil {
		cfg.Tasks = map[string]string{}
	}
	if len(cfg.RecentProjects) > MaxRecentProjects {
		cfg.RecentProjects = cfg.RecentProjects[:MaxRecentProjects]
	}
	return &cfg, nil
}

// loadCUEIntoViper validates the file against #Config and merges it over the
// defaults. Fields are optional, so the document need not be concrete.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	res, err := cueutil.Decode[map[string]any](configSchema, data, "#Config",
		cueutil.WithFilename(path),
		cueutil.WithConcrete(false),
	)
	if err != nil {
		return err
	}
	if err := v.MergeConfigMap(*res.Value); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// GenerateCUE renders cfg as a config.cue document.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// cargoscope configuration\n\n")
	if cfg.ScanRoot != "" {
		fmt.Fprintf(&sb, "scan_root: %q\n", cfg.ScanRoot)
	}
	writeList(&sb, "favorites", cfg.Favorites)
	writeList(&sb, "hidden", cfg.Hidden)
	writeList(&sb, "recent_projects", cfg.RecentProjects)
	if cfg.PreferredIDE != "" {
		fmt.Fprintf(&sb, "preferred_ide: %q\n", cfg.PreferredIDE)
	}

	fmt.Fprintf(&sb, "\nlog: {\n\tlevel: %q\n}\n", cfg.Log.Level)

	sb.WriteString("\ncache: {\n")
	fmt.Fprintf(&sb, "\tbackend: %q\n", cfg.Cache.Backend)
	if cfg.Cache.Path != "" {
		fmt.Fprintf(&sb, "\tpath: %q\n", cfg.Cache.Path)
	}
	sb.WriteString("}\n")

	fmt.Fprintf(&sb, "\nserver: {\n\taddr: %q\n}\n", cfg.Server.Addr)

	if len(cfg.Tasks) > 0 {
		sb.WriteString("\ntasks: {\n")
		for _, name := range sortedKeys(cfg.Tasks) {
			fmt.Fprintf(&sb, "\t%q: %q\n", name, cfg.Tasks[name])
		}
		sb.WriteString("}\n")
	}
	return sb.String()
}

func writeList(sb *strings.Builder, key string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "%s: [\n", key)
	for _, item := range items {
		fmt.Fprintf(sb, "\t%q,\n", item)
	}
	sb.WriteString("]\n")
}
