// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/cargoscope/cargoscope/internal/config"
	"github.com/cargoscope/cargoscope/internal/discovery"
	"github.com/cargoscope/cargoscope/internal/events"
	"github.com/cargoscope/cargoscope/internal/issue"
	"github.com/cargoscope/cargoscope/internal/runtime"
	"github.com/cargoscope/cargoscope/internal/store"
)

type (
	// App wires CLI services and shared dependencies. Cobra handlers receive
	// an App and go through it for configuration, logging, and output.
	App struct {
		Config config.Store
		stdout io.Writer
		stderr io.Writer
		now    func() time.Time

		// Set by root persistent flags.
		verbose bool
		cfgFile string

		cfg    *config.Config
		cfgErr error
		logger *log.Logger
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp and bootstrap.
	Dependencies struct {
		Config config.Store
		Stdout io.Writer
		Stderr io.Writer
		Now    func() time.Time
	}
)

// NewApp creates an App from deps.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
		now:    deps.Now,
		logger: log.New(io.Discard),
		cfg:    config.DefaultConfig(),
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	if app.now == nil {
		app.now = time.Now
	}
	return app
}

// bootstrap loads .env and the configuration and builds the logger. A broken
// config file is reported and the defaults are used so read-only commands
// keep working; commands that save the config refuse to run (see saveConfig).
func (a *App) bootstrap(ctx context.Context) {
	if wd, err := os.Getwd(); err == nil {
		if err := config.LoadDotenv(wd); err != nil {
			fmt.Fprintln(a.stderr, WarningStyle.Render("Warning: ")+err.Error())
		}
	}

	if a.Config == nil {
		a.Config = config.NewFileStore(config.LoadOptions{ConfigFilePath: a.cfgFile})
	}

	cfg, err := a.Config.Load(ctx)
	if err != nil {
		fmt.Fprintln(a.stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, a.verbose))
		if a.verbose {
			renderIssue(a.stderr, issue.ConfigLoadFailedId)
		}
		a.cfgErr = err
		cfg = config.DefaultConfig()
	}
	a.cfg = cfg
	a.logger = newLogger(a.stderr, cfg.Log.Level, a.verbose)
}

func newLogger(w io.Writer, level config.LogLevel, verbose bool) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: false,
		Prefix:          config.AppName,
	})
	lvl, err := log.ParseLevel(string(level))
	if err != nil {
		lvl = log.InfoLevel
	}
	if verbose {
		lvl = log.DebugLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// saveConfig persists cfg and makes it the App's current snapshot.
func (a *App) saveConfig(ctx context.Context, cfg *config.Config) error {
	if a.cfgErr != nil {
		return fmt.Errorf("refusing to overwrite a configuration that failed to load: %w", a.cfgErr)
	}
	if err := a.Config.Save(ctx, cfg); err != nil {
		return issue.NewErrorContext().
			WithOperation("save configuration").
			WithSuggestion("Check that the config directory is writable").
			Wrap(err).
			BuildError()
	}
	a.cfg = cfg
	return nil
}

func (a *App) discovery() *discovery.Discovery {
	return discovery.New(discovery.WithLogger(a.logger))
}

func (a *App) manager(sink events.Sink) *runtime.Manager {
	return runtime.NewManager(sink, runtime.WithLogger(a.logger), runtime.WithClock(a.now))
}

// cacheDir is cache.path from the config, or the config directory.
func (a *App) cacheDir() (string, error) {
	if a.cfg.Cache.Path != "" {
		return a.cfg.Cache.Path, nil
	}
	return config.ConfigDir()
}

func (a *App) openCache() (store.SnapshotStore, error) {
	dir, err := a.cacheDir()
	if err != nil {
		return nil, err
	}
	s, err := store.Open(string(a.cfg.Cache.Backend), dir, store.WithLogger(a.logger))
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("open analysis cache").
			WithResource(dir).
			WithSuggestion("Set cache.backend to \"json\" or \"sqlite\"").
			Wrap(err).
			BuildError()
	}
	return s, nil
}

// saveToCache applies fn to the stored snapshot. Failures are warnings: the
// analysis itself already succeeded.
func (a *App) saveToCache(ctx context.Context, fn func(store.Cache) store.Cache) {
	s, err := a.openCache()
	if err == nil {
		err = store.Update(ctx, s, fn)
		err = errors.Join(err, s.Close())
	}
	if err != nil {
		a.logger.Warn("failed to update analysis cache", "err", err)
		return
	}
	a.logger.Debug("analysis cache updated")
}

// scanRoot resolves an optional root argument against the configured default.
func (a *App) scanRoot(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return a.cfg.EffectiveScanRoot()
}
