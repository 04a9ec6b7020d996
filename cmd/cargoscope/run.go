// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cargoscope/cargoscope/internal/config"
	"github.com/cargoscope/cargoscope/internal/events"
	"github.com/cargoscope/cargoscope/internal/issue"
	"github.com/cargoscope/cargoscope/internal/runtime"
	"github.com/cargoscope/cargoscope/pkg/cargotoml"
)

// errCargoMissing is returned before spawning when cargo is not on PATH.
var errCargoMissing = errors.New("cargo executable not found in PATH")

// terminalFormatter renders streamed events for the terminal: output lines
// verbatim, the completion as a one-line status.
type terminalFormatter struct{}

func (terminalFormatter) FormatOutput(e events.OutputEvent) string { return e.Line }

func (terminalFormatter) FormatCompletion(e events.CompletionEvent) string {
	took := e.Duration.Round(time.Millisecond)
	if e.Success {
		return fmt.Sprintf("%s %s finished in %s", SuccessStyle.Render("✓"), CmdStyle.Render(e.Command), took)
	}
	status := "did not exit normally"
	if e.ExitCode != nil {
		status = fmt.Sprintf("exited with code %d", *e.ExitCode)
	}
	return fmt.Sprintf("%s %s %s after %s", ErrorStyle.Render("✗"), CmdStyle.Render(e.Command), status, took)
}

func newRunCommand(app *App) *cobra.Command {
	var batch bool
	cmd := &cobra.Command{
		Use:   "run <path> <subcommand> [args...]",
		Short: "Run a cargo subcommand in a project",
		Long: `Run 'cargo <subcommand> [args...]' with the project as working directory.

Output is streamed line by line as it is produced. With --batch the output is
collected and printed once cargo exits. cargoscope exits with cargo's exit code.`,
		Example: `  cargoscope run . build --release
  cargoscope run ~/code/api test -- --nocapture`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := requireProject(app, args[0])
			if err != nil {
				return silenced(cmd, err)
			}
			inv := runtime.Cargo(dir, args[1:]...)
			return silenced(cmd, execute(cmd.Context(), app, inv, batch))
		},
	}
	cmd.Flags().BoolVar(&batch, "batch", false, "collect output and print it when cargo exits")
	// Everything after the subcommand belongs to cargo.
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func newCargoCommand(app *App) *cobra.Command {
	var batch bool
	cmd := &cobra.Command{
		Use:   "cargo <preset> <path>",
		Short: "Run a predefined cargo command in a project",
		Long: `Run one of the built-in cargo presets:

  ` + strings.Join(runtime.PresetNames(), ", "),
		Args:      cobra.ExactArgs(2),
		ValidArgs: runtime.PresetNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := requireProject(app, args[1])
			if err != nil {
				return silenced(cmd, err)
			}
			inv, err := runtime.Preset(args[0], dir)
			if err != nil {
				return err
			}
			return silenced(cmd, execute(cmd.Context(), app, inv, batch))
		},
	}
	cmd.Flags().BoolVar(&batch, "batch", false, "collect output and print it when cargo exits")
	return cmd
}

func newTaskCommand(app *App) *cobra.Command {
	var batch bool
	cmd := &cobra.Command{
		Use:   "task <name> <path>",
		Short: "Run a cargo task defined in the config",
		Long: `Run a named task from the 'tasks' table of the config. A task is a
shell-quoted cargo argument string, for example:

  tasks: {
  	lint: "clippy --all-targets -- -D warnings"
  }

Task names are matched case-insensitively.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, ok := app.cfg.Task(args[0])
			if !ok {
				renderIssue(app.stderr, issue.TaskNotFoundId)
				return silenced(cmd, issue.NewErrorContext().
					WithOperation("run task").
					WithResource(args[0]).
					WithSuggestion("Add it under 'tasks' in "+configPathHint(app)).
					Wrap(fmt.Errorf("task %q is not defined", args[0])).
					BuildError())
			}
			taskArgs, err := runtime.ParseTask(spec, os.Getenv)
			if err != nil {
				return err
			}
			dir, err := requireProject(app, args[1])
			if err != nil {
				return silenced(cmd, err)
			}
			return silenced(cmd, execute(cmd.Context(), app, runtime.Cargo(dir, taskArgs...), batch))
		},
	}
	cmd.Flags().BoolVar(&batch, "batch", false, "collect output and print it when cargo exits")
	return cmd
}

// requireProject resolves path to an absolute project directory containing a
// Cargo.toml, rendering the project-not-found issue otherwise.
func requireProject(app *App, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err == nil {
		_, err = os.Stat(filepath.Join(abs, cargotoml.ManifestFileName))
	}
	if err != nil {
		renderIssue(app.stderr, issue.ProjectNotFoundId)
		return "", issue.NewErrorContext().
			WithOperation("open project").
			WithResource(path).
			WithSuggestion("Pass the directory that holds Cargo.toml").
			Wrap(err).
			BuildError()
	}
	return abs, nil
}

// execute runs inv streaming (or batch) and maps a failed run to an ExitError
// carrying cargo's exit code.
func execute(ctx context.Context, app *App, inv runtime.Invocation, batch bool) error {
	if _, err := exec.LookPath(inv.Command); err != nil {
		renderIssue(app.stderr, issue.CargoNotFoundId)
		return &ExitError{Code: 127, Err: errCargoMissing}
	}
	app.rememberProject(ctx, inv.Dir)

	var (
		success  bool
		exitCode *int
	)
	if batch {
		res := app.manager(events.Discard{}).Run(ctx, inv)
		fmt.Fprint(app.stdout, res.Stdout)
		fmt.Fprint(app.stderr, res.Stderr)
		success, exitCode = res.Success, res.ExitCode
	} else {
		sink := events.NewWriterSink(app.stdout, app.stderr, terminalFormatter{})
		done := app.manager(sink).Stream(inv).Wait()
		success, exitCode = done.Success, done.ExitCode
	}

	if success {
		return nil
	}
	code := 1
	if exitCode != nil && *exitCode != 0 {
		code = *exitCode
	}
	return &ExitError{Code: code}
}

// rememberProject moves dir to the front of recent_projects. It is best effort.
func (a *App) rememberProject(ctx context.Context, dir string) {
	if a.cfgErr != nil {
		return
	}
	next := a.cfg.WithRecentProject(dir)
	if err := a.Config.Save(ctx, next); err != nil {
		a.logger.Debug("could not record recent project", "path", dir, "err", err)
		return
	}
	a.cfg = next
}

func configPathHint(app *App) string {
	if fs, ok := app.Config.(*config.FileStore); ok {
		if p, err := fs.Path(); err == nil {
			return p
		}
	}
	return "the config file"
}
