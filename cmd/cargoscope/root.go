// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/cargoscope/cargoscope/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the full command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cargoscope",
		Short: "Discover, analyze and run cargo projects across your machine",
		Long: TitleStyle.Render("cargoscope") + SubtitleStyle.Render(" - a fleet view of your Rust projects") + `

cargoscope walks a directory tree for Cargo.toml manifests, works out which
crates belong to which workspace, and reports on them as a fleet: dependency
version drift, toolchain and MSRV spread, license mix, outdated crates and
security advisories. It also runs cargo in any project, streaming the output.

` + SubtitleStyle.Render("Examples:") + `
  cargoscope scan ~/code             List every project below ~/code
  cargoscope analyze deps            Find crates used at several versions
  cargoscope run . test -- --nocapture
  cargoscope serve                   Stream cargo output to a websocket client`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			app.bootstrap(cmd.Context())
		},
	}

	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&app.cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/cargoscope/config.cue)")

	rootCmd.AddCommand(
		newScanCommand(app),
		newAnalyzeCommand(app),
		newCheckCommand(app),
		newCacheCommand(app),
		newRunCommand(app),
		newCargoCommand(app),
		newTaskCommand(app),
		newInfoCommand(app),
		newCleanCommand(app),
		newConfigCommand(app),
		newServeCommand(app),
		newToolsCommand(app),
		newTestReportCommand(app),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute builds the command tree and runs it. It is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// formatErrorForDisplay formats an error for user display.
// ActionableErrors use their own Format, which shows the cause chain in verbose mode.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// renderIssue prints the catalog entry for id as terminal markdown.
func renderIssue(w io.Writer, id issue.Id) {
	entry := issue.Get(id)
	if entry == nil {
		return
	}
	rendered, err := entry.Render("dark")
	if err != nil {
		fmt.Fprintln(w, entry.MarkdownMsg())
		return
	}
	fmt.Fprint(w, rendered)
}

// silenced prints err as a single styled line below whatever the command
// already rendered, and marks cmd so cobra and fang do not print it again.
// An ExitError without a cause prints nothing.
func silenced(cmd *cobra.Command, err error) error {
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return err
	}
	verbose, _ := cmd.Flags().GetBool("verbose")
	fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
	return err
}
