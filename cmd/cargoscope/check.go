// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cargoscope/cargoscope/internal/aggregate"
	"github.com/cargoscope/cargoscope/internal/events"
	"github.com/cargoscope/cargoscope/internal/issue"
	"github.com/cargoscope/cargoscope/internal/store"
)

func newCheckCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run cargo-outdated or cargo-audit across projects",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newCheckOutdatedCommand(app), newCheckAuditCommand(app))
	return cmd
}

func newCheckOutdatedCommand(app *App) *cobra.Command {
	var flags analyzeFlags
	cmd := &cobra.Command{
		Use:   "outdated [paths...]",
		Short: "List root dependencies with newer releases (needs cargo-outdated)",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := projectPaths(cmd.Context(), app, args)
			if err != nil {
				return silenced(cmd, err)
			}
			results := aggregate.CheckOutdated(cmd.Context(), app.manager(events.Discard{}), paths)
			if flags.save {
				app.saveToCache(cmd.Context(), func(c store.Cache) store.Cache {
					return c.WithOutdated(results, app.now())
				})
			}
			if flags.format.structured() {
				return writeStructured(app.stdout, flags.format, results)
			}
			renderOutdated(app, results)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newCheckAuditCommand(app *App) *cobra.Command {
	var flags analyzeFlags
	cmd := &cobra.Command{
		Use:   "audit [paths...]",
		Short: "Scan lockfiles for security advisories (needs cargo-audit)",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := projectPaths(cmd.Context(), app, args)
			if err != nil {
				return silenced(cmd, err)
			}
			results := aggregate.CheckAudits(cmd.Context(), app.manager(events.Discard{}), paths)
			if flags.save {
				app.saveToCache(cmd.Context(), func(c store.Cache) store.Cache {
					return c.WithAudit(results, app.now())
				})
			}
			if flags.format.structured() {
				return writeStructured(app.stdout, flags.format, results)
			}
			renderAudit(app, results)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func renderOutdated(app *App, results []aggregate.OutdatedResult) {
	w := app.stdout
	var rows [][]string
	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
			fmt.Fprintf(app.stderr, "%s %s: %s\n", ErrorStyle.Render("✗"), r.ProjectName, r.Error)
			continue
		}
		for _, d := range r.Dependencies {
			rows = append(rows, []string{r.ProjectName, d.Name, d.Current, CmdStyle.Render(d.Latest), d.Kind})
		}
	}

	if len(rows) == 0 {
		fmt.Fprintln(w, SuccessStyle.Render("All root dependencies are up to date."))
	} else {
		fmt.Fprintln(w, renderTable([]string{"Project", "Dependency", "Current", "Latest", "Kind"}, rows))
	}
	hintMissingTool(app, failed, len(results))
}

func renderAudit(app *App, results []aggregate.AuditResult) {
	w := app.stdout
	var rows [][]string
	failed, warnings := 0, 0
	for _, r := range results {
		if !r.Success {
			failed++
			fmt.Fprintf(app.stderr, "%s %s: %s\n", ErrorStyle.Render("✗"), r.ProjectName, r.Error)
			continue
		}
		warnings += len(r.Warnings)
		for _, v := range r.Vulnerabilities {
			rows = append(rows, []string{r.ProjectName, v.ID, v.Package + " " + v.Version, WarningStyle.Render(v.Severity), v.Title})
		}
	}

	if len(rows) == 0 {
		fmt.Fprintln(w, SuccessStyle.Render("No known vulnerabilities."))
	} else {
		fmt.Fprintln(w, renderTable([]string{"Project", "Advisory", "Package", "Severity", "Title"}, rows))
	}
	if warnings > 0 {
		fmt.Fprintln(w, WarningStyle.Render(fmt.Sprintf("%d informational advisories (unmaintained, unsound or yanked)", warnings)))
	}
	hintMissingTool(app, failed, len(results))
}

// hintMissingTool shows the plugin issue when every project failed, which
// almost always means the cargo subcommand is not installed.
func hintMissingTool(app *App, failed, total int) {
	if total > 0 && failed == total {
		renderIssue(app.stderr, issue.ToolMissingId)
	}
}
