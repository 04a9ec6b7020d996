// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cargoscope/cargoscope/internal/aggregate"
	"github.com/cargoscope/cargoscope/internal/events"
	"github.com/cargoscope/cargoscope/internal/store"
)

// analyzeFlags are shared by every analyze subcommand.
type analyzeFlags struct {
	format outputFormat
	save   bool
	all    bool
}

func newAnalyzeCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compare dependencies, toolchains and licenses across projects",
		Long: `Aggregate metadata across many projects at once.

Each subcommand takes project paths; without any, every visible project under
the scan root is analyzed. --save stores the report in the analysis cache.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newAnalyzeDepsCommand(app), newAnalyzeToolchainsCommand(app), newAnalyzeLicensesCommand(app))
	return cmd
}

func (f *analyzeFlags) register(cmd *cobra.Command) {
	addFormatFlag(cmd, &f.format)
	cmd.Flags().BoolVar(&f.save, "save", false, "store the report in the analysis cache")
}

func newAnalyzeDepsCommand(app *App) *cobra.Command {
	var flags analyzeFlags
	cmd := &cobra.Command{
		Use:     "deps [paths...]",
		Aliases: []string{"dependencies"},
		Short:   "Find dependencies required at different versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := projectPaths(cmd.Context(), app, args)
			if err != nil {
				return silenced(cmd, err)
			}
			report := aggregate.AnalyzeDependencies(cmd.Context(), paths)
			if flags.save {
				app.saveToCache(cmd.Context(), func(c store.Cache) store.Cache {
					return c.WithDependencies(report, app.now())
				})
			}
			if flags.format.structured() {
				return writeStructured(app.stdout, flags.format, report)
			}
			renderDependencies(app, report, flags.all)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVarP(&flags.all, "all", "a", false, "list every dependency, not only mismatches")
	return cmd
}

func newAnalyzeToolchainsCommand(app *App) *cobra.Command {
	var flags analyzeFlags
	cmd := &cobra.Command{
		Use:     "toolchains [paths...]",
		Aliases: []string{"msrv"},
		Short:   "Group projects by pinned toolchain and rust-version",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := projectPaths(cmd.Context(), app, args)
			if err != nil {
				return silenced(cmd, err)
			}
			report := aggregate.AnalyzeToolchains(cmd.Context(), paths)
			if flags.save {
				app.saveToCache(cmd.Context(), func(c store.Cache) store.Cache {
					return c.WithToolchains(report, app.now())
				})
			}
			if flags.format.structured() {
				return writeStructured(app.stdout, flags.format, report)
			}
			renderToolchains(app, report)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newAnalyzeLicensesCommand(app *App) *cobra.Command {
	var flags analyzeFlags
	cmd := &cobra.Command{
		Use:   "licenses [paths...]",
		Short: "Summarize dependency licenses (needs cargo-license)",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := projectPaths(cmd.Context(), app, args)
			if err != nil {
				return silenced(cmd, err)
			}
			source := aggregate.CargoLicenseSource{Runner: app.manager(events.Discard{})}
			report := aggregate.AnalyzeLicenses(cmd.Context(), paths, source)
			if flags.save {
				app.saveToCache(cmd.Context(), func(c store.Cache) store.Cache {
					return c.WithLicenses(report, app.now())
				})
			}
			if flags.format.structured() {
				return writeStructured(app.stdout, flags.format, report)
			}
			renderLicenses(app, report)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func renderDependencies(app *App, report aggregate.DependencyReport, all bool) {
	w := app.stdout
	fmt.Fprintf(w, "%s %d unique dependencies, %s\n\n",
		TitleStyle.Render("Dependencies:"),
		report.TotalUniqueDeps,
		mismatchSummary(report.DepsWithMismatches, "with version mismatches"))

	deps := report.Dependencies
	if !all {
		deps = report.Mismatched()
	}
	if len(deps) == 0 {
		return
	}

	rows := make([][]string, 0, len(deps))
	for _, d := range deps {
		versions := make([]string, len(d.Versions))
		for i, v := range d.Versions {
			versions[i] = fmt.Sprintf("%s (%d)", v.Version, len(v.Projects))
		}
		rows = append(rows, []string{d.Name, strings.Join(versions, ", "), strconv.Itoa(d.ProjectCount)})
	}
	fmt.Fprintln(w, renderTable([]string{"Dependency", "Versions (projects)", "Projects"}, rows))
}

func renderToolchains(app *App, report aggregate.ToolchainReport) {
	w := app.stdout
	fmt.Fprintln(w, TitleStyle.Render("Toolchains"))
	renderGroups(app, "Pinned toolchain", report.ToolchainGroups)
	renderGroups(app, "rust-version", report.MSRVGroups)
	if report.HasMismatches {
		fmt.Fprintln(w, WarningStyle.Render("Projects disagree on toolchain or MSRV."))
	} else {
		fmt.Fprintln(w, SuccessStyle.Render("All pinned projects agree."))
	}
}

func renderGroups(app *App, label string, groups []aggregate.ToolchainGroup) {
	if len(groups) == 0 {
		fmt.Fprintf(app.stdout, "%s: %s\n", label, SubtitleStyle.Render("none declared"))
		return
	}
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		names := make([]string, len(g.Projects))
		for i, p := range g.Projects {
			names[i] = aggregate.DisplayName(p)
		}
		rows = append(rows, []string{CmdStyle.Render(g.Version), strings.Join(names, ", ")})
	}
	fmt.Fprintln(app.stdout, renderTable([]string{label, "Projects"}, rows))
}

func renderLicenses(app *App, report aggregate.LicenseReport) {
	w := app.stdout
	fmt.Fprintf(w, "%s %d packages, %s\n\n",
		TitleStyle.Render("Licenses:"),
		report.TotalPackages,
		mismatchSummary(report.ProblematicCount, "under restrictive licenses"))

	if len(report.LicenseGroups) > 0 {
		rows := make([][]string, 0, len(report.LicenseGroups))
		for _, g := range report.LicenseGroups {
			license := g.License
			if g.IsProblematic {
				license = WarningStyle.Render(license)
			}
			rows = append(rows, []string{license, strconv.Itoa(len(g.Packages))})
		}
		fmt.Fprintln(w, renderTable([]string{"License", "Packages"}, rows))
	}

	for _, p := range report.Projects {
		if !p.Success {
			fmt.Fprintf(app.stderr, "%s %s: %s\n", ErrorStyle.Render("✗"), p.ProjectName, p.Error)
		}
	}
}

func mismatchSummary(n int, what string) string {
	msg := fmt.Sprintf("%d %s", n, what)
	if n == 0 {
		return SuccessStyle.Render(msg)
	}
	return WarningStyle.Render(msg)
}
