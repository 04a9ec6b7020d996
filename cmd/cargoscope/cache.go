// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cargoscope/cargoscope/internal/issue"
	"github.com/cargoscope/cargoscope/internal/store"
)

func newCacheCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear saved analysis results",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	var format outputFormat
	show := &cobra.Command{
		Use:   "show",
		Short: "Show what the analysis cache holds",
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			s, err := app.openCache()
			if err != nil {
				return silenced(cmd, err)
			}
			defer func() { err = errors.Join(err, s.Close()) }()

			c, err := s.Load(cmd.Context())
			if err != nil {
				renderIssue(app.stderr, issue.CacheLoadFailedId)
				return silenced(cmd, err)
			}
			if format.structured() {
				return writeStructured(app.stdout, format, c)
			}
			renderCache(app, c)
			return nil
		},
	}
	addFormatFlag(show, &format)

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every saved analysis result",
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			s, err := app.openCache()
			if err != nil {
				return silenced(cmd, err)
			}
			defer func() { err = errors.Join(err, s.Close()) }()

			if err := s.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, SuccessStyle.Render("✓")+" Analysis cache cleared")
			return nil
		},
	}

	cmd.AddCommand(show, clearCmd)
	return cmd
}

func renderCache(app *App, c store.Cache) {
	w := app.stdout
	if c.IsEmpty() {
		fmt.Fprintln(w, SubtitleStyle.Render("The analysis cache is empty. Run an analyze or check command with --save."))
		return
	}

	now := app.now()
	age := func(ts *int64) string {
		if ts == nil {
			return "-"
		}
		return formatAge(*ts, now)
	}

	var rows [][]string
	if c.DepAnalysis != nil {
		rows = append(rows, []string{"dependencies", fmt.Sprintf("%d unique, %d mismatched", c.DepAnalysis.TotalUniqueDeps, c.DepAnalysis.DepsWithMismatches), age(c.DepAnalysisTime)})
	}
	if c.ToolchainAnalysis != nil {
		summary := fmt.Sprintf("%d projects", len(c.ToolchainAnalysis.Projects))
		if c.ToolchainAnalysis.HasMismatches {
			summary += ", mismatched"
		}
		rows = append(rows, []string{"toolchains", summary, age(c.ToolchainTimestamp)})
	}
	if c.LicenseAnalysis != nil {
		rows = append(rows, []string{"licenses", fmt.Sprintf("%d packages, %d restrictive", c.LicenseAnalysis.TotalPackages, c.LicenseAnalysis.ProblematicCount), age(c.LicenseTimestamp)})
	}
	if c.OutdatedResults != nil {
		n := 0
		for _, r := range c.OutdatedResults {
			n += len(r.Dependencies)
		}
		rows = append(rows, []string{"outdated", fmt.Sprintf("%d projects, %d outdated", len(c.OutdatedResults), n), age(c.OutdatedTimestamp)})
	}
	if c.AuditResults != nil {
		n := 0
		for _, r := range c.AuditResults {
			n += len(r.Vulnerabilities)
		}
		rows = append(rows, []string{"audit", fmt.Sprintf("%d projects, %d vulnerabilities", len(c.AuditResults), n), age(c.AuditTimestamp)})
	}
	fmt.Fprintln(w, renderTable([]string{"Analysis", "Summary", "Saved"}, rows))
}
