// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cargoscope/cargoscope/internal/events"
	"github.com/cargoscope/cargoscope/internal/runtime"
	"github.com/cargoscope/cargoscope/pkg/cargoreport"
)

func newToolsCommand(app *App) *cobra.Command {
	var format outputFormat
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Show which cargo plugins are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			statuses := app.manager(events.Discard{}).CheckTools(cmd.Context(), runtime.KnownTools)
			if format.structured() {
				return writeStructured(app.stdout, format, statuses)
			}

			rows := make([][]string, 0, len(statuses))
			missing := 0
			for _, s := range statuses {
				install := ""
				if !s.Installed {
					missing++
					install = CmdStyle.Render(s.InstallCmd)
				}
				rows = append(rows, []string{s.Name, checkMark(s.Installed), s.Description, install})
			}
			fmt.Fprintln(app.stdout, renderTable([]string{"Tool", "Installed", "Purpose", "Install"}, rows))
			if missing > 0 {
				fmt.Fprintln(app.stdout, SubtitleStyle.Render(fmt.Sprintf("%d of %d tools missing", missing, len(statuses))))
			}
			return nil
		},
	}
	addFormatFlag(cmd, &format)
	return cmd
}

func newTestReportCommand(app *App) *cobra.Command {
	var (
		format     outputFormat
		showPassed bool
	)
	cmd := &cobra.Command{
		Use:   "test-report <junit.xml>",
		Short: "Summarize a JUnit report such as the one cargo-nextest writes",
		Example: `  cargo nextest run --profile ci
  cargoscope test-report target/nextest/ci/junit.xml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			report, err := cargoreport.DecodeJUnit(data)
			if err != nil {
				return err
			}
			if format.structured() {
				if err := writeStructured(app.stdout, format, report); err != nil {
					return err
				}
			} else {
				renderTestReport(app, report, showPassed)
			}
			if report.TotalFailed > 0 {
				return silenced(cmd, &ExitError{Code: 1, Err: fmt.Errorf("%d tests failed", report.TotalFailed)})
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showPassed, "passed", false, "list passing test cases too")
	addFormatFlag(cmd, &format)
	return cmd
}

func renderTestReport(app *App, r cargoreport.TestReport, showPassed bool) {
	w := app.stdout
	var rows [][]string
	for _, s := range r.Suites {
		for _, tc := range s.TestCases {
			if tc.Status == cargoreport.StatusPassed && !showPassed {
				continue
			}
			status := tc.Status
			switch tc.Status {
			case cargoreport.StatusFailed:
				status = ErrorStyle.Render(status)
			case cargoreport.StatusSkipped:
				status = WarningStyle.Render(status)
			default:
				status = SuccessStyle.Render(status)
			}
			rows = append(rows, []string{s.Name, tc.Name, status, fmt.Sprintf("%.3fs", tc.TimeSeconds), tc.FailureMessage})
		}
	}
	if len(rows) > 0 {
		fmt.Fprintln(w, renderTable([]string{"Suite", "Test", "Status", "Time", "Message"}, rows))
	}

	summary := fmt.Sprintf("%d tests: %d passed, %d failed, %d skipped in %.2fs",
		r.TotalTests, r.TotalPassed, r.TotalFailed, r.TotalSkipped, r.TotalTimeSeconds)
	if r.TotalFailed > 0 {
		fmt.Fprintln(w, ErrorStyle.Render(summary))
	} else {
		fmt.Fprintln(w, SuccessStyle.Render(summary))
	}
}
