// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cargoscope/cargoscope/internal/cleaner"
)

func newCleanCommand(app *App) *cobra.Command {
	var (
		debugOnly bool
		format    outputFormat
	)
	cmd := &cobra.Command{
		Use:   "clean <paths...>",
		Short: "Delete target directories to free disk space",
		Long: `Remove the target directory of each project. With --debug-only only
target/debug is removed; the freed size is then estimated as half of target/.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := make([]string, 0, len(args))
			for _, a := range args {
				dir, err := requireProject(app, a)
				if err != nil {
					return silenced(cmd, err)
				}
				paths = append(paths, dir)
			}

			results := cleaner.New(cleaner.WithLogger(app.logger)).CleanAll(paths, debugOnly, nil)
			if format.structured() {
				if err := writeStructured(app.stdout, format, results); err != nil {
					return err
				}
			} else {
				renderClean(app, results)
			}

			for _, r := range results {
				if !r.Success {
					return silenced(cmd, &ExitError{Code: 1, Err: fmt.Errorf("failed to clean %s", r.Path)})
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&debugOnly, "debug-only", false, "only remove target/debug")
	addFormatFlag(cmd, &format)
	return cmd
}

func renderClean(app *App, results []cleaner.Result) {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status := checkMark(r.Success)
		if r.Error != "" {
			status += " " + r.Error
		}
		rows = append(rows, []string{r.Name, formatBytes(r.FreedBytes), status})
	}
	fmt.Fprintln(app.stdout, renderTable([]string{"Project", "Freed", "Status"}, rows))
	fmt.Fprintf(app.stdout, "%s %s freed\n", TitleStyle.Render("Total:"), formatBytes(cleaner.TotalFreed(results)))
}
