// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cargoscope/cargoscope/internal/discovery"
	"github.com/cargoscope/cargoscope/internal/issue"
)

type (
	scannedProject struct {
		discovery.Project `yaml:",inline"`
		Favorite          bool `json:"favorite" yaml:"favorite"`
		Hidden            bool `json:"hidden" yaml:"hidden"`
	}

	scanOutput struct {
		Root        string                 `json:"root" yaml:"root"`
		Projects    []scannedProject       `json:"projects" yaml:"projects"`
		Diagnostics []discovery.Diagnostic `json:"diagnostics" yaml:"diagnostics"`
	}

	scanFilter struct {
		all       bool
		favorites bool
	}
)

func newScanCommand(app *App) *cobra.Command {
	var (
		format outputFormat
		filter scanFilter
	)

	cmd := &cobra.Command{
		Use:   "scan [root]",
		Short: "List cargo projects below a directory",
		Long: `Walk root (default: scan_root from the config) up to four levels deep and
list every Cargo.toml found, with dependency count, target/ size and
workspace membership. Hidden projects are left out unless --all is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := scan(cmd.Context(), app, app.scanRoot(args), filter)
			if err != nil {
				return silenced(cmd, err)
			}
			if format.structured() {
				return writeStructured(app.stdout, format, out)
			}
			renderScan(app, out)
			return nil
		},
	}

	addFormatFlag(cmd, &format)
	cmd.Flags().BoolVarP(&filter.all, "all", "a", false, "include hidden projects")
	cmd.Flags().BoolVar(&filter.favorites, "favorites", false, "only list favorite projects")
	return cmd
}

// scan discovers projects under root and applies the favorite/hidden filters.
func scan(ctx context.Context, app *App, root string, filter scanFilter) (scanOutput, error) {
	abs, err := requireScanRoot(app, root)
	if err != nil {
		return scanOutput{}, err
	}

	res := app.discovery().Discover(ctx, abs)
	out := scanOutput{
		Root:        abs,
		Projects:    make([]scannedProject, 0, len(res.Projects)),
		Diagnostics: res.Diagnostics,
	}
	if out.Diagnostics == nil {
		out.Diagnostics = []discovery.Diagnostic{}
	}
	for _, p := range res.Projects {
		sp := scannedProject{Project: p, Favorite: app.cfg.IsFavorite(p.Path), Hidden: app.cfg.IsHidden(p.Path)}
		if sp.Hidden && !filter.all {
			continue
		}
		if filter.favorites && !sp.Favorite {
			continue
		}
		out.Projects = append(out.Projects, sp)
	}
	return out, nil
}

// requireScanRoot returns root as an absolute directory or a rendered issue.
func requireScanRoot(app *App, root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err == nil {
		var info os.FileInfo
		if info, err = os.Stat(abs); err == nil && !info.IsDir() {
			err = fmt.Errorf("%s is not a directory", abs)
		}
	}
	if err != nil {
		renderIssue(app.stderr, issue.ScanRootNotFoundId)
		return "", issue.NewErrorContext().
			WithOperation("scan for projects").
			WithResource(root).
			WithSuggestion("Pass an existing directory or run 'cargoscope config set-root <dir>'").
			Wrap(err).
			BuildError()
	}
	return abs, nil
}

// projectPaths returns explicit args as absolute paths, or every visible
// project under the configured scan root.
func projectPaths(ctx context.Context, app *App, args []string) ([]string, error) {
	if len(args) > 0 {
		paths := make([]string, 0, len(args))
		for _, a := range args {
			abs, err := filepath.Abs(a)
			if err != nil {
				return nil, err
			}
			paths = append(paths, abs)
		}
		return paths, nil
	}

	out, err := scan(ctx, app, app.scanRoot(nil), scanFilter{})
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(out.Projects))
	for i, p := range out.Projects {
		paths[i] = p.Path
	}
	return paths, nil
}

func renderScan(app *App, out scanOutput) {
	w := app.stdout
	fmt.Fprintf(w, "%s %s\n\n", TitleStyle.Render("Projects in"), SubtitleStyle.Render(out.Root))
	if len(out.Projects) == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("No cargo projects found."))
	} else {
		now := app.now()
		rows := make([][]string, 0, len(out.Projects))
		for _, p := range out.Projects {
			name := p.Name
			if p.Favorite {
				name = "★ " + name
			}
			ws := ""
			if p.IsWorkspaceMember {
				ws = filepath.Base(p.WorkspaceRoot)
			}
			rows = append(rows, []string{
				name,
				p.Path,
				strconv.Itoa(p.DepCount),
				formatBytes(p.TargetSize),
				formatAge(p.LastModified, now),
				ws,
			})
		}
		fmt.Fprintln(w, renderTable([]string{"Name", "Path", "Deps", "Target", "Modified", "Workspace"}, rows))

		var total uint64
		for _, p := range out.Projects {
			total += p.TargetSize
		}
		fmt.Fprintf(w, "%d projects, %s in target directories\n", len(out.Projects), formatBytes(total))
	}

	if len(out.Diagnostics) > 0 {
		fmt.Fprintln(app.stderr, WarningStyle.Render(fmt.Sprintf("%d discovery warnings", len(out.Diagnostics))))
		if app.verbose {
			for _, d := range out.Diagnostics {
				fmt.Fprintf(app.stderr, "  %s %s\n", VerboseStyle.Render(d.Path), d.Message)
			}
		}
	}
}
