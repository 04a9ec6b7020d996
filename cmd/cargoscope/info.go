// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cargoscope/cargoscope/internal/discovery"
	"github.com/cargoscope/cargoscope/pkg/cargotoml"
)

type projectInfo struct {
	Name       string                  `json:"name" yaml:"name"`
	Path       string                  `json:"path" yaml:"path"`
	Version    string                  `json:"version,omitempty" yaml:"version,omitempty"`
	MSRV       cargotoml.MSRVInfo      `json:"msrv" yaml:"msrv"`
	Toolchain  string                  `json:"toolchain,omitempty" yaml:"toolchain,omitempty"`
	Workspace  discovery.WorkspaceInfo `json:"workspace" yaml:"workspace"`
	Features   cargotoml.Features      `json:"features" yaml:"features"`
	Binaries   discovery.BinarySizes   `json:"binaries" yaml:"binaries"`
	TargetSize uint64                  `json:"target_size" yaml:"target_size"`
	Favorite   bool                    `json:"favorite" yaml:"favorite"`
	Hidden     bool                    `json:"hidden" yaml:"hidden"`
}

func newInfoCommand(app *App) *cobra.Command {
	var format outputFormat
	cmd := &cobra.Command{
		Use:   "info <path>",
		Short: "Show workspace, MSRV, features and build sizes of one project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := requireProject(app, args[0])
			if err != nil {
				return silenced(cmd, err)
			}
			info, err := inspectProject(app, dir)
			if err != nil {
				return err
			}
			if format.structured() {
				return writeStructured(app.stdout, format, info)
			}
			renderInfo(app, info)
			return nil
		},
	}
	addFormatFlag(cmd, &format)
	return cmd
}

func inspectProject(app *App, dir string) (projectInfo, error) {
	m, err := cargotoml.ParseFile(filepath.Join(dir, cargotoml.ManifestFileName))
	if err != nil {
		return projectInfo{}, err
	}

	d := app.discovery()
	info := projectInfo{
		Name:       m.Name(),
		Path:       dir,
		MSRV:       m.MSRV(),
		Workspace:  d.WorkspaceInfo(dir),
		Features:   m.FeatureSet(),
		Binaries:   d.BinarySizes(dir),
		TargetSize: discovery.DirSize(filepath.Join(dir, discovery.BuildDirName)),
		Favorite:   app.cfg.IsFavorite(dir),
		Hidden:     app.cfg.IsHidden(dir),
	}
	if m.Package != nil {
		info.Version = m.Package.Version
	}
	if tc, ok := cargotoml.ReadPinnedToolchain(dir); ok {
		info.Toolchain = tc
	}
	return info, nil
}

func renderInfo(app *App, info projectInfo) {
	w := app.stdout
	title := TitleStyle.Render(info.Name)
	if info.Version != "" {
		title += " " + CmdStyle.Render(info.Version)
	}
	if info.Favorite {
		title += " ★"
	}
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, SubtitleStyle.Render(info.Path))
	fmt.Fprintln(w)

	field := func(label, value string) {
		if value == "" {
			value = SubtitleStyle.Render("-")
		}
		fmt.Fprintf(w, "  %-14s %s\n", label, value)
	}
	field("Edition", info.MSRV.Edition)
	field("rust-version", info.MSRV.MSRV)
	field("Toolchain", info.Toolchain)
	field("Target size", formatBytes(info.TargetSize))

	switch {
	case info.Workspace.IsWorkspace:
		names := make([]string, len(info.Workspace.Members))
		for i, m := range info.Workspace.Members {
			names[i] = m.Name
		}
		field("Workspace", fmt.Sprintf("root of %d members: %s", len(names), strings.Join(names, ", ")))
	case info.Workspace.IsMemberOfWorkspace:
		field("Workspace", fmt.Sprintf("member of %s (%s)", info.Workspace.ParentWorkspaceName, info.Workspace.ParentWorkspacePath))
	default:
		field("Workspace", "")
	}

	if len(info.Features.Features) > 0 || len(info.Features.DefaultFeatures) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s default = [%s]\n", TitleStyle.Render("Features"), strings.Join(info.Features.DefaultFeatures, ", "))
		for _, f := range info.Features.Features {
			marker := " "
			if f.IsDefault {
				marker = SuccessStyle.Render("•")
			}
			fmt.Fprintf(w, "  %s %s = [%s]\n", marker, f.Name, strings.Join(f.Dependencies, ", "))
		}
	}

	if len(info.Binaries.Binaries) > 0 {
		fmt.Fprintln(w)
		rows := make([][]string, 0, len(info.Binaries.Binaries))
		for _, b := range info.Binaries.Binaries {
			rows = append(rows, []string{b.Name, optionalBytes(b.DebugSize), optionalBytes(b.ReleaseSize)})
		}
		fmt.Fprintln(w, renderTable([]string{"Binary", "Debug", "Release"}, rows))
	}
}

func optionalBytes(n *uint64) string {
	if n == nil {
		return "-"
	}
	return formatBytes(*n)
}
