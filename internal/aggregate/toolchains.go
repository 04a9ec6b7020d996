// SPDX-License-Identifier: MPL-2.0

package aggregate

import (
	"cmp"
	"context"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cargoscope/cargoscope/pkg/cargotoml"
)

type (
	// ToolchainInfo is what one project pins. Empty fields were not declared.
	ToolchainInfo struct {
		ProjectPath string `json:"project_path" yaml:"project_path"`
		ProjectName string `json:"project_name" yaml:"project_name"`
		Toolchain   string `json:"toolchain,omitempty" yaml:"toolchain,omitempty"`
		Channel     string `json:"channel,omitempty" yaml:"channel,omitempty"`
		MSRV        string `json:"msrv,omitempty" yaml:"msrv,omitempty"`
	}

	// ToolchainGroup lists the projects sharing one toolchain or MSRV value.
	ToolchainGroup struct {
		Version  string   `json:"version" yaml:"version"`
		Projects []string `json:"projects" yaml:"projects"`
	}

	// ToolchainReport is the result of AnalyzeToolchains.
	ToolchainReport struct {
		Projects        []ToolchainInfo  `json:"projects" yaml:"projects"`
		ToolchainGroups []ToolchainGroup `json:"toolchain_groups" yaml:"toolchain_groups"`
		MSRVGroups      []ToolchainGroup `json:"msrv_groups" yaml:"msrv_groups"`
		// HasMismatches is true iff either table has more than one value.
		// Projects that pin nothing do not count.
		HasMismatches bool `json:"has_mismatches" yaml:"has_mismatches"`
	}
)

// AnalyzeToolchains reads the pinned toolchain (rust-toolchain.toml, then the
// legacy rust-toolchain file) and the manifest rust-version of every project
// and groups projects by each value independently.
func AnalyzeToolchains(ctx context.Context, projectPaths []string) ToolchainReport {
	report := ToolchainReport{Projects: make([]ToolchainInfo, 0, len(projectPaths))}
	toolchains := make(map[string][]string)
	msrvs := make(map[string][]string)

	for _, projectPath := range projectPaths {
		if ctx.Err() != nil {
			break
		}
		info := ToolchainInfo{ProjectPath: projectPath, ProjectName: DisplayName(projectPath)}

		if channel, ok := cargotoml.ReadPinnedToolchain(projectPath); ok {
			info.Toolchain = channel
			info.Channel = channel
			toolchains[channel] = append(toolchains[channel], info.ProjectName)
		}
		if manifest, err := cargotoml.ParseFile(filepath.Join(projectPath, cargotoml.ManifestFileName)); err == nil {
			if msrv := manifest.MSRV().MSRV; msrv != "" {
				info.MSRV = msrv
				msrvs[msrv] = append(msrvs[msrv], info.ProjectName)
			}
		}
		report.Projects = append(report.Projects, info)
	}

	report.ToolchainGroups = toGroups(toolchains)
	report.MSRVGroups = toGroups(msrvs)
	report.HasMismatches = len(report.ToolchainGroups) > 1 || len(report.MSRVGroups) > 1
	return report
}

func toGroups(table map[string][]string) []ToolchainGroup {
	groups := make([]ToolchainGroup, 0, len(table))
	for version, projects := range table {
		groups = append(groups, ToolchainGroup{Version: version, Projects: projects})
	}
	slices.SortFunc(groups, func(a, b ToolchainGroup) int {
		return cmp.Or(
			cmp.Compare(len(b.Projects), len(a.Projects)),
			strings.Compare(a.Version, b.Version),
		)
	})
	return groups
}
