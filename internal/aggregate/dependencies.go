// SPDX-License-Identifier: MPL-2.0

package aggregate

import (
	"cmp"
	"context"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/cargoscope/cargoscope/pkg/cargotoml"
)

type (
	// VersionUsage lists the projects requiring one exact version string.
	VersionUsage struct {
		Version  string   `json:"version" yaml:"version"`
		Projects []string `json:"projects" yaml:"projects"`
	}

	// DependencyUsage groups every versioned declaration of one dependency.
	DependencyUsage struct {
		Name     string         `json:"name" yaml:"name"`
		Versions []VersionUsage `json:"versions" yaml:"versions"`
		// ProjectCount is the number of consumers summed over all versions.
		ProjectCount int `json:"project_count" yaml:"project_count"`
	}

	// DependencyReport is the result of AnalyzeDependencies.
	DependencyReport struct {
		Dependencies       []DependencyUsage `json:"dependencies" yaml:"dependencies"`
		TotalUniqueDeps    int               `json:"total_unique_deps" yaml:"total_unique_deps"`
		DepsWithMismatches int               `json:"deps_with_mismatches" yaml:"deps_with_mismatches"`
	}
)

// HasMismatch reports whether the dependency is required at more than one
// version string.
func (u DependencyUsage) HasMismatch() bool {
	return len(u.Versions) > 1
}

// Mismatched returns only the dependencies with a version mismatch.
func (r DependencyReport) Mismatched() []DependencyUsage {
	var out []DependencyUsage
	for _, d := range r.Dependencies {
		if d.HasMismatch() {
			out = append(out, d)
		}
	}
	return out
}

// AnalyzeDependencies groups the normal, dev and build dependencies of every
// project by name and exact version requirement. Path and git dependencies
// without a version are left out. Projects whose manifest cannot be read are
// skipped.
//
// A project counts once per (name, version) pair, so declaring the same
// requirement in both [dependencies] and [dev-dependencies] does not raise
// ProjectCount.
//
// Dependencies are ordered by consumer count, most used first, then by name.
func AnalyzeDependencies(ctx context.Context, projectPaths []string) DependencyReport {
	// name -> version -> consuming projects in input order
	grouped := make(map[string]map[string][]string)

	for _, projectPath := range projectPaths {
		if ctx.Err() != nil {
			break
		}
		manifest, err := cargotoml.ParseFile(filepath.Join(projectPath, cargotoml.ManifestFileName))
		if err != nil {
			continue
		}
		name := DisplayName(projectPath)
		seen := make(map[[2]string]bool)

		for _, dep := range manifest.AllDependencies() {
			if !dep.Versioned {
				continue
			}
			key := [2]string{dep.Name, dep.Version}
			if seen[key] {
				continue
			}
			seen[key] = true

			versions, ok := grouped[dep.Name]
			if !ok {
				versions = make(map[string][]string)
				grouped[dep.Name] = versions
			}
			versions[dep.Version] = append(versions[dep.Version], name)
		}
	}

	report := DependencyReport{Dependencies: make([]DependencyUsage, 0, len(grouped))}
	for depName, versions := range grouped {
		usage := DependencyUsage{Name: depName, Versions: make([]VersionUsage, 0, len(versions))}
		for version, projects := range versions {
			usage.Versions = append(usage.Versions, VersionUsage{Version: version, Projects: projects})
			usage.ProjectCount += len(projects)
		}
		slices.SortFunc(usage.Versions, func(a, b VersionUsage) int {
			return compareVersionsDesc(a.Version, b.Version)
		})
		report.Dependencies = append(report.Dependencies, usage)
	}

	slices.SortFunc(report.Dependencies, func(a, b DependencyUsage) int {
		return cmp.Or(
			cmp.Compare(b.ProjectCount, a.ProjectCount),
			strings.Compare(a.Name, b.Name),
		)
	})

	report.TotalUniqueDeps = len(report.Dependencies)
	for _, d := range report.Dependencies {
		if d.HasMismatch() {
			report.DepsWithMismatches++
		}
	}
	return report
}

// compareVersionsDesc orders newer requirements first. Requirements that are
// plain semver (optionally with a leading "=" or "^") compare by precedence;
// anything else falls back to reverse lexical order after them.
func compareVersionsDesc(a, b string) int {
	va, okA := canonicalSemver(a)
	vb, okB := canonicalSemver(b)
	switch {
	case okA && okB:
		if c := semver.Compare(vb, va); c != 0 {
			return c
		}
	case okA:
		return -1
	case okB:
		return 1
	}
	return strings.Compare(b, a)
}

func canonicalSemver(req string) (string, bool) {
	v := "v" + strings.TrimLeft(strings.TrimSpace(req), "=^")
	if !semver.IsValid(v) {
		return "", false
	}
	return v, true
}
