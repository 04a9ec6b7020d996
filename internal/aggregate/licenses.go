// SPDX-License-Identifier: MPL-2.0

package aggregate

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/cargoscope/cargoscope/internal/runtime"
	"github.com/cargoscope/cargoscope/pkg/cargoreport"
)

// problematicLicenses are tokens of copyleft or otherwise restrictive
// licenses. Matching is a case-insensitive substring test, so "LGPL-2.1"
// and "MIT OR GPL-3.0" are both flagged.
var problematicLicenses = []string{
	"GPL",
	"AGPL",
	"LGPL",
	"CC-BY-SA",
	"CC-BY-NC",
	"SSPL",
	"BSL",
	"BUSL",
	"Elastic",
	"Commons Clause",
}

type (
	// LicenseSource yields the license of every package in a project's
	// dependency graph.
	LicenseSource interface {
		Licenses(ctx context.Context, projectPath string) ([]cargoreport.LicenseInfo, error)
	}

	// CargoLicenseSource runs `cargo license --json` in the project.
	CargoLicenseSource struct {
		Runner Runner
	}

	// LicenseResult is the per-project outcome of a license scan.
	LicenseResult struct {
		ProjectPath string                    `json:"project_path" yaml:"project_path"`
		ProjectName string                    `json:"project_name" yaml:"project_name"`
		Licenses    []cargoreport.LicenseInfo `json:"licenses" yaml:"licenses"`
		Success     bool                      `json:"success" yaml:"success"`
		Error       string                    `json:"error,omitempty" yaml:"error,omitempty"`
	}

	// LicenseGroup lists the deduplicated name@version packages under one
	// license expression.
	LicenseGroup struct {
		License       string   `json:"license" yaml:"license"`
		Packages      []string `json:"packages" yaml:"packages"`
		IsProblematic bool     `json:"is_problematic" yaml:"is_problematic"`
	}

	// LicenseReport is the result of AnalyzeLicenses.
	LicenseReport struct {
		Projects         []LicenseResult `json:"projects" yaml:"projects"`
		LicenseGroups    []LicenseGroup  `json:"license_groups" yaml:"license_groups"`
		TotalPackages    int             `json:"total_packages" yaml:"total_packages"`
		ProblematicCount int             `json:"problematic_count" yaml:"problematic_count"`
	}
)

// Licenses implements LicenseSource. stdout is decoded even when cargo exits
// non-zero, since cargo-license reports partial graphs that way.
func (s CargoLicenseSource) Licenses(ctx context.Context, projectPath string) ([]cargoreport.LicenseInfo, error) {
	res := s.Runner.Run(ctx, runtime.Cargo(projectPath, "license", "--json"))
	if res.ExitCode == nil && !res.Success && res.Stdout == "" {
		return nil, fmt.Errorf("failed to run cargo-license: %s", res.Stderr)
	}
	licenses, err := cargoreport.DecodeLicenses([]byte(res.Stdout))
	if err != nil {
		return nil, fmt.Errorf("%w. Stderr: %s", err, strings.TrimSpace(res.Stderr))
	}
	return licenses, nil
}

// IsProblematicLicense reports whether license contains any denylisted token.
func IsProblematicLicense(license string) bool {
	upper := strings.ToUpper(license)
	for _, token := range problematicLicenses {
		if strings.Contains(upper, strings.ToUpper(token)) {
			return true
		}
	}
	return false
}

// AnalyzeLicenses scans every project through source and groups the packages
// of the successful scans by license. Groups are ordered problematic first,
// then by package count, then by license.
func AnalyzeLicenses(ctx context.Context, projectPaths []string, source LicenseSource) LicenseReport {
	projects := fanOut(ctx, projectPaths, func(ctx context.Context, projectPath string) LicenseResult {
		res := LicenseResult{
			ProjectPath: projectPath,
			ProjectName: DisplayName(projectPath),
			Licenses:    []cargoreport.LicenseInfo{},
		}
		licenses, err := source.Licenses(ctx, projectPath)
		if err != nil {
			res.Error = err.Error()
			return res
		}
		res.Licenses = licenses
		res.Success = true
		return res
	})

	buckets := make(map[string][]string)
	for _, proj := range projects {
		if !proj.Success {
			continue
		}
		for _, lic := range proj.Licenses {
			buckets[lic.License] = append(buckets[lic.License], lic.Name+"@"+lic.Version)
		}
	}

	report := LicenseReport{Projects: projects, LicenseGroups: make([]LicenseGroup, 0, len(buckets))}
	for license, packages := range buckets {
		slices.Sort(packages)
		report.LicenseGroups = append(report.LicenseGroups, LicenseGroup{
			License:       license,
			Packages:      slices.Compact(packages),
			IsProblematic: IsProblematicLicense(license),
		})
	}
	slices.SortFunc(report.LicenseGroups, func(a, b LicenseGroup) int {
		return cmp.Or(
			compareBoolDesc(a.IsProblematic, b.IsProblematic),
			cmp.Compare(len(b.Packages), len(a.Packages)),
			strings.Compare(a.License, b.License),
		)
	})

	for _, g := range report.LicenseGroups {
		report.TotalPackages += len(g.Packages)
		if g.IsProblematic {
			report.ProblematicCount += len(g.Packages)
		}
	}
	return report
}

func compareBoolDesc(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return -1
	default:
		return 1
	}
}
