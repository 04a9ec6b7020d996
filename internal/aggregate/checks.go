// SPDX-License-Identifier: MPL-2.0

package aggregate

import (
	"context"
	"fmt"
	"strings"

	"github.com/cargoscope/cargoscope/internal/runtime"
	"github.com/cargoscope/cargoscope/pkg/cargoreport"
)

type (
	// OutdatedResult is the per-project outcome of `cargo outdated`.
	OutdatedResult struct {
		ProjectPath  string                    `json:"project_path" yaml:"project_path"`
		ProjectName  string                    `json:"project_name" yaml:"project_name"`
		Dependencies []cargoreport.OutdatedDep `json:"dependencies" yaml:"dependencies"`
		Success      bool                      `json:"success" yaml:"success"`
		Error        string                    `json:"error,omitempty" yaml:"error,omitempty"`
	}

	// AuditResult is the per-project outcome of `cargo audit`.
	AuditResult struct {
		ProjectPath     string                      `json:"project_path" yaml:"project_path"`
		ProjectName     string                      `json:"project_name" yaml:"project_name"`
		Vulnerabilities []cargoreport.Vulnerability `json:"vulnerabilities" yaml:"vulnerabilities"`
		Warnings        []cargoreport.AuditWarning  `json:"warnings" yaml:"warnings"`
		Success         bool                        `json:"success" yaml:"success"`
		Error           string                      `json:"error,omitempty" yaml:"error,omitempty"`
	}
)

// CheckOutdated runs `cargo outdated --root-deps-only` in every project.
func CheckOutdated(ctx context.Context, runner Runner, projectPaths []string) []OutdatedResult {
	return fanOut(ctx, projectPaths, func(ctx context.Context, projectPath string) OutdatedResult {
		res := OutdatedResult{
			ProjectPath:  projectPath,
			ProjectName:  DisplayName(projectPath),
			Dependencies: []cargoreport.OutdatedDep{},
		}
		out := runner.Run(ctx, runtime.Cargo(projectPath, "outdated", "--format", "json", "--root-deps-only"))
		if !out.Success {
			res.Error = runFailure("cargo outdated", out)
			return res
		}
		deps, err := cargoreport.DecodeOutdated([]byte(out.Stdout))
		if err != nil {
			res.Error = fmt.Sprintf("failed to parse output: %v", err)
			return res
		}
		res.Dependencies = deps
		res.Success = true
		return res
	})
}

// CheckAudits runs `cargo audit --json` in every project. cargo-audit exits
// non-zero when it finds vulnerabilities, so the exit status is ignored as
// long as stdout decodes.
func CheckAudits(ctx context.Context, runner Runner, projectPaths []string) []AuditResult {
	return fanOut(ctx, projectPaths, func(ctx context.Context, projectPath string) AuditResult {
		res := AuditResult{
			ProjectPath:     projectPath,
			ProjectName:     DisplayName(projectPath),
			Vulnerabilities: []cargoreport.Vulnerability{},
			Warnings:        []cargoreport.AuditWarning{},
		}
		out := runner.Run(ctx, runtime.Cargo(projectPath, "audit", "--json"))
		if out.ExitCode == nil && out.Stdout == "" {
			res.Error = runFailure("cargo audit", out)
			return res
		}
		report, err := cargoreport.DecodeAudit([]byte(out.Stdout))
		if err != nil {
			res.Error = fmt.Sprintf("%v. Stderr: %s", err, strings.TrimSpace(out.Stderr))
			return res
		}
		res.Vulnerabilities = report.Vulnerabilities
		res.Warnings = report.Warnings
		res.Success = true
		return res
	})
}

func runFailure(tool string, out *runtime.Result) string {
	msg := strings.TrimSpace(out.Stderr)
	if out.ExitCode == nil {
		return fmt.Sprintf("failed to run %s: %s", tool, msg)
	}
	return msg
}
