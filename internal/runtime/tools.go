// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"

	"golang.org/x/sync/errgroup"
)

type (
	// Tool is a cargo subcommand plugin cargoscope can make use of.
	Tool struct {
		Name        string `json:"name" yaml:"name"`
		Subcommand  string `json:"command" yaml:"command"`
		InstallCmd  string `json:"install_cmd" yaml:"install_cmd"`
		Description string `json:"description" yaml:"description"`
	}

	// ToolStatus is a Tool plus whether it responded to --help.
	ToolStatus struct {
		Tool      `yaml:",inline"`
		Installed bool `json:"installed" yaml:"installed"`
	}
)

// KnownTools lists the cargo plugins used by fleet checks and reports.
var KnownTools = []Tool{
	{"cargo-outdated", "outdated", "cargo install cargo-outdated", "Check for outdated dependencies"},
	{"cargo-edit", "upgrade", "cargo install cargo-edit", "Upgrade dependencies in Cargo.toml"},
	{"cargo-audit", "audit", "cargo install cargo-audit", "Security vulnerability scanner"},
	{"cargo-license", "license", "cargo install cargo-license", "Check dependency licenses"},
	{"cargo-bloat", "bloat", "cargo install cargo-bloat", "Analyze binary size and bloat"},
	{"cargo-tarpaulin", "tarpaulin", "cargo install cargo-tarpaulin", "Code coverage reporting"},
	{"cargo-nextest", "nextest", "cargo install --locked cargo-nextest", "Next-generation test runner with JUnit output"},
}

// CheckTools probes every tool with `cargo <subcommand> --help` concurrently.
// Results keep the order of tools.
func (m *Manager) CheckTools(ctx context.Context, tools []Tool) []ToolStatus {
	out := make([]ToolStatus, len(tools))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, tool := range tools {
		g.Go(func() error {
			res := m.Run(gctx, Cargo("", tool.Subcommand, "--help"))
			out[i] = ToolStatus{Tool: tool, Installed: res.Success}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
