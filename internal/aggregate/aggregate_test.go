// SPDX-License-Identifier: MPL-2.0

package aggregate

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargoscope/cargoscope/internal/runtime"
	"github.com/cargoscope/cargoscope/internal/testutil"
	"github.com/cargoscope/cargoscope/pkg/cargoreport"
)

type (
	// fakeRunner answers invocations keyed by "<dir> <args...>".
	fakeRunner struct {
		mu      sync.Mutex
		results map[string]*runtime.Result
		calls   []string
	}

	fakeLicenses map[string][]cargoreport.LicenseInfo
)

func (f *fakeRunner) Run(_ context.Context, inv runtime.Invocation) *runtime.Result {
	key := inv.Dir + " " + strings.Join(inv.Args, " ")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, key)
	if res, ok := f.results[key]; ok {
		return res
	}
	return &runtime.Result{Stderr: "Failed to execute command: not found"}
}

func (f fakeLicenses) Licenses(_ context.Context, projectPath string) ([]cargoreport.LicenseInfo, error) {
	lic, ok := f[projectPath]
	if !ok {
		return nil, errors.New("cargo-license not installed")
	}
	return lic, nil
}

func exitCode(code int) *int { return &code }

func TestAnalyzeDependencies_VersionMismatch(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	alpha := filepath.Join(root, "alpha")
	beta := filepath.Join(root, "beta")
	testutil.WriteCrate(t, alpha, testutil.CrateSpec{Name: "alpha", Deps: map[string]string{
		"serde": `"1.0"`,
		"log":   `{ version = "0.4", features = ["std"] }`,
		"local": `{ path = "../local" }`,
	}})
	testutil.WriteCrate(t, beta, testutil.CrateSpec{Name: "beta", Deps: map[string]string{
		"serde": `"1.2"`,
		"log":   `"0.4"`,
		"git":   `{ git = "https://example.com/git.git" }`,
	}})

	report := AnalyzeDependencies(context.Background(), []string{alpha, beta})

	assert.Equal(t, 2, report.TotalUniqueDeps)
	assert.Equal(t, 1, report.DepsWithMismatches)
	require.Len(t, report.Dependencies, 2)

	// Equal counts: ordered by name.
	assert.Equal(t, "log", report.Dependencies[0].Name)
	assert.False(t, report.Dependencies[0].HasMismatch())
	assert.Equal(t, []VersionUsage{{Version: "0.4", Projects: []string{"alpha", "beta"}}}, report.Dependencies[0].Versions)

	serde := report.Dependencies[1]
	assert.Equal(t, "serde", serde.Name)
	assert.Equal(t, 2, serde.ProjectCount)
	assert.Equal(t, []VersionUsage{
		{Version: "1.2", Projects: []string{"beta"}},
		{Version: "1.0", Projects: []string{"alpha"}},
	}, serde.Versions)

	mismatched := report.Mismatched()
	require.Len(t, mismatched, 1)
	assert.Equal(t, "serde", mismatched[0].Name)
}

func TestAnalyzeDependencies_OrderAndDedup(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	var paths []string
	for i, name := range []string{"a", "b", "c"} {
		dir := filepath.Join(root, name)
		deps := map[string]string{"anyhow": `"1"`}
		if i == 0 {
			deps["rare"] = `"0.1"`
		}
		testutil.WriteCrate(t, dir, testutil.CrateSpec{
			Name:    name,
			Deps:    deps,
			DevDeps: map[string]string{"anyhow": `"1"`},
		})
		paths = append(paths, dir)
	}
	// Unreadable projects are skipped.
	paths = append(paths, filepath.Join(root, "missing"))

	report := AnalyzeDependencies(context.Background(), paths)

	require.Len(t, report.Dependencies, 2)
	assert.Equal(t, "anyhow", report.Dependencies[0].Name)
	assert.Equal(t, 3, report.Dependencies[0].ProjectCount, "a project counts once per version")
	assert.Equal(t, "rare", report.Dependencies[1].Name)
	assert.Zero(t, report.DepsWithMismatches)
}

func TestAnalyzeDependencies_Deterministic(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	var paths []string
	for _, name := range []string{"one", "two"} {
		dir := filepath.Join(root, name)
		testutil.WriteCrate(t, dir, testutil.CrateSpec{Name: name, Deps: map[string]string{
			"zeta": `"1"`, "alpha": `"1"`, "mid": `"1"`,
		}})
		paths = append(paths, dir)
	}

	first := AnalyzeDependencies(context.Background(), paths)
	for range 5 {
		assert.Equal(t, first, AnalyzeDependencies(context.Background(), paths))
	}
	names := make([]string, len(first.Dependencies))
	for i, d := range first.Dependencies {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)
}

func TestCompareVersionsDesc(t *testing.T) {
	t.Parallel()

	versions := []string{"0.9", "workspace-x", "^1.10.0", "1.2", "=1.2.3", "*"}
	slices.SortFunc(versions, compareVersionsDesc)
	assert.Equal(t, []string{"^1.10.0", "=1.2.3", "1.2", "0.9", "workspace-x", "*"}, versions)
}

func TestAnalyzeToolchains(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	pinned := filepath.Join(root, "pinned")
	legacy := filepath.Join(root, "legacy")
	bare := filepath.Join(root, "bare")

	testutil.WriteCrate(t, pinned, testutil.CrateSpec{Name: "pinned", RustVersion: "1.70"})
	testutil.MustWriteFile(t, filepath.Join(pinned, "rust-toolchain.toml"), "[toolchain]\nchannel = \"1.75.0\"\n")
	testutil.WriteCrate(t, legacy, testutil.CrateSpec{Name: "legacy", RustVersion: "1.70"})
	testutil.MustWriteFile(t, filepath.Join(legacy, "rust-toolchain"), "  nightly-2024-01-01\n")
	testutil.WriteCrate(t, bare, testutil.CrateSpec{Name: "bare"})

	report := AnalyzeToolchains(context.Background(), []string{pinned, legacy, bare})

	require.Len(t, report.Projects, 3)
	assert.Equal(t, ToolchainInfo{
		ProjectPath: pinned, ProjectName: "pinned", Toolchain: "1.75.0", Channel: "1.75.0", MSRV: "1.70",
	}, report.Projects[0])
	assert.Equal(t, "nightly-2024-01-01", report.Projects[1].Toolchain)
	assert.Empty(t, report.Projects[2].Toolchain)
	assert.Empty(t, report.Projects[2].MSRV)

	assert.Equal(t, []ToolchainGroup{
		{Version: "1.75.0", Projects: []string{"pinned"}},
		{Version: "nightly-2024-01-01", Projects: []string{"legacy"}},
	}, report.ToolchainGroups)
	assert.Equal(t, []ToolchainGroup{{Version: "1.70", Projects: []string{"pinned", "legacy"}}}, report.MSRVGroups)
	assert.True(t, report.HasMismatches)
}

func TestAnalyzeToolchains_AbsentValuesAreNoMismatch(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	a := filepath.Join(root, "a")
	b := filepath.Join(root, "b")
	testutil.WriteCrate(t, a, testutil.CrateSpec{Name: "a", RustVersion: "1.74"})
	testutil.WriteCrate(t, b, testutil.CrateSpec{Name: "b"})

	report := AnalyzeToolchains(context.Background(), []string{a, b})

	assert.Empty(t, report.ToolchainGroups)
	assert.Len(t, report.MSRVGroups, 1)
	assert.False(t, report.HasMismatches)
}

func TestIsProblematicLicense(t *testing.T) {
	t.Parallel()

	tests := []struct {
		license string
		want    bool
	}{
		{"MIT", false},
		{"MIT OR Apache-2.0", false},
		{"GPL-3.0", true},
		{"lgpl-2.1-or-later", true},
		{"MIT OR AGPL-3.0", true},
		{"CC-BY-SA-4.0", true},
		{"BUSL-1.1", true},
		{"elastic-2.0", true},
		{"Apache-2.0 WITH Commons Clause", true},
		{"Unknown", false},
	}
	for _, tt := range tests {
		t.Run(tt.license, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsProblematicLicense(tt.license))
		})
	}
}

func TestAnalyzeLicenses(t *testing.T) {
	t.Parallel()

	source := fakeLicenses{
		"/p/one": {
			{Name: "serde", Version: "1.0.0", License: "MIT OR Apache-2.0"},
			{Name: "readline", Version: "2.0.0", License: "GPL-3.0"},
		},
		"/p/two": {
			{Name: "serde", Version: "1.0.0", License: "MIT OR Apache-2.0"},
			{Name: "anyhow", Version: "1.0.0", License: "MIT OR Apache-2.0"},
			{Name: "itoa", Version: "1.0.0", License: "MIT"},
		},
	}

	report := AnalyzeLicenses(context.Background(), []string{"/p/one", "/p/broken", "/p/two"}, source)

	require.Len(t, report.Projects, 3)
	assert.Equal(t, "one", report.Projects[0].ProjectName)
	assert.True(t, report.Projects[0].Success)
	assert.False(t, report.Projects[1].Success)
	assert.Equal(t, "cargo-license not installed", report.Projects[1].Error)
	assert.NotNil(t, report.Projects[1].Licenses)

	assert.Equal(t, []LicenseGroup{
		{License: "GPL-3.0", Packages: []string{"readline@2.0.0"}, IsProblematic: true},
		{License: "MIT OR Apache-2.0", Packages: []string{"anyhow@1.0.0", "serde@1.0.0"}},
		{License: "MIT", Packages: []string{"itoa@1.0.0"}},
	}, report.LicenseGroups)
	assert.Equal(t, 4, report.TotalPackages)
	assert.Equal(t, 1, report.ProblematicCount)
}

func TestCargoLicenseSource(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{results: map[string]*runtime.Result{
		"/ok license --json": {
			Success:  true,
			Stdout:   `[{"name":"serde","version":"1.0.0","authors":null,"repository":null,"license":null}]`,
			ExitCode: exitCode(0),
		},
		"/garbage license --json": {Stdout: "not json", Stderr: "boom\n", ExitCode: exitCode(1)},
	}}
	source := CargoLicenseSource{Runner: runner}

	licenses, err := source.Licenses(context.Background(), "/ok")
	require.NoError(t, err)
	assert.Equal(t, []cargoreport.LicenseInfo{{Name: "serde", Version: "1.0.0", License: cargoreport.UnknownLicense}}, licenses)

	_, err = source.Licenses(context.Background(), "/garbage")
	require.Error(t, err)
	assert.ErrorIs(t, err, cargoreport.ErrDecode)
	assert.Contains(t, err.Error(), "Stderr: boom")

	_, err = source.Licenses(context.Background(), "/absent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to run cargo-license")
}

func TestCheckOutdated(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{results: map[string]*runtime.Result{
		"/a outdated --format json --root-deps-only": {
			Success:  true,
			ExitCode: exitCode(0),
			Stdout: `{"dependencies":[
				{"name":"rand","project":"0.7.3","latest":"0.8.5","kind":"Normal"},
				{"name":"log","project":"0.4.20","latest":"0.4.20"}]}`,
		},
		"/b outdated --format json --root-deps-only": {Stderr: "error: no such command: `outdated`\n", ExitCode: exitCode(101)},
		"/c outdated --format json --root-deps-only": {Success: true, ExitCode: exitCode(0), Stdout: "{}"},
	}}

	results := CheckOutdated(context.Background(), runner, []string{"/a", "/b", "/c", "/d"})

	require.Len(t, results, 4)
	assert.True(t, results[0].Success)
	assert.Equal(t, []cargoreport.OutdatedDep{{Name: "rand", Current: "0.7.3", Latest: "0.8.5", Kind: "Normal"}}, results[0].Dependencies)

	assert.False(t, results[1].Success)
	assert.Equal(t, "error: no such command: `outdated`", results[1].Error)

	assert.False(t, results[2].Success)
	assert.Contains(t, results[2].Error, "failed to parse output")

	assert.False(t, results[3].Success)
	assert.Equal(t, "failed to run cargo outdated: Failed to execute command: not found", results[3].Error)
	assert.Equal(t, "d", results[3].ProjectName)
}

func TestCheckAudits(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{results: map[string]*runtime.Result{
		// cargo-audit exits 1 when it finds something.
		"/vuln audit --json": {ExitCode: exitCode(1), Stdout: `{
			"vulnerabilities": {"list": [{
				"advisory": {"id":"RUSTSEC-2020-0071","title":"t","description":"d"},
				"package": {"name":"time","version":"0.1.45"}}]},
			"warnings": {"yanked": [{"kind":"yanked","package":{"name":"x","version":"1.0.0"},"advisory":{"id":"","title":""}}]}}`},
		"/clean audit --json": {Success: true, ExitCode: exitCode(0), Stdout: `{"vulnerabilities":{"list":[]}}`},
	}}

	results := CheckAudits(context.Background(), runner, []string{"/vuln", "/clean", "/none"})

	require.Len(t, results, 3)
	assert.True(t, results[0].Success)
	require.Len(t, results[0].Vulnerabilities, 1)
	assert.Equal(t, "RUSTSEC-2020-0071", results[0].Vulnerabilities[0].ID)
	require.Len(t, results[0].Warnings, 1)
	assert.Equal(t, "yanked", results[0].Warnings[0].Kind)

	assert.True(t, results[1].Success)
	assert.Empty(t, results[1].Vulnerabilities)

	assert.False(t, results[2].Success)
	assert.Contains(t, results[2].Error, "failed to run cargo audit")
}

func TestFanOut_KeepsOrder(t *testing.T) {
	t.Parallel()

	paths := make([]string, 25)
	for i := range paths {
		paths[i] = filepath.Join("/p", strings.Repeat("x", i+1))
	}
	got := fanOut(context.Background(), paths, func(_ context.Context, p string) string { return DisplayName(p) })
	for i, name := range got {
		assert.Len(t, name, i+1)
	}
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "crate", DisplayName("/home/me/crate"))
	assert.Equal(t, "crate", DisplayName("/home/me/crate/"))
	assert.Equal(t, "/", DisplayName("/"))
}
