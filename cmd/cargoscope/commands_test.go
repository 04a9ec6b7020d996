// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/cargoscope/cargoscope/internal/cleaner"
	"github.com/cargoscope/cargoscope/internal/config"
	"github.com/cargoscope/cargoscope/internal/issue"
	"github.com/cargoscope/cargoscope/internal/store"
	"github.com/cargoscope/cargoscope/internal/testutil"
	"github.com/cargoscope/cargoscope/pkg/cargoreport"
)

func writeProject(t *testing.T, dir string, spec testutil.CrateSpec) string {
	t.Helper()
	if spec.Edition == "" {
		spec.Edition = "2021"
	}
	testutil.WriteCrate(t, dir, spec)
	return dir
}

func TestScanCommand(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeProject(t, filepath.Join(root, "api"), testutil.CrateSpec{Name: "api", Deps: map[string]string{"serde": `"1.0"`}})
	hidden := writeProject(t, filepath.Join(root, "scratch"), testutil.CrateSpec{Name: "scratch"})

	cfg := config.DefaultConfig().WithHidden(hidden, true)
	cli := newTestCLI(t, cfg)

	decode := func() scanOutput {
		t.Helper()
		var out scanOutput
		if err := json.Unmarshal(cli.stdout.Bytes(), &out); err != nil {
			t.Fatalf("decode scan output %q: %v", cli.stdout.String(), err)
		}
		return out
	}
	names := func(out scanOutput) []string {
		var n []string
		for _, p := range out.Projects {
			n = append(n, p.Name)
		}
		slices.Sort(n)
		return n
	}

	if err := cli.run(t, "scan", root, "--format", "json"); err != nil {
		t.Fatalf("scan error: %v", err)
	}
	out := decode()
	if got := names(out); !slices.Equal(got, []string{"api"}) {
		t.Errorf("visible projects = %v, want [api]", got)
	}
	if out.Projects[0].DepCount != 1 {
		t.Errorf("api DepCount = %d, want 1", out.Projects[0].DepCount)
	}

	if err := cli.run(t, "scan", root, "--all", "-f", "json"); err != nil {
		t.Fatalf("scan --all error: %v", err)
	}
	if got := names(decode()); !slices.Equal(got, []string{"api", "scratch"}) {
		t.Errorf("all projects = %v, want [api scratch]", got)
	}

	if err := cli.run(t, "scan", root); err != nil {
		t.Fatalf("scan text error: %v", err)
	}
	if !strings.Contains(cli.stdout.String(), "api") {
		t.Errorf("table output should list api:\n%s", cli.stdout.String())
	}
}

func TestScanCommand_MissingRoot(t *testing.T) {
	t.Parallel()

	cli := newTestCLI(t, nil)
	err := cli.run(t, "scan", filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("scan of a missing root should fail")
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("error = %T, want *issue.ActionableError", err)
	}
	if cli.stderr.Len() == 0 {
		t.Error("the scan-root issue should be rendered on stderr")
	}
}

func TestConfigCommands(t *testing.T) {
	t.Parallel()

	cli := newTestCLI(t, nil)
	root := t.TempDir()

	if err := cli.run(t, "config", "set-root", root); err != nil {
		t.Fatalf("set-root error: %v", err)
	}
	if got := cli.store.current().ScanRoot; got != root {
		t.Errorf("ScanRoot = %q, want %q", got, root)
	}

	project := filepath.Join(root, "api")
	if err := cli.run(t, "config", "favorite", project); err != nil {
		t.Fatalf("favorite error: %v", err)
	}
	if !cli.store.current().IsFavorite(project) {
		t.Error("project should be a favorite")
	}
	if err := cli.run(t, "config", "favorite", "--remove", project); err != nil {
		t.Fatalf("favorite --remove error: %v", err)
	}
	if cli.store.current().IsFavorite(project) {
		t.Error("project should no longer be a favorite")
	}

	if err := cli.run(t, "config", "ide", "zed"); err != nil {
		t.Fatalf("ide error: %v", err)
	}

	if err := cli.run(t, "config", "show", "--format", "json"); err != nil {
		t.Fatalf("show error: %v", err)
	}
	var shown config.Config
	if err := json.Unmarshal(cli.stdout.Bytes(), &shown); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if shown.ScanRoot != root || shown.PreferredIDE != "zed" {
		t.Errorf("shown config = %+v", shown)
	}

	if err := cli.run(t, "config", "show"); err != nil {
		t.Fatalf("show cue error: %v", err)
	}
	if !strings.Contains(cli.stdout.String(), `preferred_ide: "zed"`) {
		t.Errorf("CUE output missing preferred_ide:\n%s", cli.stdout.String())
	}

	// The in-memory store has no file path.
	if err := cli.run(t, "config", "path"); !errors.Is(err, errNotFileStore) {
		t.Errorf("config path error = %v, want errNotFileStore", err)
	}
}

func TestAnalyzeDepsSaveAndCacheShow(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	a := writeProject(t, filepath.Join(root, "a"), testutil.CrateSpec{Name: "a", Deps: map[string]string{"serde": `"1.0"`, "rand": `"0.8"`}})
	b := writeProject(t, filepath.Join(root, "b"), testutil.CrateSpec{Name: "b", Deps: map[string]string{"serde": `"1.0.100"`}})

	cli := newTestCLI(t, nil)
	if err := cli.run(t, "analyze", "deps", a, b, "--save", "--format", "json"); err != nil {
		t.Fatalf("analyze deps error: %v", err)
	}
	var report struct {
		TotalUniqueDeps    int `json:"total_unique_deps"`
		DepsWithMismatches int `json:"deps_with_mismatches"`
	}
	if err := json.Unmarshal(cli.stdout.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.TotalUniqueDeps != 2 || report.DepsWithMismatches != 1 {
		t.Errorf("report = %+v, want 2 unique, 1 mismatched", report)
	}

	if err := cli.run(t, "cache", "show", "--format", "json"); err != nil {
		t.Fatalf("cache show error: %v", err)
	}
	var cached store.Cache
	if err := json.Unmarshal(cli.stdout.Bytes(), &cached); err != nil {
		t.Fatalf("decode cache: %v", err)
	}
	if cached.DepAnalysis == nil || cached.DepAnalysisTime == nil {
		t.Fatalf("dependency analysis was not cached: %+v", cached)
	}
	if *cached.DepAnalysisTime != 1_700_000_000 {
		t.Errorf("timestamp = %d, want the injected clock", *cached.DepAnalysisTime)
	}

	cli.clock.Advance(2 * time.Hour)
	if err := cli.run(t, "cache", "show"); err != nil {
		t.Fatalf("cache show error: %v", err)
	}
	if !strings.Contains(cli.stdout.String(), "2 hours ago") {
		t.Errorf("cache table should show the entry age:\n%s", cli.stdout.String())
	}

	if err := cli.run(t, "cache", "clear"); err != nil {
		t.Fatalf("cache clear error: %v", err)
	}
	if err := cli.run(t, "cache", "show"); err != nil {
		t.Fatalf("cache show error: %v", err)
	}
	if !strings.Contains(cli.stdout.String(), "empty") {
		t.Errorf("cache should be empty after clear:\n%s", cli.stdout.String())
	}
}

func TestInfoCommand(t *testing.T) {
	t.Parallel()

	dir := writeProject(t, filepath.Join(t.TempDir(), "api"), testutil.CrateSpec{Name: "api"})
	testutil.MustWriteFile(t, filepath.Join(dir, "rust-toolchain"), "1.80.0\n")

	cli := newTestCLI(t, nil)
	if err := cli.run(t, "info", dir, "--format", "json"); err != nil {
		t.Fatalf("info error: %v", err)
	}
	var info projectInfo
	if err := json.Unmarshal(cli.stdout.Bytes(), &info); err != nil {
		t.Fatalf("decode info: %v", err)
	}
	if info.Name != "api" || info.Version != "0.1.0" {
		t.Errorf("info = %+v", info)
	}
	if info.Toolchain != "1.80.0" {
		t.Errorf("Toolchain = %q, want 1.80.0", info.Toolchain)
	}
	if info.MSRV.Edition != "2021" {
		t.Errorf("Edition = %q, want 2021", info.MSRV.Edition)
	}
}

func TestInfoCommand_NotAProject(t *testing.T) {
	t.Parallel()

	cli := newTestCLI(t, nil)
	if err := cli.run(t, "info", t.TempDir()); err == nil {
		t.Fatal("info on a directory without Cargo.toml should fail")
	}
}

func TestTaskCommand_Unknown(t *testing.T) {
	t.Parallel()

	dir := writeProject(t, filepath.Join(t.TempDir(), "api"), testutil.CrateSpec{Name: "api"})
	cfg := config.DefaultConfig()
	cfg.Tasks["lint"] = "clippy"
	cli := newTestCLI(t, cfg)

	err := cli.run(t, "task", "fmt-check", dir)
	if err == nil {
		t.Fatal("unknown task should fail")
	}
	if !strings.Contains(err.Error(), "fmt-check") {
		t.Errorf("error %q should name the task", err)
	}
}

func TestCleanCommand(t *testing.T) {
	t.Parallel()

	dir := writeProject(t, filepath.Join(t.TempDir(), "api"), testutil.CrateSpec{Name: "api"})
	testutil.WriteSizedFile(t, filepath.Join(dir, "target", "debug", "api"), 4096)

	cli := newTestCLI(t, nil)
	if err := cli.run(t, "clean", dir, "--format", "json"); err != nil {
		t.Fatalf("clean error: %v", err)
	}
	var results []cleaner.Result
	if err := json.Unmarshal(cli.stdout.Bytes(), &results); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if len(results) != 1 || !results[0].Success || results[0].FreedBytes != 4096 {
		t.Errorf("results = %+v", results)
	}
	if _, err := os.Stat(filepath.Join(dir, "target")); !os.IsNotExist(err) {
		t.Errorf("target/ should be gone, stat error = %v", err)
	}
}

func TestTestReportCommand(t *testing.T) {
	t.Parallel()

	const junit = `<?xml version="1.0" encoding="UTF-8"?>
<testsuites>
  <testsuite name="api" tests="3" failures="1" skipped="1" time="0.5">
    <testcase name="parses" classname="api::tests" time="0.1"/>
    <testcase name="rejects" classname="api::tests" time="0.2">
      <failure message="assertion failed"/>
    </testcase>
    <testcase name="slow" classname="api::tests" time="0">
      <skipped/>
    </testcase>
  </testsuite>
</testsuites>`
	path := filepath.Join(t.TempDir(), "junit.xml")
	if err := os.WriteFile(path, []byte(junit), 0o644); err != nil {
		t.Fatal(err)
	}

	cli := newTestCLI(t, nil)
	err := cli.run(t, "test-report", path, "--format", "json")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Fatalf("error = %v, want ExitError code 1 for a failing report", err)
	}

	var report cargoreport.TestReport
	if err := json.Unmarshal(cli.stdout.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.TotalTests != 3 || report.TotalFailed != 1 || report.TotalSkipped != 1 || report.TotalPassed != 1 {
		t.Errorf("report totals = %+v", report)
	}

	_ = cli.run(t, "test-report", path)
	out := cli.stdout.String()
	if !strings.Contains(out, "rejects") || strings.Contains(out, "parses") {
		t.Errorf("text output should list only non-passing cases:\n%s", out)
	}
}
