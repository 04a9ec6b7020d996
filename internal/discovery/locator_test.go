// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/cargoscope/cargoscope/internal/testutil"
)

func TestLocate_EmptyRoot(t *testing.T) {
	t.Parallel()

	if got := collect(t.TempDir(), MaxDepth); len(got) != 0 {
		t.Errorf("Locate() on empty root = %v, want none", got)
	}
}

func TestLocate_DepthBound(t *testing.T) {
	t.Parallel()

	root := abs(t, t.TempDir())
	crate(t, root, "top")
	crate(t, filepath.Join(root, "a", "b", "c"), "deepest")
	crate(t, filepath.Join(root, "a", "b", "c", "d"), "too-deep")

	got := collect(root, MaxDepth)
	want := []string{
		filepath.Join(root, "Cargo.toml"),
		filepath.Join(root, "a", "b", "c", "Cargo.toml"),
	}
	if len(got) != len(want) {
		t.Fatalf("Locate() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Locate()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestLocate_ExcludesBuildOutput(t *testing.T) {
	t.Parallel()

	root := abs(t, t.TempDir())
	crate(t, filepath.Join(root, "app"), "app")
	testutil.MustWriteFile(t, filepath.Join(root, "app", BuildDirName, "package", "dep-1.0", "Cargo.toml"), "[package]\nname = \"dep\"\n")
	testutil.MustWriteFile(t, filepath.Join(root, BuildDirName, "Cargo.toml"), "[package]\nname = \"nope\"\n")

	got := collect(root, MaxDepth)
	if len(got) != 1 || got[0] != filepath.Join(root, "app", "Cargo.toml") {
		t.Errorf("Locate() = %v, want only app manifest", got)
	}
}

func TestLocate_RootInsideBuildDir(t *testing.T) {
	t.Parallel()

	root := filepath.Join(abs(t, t.TempDir()), BuildDirName, "vendored")
	crate(t, root, "vendored")

	if got := collect(root, MaxDepth); len(got) != 0 {
		t.Errorf("Locate() = %v, want none below a target ancestor", got)
	}
}

func TestLocate_UnreadableSubdirSkipped(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced here")
	}

	root := abs(t, t.TempDir())
	crate(t, filepath.Join(root, "ok"), "ok")
	locked := filepath.Join(root, "locked")
	crate(t, locked, "locked")
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	got := collect(root, MaxDepth)
	if len(got) != 1 || got[0] != filepath.Join(root, "ok", "Cargo.toml") {
		t.Errorf("Locate() = %v, want only the readable crate", got)
	}
}

func TestLocate_EarlyBreak(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	for _, name := range []string{"a", "b", "c"} {
		crate(t, filepath.Join(root, name), name)
	}

	n := 0
	for range Locate(root, MaxDepth) {
		n++
		break
	}
	if n != 1 {
		t.Errorf("ranged %d times after break, want 1", n)
	}
}

func TestUnderBuildDir(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dir  string
		want bool
	}{
		{"/home/u/proj", false},
		{"/home/u/proj/target/debug", true},
		{"/target", true},
		{"/home/u/targets", false},
		{"/home/u/my-target/x", false},
	}
	for _, tt := range tests {
		if got := underBuildDir(filepath.FromSlash(tt.dir)); got != tt.want {
			t.Errorf("underBuildDir(%q) = %v, want %v", tt.dir, got, tt.want)
		}
	}
}
