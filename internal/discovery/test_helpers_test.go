// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"path/filepath"
	"slices"
	"testing"

	"github.com/cargoscope/cargoscope/internal/testutil"
)

// discover runs a fresh Discovery over root and fails on error diagnostics.
func discover(t *testing.T, root string) Result {
	t.Helper()
	res := New().Discover(context.Background(), root)
	for _, d := range res.Diagnostics {
		if d.Severity == SeverityError {
			t.Fatalf("unexpected error diagnostic: %+v", d)
		}
	}
	return res
}

// projectByPath returns the project at path or fails the test.
func projectByPath(t *testing.T, res Result, path string) Project {
	t.Helper()
	for _, p := range res.Projects {
		if p.Path == path {
			return p
		}
	}
	t.Fatalf("no project at %s in %+v", path, res.Projects)
	return Project{}
}

// crate writes a minimal crate named name at dir.
func crate(t *testing.T, dir, name string) {
	t.Helper()
	testutil.WriteCrate(t, dir, testutil.CrateSpec{Name: name})
}

// collect drains a Locate sequence into a sorted slice.
func collect(root string, depth int) []string {
	return slices.Sorted(Locate(root, depth))
}

// abs resolves a temp dir through symlinks so expected paths compare equal.
func abs(t *testing.T, dir string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatalf("EvalSymlinks(%s): %v", dir, err)
	}
	return resolved
}
