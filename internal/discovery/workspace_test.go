// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"path/filepath"
	"slices"
	"testing"

	"github.com/cargoscope/cargoscope/internal/testutil"
	"github.com/cargoscope/cargoscope/pkg/cargotoml"
)

func TestResolve_LiteralAndGlobMembers(t *testing.T) {
	t.Parallel()

	root := abs(t, t.TempDir())
	testutil.WriteWorkspace(t, root, "a", "pkgs/*")
	crate(t, filepath.Join(root, "a"), "a")
	crate(t, filepath.Join(root, "pkgs", "x"), "x")
	crate(t, filepath.Join(root, "pkgs", "y"), "y")

	graph := NewResolver(nil, nil).Resolve(Locate(root, MaxDepth))

	want := []string{
		filepath.Join(root, "a"),
		filepath.Join(root, "pkgs", "x"),
		filepath.Join(root, "pkgs", "y"),
	}
	if got := graph.Members(); !slices.Equal(got, want) {
		t.Errorf("Members() = %v, want %v", got, want)
	}
	if got := graph.Roots[root]; !slices.Equal(got, want) {
		t.Errorf("Roots[root] = %v, want %v", got, want)
	}
}

func TestResolve_GlobIgnoresWalkDepth(t *testing.T) {
	t.Parallel()

	root := abs(t, t.TempDir())
	ws := filepath.Join(root, "one", "two")
	testutil.WriteWorkspace(t, ws, "crates/*/inner")
	crate(t, filepath.Join(ws, "crates", "deep", "inner"), "inner")

	graph := NewResolver(nil, nil).Resolve(Locate(root, MaxDepth))
	if !graph.IsMember(filepath.Join(ws, "crates", "deep", "inner")) {
		t.Errorf("glob match below the walk depth should still be a member: %v", graph.Members())
	}
}

func TestResolve_MalformedManifestContributesNothing(t *testing.T) {
	t.Parallel()

	root := abs(t, t.TempDir())
	testutil.MustWriteFile(t, filepath.Join(root, "broken", "Cargo.toml"), "[workspace\nmembers = [")
	testutil.WriteWorkspace(t, filepath.Join(root, "ok"), "m")

	graph := NewResolver(nil, nil).Resolve(Locate(root, MaxDepth))
	if len(graph.Roots) != 1 {
		t.Errorf("Roots = %v, want only the well-formed workspace", graph.Roots)
	}
	if !graph.IsMember(filepath.Join(root, "ok", "m")) {
		t.Error("member of the well-formed workspace missing")
	}
}

func TestRootFor_NearestWorkspaceWins(t *testing.T) {
	t.Parallel()

	root := abs(t, t.TempDir())
	testutil.WriteWorkspace(t, root, "inner/member")
	inner := filepath.Join(root, "inner")
	testutil.WriteWorkspace(t, inner, "member")
	crate(t, filepath.Join(inner, "member"), "member")

	graph := NewResolver(nil, nil).Resolve(Locate(root, MaxDepth))
	if got := graph.RootFor(filepath.Join(inner, "member")); got != inner {
		t.Errorf("RootFor() = %s, want nearest workspace %s", got, inner)
	}
}

func TestRootFor_MemberAncestorIsNotARoot(t *testing.T) {
	t.Parallel()

	// ws declares both "outer" and "outer/nested"; outer is a plain package,
	// so nested must resolve past it to ws.
	ws := abs(t, t.TempDir())
	testutil.WriteWorkspace(t, ws, "outer", "outer/nested")
	crate(t, filepath.Join(ws, "outer"), "outer")
	crate(t, filepath.Join(ws, "outer", "nested"), "nested")

	graph := NewResolver(nil, nil).Resolve(Locate(ws, MaxDepth))
	if got := graph.RootFor(filepath.Join(ws, "outer", "nested")); got != ws {
		t.Errorf("RootFor() = %s, want %s", got, ws)
	}
}

func TestRootFor_NoWorkspaceAncestor(t *testing.T) {
	t.Parallel()

	dir := abs(t, t.TempDir())
	crate(t, filepath.Join(dir, "lonely"), "lonely")

	graph := NewResolver(nil, nil).Resolve(Locate(dir, MaxDepth))
	if got := graph.RootFor(filepath.Join(dir, "lonely")); got != "" {
		t.Errorf("RootFor() = %q, want none", got)
	}
}

func TestRootFor_ProbesAreMemoized(t *testing.T) {
	t.Parallel()

	root := abs(t, t.TempDir())
	crate(t, filepath.Join(root, "a", "b"), "b")

	calls := 0
	counting := func(path string) (*cargotoml.Manifest, error) {
		calls++
		return cargotoml.ParseFile(path)
	}
	graph := NewResolver(counting, nil).Resolve(slices.Values([]string(nil)))

	graph.RootFor(filepath.Join(root, "a", "b"))
	first := calls
	graph.RootFor(filepath.Join(root, "a", "b"))
	if calls != first {
		t.Errorf("second RootFor parsed %d more manifests, want 0", calls-first)
	}
}
