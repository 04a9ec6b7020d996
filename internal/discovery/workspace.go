// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"iter"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cargoscope/cargoscope/pkg/cargotoml"
)

const (
	// maxAncestorSteps bounds the upward search for a workspace root so a
	// pathological tree cannot loop forever.
	maxAncestorSteps = 128

	// probeCacheSize bounds the per-graph memo of "does this directory host
	// a workspace manifest" answers.
	probeCacheSize = 4096
)

type (
	// ManifestParser parses one Cargo.toml file.
	ManifestParser func(path string) (*cargotoml.Manifest, error)

	// WorkspaceGraph maps each workspace root directory to its resolved
	// member directories. It is computed once per discovery run.
	WorkspaceGraph struct {
		// Roots maps a workspace root to its members in declaration order,
		// with glob matches sorted.
		Roots map[string][]string

		members map[string]struct{}
		parse   ManifestParser
		probes  *lru.Cache[string, bool]
	}

	// Resolver builds WorkspaceGraphs.
	Resolver struct {
		parse  ManifestParser
		logger *log.Logger
	}
)

// NewResolver creates a Resolver using parse to read manifests.
func NewResolver(parse ManifestParser, logger *log.Logger) *Resolver {
	if parse == nil {
		parse = cargotoml.ParseFile
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &Resolver{parse: parse, logger: logger}
}

// Resolve builds the workspace graph from a manifest sequence. Member
// entries containing glob metacharacters are expanded on the filesystem
// relative to the declaring directory, without regard to the walk depth.
// Literal entries are joined without checking that they exist. Manifests
// that fail to parse contribute nothing.
func (r *Resolver) Resolve(manifests iter.Seq[string]) *WorkspaceGraph {
	g := newGraph(r.parse)

	for path := range manifests {
		m, err := r.parse(path)
		if err != nil {
			r.logger.Debug("skipping manifest for workspace graph", "path", path, "err", err)
			continue
		}
		dir := filepath.Dir(path)
		g.probes.Add(dir, m.DeclaresWorkspace())
		if !m.DeclaresWorkspace() {
			continue
		}
		g.Roots[dir] = append(g.Roots[dir], r.expandMembers(dir, m.MemberPatterns())...)
	}

	for _, members := range g.Roots {
		for _, member := range members {
			g.members[member] = struct{}{}
		}
	}
	return g
}

func (r *Resolver) expandMembers(dir string, patterns []string) []string {
	var out []string
	for _, pattern := range patterns {
		if !isGlob(pattern) {
			out = append(out, filepath.Join(dir, pattern))
			continue
		}
		matches, err := doublestar.FilepathGlob(filepath.Join(dir, filepath.FromSlash(pattern)))
		if err != nil {
			r.logger.Debug("bad workspace member pattern", "dir", dir, "pattern", pattern, "err", err)
			continue
		}
		slices.Sort(matches)
		for _, match := range matches {
			out = append(out, filepath.Clean(match))
		}
	}
	return out
}

func newGraph(parse ManifestParser) *WorkspaceGraph {
	// Size is a positive constant so New cannot fail.
	probes, _ := lru.New[string, bool](probeCacheSize)
	return &WorkspaceGraph{
		Roots:   make(map[string][]string),
		members: make(map[string]struct{}),
		parse:   parse,
		probes:  probes,
	}
}

// IsMember reports whether dir appears in any workspace's member list.
func (g *WorkspaceGraph) IsMember(dir string) bool {
	_, ok := g.members[filepath.Clean(dir)]
	return ok
}

// Members returns the union of all member directories, sorted.
func (g *WorkspaceGraph) Members() []string {
	return slices.Sorted(maps.Keys(g.members))
}

// RootFor walks outward from dir and returns the nearest ancestor whose
// Cargo.toml declares a [workspace]. Ancestors that are merely members of
// some workspace are passed through, which resolves members nested under
// other members. Being listed in a member set does not stop the walk; only
// a [workspace] table does. The empty string means no root was found.
func (g *WorkspaceGraph) RootFor(dir string) string {
	visited := make(map[string]struct{})
	current := filepath.Clean(dir)

	for range maxAncestorSteps {
		parent := filepath.Dir(current)
		if parent == current {
			return ""
		}
		if _, seen := visited[parent]; seen {
			return ""
		}
		visited[parent] = struct{}{}

		if g.declaresWorkspace(parent) {
			return parent
		}
		current = parent
	}
	return ""
}

func (g *WorkspaceGraph) declaresWorkspace(dir string) bool {
	if _, ok := g.Roots[dir]; ok {
		return true
	}
	if ok, cached := g.probes.Get(dir); cached {
		return ok
	}
	m, err := g.parse(filepath.Join(dir, cargotoml.ManifestFileName))
	ok := err == nil && m.DeclaresWorkspace()
	g.probes.Add(dir, ok)
	return ok
}

func isGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}
