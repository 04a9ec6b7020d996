// SPDX-License-Identifier: MPL-2.0

package cargotoml

import (
	"fmt"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

const (
	// ManifestFileName is the name of a Cargo package or workspace manifest.
	ManifestFileName = "Cargo.toml"

	// UnknownPackageName is reported for manifests without a [package] name,
	// which is the case for virtual workspace manifests.
	UnknownPackageName = "unknown"

	// KindNormal marks entries of the [dependencies] table.
	KindNormal DependencyKind = "normal"
	// KindDev marks entries of the [dev-dependencies] table.
	KindDev DependencyKind = "dev"
	// KindBuild marks entries of the [build-dependencies] table.
	KindBuild DependencyKind = "build"
)

type (
	// DependencyKind identifies which dependency table an entry came from.
	DependencyKind string

	// Manifest is the parsed subset of a Cargo.toml file.
	Manifest struct {
		Package           *Package
		Dependencies      map[string]any
		DevDependencies   map[string]any
		BuildDependencies map[string]any
		Workspace         *Workspace
		Features          map[string][]string
	}

	// Package is the [package] table. Empty strings mean the key was absent
	// or inherited from the workspace.
	Package struct {
		Name        string
		Version     string
		Edition     string
		RustVersion string
	}

	// Workspace is the [workspace] table.
	Workspace struct {
		Members []string `toml:"members"`
		Exclude []string `toml:"exclude"`
	}

	// Dependency is one entry of a dependency table.
	Dependency struct {
		Name    string
		Kind    DependencyKind
		Version string
		// Versioned is false for path or git dependencies without a version
		// requirement. Such entries cannot be compared across projects.
		Versioned bool
	}

	rawManifest struct {
		Package           *rawPackage         `toml:"package"`
		Dependencies      map[string]any      `toml:"dependencies"`
		DevDependencies   map[string]any      `toml:"dev-dependencies"`
		BuildDependencies map[string]any      `toml:"build-dependencies"`
		Workspace         *Workspace          `toml:"workspace"`
		Features          map[string][]string `toml:"features"`
	}

	rawPackage struct {
		Name        string `toml:"name"`
		Version     any    `toml:"version"`
		Edition     any    `toml:"edition"`
		RustVersion any    `toml:"rust-version"`
	}
)

// Parse decodes Cargo.toml content.
func Parse(data []byte) (*Manifest, error) {
	var raw rawManifest
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	m := &Manifest{
		Dependencies:      raw.Dependencies,
		DevDependencies:   raw.DevDependencies,
		BuildDependencies: raw.BuildDependencies,
		Workspace:         raw.Workspace,
		Features:          raw.Features,
	}
	if raw.Package != nil {
		m.Package = &Package{
			Name:        raw.Package.Name,
			Version:     plainString(raw.Package.Version),
			Edition:     plainString(raw.Package.Edition),
			RustVersion: plainString(raw.Package.RustVersion),
		}
	}
	return m, nil
}

// ParseFile reads and decodes the manifest at path.
func ParseFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Name returns the package name, or UnknownPackageName when there is none.
func (m *Manifest) Name() string {
	if m.Package == nil || m.Package.Name == "" {
		return UnknownPackageName
	}
	return m.Package.Name
}

// DependencyCount returns the number of entries in the [dependencies] table.
// Development and build dependencies are not counted.
func (m *Manifest) DependencyCount() int {
	return len(m.Dependencies)
}

// DeclaresWorkspace reports whether the manifest has a [workspace] table.
func (m *Manifest) DeclaresWorkspace() bool {
	return m.Workspace != nil
}

// MemberPatterns returns the workspace member entries, literal or glob.
func (m *Manifest) MemberPatterns() []string {
	if m.Workspace == nil {
		return nil
	}
	return m.Workspace.Members
}

// AllDependencies merges the normal, dev and build tables in that order.
// Entries within a table are sorted by name so the result is stable.
func (m *Manifest) AllDependencies() []Dependency {
	deps := make([]Dependency, 0, len(m.Dependencies)+len(m.DevDependencies)+len(m.BuildDependencies))
	deps = appendTable(deps, m.Dependencies, KindNormal)
	deps = appendTable(deps, m.DevDependencies, KindDev)
	deps = appendTable(deps, m.BuildDependencies, KindBuild)
	return deps
}

// DependencyVersion extracts a comparable version requirement from a
// dependency table value. A bare string is the requirement itself; an inline
// table contributes its "version" key. Anything else has no version.
func DependencyVersion(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case map[string]any:
		if version, ok := val["version"].(string); ok {
			return version, true
		}
	}
	return "", false
}

func appendTable(dst []Dependency, table map[string]any, kind DependencyKind) []Dependency {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		version, ok := DependencyVersion(table[name])
		dst = append(dst, Dependency{Name: name, Kind: kind, Version: version, Versioned: ok})
	}
	return dst
}

func plainString(v any) string {
	s, _ := v.(string)
	return s
}
