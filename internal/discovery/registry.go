// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/cargoscope/cargoscope/pkg/cargotoml"
)

type (
	// Project is one discovered Cargo package or workspace manifest.
	Project struct {
		// Name is the package name, or "unknown" for virtual manifests.
		Name string `json:"name" yaml:"name"`
		// Path is the absolute project directory. Unique within one run.
		Path string `json:"path" yaml:"path"`
		// TargetSize is the total size in bytes of regular files under target/.
		TargetSize uint64 `json:"target_size" yaml:"target_size"`
		// DepCount counts entries of the [dependencies] table only.
		DepCount int `json:"dep_count" yaml:"dep_count"`
		// LastModified is the newest mtime, in Unix seconds, of Cargo.toml and
		// the first levels of src/.
		LastModified      int64 `json:"last_modified" yaml:"last_modified"`
		IsWorkspaceMember bool  `json:"is_workspace_member" yaml:"is_workspace_member"`
		// WorkspaceRoot is set only for members whose ancestor search found a
		// directory with a [workspace] manifest.
		WorkspaceRoot string `json:"workspace_root,omitempty" yaml:"workspace_root,omitempty"`
	}

	// Result bundles discovered projects with non-fatal diagnostics.
	Result struct {
		Projects    []Project
		Diagnostics []Diagnostic
	}

	// Discovery finds projects below a root directory.
	Discovery struct {
		parse    ManifestParser
		logger   *log.Logger
		maxDepth int
	}

	// Option configures a Discovery.
	Option func(*Discovery)
)

// WithLogger sets the logger used for skipped-entry debug output.
func WithLogger(logger *log.Logger) Option {
	return func(d *Discovery) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithParser replaces the manifest parser, mainly for tests.
func WithParser(parse ManifestParser) Option {
	return func(d *Discovery) {
		if parse != nil {
			d.parse = parse
		}
	}
}

// New creates a Discovery. The walk depth is always MaxDepth.
func New(opts ...Option) *Discovery {
	d := &Discovery{
		parse:    cargotoml.ParseFile,
		logger:   discardLogger(),
		maxDepth: MaxDepth,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Discover walks root and returns its projects sorted by case-insensitive
// name, ties broken by path. Running it twice over an unchanged tree yields
// identical results. A cancelled context stops discovery early and the
// partial result carries a cancellation diagnostic.
func (d *Discovery) Discover(ctx context.Context, root string) Result {
	var res Result

	absRoot, err := filepath.Abs(root)
	if err != nil {
		res.Diagnostics = append(res.Diagnostics, newDiagnostic(SeverityError, CodeScanRootUnreadable,
			fmt.Sprintf("cannot resolve scan root %q", root), root, err))
		return res
	}
	if info, err := os.Stat(absRoot); err != nil || !info.IsDir() {
		if err == nil {
			err = fmt.Errorf("%s is not a directory", absRoot)
		}
		res.Diagnostics = append(res.Diagnostics, newDiagnostic(SeverityError, CodeScanRootUnreadable,
			"scan root cannot be read", absRoot, err))
		return res
	}

	var manifests []string
	for path := range Locate(absRoot, d.maxDepth) {
		if ctx.Err() != nil {
			break
		}
		manifests = append(manifests, path)
	}
	if err := ctx.Err(); err != nil {
		res.Diagnostics = append(res.Diagnostics, newDiagnostic(SeverityWarning, CodeDiscoveryCancelled,
			"discovery stopped before the walk completed", absRoot, err))
		return res
	}

	graph := NewResolver(d.parse, d.logger).Resolve(slices.Values(manifests))

	for _, manifestPath := range manifests {
		if ctx.Err() != nil {
			res.Diagnostics = append(res.Diagnostics, newDiagnostic(SeverityWarning, CodeDiscoveryCancelled,
				"discovery stopped before all manifests were read", absRoot, ctx.Err()))
			break
		}

		m, err := d.parse(manifestPath)
		if err != nil {
			d.logger.Warn("skipping malformed manifest", "path", manifestPath, "err", err)
			res.Diagnostics = append(res.Diagnostics, newDiagnostic(SeverityWarning, CodeManifestSkipped,
				"manifest could not be parsed and was skipped", manifestPath, err))
			continue
		}

		dir := filepath.Dir(manifestPath)
		project := Project{
			Name:              m.Name(),
			Path:              dir,
			TargetSize:        DirSize(filepath.Join(dir, BuildDirName)),
			DepCount:          m.DependencyCount(),
			LastModified:      LastModified(dir),
			IsWorkspaceMember: graph.IsMember(dir),
		}
		if project.IsWorkspaceMember {
			project.WorkspaceRoot = graph.RootFor(dir)
		}
		res.Projects = append(res.Projects, project)
	}

	SortProjects(res.Projects)
	return res
}

// SortProjects orders projects by lower-cased name, then by path.
func SortProjects(projects []Project) {
	sort.SliceStable(projects, func(i, j int) bool {
		a, b := strings.ToLower(projects[i].Name), strings.ToLower(projects[j].Name)
		if a != b {
			return a < b
		}
		return projects[i].Path < projects[j].Path
	})
}

func discardLogger() *log.Logger {
	return log.New(io.Discard)
}
