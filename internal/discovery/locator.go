// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"io/fs"
	"iter"
	"path/filepath"
	"strings"

	"github.com/cargoscope/cargoscope/pkg/cargotoml"
)

const (
	// MaxDepth is the walk depth below the scan root. A manifest at depth 4
	// lives in a directory three levels below the root.
	MaxDepth = 4

	// BuildDirName is the cargo build-output directory. It is never searched
	// for manifests, only measured.
	BuildDirName = "target"
)

// Locate returns the Cargo.toml paths below root, at most maxDepth path
// segments deep. Manifests with a "target" directory anywhere in their
// ancestry are not yielded and unreadable directories are skipped. Order
// follows the walk and carries no meaning.
//
// The sequence is lazy: nothing is read until it is ranged over, and
// breaking out of the range stops the walk.
func Locate(root string, maxDepth int) iter.Seq[string] {
	return func(yield func(string) bool) {
		root = filepath.Clean(root)
		rootDepth := depthOf(root)

		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Unreadable root or subdirectory: skip it, keep walking siblings.
				if d != nil && d.IsDir() && path != root {
					return fs.SkipDir
				}
				return nil
			}

			depth := depthOf(path) - rootDepth
			if d.IsDir() {
				if path != root && d.Name() == BuildDirName {
					return fs.SkipDir
				}
				if depth >= maxDepth {
					return fs.SkipDir
				}
				return nil
			}

			if d.Name() != cargotoml.ManifestFileName || depth > maxDepth {
				return nil
			}
			if underBuildDir(filepath.Dir(path)) {
				return nil
			}
			if !yield(path) {
				return fs.SkipAll
			}
			return nil
		})
	}
}

// underBuildDir reports whether any segment of dir is the build-output name.
func underBuildDir(dir string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(dir), "/") {
		if seg == BuildDirName {
			return true
		}
	}
	return false
}

func depthOf(path string) int {
	path = filepath.ToSlash(filepath.Clean(path))
	if path == "/" || path == "." {
		return 0
	}
	return strings.Count(strings.TrimSuffix(path, "/"), "/")
}
