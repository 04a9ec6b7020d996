// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cargoscope/cargoscope/pkg/cargotoml"
)

const (
	// SourceDirName is the conventional crate source directory.
	SourceDirName = "src"

	// lastModifiedDepth is how deep below src/ modification times are read.
	lastModifiedDepth = 3
)

// DirSize returns the summed size of regular files below path. A missing
// path is 0 and unreadable entries are skipped. Symlinks are not followed.
func DirSize(path string) uint64 {
	var total uint64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		total += uint64(info.Size())
		return nil
	})
	return total
}

// LastModified returns the newest modification time, in Unix seconds, among
// dir's Cargo.toml, its src directory, and entries up to three levels below
// src. It is 0 when none of them can be read.
func LastModified(dir string) int64 {
	var latest int64
	consider := func(info fs.FileInfo) {
		if sec := info.ModTime().Unix(); sec > latest {
			latest = sec
		}
	}

	if info, err := os.Stat(filepath.Join(dir, cargotoml.ManifestFileName)); err == nil {
		consider(info)
	}

	src := filepath.Join(dir, SourceDirName)
	srcDepth := strings.Count(filepath.ToSlash(src), "/")
	_ = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != src {
				return fs.SkipDir
			}
			return nil
		}
		if info, err := d.Info(); err == nil {
			consider(info)
		}
		if d.IsDir() && strings.Count(filepath.ToSlash(path), "/")-srcDepth >= lastModifiedDepth {
			return fs.SkipDir
		}
		return nil
	})
	return latest
}
