// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cargoscope/cargoscope/pkg/cargotoml"
)

type (
	// BinaryInfo is the on-disk size of one built binary per profile.
	// Nil sizes mean the profile has not been built.
	BinaryInfo struct {
		Name        string  `json:"name" yaml:"name"`
		DebugSize   *uint64 `json:"debug_size,omitempty" yaml:"debug_size,omitempty"`
		ReleaseSize *uint64 `json:"release_size,omitempty" yaml:"release_size,omitempty"`
	}

	// BinarySizes lists built binaries of a project with per-profile totals.
	BinarySizes struct {
		Debug    uint64       `json:"debug" yaml:"debug"`
		Release  uint64       `json:"release" yaml:"release"`
		Binaries []BinaryInfo `json:"binaries" yaml:"binaries"`
	}
)

// BinarySizes measures the package binary and every src/bin/*.rs binary in
// target/debug and target/release.
func (d *Discovery) BinarySizes(dir string) BinarySizes {
	out := BinarySizes{Binaries: []BinaryInfo{}}

	var names []string
	if m, err := d.parse(filepath.Join(dir, cargotoml.ManifestFileName)); err == nil && m.Package != nil && m.Package.Name != "" {
		names = append(names, m.Package.Name)
	}
	if entries, err := os.ReadDir(filepath.Join(dir, SourceDirName, "bin")); err == nil {
		var extra []string
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".rs") {
				extra = append(extra, strings.TrimSuffix(e.Name(), ".rs"))
			}
		}
		sort.Strings(extra)
		names = append(names, extra...)
	}

	for _, name := range names {
		bin := BinaryInfo{
			Name:        name,
			DebugSize:   fileSize(filepath.Join(dir, BuildDirName, "debug", name)),
			ReleaseSize: fileSize(filepath.Join(dir, BuildDirName, "release", name)),
		}
		if bin.DebugSize != nil {
			out.Debug += *bin.DebugSize
		}
		if bin.ReleaseSize != nil {
			out.Release += *bin.ReleaseSize
		}
		out.Binaries = append(out.Binaries, bin)
	}
	return out
}

func fileSize(path string) *uint64 {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil
	}
	size := uint64(info.Size())
	return &size
}
