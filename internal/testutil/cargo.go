// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

// CrateSpec describes a synthetic crate manifest.
type CrateSpec struct {
	Name        string
	RustVersion string
	Edition     string
	// Deps maps dependency name to a raw TOML value, e.g. `"1.0"` or
	// `{ path = "../x" }`.
	Deps    map[string]string
	DevDeps map[string]string
}

// WriteCrate writes dir/Cargo.toml for spec and an empty src/lib.rs.
func WriteCrate(t testing.TB, dir string, spec CrateSpec) {
	t.Helper()

	var b strings.Builder
	b.WriteString("[package]\n")
	fmt.Fprintf(&b, "name = %q\nversion = \"0.1.0\"\n", spec.Name)
	if spec.Edition != "" {
		fmt.Fprintf(&b, "edition = %q\n", spec.Edition)
	}
	if spec.RustVersion != "" {
		fmt.Fprintf(&b, "rust-version = %q\n", spec.RustVersion)
	}
	writeTable(&b, "dependencies", spec.Deps)
	writeTable(&b, "dev-dependencies", spec.DevDeps)

	MustWriteFile(t, filepath.Join(dir, "Cargo.toml"), b.String())
	MustWriteFile(t, filepath.Join(dir, "src", "lib.rs"), "")
}

// WriteWorkspace writes a virtual workspace manifest at dir declaring members.
func WriteWorkspace(t testing.TB, dir string, members ...string) {
	t.Helper()

	quoted := make([]string, len(members))
	for i, m := range members {
		quoted[i] = fmt.Sprintf("%q", m)
	}
	MustWriteFile(t, filepath.Join(dir, "Cargo.toml"),
		"[workspace]\nmembers = ["+strings.Join(quoted, ", ")+"]\n")
}

// WriteSizedFile writes a file of exactly size bytes.
func WriteSizedFile(t testing.TB, path string, size int) {
	t.Helper()
	MustMkdirAll(t, filepath.Dir(path))
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func writeTable(b *strings.Builder, name string, entries map[string]string) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(b, "\n[%s]\n", name)
	for _, k := range slices.Sorted(maps.Keys(entries)) {
		fmt.Fprintf(b, "%s = %s\n", k, entries[k])
	}
}
