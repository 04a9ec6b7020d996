// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"fmt"
	"slices"
	"sort"
)

// presets maps a preset name to its fixed cargo argument list.
var presets = map[string][]string{
	"fmt-check":     {"fmt", "--", "--check"},
	"clippy":        {"clippy", "--", "-D", "warnings"},
	"test":          {"test"},
	"build":         {"build"},
	"build-release": {"build", "--release"},
	"check":         {"check"},
	"doc":           {"doc", "--no-deps"},
	"update":        {"update"},
	"run":           {"run"},
	"run-release":   {"run", "--release"},
	"bench":         {"bench"},
	"tree":          {"tree"},
}

// PresetNames returns the known preset names, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset returns the cargo invocation for a named preset in dir.
func Preset(name, dir string) (Invocation, error) {
	args, ok := presets[name]
	if !ok {
		return Invocation{}, fmt.Errorf("unknown preset %q", name)
	}
	return Cargo(dir, slices.Clone(args)...), nil
}
