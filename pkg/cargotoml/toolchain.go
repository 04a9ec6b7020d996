// SPDX-License-Identifier: MPL-2.0

package cargotoml

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	// ToolchainFileName is the structured toolchain pin.
	ToolchainFileName = "rust-toolchain.toml"
	// LegacyToolchainFileName is the plain-text toolchain pin. Its whole
	// trimmed content is the channel.
	LegacyToolchainFileName = "rust-toolchain"
)

type (
	// Toolchain is the parsed rust-toolchain.toml file.
	Toolchain struct {
		Channel    string   `toml:"channel"`
		Components []string `toml:"components"`
		Targets    []string `toml:"targets"`
		Profile    string   `toml:"profile"`
	}

	toolchainFile struct {
		Toolchain *Toolchain `toml:"toolchain"`
	}
)

// ParseToolchain decodes rust-toolchain.toml content. A file without a
// [toolchain] table yields a zero Toolchain.
func ParseToolchain(data []byte) (*Toolchain, error) {
	var f toolchainFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode toolchain file: %w", err)
	}
	if f.Toolchain == nil {
		return &Toolchain{}, nil
	}
	return f.Toolchain, nil
}

// ReadPinnedToolchain returns the toolchain channel pinned in dir. The
// structured file wins when it names a channel; otherwise the legacy file's
// trimmed content is used. Unreadable or malformed files count as absent.
func ReadPinnedToolchain(dir string) (string, bool) {
	if data, err := os.ReadFile(filepath.Join(dir, ToolchainFileName)); err == nil {
		if tc, err := ParseToolchain(data); err == nil && tc.Channel != "" {
			return tc.Channel, true
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, LegacyToolchainFileName))
	if err != nil {
		return "", false
	}
	channel := strings.TrimSpace(string(data))
	return channel, channel != ""
}
