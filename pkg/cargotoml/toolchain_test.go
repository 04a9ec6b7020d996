// SPDX-License-Identifier: MPL-2.0

package cargotoml

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadPinnedToolchain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		files  map[string]string
		want   string
		wantOK bool
	}{
		{
			name:   "structured channel",
			files:  map[string]string{ToolchainFileName: "[toolchain]\nchannel = \"1.75.0\"\n"},
			want:   "1.75.0",
			wantOK: true,
		},
		{
			name:   "legacy file trimmed",
			files:  map[string]string{LegacyToolchainFileName: "  nightly-2024-01-01\n"},
			want:   "nightly-2024-01-01",
			wantOK: true,
		},
		{
			name: "structured wins over legacy",
			files: map[string]string{
				ToolchainFileName:       "[toolchain]\nchannel = \"stable\"\n",
				LegacyToolchainFileName: "nightly",
			},
			want:   "stable",
			wantOK: true,
		},
		{
			name: "structured without channel falls back",
			files: map[string]string{
				ToolchainFileName:       "[toolchain]\ncomponents = [\"clippy\"]\n",
				LegacyToolchainFileName: "beta",
			},
			want:   "beta",
			wantOK: true,
		},
		{
			name:  "empty legacy file",
			files: map[string]string{LegacyToolchainFileName: "\n  \n"},
		},
		{
			name: "nothing pinned",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			for name, content := range tt.files {
				if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
					t.Fatal(err)
				}
			}

			got, ok := ReadPinnedToolchain(dir)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ReadPinnedToolchain() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseToolchain(t *testing.T) {
	t.Parallel()

	tc, err := ParseToolchain([]byte(`
[toolchain]
channel = "1.76"
components = ["rustfmt", "clippy"]
targets = ["wasm32-unknown-unknown"]
profile = "minimal"
`))
	if err != nil {
		t.Fatalf("ParseToolchain() error = %v", err)
	}
	if tc.Channel != "1.76" || len(tc.Components) != 2 || tc.Profile != "minimal" || len(tc.Targets) != 1 {
		t.Errorf("ParseToolchain() = %+v", tc)
	}

	empty, err := ParseToolchain([]byte(""))
	if err != nil || empty.Channel != "" {
		t.Errorf("ParseToolchain(empty) = %+v, %v", empty, err)
	}
}
