// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"strings"
	"testing"

	"cuelang.org/go/cue"
)

const testSchema = `
#Settings: {
	name:     string
	workers?: int & >0
	mode?:    "fast" | "slow"
}
`

type settings struct {
	Name    string `json:"name"`
	Workers int    `json:"workers"`
	Mode    string `json:"mode"`
}

func TestDecode(t *testing.T) {
	t.Parallel()

	res, err := Decode[settings]([]byte(testSchema), []byte(`name: "scan"
workers: 4
mode: "fast"`), "#Settings")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if *res.Value != (settings{Name: "scan", Workers: 4, Mode: "fast"}) {
		t.Errorf("Decode() = %+v", *res.Value)
	}
	if got, _ := res.Unified.LookupPath(cue.ParsePath("name")).String(); got != "scan" {
		t.Errorf("Unified name = %q", got)
	}
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		opts    []Option
		wantSub string
	}{
		{"syntax", `name: "x`, nil, "settings.cue"},
		{"constraint", `name: "x", workers: 0`, nil, "workers"},
		{"disjunction", `name: "x", mode: "medium"`, nil, "mode"},
		{"closed", `name: "x", extra: true`, nil, "extra"},
		{"not concrete", `workers: 1`, nil, "name"},
		{"too large", `name: "x"`, []Option{WithMaxFileSize(3)}, "exceeds maximum"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts := append([]Option{WithFilename("settings.cue")}, tt.opts...)
			_, err := Decode[settings]([]byte(testSchema), []byte(tt.data), "#Settings", opts...)
			if err == nil {
				t.Fatal("Decode() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("Decode() error = %q, want it to contain %q", err, tt.wantSub)
			}
		})
	}
}

func TestDecode_NonConcrete(t *testing.T) {
	t.Parallel()

	res, err := Decode[map[string]any]([]byte(testSchema), []byte(`workers: 2`), "#Settings", WithConcrete(false))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if _, ok := (*res.Value)["name"]; ok {
		t.Errorf("absent optional field decoded: %v", *res.Value)
	}
}

func TestFormatError_NonCUE(t *testing.T) {
	t.Parallel()

	if FormatError(nil, "a.cue") != nil {
		t.Error("FormatError(nil) != nil")
	}
	base := errors.New("boom")
	err := FormatError(base, "a.cue")
	if !errors.Is(err, base) || !strings.HasPrefix(err.Error(), "a.cue: ") {
		t.Errorf("FormatError() = %v", err)
	}
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path []string
		want string
	}{
		{nil, ""},
		{[]string{"scan_root"}, "scan_root"},
		{[]string{"cache", "backend"}, "cache.backend"},
		{[]string{"favorites", "2"}, "favorites[2]"},
		{[]string{"tasks", "ci", "0"}, "tasks.ci[0]"},
	}
	for _, tt := range tests {
		if got := formatPath(tt.path); got != tt.want {
			t.Errorf("formatPath(%v) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestCheckFileSize(t *testing.T) {
	t.Parallel()

	if err := CheckFileSize(make([]byte, 10), 10, "f"); err != nil {
		t.Errorf("CheckFileSize(at limit) = %v", err)
	}
	if err := CheckFileSize(make([]byte, 11), 10, "f"); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("CheckFileSize(over limit) = %v, want ErrFileTooLarge", err)
	}
}
