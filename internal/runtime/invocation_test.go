// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"errors"
	"slices"
	"testing"
)

func TestParseTask(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		spec    string
		env     map[string]string
		want    []string
		wantErr bool
	}{
		{name: "plain", spec: "test --workspace", want: []string{"test", "--workspace"}},
		{name: "quoted", spec: `run -- --name "hello world"`, want: []string{"run", "--", "--name", "hello world"}},
		{name: "single quotes", spec: `clippy -- -W 'clippy::pedantic'`, want: []string{"clippy", "--", "-W", "clippy::pedantic"}},
		{name: "env expansion", spec: "build --target $TARGET", env: map[string]string{"TARGET": "wasm32-unknown-unknown"}, want: []string{"build", "--target", "wasm32-unknown-unknown"}},
		{name: "empty", spec: "   ", wantErr: true},
		{name: "unterminated quote", spec: `test "oops`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseTask(tt.spec, func(k string) string { return tt.env[k] })
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTask(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
			if !tt.wantErr && !slices.Equal(got, tt.want) {
				t.Errorf("ParseTask(%q) = %q, want %q", tt.spec, got, tt.want)
			}
		})
	}

	if _, err := ParseTask("", nil); !errors.Is(err, ErrEmptyTask) {
		t.Errorf("ParseTask(\"\") error = %v, want ErrEmptyTask", err)
	}
}

func TestPreset(t *testing.T) {
	t.Parallel()

	inv, err := Preset("fmt-check", "/work/app")
	if err != nil {
		t.Fatalf("Preset() error = %v", err)
	}
	if inv.Command != CargoCommand || inv.Dir != "/work/app" || !slices.Equal(inv.Args, []string{"fmt", "--", "--check"}) {
		t.Errorf("Preset(fmt-check) = %+v", inv)
	}
	if inv.Label() != "cargo fmt -- --check" {
		t.Errorf("Label() = %q", inv.Label())
	}

	inv.Args[0] = "mutated"
	again, _ := Preset("fmt-check", "/work/app")
	if again.Args[0] != "fmt" {
		t.Error("Preset() returned shared argument slice")
	}

	if _, err := Preset("nope", "/"); err == nil {
		t.Error("Preset(nope) expected error")
	}
	if names := PresetNames(); !slices.IsSorted(names) || len(names) != 12 {
		t.Errorf("PresetNames() = %v", names)
	}
}

func TestCheckTools_KeepsOrder(t *testing.T) {
	t.Parallel()

	tools := []Tool{
		{Name: "a", Subcommand: "cargoscope-missing-a"},
		{Name: "b", Subcommand: "cargoscope-missing-b"},
	}
	got := NewManager(nil).CheckTools(context.Background(), tools)
	if len(got) != 2 || got[0].Name != "a" || got[1].Name != "b" {
		t.Fatalf("CheckTools() = %+v", got)
	}
	for _, s := range got {
		if s.Installed {
			t.Errorf("%s reported installed", s.Name)
		}
	}
}
