// SPDX-License-Identifier: MPL-2.0

package cargoreport

import (
	"encoding/json"
	"errors"
)

const defaultOutdatedKind = "Normal"

type (
	// OutdatedDep is a dependency whose locked version trails the latest.
	OutdatedDep struct {
		Name    string `json:"name" yaml:"name"`
		Current string `json:"current" yaml:"current"`
		Latest  string `json:"latest" yaml:"latest"`
		Kind    string `json:"kind" yaml:"kind"`
	}

	outdatedOutput struct {
		Dependencies *[]outdatedEntry `json:"dependencies"`
	}

	outdatedEntry struct {
		Name    string  `json:"name"`
		Project string  `json:"project"`
		Latest  string  `json:"latest"`
		Kind    *string `json:"kind"`
	}
)

// DecodeOutdated decodes `cargo outdated --format json` output. Entries
// already at the latest version are dropped.
func DecodeOutdated(data []byte) ([]OutdatedDep, error) {
	var parsed outdatedOutput
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, decodeErr(FormatOutdated, err)
	}
	if parsed.Dependencies == nil {
		return nil, decodeErr(FormatOutdated, errors.New("missing dependencies list"))
	}

	out := []OutdatedDep{}
	for _, d := range *parsed.Dependencies {
		if d.Project == d.Latest {
			continue
		}
		kind := defaultOutdatedKind
		if d.Kind != nil {
			kind = *d.Kind
		}
		out = append(out, OutdatedDep{Name: d.Name, Current: d.Project, Latest: d.Latest, Kind: kind})
	}
	return out, nil
}
