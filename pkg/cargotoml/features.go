// SPDX-License-Identifier: MPL-2.0

package cargotoml

import (
	"slices"
	"sort"
)

const defaultFeature = "default"

type (
	// Feature is one entry of the [features] table other than "default".
	Feature struct {
		Name         string   `json:"name" yaml:"name"`
		Dependencies []string `json:"dependencies" yaml:"dependencies"`
		IsDefault    bool     `json:"is_default" yaml:"is_default"`
	}

	// Features is the feature table split into the default set and the rest.
	Features struct {
		Features        []Feature `json:"features" yaml:"features"`
		DefaultFeatures []string  `json:"default_features" yaml:"default_features"`
	}

	// MSRVInfo holds the declared minimum supported Rust version and edition.
	MSRVInfo struct {
		MSRV    string `json:"msrv,omitempty" yaml:"msrv,omitempty"`
		Edition string `json:"edition,omitempty" yaml:"edition,omitempty"`
	}
)

// FeatureSet returns the manifest features sorted by name.
func (m *Manifest) FeatureSet() Features {
	out := Features{DefaultFeatures: slices.Clone(m.Features[defaultFeature])}
	if out.DefaultFeatures == nil {
		out.DefaultFeatures = []string{}
	}

	out.Features = make([]Feature, 0, len(m.Features))
	for name, deps := range m.Features {
		if name == defaultFeature {
			continue
		}
		if deps == nil {
			deps = []string{}
		}
		out.Features = append(out.Features, Feature{
			Name:         name,
			Dependencies: deps,
			IsDefault:    slices.Contains(out.DefaultFeatures, name),
		})
	}
	sort.Slice(out.Features, func(i, j int) bool { return out.Features[i].Name < out.Features[j].Name })
	return out
}

// MSRV returns the package rust-version and edition, empty when absent.
func (m *Manifest) MSRV() MSRVInfo {
	if m.Package == nil {
		return MSRVInfo{}
	}
	return MSRVInfo{MSRV: m.Package.RustVersion, Edition: m.Package.Edition}
}
