// SPDX-License-Identifier: MPL-2.0

package cargoreport

import "encoding/json"

// UnknownLicense is reported for packages that declare no license.
const UnknownLicense = "Unknown"

type (
	// LicenseInfo is one package of a cargo-license report.
	LicenseInfo struct {
		Name       string `json:"name" yaml:"name"`
		Version    string `json:"version" yaml:"version"`
		License    string `json:"license" yaml:"license"`
		Authors    string `json:"authors,omitempty" yaml:"authors,omitempty"`
		Repository string `json:"repository,omitempty" yaml:"repository,omitempty"`
	}

	licenseEntry struct {
		Name       string  `json:"name"`
		Version    string  `json:"version"`
		Authors    *string `json:"authors"`
		Repository *string `json:"repository"`
		License    *string `json:"license"`
	}
)

// DecodeLicenses decodes `cargo license --json` output.
func DecodeLicenses(data []byte) ([]LicenseInfo, error) {
	var entries []licenseEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, decodeErr(FormatLicense, err)
	}

	out := make([]LicenseInfo, 0, len(entries))
	for _, e := range entries {
		info := LicenseInfo{Name: e.Name, Version: e.Version, License: UnknownLicense}
		if e.License != nil && *e.License != "" {
			info.License = *e.License
		}
		if e.Authors != nil {
			info.Authors = *e.Authors
		}
		if e.Repository != nil {
			info.Repository = *e.Repository
		}
		out = append(out, info)
	}
	return out, nil
}
