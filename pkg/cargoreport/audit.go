// SPDX-License-Identifier: MPL-2.0

package cargoreport

import (
	"encoding/json"
	"errors"
)

const unknownSeverity = "unknown"

type (
	// Vulnerability is one advisory matched against a locked package.
	Vulnerability struct {
		ID              string   `json:"id" yaml:"id"`
		Package         string   `json:"package" yaml:"package"`
		Version         string   `json:"version" yaml:"version"`
		Title           string   `json:"title" yaml:"title"`
		Description     string   `json:"description" yaml:"description"`
		Severity        string   `json:"severity" yaml:"severity"`
		URL             string   `json:"url,omitempty" yaml:"url,omitempty"`
		PatchedVersions []string `json:"patched_versions" yaml:"patched_versions"`
	}

	// AuditWarning is an informational advisory (unmaintained, unsound, yanked).
	AuditWarning struct {
		Kind       string `json:"kind" yaml:"kind"`
		Package    string `json:"package" yaml:"package"`
		Version    string `json:"version" yaml:"version"`
		Title      string `json:"title" yaml:"title"`
		AdvisoryID string `json:"advisory_id" yaml:"advisory_id"`
		URL        string `json:"url,omitempty" yaml:"url,omitempty"`
	}

	// AuditReport is the decoded cargo-audit result.
	AuditReport struct {
		Vulnerabilities []Vulnerability `json:"vulnerabilities" yaml:"vulnerabilities"`
		Warnings        []AuditWarning  `json:"warnings" yaml:"warnings"`
	}

	auditOutput struct {
		Vulnerabilities *struct {
			List []auditVuln `json:"list"`
		} `json:"vulnerabilities"`
		Warnings *struct {
			Unmaintained []auditWarning `json:"unmaintained"`
			Unsound      []auditWarning `json:"unsound"`
			Yanked       []auditWarning `json:"yanked"`
		} `json:"warnings"`
	}

	auditVuln struct {
		Advisory auditAdvisory `json:"advisory"`
		Package  auditPackage  `json:"package"`
		Versions *struct {
			Patched []string `json:"patched"`
		} `json:"versions"`
	}

	auditWarning struct {
		Kind     string        `json:"kind"`
		Package  auditPackage  `json:"package"`
		Advisory auditAdvisory `json:"advisory"`
	}

	auditAdvisory struct {
		ID          string  `json:"id"`
		Title       string  `json:"title"`
		Description string  `json:"description"`
		URL         *string `json:"url"`
		CVSS        *string `json:"cvss"`
	}

	auditPackage struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
)

// DecodeAudit decodes `cargo audit --json` output.
func DecodeAudit(data []byte) (AuditReport, error) {
	var parsed auditOutput
	if err := json.Unmarshal(data, &parsed); err != nil {
		return AuditReport{}, decodeErr(FormatAudit, err)
	}
	if parsed.Vulnerabilities == nil {
		return AuditReport{}, decodeErr(FormatAudit, errors.New("missing vulnerabilities section"))
	}

	report := AuditReport{
		Vulnerabilities: make([]Vulnerability, 0, len(parsed.Vulnerabilities.List)),
		Warnings:        []AuditWarning{},
	}
	for _, v := range parsed.Vulnerabilities.List {
		vuln := Vulnerability{
			ID:              v.Advisory.ID,
			Package:         v.Package.Name,
			Version:         v.Package.Version,
			Title:           v.Advisory.Title,
			Description:     v.Advisory.Description,
			Severity:        unknownSeverity,
			URL:             deref(v.Advisory.URL),
			PatchedVersions: []string{},
		}
		if v.Advisory.CVSS != nil {
			vuln.Severity = *v.Advisory.CVSS
		}
		if v.Versions != nil && v.Versions.Patched != nil {
			vuln.PatchedVersions = v.Versions.Patched
		}
		report.Vulnerabilities = append(report.Vulnerabilities, vuln)
	}

	if w := parsed.Warnings; w != nil {
		for _, group := range [][]auditWarning{w.Unmaintained, w.Unsound, w.Yanked} {
			for _, warn := range group {
				report.Warnings = append(report.Warnings, AuditWarning{
					Kind:       warn.Kind,
					Package:    warn.Package.Name,
					Version:    warn.Package.Version,
					Title:      warn.Advisory.Title,
					AdvisoryID: warn.Advisory.ID,
					URL:        deref(warn.Advisory.URL),
				})
			}
		}
	}
	return report, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
