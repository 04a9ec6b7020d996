// SPDX-License-Identifier: MPL-2.0

package store

import (
	"time"

	"github.com/cargoscope/cargoscope/internal/aggregate"
)

// Cache holds the last result of every fleet analysis together with the Unix
// time it was stored. A nil timestamp means the analysis was never cached.
type Cache struct {
	OutdatedResults    []aggregate.OutdatedResult  `json:"outdated_results,omitempty" yaml:"outdated_results,omitempty"`
	OutdatedTimestamp  *int64                      `json:"outdated_timestamp,omitempty" yaml:"outdated_timestamp,omitempty"`
	AuditResults       []aggregate.AuditResult     `json:"audit_results,omitempty" yaml:"audit_results,omitempty"`
	AuditTimestamp     *int64                      `json:"audit_timestamp,omitempty" yaml:"audit_timestamp,omitempty"`
	DepAnalysis        *aggregate.DependencyReport `json:"dep_analysis,omitempty" yaml:"dep_analysis,omitempty"`
	DepAnalysisTime    *int64                      `json:"dep_analysis_timestamp,omitempty" yaml:"dep_analysis_timestamp,omitempty"`
	ToolchainAnalysis  *aggregate.ToolchainReport  `json:"toolchain_analysis,omitempty" yaml:"toolchain_analysis,omitempty"`
	ToolchainTimestamp *int64                      `json:"toolchain_timestamp,omitempty" yaml:"toolchain_timestamp,omitempty"`
	LicenseAnalysis    *aggregate.LicenseReport    `json:"license_analysis,omitempty" yaml:"license_analysis,omitempty"`
	LicenseTimestamp   *int64                      `json:"license_timestamp,omitempty" yaml:"license_timestamp,omitempty"`
}

// IsEmpty reports whether nothing has been cached.
func (c Cache) IsEmpty() bool {
	return c.OutdatedTimestamp == nil && c.AuditTimestamp == nil && c.DepAnalysisTime == nil &&
		c.ToolchainTimestamp == nil && c.LicenseTimestamp == nil
}

// WithOutdated returns a copy holding results stamped at now.
func (c Cache) WithOutdated(results []aggregate.OutdatedResult, now time.Time) Cache {
	c.OutdatedResults = results
	c.OutdatedTimestamp = stamp(now)
	return c
}

// WithAudit returns a copy holding results stamped at now.
func (c Cache) WithAudit(results []aggregate.AuditResult, now time.Time) Cache {
	c.AuditResults = results
	c.AuditTimestamp = stamp(now)
	return c
}

// WithDependencies returns a copy holding report stamped at now.
func (c Cache) WithDependencies(report aggregate.DependencyReport, now time.Time) Cache {
	c.DepAnalysis = &report
	c.DepAnalysisTime = stamp(now)
	return c
}

// WithToolchains returns a copy holding report stamped at now.
func (c Cache) WithToolchains(report aggregate.ToolchainReport, now time.Time) Cache {
	c.ToolchainAnalysis = &report
	c.ToolchainTimestamp = stamp(now)
	return c
}

// WithLicenses returns a copy holding report stamped at now.
func (c Cache) WithLicenses(report aggregate.LicenseReport, now time.Time) Cache {
	c.LicenseAnalysis = &report
	c.LicenseTimestamp = stamp(now)
	return c
}

func stamp(now time.Time) *int64 {
	ts := now.Unix()
	return &ts
}
