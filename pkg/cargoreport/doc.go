// SPDX-License-Identifier: MPL-2.0

// Package cargoreport decodes the machine-readable output of third-party
// cargo subcommands: cargo-license, cargo-outdated, cargo-audit, and the
// JUnit XML report written by cargo-nextest.
//
// Each decoder returns stable cargoscope types and a *DecodeError tagged with
// the format name on failure, so callers never handle raw tool output.
package cargoreport
