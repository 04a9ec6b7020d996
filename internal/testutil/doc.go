// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers shared by cargoscope tests: Must* wrappers
// that fail the test on error, a fake clock, and builders for synthetic Cargo
// project trees (manifests, workspaces, toolchain pins, sized target/ dirs).
package testutil
