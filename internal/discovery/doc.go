// SPDX-License-Identifier: MPL-2.0

// Package discovery finds Cargo projects below a root directory and works out
// how they relate through workspace membership.
//
// Discovery runs in three stages:
//   - locator.go: a bounded walk yielding Cargo.toml paths outside build-output trees
//   - workspace.go: the workspace graph (declared members, glob expansion, root lookup)
//   - registry.go: the ordered Project list with size, age and membership attributes
//
// Every call builds its graph from scratch and shares no mutable state, so
// concurrent discoveries over the same root are safe. Unreadable entries and
// malformed manifests never fail a run; the latter are reported as
// Diagnostics alongside the result.
package discovery
