// SPDX-License-Identifier: MPL-2.0

// Package cargotoml parses the Cargo descriptor files cargoscope reads:
// Cargo.toml manifests, rust-toolchain.toml files, and the legacy plain-text
// rust-toolchain pin.
//
// The parser is deliberately shallow. It keeps the package table, the three
// dependency tables, the workspace declaration, and the feature table, and
// ignores everything else. Fields that Cargo allows to be inherited from a
// workspace (for example `rust-version.workspace = true`) are accepted and
// reported as absent rather than failing the parse.
package cargotoml
