// SPDX-License-Identifier: MPL-2.0

// Package store persists the most recent fleet analysis results so the CLI
// and event server can show them without rerunning cargo.
//
// The cache is a snapshot: Load returns all of it and Save replaces all of
// it. Two backends exist, a JSON file and a SQLite key/value table.
package store
