// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for cargoscope.
//
// The command tree is built around App, the composition root that owns the
// loaded configuration, the logger, and the output writers. Each command
// constructor receives the App and delegates to the internal packages.
package cmd
