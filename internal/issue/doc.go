// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors and a catalog of markdown help
// pages shown when the CLI hits a known failure.
package issue
