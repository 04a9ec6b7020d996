// SPDX-License-Identifier: MPL-2.0

// Package aggregate computes fleet-wide groupings across a set of Cargo
// projects: dependency versions, pinned toolchains and MSRVs, and licenses.
//
// Every analysis degrades per project. A project whose manifest cannot be read
// or whose external tool fails is reported (or skipped) on its own and never
// aborts the analysis of the others.
package aggregate
