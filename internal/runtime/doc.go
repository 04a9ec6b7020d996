// SPDX-License-Identifier: MPL-2.0

// Package runtime runs external tool invocations, usually cargo subcommands,
// on behalf of cargoscope.
//
// Two modes are available through Manager:
//   - Run (batch): waits for the process and returns its full stdout/stderr.
//   - Stream: returns a Handle immediately and publishes every output line as
//     an events.OutputEvent, then one events.CompletionEvent once both pipes
//     are drained and the process has exited.
//
// Failing to start a process never surfaces as a Go error: batch mode returns
// a failed Result carrying the diagnostic in Stderr, streaming mode publishes
// one stderr line and a failed completion. A non-zero exit is a result flag,
// not an error. Streaming invocations cannot be cancelled once spawned.
package runtime
