// SPDX-License-Identifier: MPL-2.0

// Package events defines the notifications published while a cargo
// invocation streams, and the sinks that receive them.
//
// A streaming invocation publishes zero or more OutputEvents followed by
// exactly one CompletionEvent. Sinks must be safe for concurrent use: the
// stdout and stderr drain loops of one invocation publish in parallel, and
// several invocations may share one sink.
package events
