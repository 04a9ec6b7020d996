// SPDX-License-Identifier: MPL-2.0

// Package serverbase holds the lifecycle state machine shared by long-running
// cargoscope servers. The event server embeds Base to get lock-free state reads,
// one-shot start and stop transitions, tracked goroutines, and an async error
// channel.
package serverbase
