// SPDX-License-Identifier: MPL-2.0

// Package eventserver exposes streaming cargo invocations to a local observer.
//
// The server listens on loopback and requires the bearer token printed at
// startup on every endpoint except /health. Clients open a websocket on
// /events to receive every Envelope published on the hub, start invocations
// with POST /api/run, and list projects with GET /api/projects.
package eventserver
