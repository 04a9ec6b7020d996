// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/cargoscope/cargoscope/internal/events"
)

type (
	// Manager spawns invocations. It holds no per-invocation state, so one
	// Manager can serve any number of concurrent invocations.
	Manager struct {
		sink   events.Sink
		logger *log.Logger
		now    func() time.Time
		newID  func() string
	}

	// Option configures a Manager.
	Option func(*Manager)
)

// WithLogger sets the logger for spawn and drain diagnostics.
func WithLogger(logger *log.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock replaces the clock used to measure invocation duration.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithIDGenerator replaces the invocation ID source.
func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) {
		if newID != nil {
			m.newID = newID
		}
	}
}

// NewManager creates a Manager publishing streaming events to sink. A nil
// sink discards events.
func NewManager(sink events.Sink, opts ...Option) *Manager {
	if sink == nil {
		sink = events.Discard{}
	}
	m := &Manager{
		sink:   sink,
		logger: log.New(io.Discard),
		now:    time.Now,
		newID:  newInvocationID,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run executes inv, waits for it to finish, and returns its captured output.
// ctx cancellation kills the process; the result then has no exit code.
func (m *Manager) Run(ctx context.Context, inv Invocation) *Result {
	res := &Result{ProjectPath: inv.Dir, Command: inv.Label()}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, inv.Command, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		m.logger.Debug("spawn failed", "command", res.Command, "dir", inv.Dir, "err", err)
		res.Stderr = fmt.Sprintf("Failed to execute command: %v", err)
		return res
	}

	err := cmd.Wait()
	res.Success, res.ExitCode = exitStatus(cmd, err)
	res.Stdout = strings.ToValidUTF8(stdout.String(), string(replacementChar))
	res.Stderr = strings.ToValidUTF8(stderr.String(), string(replacementChar))
	m.logger.Debug("command finished", "command", res.Command, "success", res.Success)
	return res
}
