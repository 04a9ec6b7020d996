// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cargoscope/cargoscope/internal/events"
)

const (
	// StateSpawning is the state before the child process has started.
	StateSpawning State = iota
	// StateRunning means the child started and both drain loops are reading.
	StateRunning
	// StateDraining means one output stream has reached EOF and the other
	// is still being read.
	StateDraining
	// StateCompleted means the child exited and the completion was published.
	StateCompleted
	// StateFailed means the child never started, or the supervising
	// goroutine faulted; a failed completion was published.
	StateFailed
)

const replacementChar = '\uFFFD'

var errDrainPanicked = errors.New("output drain panicked")

type (
	// State is the lifecycle state of a streaming invocation.
	State int32

	// Handle tracks one streaming invocation.
	Handle struct {
		id         string
		state      atomic.Int32
		done       chan struct{}
		completion events.CompletionEvent
	}

	// outputLog is the single ordered log shared by both drain loops.
	outputLog struct {
		mu    sync.Mutex
		lines []string
	}
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateSpawning:
		return "spawning"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// ID returns the invocation ID stamped on every event of this invocation.
func (h *Handle) ID() string { return h.id }

// State returns the current lifecycle state.
func (h *Handle) State() State { return State(h.state.Load()) }

// Done is closed after the completion event has been published.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the invocation completes and returns the completion
// event that was published.
func (h *Handle) Wait() events.CompletionEvent {
	<-h.done
	return h.completion
}

// Stream spawns inv in the background and returns immediately. Output lines
// are published to the Manager's sink as they are read; a single
// CompletionEvent follows once the process has exited and both pipes are
// drained. There is no way to cancel a streaming invocation.
func (m *Manager) Stream(inv Invocation) *Handle {
	h := &Handle{id: m.newID(), done: make(chan struct{})}
	h.state.Store(int32(StateSpawning))
	go m.supervise(h, inv)
	return h
}

func (m *Manager) supervise(h *Handle, inv Invocation) {
	start := m.now()
	completion := events.CompletionEvent{
		InvocationID: h.id,
		ProjectPath:  inv.Dir,
		Command:      inv.Label(),
	}
	var out outputLog

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("streaming invocation panicked", "command", completion.Command, "panic", r)
			completion.Success = false
			completion.ExitCode = nil
			completion.Output = out.snapshot()
			h.state.Store(int32(StateFailed))
		}
		completion.Duration = m.now().Sub(start)
		h.completion = completion
		m.sink.PublishCompletion(completion)
		close(h.done)
	}()

	cmd := exec.Command(inv.Command, inv.Args...)
	cmd.Dir = inv.Dir
	stdout, stderr, err := pipes(cmd)
	if err == nil {
		err = cmd.Start()
	}
	if err != nil {
		line := fmt.Sprintf("Failed to start command: %v", err)
		m.logger.Debug("spawn failed", "command", completion.Command, "dir", inv.Dir, "err", err)
		m.sink.PublishOutput(events.OutputEvent{InvocationID: h.id, Line: line, Stream: events.StreamStderr})
		completion.Output = []string{line}
		h.state.Store(int32(StateFailed))
		return
	}
	h.state.Store(int32(StateRunning))

	kill := func() { _ = cmd.Process.Kill() }
	var g errgroup.Group
	g.Go(func() error { return m.drain(h, stdout, events.StreamStdout, &out, kill) })
	g.Go(func() error { return m.drain(h, stderr, events.StreamStderr, &out, kill) })
	if err := g.Wait(); err != nil {
		m.logger.Warn("output drain ended early", "command", completion.Command, "err", err)
		if errors.Is(err, errDrainPanicked) {
			_ = cmd.Wait()
			completion.Output = out.snapshot()
			h.state.Store(int32(StateFailed))
			return
		}
	}

	// Both pipes are at EOF, so Wait only reaps the process.
	waitErr := cmd.Wait()
	completion.Success, completion.ExitCode = exitStatus(cmd, waitErr)
	completion.Output = out.snapshot()
	h.state.Store(int32(StateCompleted))
}

// drain reads r line by line. Each line is appended to the shared log, then
// published. Invalid UTF-8 is replaced rather than dropped. A panic while
// publishing kills the child and is returned as errDrainPanicked once r
// reaches EOF; r is read to the end so neither the child nor the sibling
// drain can stall on a full pipe.
func (m *Manager) drain(h *Handle, r io.Reader, stream events.Stream, out *outputLog, kill func()) (err error) {
	defer h.state.CompareAndSwap(int32(StateRunning), int32(StateDraining))
	defer func() {
		if p := recover(); p != nil {
			kill()
			_, _ = io.Copy(io.Discard, r)
			err = fmt.Errorf("%w: %s: %v", errDrainPanicked, stream, p)
		}
	}()

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimSuffix(line, "\n")
			line = strings.TrimSuffix(line, "\r")
			line = strings.ToValidUTF8(line, string(replacementChar))
			out.append(line)
			m.sink.PublishOutput(events.OutputEvent{InvocationID: h.id, Line: line, Stream: stream})
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", stream, err)
		}
	}
}

func pipes(cmd *exec.Cmd) (io.ReadCloser, io.ReadCloser, error) {
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, err
	}
	return stdout, stderr, nil
}

func (l *outputLog) append(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, line)
}

func (l *outputLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

func newInvocationID() string {
	return uuid.NewString()
}
