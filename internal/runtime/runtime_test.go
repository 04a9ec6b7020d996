// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"fmt"
	goruntime "runtime"
	"strings"
	"testing"
	"time"

	"github.com/cargoscope/cargoscope/internal/events"
	"github.com/cargoscope/cargoscope/internal/testutil"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if goruntime.GOOS == "windows" {
		t.Skip("shell fixtures require /bin/sh")
	}
}

func sh(script string) Invocation {
	return Invocation{Command: "sh", Args: []string{"-c", script}}
}

func TestRun_Success(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	res := NewManager(nil).Run(context.Background(), sh("echo out; echo err >&2"))
	if !res.Success {
		t.Fatalf("Success = false: %+v", res)
	}
	if res.ExitCode == nil || *res.ExitCode != 0 {
		t.Errorf("ExitCode = %v, want 0", res.ExitCode)
	}
	if res.Stdout != "out\n" || res.Stderr != "err\n" {
		t.Errorf("Stdout = %q, Stderr = %q", res.Stdout, res.Stderr)
	}
}

func TestRun_NonZeroExitIsAFlag(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	res := NewManager(nil).Run(context.Background(), sh("echo broken >&2; exit 3"))
	if res.Success {
		t.Fatal("Success = true for exit 3")
	}
	if res.ExitCode == nil || *res.ExitCode != 3 {
		t.Errorf("ExitCode = %v, want 3", res.ExitCode)
	}
	if res.Stderr != "broken\n" {
		t.Errorf("Stderr = %q", res.Stderr)
	}
}

func TestRun_SpawnFailure(t *testing.T) {
	t.Parallel()

	res := NewManager(nil).Run(context.Background(), Invocation{Command: "cargoscope-no-such-binary", Dir: t.TempDir()})
	if res.Success || res.ExitCode != nil {
		t.Errorf("result = %+v, want failure without exit code", res)
	}
	if !strings.HasPrefix(res.Stderr, "Failed to execute command: ") {
		t.Errorf("Stderr = %q", res.Stderr)
	}
}

func TestRun_ContextKillsProcess(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	res := NewManager(nil).Run(ctx, sh("sleep 10"))
	if res.Success || res.ExitCode != nil {
		t.Errorf("result = %+v, want killed without exit code", res)
	}
}

func TestStream_EveryLineOnceInOrder(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	const n = 200
	rec := events.NewRecorder()
	h := NewManager(rec).Stream(sh(fmt.Sprintf(
		`i=1; while [ $i -le %d ]; do echo "out $i"; echo "err $i" >&2; i=$((i+1)); done`, n)))
	done := h.Wait()

	outputs := rec.Outputs()
	if len(outputs) != 2*n {
		t.Fatalf("published %d lines, want %d", len(outputs), 2*n)
	}
	if len(done.Output) != 2*n {
		t.Fatalf("completion log has %d lines, want %d", len(done.Output), 2*n)
	}
	if !done.Success || done.ExitCode == nil || *done.ExitCode != 0 {
		t.Errorf("completion = success %v exit %v", done.Success, done.ExitCode)
	}
	if done.InvocationID != h.ID() || h.State() != StateCompleted {
		t.Errorf("id %q state %s", done.InvocationID, h.State())
	}

	next := map[events.Stream]int{events.StreamStdout: 1, events.StreamStderr: 1}
	prefix := map[events.Stream]string{events.StreamStdout: "out", events.StreamStderr: "err"}
	for _, e := range outputs {
		want := fmt.Sprintf("%s %d", prefix[e.Stream], next[e.Stream])
		if e.Line != want {
			t.Fatalf("%s line = %q, want %q", e.Stream, e.Line, want)
		}
		next[e.Stream]++
	}

	seen := make(map[string]bool, len(done.Output))
	for _, line := range done.Output {
		if seen[line] {
			t.Fatalf("duplicate line %q in completion log", line)
		}
		seen[line] = true
	}
	if len(rec.Completions()) != 1 {
		t.Errorf("completions = %d, want exactly 1", len(rec.Completions()))
	}
}

func TestStream_NonZeroExit(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	done := NewManager(nil).Stream(sh("echo nope; exit 101")).Wait()
	if done.Success {
		t.Error("Success = true for exit 101")
	}
	if done.ExitCode == nil || *done.ExitCode != 101 {
		t.Errorf("ExitCode = %v, want 101", done.ExitCode)
	}
	if len(done.Output) != 1 || done.Output[0] != "nope" {
		t.Errorf("Output = %q", done.Output)
	}
}

func TestStream_KilledHasNoExitCode(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	done := NewManager(nil).Stream(sh("kill -9 $$")).Wait()
	if done.Success || done.ExitCode != nil {
		t.Errorf("completion = success %v exit %v, want failure without code", done.Success, done.ExitCode)
	}
}

func TestStream_SpawnFailure(t *testing.T) {
	t.Parallel()

	rec := events.NewRecorder()
	h := NewManager(rec).Stream(Invocation{Command: "cargoscope-no-such-binary"})
	done := h.Wait()

	outputs := rec.Outputs()
	if len(outputs) != 1 || outputs[0].Stream != events.StreamStderr ||
		!strings.HasPrefix(outputs[0].Line, "Failed to start command: ") {
		t.Fatalf("outputs = %+v, want one stderr spawn error", outputs)
	}
	if done.Success || done.ExitCode != nil || len(done.Output) != 1 {
		t.Errorf("completion = %+v", done)
	}
	if h.State() != StateFailed {
		t.Errorf("State() = %s, want failed", h.State())
	}
}

func TestStream_ReturnsBeforeProcessEnds(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	h := NewManager(nil).Stream(sh("sleep 1"))
	select {
	case <-h.Done():
		t.Fatal("Stream blocked until the process finished")
	default:
	}
	h.Wait()
}

func TestStream_LineDecoding(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	done := NewManager(nil).Stream(sh(`printf 'crlf\r\n\377bad\nlast'`)).Wait()
	want := []string{"crlf", "\uFFFDbad", "last"}
	if len(done.Output) != len(want) {
		t.Fatalf("Output = %q, want %q", done.Output, want)
	}
	for i := range want {
		if done.Output[i] != want[i] {
			t.Errorf("Output[%d] = %q, want %q", i, done.Output[i], want[i])
		}
	}
}

func TestStream_Duration(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	clock := testutil.NewFakeClock(time.Time{})
	m := NewManager(nil, WithClock(clock.AdvanceOnRead(1500*time.Millisecond)))
	if got := m.Stream(sh("true")).Wait().Duration; got != 1500*time.Millisecond {
		t.Errorf("Duration = %s, want 1.5s", got)
	}
}

func TestStream_ConcurrentInvocationsAreIsolated(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	rec := events.NewRecorder()
	m := NewManager(rec)
	handles := make([]*Handle, 5)
	for i := range handles {
		handles[i] = m.Stream(sh(fmt.Sprintf(`for j in 1 2 3; do echo "job%d-$j"; done`, i)))
	}

	for i, h := range handles {
		done := h.Wait()
		if len(done.Output) != 3 {
			t.Fatalf("job %d output = %q", i, done.Output)
		}
		for _, line := range done.Output {
			if !strings.HasPrefix(line, fmt.Sprintf("job%d-", i)) {
				t.Errorf("job %d got foreign line %q", i, line)
			}
		}
	}

	perID := map[string]int{}
	for _, e := range rec.Outputs() {
		perID[e.InvocationID]++
	}
	if len(perID) != 5 {
		t.Errorf("distinct invocation IDs = %d, want 5", len(perID))
	}
}

type panickingSink struct{ *events.Recorder }

func (*panickingSink) PublishOutput(events.OutputEvent) { panic("sink exploded") }

func TestStream_PanicBecomesFailedCompletion(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	sink := &panickingSink{Recorder: events.NewRecorder()}
	h := NewManager(sink).Stream(sh("echo boom"))

	done := make(chan events.CompletionEvent, 1)
	go func() { done <- h.Wait() }()
	select {
	case c := <-done:
		if c.Success || c.ExitCode != nil {
			t.Errorf("completion = %+v, want failure", c)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("no completion after panic")
	}
}

// stdoutPanicSink fails only on stdout lines, leaving the stderr drain healthy.
type stdoutPanicSink struct{ *events.Recorder }

func (s *stdoutPanicSink) PublishOutput(e events.OutputEvent) {
	if e.Stream == events.StreamStdout {
		panic("stdout sink exploded")
	}
	s.Recorder.PublishOutput(e)
}

func TestStream_PanicOnOneStreamStillCompletes(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	sink := &stdoutPanicSink{Recorder: events.NewRecorder()}
	// Far more than a pipe buffer, so an unread stdout would block the child.
	script := `echo warming >&2; i=0; while [ $i -lt 200000 ]; do echo line$i; i=$((i+1)); done`
	h := NewManager(sink).Stream(sh(script))

	done := make(chan events.CompletionEvent, 1)
	go func() { done <- h.Wait() }()
	select {
	case c := <-done:
		if c.Success || c.ExitCode != nil {
			t.Errorf("completion = %+v, want failure", c)
		}
		if h.State() != StateFailed {
			t.Errorf("State() = %s, want failed", h.State())
		}
	case <-time.After(15 * time.Second):
		t.Fatalf("no completion after the stdout drain panicked; state=%s", h.State())
	}
	if got := len(sink.Completions()); got != 1 {
		t.Errorf("completions published = %d, want 1", got)
	}
}
