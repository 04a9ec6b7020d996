// SPDX-License-Identifier: MPL-2.0

package events

import (
	"fmt"
	"io"
	"slices"
	"sync"
)

type (
	// Discard drops every event.
	Discard struct{}

	// Recorder keeps every event in memory. It is mainly used by tests and by
	// batch-style callers that want the stream after the fact.
	Recorder struct {
		mu          sync.Mutex
		outputs     []OutputEvent
		completions []CompletionEvent
		done        chan struct{}
	}

	// Multi fans events out to several sinks in order.
	Multi []Sink

	// Formatter renders events for a WriterSink.
	Formatter interface {
		FormatOutput(OutputEvent) string
		FormatCompletion(CompletionEvent) string
	}

	// WriterSink writes rendered events to stdout/stderr writers. Writes are
	// serialized so lines from concurrent drain loops never interleave
	// mid-line.
	WriterSink struct {
		mu     sync.Mutex
		stdout io.Writer
		stderr io.Writer
		format Formatter
	}

	plainFormatter struct{}
)

// PublishOutput implements Sink.
func (Discard) PublishOutput(OutputEvent) {}

// PublishCompletion implements Sink.
func (Discard) PublishCompletion(CompletionEvent) {}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{done: make(chan struct{})}
}

// PublishOutput implements Sink.
func (r *Recorder) PublishOutput(e OutputEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outputs = append(r.outputs, e)
}

// PublishCompletion implements Sink. The first completion closes Done.
func (r *Recorder) PublishCompletion(e CompletionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completions = append(r.completions, e)
	if len(r.completions) == 1 {
		close(r.done)
	}
}

// Done is closed once the first completion has been recorded.
func (r *Recorder) Done() <-chan struct{} { return r.done }

// Outputs returns a copy of the recorded output events.
func (r *Recorder) Outputs() []OutputEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.outputs)
}

// Completions returns a copy of the recorded completion events.
func (r *Recorder) Completions() []CompletionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.completions)
}

// PublishOutput implements Sink.
func (m Multi) PublishOutput(e OutputEvent) {
	for _, s := range m {
		s.PublishOutput(e)
	}
}

// PublishCompletion implements Sink.
func (m Multi) PublishCompletion(e CompletionEvent) {
	for _, s := range m {
		s.PublishCompletion(e)
	}
}

// NewWriterSink creates a WriterSink. Output lines go to the writer matching
// their stream; completions go to stderr. A nil formatter prints raw lines.
func NewWriterSink(stdout, stderr io.Writer, format Formatter) *WriterSink {
	if format == nil {
		format = plainFormatter{}
	}
	return &WriterSink{stdout: stdout, stderr: stderr, format: format}
}

// PublishOutput implements Sink.
func (w *WriterSink) PublishOutput(e OutputEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := w.stdout
	if e.Stream == StreamStderr {
		out = w.stderr
	}
	_, _ = fmt.Fprintln(out, w.format.FormatOutput(e))
}

// PublishCompletion implements Sink.
func (w *WriterSink) PublishCompletion(e CompletionEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, _ = fmt.Fprintln(w.stderr, w.format.FormatCompletion(e))
}

func (plainFormatter) FormatOutput(e OutputEvent) string { return e.Line }

func (plainFormatter) FormatCompletion(e CompletionEvent) string {
	code := "none"
	if e.ExitCode != nil {
		code = fmt.Sprint(*e.ExitCode)
	}
	return fmt.Sprintf("%s finished: success=%t exit=%s in %s", e.Command, e.Success, code, e.Duration)
}
