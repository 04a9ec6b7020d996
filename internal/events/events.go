// SPDX-License-Identifier: MPL-2.0

package events

import (
	"encoding/json"
	"time"
)

const (
	// StreamStdout tags lines read from the child's standard output.
	StreamStdout Stream = "stdout"
	// StreamStderr tags lines read from the child's standard error.
	StreamStderr Stream = "stderr"

	// ChannelOutput is the channel name carrying OutputEvents.
	ChannelOutput = "cargo-output"
	// ChannelComplete is the channel name carrying CompletionEvents.
	ChannelComplete = "cargo-complete"
)

type (
	// Stream names the pipe a line came from.
	Stream string

	// OutputEvent is one decoded line of child output.
	OutputEvent struct {
		InvocationID string `json:"invocation_id" yaml:"invocation_id"`
		Line         string `json:"line" yaml:"line"`
		Stream       Stream `json:"stream" yaml:"stream"`
	}

	// CompletionEvent is published once per invocation after both output
	// streams have been fully drained.
	CompletionEvent struct {
		InvocationID string `json:"invocation_id" yaml:"invocation_id"`
		ProjectPath  string `json:"project_path" yaml:"project_path"`
		Command      string `json:"command" yaml:"command"`
		Success      bool   `json:"success" yaml:"success"`
		// ExitCode is nil when the process did not start or ended without
		// an exit status (for example when killed by a signal).
		ExitCode *int `json:"exit_code" yaml:"exit_code"`
		// Output holds every published line in publish order.
		Output   []string      `json:"output" yaml:"output"`
		Duration time.Duration `json:"-" yaml:"-"`
	}

	// Sink receives invocation notifications.
	Sink interface {
		PublishOutput(OutputEvent)
		PublishCompletion(CompletionEvent)
	}
)

// MarshalJSON renders Duration as integer milliseconds under duration_ms.
func (e CompletionEvent) MarshalJSON() ([]byte, error) {
	type plain CompletionEvent
	return json.Marshal(struct {
		plain
		DurationMS int64 `json:"duration_ms"`
	}{plain: plain(e), DurationMS: e.Duration.Milliseconds()})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (e *CompletionEvent) UnmarshalJSON(data []byte) error {
	type plain CompletionEvent
	var aux struct {
		plain
		DurationMS int64 `json:"duration_ms"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*e = CompletionEvent(aux.plain)
	e.Duration = time.Duration(aux.DurationMS) * time.Millisecond
	return nil
}
