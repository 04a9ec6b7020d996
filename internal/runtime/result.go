// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"os/exec"
)

// Result is the outcome of a batch invocation.
type Result struct {
	ProjectPath string `json:"project_path" yaml:"project_path"`
	Command     string `json:"command" yaml:"command"`
	// Success is true iff the process exited with code 0.
	Success bool   `json:"success" yaml:"success"`
	Stdout  string `json:"stdout" yaml:"stdout"`
	Stderr  string `json:"stderr" yaml:"stderr"`
	// ExitCode is nil when the process could not be started or did not
	// exit normally.
	ExitCode *int `json:"exit_code" yaml:"exit_code"`
}

// exitStatus maps the error returned by cmd.Wait or cmd.Run, together with
// the process state, to (success, exit code). A process terminated by a
// signal has no exit code.
func exitStatus(cmd *exec.Cmd, err error) (bool, *int) {
	state := cmd.ProcessState
	if exitErr := (*exec.ExitError)(nil); errors.As(err, &exitErr) {
		state = exitErr.ProcessState
	}
	if state == nil {
		return false, nil
	}
	code := state.ExitCode()
	if code < 0 {
		return false, nil
	}
	return err == nil && code == 0, &code
}
