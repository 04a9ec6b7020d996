// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/shell"
)

// CargoCommand is the executable used by presets and tasks.
const CargoCommand = "cargo"

// ErrEmptyTask is returned when a task definition expands to no arguments.
var ErrEmptyTask = errors.New("task has no arguments")

// Invocation is one process to spawn. It is not retained after spawning.
type Invocation struct {
	Command string
	Args    []string
	// Dir is the working directory, normally a project path.
	Dir string
}

// Label is a human-readable rendering of the command line.
func (inv Invocation) Label() string {
	if len(inv.Args) == 0 {
		return inv.Command
	}
	return inv.Command + " " + strings.Join(inv.Args, " ")
}

// Cargo returns an invocation of `cargo <args...>` in dir.
func Cargo(dir string, args ...string) Invocation {
	return Invocation{Command: CargoCommand, Args: args, Dir: dir}
}

// ParseTask splits a shell-quoted cargo argument string, as stored in the
// config's tasks table, into arguments. Quotes and escapes follow POSIX
// shell rules; variable references are expanded from env (nil means none).
func ParseTask(spec string, env func(string) string) ([]string, error) {
	if env == nil {
		env = func(string) string { return "" }
	}
	args, err := shell.Fields(spec, env)
	if err != nil {
		return nil, fmt.Errorf("parse task %q: %w", spec, err)
	}
	if len(args) == 0 {
		return nil, ErrEmptyTask
	}
	return args, nil
}
