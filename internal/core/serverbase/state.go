// SPDX-License-Identifier: MPL-2.0

package serverbase

const (
	// StateCreated is the state of a server whose Start has not been called.
	StateCreated State = iota
	// StateStarting means the listener is being set up.
	StateStarting
	// StateRunning means the server accepts requests.
	StateRunning
	// StateStopping means a graceful shutdown is in progress.
	StateStopping
	// StateStopped is terminal.
	StateStopped
	// StateFailed is terminal: the server failed to start or died while serving.
	StateFailed
)

// State is the lifecycle state of a server.
type State int32

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition can leave s.
func (s State) IsTerminal() bool {
	return s == StateStopped || s == StateFailed
}
