// SPDX-License-Identifier: MPL-2.0

// Package cleaner deletes cargo build output and reports roughly how much
// space it freed.
package cleaner

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/cargoscope/cargoscope/internal/aggregate"
	"github.com/cargoscope/cargoscope/internal/discovery"
)

// DebugProfileDir is the target subdirectory of the dev profile.
const DebugProfileDir = "debug"

type (
	// Result is the outcome of cleaning one project.
	Result struct {
		Path       string `json:"path" yaml:"path"`
		Name       string `json:"name" yaml:"name"`
		FreedBytes uint64 `json:"freed_bytes" yaml:"freed_bytes"`
		Success    bool   `json:"success" yaml:"success"`
		Error      string `json:"error,omitempty" yaml:"error,omitempty"`
	}

	// Cleaner removes target directories.
	Cleaner struct {
		logger *log.Logger
		remove func(path string) error
	}

	// Option configures a Cleaner.
	Option func(*Cleaner)
)

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Cleaner) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Cleaner.
func New(opts ...Option) *Cleaner {
	c := &Cleaner{logger: log.New(io.Discard), remove: os.RemoveAll}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Clean removes projectPath/target, or only target/debug when debugOnly is
// set. sizeHint is the target size the caller already knows (from a scan);
// zero means measure it first.
//
// FreedBytes is sizeHint for a full clean and half of it for a debug-only
// clean. The halving is an estimate; release artifacts usually account for
// the rest. A project without a target directory succeeds with nothing freed.
func (c *Cleaner) Clean(projectPath string, debugOnly bool, sizeHint uint64) Result {
	res := Result{Path: projectPath, Name: aggregate.DisplayName(projectPath)}
	target := filepath.Join(projectPath, discovery.BuildDirName)

	if _, err := os.Stat(target); errors.Is(err, fs.ErrNotExist) {
		res.Success = true
		return res
	}
	if sizeHint == 0 {
		sizeHint = discovery.DirSize(target)
	}

	victim := target
	if debugOnly {
		victim = filepath.Join(target, DebugProfileDir)
	}
	if err := c.remove(victim); err != nil {
		c.logger.Warn("clean failed", "path", victim, "err", err)
		res.Error = err.Error()
		return res
	}

	res.Success = true
	res.FreedBytes = sizeHint
	if debugOnly {
		res.FreedBytes = sizeHint / 2
	}
	c.logger.Debug("cleaned", "path", victim, "freed", res.FreedBytes)
	return res
}

// CleanAll cleans every path in order. sizeHints[i], when present, is the
// hint for projectPaths[i].
func (c *Cleaner) CleanAll(projectPaths []string, debugOnly bool, sizeHints []uint64) []Result {
	out := make([]Result, len(projectPaths))
	for i, p := range projectPaths {
		var hint uint64
		if i < len(sizeHints) {
			hint = sizeHints[i]
		}
		out[i] = c.Clean(p, debugOnly, hint)
	}
	return out
}

// TotalFreed sums FreedBytes over successful results.
func TotalFreed(results []Result) uint64 {
	var total uint64
	for _, r := range results {
		if r.Success {
			total += r.FreedBytes
		}
	}
	return total
}
