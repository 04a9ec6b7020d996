// SPDX-License-Identifier: MPL-2.0

package aggregate

import (
	"context"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/cargoscope/cargoscope/internal/runtime"
)

// DefaultConcurrency bounds how many external per-project tool runs are in
// flight at once.
const DefaultConcurrency = 4

// Runner executes a batch invocation. *runtime.Manager satisfies it.
type Runner interface {
	Run(ctx context.Context, inv runtime.Invocation) *runtime.Result
}

// DisplayName is the name a project is reported under: its directory's base
// name, or the path itself when it has none.
func DisplayName(projectPath string) string {
	base := filepath.Base(filepath.Clean(projectPath))
	if base == "." || base == string(filepath.Separator) || base == "" {
		return projectPath
	}
	return base
}

// fanOut runs fn for every path with at most DefaultConcurrency calls in
// flight and returns the results in input order. fn must not fail; per-item
// errors belong in T.
func fanOut[T any](ctx context.Context, paths []string, fn func(context.Context, string) T) []T {
	out := make([]T, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(DefaultConcurrency)
	for i, p := range paths {
		g.Go(func() error {
			out[i] = fn(gctx, p)
			return nil
		})
	}
	_ = g.Wait()
	return out
}
