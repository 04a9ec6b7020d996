// SPDX-License-Identifier: MPL-2.0

// Package worker runs synchronous discovery and analysis work off the
// caller's goroutine so request handlers can stay responsive and give up
// waiting when their context ends.
package worker

import (
	"context"
	"errors"
	"fmt"
)

// ErrTaskPanicked is matched by errors.Is for every *PanicError.
var ErrTaskPanicked = errors.New("task panicked")

// PanicError carries the value a task panicked with.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Is reports whether target is ErrTaskPanicked.
func (e *PanicError) Is(target error) bool {
	return target == ErrTaskPanicked
}

type outcome[T any] struct {
	value T
	err   error
}

// Offload runs fn on its own goroutine and waits for it. A panic inside fn
// becomes a *PanicError. If ctx ends first, Offload returns ctx.Err() and
// the task's eventual result is discarded; fn itself is not interrupted.
func Offload[T any](ctx context.Context, fn func() T) (T, error) {
	done := make(chan outcome[T], 1)
	go func() {
		var out outcome[T]
		defer func() {
			if r := recover(); r != nil {
				out = outcome[T]{err: &PanicError{Value: r}}
			}
			done <- out
		}()
		out.value = fn()
	}()

	select {
	case out := <-done:
		return out.value, out.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// OffloadOr is Offload with a fallback value for failures, for callers that
// must always produce a result.
func OffloadOr[T any](ctx context.Context, fallback T, fn func() T) T {
	v, err := Offload(ctx, fn)
	if err != nil {
		return fallback
	}
	return v
}
