// SPDX-License-Identifier: MPL-2.0

package worker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestOffload_ReturnsValue(t *testing.T) {
	t.Parallel()

	got, err := Offload(context.Background(), func() int { return 42 })
	if err != nil {
		t.Fatalf("Offload() error = %v", err)
	}
	if got != 42 {
		t.Errorf("Offload() = %d, want 42", got)
	}
}

func TestOffload_Panic(t *testing.T) {
	t.Parallel()

	got, err := Offload(context.Background(), func() []string { panic("walk exploded") })
	if !errors.Is(err, ErrTaskPanicked) {
		t.Fatalf("Offload() error = %v, want ErrTaskPanicked", err)
	}
	var pe *PanicError
	if !errors.As(err, &pe) || pe.Value != "walk exploded" {
		t.Errorf("panic value = %v", err)
	}
	if got != nil {
		t.Errorf("Offload() = %v, want zero value", got)
	}
}

func TestOffload_ContextDone(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := Offload(ctx, func() int {
		<-release
		return 1
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Offload() error = %v, want context.Canceled", err)
	}
}

func TestOffloadOr(t *testing.T) {
	t.Parallel()

	got := OffloadOr(context.Background(), "fallback", func() string { panic("boom") })
	if got != "fallback" {
		t.Errorf("OffloadOr() = %q, want fallback", got)
	}
	got = OffloadOr(context.Background(), "fallback", func() string { return "ok" })
	if got != "ok" {
		t.Errorf("OffloadOr() = %q, want ok", got)
	}
}
