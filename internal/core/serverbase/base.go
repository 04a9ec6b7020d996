// SPDX-License-Identifier: MPL-2.0

package serverbase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrAlreadyStarted is returned by Begin when the server left StateCreated.
var ErrAlreadyStarted = errors.New("server already started")

type (
	// Base is embedded by concrete servers. An instance is single-use: once it
	// reaches a terminal state, build a new server.
	Base struct {
		state atomic.Int32

		mu      sync.Mutex
		lastErr error

		ctx    context.Context
		cancel context.CancelFunc
		wg     sync.WaitGroup
		ready  chan struct{}
		errCh  chan error
		// errClosed guards errCh against sends after Finish; held under mu.
		errClosed bool
	}

	// Option configures a Base.
	Option func(*Base)
)

// WithErrorBuffer sets the capacity of the async error channel (default 1).
func WithErrorBuffer(size int) Option {
	return func(b *Base) {
		if size > 0 {
			b.errCh = make(chan error, size)
		}
	}
}

// NewBase returns a Base in StateCreated.
func NewBase(opts ...Option) *Base {
	b := &Base{
		ready: make(chan struct{}),
		errCh: make(chan error, 1),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// State returns the current state without locking.
func (b *Base) State() State {
	return State(b.state.Load())
}

// IsRunning reports whether the server is in StateRunning.
func (b *Base) IsRunning() bool {
	return b.State() == StateRunning
}

// Err delivers errors raised after a successful start. The channel is closed by Finish.
func (b *Base) Err() <-chan error {
	return b.errCh
}

// LastError returns the error that moved the server to StateFailed.
func (b *Base) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// Begin moves the server from Created to Starting and creates the lifecycle
// context. A context that is already done fails the server immediately.
func (b *Base) Begin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		b.Fail(fmt.Errorf("context cancelled before start: %w", err))
		return b.LastError()
	}
	if !b.state.CompareAndSwap(int32(StateCreated), int32(StateStarting)) {
		return fmt.Errorf("%w (state %s)", ErrAlreadyStarted, b.State())
	}
	b.mu.Lock()
	b.ctx, b.cancel = context.WithCancel(context.Background())
	b.mu.Unlock()
	return nil
}

// MarkReady moves Starting to Running and releases Ready waiters.
func (b *Base) MarkReady() {
	if b.state.CompareAndSwap(int32(StateStarting), int32(StateRunning)) {
		close(b.ready)
	}
}

// Fail records err, cancels the lifecycle context and publishes err on Err.
func (b *Base) Fail(err error) {
	b.mu.Lock()
	b.lastErr = err
	cancel := b.cancel
	b.mu.Unlock()

	b.state.Store(int32(StateFailed))
	if cancel != nil {
		cancel()
	}
	b.Report(err)
}

// BeginStop moves a starting or running server to Stopping and cancels its
// context. It returns false when there is nothing to shut down; a server that
// never started goes straight to Stopped.
func (b *Base) BeginStop() bool {
	for {
		cur := b.State()
		switch cur {
		case StateCreated:
			if b.state.CompareAndSwap(int32(StateCreated), int32(StateStopped)) {
				return false
			}
		case StateStarting, StateRunning:
			if b.state.CompareAndSwap(int32(cur), int32(StateStopping)) {
				b.mu.Lock()
				cancel := b.cancel
				b.mu.Unlock()
				if cancel != nil {
					cancel()
				}
				return true
			}
		default:
			return false
		}
	}
}

// Finish waits for tracked goroutines, marks the server Stopped and closes Err.
func (b *Base) Finish() {
	b.wg.Wait()
	if b.State() != StateFailed {
		b.state.Store(int32(StateStopped))
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.errClosed {
		b.errClosed = true
		close(b.errCh)
	}
}

// Go runs fn on a tracked goroutine with the lifecycle context.
func (b *Base) Go(fn func(ctx context.Context)) {
	ctx := b.Context()
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		fn(ctx)
	}()
}

// Wait blocks until every goroutine started through Go has returned.
func (b *Base) Wait() {
	b.wg.Wait()
}

// Ready is closed once the server reaches StateRunning.
func (b *Base) Ready() <-chan struct{} {
	return b.ready
}

// WaitReady blocks until Ready is closed or ctx is done.
func (b *Base) WaitReady(ctx context.Context) error {
	select {
	case <-b.ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for server ready: %w", ctx.Err())
	}
}

// Context is the lifecycle context, cancelled on stop or failure. It is
// context.Background before Begin.
func (b *Base) Context() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctx == nil {
		return context.Background()
	}
	return b.ctx
}

// Report publishes err on Err without blocking; it is dropped when the buffer is full.
func (b *Base) Report(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.errClosed {
		return
	}
	select {
	case b.errCh <- err:
	default:
	}
}
