// SPDX-License-Identifier: MPL-2.0

package eventserver

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/cargoscope/cargoscope/internal/config"
	"github.com/cargoscope/cargoscope/internal/core/serverbase"
	"github.com/cargoscope/cargoscope/internal/discovery"
	"github.com/cargoscope/cargoscope/internal/events"
	"github.com/cargoscope/cargoscope/internal/runtime"
)

const (
	// DefaultStartupTimeout bounds how long Start waits for the listener.
	DefaultStartupTimeout = 5 * time.Second
	// DefaultShutdownTimeout bounds graceful HTTP shutdown in Stop.
	DefaultShutdownTimeout = 5 * time.Second

	tokenBytes = 32
)

type (
	// Launcher starts a streaming invocation and returns its ID.
	Launcher func(runtime.Invocation) string

	// Discoverer lists projects below root.
	Discoverer func(ctx context.Context, root string) discovery.Result

	// Server serves the event stream and the run API over HTTP.
	Server struct {
		*serverbase.Base

		hub      *events.Hub
		launch   Launcher
		discover Discoverer
		logger   *log.Logger

		addr            string
		token           string
		startupTimeout  time.Duration
		shutdownTimeout time.Duration

		mu        sync.Mutex
		listener  net.Listener
		httpSrv   *http.Server
		boundAddr string

		// conns tracks hijacked websocket connections, which http.Server.Shutdown ignores.
		conns sync.WaitGroup
	}

	// Option configures a Server.
	Option func(*Server)
)

// WithAddr sets the listen address. Use port 0 for an ephemeral port.
func WithAddr(addr string) Option {
	return func(s *Server) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithToken fixes the bearer token instead of generating a random one.
func WithToken(token string) Option {
	return func(s *Server) {
		if token != "" {
			s.token = token
		}
	}
}

// WithDiscoverer replaces project discovery for /api/projects.
func WithDiscoverer(d Discoverer) Option {
	return func(s *Server) {
		if d != nil {
			s.discover = d
		}
	}
}

// WithTimeouts overrides the startup and shutdown timeouts. Zero keeps the default.
func WithTimeouts(startup, shutdown time.Duration) Option {
	return func(s *Server) {
		if startup > 0 {
			s.startupTimeout = startup
		}
		if shutdown > 0 {
			s.shutdownTimeout = shutdown
		}
	}
}

// New creates a server that forwards hub events and launches runs through manager.
// The server does not listen until Start.
func New(hub *events.Hub, manager *runtime.Manager, opts ...Option) (*Server, error) {
	if hub == nil || manager == nil {
		return nil, errors.New("eventserver: hub and manager are required")
	}

	s := &Server{
		Base: serverbase.NewBase(),
		hub:  hub,
		launch: func(inv runtime.Invocation) string {
			return manager.Stream(inv).ID()
		},
		logger:          log.New(io.Discard),
		addr:            config.DefaultServerAddr,
		startupTimeout:  DefaultStartupTimeout,
		shutdownTimeout: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.discover == nil {
		d := discovery.New(discovery.WithLogger(s.logger))
		s.discover = d.Discover
	}
	if s.token == "" {
		token, err := generateToken(tokenBytes)
		if err != nil {
			return nil, fmt.Errorf("generate token: %w", err)
		}
		s.token = token
	}
	return s, nil
}

// Start binds the listener and begins serving. It returns once the server
// accepts connections, or with the error that prevented it.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Begin(ctx); err != nil {
		return err
	}

	startupCtx, cancel := context.WithTimeout(ctx, s.startupTimeout)
	defer cancel()

	var lc net.ListenConfig
	listener, err := lc.Listen(startupCtx, "tcp", s.addr)
	if err != nil {
		s.Fail(fmt.Errorf("failed to listen on %s: %w", s.addr, err))
		return s.LastError()
	}

	srv := &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.Context() },
	}

	s.mu.Lock()
	s.listener = listener
	s.httpSrv = srv
	s.boundAddr = listener.Addr().String()
	s.mu.Unlock()

	s.Go(func(context.Context) {
		s.MarkReady()
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Report(fmt.Errorf("serve: %w", err))
		}
	})

	select {
	case <-s.Ready():
		s.logger.Info("event server started", "addr", s.Addr())
		return nil
	case <-startupCtx.Done():
		s.Fail(fmt.Errorf("startup timeout: %w", startupCtx.Err()))
		_ = listener.Close()
		return s.LastError()
	}
}

// Stop shuts the server down gracefully and closes open event streams.
// Calling it more than once is safe.
func (s *Server) Stop() error {
	if !s.BeginStop() {
		s.Wait()
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.mu.Lock()
	srv := s.httpSrv
	s.mu.Unlock()

	var err error
	if srv != nil {
		if err = srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("event server shutdown", "err", err)
		}
	}
	s.conns.Wait()
	s.Finish()
	s.logger.Info("event server stopped")
	return err
}

// Addr returns the bound host:port, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boundAddr
}

// URL returns the HTTP base URL, e.g. "http://127.0.0.1:7420".
func (s *Server) URL() string {
	addr := s.Addr()
	if addr == "" {
		return ""
	}
	return "http://" + addr
}

// Token returns the bearer token clients must present.
func (s *Server) Token() string {
	return s.token
}

func generateToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
