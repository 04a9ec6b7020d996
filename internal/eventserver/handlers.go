// SPDX-License-Identifier: MPL-2.0

package eventserver

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cargoscope/cargoscope/internal/discovery"
	"github.com/cargoscope/cargoscope/internal/runtime"
	"github.com/cargoscope/cargoscope/internal/worker"
)

const (
	subscriberBuffer = 256
	maxRunBody       = 64 << 10

	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Only loopback clients holding the token get this far.
	CheckOrigin: func(*http.Request) bool { return true },
}

type (
	// RunRequest is the body of POST /api/run. Command is the cargo subcommand.
	RunRequest struct {
		Path    string   `json:"path"`
		Command string   `json:"command"`
		Args    []string `json:"args,omitempty"`
	}

	// RunResponse is returned with 202 Accepted once the invocation is spawned.
	RunResponse struct {
		InvocationID string `json:"invocation_id"`
	}

	// ProjectsResponse is the body of GET /api/projects.
	ProjectsResponse struct {
		Projects    []discovery.Project    `json:"projects"`
		Diagnostics []discovery.Diagnostic `json:"diagnostics"`
	}

	errorResponse struct {
		Error string `json:"error"`
	}
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /events", s.authenticated(http.HandlerFunc(s.handleEvents)))
	mux.Handle("POST /api/run", s.authenticated(http.HandlerFunc(s.handleRun)))
	mux.Handle("GET /api/projects", s.authenticated(http.HandlerFunc(s.handleProjects)))
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// authenticated accepts "Authorization: Bearer <token>" or a token query
// parameter; browsers cannot set headers on websocket upgrades.
func (s *Server) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		presented := r.URL.Query().Get("token")
		if auth := r.Header.Get("Authorization"); auth != "" {
			presented = strings.TrimPrefix(auth, "Bearer ")
		}
		if subtle.ConstantTimeCompare([]byte(presented), []byte(s.token)) != 1 {
			s.logger.Warn("rejected request", "path", r.URL.Path, "remote", r.RemoteAddr)
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRunBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Path) == "" || strings.TrimSpace(req.Command) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "path and command are required"})
		return
	}
	if !s.IsRunning() {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "server shutting down"})
		return
	}

	inv := runtime.Cargo(req.Path, append([]string{req.Command}, req.Args...)...)
	id := s.launch(inv)
	s.logger.Info("invocation started", "id", id, "path", req.Path, "command", inv.Label())
	writeJSON(w, http.StatusAccepted, RunResponse{InvocationID: id})
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	root := r.URL.Query().Get("root")
	if root == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "root is required"})
		return
	}

	res, err := worker.Offload(r.Context(), func() discovery.Result {
		return s.discover(r.Context(), root)
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, r.Context().Err()) {
			status = http.StatusRequestTimeout
		}
		s.logger.Error("project discovery", "root", root, "err", err)
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	out := ProjectsResponse{Projects: res.Projects, Diagnostics: res.Diagnostics}
	if out.Projects == nil {
		out.Projects = []discovery.Project{}
	}
	if out.Diagnostics == nil {
		out.Diagnostics = []discovery.Diagnostic{}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleEvents streams every hub envelope as a JSON text message until the
// client disconnects or the server stops.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	// Counted before the hijack so Stop, which waits after Shutdown, sees it.
	s.conns.Add(1)
	defer s.conns.Done()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		return
	}
	defer conn.Close()

	sub, cancel := s.hub.Subscribe(subscriberBuffer)
	defer cancel()
	s.logger.Debug("event subscriber connected", "remote", r.RemoteAddr)

	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	// The read loop only notices closes and pongs; clients send nothing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingEvery)
	defer ticker.Stop()
	stop := s.Context().Done()

	for {
		select {
		case <-stop:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopping"),
				time.Now().Add(wsWriteWait))
			return
		case <-closed:
			s.logger.Debug("event subscriber disconnected", "remote", r.RemoteAddr)
			return
		case env, ok := <-sub:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
