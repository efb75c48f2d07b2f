// Package httpapi is the optional HTTP live-ops adapter: GET /health
// answers a single JSON health snapshot, GET /events upgrades to a
// WebSocket and streams eventfeed.Event values as they are published.
// Grounded on the teacher's internal/api/server.go http.Server
// Start/Shutdown lifecycle, generalised from a chat API to an
// operational one.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/araliya/araliyad/internal/kernel"
	"github.com/araliya/araliyad/internal/kernel/eventfeed"
)

// Server is the HTTP live-ops adapter.
type Server struct {
	logger *slog.Logger
	health *kernel.HealthRegistry
	events *eventfeed.Bus

	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// New builds a live-ops server bound to addr (host:port).
func New(addr string, health *kernel.HealthRegistry, events *eventfeed.Bus, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		logger: logger,
		health: health,
		events: events,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The live-ops feed is a read-only operational surface with no
			// browser-origin caller; same-origin restrictions add nothing here.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /events", s.handleEvents)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // streaming connections must not be cut off
	}
	return s
}

// Start begins serving and blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("live-ops http server listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snapshot := s.health.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	status := http.StatusOK
	if !s.health.AllHealthy() {
		status = http.StatusServiceUnavailable
	}
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]any{
		"healthy":    s.health.AllHealthy(),
		"subsystems": snapshot,
	}); err != nil {
		s.logger.Error("failed to encode health response", "error", err)
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("event feed upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub := s.events.Subscribe(64)
	defer s.events.Unsubscribe(sub)

	// Drain client-initiated frames (pings, close) so the connection's
	// read deadline machinery keeps working; we never expect real data.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				conn.Close()
				return
			}
		}
	}()

	for event := range sub {
		if err := conn.WriteJSON(event); err != nil {
			return
		}
	}
}

// String renders the server for debug logs.
func (s *Server) String() string {
	return fmt.Sprintf("httpapi.Server{addr=%s}", s.httpServer.Addr)
}
