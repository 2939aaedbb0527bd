package api

import (
	"context"
	"net/http"
	"time"
)

// Server wraps the HTTP server for the newsletter service.
type Server struct {
	handler http.Handler
	server  *http.Server
}

// NewServer creates an API server around the given handler set.
func NewServer(h *Handlers) *Server {
	return &Server{handler: SetupRoutes(h)}
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe starts the HTTP server on addr and blocks until it stops.
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.handler,
		// Write timeout leaves room for a full newsletter dispatch run.
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server, letting in-flight requests finish.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
