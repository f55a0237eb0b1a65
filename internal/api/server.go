// Package api exposes the ingestion pipeline over HTTP: a trigger
// endpoint that runs a full ingestion and returns the report, a run
// progress lookup backed by Redis, and health probes.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

// Server represents the API server.
type Server struct {
	handler http.Handler
	server  *http.Server
	router  *chi.Mux
}

// NewServer creates a new API server around the ingestion handlers.
func NewServer(runner IngestRunner, health *HealthChecker, rdb *redis.Client) *Server {
	h := &Handlers{runner: runner, rdb: rdb}
	router := SetupRoutes(h, health)

	return &Server{
		handler: router,
		router:  router,
	}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.handler,
		// An ingestion run downloads and uploads every photo inline, so
		// the write timeout has to cover a full run.
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.handler
}
