// Package server provides the HTTP API for the innovation co-pilot.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hyperjump/copilot/internal/config"
	"github.com/hyperjump/copilot/internal/engine"
	"go.uber.org/zap"
)

// Server is the HTTP server for the co-pilot API.
type Server struct {
	engine *engine.Engine
	config *config.ServerConfig
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server around eng.
func NewServer(eng *engine.Engine, cfg *config.ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine: eng,
		config: cfg,
		logger: logger,
	}
}

// Handler returns the router with all routes and middleware mounted.
func (s *Server) Handler() http.Handler {
	timeout := s.config.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	// Credentials are only allowed for an explicit origin list; with the
	// wildcard the middleware would reflect any caller's origin.
	origins := s.config.CORSOrigins
	credentials := len(origins) > 0
	for _, o := range origins {
		if o == "*" {
			credentials = false
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: credentials,
		MaxAge:           300,
	}))

	r.Get("/", s.handleRoot)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/database-status", s.handleDatabaseStatus)
		r.Post("/generate-solutions", s.handleGenerateSolutions)
		r.Route("/admin", func(r chi.Router) {
			r.Post("/reindex", s.handleReindex)
			r.Get("/submissions", s.handleListSubmissions)
			r.Get("/submissions/pending", s.handleListPending)
			r.Get("/submissions/{id}", s.handleGetSubmission)
			r.Post("/submissions/{id}/review", s.handleReviewSubmission)
		})
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
