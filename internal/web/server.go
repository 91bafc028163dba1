// Package web hosts the HTTP API for the pigeon scanner: registration,
// similarity matching and catalog browsing.
package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/fugjoo/pigeon-scanner/internal/config"
	"github.com/fugjoo/pigeon-scanner/internal/database"
	"github.com/fugjoo/pigeon-scanner/internal/match"
	"github.com/fugjoo/pigeon-scanner/internal/registry"
	"github.com/fugjoo/pigeon-scanner/internal/storage"
	"github.com/fugjoo/pigeon-scanner/internal/web/handlers"
	"github.com/fugjoo/pigeon-scanner/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	config     *config.Config
	router     *chi.Mux
	httpServer *http.Server

	catalog  database.CatalogWriter
	engine   *match.Engine
	registry *registry.Service
	embedder registry.Embedder
	files    *storage.FileStore
	db       handlers.Pinger
}

// NewServer creates a new web server
func NewServer(
	cfg *config.Config,
	catalog database.CatalogWriter,
	embedder registry.Embedder,
	files *storage.FileStore,
	db handlers.Pinger,
) *Server {
	r := chi.NewRouter()

	s := &Server{
		config:   cfg,
		router:   r,
		catalog:  catalog,
		engine:   match.NewEngine(catalog),
		registry: registry.NewService(catalog, embedder, files),
		embedder: embedder,
		files:    files,
		db:       db,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(2 * time.Minute))
	r.Use(middleware.CORS())

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute, // photo uploads and first-request model load
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
