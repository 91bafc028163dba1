package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fugjoo/pigeon-scanner/internal/web/handlers"
	"github.com/fugjoo/pigeon-scanner/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.db, s.catalog)
	pigeonsHandler := handlers.NewPigeonsHandler(s.catalog, s.registry)
	matchHandler := handlers.NewMatchHandler(s.engine, s.embedder)
	sightingsHandler := handlers.NewSightingsHandler(s.registry)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", healthHandler.Check)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireAPIKey(s.config.Server.APIKey))

		// Catalog
		r.Get("/pigeons", pigeonsHandler.List)
		r.Post("/pigeons", pigeonsHandler.Create)
		r.Get("/pigeons/{id}", pigeonsHandler.Get)
		r.Post("/pigeons/{id}/sightings", sightingsHandler.Add)

		// Matching
		r.Post("/match", matchHandler.Match)
	})

	// Uploaded photos
	if s.files != nil {
		fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.files.Dir())))
		s.router.Get("/uploads/*", func(w http.ResponseWriter, r *http.Request) {
			fileServer.ServeHTTP(w, r)
		})
	}
}
