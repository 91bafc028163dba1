package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports whether the catalog database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CatalogCounter reports the number of registered pigeons.
type CatalogCounter interface {
	Count(ctx context.Context) (int, error)
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	db      Pinger
	catalog CatalogCounter
}

// NewHealthHandler creates a health handler. db and catalog may be nil,
// in which case only process liveness is reported.
func NewHealthHandler(db Pinger, catalog CatalogCounter) *HealthHandler {
	return &HealthHandler{db: db, catalog: catalog}
}

// Check handles the health check endpoint.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":   "degraded",
				"database": "unreachable",
			})
			return
		}
	}

	response := map[string]any{
		"status": "ok",
	}
	if h.catalog != nil {
		count, err := h.catalog.Count(ctx)
		if err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":   "degraded",
				"database": "unreachable",
			})
			return
		}
		response["pigeons"] = count
	}

	respondJSON(w, http.StatusOK, response)
}
