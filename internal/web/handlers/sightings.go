package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fugjoo/pigeon-scanner/internal/registry"
)

// SightingsHandler records repeat sightings of registered pigeons.
type SightingsHandler struct {
	registry *registry.Service
}

// NewSightingsHandler creates a sightings handler.
func NewSightingsHandler(reg *registry.Service) *SightingsHandler {
	return &SightingsHandler{registry: reg}
}

type addSightingRequest struct {
	Notes string `json:"notes"`
}

type addSightingResponse struct {
	ID        string `json:"id"`
	PigeonID  string `json:"pigeon_id"`
	Timestamp string `json:"timestamp"`
}

// Add records a sighting for the pigeon in the URL.
func (h *SightingsHandler) Add(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// Body is optional; an empty body records a sighting without notes.
	var req addSightingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	sighting, err := h.registry.AddSighting(r.Context(), id, req.Notes)
	if err != nil {
		if errors.Is(err, registry.ErrPigeonNotFound) {
			respondError(w, http.StatusNotFound, "pigeon not found")
			return
		}
		log.Printf("Failed to add sighting for %s: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to record sighting")
		return
	}

	respondJSON(w, http.StatusCreated, addSightingResponse{
		ID:        sighting.ID,
		PigeonID:  sighting.PigeonID,
		Timestamp: sighting.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
	})
}
