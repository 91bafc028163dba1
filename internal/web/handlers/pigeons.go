package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fugjoo/pigeon-scanner/internal/database"
	"github.com/fugjoo/pigeon-scanner/internal/registry"
)

// PigeonsHandler handles pigeon catalog requests.
type PigeonsHandler struct {
	catalog  database.CatalogReader
	registry *registry.Service
}

// NewPigeonsHandler creates a pigeons handler.
func NewPigeonsHandler(catalog database.CatalogReader, reg *registry.Service) *PigeonsHandler {
	return &PigeonsHandler{catalog: catalog, registry: reg}
}

type createPigeonRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPublic    bool   `json:"is_public"`
	Photo       string `json:"photo"` // base64 or data URI, optional
}

type createPigeonResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	HasEmbedding bool   `json:"has_embedding"`
}

// Create registers a new pigeon. A photo is optional; when extraction
// fails the pigeon is still registered without an embedding.
func (h *PigeonsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPigeonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	var photo []byte
	if req.Photo != "" {
		var err error
		photo, err = registry.DecodePhoto(req.Photo)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	pigeon, err := h.registry.Create(r.Context(), registry.CreateRequest{
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
		Photo:       photo,
	})
	if err != nil {
		log.Printf("Failed to create pigeon %s: %v", sanitizeForLog(req.Name), err)
		respondError(w, http.StatusInternalServerError, "failed to create pigeon")
		return
	}

	respondJSON(w, http.StatusCreated, createPigeonResponse{
		ID:           pigeon.ID,
		Name:         pigeon.Name,
		HasEmbedding: len(pigeon.Embedding) > 0,
	})
}

type listPigeonsResponse struct {
	Pigeons []database.PigeonSummary `json:"pigeons"`
	Total   int                      `json:"total"`
	Limit   int                      `json:"limit"`
	Offset  int                      `json:"offset"`
}

// List returns a page of the catalog, optionally filtered by name.
func (h *PigeonsHandler) List(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	if limit > 200 {
		limit = 200
	}

	pigeons, total, err := h.catalog.List(r.Context(), search, limit, offset)
	if err != nil {
		log.Printf("Failed to list pigeons: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list pigeons")
		return
	}
	if pigeons == nil {
		pigeons = []database.PigeonSummary{}
	}

	respondJSON(w, http.StatusOK, listPigeonsResponse{
		Pigeons: pigeons,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

// Get returns the metadata of a single pigeon.
func (h *PigeonsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	meta, err := h.catalog.Metadata(r.Context(), id)
	if err != nil {
		log.Printf("Failed to get pigeon %s: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to get pigeon")
		return
	}
	if meta == nil {
		respondError(w, http.StatusNotFound, "pigeon not found")
		return
	}

	respondJSON(w, http.StatusOK, meta)
}

// queryInt parses a non-negative integer query parameter with a default.
func queryInt(r *http.Request, key string, defaultVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}
