package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/fugjoo/pigeon-scanner/internal/embedding"
	"github.com/fugjoo/pigeon-scanner/internal/match"
	"github.com/fugjoo/pigeon-scanner/internal/registry"
)

// MatchHandler handles visual similarity match requests.
type MatchHandler struct {
	engine   *match.Engine
	embedder registry.Embedder
}

// NewMatchHandler creates a match handler.
func NewMatchHandler(engine *match.Engine, embedder registry.Embedder) *MatchHandler {
	return &MatchHandler{engine: engine, embedder: embedder}
}

type matchRequest struct {
	Photo     string    `json:"photo"`     // base64 or data URI
	Embedding []float32 `json:"embedding"` // precomputed, alternative to photo
	Threshold *float64  `json:"threshold"` // omitted means server default
}

// Match decides whether the submitted photo (or embedding) shows a
// known pigeon. Unlike registration, a failed extraction here is fatal:
// there is nothing useful to respond with.
func (h *MatchHandler) Match(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	emb := req.Embedding
	if len(emb) == 0 {
		if req.Photo == "" {
			respondErrorCode(w, http.StatusBadRequest, match.CodeMissingInput,
				"either photo or embedding is required")
			return
		}

		photo, err := registry.DecodePhoto(req.Photo)
		if err != nil {
			respondErrorCode(w, http.StatusBadRequest, match.CodeMissingInput, err.Error())
			return
		}

		emb, err = h.embedder.Extract(r.Context(), photo)
		if err != nil {
			log.Printf("Embedding extraction failed during match: %v", err)
			if embedding.IsExtractionError(err) {
				respondErrorCode(w, http.StatusInternalServerError, "EXTRACTION_FAILED",
					"could not extract embedding from photo")
				return
			}
			respondError(w, http.StatusInternalServerError, "could not process photo")
			return
		}
	}

	result, err := h.engine.Match(r.Context(), match.Query{
		Embedding: emb,
		Threshold: req.Threshold,
	})
	if err != nil {
		if verr, ok := err.(*match.ValidationError); ok {
			respondErrorCode(w, http.StatusBadRequest, verr.Code, verr.Message)
			return
		}
		log.Printf("Match failed: %v", err)
		respondError(w, http.StatusServiceUnavailable, "catalog temporarily unavailable")
		return
	}

	respondJSON(w, http.StatusOK, result)
}
