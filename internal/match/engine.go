// Package match decides whether a query embedding corresponds to a
// known pigeon. It compares the query against the catalog and either
// names the best candidate above the threshold or falls back to a
// short list of the closest entries as registration suggestions.
package match

import (
	"context"
	"fmt"
	"math"

	"github.com/fugjoo/pigeon-scanner/internal/database"
	"github.com/fugjoo/pigeon-scanner/internal/embedding"
)

// Threshold bounds. Values outside [MinThreshold, MaxThreshold] are
// rejected rather than clamped so callers notice bad configuration.
const (
	MinThreshold     = 0.50
	MaxThreshold     = 0.99
	DefaultThreshold = 0.80
)

// Query is a single match request against the catalog.
type Query struct {
	Embedding []float32
	Threshold *float64 // nil means DefaultThreshold; any set value is validated
	Limit     int      // 0 means database.DefaultMatchLimit
}

// Candidate is one catalog entry scored against the query.
type Candidate struct {
	PigeonID   string  `json:"id"`
	Name       string  `json:"name"`
	Similarity float64 `json:"similarity"`
}

// Result is the decision for one query. When Match is true, Pigeon
// holds the best candidate's metadata and Confidence its similarity.
// When false, SimilarPigeons lists the closest entries anyway and
// Suggestion tells the client what to do next.
type Result struct {
	Match          bool                     `json:"match"`
	Pigeon         *database.PigeonMetadata `json:"pigeon,omitempty"`
	Confidence     float64                  `json:"confidence"`
	SimilarPigeons []Candidate              `json:"similar_pigeons,omitempty"`
	Suggestion     string                   `json:"suggestion,omitempty"`
}

// Suggestion text returned when nothing clears the threshold.
const registerSuggestion = "Register as new pigeon?"

// Engine runs match decisions against a catalog.
type Engine struct {
	catalog database.CatalogReader
}

// NewEngine creates a match engine over the given catalog.
func NewEngine(catalog database.CatalogReader) *Engine {
	return &Engine{catalog: catalog}
}

// Match validates the query, searches the catalog and produces a
// decision. Validation failures come back as *ValidationError; any
// other error means the catalog could not be queried.
func (e *Engine) Match(ctx context.Context, q Query) (*Result, error) {
	if err := validateEmbedding(q.Embedding); err != nil {
		return nil, err
	}

	threshold := DefaultThreshold
	if q.Threshold != nil {
		threshold = *q.Threshold
		if threshold < MinThreshold || threshold > MaxThreshold {
			return nil, invalidThreshold("threshold must be between %.2f and %.2f, got %g",
				MinThreshold, MaxThreshold, threshold)
		}
	}

	limit := q.Limit
	if limit <= 0 {
		limit = database.DefaultMatchLimit
	}

	neighbors, err := e.catalog.NearestAbove(ctx, q.Embedding, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("could not search catalog: %w", err)
	}

	if len(neighbors) == 0 {
		return e.suggest(ctx, q.Embedding)
	}

	top := neighbors[0]
	meta, err := e.catalog.Metadata(ctx, top.PigeonID)
	if err != nil {
		return nil, fmt.Errorf("could not load pigeon %s: %w", top.PigeonID, err)
	}
	if meta == nil {
		// Entry deleted between the neighbor query and the lookup.
		return e.suggest(ctx, q.Embedding)
	}

	result := &Result{
		Match:      true,
		Pigeon:     meta,
		Confidence: round4(top.Similarity),
	}
	for _, n := range neighbors[1:] {
		result.SimilarPigeons = append(result.SimilarPigeons, candidate(n))
	}
	return result, nil
}

// suggest handles the no-match path: return the closest entries
// regardless of score so the client can offer registration.
func (e *Engine) suggest(ctx context.Context, emb []float32) (*Result, error) {
	neighbors, err := e.catalog.Nearest(ctx, emb, database.DefaultSuggestLimit)
	if err != nil {
		return nil, fmt.Errorf("could not search catalog: %w", err)
	}

	result := &Result{
		Match:      false,
		Confidence: 0,
		Suggestion: registerSuggestion,
	}
	for _, n := range neighbors {
		result.SimilarPigeons = append(result.SimilarPigeons, candidate(n))
	}
	return result, nil
}

func candidate(n database.Neighbor) Candidate {
	return Candidate{
		PigeonID:   n.PigeonID,
		Name:       n.Name,
		Similarity: round4(n.Similarity),
	}
}

func validateEmbedding(emb []float32) error {
	if len(emb) == 0 {
		return &ValidationError{Code: CodeMissingInput, Message: "embedding or photo is required"}
	}
	if len(emb) != embedding.Dim {
		return invalidEmbedding("embedding must have %d dimensions, got %d", embedding.Dim, len(emb))
	}
	for i, v := range emb {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return invalidEmbedding("embedding contains non-finite value at index %d", i)
		}
	}
	return nil
}

// round4 rounds similarity scores to 4 decimal places for responses.
func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}
