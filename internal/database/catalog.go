// Package database defines the vector catalog: storage of pigeon
// entries with their embeddings and nearest-neighbor queries over them.
package database

import (
	"context"
)

// Default result limits for the two query forms.
const (
	DefaultMatchLimit   = 10 // threshold-filtered candidates
	DefaultSuggestLimit = 5  // unfiltered "here's what's close" suggestions
)

// CatalogReader provides read access to the pigeon catalog.
// Entries without an embedding are excluded from both query forms at
// the storage layer, not filtered after the fact.
type CatalogReader interface {
	// Get retrieves a pigeon by ID, returns nil if not found
	Get(ctx context.Context, id string) (*StoredPigeon, error)
	// Metadata returns the enriched lookup used in match responses, nil if not found
	Metadata(ctx context.Context, id string) (*PigeonMetadata, error)
	// Count returns the total number of catalog entries
	Count(ctx context.Context) (int, error)
	// List returns a page of pigeons, optionally filtered by name search,
	// together with the total row count for pagination
	List(ctx context.Context, search string, limit, offset int) ([]PigeonSummary, int, error)
	// NearestAbove returns neighbors with similarity >= threshold,
	// descending by similarity with pigeon ID as tie-break, capped at limit
	NearestAbove(ctx context.Context, embedding []float32, threshold float64, limit int) ([]Neighbor, error)
	// Nearest returns the top limit neighbors regardless of score,
	// same ordering as NearestAbove
	Nearest(ctx context.Context, embedding []float32, limit int) ([]Neighbor, error)
}

// CatalogWriter provides write access to the pigeon catalog.
type CatalogWriter interface {
	CatalogReader

	// CreatePigeon inserts a new catalog entry (embedding may be nil)
	CreatePigeon(ctx context.Context, p *StoredPigeon) error
	// CreatePigeonWithImage inserts the entry, its image record and the
	// embedding as a single transactional unit
	CreatePigeonWithImage(ctx context.Context, p *StoredPigeon, img *StoredImage) error
	// AttachImage adds an image record to an existing entry. A primary
	// image replaces any previous primary for the same pigeon.
	AttachImage(ctx context.Context, img *StoredImage) error
	// AddSighting records a repeat sighting of a pigeon
	AddSighting(ctx context.Context, s *Sighting) error
}
