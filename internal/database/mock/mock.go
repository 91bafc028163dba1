// Package mock provides an in-memory implementation of the catalog
// interfaces for testing. Similarity queries use an exact scan with the
// same scoring and ordering rules as the PostgreSQL backend.
package mock

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/fugjoo/pigeon-scanner/internal/database"
)

// MockCatalog is an in-memory implementation of database.CatalogWriter.
type MockCatalog struct {
	mu        sync.RWMutex
	pigeons   map[string]*database.StoredPigeon
	images    map[string][]database.StoredImage // keyed by pigeon ID
	sightings map[string][]database.Sighting    // keyed by pigeon ID

	// Error injection
	GetError          error
	MetadataError     error
	MetadataMissing   bool // Metadata reports no entry regardless of ID
	CountError        error
	ListError         error
	NearestAboveError error
	NearestError      error
	CreateError       error
	AttachImageError  error
	AddSightingError  error
}

// NewMockCatalog creates a new empty mock catalog.
func NewMockCatalog() *MockCatalog {
	return &MockCatalog{
		pigeons:   make(map[string]*database.StoredPigeon),
		images:    make(map[string][]database.StoredImage),
		sightings: make(map[string][]database.Sighting),
	}
}

// AddPigeon seeds the mock store with an entry.
func (m *MockCatalog) AddPigeon(p database.StoredPigeon) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pigeons[p.ID] = &p
}

// Get retrieves a pigeon by ID.
func (m *MockCatalog) Get(ctx context.Context, id string) (*database.StoredPigeon, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pigeons[id], nil
}

// Metadata returns the enriched lookup for a pigeon.
func (m *MockCatalog) Metadata(ctx context.Context, id string) (*database.PigeonMetadata, error) {
	if m.MetadataError != nil {
		return nil, m.MetadataError
	}
	if m.MetadataMissing {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.pigeons[id]
	if !ok {
		return nil, nil
	}
	meta := &database.PigeonMetadata{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		FirstSeen:      p.FirstSeen,
		SightingsCount: len(m.sightings[id]),
	}
	for _, img := range m.images[id] {
		if img.IsPrimary {
			meta.PhotoURL = "/uploads/" + img.FilePath
			break
		}
	}
	return meta, nil
}

// Count returns the total number of entries.
func (m *MockCatalog) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pigeons), nil
}

// List returns a page of entries, filtered by a case-insensitive name substring.
func (m *MockCatalog) List(ctx context.Context, search string, limit, offset int) ([]database.PigeonSummary, int, error) {
	if m.ListError != nil {
		return nil, 0, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*database.StoredPigeon
	for _, p := range m.pigeons {
		if search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(search)) {
			continue
		}
		matched = append(matched, p)
	}
	// Newest first by creation time with ID as tie-break, like the SQL query.
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	var all []database.PigeonSummary
	for _, p := range matched {
		all = append(all, database.PigeonSummary{
			ID:             p.ID,
			Name:           p.Name,
			FirstSeen:      p.FirstSeen,
			SightingsCount: len(m.sightings[p.ID]),
		})
	}

	total := len(all)
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

// neighbors scans every entry with an embedding and scores it against
// the query, ordering by similarity descending with ID as tie-break.
func (m *MockCatalog) neighbors(emb []float32, minSimilarity float64, limit int) []database.Neighbor {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []database.Neighbor
	for _, p := range m.pigeons {
		if len(p.Embedding) == 0 {
			continue
		}
		sim := database.Similarity(emb, p.Embedding)
		if minSimilarity > 0 && sim < minSimilarity {
			continue
		}
		result = append(result, database.Neighbor{PigeonID: p.ID, Name: p.Name, Similarity: sim})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Similarity != result[j].Similarity {
			return result[i].Similarity > result[j].Similarity
		}
		return result[i].PigeonID < result[j].PigeonID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// NearestAbove returns neighbors with similarity >= threshold.
func (m *MockCatalog) NearestAbove(ctx context.Context, emb []float32, threshold float64, limit int) ([]database.Neighbor, error) {
	if m.NearestAboveError != nil {
		return nil, m.NearestAboveError
	}
	return m.neighbors(emb, threshold, limit), nil
}

// Nearest returns the top limit neighbors regardless of score.
func (m *MockCatalog) Nearest(ctx context.Context, emb []float32, limit int) ([]database.Neighbor, error) {
	if m.NearestError != nil {
		return nil, m.NearestError
	}
	return m.neighbors(emb, 0, limit), nil
}

// CreatePigeon inserts a new entry.
func (m *MockCatalog) CreatePigeon(ctx context.Context, p *database.StoredPigeon) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *p
	m.pigeons[p.ID] = &stored
	return nil
}

// CreatePigeonWithImage inserts the entry and its image together.
func (m *MockCatalog) CreatePigeonWithImage(ctx context.Context, p *database.StoredPigeon, img *database.StoredImage) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *p
	m.pigeons[p.ID] = &stored
	m.images[p.ID] = append(m.images[p.ID], *img)
	return nil
}

// AttachImage adds an image record, demoting any previous primary.
func (m *MockCatalog) AttachImage(ctx context.Context, img *database.StoredImage) error {
	if m.AttachImageError != nil {
		return m.AttachImageError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if img.IsPrimary {
		imgs := m.images[img.PigeonID]
		for i := range imgs {
			imgs[i].IsPrimary = false
		}
	}
	m.images[img.PigeonID] = append(m.images[img.PigeonID], *img)
	return nil
}

// AddSighting records a sighting.
func (m *MockCatalog) AddSighting(ctx context.Context, s *database.Sighting) error {
	if m.AddSightingError != nil {
		return m.AddSightingError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sightings[s.PigeonID] = append(m.sightings[s.PigeonID], *s)
	return nil
}

// Images returns the images attached to a pigeon (test helper).
func (m *MockCatalog) Images(pigeonID string) []database.StoredImage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.images[pigeonID]
}

// Verify interface compliance
var _ database.CatalogReader = (*MockCatalog)(nil)
var _ database.CatalogWriter = (*MockCatalog)(nil)
