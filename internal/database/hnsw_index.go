package database

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/coder/hnsw"
)

// HNSW index parameters for 1024-dim image embeddings
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	HNSWMaxNeighbors = 16

	// HNSWSearchMultiplier is the factor to request more candidates from
	// HNSW to ensure we have enough after threshold filtering.
	HNSWSearchMultiplier = 3

	// hnswMinSearchK is the minimum candidate pool size for better recall.
	hnswMinSearchK = 100
)

// indexEntry holds the data kept alongside each graph node so search
// results can be re-scored and labeled without a catalog lookup.
type indexEntry struct {
	Name      string
	Embedding []float32
}

// CatalogIndex wraps an in-memory HNSW graph over catalog embeddings,
// keyed by pigeon ID. It accelerates the exact pgvector scan; results
// are re-scored with the exact cosine distance before filtering.
type CatalogIndex struct {
	graph      *hnsw.Graph[string]
	savedGraph *hnsw.SavedGraph[string] // loaded from disk
	entries    map[string]indexEntry
	mu         sync.RWMutex
}

// NewCatalogIndex creates a new empty catalog index.
func NewCatalogIndex() *CatalogIndex {
	return &CatalogIndex{
		entries: make(map[string]indexEntry),
	}
}

func newCatalogGraph() *hnsw.Graph[string] {
	g := hnsw.NewGraph[string]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.CosineDistance
	return g
}

// Build replaces the index contents with the given entries.
// Entries without an embedding are skipped.
func (h *CatalogIndex) Build(pigeons []StoredPigeon) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(pigeons) == 0 {
		h.graph = nil
		h.savedGraph = nil
		h.entries = make(map[string]indexEntry)
		return nil
	}

	g := newCatalogGraph()
	h.entries = make(map[string]indexEntry, len(pigeons))

	for i := range pigeons {
		p := &pigeons[i]
		if len(p.Embedding) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(p.ID, p.Embedding))
		h.entries[p.ID] = indexEntry{Name: p.Name, Embedding: p.Embedding}
	}

	h.graph = g
	return nil
}

// Add inserts a single entry into the index. Entries without an
// embedding are ignored.
func (h *CatalogIndex) Add(id, name string, embedding []float32) {
	if len(embedding) == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.graph == nil {
		h.graph = newCatalogGraph()
	}
	h.graph.Add(hnsw.MakeNode(id, embedding))
	h.entries[id] = indexEntry{Name: name, Embedding: embedding}
}

// Delete removes an entry from the index. HNSW doesn't support true
// deletion; dropping the embedding removes it from search results since
// candidates are re-scored via the embeddings map.
func (h *CatalogIndex) Delete(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.entries, id)
}

// Search finds up to k neighbors with similarity >= minSimilarity,
// re-scored with exact cosine distance. minSimilarity <= 0 disables
// the filter. Results come back in graph order; callers sort.
func (h *CatalogIndex) Search(query []float32, k int, minSimilarity float64) ([]Neighbor, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil && h.savedGraph == nil {
		return nil, errors.New("index not initialized")
	}

	searchK := max(k*HNSWSearchMultiplier, hnswMinSearchK)

	var nodes []hnsw.Node[string]
	if h.savedGraph != nil {
		nodes = h.savedGraph.Search(query, searchK)
	} else {
		nodes = h.graph.Search(query, searchK)
	}

	neighbors := make([]Neighbor, 0, k)
	for _, n := range nodes {
		ent, ok := h.entries[n.Key]
		if !ok || len(ent.Embedding) == 0 {
			continue
		}
		sim := Similarity(query, ent.Embedding)
		if minSimilarity > 0 && sim < minSimilarity {
			continue
		}
		neighbors = append(neighbors, Neighbor{PigeonID: n.Key, Name: ent.Name, Similarity: sim})
		if len(neighbors) >= k {
			break
		}
	}

	return neighbors, nil
}

// Count returns the number of indexed entries.
func (h *CatalogIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// IsEmpty returns true if no graph data is loaded.
func (h *CatalogIndex) IsEmpty() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.graph == nil && h.savedGraph == nil
}

// CatalogIndexMetadata stores metadata for staleness checking.
type CatalogIndexMetadata struct {
	EntryCount int64 `json:"entry_count"`
}

// LoadCatalogIndexMetadata loads just the metadata file for staleness checking.
func LoadCatalogIndexMetadata(basePath string) (*CatalogIndexMetadata, error) {
	data, err := os.ReadFile(basePath + ".meta")
	if err != nil {
		return nil, err
	}
	var meta CatalogIndexMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Save persists the graph, metadata and entries to disk.
func (h *CatalogIndex) Save(basePath string, metadata CatalogIndexMetadata) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil && h.savedGraph == nil {
		// Remove existing files if index is empty
		os.Remove(basePath)
		os.Remove(basePath + ".meta")
		os.Remove(basePath + ".entries")
		return nil
	}

	f, err := os.Create(basePath)
	if err != nil {
		return fmt.Errorf("failed to create catalog index file: %w", err)
	}
	if h.savedGraph != nil {
		// SavedGraph embeds *Graph, so Export works on it directly
		err = h.savedGraph.Export(f)
	} else {
		err = h.graph.Export(f)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to export catalog index: %w", err)
	}
	f.Close()

	metaData, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(basePath+".meta", metaData, 0600); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	entFile, err := os.Create(basePath + ".entries")
	if err != nil {
		return fmt.Errorf("failed to create entries file: %w", err)
	}
	defer entFile.Close()

	if err := gob.NewEncoder(entFile).Encode(h.entries); err != nil {
		return fmt.Errorf("failed to encode entries: %w", err)
	}
	return nil
}

// Load restores the graph and entries from disk.
func (h *CatalogIndex) Load(basePath string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	saved, err := hnsw.LoadSavedGraph[string](basePath)
	if err != nil {
		return fmt.Errorf("failed to load catalog index: %w", err)
	}

	entFile, err := os.Open(basePath + ".entries")
	if err != nil {
		return fmt.Errorf("failed to open entries file: %w", err)
	}
	defer entFile.Close()

	entries := make(map[string]indexEntry)
	if err := gob.NewDecoder(entFile).Decode(&entries); err != nil {
		return fmt.Errorf("failed to decode entries: %w", err)
	}

	h.savedGraph = saved
	h.entries = entries
	return nil
}
