package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/fugjoo/pigeon-scanner/internal/database"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// PigeonRepository provides PostgreSQL-backed catalog storage with an
// optional in-memory HNSW index over the embeddings.
type PigeonRepository struct {
	pool *Pool

	hnswMu        sync.RWMutex
	hnswIndex     *database.CatalogIndex
	hnswEnabled   bool
	hnswIndexPath string
}

// NewPigeonRepository creates a new PostgreSQL pigeon repository.
func NewPigeonRepository(pool *Pool) *PigeonRepository {
	return &PigeonRepository{pool: pool}
}

// Get retrieves a pigeon by ID, returns nil if not found.
func (r *PigeonRepository) Get(ctx context.Context, id string) (*database.StoredPigeon, error) {
	query := `
		SELECT id, name, COALESCE(description, ''), is_public, embedding, first_seen, created_at
		FROM pigeons
		WHERE id = $1
	`

	var p database.StoredPigeon
	var vec *pgvector.Vector

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.IsPublic,
		&vec,
		&p.FirstSeen,
		&p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query pigeon: %w", err)
	}

	if vec != nil {
		p.Embedding = vec.Slice()
	}
	return &p, nil
}

// Metadata returns the enriched lookup used in match responses.
func (r *PigeonRepository) Metadata(ctx context.Context, id string) (*database.PigeonMetadata, error) {
	query := `
		SELECT p.id, p.name, COALESCE(p.description, ''), p.first_seen,
		       COALESCE(i.file_path, ''),
		       (SELECT COUNT(*) FROM sightings s WHERE s.pigeon_id = p.id)
		FROM pigeons p
		LEFT JOIN images i ON p.id = i.pigeon_id AND i.is_primary
		WHERE p.id = $1
	`

	var m database.PigeonMetadata
	var filePath string

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&m.ID,
		&m.Name,
		&m.Description,
		&m.FirstSeen,
		&filePath,
		&m.SightingsCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query pigeon metadata: %w", err)
	}

	if filePath != "" {
		m.PhotoURL = "/uploads/" + filePath
	}
	return &m, nil
}

// Count returns the total number of catalog entries.
func (r *PigeonRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM pigeons").Scan(&count); err != nil {
		return 0, fmt.Errorf("count pigeons: %w", err)
	}
	return count, nil
}

// List returns a page of pigeons, optionally filtered by name, plus the
// total row count for pagination.
func (r *PigeonRepository) List(ctx context.Context, search string, limit, offset int) ([]database.PigeonSummary, int, error) {
	where := ""
	args := []any{}
	if search != "" {
		where = "WHERE p.name ILIKE $1"
		args = append(args, "%"+search+"%")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM pigeons p " + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count pigeons: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT p.id, p.name, p.first_seen,
		       COALESCE(i.file_path, ''),
		       (SELECT COUNT(*) FROM sightings s WHERE s.pigeon_id = p.id)
		FROM pigeons p
		LEFT JOIN images i ON p.id = i.pigeon_id AND i.is_primary
		%s
		ORDER BY p.created_at DESC, p.id
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list pigeons: %w", err)
	}
	defer rows.Close()

	var pigeons []database.PigeonSummary
	for rows.Next() {
		var s database.PigeonSummary
		var filePath string
		if err := rows.Scan(&s.ID, &s.Name, &s.FirstSeen, &filePath, &s.SightingsCount); err != nil {
			return nil, 0, fmt.Errorf("scan pigeon: %w", err)
		}
		if filePath != "" {
			s.PhotoURL = "/uploads/" + filePath
		}
		pigeons = append(pigeons, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate pigeons: %w", err)
	}

	return pigeons, total, nil
}

// NearestAbove returns neighbors with similarity >= threshold, ordered
// by similarity descending with pigeon ID as the tie-break.
// Entries without an embedding are excluded in SQL.
func (r *PigeonRepository) NearestAbove(ctx context.Context, emb []float32, threshold float64, limit int) ([]database.Neighbor, error) {
	if r.useHNSW() {
		return r.searchHNSW(emb, limit, threshold)
	}

	query := `
		SELECT id, name, (embedding <=> $1::vector)::float8 AS distance
		FROM pigeons
		WHERE embedding IS NOT NULL
		  AND (1 - (embedding <=> $1::vector)) >= $2
		ORDER BY embedding <=> $1::vector, id
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, pgvector.NewVector(emb), threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("query nearest above threshold: %w", err)
	}
	defer rows.Close()

	return scanNeighbors(rows)
}

// Nearest returns the top limit neighbors regardless of score.
func (r *PigeonRepository) Nearest(ctx context.Context, emb []float32, limit int) ([]database.Neighbor, error) {
	if r.useHNSW() {
		return r.searchHNSW(emb, limit, 0)
	}

	query := `
		SELECT id, name, (embedding <=> $1::vector)::float8 AS distance
		FROM pigeons
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1::vector, id
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, pgvector.NewVector(emb), limit)
	if err != nil {
		return nil, fmt.Errorf("query nearest: %w", err)
	}
	defer rows.Close()

	return scanNeighbors(rows)
}

func scanNeighbors(rows *sql.Rows) ([]database.Neighbor, error) {
	var neighbors []database.Neighbor
	for rows.Next() {
		var n database.Neighbor
		var dist float64
		if err := rows.Scan(&n.PigeonID, &n.Name, &dist); err != nil {
			return nil, fmt.Errorf("scan neighbor: %w", err)
		}
		n.Similarity = database.SimilarityFromDistance(dist)
		neighbors = append(neighbors, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate neighbors: %w", err)
	}
	return neighbors, nil
}

// CreatePigeon inserts a new catalog entry. A nil embedding is stored
// as NULL and keeps the entry out of similarity results.
func (r *PigeonRepository) CreatePigeon(ctx context.Context, p *database.StoredPigeon) error {
	query := `
		INSERT INTO pigeons (id, name, description, is_public, embedding, first_seen, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, NOW(), NOW())
	`

	var vec any
	if len(p.Embedding) > 0 {
		vec = pgvector.NewVector(p.Embedding)
	}
	if _, err := r.pool.Exec(ctx, query, p.ID, p.Name, p.Description, p.IsPublic, vec); err != nil {
		return fmt.Errorf("insert pigeon: %w", err)
	}

	r.indexAdd(p.ID, p.Name, p.Embedding)
	return nil
}

// CreatePigeonWithImage inserts the entry, its image record and the
// embedding as a single transactional unit.
func (r *PigeonRepository) CreatePigeonWithImage(ctx context.Context, p *database.StoredPigeon, img *database.StoredImage) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var vec any
	if len(p.Embedding) > 0 {
		vec = pgvector.NewVector(p.Embedding)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO pigeons (id, name, description, is_public, embedding, first_seen, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, NOW(), NOW())
	`, p.ID, p.Name, p.Description, p.IsPublic, vec); err != nil {
		return fmt.Errorf("insert pigeon: %w", err)
	}

	if err := insertImage(ctx, tx, img); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	r.indexAdd(p.ID, p.Name, p.Embedding)
	return nil
}

// AttachImage adds an image record to an existing entry. A primary
// image demotes any previous primary for the same pigeon first, so the
// single-primary index never trips on legitimate replacements.
func (r *PigeonRepository) AttachImage(ctx context.Context, img *database.StoredImage) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertImage(ctx, tx, img); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func insertImage(ctx context.Context, tx *sql.Tx, img *database.StoredImage) error {
	if img.IsPrimary {
		if _, err := tx.ExecContext(ctx,
			"UPDATE images SET is_primary = FALSE WHERE pigeon_id = $1 AND is_primary",
			img.PigeonID,
		); err != nil {
			return fmt.Errorf("demote previous primary image: %w", err)
		}
	}

	var vec any
	if len(img.Embedding) > 0 {
		vec = pgvector.NewVector(img.Embedding)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO images (id, pigeon_id, file_path, file_size, mime_type, embedding, is_primary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`, img.ID, img.PigeonID, img.FilePath, img.FileSize, img.MimeType, vec, img.IsPrimary); err != nil {
		return fmt.Errorf("insert image: %w", err)
	}
	return nil
}

// AddSighting records a repeat sighting of a pigeon.
func (r *PigeonRepository) AddSighting(ctx context.Context, s *database.Sighting) error {
	if _, err := r.pool.Exec(ctx, `
		INSERT INTO sightings (id, pigeon_id, notes, timestamp)
		VALUES ($1, $2, NULLIF($3, ''), NOW())
	`, s.ID, s.PigeonID, s.Notes); err != nil {
		return fmt.Errorf("insert sighting: %w", err)
	}
	return nil
}

// GetAllPigeons retrieves all catalog entries, used for index builds
// and offline maintenance.
func (r *PigeonRepository) GetAllPigeons(ctx context.Context) ([]database.StoredPigeon, error) {
	query := `
		SELECT id, name, COALESCE(description, ''), is_public, embedding, first_seen, created_at
		FROM pigeons
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all pigeons: %w", err)
	}
	defer rows.Close()

	var pigeons []database.StoredPigeon
	for rows.Next() {
		var p database.StoredPigeon
		var vec *pgvector.Vector
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.IsPublic, &vec, &p.FirstSeen, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pigeon: %w", err)
		}
		if vec != nil {
			p.Embedding = vec.Slice()
		}
		pigeons = append(pigeons, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pigeons: %w", err)
	}
	return pigeons, nil
}

// PigeonsWithoutPrimaryImage returns IDs of entries with no primary
// image, used by the offline cleanup command.
func (r *PigeonRepository) PigeonsWithoutPrimaryImage(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id
		FROM pigeons p
		LEFT JOIN images i ON p.id = i.pigeon_id AND i.is_primary
		WHERE i.id IS NULL
		ORDER BY p.id
	`)
	if err != nil {
		return nil, fmt.Errorf("query pigeons without primary image: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pigeon ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pigeon IDs: %w", err)
	}
	return ids, nil
}

// DeletePigeons removes the given entries and their images and sightings.
func (r *PigeonRepository) DeletePigeons(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.pool.Exec(ctx, "DELETE FROM pigeons WHERE id = ANY($1)", pq.Array(ids)); err != nil {
		return fmt.Errorf("delete pigeons: %w", err)
	}

	r.hnswMu.RLock()
	idx := r.hnswIndex
	r.hnswMu.RUnlock()
	if idx != nil {
		for _, id := range ids {
			idx.Delete(id)
		}
	}
	return nil
}

// --- optional in-memory HNSW acceleration ---

func (r *PigeonRepository) useHNSW() bool {
	r.hnswMu.RLock()
	defer r.hnswMu.RUnlock()
	return r.hnswEnabled && r.hnswIndex != nil
}

func (r *PigeonRepository) indexAdd(id, name string, emb []float32) {
	r.hnswMu.RLock()
	defer r.hnswMu.RUnlock()
	if r.hnswEnabled && r.hnswIndex != nil {
		r.hnswIndex.Add(id, name, emb)
	}
}

func (r *PigeonRepository) searchHNSW(emb []float32, limit int, minSimilarity float64) ([]database.Neighbor, error) {
	r.hnswMu.RLock()
	idx := r.hnswIndex
	r.hnswMu.RUnlock()

	neighbors, err := idx.Search(emb, limit, minSimilarity)
	if err != nil {
		return nil, fmt.Errorf("HNSW search: %w", err)
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Similarity != neighbors[j].Similarity {
			return neighbors[i].Similarity > neighbors[j].Similarity
		}
		return neighbors[i].PigeonID < neighbors[j].PigeonID
	})
	return neighbors, nil
}

// EnableHNSW loads or builds the in-memory HNSW index. If indexPath is
// set, a fresh cached index is loaded from disk; otherwise (or when the
// cache is stale) the index is rebuilt from the database and saved.
func (r *PigeonRepository) EnableHNSW(ctx context.Context, indexPath string) error {
	r.hnswMu.Lock()
	defer r.hnswMu.Unlock()

	r.hnswIndexPath = indexPath

	var dbCount int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM pigeons WHERE embedding IS NOT NULL").Scan(&dbCount); err != nil {
		return fmt.Errorf("failed to get entry count: %w", err)
	}

	if indexPath != "" && r.tryLoadIndex(indexPath, dbCount) {
		r.hnswEnabled = true
		return nil
	}

	pigeons, err := r.GetAllPigeons(ctx)
	if err != nil {
		return fmt.Errorf("failed to load catalog entries: %w", err)
	}

	r.hnswIndex = database.NewCatalogIndex()
	if err := r.hnswIndex.Build(pigeons); err != nil {
		return fmt.Errorf("failed to build catalog index: %w", err)
	}

	if indexPath != "" && r.hnswIndex.Count() > 0 {
		meta := database.CatalogIndexMetadata{EntryCount: dbCount}
		if err := r.hnswIndex.Save(indexPath, meta); err != nil {
			log.Printf("Warning: failed to save catalog index to disk: %v", err)
		}
	}

	r.hnswEnabled = true
	return nil
}

func (r *PigeonRepository) tryLoadIndex(indexPath string, dbCount int64) bool {
	meta, err := database.LoadCatalogIndexMetadata(indexPath)
	if err != nil {
		log.Printf("Catalog index: metadata file error: %v (will rebuild)", err)
		return false
	}
	if meta.EntryCount != dbCount {
		log.Printf("Catalog index: stale (db count=%d, cached count=%d) (will rebuild)", dbCount, meta.EntryCount)
		return false
	}

	r.hnswIndex = database.NewCatalogIndex()
	if err := r.hnswIndex.Load(indexPath); err != nil {
		log.Printf("Catalog index: failed to load: %v (will rebuild)", err)
		return false
	}
	if r.hnswIndex.IsEmpty() {
		log.Printf("Catalog index: loaded graph is empty (will rebuild)")
		return false
	}
	log.Printf("Catalog index: loaded from disk")
	return true
}

// HNSWCount returns the number of entries in the HNSW index.
func (r *PigeonRepository) HNSWCount() int {
	r.hnswMu.RLock()
	defer r.hnswMu.RUnlock()
	if r.hnswIndex == nil {
		return 0
	}
	return r.hnswIndex.Count()
}

// SaveHNSWIndex persists the current index to disk (if a path is configured).
func (r *PigeonRepository) SaveHNSWIndex(ctx context.Context) error {
	r.hnswMu.RLock()
	defer r.hnswMu.RUnlock()

	if r.hnswIndexPath == "" || r.hnswIndex == nil {
		return nil
	}

	var dbCount int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM pigeons WHERE embedding IS NOT NULL").Scan(&dbCount); err != nil {
		return fmt.Errorf("failed to get entry count: %w", err)
	}

	meta := database.CatalogIndexMetadata{EntryCount: dbCount}
	if err := r.hnswIndex.Save(r.hnswIndexPath, meta); err != nil {
		return fmt.Errorf("saving catalog index: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ database.CatalogReader = (*PigeonRepository)(nil)
var _ database.CatalogWriter = (*PigeonRepository)(nil)
