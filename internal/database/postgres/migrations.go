package postgres

import (
	"context"
	"fmt"

	"github.com/fugjoo/pigeon-scanner/internal/embedding"
)

// Migrate creates the pgvector extension and the catalog tables.
func (p *Pool) Migrate(ctx context.Context) error {
	if _, err := p.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createPigeons := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS pigeons (
			id           UUID PRIMARY KEY,
			name         VARCHAR(255) NOT NULL,
			description  TEXT,
			is_public    BOOLEAN NOT NULL DEFAULT TRUE,
			embedding    vector(%d),
			first_seen   TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			created_at   TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`, embedding.Dim)
	if _, err := p.Exec(ctx, createPigeons); err != nil {
		return fmt.Errorf("failed to create pigeons table: %w", err)
	}

	createImages := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS images (
			id           UUID PRIMARY KEY,
			pigeon_id    UUID NOT NULL REFERENCES pigeons(id) ON DELETE CASCADE,
			file_path    VARCHAR(512) NOT NULL,
			file_size    BIGINT NOT NULL,
			mime_type    VARCHAR(64) NOT NULL,
			embedding    vector(%d),
			is_primary   BOOLEAN NOT NULL DEFAULT FALSE,
			created_at   TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`, embedding.Dim)
	if _, err := p.Exec(ctx, createImages); err != nil {
		return fmt.Errorf("failed to create images table: %w", err)
	}

	// At most one primary image per pigeon, enforced at write time.
	if _, err := p.Exec(ctx, `
		CREATE UNIQUE INDEX IF NOT EXISTS images_primary_idx
		ON images(pigeon_id) WHERE is_primary
	`); err != nil {
		return fmt.Errorf("failed to create primary image index: %w", err)
	}

	if _, err := p.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sightings (
			id           UUID PRIMARY KEY,
			pigeon_id    UUID NOT NULL REFERENCES pigeons(id) ON DELETE CASCADE,
			notes        TEXT,
			timestamp    TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`); err != nil {
		return fmt.Errorf("failed to create sightings table: %w", err)
	}

	if _, err := p.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS sightings_pigeon_id_idx ON sightings(pigeon_id)
	`); err != nil {
		return fmt.Errorf("failed to create sightings index: %w", err)
	}

	return nil
}

// CreateVectorIndex creates the IVFFlat index for similarity search.
// This should be called after the table has some data for optimal performance.
func (p *Pool) CreateVectorIndex(ctx context.Context) error {
	_, err := p.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS pigeons_vector_idx
		ON pigeons USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)
	`)
	if err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}
	return nil
}
