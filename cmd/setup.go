package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/fugjoo/pigeon-scanner/internal/config"
	"github.com/fugjoo/pigeon-scanner/internal/database/postgres"
	"github.com/fugjoo/pigeon-scanner/internal/embedding"
)

// openCatalog connects to PostgreSQL and runs migrations. The caller
// owns the returned pool and must Close it.
func openCatalog(ctx context.Context, cfg *config.Config) (*postgres.Pool, *postgres.PigeonRepository, error) {
	if cfg.Database.URL == "" {
		return nil, nil, errors.New("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return pool, postgres.NewPigeonRepository(pool), nil
}

// newRunner builds the client for the model runner.
func newRunner(cfg *config.Config) *embedding.RunnerClient {
	return embedding.NewRunnerClient(cfg.Model.RunnerURL, cfg.Model)
}

// newExtractor builds the embedding extractor backed by the model runner.
func newExtractor(cfg *config.Config) *embedding.Extractor {
	return embedding.NewExtractor(newRunner(cfg), cfg.Model.InputSize, cfg.Model.Dim, cfg.Model.MaxConcurrent)
}
