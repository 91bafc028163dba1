package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fugjoo/pigeon-scanner/internal/config"
	"github.com/fugjoo/pigeon-scanner/internal/database/postgres"
	"github.com/fugjoo/pigeon-scanner/internal/storage"
	"github.com/fugjoo/pigeon-scanner/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Pigeon Scanner web server.
The server exposes the registration and matching API together with the
uploaded photos. Requires DATABASE_URL (PostgreSQL with pgvector) and
optionally MODEL_RUNNER_URL for embedding extraction.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// initCatalogHNSW builds or loads the in-memory HNSW index over catalog
// embeddings for fast similarity search.
func initCatalogHNSW(ctx context.Context, repo *postgres.PigeonRepository, indexPath string) {
	if indexPath != "" {
		fmt.Printf("Loading catalog HNSW index from %s...\n", indexPath)
	} else {
		fmt.Printf("Building in-memory HNSW index for the catalog...\n")
	}
	if err := repo.EnableHNSW(ctx, indexPath); err != nil {
		fmt.Printf("Warning: Failed to build catalog HNSW index: %v\n", err)
		fmt.Printf("Matching will use PostgreSQL queries (slower)\n")
	} else {
		fmt.Printf("Catalog HNSW index ready with %d entries\n", repo.HNSWCount())
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	fmt.Printf("Connecting to PostgreSQL database...\n")
	ctx := context.Background()
	pool, repo, err := openCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.Database.HNSWEnabled {
		initCatalogHNSW(ctx, repo, cfg.Database.HNSWIndexPath)
	}

	files, err := storage.NewFileStore(cfg.Storage.UploadsDir)
	if err != nil {
		return err
	}

	waitCtx, waitCancel := context.WithTimeout(ctx, 10*time.Second)
	if err := newRunner(cfg).WaitReady(waitCtx); err != nil {
		fmt.Printf("Warning: model runner not reachable: %v\n", err)
		fmt.Println("Embedding extraction will fail until the runner is up")
	}
	waitCancel()

	extractor := newExtractor(cfg)
	server := web.NewServer(cfg, repo, extractor, files, pool)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		if cfg.Database.HNSWEnabled && cfg.Database.HNSWIndexPath != "" {
			if err := repo.SaveHNSWIndex(context.Background()); err != nil {
				fmt.Printf("Warning: failed to save catalog HNSW index: %v\n", err)
			} else {
				fmt.Println("Catalog HNSW index saved to disk")
			}
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Pigeon Scanner API on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
