package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/fugjoo/pigeon-scanner/internal/config"
	"github.com/fugjoo/pigeon-scanner/internal/database"
	"github.com/fugjoo/pigeon-scanner/internal/registry"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove duplicate and orphaned catalog entries",
	Long: `Clean up the pigeon catalog.

Finds duplicate registrations (same name after normalization, so
"Grübchen" and "grubchen" count as one) and keeps only the oldest
entry of each group. With --orphans, entries that have no primary
photo are removed as well.

Use --dry-run to see what would be deleted without changing anything.`,
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)

	cleanupCmd.Flags().Bool("dry-run", false, "Only print what would be deleted")
	cleanupCmd.Flags().Bool("orphans", false, "Also delete entries without a primary photo")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()
	dryRun := mustGetBool(cmd, "dry-run")

	pool, repo, err := openCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	pigeons, err := repo.GetAllPigeons(ctx)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	doomed := findDuplicates(pigeons)
	fmt.Printf("Found %d duplicate entries\n", len(doomed))

	if mustGetBool(cmd, "orphans") {
		orphans, err := repo.PigeonsWithoutPrimaryImage(ctx)
		if err != nil {
			return fmt.Errorf("failed to find orphaned entries: %w", err)
		}
		fmt.Printf("Found %d entries without a primary photo\n", len(orphans))
		doomed = append(doomed, orphans...)
	}

	if len(doomed) == 0 {
		fmt.Println("Nothing to clean up")
		return nil
	}

	if dryRun {
		fmt.Printf("Dry run: would delete %d entries\n", len(doomed))
		for _, id := range doomed {
			fmt.Printf("  %s\n", id)
		}
		return nil
	}

	bar := progressbar.Default(int64(len(doomed)), "Deleting entries")
	const batchSize = 100
	for i := 0; i < len(doomed); i += batchSize {
		end := min(i+batchSize, len(doomed))
		if err := repo.DeletePigeons(ctx, doomed[i:end]); err != nil {
			return fmt.Errorf("failed to delete entries: %w", err)
		}
		bar.Add(end - i)
	}

	fmt.Printf("Deleted %d entries\n", len(doomed))
	return nil
}

// findDuplicates groups entries by normalized name and returns the IDs
// of everything except the oldest entry of each group.
func findDuplicates(pigeons []database.StoredPigeon) []string {
	groups := make(map[string][]database.StoredPigeon)
	for _, p := range pigeons {
		key := registry.NormalizeName(p.Name)
		groups[key] = append(groups[key], p)
	}

	var doomed []string
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool {
			if !group[i].CreatedAt.Equal(group[j].CreatedAt) {
				return group[i].CreatedAt.Before(group[j].CreatedAt)
			}
			return group[i].ID < group[j].ID
		})
		for _, p := range group[1:] {
			doomed = append(doomed, p.ID)
		}
	}
	sort.Strings(doomed)
	return doomed
}
