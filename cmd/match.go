package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fugjoo/pigeon-scanner/internal/config"
	"github.com/fugjoo/pigeon-scanner/internal/match"
)

var matchCmd = &cobra.Command{
	Use:   "match <photo>",
	Short: "Identify a pigeon from a photo",
	Long: `Identify a pigeon by comparing its photo against the catalog.

The photo's embedding is extracted and scored against every registered
pigeon by cosine similarity. A match is a pigeon whose similarity is at
or above the threshold; otherwise the closest entries are listed as
registration suggestions.

Examples:
  # Match with the default threshold (0.80)
  pigeon-scanner match ./unknown.jpg

  # Stricter matching
  pigeon-scanner match ./unknown.jpg --threshold 0.90

  # Output as JSON
  pigeon-scanner match ./unknown.jpg --json`,
	Args: cobra.ExactArgs(1),
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().Float64("threshold", match.DefaultThreshold, "Similarity threshold (0.50-0.99)")
	matchCmd.Flags().Bool("json", false, "Output result as JSON")
}

func runMatch(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	photo, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read photo: %w", err)
	}

	pool, repo, err := openCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	emb, err := newExtractor(cfg).Extract(ctx, photo)
	if err != nil {
		return fmt.Errorf("failed to extract embedding: %w", err)
	}

	threshold := mustGetFloat64(cmd, "threshold")
	engine := match.NewEngine(repo)
	result, err := engine.Match(ctx, match.Query{
		Embedding: emb,
		Threshold: &threshold,
	})
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printMatchResult(result)
	return nil
}

func printMatchResult(result *match.Result) {
	if result.Match {
		fmt.Printf("Match: %s (confidence %.4f)\n", result.Pigeon.Name, result.Confidence)
		if result.Pigeon.Description != "" {
			fmt.Printf("  %s\n", result.Pigeon.Description)
		}
		fmt.Printf("  Sightings: %d\n", result.Pigeon.SightingsCount)
	} else {
		fmt.Println("No match found.")
		if result.Suggestion != "" {
			fmt.Println(result.Suggestion)
		}
	}

	if len(result.SimilarPigeons) > 0 {
		fmt.Println("\nSimilar pigeons:")
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "  NAME\tSIMILARITY\tID")
		for _, c := range result.SimilarPigeons {
			fmt.Fprintf(w, "  %s\t%.4f\t%s\n", c.Name, c.Similarity, c.PigeonID)
		}
		w.Flush()
	}
}
