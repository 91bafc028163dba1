package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fugjoo/pigeon-scanner/internal/config"
)

var embedCmd = &cobra.Command{
	Use:   "embed <photo>",
	Short: "Extract and print the embedding of a photo",
	Long: `Extract the embedding of a photo and print it as JSON.

Useful for debugging the model runner and for precomputing embeddings
to submit to the match API directly.`,
	Args: cobra.ExactArgs(1),
	RunE: runEmbed,
}

func init() {
	rootCmd.AddCommand(embedCmd)
}

func runEmbed(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	photo, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read photo: %w", err)
	}

	emb, err := newExtractor(cfg).Extract(context.Background(), photo)
	if err != nil {
		return fmt.Errorf("failed to extract embedding: %w", err)
	}

	return json.NewEncoder(os.Stdout).Encode(emb)
}
