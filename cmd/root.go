package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pigeon-scanner",
	Short: "A pigeon registry with visual similarity matching",
	Long: `Pigeon Scanner keeps a catalog of individual pigeons and identifies
them by photo. Each photo is turned into an embedding with a pretrained
image model and compared against the catalog by cosine similarity.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
