package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fugjoo/pigeon-scanner/internal/config"
	"github.com/fugjoo/pigeon-scanner/internal/registry"
	"github.com/fugjoo/pigeon-scanner/internal/storage"
)

var registerCmd = &cobra.Command{
	Use:   "register <name>",
	Short: "Register a new pigeon in the catalog",
	Long: `Register a new pigeon, optionally with a photo.

When a photo is given, its embedding is extracted and stored with the
entry so the pigeon can be found by visual similarity. If extraction
fails the pigeon is still registered, just without an embedding.

Examples:
  # Register without a photo
  pigeon-scanner register "Grubchen"

  # Register with a photo and description
  pigeon-scanner register "Grubchen" --photo ./grubchen.jpg --description "white head, dark wings"`,
	Args: cobra.ExactArgs(1),
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().String("photo", "", "Path to a photo of the pigeon")
	registerCmd.Flags().String("description", "", "Free-form description")
	registerCmd.Flags().Bool("public", false, "Make the pigeon visible in public listings")
}

func runRegister(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	pool, repo, err := openCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	var photo []byte
	if path := mustGetString(cmd, "photo"); path != "" {
		photo, err = os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read photo: %w", err)
		}
	}

	files, err := storage.NewFileStore(cfg.Storage.UploadsDir)
	if err != nil {
		return err
	}

	svc := registry.NewService(repo, newExtractor(cfg), files)
	pigeon, err := svc.Create(ctx, registry.CreateRequest{
		Name:        args[0],
		Description: mustGetString(cmd, "description"),
		IsPublic:    mustGetBool(cmd, "public"),
		Photo:       photo,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Registered pigeon %q with ID %s\n", pigeon.Name, pigeon.ID)
	if len(photo) > 0 && len(pigeon.Embedding) == 0 {
		fmt.Println("Note: embedding extraction failed; the entry has no embedding and will not appear in matches")
	}
	return nil
}
