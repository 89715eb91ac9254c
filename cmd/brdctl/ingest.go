package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"brd-generator/internal/services"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [project-id] [file...]",
	Short: "Upload and process documents",
	Long: `Uploads each file into the project and runs the ingestion pipeline
(extract, chunk, embed). Files are handled one at a time; a failure is
reported and the remaining files are still ingested.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, userID, err := setup(cmd)
	if err != nil {
		return err
	}
	projectID, paths := args[0], args[1:]

	failed := 0
	for _, path := range paths {
		if err := ingestFile(ctx, userID, projectID, path, cmd); err != nil {
			failed++
			cmd.PrintErrf("❌ %s: %v\n", path, err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(paths))
	}
	return nil
}

func ingestFile(ctx context.Context, userID uuid.UUID, projectID, path string, cmd *cobra.Command) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	doc, err := documentSvc.Upload(ctx, services.UploadRequest{
		UserID:    userID,
		ProjectID: projectID,
		Filename:  filepath.Base(path),
		Content:   f,
	})
	if err != nil {
		return err
	}

	cmd.Printf("✓ %s → %s (%s)\n", path, doc.ID, doc.Status())
	return nil
}
