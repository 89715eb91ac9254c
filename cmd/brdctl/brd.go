package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var (
	brdOutput string
	brdTitle  string
)

var brdCmd = &cobra.Command{
	Use:   "brd [project-id]",
	Short: "Generate a Business Requirements Document",
	Long: `Generates a BRD from every processed document in the project.

Without --output the markdown is printed. With --output the file extension
picks the format: .docx writes a Word document, anything else markdown.`,
	Args: cobra.ExactArgs(1),
	RunE: runBRD,
}

func init() {
	brdCmd.Flags().StringVarP(&brdOutput, "output", "o", "", "output file (.md or .docx)")
	brdCmd.Flags().StringVar(&brdTitle, "title", "", "document title for .docx output")
	rootCmd.AddCommand(brdCmd)
}

func runBRD(cmd *cobra.Command, args []string) error {
	ctx, userID, err := setup(cmd)
	if err != nil {
		return err
	}

	md, err := brdSvc.Generate(ctx, userID, args[0])
	if err != nil {
		return fmt.Errorf("failed to generate BRD: %w", err)
	}

	if brdOutput == "" {
		cmd.Println(md)
		return nil
	}

	data := []byte(md)
	if strings.EqualFold(filepath.Ext(brdOutput), ".docx") {
		data, err = brdSvc.ExportDOCX(ctx, md, brdTitle)
		if err != nil {
			return fmt.Errorf("failed to export docx: %w", err)
		}
	}

	if err := os.WriteFile(brdOutput, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", brdOutput, err)
	}
	cmd.Printf("✓ BRD written to %s\n", brdOutput)
	return nil
}
