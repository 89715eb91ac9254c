package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask [project-id] [question...]",
	Short: "Ask a question about a project's documents",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, userID, err := setup(cmd)
		if err != nil {
			return err
		}
		question := strings.Join(args[1:], " ")

		answer, rc, err := answerSvc.Answer(ctx, userID, args[0], question)
		if err != nil {
			return fmt.Errorf("failed to answer: %w", err)
		}

		if askJSON {
			data, err := json.MarshalIndent(map[string]any{
				"answer":  answer,
				"sources": rc.Sources,
			}, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal answer: %w", err)
			}
			cmd.Println(string(data))
			return nil
		}

		cmd.Println(answer)
		if len(rc.Sources) > 0 {
			cmd.Println()
			cmd.Println("Sources:")
			for _, s := range rc.Sources {
				cmd.Printf("  - %s (%d chunks)\n", s.Filename, len(s.ChunkIDs))
			}
		}
		return nil
	},
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer and sources as JSON")
	rootCmd.AddCommand(askCmd)
}
