package main

import (
	"fmt"
	"strings"

	"brd-generator/internal/models"

	"github.com/spf13/cobra"
)

var projectDescription string

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a project",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, userID, err := setup(cmd)
		if err != nil {
			return err
		}

		project, err := projectSvc.Create(ctx, userID, &models.ProjectCreate{
			Name:        strings.Join(args, " "),
			Description: projectDescription,
		})
		if err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}

		cmd.Printf("✓ Created project %s (%s)\n", project.Name, project.ID)
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, userID, err := setup(cmd)
		if err != nil {
			return err
		}

		projects, err := projectSvc.List(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to list projects: %w", err)
		}
		if len(projects) == 0 {
			cmd.Println("No projects.")
			return nil
		}
		for _, p := range projects {
			cmd.Printf("  %s  %s\n", p.ID, p.Name)
		}
		return nil
	},
}

func init() {
	projectCreateCmd.Flags().StringVarP(&projectDescription, "description", "d", "", "project description")
	projectCmd.AddCommand(projectCreateCmd, projectListCmd)
	rootCmd.AddCommand(projectCmd)
}
