package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"brd-generator/internal/app"
	"brd-generator/internal/config"
	"brd-generator/internal/models"
	"brd-generator/internal/services"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Learning: commands depend on these narrow interfaces, not on *app.App, so
// tests can swap in fakes by assigning the package variables.

type projectService interface {
	Create(ctx context.Context, userID uuid.UUID, in *models.ProjectCreate) (*models.Project, error)
	List(ctx context.Context, userID uuid.UUID) ([]*models.Project, error)
}

type documentService interface {
	Upload(ctx context.Context, req services.UploadRequest) (*models.Document, error)
}

type answerService interface {
	Answer(ctx context.Context, userID uuid.UUID, projectID, question string) (string, *services.RetrievedContext, error)
}

type brdService interface {
	Generate(ctx context.Context, userID uuid.UUID, projectID string) (string, error)
	ExportDOCX(ctx context.Context, markdown, title string) ([]byte, error)
}

var (
	projectSvc  projectService
	documentSvc documentService
	answerSvc   answerService
	brdSvc      brdService

	reprocessFn func(ctx context.Context, workers int) (services.ReprocessSummary, error)
	migrateFn   func() error

	// set by connect; closed after the command runs
	application *app.App
)

var userFlag string

const userEnv = "BRD_USER_ID"

var rootCmd = &cobra.Command{
	Use:   "brdctl",
	Short: "Command-line client for the BRD generator",
	Long: `brdctl drives the BRD generator without the HTTP server: create projects,
ingest documents, ask questions and generate Business Requirements Documents.

Configuration comes from the same environment variables (and .env file) as the
server. The acting user is --user or $BRD_USER_ID.`,
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if application != nil {
			application.Close()
			application = nil
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&userFlag, "user", os.Getenv(userEnv), "acting user id (uuid)")
}

// connect builds the services from configuration unless they were already
// provided.
func connect(ctx context.Context) error {
	if projectSvc != nil {
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}

	application = a
	projectSvc, documentSvc, answerSvc, brdSvc = a.ProjectSvc, a.DocumentSvc, a.RAG, a.BRD
	reprocessFn = func(ctx context.Context, workers int) (services.ReprocessSummary, error) {
		return services.ReprocessStale(ctx, a.Documents, a.Processor, workers)
	}
	migrateFn = a.DB.Migrate
	return nil
}

func currentUser() (uuid.UUID, error) {
	if userFlag == "" {
		return uuid.Nil, errors.New("no user: pass --user or set " + userEnv)
	}
	id, err := uuid.Parse(userFlag)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --user %q: %w", userFlag, err)
	}
	return id, nil
}

// setup is the common prologue of commands that act for a user.
func setup(cmd *cobra.Command) (context.Context, uuid.UUID, error) {
	userID, err := currentUser()
	if err != nil {
		return nil, uuid.Nil, err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := connect(ctx); err != nil {
		return nil, uuid.Nil, err
	}
	return ctx, userID, nil
}
