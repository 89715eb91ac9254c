package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"brd-generator/internal/middleware"
	"brd-generator/internal/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// ProjectService manages knowledge bases. Every call is scoped to the caller.
type ProjectService struct {
	projects ProjectRepository
	docs     DocumentRepository
	chunks   ChunkStore
	blobs    BlobStore
}

func NewProjectService(projects ProjectRepository, docs DocumentRepository, chunks ChunkStore, blobs BlobStore) *ProjectService {
	return &ProjectService{projects: projects, docs: docs, chunks: chunks, blobs: blobs}
}

func (s *ProjectService) Create(ctx context.Context, userID uuid.UUID, in *models.ProjectCreate) (*models.Project, error) {
	ctx, span := middleware.StartSpan(ctx, "Project.Create")
	defer span.End()

	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, ErrNameRequired
	}

	project, err := s.projects.Create(ctx, userID, in)
	if err != nil {
		middleware.AddSpanError(ctx, err)
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	log.Printf("✓ Created project %q (%s)", project.Name, project.ID)
	return project, nil
}

func (s *ProjectService) Get(ctx context.Context, userID uuid.UUID, id string) (*models.Project, error) {
	return s.projects.GetByID(ctx, userID, id)
}

// List returns the caller's projects, most recently updated first.
func (s *ProjectService) List(ctx context.Context, userID uuid.UUID) ([]*models.Project, error) {
	return s.projects.List(ctx, userID)
}

func (s *ProjectService) Update(ctx context.Context, userID uuid.UUID, id string, update *models.ProjectUpdate) (*models.Project, error) {
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		update.Name = &name
	}
	return s.projects.Update(ctx, userID, id, update)
}

// Delete removes the project with everything in it. Documents, chunks,
// conversations and BRDs cascade in the database; stored files and the chunk
// index are cleaned up here first.
func (s *ProjectService) Delete(ctx context.Context, userID uuid.UUID, id string) error {
	ctx, span := middleware.StartSpan(ctx, "Project.Delete", attribute.String("project.id", id))
	defer span.End()

	if _, err := s.projects.GetByID(ctx, userID, id); err != nil {
		return err
	}
	docs, err := s.docs.ListByProject(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	for _, doc := range docs {
		if err := s.chunks.DeleteByDocumentID(ctx, doc.ID); err != nil {
			middleware.AddSpanError(ctx, err)
			return fmt.Errorf("failed to delete chunks of %s: %w", doc.ID, err)
		}
		if err := s.blobs.Delete(ctx, doc.StoragePath); err != nil {
			log.Printf("⚠️  Failed to delete blob %s: %v", doc.StoragePath, err)
		}
	}

	if err := s.projects.Delete(ctx, userID, id); err != nil {
		middleware.AddSpanError(ctx, err)
		return err
	}

	log.Printf("✓ Deleted project %s with %d documents", id, len(docs))
	return nil
}

func (s *ProjectService) Stats(ctx context.Context, userID uuid.UUID, id string) (*models.ProjectStats, error) {
	return s.projects.Stats(ctx, userID, id)
}
