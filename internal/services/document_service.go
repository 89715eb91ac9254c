package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"brd-generator/internal/middleware"
	"brd-generator/internal/models"
	"brd-generator/internal/storage"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// UploadRequest is one file posted to a project.
type UploadRequest struct {
	UserID    uuid.UUID
	ProjectID string
	Filename  string
	Content   io.Reader
}

// DocumentService owns the document lifecycle: upload, (re)process, delete.
type DocumentService struct {
	projects  ProjectRepository
	docs      DocumentRepository
	chunks    ChunkStore
	blobs     BlobStore
	processor *DocumentProcessor
	maxBytes  int64
	now       func() time.Time
}

func NewDocumentService(
	projects ProjectRepository,
	docs DocumentRepository,
	chunks ChunkStore,
	blobs BlobStore,
	processor *DocumentProcessor,
	maxBytes int64,
) *DocumentService {
	return &DocumentService{
		projects:  projects,
		docs:      docs,
		chunks:    chunks,
		blobs:     blobs,
		processor: processor,
		maxBytes:  maxBytes,
		now:       time.Now,
	}
}

// Upload validates and stores the file, creates the document and runs the
// pipeline before returning. On a pipeline failure the stored document is
// returned together with the error so the caller can report its id.
// Learning: every check that can reject the request happens before the first
// side effect, so a rejected upload leaves no blob and no row behind.
func (s *DocumentService) Upload(ctx context.Context, req UploadRequest) (*models.Document, error) {
	ctx, span := middleware.StartSpan(ctx, "DocumentService.Upload",
		attribute.String("project.id", req.ProjectID),
		attribute.String("document.filename", req.Filename),
	)
	defer span.End()

	if req.ProjectID == "" {
		return nil, ErrProjectRequired
	}
	if strings.TrimSpace(req.Filename) == "" {
		return nil, ErrFilenameRequired
	}
	fileType, err := models.FileTypeFromFilename(req.Filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, req.Filename)
	}

	data, err := s.readLimited(req.Content)
	if err != nil {
		return nil, err
	}

	if _, err := s.projects.GetByID(ctx, req.UserID, req.ProjectID); err != nil {
		return nil, err
	}

	path := storage.BuildPath(req.UserID, req.Filename, s.now())
	if err := s.blobs.Put(ctx, path, bytes.NewReader(data)); err != nil {
		middleware.AddSpanError(ctx, err)
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	doc, err := s.docs.Create(ctx, &models.DocumentCreate{
		ProjectID:   req.ProjectID,
		UserID:      req.UserID,
		Filename:    req.Filename,
		FileType:    fileType,
		StoragePath: path,
		FileSize:    int64(len(data)),
	})
	if err != nil {
		middleware.AddSpanError(ctx, err)
		if delErr := s.blobs.Delete(context.WithoutCancel(ctx), path); delErr != nil {
			log.Printf("⚠️  Failed to remove orphaned blob %s: %v", path, delErr)
		}
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	log.Printf("✓ Uploaded %s (%d bytes) as %s", doc.Filename, doc.FileSize, doc.ID)

	if err := s.processor.Process(ctx, doc); err != nil {
		return doc, err
	}
	return doc, nil
}

func (s *DocumentService) readLimited(r io.Reader) ([]byte, error) {
	if r == nil {
		return nil, ErrEmptyFile
	}
	if s.maxBytes > 0 {
		r = io.LimitReader(r, s.maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, ErrFileTooLarge
	}
	return data, nil
}

// Process reruns the pipeline for a document that has no usable chunks.
func (s *DocumentService) Process(ctx context.Context, userID uuid.UUID, id string) (*models.Document, error) {
	ctx, span := middleware.StartSpan(ctx, "DocumentService.Process", attribute.String("document.id", id))
	defer span.End()

	doc, err := s.docs.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if doc.Processed {
		return doc, ErrAlreadyProcessed
	}

	if err := s.processor.Process(ctx, doc); err != nil {
		return doc, err
	}
	return doc, nil
}

func (s *DocumentService) Get(ctx context.Context, userID uuid.UUID, id string) (*models.Document, error) {
	return s.docs.GetByID(ctx, userID, id)
}

// List returns a project's documents, newest first.
func (s *DocumentService) List(ctx context.Context, userID uuid.UUID, projectID string) ([]*models.Document, error) {
	if _, err := s.projects.GetByID(ctx, userID, projectID); err != nil {
		return nil, err
	}
	return s.docs.ListByProject(ctx, userID, projectID)
}

// Delete removes chunks, then the row, then the blob. A blob that cannot be
// removed is logged and left behind; the document is already gone.
func (s *DocumentService) Delete(ctx context.Context, userID uuid.UUID, id string) error {
	ctx, span := middleware.StartSpan(ctx, "DocumentService.Delete", attribute.String("document.id", id))
	defer span.End()

	doc, err := s.docs.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.chunks.DeleteByDocumentID(ctx, doc.ID); err != nil {
		middleware.AddSpanError(ctx, err)
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	if err := s.docs.Delete(ctx, userID, doc.ID); err != nil {
		middleware.AddSpanError(ctx, err)
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if err := s.blobs.Delete(ctx, doc.StoragePath); err != nil {
		log.Printf("⚠️  Failed to delete blob %s: %v", doc.StoragePath, err)
	}

	log.Printf("✓ Deleted document %s (%s)", doc.Filename, doc.ID)
	return nil
}
