package repository

import (
	"context"
	"fmt"
	"time"

	"brd-generator/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DocumentRepositoryImpl handles all database operations for documents using GORM
// Learning: This is the IMPLEMENTATION. It doesn't know about any interface.
// The services package will declare the interface it needs.
type DocumentRepositoryImpl struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new document repository
// Returns concrete type - "Accept interfaces, return structs"
func NewDocumentRepository(db *gorm.DB) *DocumentRepositoryImpl {
	return &DocumentRepositoryImpl{db: db}
}

// Create inserts an unprocessed document. The KSUID is generated in BeforeCreate.
func (r *DocumentRepositoryImpl) Create(ctx context.Context, in *models.DocumentCreate) (*models.Document, error) {
	document := &models.Document{
		ProjectID:   in.ProjectID,
		UserID:      in.UserID,
		Filename:    in.Filename,
		FileType:    in.FileType,
		StoragePath: in.StoragePath,
		FileSize:    in.FileSize,
	}

	if err := r.db.WithContext(ctx).Create(document).Error; err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	return document, nil
}

// GetByID returns the document when it belongs to userID.
func (r *DocumentRepositoryImpl) GetByID(ctx context.Context, userID uuid.UUID, id string) (*models.Document, error) {
	var doc models.Document

	err := r.db.WithContext(ctx).First(&doc, "id = ? AND user_id = ?", id, userID).Error
	if isNotFound(err) {
		return nil, fmt.Errorf("document %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return &doc, nil
}

// ListByProject returns every document of the project, newest upload first.
func (r *DocumentRepositoryImpl) ListByProject(ctx context.Context, userID uuid.UUID, projectID string) ([]*models.Document, error) {
	return r.list(ctx, r.db.Where("user_id = ? AND project_id = ?", userID, projectID))
}

// ListProcessed returns the processed documents of the project, newest upload
// first. This order is the corpus order for BRD generation.
func (r *DocumentRepositoryImpl) ListProcessed(ctx context.Context, userID uuid.UUID, projectID string) ([]*models.Document, error) {
	return r.list(ctx, r.db.Where("user_id = ? AND project_id = ? AND processed = true", userID, projectID))
}

// ListUnprocessed returns documents of every user still waiting for a
// successful pipeline run, oldest first.
func (r *DocumentRepositoryImpl) ListUnprocessed(ctx context.Context) ([]*models.Document, error) {
	var documents []*models.Document

	err := r.db.WithContext(ctx).
		Where("processed = false").
		Order("uploaded_at ASC").
		Find(&documents).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unprocessed documents: %w", err)
	}

	return documents, nil
}

func (r *DocumentRepositoryImpl) list(ctx context.Context, scope *gorm.DB) ([]*models.Document, error) {
	var documents []*models.Document

	// Learning: uploaded_at, not the KSUID, is the documented order, and two
	// uploads within one second would tie on the KSUID timestamp anyway
	err := scope.WithContext(ctx).
		Order("uploaded_at DESC").
		Order("id DESC").
		Find(&documents).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	return documents, nil
}

// UpdateStatus records a pipeline outcome. processed_at is set on success and
// cleared on failure.
func (r *DocumentRepositoryImpl) UpdateStatus(ctx context.Context, id string, status models.DocumentStatusUpdate) error {
	updates := map[string]interface{}{
		"processed":    status.Processed,
		"error":        status.Error,
		"processed_at": nil,
	}
	if status.Processed {
		updates["processed_at"] = time.Now()
	}

	result := r.db.WithContext(ctx).Model(&models.Document{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update document status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("document %s: %w", id, models.ErrNotFound)
	}

	return nil
}

// Delete removes the document row; its chunks go with it through the foreign key.
func (r *DocumentRepositoryImpl) Delete(ctx context.Context, userID uuid.UUID, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.Document{}, "id = ? AND user_id = ?", id, userID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete document: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("document %s: %w", id, models.ErrNotFound)
	}

	return nil
}
