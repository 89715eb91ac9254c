package repository

import (
	"context"
	"fmt"

	"brd-generator/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BRDRepositoryImpl struct {
	db *gorm.DB
}

func NewBRDRepository(db *gorm.DB) *BRDRepositoryImpl {
	return &BRDRepositoryImpl{db: db}
}

func (r *BRDRepositoryImpl) Create(ctx context.Context, brd *models.BRD) error {
	if err := r.db.WithContext(ctx).Create(brd).Error; err != nil {
		return fmt.Errorf("failed to create brd: %w", err)
	}
	return nil
}

func (r *BRDRepositoryImpl) GetByID(ctx context.Context, userID uuid.UUID, id string) (*models.BRD, error) {
	var brd models.BRD

	err := r.db.WithContext(ctx).First(&brd, "id = ? AND user_id = ?", id, userID).Error
	if isNotFound(err) {
		return nil, fmt.Errorf("brd %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get brd: %w", err)
	}

	return &brd, nil
}

func (r *BRDRepositoryImpl) ListByProject(ctx context.Context, userID uuid.UUID, projectID string) ([]*models.BRD, error) {
	var brds []*models.BRD

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND project_id = ?", userID, projectID).
		Order("created_at DESC").
		Find(&brds).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list brds: %w", err)
	}

	return brds, nil
}

func (r *BRDRepositoryImpl) Delete(ctx context.Context, userID uuid.UUID, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.BRD{}, "id = ? AND user_id = ?", id, userID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete brd: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("brd %s: %w", id, models.ErrNotFound)
	}
	return nil
}
