package repository

import (
	"context"
	"fmt"

	"brd-generator/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectRepositoryImpl stores projects. Every query is filtered by owner, so
// another user's project looks exactly like a missing one.
type ProjectRepositoryImpl struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepositoryImpl {
	return &ProjectRepositoryImpl{db: db}
}

func (r *ProjectRepositoryImpl) Create(ctx context.Context, userID uuid.UUID, in *models.ProjectCreate) (*models.Project, error) {
	project := &models.Project{
		UserID:      userID,
		Name:        in.Name,
		Description: in.Description,
	}

	if err := r.db.WithContext(ctx).Create(project).Error; err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return project, nil
}

func (r *ProjectRepositoryImpl) GetByID(ctx context.Context, userID uuid.UUID, id string) (*models.Project, error) {
	var project models.Project

	err := r.db.WithContext(ctx).First(&project, "id = ? AND user_id = ?", id, userID).Error
	if isNotFound(err) {
		return nil, fmt.Errorf("project %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return &project, nil
}

func (r *ProjectRepositoryImpl) List(ctx context.Context, userID uuid.UUID) ([]*models.Project, error) {
	var projects []*models.Project

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	return projects, nil
}

// Update applies the non-nil fields of update.
func (r *ProjectRepositoryImpl) Update(ctx context.Context, userID uuid.UUID, id string, update *models.ProjectUpdate) (*models.Project, error) {
	project, err := r.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if update.Name != nil {
		updates["name"] = *update.Name
	}
	if update.Description != nil {
		updates["description"] = *update.Description
	}
	if len(updates) == 0 {
		return project, nil
	}

	if err := r.db.WithContext(ctx).Model(project).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	return project, nil
}

// Delete removes the project row; documents, chunks, conversations and BRDs
// follow through ON DELETE CASCADE.
func (r *ProjectRepositoryImpl) Delete(ctx context.Context, userID uuid.UUID, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.Project{}, "id = ? AND user_id = ?", id, userID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete project: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("project %s: %w", id, models.ErrNotFound)
	}
	return nil
}

func (r *ProjectRepositoryImpl) Stats(ctx context.Context, userID uuid.UUID, id string) (*models.ProjectStats, error) {
	if _, err := r.GetByID(ctx, userID, id); err != nil {
		return nil, err
	}

	var stats models.ProjectStats
	db := r.db.WithContext(ctx)

	counts := []struct {
		model any
		where string
		dest  *int64
	}{
		{&models.Document{}, "project_id = ?", &stats.TotalDocuments},
		{&models.Document{}, "project_id = ? AND processed = true", &stats.ProcessedDocuments},
		{&models.Conversation{}, "project_id = ?", &stats.Conversations},
		{&models.BRD{}, "project_id = ?", &stats.BRDs},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Where(c.where, id).Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to count project stats: %w", err)
		}
	}

	return &stats, nil
}
