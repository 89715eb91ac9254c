package repository

import (
	"context"
	"fmt"
	"time"

	"brd-generator/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConversationRepositoryImpl struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepositoryImpl {
	return &ConversationRepositoryImpl{db: db}
}

func (r *ConversationRepositoryImpl) Create(ctx context.Context, conv *models.Conversation) error {
	if err := r.db.WithContext(ctx).Create(conv).Error; err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

func (r *ConversationRepositoryImpl) GetByID(ctx context.Context, userID uuid.UUID, id string) (*models.Conversation, error) {
	var conv models.Conversation

	err := r.db.WithContext(ctx).First(&conv, "id = ? AND user_id = ?", id, userID).Error
	if isNotFound(err) {
		return nil, fmt.Errorf("conversation %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	return &conv, nil
}

// ListByProject returns the project's conversations, most recently active first.
func (r *ConversationRepositoryImpl) ListByProject(ctx context.Context, userID uuid.UUID, projectID string) ([]*models.Conversation, error) {
	var convs []*models.Conversation

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND project_id = ?", userID, projectID).
		Order("updated_at DESC").
		Find(&convs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	return convs, nil
}

// AddMessage stores msg and bumps the conversation's updated_at in one
// transaction.
func (r *ConversationRepositoryImpl) AddMessage(ctx context.Context, msg *models.Message) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", msg.ConversationID).
			Update("updated_at", time.Now()).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

// ListMessages returns the conversation's messages oldest first.
func (r *ConversationRepositoryImpl) ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error) {
	var msgs []*models.Message

	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	return msgs, nil
}
