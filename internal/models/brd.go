package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
	"gorm.io/gorm"
)

// BRD is a saved Business Requirements Document.
type BRD struct {
	ID              string    `json:"id" gorm:"type:char(27);primaryKey"`
	ProjectID       string    `json:"project_id" gorm:"type:char(27);not null;index"`
	UserID          uuid.UUID `json:"user_id" gorm:"type:uuid;not null"`
	Title           string    `json:"title" gorm:"type:text;not null"`
	MarkdownContent string    `json:"markdown_content" gorm:"type:text;not null"`
	CreatedAt       time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`

	Project Project `json:"-" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

func (b *BRD) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ksuid.New().String()
	}
	return nil
}

type BRDCreate struct {
	Title           string `json:"title"`
	MarkdownContent string `json:"markdown_content"`
}
