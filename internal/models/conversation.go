package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Conversation struct {
	ID        string    `json:"id" gorm:"type:char(27);primaryKey"`
	ProjectID string    `json:"project_id" gorm:"type:char(27);not null;index"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	Title     string    `json:"title" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`

	Project Project `json:"-" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = ksuid.New().String()
	}
	return nil
}

// Source attributes an answer to the chunks of one document.
type Source struct {
	DocumentID string   `json:"document_id"`
	Filename   string   `json:"filename"`
	ChunkIDs   []string `json:"chunk_ids"`
}

type Message struct {
	ID             string                       `json:"id" gorm:"type:char(27);primaryKey"`
	ConversationID string                       `json:"conversation_id" gorm:"type:char(27);not null;index"`
	Role           Role                         `json:"role" gorm:"type:varchar(16);not null"`
	Content        string                       `json:"content" gorm:"type:text;not null"`
	Sources        datatypes.JSONType[[]Source] `json:"sources" gorm:"type:jsonb"`
	CreatedAt      time.Time                    `json:"created_at" gorm:"column:created_at;autoCreateTime"`

	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = ksuid.New().String()
	}
	return nil
}

// ChatTurn is a provider-neutral prompt message.
type ChatTurn struct {
	Role    Role
	Content string
}

// CompletionRequest is a provider-neutral generation call. MaxTokens of zero
// leaves the provider default.
type CompletionRequest struct {
	System    string
	Turns     []ChatTurn
	MaxTokens int
}
