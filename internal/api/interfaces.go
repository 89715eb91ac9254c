package api

import (
	"context"

	"brd-generator/internal/models"
	"brd-generator/internal/services"

	"github.com/google/uuid"
)

/*
LEARNING: CONSUMER-DRIVEN INTERFACES (Go Idiom)

This package (api/handlers) is the CONSUMER of services, so service interfaces live HERE.

The handler doesn't care about service implementation details - it only cares about
the methods it needs to call. This is the "Interface Segregation Principle" from SOLID.

Benefits:
- Handler package defines exactly what it needs
- Service implementations can change without affecting handler
- Easy to create fake services for testing handlers
- No circular dependencies

ChatService is the exception that returns a concrete *services.ChatTurn: the
turn carries the prepared prompt between StartTurn and Stream.
*/

type ProjectService interface {
	Create(ctx context.Context, userID uuid.UUID, in *models.ProjectCreate) (*models.Project, error)
	Get(ctx context.Context, userID uuid.UUID, id string) (*models.Project, error)
	List(ctx context.Context, userID uuid.UUID) ([]*models.Project, error)
	Update(ctx context.Context, userID uuid.UUID, id string, update *models.ProjectUpdate) (*models.Project, error)
	Delete(ctx context.Context, userID uuid.UUID, id string) error
	Stats(ctx context.Context, userID uuid.UUID, id string) (*models.ProjectStats, error)
}

type DocumentService interface {
	Upload(ctx context.Context, req services.UploadRequest) (*models.Document, error)
	Process(ctx context.Context, userID uuid.UUID, id string) (*models.Document, error)
	Get(ctx context.Context, userID uuid.UUID, id string) (*models.Document, error)
	List(ctx context.Context, userID uuid.UUID, projectID string) ([]*models.Document, error)
	Delete(ctx context.Context, userID uuid.UUID, id string) error
}

// SearchService covers raw retrieval and one-shot answers.
type SearchService interface {
	SearchProject(ctx context.Context, userID uuid.UUID, projectID, query string) ([]models.ChunkMatch, error)
	Answer(ctx context.Context, userID uuid.UUID, projectID, question string) (string, *services.RetrievedContext, error)
}

type ChatService interface {
	StartTurn(ctx context.Context, req services.ChatRequest) (*services.ChatTurn, error)
	ListConversations(ctx context.Context, userID uuid.UUID, projectID string) ([]*models.Conversation, error)
	ListMessages(ctx context.Context, userID uuid.UUID, conversationID string) ([]*models.Message, error)
}

type BRDService interface {
	Generate(ctx context.Context, userID uuid.UUID, projectID string) (string, error)
	Save(ctx context.Context, userID uuid.UUID, projectID string, in *models.BRDCreate) (*models.BRD, error)
	List(ctx context.Context, userID uuid.UUID, projectID string) ([]*models.BRD, error)
	Get(ctx context.Context, userID uuid.UUID, id string) (*models.BRD, error)
	Delete(ctx context.Context, userID uuid.UUID, id string) error
	ExportDOCX(ctx context.Context, markdown, title string) ([]byte, error)
}
