package services

import (
	"context"
	"io"

	"brd-generator/internal/models"

	"github.com/google/uuid"
)

/*
LEARNING: GO INTERFACE BEST PRACTICE

"Accept interfaces, return structs" - Rob Pike

Key Principle: Interfaces should be defined where they are USED, not where implemented.

Why?
1. Consumer-driven design: The user of the dependency defines what it needs
2. Smaller, focused interfaces: Only declare methods you actually use
3. No circular dependencies: Implementation doesn't know about interface
4. Better testability: Easy to mock exactly what you need

This package (services) is the CONSUMER of repositories, AI clients and
storage, so their interfaces go here. ChunkStore is satisfied by both the
pgvector repository and vectorindex.MemoryIndex.
*/

type ProjectRepository interface {
	Create(ctx context.Context, userID uuid.UUID, in *models.ProjectCreate) (*models.Project, error)
	GetByID(ctx context.Context, userID uuid.UUID, id string) (*models.Project, error)
	List(ctx context.Context, userID uuid.UUID) ([]*models.Project, error)
	Update(ctx context.Context, userID uuid.UUID, id string, update *models.ProjectUpdate) (*models.Project, error)
	Delete(ctx context.Context, userID uuid.UUID, id string) error
	Stats(ctx context.Context, userID uuid.UUID, id string) (*models.ProjectStats, error)
}

type DocumentRepository interface {
	Create(ctx context.Context, in *models.DocumentCreate) (*models.Document, error)
	GetByID(ctx context.Context, userID uuid.UUID, id string) (*models.Document, error)
	ListByProject(ctx context.Context, userID uuid.UUID, projectID string) ([]*models.Document, error)
	ListProcessed(ctx context.Context, userID uuid.UUID, projectID string) ([]*models.Document, error)
	ListUnprocessed(ctx context.Context) ([]*models.Document, error)
	UpdateStatus(ctx context.Context, id string, status models.DocumentStatusUpdate) error
	Delete(ctx context.Context, userID uuid.UUID, id string) error
}

// ChunkStore is the vector index.
type ChunkStore interface {
	InsertChunks(ctx context.Context, chunks []*models.Chunk) error
	Search(ctx context.Context, q models.SearchQuery) ([]models.ChunkMatch, error)
	ListByDocumentID(ctx context.Context, documentID string) ([]*models.Chunk, error)
	DeleteByDocumentID(ctx context.Context, documentID string) error
}

type ConversationRepository interface {
	Create(ctx context.Context, conv *models.Conversation) error
	GetByID(ctx context.Context, userID uuid.UUID, id string) (*models.Conversation, error)
	ListByProject(ctx context.Context, userID uuid.UUID, projectID string) ([]*models.Conversation, error)
	AddMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error)
}

type BRDRepository interface {
	Create(ctx context.Context, brd *models.BRD) error
	GetByID(ctx context.Context, userID uuid.UUID, id string) (*models.BRD, error)
	ListByProject(ctx context.Context, userID uuid.UUID, projectID string) ([]*models.BRD, error)
	Delete(ctx context.Context, userID uuid.UUID, id string) error
}

// Embedder returns one vector per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator is a chat completion provider (OpenAI or Gemini).
type Generator interface {
	Complete(ctx context.Context, req models.CompletionRequest) (string, error)
	CompleteStream(ctx context.Context, req models.CompletionRequest, onFragment func(string) error) error
}

type TextExtractor interface {
	Extract(ctx context.Context, data []byte, fileType models.FileType, filename string) (string, error)
}

type BlobStore interface {
	Put(ctx context.Context, path string, data io.Reader) error
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
}
