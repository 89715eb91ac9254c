package models

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/segmentio/ksuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EmbeddingDimensions is the output size of text-embedding-3-small and the
// width of the chunks.embedding column.
const EmbeddingDimensions = 1536

// ChunkMetadata travels with every chunk so search results can be attributed
// without joining documents.
type ChunkMetadata struct {
	Filename string   `json:"filename"`
	FileType FileType `json:"file_type"`
}

// Chunk is one embedded slice of a document's extracted text.
// (document_id, chunk_index) is unique and indices are contiguous from 0.
// ProjectID is copied from the document so project-scoped search needs no join.
type Chunk struct {
	ID         string                            `json:"id" gorm:"type:char(27);primaryKey"`
	DocumentID string                            `json:"document_id" gorm:"type:char(27);not null;uniqueIndex:idx_chunks_document_index,priority:1"`
	ProjectID  string                            `json:"project_id" gorm:"type:char(27);not null;index"`
	ChunkIndex int                               `json:"chunk_index" gorm:"not null;uniqueIndex:idx_chunks_document_index,priority:2"`
	Content    string                            `json:"content" gorm:"type:text;not null"`
	Embedding  pgvector.Vector                   `json:"-" gorm:"type:vector(1536);not null"`
	Metadata   datatypes.JSONType[ChunkMetadata] `json:"metadata" gorm:"type:jsonb;not null"`
	CreatedAt  time.Time                         `json:"created_at" gorm:"column:created_at;autoCreateTime"`

	Document Document `json:"-" gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE"`
}

func (c *Chunk) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = ksuid.New().String()
	}
	return nil
}

// ChunkMatch is one similarity search hit.
type ChunkMatch struct {
	ChunkID    string   `json:"chunk_id"`
	DocumentID string   `json:"document_id"`
	ChunkIndex int      `json:"chunk_index"`
	Filename   string   `json:"filename"`
	FileType   FileType `json:"file_type"`
	Content    string   `json:"content"`
	Similarity float64  `json:"similarity"`
}

// SearchQuery parameterises a similarity search. An empty ProjectID searches
// every project.
type SearchQuery struct {
	Vector    []float32
	Limit     int
	Threshold float64
	ProjectID string
}
