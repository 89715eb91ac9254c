package repository

import (
	"context"
	"fmt"

	"brd-generator/internal/models"
	"brd-generator/internal/vectorindex"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// ChunkRepositoryImpl handles vector operations using pgvector
// This is the IMPLEMENTATION - doesn't know about interfaces
type ChunkRepositoryImpl struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) *ChunkRepositoryImpl {
	return &ChunkRepositoryImpl{db: db}
}

// InsertChunks writes one document's chunks in a single transaction, so a
// failure leaves no partial chunk set behind.
func (r *ChunkRepositoryImpl) InsertChunks(ctx context.Context, chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	for _, c := range chunks {
		if len(c.Embedding.Slice()) == 0 {
			return fmt.Errorf("chunk %d of document %s has no embedding", c.ChunkIndex, c.DocumentID)
		}
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(chunks, 100).Error
	})
	if isUniqueViolation(err) {
		return fmt.Errorf("failed to insert chunks: %w", ErrDuplicateChunk)
	}
	if err != nil {
		return fmt.Errorf("failed to insert chunks: %w", err)
	}

	return nil
}

// Search performs vector similarity search using cosine distance
// Learning: The <=> operator from pgvector calculates cosine distance, so
// similarity is 1 - distance. Rows under the threshold are filtered in SQL
// rather than ranked low, and ordering by the raw distance lets the HNSW
// index serve the query.
func (r *ChunkRepositoryImpl) Search(ctx context.Context, q models.SearchQuery) ([]models.ChunkMatch, error) {
	q = vectorindex.Normalize(q)

	vec := pgvector.NewVector(q.Vector)

	query := `
		SELECT
			c.id AS chunk_id,
			c.document_id,
			c.chunk_index,
			c.metadata->>'filename' AS filename,
			c.metadata->>'file_type' AS file_type,
			c.content,
			1 - (c.embedding <=> ?) AS similarity
		FROM chunks c
		WHERE 1 - (c.embedding <=> ?) >= ?`
	args := []interface{}{vec, vec, q.Threshold}

	if q.ProjectID != "" {
		query += " AND c.project_id = ?"
		args = append(args, q.ProjectID)
	}

	query += " ORDER BY c.embedding <=> ?, c.chunk_index, c.id LIMIT ?"
	args = append(args, vec, q.Limit)

	var matches []models.ChunkMatch
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&matches).Error; err != nil {
		return nil, fmt.Errorf("failed to perform similarity search: %w", err)
	}

	return matches, nil
}

// ListByDocumentID returns a document's chunks in chunk order.
func (r *ChunkRepositoryImpl) ListByDocumentID(ctx context.Context, documentID string) ([]*models.Chunk, error) {
	var chunks []*models.Chunk

	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("chunk_index").
		Find(&chunks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}

	return chunks, nil
}

// DeleteByDocumentID removes every chunk of a document. Deleting zero rows is
// not an error.
func (r *ChunkRepositoryImpl) DeleteByDocumentID(ctx context.Context, documentID string) error {
	if err := r.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&models.Chunk{}).Error; err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

func (r *ChunkRepositoryImpl) CountByDocumentID(ctx context.Context, documentID string) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Chunk{}).Where("document_id = ?", documentID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}
