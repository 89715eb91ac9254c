package vectorindex

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"brd-generator/internal/models"
)

// MemoryIndex is an in-process chunk index with brute-force cosine search.
// It satisfies the same contract as the pgvector repository and is safe for
// concurrent use.
type MemoryIndex struct {
	mu     sync.RWMutex
	chunks map[string][]*models.Chunk // documentID -> chunks ordered by index
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{chunks: make(map[string][]*models.Chunk)}
}

// InsertChunks stores the chunks of one or more documents. A chunk index that
// already exists for its document rejects the whole batch.
func (m *MemoryIndex) InsertChunks(ctx context.Context, chunks []*models.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]map[int]bool)
	for _, c := range chunks {
		if len(c.Embedding.Slice()) == 0 {
			return fmt.Errorf("chunk %d of document %s has no embedding", c.ChunkIndex, c.DocumentID)
		}
		if seen[c.DocumentID] == nil {
			seen[c.DocumentID] = make(map[int]bool)
			for _, existing := range m.chunks[c.DocumentID] {
				seen[c.DocumentID][existing.ChunkIndex] = true
			}
		}
		if seen[c.DocumentID][c.ChunkIndex] {
			return fmt.Errorf("duplicate chunk index %d for document %s", c.ChunkIndex, c.DocumentID)
		}
		seen[c.DocumentID][c.ChunkIndex] = true
	}

	for _, c := range chunks {
		stored := *c
		if stored.ID == "" {
			stored.ID = fmt.Sprintf("%s-%04d", c.DocumentID, c.ChunkIndex)
			c.ID = stored.ID
		}
		m.chunks[c.DocumentID] = append(m.chunks[c.DocumentID], &stored)
	}
	for docID := range seen {
		list := m.chunks[docID]
		sort.Slice(list, func(i, j int) bool { return list[i].ChunkIndex < list[j].ChunkIndex })
	}
	return nil
}

// Search scores every chunk in scope and ranks the ones that clear the threshold.
func (m *MemoryIndex) Search(ctx context.Context, q models.SearchQuery) ([]models.ChunkMatch, error) {
	q = Normalize(q)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var candidates []models.ChunkMatch
	for _, list := range m.chunks {
		for _, c := range list {
			if q.ProjectID != "" && c.ProjectID != q.ProjectID {
				continue
			}
			sim, err := Cosine(q.Vector, c.Embedding.Slice())
			if err != nil {
				return nil, fmt.Errorf("failed to score chunk %s: %w", c.ID, err)
			}
			meta := c.Metadata.Data()
			candidates = append(candidates, models.ChunkMatch{
				ChunkID:    c.ID,
				DocumentID: c.DocumentID,
				ChunkIndex: c.ChunkIndex,
				Filename:   meta.Filename,
				FileType:   meta.FileType,
				Content:    c.Content,
				Similarity: sim,
			})
		}
	}

	return Rank(candidates, q.Limit, q.Threshold), nil
}

// ListByDocumentID returns a document's chunks in index order.
func (m *MemoryIndex) ListByDocumentID(ctx context.Context, documentID string) ([]*models.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.chunks[documentID]
	out := make([]*models.Chunk, len(list))
	copy(out, list)
	return out, nil
}

// DeleteByDocumentID removes a document's chunks. Unknown ids are not an error.
func (m *MemoryIndex) DeleteByDocumentID(ctx context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.chunks, documentID)
	return nil
}

// CountByDocumentID reports how many chunks a document has.
func (m *MemoryIndex) CountByDocumentID(ctx context.Context, documentID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.chunks[documentID])), nil
}
