package services

import (
	"context"
	"fmt"
	"strings"

	"brd-generator/internal/middleware"
	"brd-generator/internal/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

/*
LEARNING: RAG (Retrieval Augmented Generation)

RAG combines two powerful techniques:
1. **Retrieval**: Find relevant context from your knowledge base
2. **Generation**: Use LLM to generate answers using that context

Why RAG?
- Reduces hallucination (LLM has real facts)
- Allows querying your own data
- Can cite sources

Flow:
  User Question
    ↓
  Generate Embedding (same model as the chunks)
    ↓
  Similarity Search (threshold + top k, scoped to the project)
    ↓
  Format Context: "[From: file]\n<chunk>\n" blocks joined by "\n---\n\n"
    ↓
  System Prompt + Conversation → LLM
    ↓
  Grounded Answer + Sources
*/

// NoContextMessage stands in for the context when nothing cleared the threshold.
const NoContextMessage = "No relevant information found in the knowledge base."

const answerMaxTokens = 4096

// RetrievedContext is what the assembler hands to the generator.
type RetrievedContext struct {
	Context string
	Sources []models.Source
	Matches []models.ChunkMatch
}

// RAGService assembles retrieval context and answers one-shot questions.
type RAGService struct {
	projects  ProjectRepository
	embedder  Embedder
	chunks    ChunkStore
	generator Generator
	limit     int
	threshold float64
}

func NewRAGService(
	projects ProjectRepository,
	embedder Embedder,
	chunks ChunkStore,
	generator Generator,
	limit int,
	threshold float64,
) *RAGService {
	return &RAGService{
		projects:  projects,
		embedder:  embedder,
		chunks:    chunks,
		generator: generator,
		limit:     limit,
		threshold: threshold,
	}
}

// Search embeds the query and returns the ranked matches of one project.
func (s *RAGService) Search(ctx context.Context, query, projectID string) ([]models.ChunkMatch, error) {
	ctx, span := middleware.StartSpan(ctx, "RAG.Search",
		attribute.String("project.id", projectID),
		attribute.Int("query_length", len(query)),
	)
	defer span.End()

	if strings.TrimSpace(query) == "" {
		return nil, ErrQueryRequired
	}

	// Learning: the query goes through the same embedding model as the
	// chunks, otherwise the vectors live in different spaces
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		middleware.AddSpanError(ctx, err)
		return nil, err
	}

	matches, err := s.chunks.Search(ctx, models.SearchQuery{
		Vector:    vector,
		Limit:     s.limit,
		Threshold: s.threshold,
		ProjectID: projectID,
	})
	if err != nil {
		middleware.AddSpanError(ctx, err)
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	middleware.AddSpanEvent(ctx, "search_completed", attribute.Int("matches", len(matches)))
	return matches, nil
}

// SearchProject is Search for a caller who must own the project.
func (s *RAGService) SearchProject(ctx context.Context, userID uuid.UUID, projectID, query string) ([]models.ChunkMatch, error) {
	if _, err := s.projects.GetByID(ctx, userID, projectID); err != nil {
		return nil, err
	}
	return s.Search(ctx, query, projectID)
}

// RetrieveContext formats the best matches for the prompt. No match is not an
// error: the context is NoContextMessage and Sources is empty.
func (s *RAGService) RetrieveContext(ctx context.Context, query, projectID string) (*RetrievedContext, error) {
	matches, err := s.Search(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	return &RetrievedContext{
		Context: FormatContext(matches),
		Sources: GroupSources(matches),
		Matches: matches,
	}, nil
}

// Answer is the non-streaming question endpoint.
func (s *RAGService) Answer(ctx context.Context, userID uuid.UUID, projectID, question string) (string, *RetrievedContext, error) {
	ctx, span := middleware.StartSpan(ctx, "RAG.Answer", attribute.String("project.id", projectID))
	defer span.End()

	if strings.TrimSpace(question) == "" {
		return "", nil, ErrQueryRequired
	}
	if _, err := s.projects.GetByID(ctx, userID, projectID); err != nil {
		return "", nil, err
	}

	rc, err := s.RetrieveContext(ctx, question, projectID)
	if err != nil {
		return "", nil, err
	}

	answer, err := s.generator.Complete(ctx, models.CompletionRequest{
		System:    SystemPrompt(rc.Context),
		Turns:     []models.ChatTurn{{Role: models.RoleUser, Content: question}},
		MaxTokens: answerMaxTokens,
	})
	if err != nil {
		middleware.AddSpanError(ctx, err)
		return "", rc, err
	}

	middleware.AddSpanEvent(ctx, "rag_completed",
		attribute.Int("context_chunks", len(rc.Matches)),
		attribute.Int("answer_length", len(answer)),
	)
	return answer, rc, nil
}

// FormatContext renders matches in rank order.
func FormatContext(matches []models.ChunkMatch) string {
	if len(matches) == 0 {
		return NoContextMessage
	}
	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = fmt.Sprintf("[From: %s]\n%s\n", m.Filename, m.Content)
	}
	return strings.Join(parts, "\n---\n\n")
}

// GroupSources collapses matches into one source per document, in the order
// each document first appears.
func GroupSources(matches []models.ChunkMatch) []models.Source {
	sources := []models.Source{}
	pos := make(map[string]int)
	for _, m := range matches {
		i, ok := pos[m.DocumentID]
		if !ok {
			i = len(sources)
			pos[m.DocumentID] = i
			sources = append(sources, models.Source{DocumentID: m.DocumentID, Filename: m.Filename})
		}
		sources[i].ChunkIDs = append(sources[i].ChunkIDs, m.ChunkID)
	}
	return sources
}

// SystemPrompt wraps the retrieved context in the assistant instructions.
func SystemPrompt(context string) string {
	return "You are a helpful assistant with access to a knowledge base of documents.\n" +
		"Answer questions based on the provided context. If the answer isn't in the context, say so clearly.\n" +
		"Always cite which documents you're referencing when providing information.\n\n" +
		"Context from knowledge base:\n" + context
}
