package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"brd-generator/internal/middleware"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const truncationMarker = "\n\n... [content truncated for length] ...\n\n"

// Corpus is the aggregated text of a project's processed documents.
type Corpus struct {
	Text      string
	Documents int  // documents contributing text, the sampled one included
	Sampled   bool // true when the budget cut the corpus short
}

// CorpusAggregator concatenates processed documents under a character budget.
type CorpusAggregator struct {
	projects ProjectRepository
	docs     DocumentRepository
	chunks   ChunkStore
	maxChars int
}

func NewCorpusAggregator(projects ProjectRepository, docs DocumentRepository, chunks ChunkStore, maxChars int) *CorpusAggregator {
	return &CorpusAggregator{projects: projects, docs: docs, chunks: chunks, maxChars: maxChars}
}

/*
LEARNING: BUDGETED AGGREGATION

Documents are added whole, newest first, while they fit. The first document
that does not fit is sampled (its head and its tail around a truncation
marker) into whatever budget is left, and aggregation stops there. Later
documents are dropped entirely.

The result never exceeds maxChars: the sampled header counts against the
budget, and when not even the header fits the document is skipped.
*/

// Aggregate builds the corpus for a project. It returns ErrNoDocuments when
// the project has no processed document with text, and ErrCorpusBudget when
// there is text but the budget admitted none of it.
func (a *CorpusAggregator) Aggregate(ctx context.Context, userID uuid.UUID, projectID string) (*Corpus, error) {
	ctx, span := middleware.StartSpan(ctx, "Corpus.Aggregate", attribute.String("project.id", projectID))
	defer span.End()

	if _, err := a.projects.GetByID(ctx, userID, projectID); err != nil {
		return nil, err
	}

	docs, err := a.docs.ListProcessed(ctx, userID, projectID)
	if err != nil {
		middleware.AddSpanError(ctx, err)
		return nil, fmt.Errorf("failed to list processed documents: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}

	var (
		sb      strings.Builder
		corpus  Corpus
		hasText bool
	)
	for _, doc := range docs {
		chunks, err := a.chunks.ListByDocumentID(ctx, doc.ID)
		if err != nil {
			middleware.AddSpanError(ctx, err)
			return nil, fmt.Errorf("failed to load chunks of %s: %w", doc.ID, err)
		}
		if len(chunks) == 0 {
			continue
		}
		hasText = true

		contents := make([]string, len(chunks))
		for i, c := range chunks {
			contents[i] = c.Content
		}
		text := strings.Join(contents, "\n\n")

		section := "\n\n=== Document: " + doc.Filename + " ===\n\n" + text
		if a.maxChars <= 0 || sb.Len()+len(section) <= a.maxChars {
			sb.WriteString(section)
			corpus.Documents++
			continue
		}

		header := "\n\n=== Document: " + doc.Filename + " (sampled) ===\n\n"
		corpus.Sampled = true
		if avail := a.maxChars - sb.Len() - len(header); avail > 0 {
			if sampled := sample(text, avail); sampled != "" {
				sb.WriteString(header)
				sb.WriteString(sampled)
				corpus.Documents++
			}
		}
		break
	}

	if corpus.Documents == 0 {
		if hasText {
			return nil, ErrCorpusBudget
		}
		return nil, ErrNoDocuments
	}

	corpus.Text = strings.TrimSpace(sb.String())
	middleware.AddSpanEvent(ctx, "corpus_aggregated",
		attribute.Int("documents", corpus.Documents),
		attribute.Int("characters", len(corpus.Text)),
		attribute.Bool("sampled", corpus.Sampled),
	)
	return &corpus, nil
}

// sample fits text into avail bytes by keeping equal slices of its head and
// tail around truncationMarker. Cuts land on rune boundaries. It returns ""
// when not even the marker fits.
func sample(text string, avail int) string {
	if len(text) <= avail {
		return text
	}
	part := (avail - len(truncationMarker)) / 2
	if part <= 0 {
		return ""
	}

	end := part
	for end > 0 && !utf8.RuneStart(text[end]) {
		end--
	}
	start := len(text) - part
	for start < len(text) && !utf8.RuneStart(text[start]) {
		start++
	}

	return text[:end] + truncationMarker + text[start:]
}
