package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"brd-generator/internal/chunker"
	"brd-generator/internal/middleware"
	"brd-generator/internal/models"

	"github.com/pgvector/pgvector-go"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
)

/*
LEARNING: INGESTION PIPELINE

One document, strictly sequential steps:

  delete old chunks → download blob → extract → chunk → embed (one batch) → insert → mark processed

Each step needs the previous one's output, so nothing here runs concurrently.
A run always starts from scratch: a crash halfway leaves processed=false with
zero or partial chunks, and the next run deletes them first. There is no
resume logic to get wrong.

Failures are recorded on the document (processed=false, error=<message>) AND
returned to the caller, so an upload request never reports success for a
document that has no chunks.
*/

// DocumentProcessor runs the ingestion pipeline for one document at a time.
// It holds no per-document state and is safe for concurrent use.
type DocumentProcessor struct {
	docs      DocumentRepository
	chunks    ChunkStore
	blobs     BlobStore
	extractor TextExtractor
	chunker   *chunker.Chunker
	embedder  Embedder
}

func NewDocumentProcessor(
	docs DocumentRepository,
	chunks ChunkStore,
	blobs BlobStore,
	extractor TextExtractor,
	chk *chunker.Chunker,
	embedder Embedder,
) *DocumentProcessor {
	return &DocumentProcessor{
		docs:      docs,
		chunks:    chunks,
		blobs:     blobs,
		extractor: extractor,
		chunker:   chk,
		embedder:  embedder,
	}
}

// Process runs the pipeline and updates doc in place with the final status.
func (p *DocumentProcessor) Process(ctx context.Context, doc *models.Document) error {
	ctx, span := middleware.StartSpan(ctx, "Pipeline.Process",
		attribute.String("document.id", doc.ID),
		attribute.String("document.file_type", string(doc.FileType)),
	)
	defer span.End()

	start := time.Now()
	n, err := p.run(ctx, doc)
	if err != nil {
		middleware.AddSpanError(ctx, err)
		p.markFailed(ctx, doc, err)
		log.Printf("❌ Processing %s (%s) failed: %v", doc.Filename, doc.ID, err)
		return err
	}

	if err := p.docs.UpdateStatus(ctx, doc.ID, models.DocumentStatusUpdate{Processed: true}); err != nil {
		middleware.AddSpanError(ctx, err)
		// the chunks are in place but the flag is not; a reprocess rebuilds both
		return fmt.Errorf("failed to mark document processed: %w", err)
	}

	now := time.Now()
	doc.Processed = true
	doc.Error = nil
	doc.ProcessedAt = &now

	middleware.AddSpanEvent(ctx, "document_processed", attribute.Int("chunks", n))
	log.Printf("✓ Processed %s (%s): %d chunks in %dms", doc.Filename, doc.ID, n, time.Since(start).Milliseconds())

	return nil
}

func (p *DocumentProcessor) run(ctx context.Context, doc *models.Document) (int, error) {
	if err := p.chunks.DeleteByDocumentID(ctx, doc.ID); err != nil {
		return 0, fmt.Errorf("failed to clear previous chunks: %w", err)
	}

	data, err := p.download(ctx, doc.StoragePath)
	if err != nil {
		return 0, err
	}

	text, err := p.extractor.Extract(ctx, data, doc.FileType, doc.Filename)
	if err != nil {
		return 0, err
	}
	middleware.AddSpanEvent(ctx, "text_extracted", attribute.Int("characters", len(text)))

	pieces := p.chunker.Split(text)
	contents := make([]string, len(pieces))
	for i, piece := range pieces {
		contents[i] = piece.Content
	}

	vectors, err := p.embedder.EmbedBatch(ctx, contents)
	if err != nil {
		return 0, err
	}
	if len(vectors) != len(pieces) {
		return 0, &models.EmbeddingServiceError{Err: fmt.Errorf("expected %d embeddings, got %d", len(pieces), len(vectors))}
	}

	meta := datatypes.NewJSONType(models.ChunkMetadata{Filename: doc.Filename, FileType: doc.FileType})
	chunks := make([]*models.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = &models.Chunk{
			DocumentID: doc.ID,
			ProjectID:  doc.ProjectID,
			ChunkIndex: piece.Index,
			Content:    piece.Content,
			Embedding:  pgvector.NewVector(vectors[i]),
			Metadata:   meta,
		}
	}

	if err := p.chunks.InsertChunks(ctx, chunks); err != nil {
		return 0, fmt.Errorf("failed to index chunks: %w", err)
	}

	return len(chunks), nil
}

func (p *DocumentProcessor) download(ctx context.Context, path string) ([]byte, error) {
	rc, err := p.blobs.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// markFailed records the error on the document. It runs detached from ctx so a
// cancelled request still leaves a definite failure marker.
func (p *DocumentProcessor) markFailed(ctx context.Context, doc *models.Document, cause error) {
	msg := cause.Error()
	update := models.DocumentStatusUpdate{Processed: false, Error: &msg}

	if err := p.docs.UpdateStatus(context.WithoutCancel(ctx), doc.ID, update); err != nil {
		log.Printf("⚠️  Failed to record processing error for %s: %v", doc.ID, err)
	}

	doc.Processed = false
	doc.Error = &msg
	doc.ProcessedAt = nil
}
