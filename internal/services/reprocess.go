package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"brd-generator/internal/models"
)

/*
LEARNING: REPROCESSING WORKER POOL

Documents left unprocessed (failed runs, crashed requests) are rebuilt by a
fixed pool of workers pulling from a buffered channel.

Key Concepts:
1. **Goroutines**: one per worker, not one per document
2. **Channels**: the job queue; a full queue blocks Submit (backpressure)
3. **WaitGroup**: Shutdown waits for in-flight documents to finish
4. **Context**: cancelling it stops workers between documents

Each worker handles one document at a time, so at most `workers` pipelines
(and embedding batches) run concurrently.
*/

var errPoolClosed = errors.New("reprocess pool is shutting down")

// ReprocessSummary counts the outcome of one pool run.
type ReprocessSummary struct {
	Submitted int64
	Succeeded int64
	Failed    int64
}

// ReprocessPool runs the ingestion pipeline for many documents concurrently.
type ReprocessPool struct {
	processor *DocumentProcessor

	jobs    chan *models.Document
	workers int
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	once    sync.Once

	submitted atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
}

// NewReprocessPool prepares a pool; Start launches the workers.
func NewReprocessPool(ctx context.Context, processor *DocumentProcessor, workers, queueSize int) *ReprocessPool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	ctx, cancel := context.WithCancel(ctx)

	return &ReprocessPool{
		processor: processor,
		jobs:      make(chan *models.Document, queueSize),
		workers:   workers,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (p *ReprocessPool) Start() {
	log.Printf("🔧 Starting reprocess pool with %d workers", p.workers)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

func (p *ReprocessPool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case doc, ok := <-p.jobs:
			if !ok {
				return
			}
			if err := p.processor.Process(p.ctx, doc); err != nil {
				p.failed.Add(1)
				log.Printf("  Worker %d: %s failed: %v", id, doc.ID, err)
				continue
			}
			p.succeeded.Add(1)
		}
	}
}

// Submit queues a document, blocking while the queue is full. It must not be
// called after Shutdown.
func (p *ReprocessPool) Submit(doc *models.Document) error {
	select {
	case p.jobs <- doc:
		p.submitted.Add(1)
		return nil
	case <-p.ctx.Done():
		return errPoolClosed
	}
}

// Shutdown stops accepting jobs and waits for the queue to drain.
func (p *ReprocessPool) Shutdown() ReprocessSummary {
	p.once.Do(func() {
		close(p.jobs)
		p.wg.Wait()
		p.cancel()
	})
	return p.Summary()
}

// Cancel abandons queued documents; in-flight pipelines see a cancelled context.
func (p *ReprocessPool) Cancel() {
	p.cancel()
}

func (p *ReprocessPool) Summary() ReprocessSummary {
	return ReprocessSummary{
		Submitted: p.submitted.Load(),
		Succeeded: p.succeeded.Load(),
		Failed:    p.failed.Load(),
	}
}

// ReprocessStale finds every unprocessed document and rebuilds it through a
// pool of the given size.
func ReprocessStale(ctx context.Context, docs DocumentRepository, processor *DocumentProcessor, workers int) (ReprocessSummary, error) {
	pending, err := docs.ListUnprocessed(ctx)
	if err != nil {
		return ReprocessSummary{}, fmt.Errorf("failed to list unprocessed documents: %w", err)
	}
	if len(pending) == 0 {
		log.Println("✓ No unprocessed documents")
		return ReprocessSummary{}, nil
	}

	pool := NewReprocessPool(ctx, processor, workers, len(pending))
	pool.Start()

	for _, doc := range pending {
		if err := pool.Submit(doc); err != nil {
			summary := pool.Shutdown()
			return summary, err
		}
	}

	summary := pool.Shutdown()
	log.Printf("✓ Reprocessed %d documents: %d succeeded, %d failed", summary.Submitted, summary.Succeeded, summary.Failed)
	return summary, ctx.Err()
}
