// Package ingest runs the document ingestion pipeline: fetch the
// original upload, extract text, chunk it, embed the chunks and upsert
// them into the vector index, advancing the document status at each
// stage with guarded transitions.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/docqueryhq/docquery/internal/apperr"
	"github.com/docqueryhq/docquery/internal/core"
	"github.com/docqueryhq/docquery/internal/models"
)

// Config tunes the ingestion pipeline.
//
// ChunkSize/ChunkOverlap: character budgets for the chunker.
// EmbedBatch:             chunks embedded and upserted per batch.
// QueueSize:              bounded job queue capacity.
// Bucket:                 object storage bucket holding originals.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
	EmbedBatch   int
	QueueSize    int
	Bucket       string
}

type Ingestor struct {
	docs      core.DocumentStore
	index     core.VectorIndex
	obj       core.ObjectClient
	embedder  core.EmbeddingProvider
	extractor core.DocumentExtractor
	cfg       *Config
	jobs      chan string
	log       *zap.SugaredLogger
}

func NewIngestor(docs core.DocumentStore, index core.VectorIndex, obj core.ObjectClient,
	embedder core.EmbeddingProvider, extractor core.DocumentExtractor, cfg *Config, log *zap.SugaredLogger) *Ingestor {
	queue := cfg.QueueSize
	if queue <= 0 {
		queue = 64
	}
	batch := cfg.EmbedBatch
	if batch <= 0 {
		cfg.EmbedBatch = 16
	}
	return &Ingestor{
		docs: docs, index: index, obj: obj, embedder: embedder, extractor: extractor,
		cfg: cfg, jobs: make(chan string, queue), log: log,
	}
}

// Start launches numWorkers goroutines draining the job queue until
// ctx is cancelled.
func (i *Ingestor) Start(ctx context.Context, numWorkers int) {
	for w := 1; w <= numWorkers; w++ {
		go func(w int) {
			for {
				select {
				case <-ctx.Done():
					return
				case docID := <-i.jobs:
					i.log.Infow("processing document", "document_id", docID, "worker", w)
					if err := i.ProcessOne(ctx, docID); err != nil {
						i.log.Errorw("ingestion failed", "document_id", docID, "error", err)
					}
				}
			}
		}(w)
	}
}

// Enqueue schedules a document for ingestion. Blocks when the queue
// is full.
func (i *Ingestor) Enqueue(docID string) {
	i.jobs <- docID
}

// ProcessOne walks a single document through
// extracting → chunking → indexing → ready. Every transition is a
// compare-and-set; losing one means another worker owns the document
// and this run stops quietly. Any stage error marks the document
// failed with the reason recorded.
func (i *Ingestor) ProcessOne(ctx context.Context, docID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	doc, err := i.docs.GetDocumentByID(ctx, docID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", docID, err)
	}
	if doc == nil {
		return apperr.Newf(apperr.NotFound, "document %s not found", docID)
	}

	if err := i.docs.TransitionStatus(ctx, docID, models.StatusUploaded, models.StatusExtracting); err != nil {
		if errors.Is(err, core.ErrStatusConflict) {
			i.log.Debugw("document already claimed, skipping", "document_id", docID)
			return nil
		}
		return err
	}

	bucket, key := core.ParseObjectURL(doc.StorageURL)
	data, err := i.obj.GetFile(ctx, bucket, key)
	if err != nil {
		return i.fail(ctx, docID, apperr.Wrap(apperr.Internal, "fetch original upload", err))
	}

	extraction, err := i.extractor.Extract(ctx, data, doc.FileName)
	if err != nil {
		return i.fail(ctx, docID, err)
	}
	if len(extraction.OCRPages) > 0 {
		i.log.Infow("ocr used for scanned pages", "document_id", docID, "pages", extraction.OCRPages)
	}

	if err := i.docs.TransitionStatus(ctx, docID, models.StatusExtracting, models.StatusChunking); err != nil {
		return err
	}

	chunks := SplitChunks(docID, extraction.Text, i.cfg.ChunkSize, i.cfg.ChunkOverlap)
	if len(chunks) == 0 {
		return i.fail(ctx, docID, apperr.New(apperr.EmptyDocument, "document produced no chunks"))
	}

	if err := i.docs.TransitionStatus(ctx, docID, models.StatusChunking, models.StatusIndexing); err != nil {
		return err
	}

	if err := i.embedAndIndex(ctx, chunks); err != nil {
		return i.fail(ctx, docID, apperr.Wrap(apperr.IndexingFailure, "embed and index chunks", err))
	}

	if err := i.docs.SetCounts(ctx, docID, extraction.PageCount, len(chunks)); err != nil {
		i.log.Warnw("could not record counts", "document_id", docID, "error", err)
	}
	return i.docs.TransitionStatus(ctx, docID, models.StatusIndexing, models.StatusReady)
}

// embedAndIndex processes batches concurrently; each batch is
// embedded and upserted with bounded retry since upserts are
// idempotent (keyed by document id + sequence).
func (i *Ingestor) embedAndIndex(ctx context.Context, chunks []models.Chunk) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for start := 0; start < len(chunks); start += i.cfg.EmbedBatch {
		end := start + i.cfg.EmbedBatch
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		g.Go(func() error {
			op := func() error {
				texts := make([]string, len(batch))
				for j, ch := range batch {
					texts[j] = ch.Text
				}
				vectors, err := i.embedder.EmbedTexts(gctx, texts)
				if err != nil {
					return fmt.Errorf("embed batch: %w", err)
				}
				if len(vectors) != len(batch) {
					return backoff.Permanent(fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(batch)))
				}
				return i.index.UpsertChunks(gctx, batch, vectors)
			}
			bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), gctx)
			return backoff.Retry(op, bo)
		})
	}
	return g.Wait()
}

// fail moves the document to failed, keeping the original error.
func (i *Ingestor) fail(ctx context.Context, docID string, cause error) error {
	reason := cause.Error()
	if len(reason) > 200 {
		reason = reason[:200]
	}
	if err := i.docs.MarkFailed(ctx, docID, reason); err != nil {
		i.log.Errorw("could not mark document failed", "document_id", docID, "error", err)
	}
	return cause
}
