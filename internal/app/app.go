package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/docqueryhq/docquery/internal/config"
	"github.com/docqueryhq/docquery/internal/core"
	"github.com/docqueryhq/docquery/internal/core/database"
	"github.com/docqueryhq/docquery/internal/core/extract"
	"github.com/docqueryhq/docquery/internal/core/ingest"
	"github.com/docqueryhq/docquery/internal/core/llm"
	"github.com/docqueryhq/docquery/internal/core/objectstore"
	"github.com/docqueryhq/docquery/internal/query"
)

// App owns every long-lived component and their wiring.
type App struct {
	Store    *database.Store
	Ingestor *ingest.Ingestor
	Server   *Server

	llmProvider core.LLMProvider
	embedder    core.EmbeddingProvider
	log         *zap.SugaredLogger
}

func NewApp(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (*App, error) {
	initCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	store, err := database.NewStore(initCtx, cfg.DatabaseURL, cfg.EmbedDim)
	if err != nil {
		return nil, err
	}
	log.Infow("database ready")

	objClient, err := objectstore.NewS3Client(initCtx, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	log.Infow("object storage ready", "bucket", cfg.BucketName)

	llmProvider, embedder, err := llm.New(initCtx, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	log.Infow("llm provider ready", "provider", llmProvider.Name())

	extractor := extract.NewService(extract.NewTesseractOCR(), log)

	ingestor := ingest.NewIngestor(store, store, objClient, embedder, extractor, &ingest.Config{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		EmbedBatch:   16,
		Bucket:       cfg.BucketName,
	}, log)

	retriever := query.NewRetriever(embedder, store, store, cfg.TopK, cfg.SimilarityThreshold, log)
	synth := query.NewSynthesizer(llmProvider, log)

	server := NewServer(cfg, store, objClient, ingestor, retriever, synth, log)

	return &App{
		Store:       store,
		Ingestor:    ingestor,
		Server:      server,
		llmProvider: llmProvider,
		embedder:    embedder,
		log:         log,
	}, nil
}

func (a *App) Close() {
	if closer, ok := a.llmProvider.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	if closer, ok := a.embedder.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	if a.Store != nil {
		_ = a.Store.Close()
	}
}
