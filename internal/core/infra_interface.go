package core

import (
	"context"

	"github.com/docqueryhq/docquery/internal/models"
)

// DocumentStore persists document metadata and guards status
// transitions so higher layers never depend on a specific DB.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context) ([]models.Document, error)

	// TransitionStatus performs a compare-and-set from `from` to `to`.
	// It fails if the stored status no longer matches, which keeps two
	// concurrent ingestion runs from both advancing the same document.
	TransitionStatus(ctx context.Context, id string, from, to models.Status) error

	// MarkFailed moves the document to failed from whatever
	// non-terminal state it is in, recording the reason.
	MarkFailed(ctx context.Context, id string, reason string) error

	SetCounts(ctx context.Context, id string, pages, chunks int) error
	DeleteDocument(ctx context.Context, id string) error

	Close() error
}

// VectorIndex is the chunk index. Embeddings are computed elsewhere;
// this component only stores and searches them. Upserts are keyed by
// chunk id (document id + sequence), so re-submission overwrites.
type VectorIndex interface {
	UpsertChunks(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error

	// Search returns candidates ordered by descending similarity.
	// documentIDs, when non-empty, restricts the search scope.
	// Threshold filtering is the caller's job.
	Search(ctx context.Context, vector []float32, topK int, documentIDs []string) ([]models.Evidence, error)

	DeleteByDocument(ctx context.Context, documentID string) error
}

// ObjectClient stores original uploads so the ingestion pipeline can
// fetch them back for processing.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (url string, err error)
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
	DeleteFile(ctx context.Context, bucket, key string) error
}
