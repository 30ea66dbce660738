// Package query implements the read path: retrieve evidence for a
// question and synthesize an answer from it with the configured LLM.
package query

import (
	"context"
	"sort"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/docqueryhq/docquery/internal/apperr"
	"github.com/docqueryhq/docquery/internal/core"
	"github.com/docqueryhq/docquery/internal/models"
)

type Retriever struct {
	embedder  core.EmbeddingProvider
	index     core.VectorIndex
	docs      core.DocumentStore
	topK      int
	threshold float64
	log       *zap.SugaredLogger
}

func NewRetriever(embedder core.EmbeddingProvider, index core.VectorIndex, docs core.DocumentStore,
	topK int, threshold float64, log *zap.SugaredLogger) *Retriever {
	return &Retriever{embedder: embedder, index: index, docs: docs, topK: topK, threshold: threshold, log: log}
}

// Retrieve embeds the question, searches the index and returns the
// evidence at or above the effective threshold, ordered by descending
// score and truncated to top-K. An empty result is a valid outcome,
// not an error. Explicitly requested documents must exist and be
// ready.
func (r *Retriever) Retrieve(ctx context.Context, question string, documentIDs []string, threshold *float64, topK int) ([]models.Evidence, error) {
	effThreshold := r.threshold
	if threshold != nil {
		effThreshold = *threshold
	}
	if topK <= 0 {
		topK = r.topK
	}

	for _, id := range documentIDs {
		doc, err := r.docs.GetDocumentByID(ctx, id)
		if err != nil {
			return nil, apperr.Wrap(apperr.RetrievalError, "look up document", err)
		}
		if doc == nil {
			return nil, apperr.Newf(apperr.NotFound, "document %s not found", id)
		}
		if doc.Status != models.StatusReady {
			return nil, apperr.Newf(apperr.InvalidRequest, "document %s is not ready (status %s)", id, doc.Status)
		}
	}

	vecs, err := r.embedder.EmbedTexts(ctx, []string{question})
	if err != nil {
		return nil, apperr.Wrap(apperr.ExternalService, "embed question", err)
	}
	if len(vecs) == 0 {
		return nil, apperr.New(apperr.ExternalService, "embedder returned no vector for question")
	}

	var candidates []models.Evidence
	op := func() error {
		var searchErr error
		candidates, searchErr = r.index.Search(ctx, vecs[0], topK, documentIDs)
		return searchErr
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, apperr.Wrap(apperr.RetrievalError, "vector search", err)
	}

	var evidence []models.Evidence
	for _, c := range candidates {
		if c.Score >= effThreshold {
			evidence = append(evidence, c)
		}
	}
	sort.SliceStable(evidence, func(a, b int) bool {
		return evidence[a].Score > evidence[b].Score
	})
	if len(evidence) > topK {
		evidence = evidence[:topK]
	}

	r.log.Debugw("retrieved evidence",
		"candidates", len(candidates), "kept", len(evidence), "threshold", effThreshold)
	return evidence, nil
}
