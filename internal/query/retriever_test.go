package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/docqueryhq/docquery/internal/apperr"
	"github.com/docqueryhq/docquery/internal/models"
)

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

type fakeIndex struct {
	results []models.Evidence
	err     error
	gotK    int
	gotIDs  []string
}

func (f *fakeIndex) UpsertChunks(context.Context, []models.Chunk, [][]float32) error { return nil }

func (f *fakeIndex) Search(_ context.Context, _ []float32, topK int, documentIDs []string) ([]models.Evidence, error) {
	f.gotK = topK
	f.gotIDs = documentIDs
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *fakeIndex) DeleteByDocument(context.Context, string) error { return nil }

type fakeDocs struct {
	docs map[string]*models.Document
}

func (f *fakeDocs) CreateDocument(context.Context, *models.Document) error { return nil }
func (f *fakeDocs) GetDocumentByID(_ context.Context, id string) (*models.Document, error) {
	return f.docs[id], nil
}
func (f *fakeDocs) ListDocuments(context.Context) ([]models.Document, error)       { return nil, nil }
func (f *fakeDocs) TransitionStatus(context.Context, string, models.Status, models.Status) error {
	return nil
}
func (f *fakeDocs) MarkFailed(context.Context, string, string) error   { return nil }
func (f *fakeDocs) SetCounts(context.Context, string, int, int) error  { return nil }
func (f *fakeDocs) DeleteDocument(context.Context, string) error       { return nil }
func (f *fakeDocs) Close() error                                       { return nil }

func ev(id string, score float64) models.Evidence {
	return models.Evidence{ChunkID: id, DocumentID: "doc-1", Text: "text " + id, Score: score}
}

func newTestRetriever(emb *fakeEmbedder, idx *fakeIndex, docs *fakeDocs) *Retriever {
	if docs == nil {
		docs = &fakeDocs{docs: map[string]*models.Document{}}
	}
	return NewRetriever(emb, idx, docs, 5, 0.5, zap.NewNop().Sugar())
}

func TestRetrieveFiltersBelowThreshold(t *testing.T) {
	idx := &fakeIndex{results: []models.Evidence{
		ev("a", 0.9), ev("b", 0.6), ev("c", 0.49), ev("d", 0.2),
	}}
	r := newTestRetriever(&fakeEmbedder{}, idx, nil)

	out, err := r.Retrieve(context.Background(), "what is the claim limit?", nil, nil, 0)
	require.NoError(t, err)

	require.Len(t, out, 2)
	for _, e := range out {
		assert.GreaterOrEqual(t, e.Score, 0.5)
	}
}

func TestRetrieveOrdersDescendingByScore(t *testing.T) {
	idx := &fakeIndex{results: []models.Evidence{
		ev("b", 0.6), ev("a", 0.9), ev("c", 0.7),
	}}
	r := newTestRetriever(&fakeEmbedder{}, idx, nil)

	out, err := r.Retrieve(context.Background(), "what is the claim limit?", nil, nil, 0)
	require.NoError(t, err)

	require.Len(t, out, 3)
	for i := 1; i < len(out); i++ {
		assert.LessOrEqual(t, out[i].Score, out[i-1].Score)
	}
	assert.Equal(t, "a", out[0].ChunkID)
}

func TestRetrieveThresholdOverride(t *testing.T) {
	idx := &fakeIndex{results: []models.Evidence{ev("a", 0.45), ev("b", 0.3)}}
	r := newTestRetriever(&fakeEmbedder{}, idx, nil)

	th := 0.4
	out, err := r.Retrieve(context.Background(), "what is the claim limit?", nil, &th, 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].ChunkID)
}

func TestRetrieveTruncatesToTopK(t *testing.T) {
	idx := &fakeIndex{results: []models.Evidence{
		ev("a", 0.9), ev("b", 0.8), ev("c", 0.7),
	}}
	r := newTestRetriever(&fakeEmbedder{}, idx, nil)

	out, err := r.Retrieve(context.Background(), "what is the claim limit?", nil, nil, 2)
	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Equal(t, 2, idx.gotK)
}

func TestRetrieveEmptyResultIsNotAnError(t *testing.T) {
	r := newTestRetriever(&fakeEmbedder{}, &fakeIndex{}, nil)
	out, err := r.Retrieve(context.Background(), "what is the claim limit?", nil, nil, 0)
	assert.NoError(t, err)
	assert.Empty(t, out)
}

func TestRetrieveRejectsNotReadyDocument(t *testing.T) {
	docs := &fakeDocs{docs: map[string]*models.Document{
		"doc-1": {ID: "doc-1", Status: models.StatusIndexing},
	}}
	r := newTestRetriever(&fakeEmbedder{}, &fakeIndex{}, docs)

	_, err := r.Retrieve(context.Background(), "what is the claim limit?", []string{"doc-1"}, nil, 0)
	assert.True(t, apperr.IsKind(err, apperr.InvalidRequest))
}

func TestRetrieveUnknownDocument(t *testing.T) {
	r := newTestRetriever(&fakeEmbedder{}, &fakeIndex{}, nil)
	_, err := r.Retrieve(context.Background(), "what is the claim limit?", []string{"nope"}, nil, 0)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestRetrieveScopesSearchToFilter(t *testing.T) {
	docs := &fakeDocs{docs: map[string]*models.Document{
		"doc-1": {ID: "doc-1", Status: models.StatusReady},
	}}
	idx := &fakeIndex{results: []models.Evidence{ev("a", 0.9)}}
	r := newTestRetriever(&fakeEmbedder{}, idx, docs)

	_, err := r.Retrieve(context.Background(), "what is the claim limit?", []string{"doc-1"}, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-1"}, idx.gotIDs)
}

func TestRetrieveEmbeddingFailure(t *testing.T) {
	r := newTestRetriever(&fakeEmbedder{err: errors.New("auth")}, &fakeIndex{}, nil)
	_, err := r.Retrieve(context.Background(), "what is the claim limit?", nil, nil, 0)
	assert.True(t, apperr.IsKind(err, apperr.ExternalService))
}

func TestRetrieveSearchFailure(t *testing.T) {
	r := newTestRetriever(&fakeEmbedder{}, &fakeIndex{err: errors.New("down")}, nil)
	_, err := r.Retrieve(context.Background(), "what is the claim limit?", nil, nil, 0)
	assert.True(t, apperr.IsKind(err, apperr.RetrievalError))
}
