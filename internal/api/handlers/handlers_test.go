package handlers

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/docqueryhq/docquery/internal/core"
	"github.com/docqueryhq/docquery/internal/models"
)

// fakeDocs is an in-memory DocumentStore for handler tests.
type fakeDocs struct {
	docs    map[string]*models.Document
	listErr error
	deleted []string
}

func newFakeDocs(docs ...*models.Document) *fakeDocs {
	f := &fakeDocs{docs: map[string]*models.Document{}}
	for _, d := range docs {
		f.docs[d.ID] = d
	}
	return f
}

func (f *fakeDocs) CreateDocument(_ context.Context, doc *models.Document) error {
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeDocs) GetDocumentByID(_ context.Context, id string) (*models.Document, error) {
	return f.docs[id], nil
}

func (f *fakeDocs) ListDocuments(_ context.Context) ([]models.Document, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Document
	for _, d := range f.docs {
		out = append(out, *d)
	}
	return out, nil
}

func (f *fakeDocs) TransitionStatus(_ context.Context, id string, from, to models.Status) error {
	d, ok := f.docs[id]
	if !ok || d.Status != from {
		return fmt.Errorf("status conflict")
	}
	d.Status = to
	return nil
}

func (f *fakeDocs) MarkFailed(_ context.Context, id, reason string) error {
	if d, ok := f.docs[id]; ok {
		d.Status = models.StatusFailed
		d.Failure = reason
	}
	return nil
}

func (f *fakeDocs) SetCounts(_ context.Context, id string, pages, chunks int) error {
	if d, ok := f.docs[id]; ok {
		d.PageCount = pages
		d.ChunkCount = chunks
	}
	return nil
}

func (f *fakeDocs) DeleteDocument(_ context.Context, id string) error {
	if _, ok := f.docs[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.docs, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeDocs) Close() error { return nil }

type fakeIndex struct {
	searchResult []models.Evidence
	searchErr    error
	deletedDocs  []string
	deleteErr    error
}

func (f *fakeIndex) UpsertChunks(_ context.Context, _ []models.Chunk, _ [][]float32) error {
	return nil
}

func (f *fakeIndex) Search(_ context.Context, _ []float32, _ int, _ []string) ([]models.Evidence, error) {
	return f.searchResult, f.searchErr
}

func (f *fakeIndex) DeleteByDocument(_ context.Context, documentID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedDocs = append(f.deletedDocs, documentID)
	return nil
}

type fakeObject struct {
	uploads   map[string][]byte
	uploadErr error
	deleted   []string
}

func newFakeObject() *fakeObject {
	return &fakeObject{uploads: map[string][]byte{}}
}

func (f *fakeObject) UploadFile(_ context.Context, bucket, key string, data []byte, _ string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads[key] = data
	return fmt.Sprintf("https://%s.s3.us-east-1.amazonaws.com/%s", bucket, key), nil
}

func (f *fakeObject) GetFile(_ context.Context, _, key string) ([]byte, error) {
	data, ok := f.uploads[key]
	if !ok {
		return nil, fmt.Errorf("no such key %s", key)
	}
	return data, nil
}

func (f *fakeObject) DeleteFile(_ context.Context, _, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeEmbedder struct {
	vectors [][]float32
	err     error
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.vectors != nil {
		return f.vectors, nil
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(_ context.Context, _ []byte, _ string) (*core.Extraction, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &core.Extraction{Text: f.text, PageCount: 1}, nil
}

type fakeLLM struct {
	response string
	err      error
	calls    int
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) Generate(_ context.Context, _, _ string) (string, error) {
	f.calls++
	return f.response, f.err
}
