package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/docqueryhq/docquery/internal/models"
	"github.com/docqueryhq/docquery/internal/query"
)

func newQueryHandler(index *fakeIndex, llm *fakeLLM, docs *fakeDocs) *QueryHandler {
	log := zap.NewNop().Sugar()
	retriever := query.NewRetriever(&fakeEmbedder{}, index, docs, 5, 0.5, log)
	synth := query.NewSynthesizer(llm, log)
	return NewQueryHandler(retriever, synth, log)
}

func postQuery(t *testing.T, h *QueryHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Query(rec, req)
	return rec
}

func TestQueryRejectsMalformedBody(t *testing.T) {
	h := newQueryHandler(&fakeIndex{}, &fakeLLM{}, newFakeDocs())
	rec := postQuery(t, h, "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryRejectsShortQuestion(t *testing.T) {
	h := newQueryHandler(&fakeIndex{}, &fakeLLM{}, newFakeDocs())
	rec := postQuery(t, h, `{"question": "too short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_request", resp["error"])
}

func TestQueryRejectsLongQuestion(t *testing.T) {
	h := newQueryHandler(&fakeIndex{}, &fakeLLM{}, newFakeDocs())
	long := strings.Repeat("why is the sky blue ", 30)
	rec := postQuery(t, h, `{"question": "`+long+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryRejectsThresholdOutOfRange(t *testing.T) {
	h := newQueryHandler(&fakeIndex{}, &fakeLLM{}, newFakeDocs())
	rec := postQuery(t, h, `{"question": "what is the coverage limit?", "threshold": 1.5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryAnswersFromEvidence(t *testing.T) {
	index := &fakeIndex{searchResult: []models.Evidence{
		{ChunkID: "doc-1_0", DocumentID: "doc-1", Text: "The coverage limit is $10,000.", Score: 0.9},
	}}
	llm := &fakeLLM{response: "The coverage limit is $10,000.\nCited: doc-1_0\nConfidence: 0.9"}
	h := newQueryHandler(index, llm, newFakeDocs())

	rec := postQuery(t, h, `{"question": "what is the coverage limit?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var answer models.Answer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &answer))
	assert.True(t, answer.Supported)
	assert.Equal(t, "The coverage limit is $10,000.", answer.Text)
	require.Len(t, answer.Evidence, 1)
	assert.Equal(t, "doc-1_0", answer.Evidence[0].ChunkID)
}

func TestQueryNoEvidenceStillAnswers(t *testing.T) {
	llm := &fakeLLM{}
	h := newQueryHandler(&fakeIndex{}, llm, newFakeDocs())

	rec := postQuery(t, h, `{"question": "what is the coverage limit?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var answer models.Answer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &answer))
	assert.False(t, answer.Supported)
	assert.Zero(t, llm.calls)
}

func TestQueryUnknownScopedDocument(t *testing.T) {
	h := newQueryHandler(&fakeIndex{}, &fakeLLM{}, newFakeDocs())
	rec := postQuery(t, h, `{"question": "what is the coverage limit?", "document_ids": ["missing"]}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
