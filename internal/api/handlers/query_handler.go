package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/docqueryhq/docquery/internal/apperr"
	"github.com/docqueryhq/docquery/internal/query"
)

type QueryHandler struct {
	retriever *query.Retriever
	synth     *query.Synthesizer
	log       *zap.SugaredLogger
}

func NewQueryHandler(retriever *query.Retriever, synth *query.Synthesizer, log *zap.SugaredLogger) *QueryHandler {
	return &QueryHandler{retriever: retriever, synth: synth, log: log}
}

type QueryRequest struct {
	Question     string   `json:"question"`
	DocumentIDs  []string `json:"document_ids,omitempty"`
	Threshold    *float64 `json:"threshold,omitempty"`
	TopK         int      `json:"top_k,omitempty"`
	IncludeLogic bool     `json:"include_logic"`
}

// Query runs the read path: retrieve evidence for the question, then
// synthesize an answer from it. Answer generation is single-attempt;
// the user is waiting synchronously.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.log, apperr.Wrap(apperr.InvalidRequest, "invalid request body", err))
		return
	}
	if err := validateQuestion(req.Question); err != nil {
		writeError(w, h.log, err)
		return
	}
	if req.Threshold != nil && (*req.Threshold < 0 || *req.Threshold > 1) {
		writeError(w, h.log, apperr.New(apperr.InvalidRequest, "threshold must be between 0 and 1"))
		return
	}

	ctx := r.Context()
	evidence, err := h.retriever.Retrieve(ctx, req.Question, req.DocumentIDs, req.Threshold, req.TopK)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	answer, err := h.synth.Synthesize(ctx, req.Question, evidence, req.IncludeLogic)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func validateQuestion(q string) error {
	n := len(strings.TrimSpace(q))
	if n <= 10 || n >= 500 {
		return apperr.New(apperr.InvalidRequest, "question must be between 10 and 500 characters")
	}
	return nil
}
