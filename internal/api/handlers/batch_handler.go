package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docqueryhq/docquery/internal/apperr"
	"github.com/docqueryhq/docquery/internal/config"
	"github.com/docqueryhq/docquery/internal/core"
	"github.com/docqueryhq/docquery/internal/core/ingest"
	"github.com/docqueryhq/docquery/internal/models"
	"github.com/docqueryhq/docquery/internal/query"
)

// BatchHandler answers a question set in one call, for bulk
// evaluation. When a document URL is given, the document is fetched,
// ingested under a temporary id, queried in isolation and removed
// again afterwards.
type BatchHandler struct {
	docs      core.DocumentStore
	index     core.VectorIndex
	obj       core.ObjectClient
	ingestor  *ingest.Ingestor
	retriever *query.Retriever
	synth     *query.Synthesizer
	cfg       *config.Config
	client    *http.Client
	log       *zap.SugaredLogger
}

func NewBatchHandler(docs core.DocumentStore, index core.VectorIndex, obj core.ObjectClient,
	ingestor *ingest.Ingestor, retriever *query.Retriever, synth *query.Synthesizer,
	cfg *config.Config, log *zap.SugaredLogger) *BatchHandler {
	return &BatchHandler{
		docs: docs, index: index, obj: obj, ingestor: ingestor,
		retriever: retriever, synth: synth, cfg: cfg,
		client: &http.Client{Timeout: 60 * time.Second},
		log:    log,
	}
}

type BatchRequest struct {
	DocumentURL string   `json:"document_url,omitempty"`
	Questions   []string `json:"questions"`
}

type BatchResponse struct {
	Answers []string `json:"answers"`
}

func (h *BatchHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.log, apperr.Wrap(apperr.InvalidRequest, "invalid request body", err))
		return
	}
	if len(req.Questions) == 0 {
		writeError(w, h.log, apperr.New(apperr.InvalidRequest, "questions must not be empty"))
		return
	}
	for _, q := range req.Questions {
		if err := validateQuestion(q); err != nil {
			writeError(w, h.log, err)
			return
		}
	}

	ctx := r.Context()

	var scope []string
	if req.DocumentURL != "" {
		docID, cleanup, err := h.ingestRemote(ctx, req.DocumentURL)
		if cleanup != nil {
			defer cleanup()
		}
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		scope = []string{docID}
	}

	answers := make([]string, 0, len(req.Questions))
	for _, question := range req.Questions {
		evidence, err := h.retriever.Retrieve(ctx, question, scope, nil, 0)
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		answer, err := h.synth.Synthesize(ctx, question, evidence, false)
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		answers = append(answers, answer.Text)
	}

	h.log.Infow("batch run complete", "questions", len(req.Questions), "scoped", scope != nil)
	writeJSON(w, http.StatusOK, BatchResponse{Answers: answers})
}

// ingestRemote downloads the document, runs it through the full
// pipeline synchronously under a temporary id, and returns a cleanup
// that removes all trace of it. The cleanup is returned even on error
// so a half-finished ingest is still torn down.
func (h *BatchHandler) ingestRemote(ctx context.Context, rawURL string) (string, func(), error) {
	data, filename, err := h.download(ctx, rawURL)
	if err != nil {
		return "", nil, err
	}

	docID := "batch-" + uuid.NewString()
	key := docID + "/" + filename

	storageURL, err := h.obj.UploadFile(ctx, h.cfg.BucketName, key, data, "application/octet-stream")
	if err != nil {
		return "", nil, apperr.Wrap(apperr.Internal, "could not store downloaded document", err)
	}

	cleanup := func() {
		// Request context may already be gone; use a fresh one.
		cctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := h.index.DeleteByDocument(cctx, docID); err != nil {
			h.log.Warnw("batch cleanup: index delete failed", "document_id", docID, "error", err)
		}
		if err := h.docs.DeleteDocument(cctx, docID); err != nil {
			h.log.Warnw("batch cleanup: document delete failed", "document_id", docID, "error", err)
		}
		if err := h.obj.DeleteFile(cctx, h.cfg.BucketName, key); err != nil {
			h.log.Warnw("batch cleanup: object delete failed", "document_id", docID, "error", err)
		}
	}

	doc := &models.Document{
		ID:          docID,
		FileName:    filename,
		ContentType: "application/octet-stream",
		StorageURL:  storageURL,
		Status:      models.StatusUploaded,
	}
	if err := h.docs.CreateDocument(ctx, doc); err != nil {
		return "", cleanup, apperr.Wrap(apperr.Internal, "could not register document", err)
	}

	if err := h.ingestor.ProcessOne(ctx, docID); err != nil {
		return "", cleanup, err
	}
	return docID, cleanup, nil
}

func (h *BatchHandler) download(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, "", apperr.New(apperr.InvalidRequest, "document_url must be a valid http(s) URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.InvalidRequest, "invalid document_url", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.ExternalService, "could not download document", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", apperr.Newf(apperr.ExternalService, "document download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, int64(h.cfg.MaxFileSizeMB)<<20))
	if err != nil {
		return nil, "", apperr.Wrap(apperr.ExternalService, "could not read downloaded document", err)
	}

	filename := path.Base(u.Path)
	if filename == "." || filename == "/" || !strings.Contains(filename, ".") {
		filename = fmt.Sprintf("document-%d.pdf", time.Now().Unix())
	}
	return data, filename, nil
}
