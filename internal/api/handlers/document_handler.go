package handlers

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docqueryhq/docquery/internal/apperr"
	"github.com/docqueryhq/docquery/internal/config"
	"github.com/docqueryhq/docquery/internal/core"
	"github.com/docqueryhq/docquery/internal/core/extract"
	"github.com/docqueryhq/docquery/internal/core/ingest"
	"github.com/docqueryhq/docquery/internal/models"
)

type DocumentHandler struct {
	docs     core.DocumentStore
	index    core.VectorIndex
	obj      core.ObjectClient
	ingestor *ingest.Ingestor
	cfg      *config.Config
	log      *zap.SugaredLogger
}

func NewDocumentHandler(docs core.DocumentStore, index core.VectorIndex, obj core.ObjectClient,
	ingestor *ingest.Ingestor, cfg *config.Config, log *zap.SugaredLogger) *DocumentHandler {
	return &DocumentHandler{docs: docs, index: index, obj: obj, ingestor: ingestor, cfg: cfg, log: log}
}

type uploadResponse struct {
	DocumentID string        `json:"document_id"`
	Status     models.Status `json:"status"`
	Message    string        `json:"message"`
}

// Upload accepts a multipart file, stores the original, registers the
// document and schedules background ingestion. Extraction status is
// pollable via Get.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(h.cfg.MaxFileSizeMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1024)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeError(w, h.log, apperr.Wrap(apperr.FileTooLarge, "file exceeds the upload size limit", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, h.log, apperr.Wrap(apperr.InvalidRequest, "missing file field", err))
		return
	}
	defer file.Close()

	cleanName := filepath.Base(header.Filename)
	ext := strings.ToLower(filepath.Ext(cleanName))
	if !extract.SupportedExtension(ext) {
		writeError(w, h.log, apperr.Newf(apperr.UnsupportedFormat, "unsupported file format %q", ext))
		return
	}
	if header.Size > maxBytes {
		writeError(w, h.log, apperr.Newf(apperr.FileTooLarge, "file too large, max size is %dMB", h.cfg.MaxFileSizeMB))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, h.log, apperr.Wrap(apperr.InvalidRequest, "could not read upload", err))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	docID := uuid.NewString()
	key := docID + "/" + cleanName

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	url, err := h.obj.UploadFile(ctx, h.cfg.BucketName, key, data, contentType)
	if err != nil {
		writeError(w, h.log, apperr.Wrap(apperr.Internal, "could not store upload", err))
		return
	}

	doc := &models.Document{
		ID:          docID,
		FileName:    cleanName,
		ContentType: contentType,
		StorageURL:  url,
		Status:      models.StatusUploaded,
	}
	if err := h.docs.CreateDocument(ctx, doc); err != nil {
		writeError(w, h.log, apperr.Wrap(apperr.Internal, "could not register document", err))
		return
	}

	h.ingestor.Enqueue(docID)
	writeJSON(w, http.StatusAccepted, uploadResponse{
		DocumentID: docID,
		Status:     models.StatusUploaded,
		Message:    "document uploaded, processing in the background",
	})
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.docs.ListDocuments(r.Context())
	if err != nil {
		writeError(w, h.log, apperr.Wrap(apperr.Internal, "could not list documents", err))
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := h.docs.GetDocumentByID(r.Context(), id)
	if err != nil {
		writeError(w, h.log, apperr.Wrap(apperr.Internal, "could not load document", err))
		return
	}
	if doc == nil {
		writeError(w, h.log, apperr.Newf(apperr.NotFound, "document %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// Delete removes the indexed chunks, the document record and the
// stored original. Chunks go first so a failure cannot leave orphaned
// vectors behind a missing document.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	doc, err := h.docs.GetDocumentByID(ctx, id)
	if err != nil {
		writeError(w, h.log, apperr.Wrap(apperr.Internal, "could not load document", err))
		return
	}
	if doc == nil {
		writeError(w, h.log, apperr.Newf(apperr.NotFound, "document %s not found", id))
		return
	}

	if err := h.index.DeleteByDocument(ctx, id); err != nil {
		writeError(w, h.log, apperr.Wrap(apperr.IndexingFailure, "could not remove indexed chunks", err))
		return
	}
	if err := h.docs.DeleteDocument(ctx, id); err != nil && !errors.Is(err, sql.ErrNoRows) {
		writeError(w, h.log, apperr.Wrap(apperr.Internal, "could not delete document", err))
		return
	}

	bucket, key := core.ParseObjectURL(doc.StorageURL)
	if err := h.obj.DeleteFile(ctx, bucket, key); err != nil {
		// The record and index entries are gone; a stray object is
		// not worth failing the request over.
		h.log.Warnw("could not delete stored original", "document_id", id, "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]string{"document_id": id, "status": "deleted"})
}
