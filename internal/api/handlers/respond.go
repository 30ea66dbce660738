package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/docqueryhq/docquery/internal/apperr"
)

type errorResponse struct {
	Error   apperr.Kind `json:"error"`
	Message string      `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error kind to a status code and returns only the
// kind and message to the client; the cause stays in the logs.
func writeError(w http.ResponseWriter, log *zap.SugaredLogger, err error) {
	kind := apperr.KindOf(err)
	status := statusForKind(kind)

	message := "internal server error"
	var ae *apperr.Error
	if errors.As(err, &ae) {
		message = ae.Message
	}
	if status >= 500 {
		log.Errorw("request failed", "kind", kind, "error", err)
	} else {
		log.Debugw("request rejected", "kind", kind, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: kind, Message: message})
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.UnsupportedFormat, apperr.InvalidRequest:
		return http.StatusBadRequest
	case apperr.Unauthorized:
		return http.StatusUnauthorized
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.FileTooLarge:
		return http.StatusRequestEntityTooLarge
	case apperr.EmptyDocument, apperr.CorruptFile:
		return http.StatusUnprocessableEntity
	case apperr.ExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
