// Package apperr defines the error taxonomy shared across the service.
// Handlers map kinds to HTTP status codes; internal detail stays in logs.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	UnsupportedFormat Kind = "unsupported_format"
	CorruptFile       Kind = "corrupt_file"
	OCRFailure        Kind = "ocr_failure"
	EmptyDocument     Kind = "empty_document"
	IndexingFailure   Kind = "indexing_failure"
	RetrievalError    Kind = "retrieval_error"
	ExternalService   Kind = "external_service_error"
	Configuration     Kind = "configuration_error"
	NotFound          Kind = "not_found"
	InvalidRequest    Kind = "invalid_request"
	Unauthorized      Kind = "unauthorized"
	FileTooLarge      Kind = "file_too_large"
	Internal          Kind = "internal"
)

// Error carries a kind for the API surface and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, or Internal when err carries none.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

// IsKind reports whether err (or anything it wraps) has the given kind.
func IsKind(err error, kind Kind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}
