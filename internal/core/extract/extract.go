// Package extract turns uploaded files into plain text. PDFs get
// direct per-page extraction with an OCR fallback for scanned pages;
// DOCX and PPTX go through docconv; TXT is read as-is.
package extract

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/docqueryhq/docquery/internal/apperr"
	"github.com/docqueryhq/docquery/internal/core"
)

var _ core.DocumentExtractor = (*Service)(nil)

// Service routes a file to the right extraction strategy by extension.
type Service struct {
	ocr OCREngine
	log *zap.SugaredLogger
}

func NewService(ocr OCREngine, log *zap.SugaredLogger) *Service {
	return &Service{ocr: ocr, log: log}
}

// SupportedExtension reports whether ext (with leading dot) is a
// format this service can extract.
func SupportedExtension(ext string) bool {
	switch strings.ToLower(ext) {
	case ".pdf", ".docx", ".txt", ".pptx":
		return true
	}
	return false
}

func (s *Service) Extract(ctx context.Context, data []byte, filename string) (*core.Extraction, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	var (
		res *core.Extraction
		err error
	)
	switch ext {
	case ".pdf":
		res, err = s.extractPDF(ctx, data)
	case ".docx":
		res, err = s.extractOffice(ctx, data, "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	case ".pptx":
		res, err = s.extractOffice(ctx, data, "application/vnd.openxmlformats-officedocument.presentationml.presentation")
	case ".txt":
		res = &core.Extraction{Text: string(data)}
	default:
		return nil, apperr.Newf(apperr.UnsupportedFormat, "unsupported file format %q", ext)
	}
	if err != nil {
		return nil, err
	}

	res.Text = cleanText(res.Text)
	if res.Text == "" {
		return nil, apperr.New(apperr.EmptyDocument, "document contains no extractable text")
	}
	return res, nil
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// cleanText collapses all whitespace runs to single spaces.
func cleanText(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
