package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"rsc.io/pdf"

	"github.com/docqueryhq/docquery/internal/apperr"
	"github.com/docqueryhq/docquery/internal/core"
)

// extractPDF tries direct text extraction per page and falls back to
// OCR only for pages with no embedded text. Individual page failures
// are skipped; the document fails only when every page came up empty.
func (s *Service) extractPDF(ctx context.Context, data []byte) (*core.Extraction, error) {
	pages, err := pdfPageTexts(data)
	if err != nil {
		return nil, apperr.Wrap(apperr.CorruptFile, "could not parse PDF", err)
	}
	return s.assemblePDF(ctx, data, pages)
}

// assemblePDF merges direct page texts with OCR output for the pages
// that yielded nothing. pages holds one entry per page, in order.
func (s *Service) assemblePDF(ctx context.Context, data []byte, pages []string) (*core.Extraction, error) {
	res := &core.Extraction{PageCount: len(pages)}

	var parts []string
	for i, text := range pages {
		pageNo := i + 1
		if strings.TrimSpace(text) != "" {
			parts = append(parts, text)
			continue
		}

		ocrText, err := s.ocr.PageText(ctx, data, pageNo)
		if err != nil {
			// Per-page OCR failures are non-fatal.
			s.log.Warnw("ocr failed, skipping page", "page", pageNo, "error", err)
			continue
		}
		if strings.TrimSpace(ocrText) != "" {
			res.OCRPages = append(res.OCRPages, pageNo)
			parts = append(parts, ocrText)
		}
	}

	res.Text = strings.Join(parts, " ")
	return res, nil
}

// pdfPageTexts returns the embedded text of every page. The pdf
// package panics on some malformed files, so the walk is recovered
// into an ordinary error.
func pdfPageTexts(data []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		var sb strings.Builder
		for _, t := range p.Content().Text {
			if sb.Len() > 0 && needsSpace(sb.String(), t.S) {
				sb.WriteByte(' ')
			}
			sb.WriteString(t.S)
		}
		pages = append(pages, sb.String())
	}
	return pages, nil
}

// needsSpace decides whether two adjacent text runs should be joined
// with a space. PDF content streams often split words mid-run, so only
// insert one when neither side already provides separation.
func needsSpace(prev, next string) bool {
	if prev == "" || next == "" {
		return false
	}
	last := prev[len(prev)-1]
	first := next[0]
	return last != ' ' && first != ' '
}
