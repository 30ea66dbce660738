package extract

import (
	"bytes"
	"context"

	"code.sajari.com/docconv"

	"github.com/docqueryhq/docquery/internal/apperr"
	"github.com/docqueryhq/docquery/internal/core"
)

// extractOffice converts DOCX/PPTX content through docconv.
func (s *Service) extractOffice(ctx context.Context, data []byte, mimeType string) (*core.Extraction, error) {
	res, err := docconv.Convert(bytes.NewReader(data), mimeType, false)
	if err != nil {
		return nil, apperr.Wrap(apperr.CorruptFile, "could not parse document", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &core.Extraction{Text: res.Body}, nil
}
