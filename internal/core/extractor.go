package core

import "context"

// Extraction is the result of pulling text out of an uploaded file.
// OCRPages lists 1-based page numbers that needed the OCR fallback.
type Extraction struct {
	Text      string
	PageCount int
	OCRPages  []int
}

// DocumentExtractor extracts text from a document given its raw bytes
// and original filename. The extension picks the parsing strategy.
type DocumentExtractor interface {
	Extract(ctx context.Context, data []byte, filename string) (*Extraction, error)
}
