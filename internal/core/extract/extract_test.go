package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/docqueryhq/docquery/internal/apperr"
)

type fakeOCR struct {
	pages map[int]string
	errs  map[int]error
	calls []int
}

func (f *fakeOCR) PageText(_ context.Context, _ []byte, page int) (string, error) {
	f.calls = append(f.calls, page)
	if err, ok := f.errs[page]; ok {
		return "", err
	}
	return f.pages[page], nil
}

func newTestService(ocr OCREngine) *Service {
	return NewService(ocr, zap.NewNop().Sugar())
}

func TestExtractUnsupportedFormat(t *testing.T) {
	svc := newTestService(&fakeOCR{})
	_, err := svc.Extract(context.Background(), []byte("data"), "malware.exe")
	assert.True(t, apperr.IsKind(err, apperr.UnsupportedFormat))
}

func TestExtractTxt(t *testing.T) {
	svc := newTestService(&fakeOCR{})
	res, err := svc.Extract(context.Background(), []byte("hello   world\n\nsecond  line"), "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world second line", res.Text)
}

func TestExtractEmptyTxt(t *testing.T) {
	svc := newTestService(&fakeOCR{})
	_, err := svc.Extract(context.Background(), []byte("   \n\t "), "empty.txt")
	assert.True(t, apperr.IsKind(err, apperr.EmptyDocument))
}

func TestAssemblePDFOCRFallbackOnlyForTextlessPages(t *testing.T) {
	ocr := &fakeOCR{pages: map[int]string{2: "scanned page two text"}}
	svc := newTestService(ocr)

	// Page 2 has no embedded text and must be the only OCR call.
	pages := []string{"page one text", "", "page three text"}
	res, err := svc.assemblePDF(context.Background(), []byte("pdf"), pages)
	require.NoError(t, err)

	assert.Equal(t, []int{2}, ocr.calls)
	assert.Equal(t, []int{2}, res.OCRPages)
	assert.Equal(t, 3, res.PageCount)
	assert.Contains(t, res.Text, "page one text")
	assert.Contains(t, res.Text, "scanned page two text")
	assert.Contains(t, res.Text, "page three text")
}

func TestAssemblePDFSkipsFailedOCRPages(t *testing.T) {
	ocr := &fakeOCR{errs: map[int]error{2: errors.New("tesseract crashed")}}
	svc := newTestService(ocr)

	pages := []string{"page one text", "", "page three text"}
	res, err := svc.assemblePDF(context.Background(), []byte("pdf"), pages)
	require.NoError(t, err)

	assert.Empty(t, res.OCRPages)
	assert.Contains(t, res.Text, "page one text")
	assert.Contains(t, res.Text, "page three text")
	assert.NotContains(t, res.Text, "page two")
}

func TestAssemblePDFAllPagesEmpty(t *testing.T) {
	ocr := &fakeOCR{errs: map[int]error{1: errors.New("fail"), 2: errors.New("fail")}}
	svc := newTestService(ocr)

	res, err := svc.assemblePDF(context.Background(), []byte("pdf"), []string{"", ""})
	require.NoError(t, err)
	assert.Empty(t, res.Text)
}

func TestSupportedExtension(t *testing.T) {
	for _, ext := range []string{".pdf", ".docx", ".txt", ".pptx", ".PDF"} {
		assert.True(t, SupportedExtension(ext), ext)
	}
	for _, ext := range []string{".exe", ".png", "", ".md"} {
		assert.False(t, SupportedExtension(ext), ext)
	}
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a b c", cleanText("  a\n\nb\t c "))
	assert.Equal(t, "", cleanText(" \n\t "))
}

func TestNeedsSpace(t *testing.T) {
	assert.True(t, needsSpace("word", "next"))
	assert.False(t, needsSpace("word ", "next"))
	assert.False(t, needsSpace("word", " next"))
	assert.False(t, needsSpace("", "next"))
}
