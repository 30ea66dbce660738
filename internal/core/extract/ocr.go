package extract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/otiai10/gosseract/v2"
)

// OCREngine recognizes text on a single PDF page. page is 1-based.
type OCREngine interface {
	PageText(ctx context.Context, pdfData []byte, page int) (string, error)
}

// TesseractOCR rasterizes one page with pdftoppm and runs tesseract
// on the result. Both tools must be installed on the host.
type TesseractOCR struct {
	// DPI for rasterization; 0 means the default of 200.
	DPI int
}

func NewTesseractOCR() *TesseractOCR { return &TesseractOCR{} }

func (t *TesseractOCR) PageText(ctx context.Context, pdfData []byte, page int) (string, error) {
	dpi := t.DPI
	if dpi == 0 {
		dpi = 200
	}

	dir, err := os.MkdirTemp("", "docquery-ocr-*")
	if err != nil {
		return "", fmt.Errorf("ocr tempdir: %w", err)
	}
	defer os.RemoveAll(dir)

	pdfPath := filepath.Join(dir, "page.pdf")
	if err := os.WriteFile(pdfPath, pdfData, 0o600); err != nil {
		return "", fmt.Errorf("ocr write pdf: %w", err)
	}

	outPrefix := filepath.Join(dir, "page")
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-f", strconv.Itoa(page), "-l", strconv.Itoa(page),
		"-r", strconv.Itoa(dpi), "-png", pdfPath, outPrefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("pdftoppm page %d: %v: %s", page, err, out)
	}

	img, err := findRenderedPage(dir)
	if err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetImage(img); err != nil {
		return "", fmt.Errorf("tesseract set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract page %d: %w", page, err)
	}
	return text, nil
}

// findRenderedPage locates the single PNG pdftoppm produced; the
// suffix it appends varies with page count padding.
func findRenderedPage(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "page-*.png"))
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("no rasterized page found in %s", dir)
	}
	return matches[0], nil
}
