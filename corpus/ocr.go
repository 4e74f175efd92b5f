package corpus

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// TesseractOCR renders PDF pages to raster images with pdftoppm and runs
// tesseract on each page. Both binaries must be on PATH.
type TesseractOCR struct {
	DPI      int    // raster resolution, 144 (2x) works well for statutes
	Language string // tesseract language code, e.g. "eng"
}

// NewTesseractOCR creates an OCR runner with the given raster DPI and language
func NewTesseractOCR(dpi int, language string) *TesseractOCR {
	if dpi <= 0 {
		dpi = 144
	}
	if language == "" {
		language = "eng"
	}
	return &TesseractOCR{DPI: dpi, Language: language}
}

// Recognize renders each page of the PDF and concatenates per-page OCR text.
func (o *TesseractOCR) Recognize(ctx context.Context, pdfPath string) (string, error) {
	workDir, err := os.MkdirTemp("", "jurisdraft-ocr-")
	if err != nil {
		return "", fmt.Errorf("failed to create OCR work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	prefix := filepath.Join(workDir, "page")
	render := exec.CommandContext(ctx, "pdftoppm", "-r", strconv.Itoa(o.DPI), "-png", pdfPath, prefix)
	if out, err := render.CombinedOutput(); err != nil {
		return "", fmt.Errorf("pdftoppm failed: %w: %s", err, out)
	}

	pages, err := filepath.Glob(prefix + "*.png")
	if err != nil {
		return "", err
	}
	if len(pages) == 0 {
		return "", fmt.Errorf("pdftoppm produced no pages for %s", pdfPath)
	}
	sort.Strings(pages)

	var parts []string
	for _, page := range pages {
		var stdout bytes.Buffer
		// psm 4 assumes a single column of variably sized text, which suits
		// statute layouts better than full auto segmentation
		recognize := exec.CommandContext(ctx, "tesseract", page, "stdout", "-l", o.Language, "--psm", "4")
		recognize.Stdout = &stdout
		if err := recognize.Run(); err != nil {
			return "", fmt.Errorf("tesseract failed on %s: %w", filepath.Base(page), err)
		}
		if text := stdout.String(); strings.TrimSpace(text) != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, "\n"), nil
}
