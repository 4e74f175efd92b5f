package corpus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"jurisdraft-backend/models"

	"baliance.com/gooxml/document"
	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrExtraction        = errors.New("text extraction failed")
)

// OCR recognizes text from a PDF that has no extractable text layer.
type OCR interface {
	Recognize(ctx context.Context, pdfPath string) (string, error)
}

// Loader reads source documents (PDF, DOCX, plain text, case-law JSON) and
// produces normalized text. Pure function of file content.
type Loader struct {
	ocr OCR
}

// LoaderOption is a functional option for Loader
type LoaderOption func(*Loader)

// WithOCR sets the OCR fallback used for image-only PDFs
func WithOCR(ocr OCR) LoaderOption {
	return func(l *Loader) {
		l.ocr = ocr
	}
}

// NewLoader creates a new corpus loader
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// caseLawRecord is the shape of a downloaded judgment record. The judgment
// text lives in the "doc" field.
type caseLawRecord struct {
	Doc string `json:"doc"`
}

// ExtractText extracts and normalizes the text of a single source file.
// Returns ErrUnsupportedFormat for unrecognized extensions and ErrExtraction
// when the file yields no text even after the OCR fallback.
func (l *Loader) ExtractText(ctx context.Context, path string) (string, error) {
	var (
		text string
		err  error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err = l.extractPDF(ctx, path)
	case ".docx":
		text, err = extractDOCX(path)
	case ".txt":
		text, err = extractPlain(path)
	case ".json":
		text, err = extractCaseLaw(path)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return "", err
	}

	cleaned := CleanText(text)
	if cleaned == "" {
		return "", fmt.Errorf("%w: %s produced no text", ErrExtraction, path)
	}
	return cleaned, nil
}

// extractPDF tries the text layer first and falls back to OCR when the layer
// is empty or whitespace-only.
func (l *Loader) extractPDF(ctx context.Context, path string) (string, error) {
	text, err := pdfTextLayer(path)
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %v", ErrExtraction, path, err)
	}

	if strings.TrimSpace(text) != "" {
		return text, nil
	}

	if l.ocr == nil {
		return "", fmt.Errorf("%w: %s has no text layer and OCR is not configured", ErrExtraction, path)
	}

	logrus.WithField("file", path).Info("No extractable text layer, running OCR")
	text, err = l.ocr.Recognize(ctx, path)
	if err != nil {
		return "", fmt.Errorf("%w: OCR on %s: %v", ErrExtraction, path, err)
	}
	return text, nil
}

func pdfTextLayer(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func extractDOCX(path string) (string, error) {
	doc, err := document.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: opening %s: %v", ErrExtraction, path, err)
	}

	var builder strings.Builder
	for _, p := range doc.Paragraphs() {
		for _, r := range p.Runs() {
			builder.WriteString(r.Text())
		}
		builder.WriteString("\n")
	}
	return builder.String(), nil
}

func extractPlain(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %v", ErrExtraction, path, err)
	}
	return string(data), nil
}

func extractCaseLaw(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %v", ErrExtraction, path, err)
	}

	var record caseLawRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return "", fmt.Errorf("%w: parsing %s: %v", ErrExtraction, path, err)
	}
	return record.Doc, nil
}

var (
	blankLines = regexp.MustCompile(`\n\s*\n`)
	runsOfWS   = regexp.MustCompile(`[ \t]+`)
)

// CleanText normalizes whitespace: runs of blank lines collapse to a single
// blank line, runs of spaces and tabs collapse to one space.
func CleanText(text string) string {
	text = blankLines.ReplaceAllString(text, "\n\n")
	text = runsOfWS.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// LoadDirectory walks a directory tree and loads every supported file as one
// Document of the given category. Unsupported extensions are skipped with a
// log line; an extraction failure aborts the batch naming the offending file.
func (l *Loader) LoadDirectory(ctx context.Context, dir string, category models.DocumentCategory) ([]models.Document, error) {
	var docs []models.Document

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		text, extractErr := l.ExtractText(ctx, path)
		if errors.Is(extractErr, ErrUnsupportedFormat) {
			logrus.WithField("file", path).Warn("Skipping unsupported file type")
			return nil
		}
		if extractErr != nil {
			return fmt.Errorf("loading %s: %w", path, extractErr)
		}

		docs = append(docs, models.Document{
			ID:       filepath.Base(path),
			UUID:     uuid.New(),
			Category: category,
			Text:     text,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"dir":       dir,
		"category":  category,
		"documents": len(docs),
	}).Info("Corpus directory loaded")

	return docs, nil
}
