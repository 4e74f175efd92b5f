package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jurisdraft-backend/models"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapse blank lines", "a\n\n\n\nb", "a\n\nb"},
		{"collapse spaces and tabs", "a  \t b", "a b"},
		{"trim edges", "  text  ", "text"},
		{"single newline kept", "a\nb", "a\nb"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanText(tt.in); got != tt.want {
				t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractTextPlain(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "act.txt", "Section 1.  Short title.\n\n\nSection 2.")

	l := NewLoader()
	got, err := l.ExtractText(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	want := "Section 1. Short title.\n\nSection 2."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractTextCaseLaw(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "judgment.json", `{"doc": "The appeal is   allowed.", "tid": 12345}`)

	l := NewLoader()
	got, err := l.ExtractText(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if got != "The appeal is allowed." {
		t.Errorf("got %q", got)
	}
}

func TestExtractTextUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.xlsx", "binary")

	l := NewLoader()
	_, err := l.ExtractText(context.Background(), path)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExtractTextEmptyResult(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "empty.txt", "   \n\t ")

	l := NewLoader()
	_, err := l.ExtractText(context.Background(), path)
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("expected ErrExtraction, got %v", err)
	}
}

func TestLoadDirectorySkipsUnsupported(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "act_one.txt", "First act text.")
	writeFile(t, dir, "act_two.txt", "Second act text.")
	writeFile(t, dir, "ignore.csv", "a,b,c")

	l := NewLoader()
	docs, err := l.LoadDirectory(context.Background(), dir, models.CategoryAct)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	for _, doc := range docs {
		if doc.Category != models.CategoryAct {
			t.Errorf("document %s has category %q", doc.ID, doc.Category)
		}
		if doc.UUID.String() == "00000000-0000-0000-0000-000000000000" {
			t.Errorf("document %s has zero UUID", doc.ID)
		}
	}
}

func TestLoadDirectoryAbortsOnExtractionFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.txt", "Fine.")
	bad := writeFile(t, dir, "broken.json", "{not json")

	l := NewLoader()
	_, err := l.LoadDirectory(context.Background(), dir, models.CategoryJudgment)
	if err == nil {
		t.Fatal("expected error for malformed case-law JSON")
	}
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("expected ErrExtraction, got %v", err)
	}
	if want := filepath.Base(bad); !strings.Contains(err.Error(), want) {
		t.Errorf("error %q does not name the offending file %q", err, want)
	}
}
