package corpus

import (
	"strings"
	"unicode/utf8"

	"jurisdraft-backend/models"
)

// DefaultSeparators is the split priority: paragraph break, line break,
// sentence end, word boundary.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " "}

// Chunker splits cleaned document text into overlapping passages of bounded
// size. Splitting prefers the highest-priority separator; units that still
// exceed TargetSize are split at the next tier. Adjacent undersized units are
// merged back up to TargetSize, and each passage after the first is prefixed
// with Overlap trailing characters of the previous passage's core.
type Chunker struct {
	TargetSize int
	Overlap    int
	Separators []string
}

// NewChunker creates a chunker with the default separator priority
func NewChunker(targetSize, overlap int) *Chunker {
	if targetSize <= 0 {
		targetSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= targetSize {
		overlap = targetSize / 4
	}
	return &Chunker{
		TargetSize: targetSize,
		Overlap:    overlap,
		Separators: DefaultSeparators,
	}
}

// Split chunks the cleaned text of one document into ordered passages.
// Concatenating the passage cores reconstructs the input exactly; no content
// is ever dropped, a single token longer than TargetSize is emitted oversized.
func (c *Chunker) Split(source, text string) []models.Passage {
	if text == "" {
		return nil
	}

	units := c.splitRecursive(text, c.Separators)
	cores := c.merge(units)

	passages := make([]models.Passage, 0, len(cores))
	prev := ""
	for i, core := range cores {
		overlap := ""
		if i > 0 && c.Overlap > 0 {
			start := len(prev) - c.Overlap
			if start < 0 {
				start = 0
			}
			// advance to a rune boundary so the prefix is valid UTF-8
			// and never longer than the configured overlap
			for start < len(prev) && !utf8.RuneStart(prev[start]) {
				start++
			}
			overlap = prev[start:]
		}
		passages = append(passages, models.Passage{
			Source:      source,
			ChunkNumber: i,
			Text:        overlap + core,
			Overlap:     len(overlap),
		})
		prev = core
	}
	return passages
}

// splitRecursive breaks text into units no larger than TargetSize where
// possible. Separators stay attached to the preceding unit so that
// concatenating units reproduces the input.
func (c *Chunker) splitRecursive(text string, separators []string) []string {
	if len(text) <= c.TargetSize {
		return []string{text}
	}
	if len(separators) == 0 {
		// single token longer than the target: emit as-is
		return []string{text}
	}

	parts := splitKeep(text, separators[0])
	if len(parts) == 1 {
		return c.splitRecursive(text, separators[1:])
	}

	var units []string
	for _, part := range parts {
		if len(part) > c.TargetSize {
			units = append(units, c.splitRecursive(part, separators[1:])...)
		} else {
			units = append(units, part)
		}
	}
	return units
}

// splitKeep splits on sep, re-attaching sep to the end of every unit except
// the last.
func splitKeep(text, sep string) []string {
	parts := strings.Split(text, sep)
	for i := 0; i < len(parts)-1; i++ {
		parts[i] += sep
	}
	// drop empty trailing unit produced by a trailing separator
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// merge joins adjacent undersized units back together up to TargetSize.
func (c *Chunker) merge(units []string) []string {
	var cores []string
	current := ""
	for _, unit := range units {
		if current == "" {
			current = unit
			continue
		}
		if len(current)+len(unit) <= c.TargetSize {
			current += unit
			continue
		}
		cores = append(cores, current)
		current = unit
	}
	if current != "" {
		cores = append(cores, current)
	}
	return cores
}

// ChunkDocuments splits every document and tags passages with their source.
func (c *Chunker) ChunkDocuments(docs []models.Document) []models.Passage {
	var passages []models.Passage
	for _, doc := range docs {
		passages = append(passages, c.Split(doc.ID, doc.Text)...)
	}
	return passages
}
