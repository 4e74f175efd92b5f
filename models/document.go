package models

import (
	"github.com/google/uuid"
)

// DocumentCategory identifies which corpus partition a source document belongs to.
type DocumentCategory string

const (
	CategoryAct      DocumentCategory = "act"
	CategoryJudgment DocumentCategory = "judgment"
)

// Document is a single source unit of text: one statute PDF, one DOCX, or one
// court-judgment record. Immutable once loaded.
type Document struct {
	ID       string           `json:"id"` // filename or case id
	UUID     uuid.UUID        `json:"uuid"`
	Category DocumentCategory `json:"category"`
	Text     string           `json:"text"`
}

// Passage is a bounded, possibly overlapping substring of a document's cleaned
// text. Overlap is the number of leading bytes carried over from the previous
// passage, always aligned to a rune boundary; Text[Overlap:] is the
// non-overlapping core.
type Passage struct {
	Source      string `json:"source"`       // owning document ID
	ChunkNumber int    `json:"chunk_number"` // ordinal within the document
	Text        string `json:"text"`
	Overlap     int    `json:"overlap"`
}

// Core returns the non-overlapping portion of the passage. Concatenating the
// cores of all passages of a document reconstructs its cleaned text.
func (p Passage) Core() string {
	if p.Overlap <= 0 || p.Overlap > len(p.Text) {
		return p.Text
	}
	return p.Text[p.Overlap:]
}

// RetrievedPassage is a passage returned from a similarity search together
// with its score under the retriever's metric.
type RetrievedPassage struct {
	Source      string  `json:"source"`
	ChunkNumber int     `json:"chunk_number"`
	Text        string  `json:"text"`
	Score       float64 `json:"score"`
}
