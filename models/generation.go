package models

// OutputFormat selects the rendering of a generated document.
type OutputFormat string

const (
	FormatMarkdown OutputFormat = "markdown"
	FormatHTML     OutputFormat = "html"
	FormatText     OutputFormat = "text"
)

// GeneratedDocument is the result of one document-generation invocation.
type GeneratedDocument struct {
	DocumentType string             `json:"document_type"`
	Content      string             `json:"content"`
	Metadata     GenerationMetadata `json:"metadata"`
}

// GenerationMetadata describes what went into a generated document.
type GenerationMetadata struct {
	ChecklistItemsIncluded int      `json:"checklist_items_included"`
	GoverningActs          []string `json:"governing_acts"`
	CharacterCount         int      `json:"character_count"`
	WordCount              int      `json:"word_count"`
}
