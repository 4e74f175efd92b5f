package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"jurisdraft-backend/checklist"
	"jurisdraft-backend/models"
	"jurisdraft-backend/vectorstore"

	"github.com/sirupsen/logrus"
)

// documentSections is the fixed structure every generated document follows.
var documentSections = []string{
	"Parties",
	"Recitals",
	"Definitions",
	"Main Clauses",
	"Term and Termination",
	"Representations and Warranties",
	"Indemnity",
	"Confidentiality",
	"Compliance with Applicable Law",
	"Notices",
	"Governing Law",
	"Dispute Resolution",
	"Miscellaneous",
	"Execution",
}

// GenerationService drafts new legal documents from checklists and retrieved
// corpus context.
type GenerationService struct {
	registry  *checklist.Registry
	retriever vectorstore.Retriever
	generator Generator
	retrieveK int
}

// GenerationServiceOption is a functional option for GenerationService
type GenerationServiceOption func(*GenerationService)

// GenerationWithRegistry sets the checklist registry
func GenerationWithRegistry(r *checklist.Registry) GenerationServiceOption {
	return func(s *GenerationService) {
		s.registry = r
	}
}

// GenerationWithRetriever sets the legal-context retriever
func GenerationWithRetriever(r vectorstore.Retriever) GenerationServiceOption {
	return func(s *GenerationService) {
		s.retriever = r
	}
}

// GenerationWithGenerator sets the generation port
func GenerationWithGenerator(g Generator) GenerationServiceOption {
	return func(s *GenerationService) {
		s.generator = g
	}
}

// GenerationWithRetrievalK sets how many passages seed the draft
func GenerationWithRetrievalK(k int) GenerationServiceOption {
	return func(s *GenerationService) {
		if k > 0 {
			s.retrieveK = k
		}
	}
}

// NewGenerationService creates a generation service
func NewGenerationService(opts ...GenerationServiceOption) *GenerationService {
	s := &GenerationService{retrieveK: 8}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateDocumentRequest represents a request to generate one document
type GenerateDocumentRequest struct {
	DocumentType   string
	UserInputs     map[string]string
	Jurisdiction   string
	OutputFormat   models.OutputFormat
	IncludeSources bool
}

// GenerateDocument drafts a complete document of the requested type. The
// jurisdiction guard runs before any retrieval or model call.
func (s *GenerationService) GenerateDocument(ctx context.Context, req GenerateDocumentRequest) (*models.GeneratedDocument, error) {
	if !strings.EqualFold(strings.TrimSpace(req.Jurisdiction), supportedJurisdiction) {
		return nil, fmt.Errorf("%w: %q (only India is supported)", ErrUnsupportedJurisdiction, req.Jurisdiction)
	}
	if s.registry == nil {
		return nil, fmt.Errorf("checklist registry not set")
	}
	if s.generator == nil {
		return nil, fmt.Errorf("generator not set")
	}

	cl, err := s.registry.Get(req.DocumentType)
	if err != nil {
		return nil, err
	}

	format := req.OutputFormat
	switch format {
	case models.FormatMarkdown, models.FormatHTML, models.FormatText:
	default:
		format = models.FormatMarkdown
	}

	passages := s.retrieveDraftContext(ctx, cl, req.DocumentType)

	prompt := s.buildDraftPrompt(cl, req, passages, format)
	content, err := s.generator.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s: %w", req.DocumentType, err)
	}

	return &models.GeneratedDocument{
		DocumentType: req.DocumentType,
		Content:      content,
		Metadata: models.GenerationMetadata{
			ChecklistItemsIncluded: len(cl.ChecklistItems),
			GoverningActs:          cl.GoverningActs,
			CharacterCount:         len(content),
			WordCount:              len(strings.Fields(content)),
		},
	}, nil
}

// retrieveDraftContext builds the retrieval query from the document type, the
// first few checklist topics and the governing acts. Retrieval failure is
// non-fatal.
func (s *GenerationService) retrieveDraftContext(ctx context.Context, cl models.DocumentChecklist, documentType string) []models.RetrievedPassage {
	if s.retriever == nil {
		return nil
	}

	parts := []string{documentType}
	for i, item := range cl.ChecklistItems {
		if i >= 5 {
			break
		}
		parts = append(parts, item.Topic)
	}
	parts = append(parts, cl.GoverningActs...)

	passages, err := s.retriever.Retrieve(ctx, strings.Join(parts, " "), s.retrieveK)
	if err != nil {
		logrus.WithError(err).WithField("document_type", documentType).Warn("Draft context retrieval failed, continuing without corpus context")
		return nil
	}
	return passages
}

func (s *GenerationService) buildDraftPrompt(cl models.DocumentChecklist, req GenerateDocumentRequest, passages []models.RetrievedPassage, format models.OutputFormat) string {
	var contextBlock strings.Builder
	for _, p := range passages {
		contextBlock.WriteString(p.Text)
		contextBlock.WriteString("\n\n")
	}
	if contextBlock.Len() == 0 {
		contextBlock.WriteString("(no corpus context available)\n")
	}

	var requirements strings.Builder
	for i, item := range cl.ChecklistItems {
		requirements.WriteString(fmt.Sprintf("%d. %s: %s\n", i+1, item.Topic, item.Description))
	}

	inputKeys := make([]string, 0, len(req.UserInputs))
	for key := range req.UserInputs {
		inputKeys = append(inputKeys, key)
	}
	sort.Strings(inputKeys)
	var inputs strings.Builder
	for _, key := range inputKeys {
		inputs.WriteString(fmt.Sprintf("- %s: %s\n", key, req.UserInputs[key]))
	}
	if inputs.Len() == 0 {
		inputs.WriteString("(none provided; use standard placeholders like [PARTY NAME])\n")
	}

	formatInstruction := "Format the document as clean markdown with # and ## headings."
	switch format {
	case models.FormatHTML:
		formatInstruction = "Format the document as a self-contained HTML fragment using <h1>, <h2> and <p> tags."
	case models.FormatText:
		formatInstruction = "Format the document as plain text with numbered section headings. No markup."
	}

	sourcesInstruction := ""
	if req.IncludeSources {
		sourcesInstruction = "\nWhere a clause is grounded in a statute from the legal context, cite the act and section inline."
	}

	return fmt.Sprintf(`You are an expert Indian legal draftsman preparing a %s for use in India.

LEGAL CONTEXT (Indian statutes and case law):
%s
GOVERNING ACTS: %s

MANDATORY REQUIREMENTS (every one must be addressed by a clause):
%s
PARTY DETAILS:
%s
TASK:
Draft the complete %s with exactly these sections, in this order:
%s

OUTPUT REQUIREMENTS:
- %s
- Use formal Indian legal drafting language
- Every mandatory requirement above must be covered by a specific clause
- Use the party details where provided; use bracketed placeholders for missing details%s

Write the document now:`,
		cl.DisplayName,
		contextBlock.String(),
		strings.Join(cl.GoverningActs, ", "),
		requirements.String(),
		inputs.String(),
		cl.DisplayName,
		strings.Join(documentSections, ", "),
		formatInstruction,
		sourcesInstruction,
	)
}
