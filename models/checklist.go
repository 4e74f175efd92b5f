package models

// RiskLevel is the ordinal severity assigned to a checklist item or loophole.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// EvidenceSnippet is a passage excerpt attached to a checklist item by the
// offline checklist build job.
type EvidenceSnippet struct {
	DocID string `json:"doc_id"`
	Text  string `json:"text"`
}

// ChecklistItem is one required legal consideration for a document type.
type ChecklistItem struct {
	Topic              string            `json:"topic"`
	Description        string            `json:"description"`
	RiskLevel          RiskLevel         `json:"risk_level"`
	SupportingEvidence []EvidenceSnippet `json:"supporting_evidence,omitempty"`
}

// DocumentChecklist is the full static checklist for one document type.
type DocumentChecklist struct {
	DisplayName    string          `json:"display_name"`
	GoverningActs  []string        `json:"governing_acts"`
	ChecklistItems []ChecklistItem `json:"checklist_items"`
}
