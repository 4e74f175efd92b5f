package models

// ComplianceStatus is the verdict for a single checklist item.
type ComplianceStatus string

const (
	StatusCompliant          ComplianceStatus = "Compliant"
	StatusNonCompliant       ComplianceStatus = "Non-Compliant"
	StatusPartiallyCompliant ComplianceStatus = "Partially Compliant"
)

// ComplianceItem is the verdict for one checklist item against one submitted
// document.
type ComplianceItem struct {
	Requirement  string           `json:"requirement"`
	Status       ComplianceStatus `json:"status"`
	Details      string           `json:"details"`
	RelevantActs []string         `json:"relevant_acts"`
	Remediation  string           `json:"remediation,omitempty"`
}

// LoopholeItem is a detected gap or ambiguity in a submitted document.
type LoopholeItem struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	RiskLevel       RiskLevel `json:"risk_level"`
	ClauseReference string    `json:"clause_reference"`
	Recommendation  string    `json:"recommendation"`
}

// ComplianceResult aggregates all verdicts for one document-check invocation.
type ComplianceResult struct {
	DocumentType     string           `json:"document_type"`
	ComplianceChecks []ComplianceItem `json:"compliance_checks"`
	Loopholes        []LoopholeItem   `json:"loopholes"`
	OverallRiskScore float64          `json:"overall_risk_score"`
	RiskLevel        string           `json:"risk_level"` // LOW / MEDIUM / HIGH
	Summary          string           `json:"summary"`
	Recommendations  []string         `json:"recommendations"`
}
