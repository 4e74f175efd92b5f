package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"jurisdraft-backend/checklist"
	"jurisdraft-backend/models"
	"jurisdraft-backend/vectorstore"

	"github.com/sirupsen/logrus"
)

const supportedJurisdiction = "india"

// ScoringConfig holds the documented risk-scoring policy. Every weight is
// named so deployments can override individual values.
type ScoringConfig struct {
	LoopholeHighWeight     float64
	LoopholeMediumWeight   float64
	LoopholeLowWeight      float64
	NonCompliantWeight     float64
	PartialCompliantWeight float64
	MaxScore               float64
	HighRiskThreshold      float64
	MediumRiskThreshold    float64
	MaxRecommendations     int
}

// DefaultScoringConfig returns the standard policy.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		LoopholeHighWeight:     2.5,
		LoopholeMediumWeight:   1.5,
		LoopholeLowWeight:      1.0,
		NonCompliantWeight:     2.0,
		PartialCompliantWeight: 1.0,
		MaxScore:               10.0,
		HighRiskThreshold:      7.0,
		MediumRiskThreshold:    4.0,
		MaxRecommendations:     10,
	}
}

// ComplianceService checks submitted documents against the static checklists.
type ComplianceService struct {
	registry    *checklist.Registry
	retriever   vectorstore.Retriever
	generator   Generator
	scoring     ScoringConfig
	workers     int
	itemTimeout time.Duration
	retrieveK   int
}

// ComplianceServiceOption is a functional option for ComplianceService
type ComplianceServiceOption func(*ComplianceService)

// ComplianceWithRegistry sets the checklist registry
func ComplianceWithRegistry(r *checklist.Registry) ComplianceServiceOption {
	return func(s *ComplianceService) {
		s.registry = r
	}
}

// ComplianceWithRetriever sets the legal-context retriever
func ComplianceWithRetriever(r vectorstore.Retriever) ComplianceServiceOption {
	return func(s *ComplianceService) {
		s.retriever = r
	}
}

// ComplianceWithGenerator sets the generation port
func ComplianceWithGenerator(g Generator) ComplianceServiceOption {
	return func(s *ComplianceService) {
		s.generator = g
	}
}

// ComplianceWithScoring overrides the risk-scoring policy
func ComplianceWithScoring(cfg ScoringConfig) ComplianceServiceOption {
	return func(s *ComplianceService) {
		s.scoring = cfg
	}
}

// ComplianceWithWorkers bounds the per-item parallelism
func ComplianceWithWorkers(n int) ComplianceServiceOption {
	return func(s *ComplianceService) {
		if n > 0 {
			s.workers = n
		}
	}
}

// ComplianceWithItemTimeout bounds how long one checklist item may take
func ComplianceWithItemTimeout(d time.Duration) ComplianceServiceOption {
	return func(s *ComplianceService) {
		if d > 0 {
			s.itemTimeout = d
		}
	}
}

// ComplianceWithRetrievalK sets how many passages are retrieved per item
func ComplianceWithRetrievalK(k int) ComplianceServiceOption {
	return func(s *ComplianceService) {
		if k > 0 {
			s.retrieveK = k
		}
	}
}

// NewComplianceService creates a compliance service
func NewComplianceService(opts ...ComplianceServiceOption) *ComplianceService {
	s := &ComplianceService{
		scoring:     DefaultScoringConfig(),
		workers:     4,
		itemTimeout: 60 * time.Second,
		retrieveK:   5,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckDocumentRequest represents a request to check one document
type CheckDocumentRequest struct {
	DocumentText string
	DocumentType string
	Jurisdiction string
}

// itemVerdict carries one checklist item's outcome between the worker phase
// and aggregation. Exactly one of check or loophole is set.
type itemVerdict struct {
	item     models.ChecklistItem
	check    *models.ComplianceItem
	loophole *models.LoopholeItem
}

// CheckDocument evaluates the document against every checklist item for its
// type and returns the aggregated compliance result. Exactly one verdict is
// produced per checklist item, in checklist order; item-level failures
// degrade to Partially Compliant instead of failing the request.
func (s *ComplianceService) CheckDocument(ctx context.Context, req CheckDocumentRequest) (*models.ComplianceResult, error) {
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

	verdicts := make([]itemVerdict, len(cl.ChecklistItems))

	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	for i, item := range cl.ChecklistItems {
		wg.Add(1)
		go func(i int, item models.ChecklistItem) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			itemCtx, cancel := context.WithTimeout(ctx, s.itemTimeout)
			defer cancel()
			verdicts[i] = s.checkItem(itemCtx, item, req.DocumentText, cl.GoverningActs)
		}(i, item)
	}
	wg.Wait()

	result := &models.ComplianceResult{
		DocumentType: req.DocumentType,
	}
	for _, v := range verdicts {
		if v.check != nil {
			result.ComplianceChecks = append(result.ComplianceChecks, *v.check)
		}
		if v.loophole != nil {
			result.Loopholes = append(result.Loopholes, *v.loophole)
		}
	}

	result.OverallRiskScore = s.scoreRisk(result.ComplianceChecks, result.Loopholes)
	result.RiskLevel = s.riskLevel(result.OverallRiskScore)
	result.Summary = s.summarize(cl.DisplayName, result)
	result.Recommendations = s.rankRecommendations(result.ComplianceChecks, result.Loopholes)

	return result, nil
}

// checkItem evaluates one checklist item. Any failure along the way yields a
// Partially Compliant verdict so the item is never dropped.
func (s *ComplianceService) checkItem(ctx context.Context, item models.ChecklistItem, documentText string, acts []string) itemVerdict {
	v := itemVerdict{item: item}

	legalContext := s.retrieveItemContext(ctx, item, acts)

	prompt := s.buildItemPrompt(item, documentText, legalContext, acts)
	raw, err := s.generator.Complete(ctx, prompt)
	if err != nil {
		logrus.WithError(err).WithField("topic", item.Topic).Warn("Model call failed, degrading to partial compliance")
		v.check = s.partialVerdict(item)
		return v
	}

	verdict, ok := ParseVerdict(raw)
	if !ok {
		logrus.WithField("topic", item.Topic).Warn("Unparseable model response, degrading to partial compliance")
		v.check = s.partialVerdict(item)
		return v
	}

	// Exactly one outcome per item: a loophole takes precedence over the
	// compliance status, a non-compliant item without one is recorded as
	// Non-Compliant, and everything else is Compliant.
	switch {
	case verdict.HasLoophole:
		clauseRef := strings.TrimSpace(verdict.ClauseReference)
		if clauseRef == "" {
			clauseRef = "Not Found"
		}
		v.loophole = &models.LoopholeItem{
			Title:           item.Topic,
			Description:     verdict.Explanation,
			RiskLevel:       item.RiskLevel,
			ClauseReference: clauseRef,
			Recommendation:  verdict.Recommendation,
		}
	case !verdict.IsCompliant:
		v.check = &models.ComplianceItem{
			Requirement:  item.Topic,
			Status:       models.StatusNonCompliant,
			Details:      verdict.Explanation,
			RelevantActs: acts,
			Remediation:  verdict.Recommendation,
		}
	default:
		v.check = &models.ComplianceItem{
			Requirement:  item.Topic,
			Status:       models.StatusCompliant,
			Details:      verdict.Explanation,
			RelevantActs: acts,
		}
	}

	return v
}

func (s *ComplianceService) partialVerdict(item models.ChecklistItem) *models.ComplianceItem {
	return &models.ComplianceItem{
		Requirement: item.Topic,
		Status:      models.StatusPartiallyCompliant,
		Details:     "Automated analysis unavailable for this item. Manual review recommended.",
		Remediation: "Manual review recommended",
	}
}

// retrieveItemContext fetches supporting passages for one item. Retrieval
// failure is non-fatal; the model is prompted without corpus context.
func (s *ComplianceService) retrieveItemContext(ctx context.Context, item models.ChecklistItem, acts []string) []models.RetrievedPassage {
	if s.retriever == nil {
		return nil
	}
	query := item.Topic + " " + item.Description
	if len(acts) > 0 {
		query += " " + strings.Join(acts, " ")
	}
	passages, err := s.retriever.Retrieve(ctx, query, s.retrieveK)
	if err != nil {
		logrus.WithError(err).WithField("topic", item.Topic).Warn("Context retrieval failed, continuing without corpus context")
		return nil
	}
	return passages
}

func (s *ComplianceService) buildItemPrompt(item models.ChecklistItem, documentText string, passages []models.RetrievedPassage, acts []string) string {
	var contextBlock strings.Builder
	for _, p := range passages {
		contextBlock.WriteString(p.Text)
		contextBlock.WriteString("\n\n")
	}
	if contextBlock.Len() == 0 {
		contextBlock.WriteString("(no corpus context available)\n")
	}

	return fmt.Sprintf(`You are an expert Indian legal compliance analyst.

LEGAL CONTEXT (Indian statutes and case law):
%s
GOVERNING ACTS: %s

REQUIREMENT TO CHECK:
Topic: %s
Description: %s

DOCUMENT UNDER REVIEW:
%s

TASK:
Determine whether the document satisfies the requirement above under Indian law, and whether the relevant clause contains a loophole (a gap, ambiguity, or omission a counterparty could exploit).

Respond with ONLY a JSON object, no other text:
{
  "is_compliant": true or false,
  "has_loophole": true or false,
  "clause_reference": "quote the specific clause text, or 'Not Found' if missing",
  "explanation": "2-3 sentences explaining the finding",
  "recommendation": "the specific change that would fix the issue, or empty if none needed"
}`,
		contextBlock.String(),
		strings.Join(acts, ", "),
		item.Topic,
		item.Description,
		documentText,
	)
}

// scoreRisk applies the documented scoring policy: a weighted count of
// loopholes and non-compliant items, clamped to MaxScore.
func (s *ComplianceService) scoreRisk(checks []models.ComplianceItem, loopholes []models.LoopholeItem) float64 {
	score := 0.0
	for _, lh := range loopholes {
		switch lh.RiskLevel {
		case models.RiskHigh:
			score += s.scoring.LoopholeHighWeight
		case models.RiskMedium:
			score += s.scoring.LoopholeMediumWeight
		default:
			score += s.scoring.LoopholeLowWeight
		}
	}
	for _, c := range checks {
		switch c.Status {
		case models.StatusNonCompliant:
			score += s.scoring.NonCompliantWeight
		case models.StatusPartiallyCompliant:
			score += s.scoring.PartialCompliantWeight
		}
	}
	if score > s.scoring.MaxScore {
		score = s.scoring.MaxScore
	}
	return score
}

func (s *ComplianceService) riskLevel(score float64) string {
	switch {
	case score >= s.scoring.HighRiskThreshold:
		return "HIGH"
	case score >= s.scoring.MediumRiskThreshold:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

func (s *ComplianceService) summarize(displayName string, result *models.ComplianceResult) string {
	compliant, nonCompliant, partial := 0, 0, 0
	for _, c := range result.ComplianceChecks {
		switch c.Status {
		case models.StatusCompliant:
			compliant++
		case models.StatusNonCompliant:
			nonCompliant++
		case models.StatusPartiallyCompliant:
			partial++
		}
	}
	return fmt.Sprintf(
		"Reviewed %s against %d requirements: %d compliant, %d non-compliant, %d partially compliant, %d loopholes detected. Overall risk: %s (%.1f/%.0f).",
		displayName,
		len(result.ComplianceChecks)+len(result.Loopholes),
		compliant,
		nonCompliant,
		partial,
		len(result.Loopholes),
		result.RiskLevel,
		result.OverallRiskScore,
		s.scoring.MaxScore,
	)
}

// rankRecommendations orders fixes by urgency: high-risk loopholes first,
// then non-compliant remediations, then medium-risk loopholes.
func (s *ComplianceService) rankRecommendations(checks []models.ComplianceItem, loopholes []models.LoopholeItem) []string {
	recs := make([]string, 0)
	seen := make(map[string]bool)
	add := func(rec string) {
		rec = strings.TrimSpace(rec)
		if rec == "" || seen[rec] {
			return
		}
		seen[rec] = true
		recs = append(recs, rec)
	}

	for _, lh := range loopholes {
		if lh.RiskLevel == models.RiskHigh {
			add(lh.Recommendation)
		}
	}
	for _, c := range checks {
		if c.Status == models.StatusNonCompliant {
			add(c.Remediation)
		}
	}
	for _, lh := range loopholes {
		if lh.RiskLevel == models.RiskMedium {
			add(lh.Recommendation)
		}
	}

	if len(recs) > s.scoring.MaxRecommendations {
		recs = recs[:s.scoring.MaxRecommendations]
	}
	return recs
}
