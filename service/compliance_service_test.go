package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"jurisdraft-backend/checklist"
	"jurisdraft-backend/models"
)

const testChecklists = `{
	"rental_agreement": {
		"display_name": "Rental Agreement",
		"governing_acts": ["Transfer of Property Act, 1882"],
		"checklist_items": [
			{"topic": "Security Deposit", "description": "Deposit and refund terms", "risk_level": "High"},
			{"topic": "Lock-in Period", "description": "Early termination terms", "risk_level": "Medium"},
			{"topic": "Maintenance", "description": "Maintenance responsibility", "risk_level": "Low"}
		]
	}
}`

func testRegistry(t *testing.T) *checklist.Registry {
	t.Helper()
	r, err := checklist.ParseRegistry([]byte(testChecklists))
	if err != nil {
		t.Fatal(err)
	}
	return r
}

// scriptedGenerator answers by matching the checklist topic inside the
// prompt. Topics without a script get a compliant verdict.
type scriptedGenerator struct {
	responses map[string]string
	errors    map[string]error
	blockOn   map[string]bool
	calls     int
}

func (g *scriptedGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	g.calls++
	for topic, block := range g.blockOn {
		if block && strings.Contains(prompt, "Topic: "+topic) {
			<-ctx.Done()
			return "", ctx.Err()
		}
	}
	for topic, err := range g.errors {
		if strings.Contains(prompt, "Topic: "+topic) {
			return "", err
		}
	}
	for topic, resp := range g.responses {
		if strings.Contains(prompt, "Topic: "+topic) {
			return resp, nil
		}
	}
	return `{"is_compliant": true, "has_loophole": false, "explanation": "ok"}`, nil
}

type countingRetriever struct {
	calls int
}

func (r *countingRetriever) Retrieve(_ context.Context, _ string, k int) ([]models.RetrievedPassage, error) {
	r.calls++
	return []models.RetrievedPassage{{Source: "act", ChunkNumber: 0, Text: "Section 17.", Score: 0.9}}, nil
}

func newTestService(t *testing.T, gen Generator, opts ...ComplianceServiceOption) *ComplianceService {
	t.Helper()
	base := []ComplianceServiceOption{
		ComplianceWithRegistry(testRegistry(t)),
		ComplianceWithRetriever(&countingRetriever{}),
		ComplianceWithGenerator(gen),
	}
	return NewComplianceService(append(base, opts...)...)
}

func TestCheckDocumentJurisdictionGuard(t *testing.T) {
	gen := &scriptedGenerator{}
	retriever := &countingRetriever{}
	svc := NewComplianceService(
		ComplianceWithRegistry(testRegistry(t)),
		ComplianceWithRetriever(retriever),
		ComplianceWithGenerator(gen),
	)

	for _, jurisdiction := range []string{"USA", "UK", ""} {
		_, err := svc.CheckDocument(context.Background(), CheckDocumentRequest{
			DocumentText: "text",
			DocumentType: "rental_agreement",
			Jurisdiction: jurisdiction,
		})
		if !errors.Is(err, ErrUnsupportedJurisdiction) {
			t.Errorf("jurisdiction %q: expected ErrUnsupportedJurisdiction, got %v", jurisdiction, err)
		}
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times before jurisdiction check", gen.calls)
	}
	if retriever.calls != 0 {
		t.Errorf("retriever called %d times before jurisdiction check", retriever.calls)
	}
}

func TestCheckDocumentJurisdictionCaseInsensitive(t *testing.T) {
	svc := newTestService(t, &scriptedGenerator{})
	for _, jurisdiction := range []string{"India", "INDIA", " india "} {
		if _, err := svc.CheckDocument(context.Background(), CheckDocumentRequest{
			DocumentText: "text",
			DocumentType: "rental_agreement",
			Jurisdiction: jurisdiction,
		}); err != nil {
			t.Errorf("jurisdiction %q rejected: %v", jurisdiction, err)
		}
	}
}

func TestCheckDocumentUnknownType(t *testing.T) {
	svc := newTestService(t, &scriptedGenerator{})
	result, err := svc.CheckDocument(context.Background(), CheckDocumentRequest{
		DocumentText: "text",
		DocumentType: "partnership_deed",
		Jurisdiction: "India",
	})
	if !errors.Is(err, checklist.ErrUnknownDocumentType) {
		t.Fatalf("expected ErrUnknownDocumentType, got %v", err)
	}
	if result != nil {
		t.Error("expected no partial result for unknown document type")
	}
}

func TestCheckDocumentOneVerdictPerItem(t *testing.T) {
	svc := newTestService(t, &scriptedGenerator{})
	result, err := svc.CheckDocument(context.Background(), CheckDocumentRequest{
		DocumentText: "The tenant shall pay a deposit of two months rent.",
		DocumentType: "rental_agreement",
		Jurisdiction: "India",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.ComplianceChecks) != 3 {
		t.Fatalf("expected 3 verdicts, got %d", len(result.ComplianceChecks))
	}
	wantOrder := []string{"Security Deposit", "Lock-in Period", "Maintenance"}
	for i, check := range result.ComplianceChecks {
		if check.Requirement != wantOrder[i] {
			t.Errorf("verdict %d = %q, want %q", i, check.Requirement, wantOrder[i])
		}
		if check.Status != models.StatusCompliant {
			t.Errorf("verdict %d status = %q", i, check.Status)
		}
	}
	if result.OverallRiskScore != 0 {
		t.Errorf("all-compliant score = %f, want 0", result.OverallRiskScore)
	}
	if result.RiskLevel != "LOW" {
		t.Errorf("risk level = %q, want LOW", result.RiskLevel)
	}
}

func TestCheckDocumentLoopholeClassification(t *testing.T) {
	gen := &scriptedGenerator{
		responses: map[string]string{
			"Security Deposit": `{"is_compliant": false, "has_loophole": true, "clause_reference": "Clause 3", "explanation": "No refund timeline.", "recommendation": "Add a refund deadline."}`,
		},
	}
	svc := newTestService(t, gen)
	result, err := svc.CheckDocument(context.Background(), CheckDocumentRequest{
		DocumentText: "text",
		DocumentType: "rental_agreement",
		Jurisdiction: "India",
	})
	if err != nil {
		t.Fatal(err)
	}

	// a loophole item is recorded once, not also as a compliance check
	if len(result.Loopholes) != 1 {
		t.Fatalf("expected 1 loophole, got %d", len(result.Loopholes))
	}
	if len(result.ComplianceChecks) != 2 {
		t.Fatalf("expected 2 compliance checks, got %d", len(result.ComplianceChecks))
	}
	for _, check := range result.ComplianceChecks {
		if check.Requirement == "Security Deposit" {
			t.Errorf("loophole item also recorded as compliance check: %+v", check)
		}
	}
	lh := result.Loopholes[0]
	if lh.Title != "Security Deposit" || lh.RiskLevel != models.RiskHigh || lh.ClauseReference != "Clause 3" {
		t.Errorf("loophole = %+v", lh)
	}
	// single high-risk loophole
	if result.OverallRiskScore != 2.5 {
		t.Errorf("score = %f, want 2.5", result.OverallRiskScore)
	}
	if result.RiskLevel != "LOW" {
		t.Errorf("risk level = %q, want LOW", result.RiskLevel)
	}
	if len(result.Recommendations) == 0 || result.Recommendations[0] != "Add a refund deadline." {
		t.Errorf("recommendations = %v", result.Recommendations)
	}
}

func TestCheckDocumentExactlyOneVerdictPerItem(t *testing.T) {
	gen := &scriptedGenerator{
		responses: map[string]string{
			"Security Deposit": `{"is_compliant": false, "has_loophole": true, "clause_reference": "Clause 3", "explanation": "No refund timeline.", "recommendation": "Add a refund deadline."}`,
			"Lock-in Period":   `{"is_compliant": false, "has_loophole": false, "explanation": "No lock-in clause.", "recommendation": "Add a lock-in clause."}`,
		},
	}
	svc := newTestService(t, gen)
	result, err := svc.CheckDocument(context.Background(), CheckDocumentRequest{
		DocumentText: "text",
		DocumentType: "rental_agreement",
		Jurisdiction: "India",
	})
	if err != nil {
		t.Fatal(err)
	}

	if got := len(result.ComplianceChecks) + len(result.Loopholes); got != 3 {
		t.Fatalf("3 checklist items produced %d verdicts (%d checks + %d loopholes)",
			got, len(result.ComplianceChecks), len(result.Loopholes))
	}
	if len(result.Loopholes) != 1 {
		t.Fatalf("expected 1 loophole, got %d", len(result.Loopholes))
	}
	if result.ComplianceChecks[0].Requirement != "Lock-in Period" ||
		result.ComplianceChecks[0].Status != models.StatusNonCompliant {
		t.Errorf("check 0 = %+v, want Non-Compliant Lock-in Period", result.ComplianceChecks[0])
	}
	if result.ComplianceChecks[1].Requirement != "Maintenance" ||
		result.ComplianceChecks[1].Status != models.StatusCompliant {
		t.Errorf("check 1 = %+v, want Compliant Maintenance", result.ComplianceChecks[1])
	}
	// high-risk loophole 2.5 + non-compliant 2.0, scored once each
	if result.OverallRiskScore != 4.5 {
		t.Errorf("score = %f, want 4.5", result.OverallRiskScore)
	}
}

func TestCheckDocumentLoopholeClauseReferenceDefault(t *testing.T) {
	gen := &scriptedGenerator{
		responses: map[string]string{
			"Security Deposit": `{"is_compliant": false, "has_loophole": true, "clause_reference": "", "explanation": "No deposit clause at all.", "recommendation": "Add a deposit clause."}`,
		},
	}
	svc := newTestService(t, gen)
	result, err := svc.CheckDocument(context.Background(), CheckDocumentRequest{
		DocumentText: "text",
		DocumentType: "rental_agreement",
		Jurisdiction: "India",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Loopholes) != 1 {
		t.Fatalf("expected 1 loophole, got %d", len(result.Loopholes))
	}
	if result.Loopholes[0].ClauseReference != "Not Found" {
		t.Errorf("clause reference = %q, want \"Not Found\"", result.Loopholes[0].ClauseReference)
	}
}

func TestCheckDocumentDegradesOnModelFailure(t *testing.T) {
	gen := &scriptedGenerator{
		errors: map[string]error{"Lock-in Period": errors.New("rate limited")},
	}
	svc := newTestService(t, gen)
	result, err := svc.CheckDocument(context.Background(), CheckDocumentRequest{
		DocumentText: "text",
		DocumentType: "rental_agreement",
		Jurisdiction: "India",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.ComplianceChecks) != 3 {
		t.Fatalf("expected 3 verdicts, got %d", len(result.ComplianceChecks))
	}
	degraded := result.ComplianceChecks[1]
	if degraded.Status != models.StatusPartiallyCompliant {
		t.Errorf("failed item status = %q, want Partially Compliant", degraded.Status)
	}
	if !strings.Contains(degraded.Details, "Manual review recommended") {
		t.Errorf("degraded details = %q", degraded.Details)
	}
	if result.ComplianceChecks[0].Status != models.StatusCompliant ||
		result.ComplianceChecks[2].Status != models.StatusCompliant {
		t.Error("healthy items affected by one item's failure")
	}
}

func TestCheckDocumentDegradesOnParseFailure(t *testing.T) {
	gen := &scriptedGenerator{
		responses: map[string]string{"Maintenance": "The clause looks fine to me."},
	}
	svc := newTestService(t, gen)
	result, err := svc.CheckDocument(context.Background(), CheckDocumentRequest{
		DocumentText: "text",
		DocumentType: "rental_agreement",
		Jurisdiction: "India",
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.ComplianceChecks[2].Status != models.StatusPartiallyCompliant {
		t.Errorf("unparseable item status = %q, want Partially Compliant", result.ComplianceChecks[2].Status)
	}
}

func TestCheckDocumentTimeoutIsolation(t *testing.T) {
	gen := &scriptedGenerator{
		blockOn: map[string]bool{"Security Deposit": true},
	}
	svc := newTestService(t, gen, ComplianceWithItemTimeout(50*time.Millisecond))

	start := time.Now()
	result, err := svc.CheckDocument(context.Background(), CheckDocumentRequest{
		DocumentText: "text",
		DocumentType: "rental_agreement",
		Jurisdiction: "India",
	})
	if err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("hung item blocked the request for %v", elapsed)
	}
	if result.ComplianceChecks[0].Status != models.StatusPartiallyCompliant {
		t.Errorf("timed-out item status = %q, want Partially Compliant", result.ComplianceChecks[0].Status)
	}
	if result.ComplianceChecks[1].Status != models.StatusCompliant ||
		result.ComplianceChecks[2].Status != models.StatusCompliant {
		t.Error("other items affected by one item's timeout")
	}
}

func TestScoreRiskMonotoneAndClamped(t *testing.T) {
	svc := NewComplianceService()

	var loopholes []models.LoopholeItem
	prev := 0.0
	for i := 0; i < 10; i++ {
		loopholes = append(loopholes, models.LoopholeItem{Title: fmt.Sprintf("lh%d", i), RiskLevel: models.RiskHigh})
		score := svc.scoreRisk(nil, loopholes)
		if score < prev {
			t.Fatalf("score decreased from %f to %f after adding a loophole", prev, score)
		}
		if score > 10.0 {
			t.Fatalf("score %f exceeds cap", score)
		}
		prev = score
	}
	if prev != 10.0 {
		t.Errorf("ten high-risk loopholes score = %f, want clamped 10.0", prev)
	}
}

func TestScoreRiskWeights(t *testing.T) {
	svc := NewComplianceService()
	tests := []struct {
		name      string
		checks    []models.ComplianceItem
		loopholes []models.LoopholeItem
		want      float64
	}{
		{"high loophole", nil, []models.LoopholeItem{{RiskLevel: models.RiskHigh}}, 2.5},
		{"medium loophole", nil, []models.LoopholeItem{{RiskLevel: models.RiskMedium}}, 1.5},
		{"low loophole", nil, []models.LoopholeItem{{RiskLevel: models.RiskLow}}, 1.0},
		{"unknown severity", nil, []models.LoopholeItem{{RiskLevel: "Critical"}}, 1.0},
		{"non-compliant", []models.ComplianceItem{{Status: models.StatusNonCompliant}}, nil, 2.0},
		{"partial", []models.ComplianceItem{{Status: models.StatusPartiallyCompliant}}, nil, 1.0},
		{"compliant", []models.ComplianceItem{{Status: models.StatusCompliant}}, nil, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.scoreRisk(tt.checks, tt.loopholes); got != tt.want {
				t.Errorf("score = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestRiskLevelThresholds(t *testing.T) {
	svc := NewComplianceService()
	tests := []struct {
		score float64
		want  string
	}{
		{0, "LOW"}, {3.9, "LOW"}, {4.0, "MEDIUM"}, {6.9, "MEDIUM"}, {7.0, "HIGH"}, {10, "HIGH"},
	}
	for _, tt := range tests {
		if got := svc.riskLevel(tt.score); got != tt.want {
			t.Errorf("riskLevel(%f) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestRecommendationsRankedAndCapped(t *testing.T) {
	svc := NewComplianceService()

	var loopholes []models.LoopholeItem
	for i := 0; i < 8; i++ {
		loopholes = append(loopholes, models.LoopholeItem{
			RiskLevel:      models.RiskHigh,
			Recommendation: fmt.Sprintf("fix high %d", i),
		})
	}
	loopholes = append(loopholes, models.LoopholeItem{
		RiskLevel:      models.RiskMedium,
		Recommendation: "fix medium",
	})
	checks := []models.ComplianceItem{
		{Status: models.StatusNonCompliant, Remediation: "remediate clause"},
		{Status: models.StatusNonCompliant, Remediation: "remediate other clause"},
	}

	recs := svc.rankRecommendations(checks, loopholes)
	if len(recs) != 10 {
		t.Fatalf("expected recommendations capped at 10, got %d", len(recs))
	}
	if recs[0] != "fix high 0" {
		t.Errorf("rank 0 = %q, want high-risk loophole first", recs[0])
	}
	if recs[8] != "remediate clause" {
		t.Errorf("rank 8 = %q, want non-compliant remediation after high-risk loopholes", recs[8])
	}
	for _, r := range recs {
		if r == "fix medium" {
			t.Error("medium-risk recommendation included despite cap")
		}
	}
}
