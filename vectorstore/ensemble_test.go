package vectorstore

import (
	"context"
	"errors"
	"testing"

	"jurisdraft-backend/models"
)

// stubRetriever returns canned results and counts how often it is queried.
type stubRetriever struct {
	results []models.RetrievedPassage
	err     error
	calls   int
}

func (s *stubRetriever) Retrieve(_ context.Context, _ string, k int) ([]models.RetrievedPassage, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if k > len(s.results) {
		k = len(s.results)
	}
	return s.results[:k], nil
}

func rp(source string, chunk int, score float64) models.RetrievedPassage {
	return models.RetrievedPassage{Source: source, ChunkNumber: chunk, Text: source, Score: score}
}

func TestNewEnsembleValidation(t *testing.T) {
	if _, err := NewEnsemble(); err == nil {
		t.Error("expected error for empty ensemble")
	}
	if _, err := NewEnsemble(Source{Name: "a", Retriever: &stubRetriever{}, Weight: -0.1}); err == nil {
		t.Error("expected error for negative weight")
	}
}

func TestEnsembleZeroWeightSourceNotQueried(t *testing.T) {
	acts := &stubRetriever{results: []models.RetrievedPassage{
		rp("act1", 0, 0.9), rp("act2", 0, 0.5),
	}}
	judgments := &stubRetriever{results: []models.RetrievedPassage{
		rp("case1", 0, 0.99),
	}}

	e, err := NewEnsemble(
		Source{Name: "acts", Retriever: acts, Weight: 1.0},
		Source{Name: "judgments", Retriever: judgments, Weight: 0.0},
	)
	if err != nil {
		t.Fatal(err)
	}

	results, err := e.Retrieve(context.Background(), "q", 2)
	if err != nil {
		t.Fatal(err)
	}
	if judgments.calls != 0 {
		t.Errorf("zero-weight source was queried %d times", judgments.calls)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	// (1, 0) weights must reproduce the first source's ranking exactly
	if results[0].Source != "act1" || results[1].Source != "act2" {
		t.Errorf("ranking = %s, %s; want act1, act2", results[0].Source, results[1].Source)
	}
}

func TestEnsembleWeightedMerge(t *testing.T) {
	// acts: normalized scores 1.0 and 0.0; judgments: 1.0 and 0.0
	acts := &stubRetriever{results: []models.RetrievedPassage{
		rp("act1", 0, 0.8), rp("act2", 0, 0.2),
	}}
	judgments := &stubRetriever{results: []models.RetrievedPassage{
		rp("case1", 0, 0.9), rp("case2", 0, 0.1),
	}}

	e, err := NewEnsemble(
		Source{Name: "acts", Retriever: acts, Weight: 0.4},
		Source{Name: "judgments", Retriever: judgments, Weight: 0.6},
	)
	if err != nil {
		t.Fatal(err)
	}

	results, err := e.Retrieve(context.Background(), "q", 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	// merged: case1=0.6, act1=0.4, then the two zero-normalized tails
	if results[0].Source != "case1" {
		t.Errorf("rank 0 = %s, want case1", results[0].Source)
	}
	if results[1].Source != "act1" {
		t.Errorf("rank 1 = %s, want act1", results[1].Source)
	}
}

func TestEnsembleTieBreakBySourceOrder(t *testing.T) {
	// equal weights and degenerate single-result sources: both normalize to
	// 1.0 and tie at rank 0, so declaration order decides
	first := &stubRetriever{results: []models.RetrievedPassage{rp("first", 0, 0.3)}}
	second := &stubRetriever{results: []models.RetrievedPassage{rp("second", 0, 0.7)}}

	e, err := NewEnsemble(
		Source{Name: "one", Retriever: first, Weight: 0.5},
		Source{Name: "two", Retriever: second, Weight: 0.5},
	)
	if err != nil {
		t.Fatal(err)
	}

	results, err := e.Retrieve(context.Background(), "q", 2)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Source != "first" || results[1].Source != "second" {
		t.Errorf("tie not broken by source order: got %s, %s", results[0].Source, results[1].Source)
	}
}

func TestEnsembleSourceErrorPropagates(t *testing.T) {
	bad := &stubRetriever{err: errors.New("backend down")}
	e, err := NewEnsemble(Source{Name: "acts", Retriever: bad, Weight: 1.0})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Retrieve(context.Background(), "q", 3); err == nil {
		t.Error("expected source error to propagate")
	}
}
