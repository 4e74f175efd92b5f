package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"jurisdraft-backend/models"
)

// Source is one weighted retrieval source in an ensemble. Statutes and
// judgments carry different relevance signals; the weights bias the merge
// without excluding either.
type Source struct {
	Name      string
	Retriever Retriever
	Weight    float64
}

// Ensemble queries several independently built indices and merges their
// rankings by weighted, per-source-normalized score.
type Ensemble struct {
	sources []Source
}

// NewEnsemble creates an ensemble over the given sources
func NewEnsemble(sources ...Source) (*Ensemble, error) {
	if len(sources) == 0 {
		return nil, errors.New("ensemble requires at least one source")
	}
	for _, s := range sources {
		if s.Weight < 0 {
			return nil, fmt.Errorf("source %s has negative weight %f", s.Name, s.Weight)
		}
	}
	return &Ensemble{sources: sources}, nil
}

// Retrieve queries each source for its own top-k, rescores each passage as
// weight * minmax-normalized score, and returns the global top-k. Ties break
// by per-source rank, then by source declaration order. Zero-weight sources
// are never queried, so weights (1, 0) reproduce the first source exactly.
func (e *Ensemble) Retrieve(ctx context.Context, query string, k int) ([]models.RetrievedPassage, error) {
	if k <= 0 {
		k = 5
	}

	type candidate struct {
		passage  models.RetrievedPassage
		merged   float64
		rank     int
		srcOrder int
	}
	var candidates []candidate

	for srcOrder, src := range e.sources {
		if src.Weight == 0 {
			continue
		}

		results, err := src.Retriever.Retrieve(ctx, query, k)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Name, err)
		}
		if len(results) == 0 {
			continue
		}

		normalized := minMaxNormalize(results)
		for rank, r := range results {
			r.Score = src.Weight * normalized[rank]
			candidates = append(candidates, candidate{
				passage:  r,
				merged:   r.Score,
				rank:     rank,
				srcOrder: srcOrder,
			})
		}
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		if candidates[a].merged != candidates[b].merged {
			return candidates[a].merged > candidates[b].merged
		}
		if candidates[a].rank != candidates[b].rank {
			return candidates[a].rank < candidates[b].rank
		}
		return candidates[a].srcOrder < candidates[b].srcOrder
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	merged := make([]models.RetrievedPassage, 0, k)
	for _, c := range candidates[:k] {
		merged = append(merged, c.passage)
	}
	return merged, nil
}

// minMaxNormalize maps one source's scores to [0,1]. A degenerate source
// (single result, or all scores equal) normalizes to 1.0 so it still
// participates in the merge.
func minMaxNormalize(results []models.RetrievedPassage) []float64 {
	lo, hi := results[0].Score, results[0].Score
	for _, r := range results[1:] {
		if r.Score < lo {
			lo = r.Score
		}
		if r.Score > hi {
			hi = r.Score
		}
	}

	normalized := make([]float64, len(results))
	for i, r := range results {
		if hi == lo {
			normalized[i] = 1.0
		} else {
			normalized[i] = (r.Score - lo) / (hi - lo)
		}
	}
	return normalized
}
