package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"jurisdraft-backend/models"
)

var (
	ErrEmptyCorpus   = errors.New("cannot build index from empty corpus")
	ErrModelMismatch = errors.New("index embedding model mismatch")
	ErrDimension     = errors.New("vector dimension mismatch")
)

// Retriever returns the k most relevant passages for a free-text query.
// Implemented by FlatIndex, the pgvector passage repository, and Ensemble.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]models.RetrievedPassage, error)
}

// PassageMeta is the id side-table entry stored next to each vector.
type PassageMeta struct {
	Source      string `json:"source"`
	ChunkNumber int    `json:"chunk_number"`
	Text        string `json:"text"`
}

// FlatIndex is an exact inner-product nearest-neighbor index over unit
// vectors (equivalent to cosine similarity). The integer id of a passage is
// its position; vectors and metadata are parallel slices. Built once per
// corpus partition, immutable afterwards, safe for concurrent reads.
type FlatIndex struct {
	model     string
	dimension int
	vectors   [][]float64
	meta      []PassageMeta

	embedder Embedder // query-side embedding; must match model
}

// NewFlatIndex creates an empty index bound to an embedder
func NewFlatIndex(embedder Embedder) *FlatIndex {
	return &FlatIndex{
		model:     embedder.Model(),
		dimension: embedder.Dimension(),
		embedder:  embedder,
	}
}

// Len returns the number of indexed passages
func (ix *FlatIndex) Len() int { return len(ix.vectors) }

// Model returns the embedding model the index was built with
func (ix *FlatIndex) Model() string { return ix.model }

// Add appends passages and their vectors to the index
func (ix *FlatIndex) Add(passages []models.Passage, vectors [][]float64) error {
	if len(passages) != len(vectors) {
		return fmt.Errorf("passages and vectors length mismatch: %d vs %d", len(passages), len(vectors))
	}
	for _, v := range vectors {
		if len(v) != ix.dimension {
			return fmt.Errorf("%w: want %d, got %d", ErrDimension, ix.dimension, len(v))
		}
	}
	for i, p := range passages {
		ix.vectors = append(ix.vectors, vectors[i])
		ix.meta = append(ix.meta, PassageMeta{
			Source:      p.Source,
			ChunkNumber: p.ChunkNumber,
			Text:        p.Text,
		})
	}
	return nil
}

// Search returns the k nearest passages to the query vector by inner product.
// Searching an empty index returns an empty list, not an error. Equal scores
// break ties by insertion order so rankings are deterministic.
func (ix *FlatIndex) Search(query []float64, k int) ([]models.RetrievedPassage, error) {
	if len(ix.vectors) == 0 {
		return nil, nil
	}
	if len(query) != ix.dimension {
		return nil, fmt.Errorf("%w: want %d, got %d", ErrDimension, ix.dimension, len(query))
	}
	if k <= 0 {
		k = 5
	}

	type scored struct {
		id    int
		score float64
	}
	scores := make([]scored, len(ix.vectors))
	for i, v := range ix.vectors {
		scores[i] = scored{id: i, score: dot(v, query)}
	}
	sort.SliceStable(scores, func(a, b int) bool {
		if scores[a].score != scores[b].score {
			return scores[a].score > scores[b].score
		}
		return scores[a].id < scores[b].id
	})

	if k > len(scores) {
		k = len(scores)
	}
	results := make([]models.RetrievedPassage, 0, k)
	for _, s := range scores[:k] {
		m := ix.meta[s.id]
		results = append(results, models.RetrievedPassage{
			Source:      m.Source,
			ChunkNumber: m.ChunkNumber,
			Text:        m.Text,
			Score:       s.score,
		})
	}
	return results, nil
}

// Retrieve embeds the query and searches the index.
func (ix *FlatIndex) Retrieve(ctx context.Context, query string, k int) ([]models.RetrievedPassage, error) {
	if ix.embedder == nil {
		return nil, errors.New("index has no embedder bound")
	}
	vector, err := ix.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return ix.Search(vector, k)
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
