package vectorstore

import (
	"context"
)

// Embedder converts text into fixed-dimension unit vectors. The model
// identity reported by Model must match between index build time and query
// time; indices record it and fail fast on mismatch at load.
type Embedder interface {
	// EmbedPassages embeds corpus passages (document-side task type)
	EmbedPassages(ctx context.Context, texts []string) ([][]float64, error)

	// EmbedQuery embeds a retrieval query (query-side task type)
	EmbedQuery(ctx context.Context, text string) ([]float64, error)

	// Model returns the embedding model identifier
	Model() string

	// Dimension returns the embedding vector dimension
	Dimension() int
}
