package repository

import (
	"context"
	"fmt"
	"strings"

	"jurisdraft-backend/models"
	"jurisdraft-backend/vectorstore"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PassageRepository stores corpus passages with their embeddings in Postgres
// (pgvector). It is the database-backed alternative to the flat file index
// for deployments that already run Postgres.
type PassageRepository struct {
	db       *pgxpool.Pool
	embedder vectorstore.Embedder
	category models.DocumentCategory
}

// NewPassageRepository creates a passage repository scoped to one corpus
// category. The embedder turns queries into vectors at search time.
func NewPassageRepository(db *pgxpool.Pool, embedder vectorstore.Embedder, category models.DocumentCategory) *PassageRepository {
	return &PassageRepository{db: db, embedder: embedder, category: category}
}

// formatVector formats an embedding vector as a string for pgx
func formatVector(embedding []float64) string {
	if len(embedding) == 0 {
		return "[]"
	}
	parts := make([]string, 0, len(embedding))
	for _, v := range embedding {
		parts = append(parts, fmt.Sprintf("%.6f", v))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// InsertBatch stores passages with their embeddings. Lengths must match.
func (r *PassageRepository) InsertBatch(ctx context.Context, passages []models.Passage, embeddings [][]float64) error {
	if len(passages) != len(embeddings) {
		return fmt.Errorf("passage/embedding count mismatch: %d vs %d", len(passages), len(embeddings))
	}

	batch := &pgx.Batch{}
	for i, p := range passages {
		batch.Queue(`
			INSERT INTO legal_passages (source, chunk_number, category, passage_text, embedding)
			VALUES ($1, $2, $3, $4, $5::vector)
			ON CONFLICT (source, chunk_number) DO UPDATE
			SET passage_text = EXCLUDED.passage_text, embedding = EXCLUDED.embedding`,
			p.Source, p.ChunkNumber, string(r.category), p.Text, formatVector(embeddings[i]),
		)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()
	for range passages {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert passage: %w", err)
		}
	}
	return nil
}

// Retrieve embeds the query and returns the k nearest passages in this
// repository's category, scored by cosine similarity. Satisfies
// vectorstore.Retriever.
func (r *PassageRepository) Retrieve(ctx context.Context, query string, k int) ([]models.RetrievedPassage, error) {
	if k <= 0 {
		k = 5
	}

	embedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embedding) != r.embedder.Dimension() {
		return nil, fmt.Errorf("embedding must be %d dimensions, got %d", r.embedder.Dimension(), len(embedding))
	}

	rows, err := r.db.Query(ctx, `
		SELECT
			source,
			chunk_number,
			passage_text,
			1 - (embedding <=> $1::vector) AS score
		FROM legal_passages
		WHERE category = $2
		ORDER BY embedding <=> $1::vector
		LIMIT $3`,
		formatVector(embedding), string(r.category), k,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query passages: %w", err)
	}
	defer rows.Close()

	var passages []models.RetrievedPassage
	for rows.Next() {
		var p models.RetrievedPassage
		if err := rows.Scan(&p.Source, &p.ChunkNumber, &p.Text, &p.Score); err != nil {
			return nil, fmt.Errorf("failed to scan passage: %w", err)
		}
		passages = append(passages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating passages: %w", err)
	}

	return passages, nil
}
