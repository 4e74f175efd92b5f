package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"jurisdraft-backend/models"
	"jurisdraft-backend/storage"

	"github.com/sirupsen/logrus"
)

// BuildOptions configures an index build.
type BuildOptions struct {
	Prefix          string // storage key prefix, e.g. "acts"
	BatchSize       int    // passages embedded per API batch
	CheckpointEvery int    // batches between checkpoint saves
}

func (o *BuildOptions) applyDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.CheckpointEvery <= 0 {
		o.CheckpointEvery = 20
	}
}

// Build embeds passages in bounded batches and constructs a flat index,
// persisting a checkpoint every CheckpointEvery batches. If an earlier
// checkpoint exists under the same prefix, the build resumes there and only
// the remaining passages are embedded. Resuming assumes the passage sequence
// is the same as the interrupted run's.
func Build(ctx context.Context, store storage.Storage, embedder Embedder, passages []models.Passage, opts BuildOptions) (*FlatIndex, error) {
	if len(passages) == 0 {
		return nil, ErrEmptyCorpus
	}
	opts.applyDefaults()

	ix, done, err := resumeOrStart(ctx, store, embedder, opts.Prefix)
	if err != nil {
		return nil, err
	}
	if done > len(passages) {
		return nil, fmt.Errorf("checkpoint %s has %d passages but corpus has only %d; rebuild from scratch",
			opts.Prefix, done, len(passages))
	}
	if done > 0 {
		logrus.WithFields(logrus.Fields{
			"prefix":  opts.Prefix,
			"resumed": done,
			"total":   len(passages),
		}).Info("Resuming index build from checkpoint")
	}

	batches := 0
	for start := done; start < len(passages); start += opts.BatchSize {
		end := start + opts.BatchSize
		if end > len(passages) {
			end = len(passages)
		}
		batch := passages[start:end]

		texts := make([]string, 0, len(batch))
		for _, p := range batch {
			texts = append(texts, p.Text)
		}

		vectors, err := embedder.EmbedPassages(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch at passage %d: %w", start, err)
		}
		if err := ix.Add(batch, vectors); err != nil {
			return nil, err
		}

		batches++
		if batches%opts.CheckpointEvery == 0 {
			if err := ix.Save(ctx, store, opts.Prefix); err != nil {
				return nil, fmt.Errorf("failed to persist checkpoint: %w", err)
			}
			logrus.WithFields(logrus.Fields{
				"prefix":  opts.Prefix,
				"indexed": ix.Len(),
				"total":   len(passages),
			}).Info("Index checkpoint persisted")
		}
	}

	if err := ix.Save(ctx, store, opts.Prefix); err != nil {
		return nil, fmt.Errorf("failed to persist index: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"prefix":   opts.Prefix,
		"passages": ix.Len(),
		"model":    embedder.Model(),
	}).Info("Index build complete")

	return ix, nil
}

// resumeOrStart loads an existing checkpoint for the prefix or returns a
// fresh index. A model mismatch against a stale checkpoint is fatal rather
// than silently rebuilding over it.
func resumeOrStart(ctx context.Context, store storage.Storage, embedder Embedder, prefix string) (*FlatIndex, int, error) {
	exists, err := store.Exists(ctx, manifestKey(prefix))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to check for checkpoint: %w", err)
	}
	if !exists {
		return NewFlatIndex(embedder), 0, nil
	}

	ix, err := Load(ctx, store, embedder, prefix)
	if err != nil {
		if errors.Is(err, ErrModelMismatch) {
			return nil, 0, err
		}
		// unreadable checkpoint: start over rather than fail the batch job
		logrus.WithError(err).WithField("prefix", prefix).Warn("Discarding unreadable checkpoint")
		return NewFlatIndex(embedder), 0, nil
	}
	return ix, ix.Len(), nil
}
