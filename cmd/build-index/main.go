package main

import (
	"context"
	"flag"
	"os"

	"jurisdraft-backend/config"
	"jurisdraft-backend/corpus"
	"jurisdraft-backend/models"
	"jurisdraft-backend/repository"
	"jurisdraft-backend/storage"
	"jurisdraft-backend/vectorstore"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	var (
		corpusDir  = flag.String("corpus", "", "directory of source documents (required)")
		category   = flag.String("category", "act", "corpus category: act or judgment")
		prefix     = flag.String("prefix", "", "storage prefix for the index (default from config)")
		batchSize  = flag.Int("batch", 100, "passages embedded per API call")
		checkpoint = flag.Int("checkpoint", 20, "persist the index every N batches")
		withOCR    = flag.Bool("ocr", false, "enable tesseract OCR fallback for scanned PDFs")
		toPostgres = flag.Bool("postgres", false, "also insert passages into Postgres (pgvector)")
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, using environment variables")
	}

	if *corpusDir == "" {
		logrus.Fatal("-corpus is required")
	}
	var cat models.DocumentCategory
	switch *category {
	case "act":
		cat = models.CategoryAct
	case "judgment":
		cat = models.CategoryJudgment
	default:
		logrus.Fatalf("unknown category %q (want act or judgment)", *category)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load config")
	}
	indexPrefix := *prefix
	if indexPrefix == "" {
		indexPrefix = cfg.IndexPrefixes.Acts
		if cat == models.CategoryJudgment {
			indexPrefix = cfg.IndexPrefixes.Judgments
		}
	}

	ctx := context.Background()

	var loaderOpts []corpus.LoaderOption
	if *withOCR {
		loaderOpts = append(loaderOpts, corpus.WithOCR(corpus.NewTesseractOCR(144, "eng")))
	}
	loader := corpus.NewLoader(loaderOpts...)

	docs, err := loader.LoadDirectory(ctx, *corpusDir, cat)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load corpus")
	}

	chunker := corpus.NewChunker(cfg.Chunker.TargetSize, cfg.Chunker.Overlap)
	passages := chunker.ChunkDocuments(docs)
	logrus.WithFields(logrus.Fields{
		"documents": len(docs),
		"passages":  len(passages),
		"category":  cat,
	}).Info("Corpus chunked")

	store, err := storage.NewStorageFromEnv()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize storage")
	}
	embedder := vectorstore.NewGeminiEmbedder(os.Getenv("GEMINI_API_KEY"))

	index, err := vectorstore.Build(ctx, store, embedder, passages, vectorstore.BuildOptions{
		Prefix:          indexPrefix,
		BatchSize:       *batchSize,
		CheckpointEvery: *checkpoint,
	})
	if err != nil {
		logrus.WithError(err).Fatal("Index build failed")
	}
	logrus.WithFields(logrus.Fields{
		"passages": index.Len(),
		"prefix":   indexPrefix,
	}).Info("Index built and persisted")

	if *toPostgres {
		if err := mirrorToPostgres(ctx, embedder, cat, passages); err != nil {
			logrus.WithError(err).Fatal("Postgres mirror failed")
		}
	}
}

// mirrorToPostgres re-embeds the passages into the pgvector table so the
// server can run with DATABASE_URL instead of flat indices.
func mirrorToPostgres(ctx context.Context, embedder vectorstore.Embedder, cat models.DocumentCategory, passages []models.Passage) error {
	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		logrus.Fatal("-postgres requires DATABASE_URL")
	}
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := repository.NewPassageRepository(pool, embedder, cat)

	const batch = 100
	for start := 0; start < len(passages); start += batch {
		end := start + batch
		if end > len(passages) {
			end = len(passages)
		}
		texts := make([]string, 0, end-start)
		for _, p := range passages[start:end] {
			texts = append(texts, p.Text)
		}
		embeddings, err := embedder.EmbedPassages(ctx, texts)
		if err != nil {
			return err
		}
		if err := repo.InsertBatch(ctx, passages[start:end], embeddings); err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"inserted": end,
			"total":    len(passages),
		}).Info("Postgres mirror progress")
	}
	return nil
}
