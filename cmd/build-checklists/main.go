package main

import (
	"context"
	"flag"
	"os"

	"jurisdraft-backend/checklist"
	"jurisdraft-backend/config"
	"jurisdraft-backend/storage"
	"jurisdraft-backend/vectorstore"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	var (
		blueprintPath = flag.String("blueprints", "data/checklist_blueprints.yaml", "blueprint YAML file")
		outputPath    = flag.String("out", "data/all_document_checklists.json", "output checklist JSON file")
		evidence      = flag.Int("evidence", 3, "evidence passages per checklist item")
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, using environment variables")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load config")
	}

	blueprints, err := checklist.LoadBlueprints(*blueprintPath)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load blueprints")
	}

	store, err := storage.NewStorageFromEnv()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize storage")
	}
	embedder := vectorstore.NewGeminiEmbedder(os.Getenv("GEMINI_API_KEY"))

	ctx := context.Background()
	actsIndex, err := vectorstore.Load(ctx, store, embedder, cfg.IndexPrefixes.Acts)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load acts index")
	}
	judgmentsIndex, err := vectorstore.Load(ctx, store, embedder, cfg.IndexPrefixes.Judgments)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load judgments index")
	}

	// Statute-heavy weighting: checklist evidence should cite acts first.
	retriever, err := vectorstore.NewEnsemble(
		vectorstore.Source{Name: "acts", Retriever: actsIndex, Weight: 0.7},
		vectorstore.Source{Name: "judgments", Retriever: judgmentsIndex, Weight: 0.3},
	)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to build retriever")
	}

	checklists, err := checklist.BuildChecklists(ctx, blueprints, retriever, checklist.BuilderOptions{
		EvidencePerItem: *evidence,
	})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to build checklists")
	}

	if err := checklist.WriteChecklists(*outputPath, checklists); err != nil {
		logrus.WithError(err).Fatal("Failed to write checklists")
	}
	logrus.WithFields(logrus.Fields{
		"document_types": len(checklists),
		"output":         *outputPath,
	}).Info("Checklists written")
}
