package main

import (
	"context"
	"os"
	"time"

	"jurisdraft-backend/checklist"
	"jurisdraft-backend/config"
	"jurisdraft-backend/handlers"
	"jurisdraft-backend/models"
	"jurisdraft-backend/repository"
	"jurisdraft-backend/service"
	"jurisdraft-backend/storage"
	"jurisdraft-backend/vectorstore"

	"github.com/gin-gonic/gin"
	"github.com/google/generative-ai-go/genai"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

func main() {
	// Try current directory first, then project root
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../../.env"); err != nil {
			logrus.Warn("No .env file found, using environment variables")
		}
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load config")
	}

	embedder := vectorstore.NewGeminiEmbedder(os.Getenv("GEMINI_API_KEY"))

	actsRetriever, judgmentsRetriever, db := initRetrievers(cfg, embedder)
	if db != nil {
		defer db.Close()
	}

	analysisEnsemble, err := vectorstore.NewEnsemble(
		vectorstore.Source{Name: "acts", Retriever: actsRetriever, Weight: cfg.Ensemble.AnalysisActsWeight},
		vectorstore.Source{Name: "judgments", Retriever: judgmentsRetriever, Weight: cfg.Ensemble.AnalysisJudgmentsWeight},
	)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to build analysis ensemble")
	}
	generationEnsemble, err := vectorstore.NewEnsemble(
		vectorstore.Source{Name: "acts", Retriever: actsRetriever, Weight: cfg.Ensemble.GenerationActsWeight},
		vectorstore.Source{Name: "judgments", Retriever: judgmentsRetriever, Weight: cfg.Ensemble.GenerationJudgmentsWeight},
	)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to build generation ensemble")
	}

	registry, err := checklist.LoadRegistry(cfg.ChecklistPath)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load checklist registry")
	}

	geminiClient, err := initGemini()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize Gemini")
	}
	generator := service.NewGeminiGenerator(geminiClient)

	complianceService := service.NewComplianceService(
		service.ComplianceWithRegistry(registry),
		service.ComplianceWithRetriever(analysisEnsemble),
		service.ComplianceWithGenerator(generator),
		service.ComplianceWithScoring(scoringFromConfig(cfg.Scoring)),
		service.ComplianceWithWorkers(cfg.Retrieval.Workers),
		service.ComplianceWithItemTimeout(time.Duration(cfg.Retrieval.ItemTimeout)*time.Second),
		service.ComplianceWithRetrievalK(cfg.Retrieval.TopK),
	)
	generationService := service.NewGenerationService(
		service.GenerationWithRegistry(registry),
		service.GenerationWithRetriever(generationEnsemble),
		service.GenerationWithGenerator(generator),
	)

	complianceHandler := handlers.NewComplianceHandler(complianceService)
	generationHandler := handlers.NewGenerationHandler(generationService, registry)

	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	api := r.Group("/api")
	{
		api.POST("/compliance/check", complianceHandler.CheckCompliance)
		api.POST("/documents/generate", generationHandler.GenerateDocument)
		api.GET("/documents/types", generationHandler.ListDocumentTypes)
	}

	logrus.WithField("port", cfg.Server.Port).Info("Server starting")
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		logrus.WithError(err).Fatal("Failed to start server")
	}
}

// initRetrievers wires the two corpus sources. With DATABASE_URL set the
// pgvector repository serves retrieval; otherwise the flat file indices are
// loaded through the storage backend.
func initRetrievers(cfg *config.AppConfig, embedder vectorstore.Embedder) (acts, judgments vectorstore.Retriever, db *pgxpool.Pool) {
	if connString := os.Getenv("DATABASE_URL"); connString != "" {
		pool, err := initPostgres(connString)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to initialize Postgres")
		}
		logrus.Info("Retrieval backed by Postgres (pgvector)")
		return repository.NewPassageRepository(pool, embedder, models.CategoryAct),
			repository.NewPassageRepository(pool, embedder, models.CategoryJudgment),
			pool
	}

	store, err := storage.NewStorageFromEnv()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize storage")
	}

	ctx := context.Background()
	actsIndex, err := vectorstore.Load(ctx, store, embedder, cfg.IndexPrefixes.Acts)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load acts index")
	}
	judgmentsIndex, err := vectorstore.Load(ctx, store, embedder, cfg.IndexPrefixes.Judgments)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load judgments index")
	}
	logrus.WithFields(logrus.Fields{
		"acts_passages":      actsIndex.Len(),
		"judgments_passages": judgmentsIndex.Len(),
	}).Info("Flat indices loaded")
	return actsIndex, judgmentsIndex, nil
}

func initPostgres(connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(context.Background(), connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(context.Background()); err != nil {
		return nil, err
	}
	return pool, nil
}

func initGemini() (*genai.Client, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		logrus.Warn("GEMINI_API_KEY not set")
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return client, nil
}

func scoringFromConfig(sc config.ScoringConfig) service.ScoringConfig {
	out := service.DefaultScoringConfig()
	out.LoopholeHighWeight = sc.LoopholeHighWeight
	out.LoopholeMediumWeight = sc.LoopholeMediumWeight
	out.LoopholeLowWeight = sc.LoopholeLowWeight
	out.NonCompliantWeight = sc.NonCompliantWeight
	out.PartialCompliantWeight = sc.PartialCompliantWeight
	out.MaxScore = sc.MaxScore
	out.HighRiskThreshold = sc.HighRiskThreshold
	out.MediumRiskThreshold = sc.MediumRiskThreshold
	return out
}
