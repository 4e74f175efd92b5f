package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ChunkerConfig configures how corpus documents are split into passages.
type ChunkerConfig struct {
	TargetSize int `yaml:"target_size"`
	Overlap    int `yaml:"overlap"`
}

// EnsembleConfig holds the retrieval weights for the two corpus sources.
// Analysis favors judgments; generation favors statute text.
type EnsembleConfig struct {
	AnalysisActsWeight        float64 `yaml:"analysis_acts_weight"`
	AnalysisJudgmentsWeight   float64 `yaml:"analysis_judgments_weight"`
	GenerationActsWeight      float64 `yaml:"generation_acts_weight"`
	GenerationJudgmentsWeight float64 `yaml:"generation_judgments_weight"`
}

// ScoringConfig mirrors the risk-scoring policy so deployments can tune it.
type ScoringConfig struct {
	LoopholeHighWeight     float64 `yaml:"loophole_high_weight"`
	LoopholeMediumWeight   float64 `yaml:"loophole_medium_weight"`
	LoopholeLowWeight      float64 `yaml:"loophole_low_weight"`
	NonCompliantWeight     float64 `yaml:"non_compliant_weight"`
	PartialCompliantWeight float64 `yaml:"partial_compliant_weight"`
	MaxScore               float64 `yaml:"max_score"`
	HighRiskThreshold      float64 `yaml:"high_risk_threshold"`
	MediumRiskThreshold    float64 `yaml:"medium_risk_threshold"`
}

// RetrievalConfig bounds per-call retrieval.
type RetrievalConfig struct {
	TopK        int `yaml:"top_k"`
	Workers     int `yaml:"workers"`
	ItemTimeout int `yaml:"item_timeout_secs"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server        ServerConfig    `yaml:"server"`
	Chunker       ChunkerConfig   `yaml:"chunker"`
	Ensemble      EnsembleConfig  `yaml:"ensemble"`
	Scoring       ScoringConfig   `yaml:"scoring"`
	Retrieval     RetrievalConfig `yaml:"retrieval"`
	ChecklistPath string          `yaml:"checklist_path"`
	IndexPrefixes struct {
		Acts      string `yaml:"acts"`
		Judgments string `yaml:"judgments"`
	} `yaml:"index_prefixes"`
}

// Load reads a config from the given path. A missing file is not an error;
// defaults are returned so the service starts with env-only configuration.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Chunker.TargetSize == 0 {
		cfg.Chunker.TargetSize = 1000
	}
	if cfg.Chunker.Overlap == 0 {
		cfg.Chunker.Overlap = 150
	}
	if cfg.Ensemble.AnalysisActsWeight == 0 && cfg.Ensemble.AnalysisJudgmentsWeight == 0 {
		cfg.Ensemble.AnalysisActsWeight = 0.4
		cfg.Ensemble.AnalysisJudgmentsWeight = 0.6
	}
	if cfg.Ensemble.GenerationActsWeight == 0 && cfg.Ensemble.GenerationJudgmentsWeight == 0 {
		cfg.Ensemble.GenerationActsWeight = 0.6
		cfg.Ensemble.GenerationJudgmentsWeight = 0.4
	}
	if cfg.Scoring.MaxScore == 0 {
		cfg.Scoring = ScoringConfig{
			LoopholeHighWeight:     2.5,
			LoopholeMediumWeight:   1.5,
			LoopholeLowWeight:      1.0,
			NonCompliantWeight:     2.0,
			PartialCompliantWeight: 1.0,
			MaxScore:               10.0,
			HighRiskThreshold:      7.0,
			MediumRiskThreshold:    4.0,
		}
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.Workers == 0 {
		cfg.Retrieval.Workers = 4
	}
	if cfg.Retrieval.ItemTimeout == 0 {
		cfg.Retrieval.ItemTimeout = 60
	}
	if cfg.ChecklistPath == "" {
		cfg.ChecklistPath = "data/all_document_checklists.json"
	}
	if cfg.IndexPrefixes.Acts == "" {
		cfg.IndexPrefixes.Acts = "indices/acts"
	}
	if cfg.IndexPrefixes.Judgments == "" {
		cfg.IndexPrefixes.Judgments = "indices/judgments"
	}
}

// applyEnvOverrides lets deployment env vars win over file values.
func applyEnvOverrides(cfg *AppConfig) {
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Port = port
	}
	if path := os.Getenv("CHECKLIST_PATH"); path != "" {
		cfg.ChecklistPath = path
	}
	if v := os.Getenv("RETRIEVAL_TOP_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			cfg.Retrieval.TopK = k
		}
	}
	if v := os.Getenv("RETRIEVAL_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Retrieval.Workers = n
		}
	}
}
