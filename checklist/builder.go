package checklist

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"jurisdraft-backend/models"
	"jurisdraft-backend/vectorstore"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// BlueprintItem is one checklist entry before evidence is attached.
type BlueprintItem struct {
	Topic       string `yaml:"topic"`
	Description string `yaml:"description"`
	RiskLevel   string `yaml:"risk_level"`
	Query       string `yaml:"query"`
}

// Blueprint describes how to assemble the checklist for one document type.
type Blueprint struct {
	DisplayName   string          `yaml:"display_name"`
	GoverningActs []string        `yaml:"governing_acts"`
	Items         []BlueprintItem `yaml:"items"`
}

// BuilderOptions tunes evidence attachment.
type BuilderOptions struct {
	// EvidencePerItem is how many retrieved passages to attach per item.
	EvidencePerItem int
	// MaxEvidenceChars truncates each attached excerpt.
	MaxEvidenceChars int
}

func (o *BuilderOptions) withDefaults() {
	if o.EvidencePerItem <= 0 {
		o.EvidencePerItem = 3
	}
	if o.MaxEvidenceChars <= 0 {
		o.MaxEvidenceChars = 500
	}
}

// LoadBlueprints reads the blueprint YAML: doc-type key → blueprint.
func LoadBlueprints(path string) (map[string]Blueprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read blueprint file: %w", err)
	}
	var blueprints map[string]Blueprint
	if err := yaml.Unmarshal(data, &blueprints); err != nil {
		return nil, fmt.Errorf("failed to parse blueprint YAML: %w", err)
	}
	return blueprints, nil
}

// BuildChecklists runs retrieval once per blueprint item and attaches the top
// passages as supporting evidence. Items whose retrieval fails keep an empty
// evidence list rather than aborting the whole batch.
func BuildChecklists(ctx context.Context, blueprints map[string]Blueprint, retriever vectorstore.Retriever, opts BuilderOptions) (map[string]models.DocumentChecklist, error) {
	opts.withDefaults()

	checklists := make(map[string]models.DocumentChecklist, len(blueprints))
	for key, bp := range blueprints {
		items := make([]models.ChecklistItem, 0, len(bp.Items))
		for _, bi := range bp.Items {
			item := models.ChecklistItem{
				Topic:       bi.Topic,
				Description: bi.Description,
				RiskLevel:   models.RiskLevel(bi.RiskLevel),
			}

			query := bi.Query
			if query == "" {
				query = bi.Topic + " " + bi.Description
			}
			passages, err := retriever.Retrieve(ctx, query, opts.EvidencePerItem)
			if err != nil {
				logrus.WithError(err).WithFields(logrus.Fields{
					"document_type": key,
					"topic":         bi.Topic,
				}).Warn("Evidence retrieval failed, item kept without evidence")
			}
			for _, p := range passages {
				text := strings.TrimSpace(p.Text)
				if len(text) > opts.MaxEvidenceChars {
					text = text[:opts.MaxEvidenceChars]
				}
				item.SupportingEvidence = append(item.SupportingEvidence, models.EvidenceSnippet{
					DocID: fmt.Sprintf("%s#%d", p.Source, p.ChunkNumber),
					Text:  text,
				})
			}
			items = append(items, item)
		}

		checklists[NormalizeKey(key)] = models.DocumentChecklist{
			DisplayName:    bp.DisplayName,
			GoverningActs:  bp.GoverningActs,
			ChecklistItems: items,
		}
		logrus.WithFields(logrus.Fields{
			"document_type": key,
			"items":         len(items),
		}).Info("Checklist built")
	}
	return checklists, nil
}

// WriteChecklists serializes the checklists to the registry JSON file.
func WriteChecklists(path string, checklists map[string]models.DocumentChecklist) error {
	data, err := json.MarshalIndent(checklists, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize checklists: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write checklist file: %w", err)
	}
	return nil
}
