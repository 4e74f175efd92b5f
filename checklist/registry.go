package checklist

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"jurisdraft-backend/models"

	"github.com/sirupsen/logrus"
)

// ErrUnknownDocumentType is returned when no checklist exists for a key.
var ErrUnknownDocumentType = errors.New("no checklist for document type")

// Registry is the static mapping from document-type key to its checklist.
// Loaded once at startup from all_document_checklists.json and never mutated;
// safe for concurrent reads.
type Registry struct {
	checklists map[string]models.DocumentChecklist
	keys       []string // sorted, for error messages
}

// NormalizeKey converts a user-supplied document type to a registry key:
// lowercase, spaces to underscores.
func NormalizeKey(documentType string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(documentType)), " ", "_")
}

// LoadRegistry reads the checklist configuration file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checklist file: %w", err)
	}
	return ParseRegistry(data)
}

// ParseRegistry builds a registry from raw checklist JSON, normalizing keys.
func ParseRegistry(data []byte) (*Registry, error) {
	var raw map[string]models.DocumentChecklist
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse checklist JSON: %w", err)
	}

	checklists := make(map[string]models.DocumentChecklist, len(raw))
	for key, cl := range raw {
		checklists[NormalizeKey(key)] = cl
	}

	keys := make([]string, 0, len(checklists))
	for key := range checklists {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	logrus.WithField("document_types", len(keys)).Info("Checklist registry loaded")

	return &Registry{checklists: checklists, keys: keys}, nil
}

// Get looks up the checklist for a document type. Unknown keys fail with
// ErrUnknownDocumentType naming the available keys.
func (r *Registry) Get(documentType string) (models.DocumentChecklist, error) {
	key := NormalizeKey(documentType)
	cl, ok := r.checklists[key]
	if !ok {
		return models.DocumentChecklist{}, fmt.Errorf("%w: %q (available: %s)",
			ErrUnknownDocumentType, documentType, strings.Join(r.keys, ", "))
	}
	return cl, nil
}

// Keys returns the sorted document-type keys.
func (r *Registry) Keys() []string {
	keys := make([]string, len(r.keys))
	copy(keys, r.keys)
	return keys
}
