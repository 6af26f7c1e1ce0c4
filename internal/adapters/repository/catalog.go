package repository

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/okian/followup/internal/domain/model"
)

type catalogFile struct {
	Entities []model.CatalogEntry `yaml:"entities"`
}

// LoadCatalog reads catalog entries from a YAML file of the form
//
//	entities:
//	  - id: l1
//	    title: Fractions
//	    difficulty: beginner
func LoadCatalog(path string) ([]model.CatalogEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseCatalog(raw)
}

// ParseCatalog decodes and validates a YAML catalog document.
func ParseCatalog(raw []byte) ([]model.CatalogEntry, error) {
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalog, err)
	}
	if err := ValidateCatalog(f.Entities); err != nil {
		return nil, err
	}
	return f.Entities, nil
}

// ValidateCatalog rejects empty or duplicate ids and unknown difficulty tiers.
// An empty difficulty is allowed and scores as neutral.
func ValidateCatalog(entries []model.CatalogEntry) error {
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("%w: entry %d has no id", ErrCatalog, i)
		}
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("%w: duplicate id %q", ErrCatalog, e.ID)
		}
		seen[e.ID] = struct{}{}
		switch e.Difficulty {
		case "", model.DifficultyBeginner, model.DifficultyIntermediate, model.DifficultyAdvanced:
		default:
			return fmt.Errorf("%w: entry %q has unknown difficulty %q", ErrCatalog, e.ID, e.Difficulty)
		}
	}
	return nil
}
