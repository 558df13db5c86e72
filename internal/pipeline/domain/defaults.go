package domain

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type seedFile struct {
	Stages []seedStage `yaml:"stages"`
}

type seedStage struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Category    Category `yaml:"category"`
	Probability int      `yaml:"probability"`
	Color       string   `yaml:"color"`
	Default     bool     `yaml:"default"`
}

// DefaultDrafts returns the seeded pipeline in order.
func DefaultDrafts() ([]Draft, error) {
	return ParseSeed(defaultsYAML)
}

// ParseSeed decodes a seed template into drafts.
func ParseSeed(data []byte) ([]Draft, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse stage seed: %w", err)
	}
	if len(file.Stages) == 0 {
		return nil, fmt.Errorf("parse stage seed: no stages defined")
	}

	drafts := make([]Draft, 0, len(file.Stages))
	for _, s := range file.Stages {
		d := Draft{
			Name:        s.Name,
			Category:    s.Category,
			Probability: s.Probability,
			Color:       s.Color,
			IsActive:    true,
			IsDefault:   s.Default,
		}
		if s.Description != "" {
			desc := s.Description
			d.Description = &desc
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}
