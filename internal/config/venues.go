package config

import (
	"fmt"
	"os"
	"strings"

	"besedka/internal/models"

	"gopkg.in/yaml.v3"
)

// VenuesConfig is the root of venues.yaml.
type VenuesConfig struct {
	Venues []models.Venue `yaml:"venues"`
}

// LoadVenues loads and validates the venue list.
func LoadVenues(path string) (*VenuesConfig, error) {
	if path == "" {
		path = DefaultVenuesPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read venues config: %w", err)
	}

	var cfg VenuesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse venues config: %w", err)
	}

	seen := make(map[string]struct{})
	for i := range cfg.Venues {
		v := &cfg.Venues[i]
		v.Name = strings.TrimSpace(v.Name)
		if v.Name == "" {
			return nil, fmt.Errorf("venue #%d: name is required", i+1)
		}
		if v.ID == "" {
			v.ID = fmt.Sprintf("%d", i+1)
		}
		if v.HourlyPrice < 0 {
			return nil, fmt.Errorf("venue %s: negative price", v.Name)
		}
		if _, dup := seen[v.ID]; dup {
			return nil, fmt.Errorf("venue %s: duplicate id %s", v.Name, v.ID)
		}
		seen[v.ID] = struct{}{}
	}
	return &cfg, nil
}
