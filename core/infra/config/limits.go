package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/blindrop/blindrop/core/infra/schema"
)

// LimitsConfig tunes what uploads may ask for. All fields are optional;
// zero values fall back to the built-in defaults downstream.
type LimitsConfig struct {
	MaxBlobBytes         int    `yaml:"max_blob_bytes" json:"max_blob_bytes,omitempty"`
	MinTTLHours          int    `yaml:"min_ttl_hours" json:"min_ttl_hours,omitempty"`
	MaxTTLHours          int    `yaml:"max_ttl_hours" json:"max_ttl_hours,omitempty"`
	DefaultTTLHours      int    `yaml:"default_ttl_hours" json:"default_ttl_hours,omitempty"`
	Currency             string `yaml:"currency" json:"currency,omitempty"`
	ProofLifetimeMinutes int    `yaml:"proof_lifetime_minutes" json:"proof_lifetime_minutes,omitempty"`
}

// LoadLimits loads a YAML limits file and validates it against the embedded
// schema. An empty path returns an empty config.
func LoadLimits(path string) (*LimitsConfig, error) {
	if path == "" {
		return &LimitsConfig{}, nil
	}
	// #nosec G304 -- limits config path is operator-provided.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read limits config: %w", err)
	}
	return ParseLimits(data)
}

// ParseLimits parses limits config data from YAML bytes.
func ParseLimits(data []byte) (*LimitsConfig, error) {
	var cfg LimitsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse limits config: %w", err)
	}
	if err := validateLimits(&cfg); err != nil {
		return nil, err
	}
	if cfg.MinTTLHours > 0 && cfg.MaxTTLHours > 0 && cfg.MinTTLHours > cfg.MaxTTLHours {
		return nil, fmt.Errorf("limits config: min_ttl_hours %d exceeds max_ttl_hours %d", cfg.MinTTLHours, cfg.MaxTTLHours)
	}
	return &cfg, nil
}

func validateLimits(cfg *LimitsConfig) error {
	schemaData, err := configSchemaFS.ReadFile(limitsSchemaFile)
	if err != nil {
		return fmt.Errorf("read embedded limits schema: %w", err)
	}
	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode limits config: %w", err)
	}
	if err := schema.ValidateSchema("limits", schemaData, json.RawMessage(payload)); err != nil {
		return fmt.Errorf("limits config: %w", err)
	}
	return nil
}
