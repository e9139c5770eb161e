package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the YAML configuration for streamvalcat.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Decoding DecodingConfig `yaml:"decoding"`
}

// LoggingConfig controls the CLI's slog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// DecodingConfig controls decoder-side validation and limits.
type DecodingConfig struct {
	StrictValidation bool `yaml:"strict_validation"`
	MaxLineBytes     int  `yaml:"max_line_bytes"`
}

// LoadConfig reads and defaults a streamvalcat YAML config file. An empty
// path is not an error: the zero Config with defaults applied is returned,
// so the CLI runs with sane behavior when invoked without --config. A
// non-empty path that cannot be read is an error.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Decoding.MaxLineBytes <= 0 {
		cfg.Decoding.MaxLineBytes = 1 * 1024 * 1024
	}

	return &cfg, nil
}
