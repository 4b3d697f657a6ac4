// Package config loads and validates the application configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/voceware/livetranslate/pkg/core/duplex"
)

// Config is the complete application configuration.
type Config struct {
	Cloud      CloudConfig      `yaml:"cloud"`
	Recognizer RecognizerConfig `yaml:"recognizer"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// CloudConfig configures the duplex speech session and the translation
// endpoint. The API key usually comes from the environment rather than
// the file.
type CloudConfig struct {
	APIKey           string `yaml:"api_key"`
	Endpoint         string `yaml:"endpoint"`
	Model            string `yaml:"model"`
	Voice            string `yaml:"voice"`
	TranslationModel string `yaml:"translation_model"`
}

// RecognizerConfig configures the local streaming speech recognizer.
// An empty endpoint disables local recognition; microphone translate
// sessions then fall back to cloud streaming.
type RecognizerConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
}

// MetricsConfig configures the optional metrics listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration that works with only an API key from
// the environment.
func Default() *Config {
	return &Config{
		Cloud: CloudConfig{
			Model:            duplex.DefaultModel,
			Voice:            duplex.DefaultVoice,
			TranslationModel: "gemini-2.0-flash",
		},
		Metrics: MetricsConfig{Address: "localhost:9090"},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads and validates the configuration file. Missing fields keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if err := c.Cloud.Validate(); err != nil {
		return fmt.Errorf("cloud config: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

func (c *CloudConfig) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if c.TranslationModel == "" {
		return fmt.Errorf("translation_model cannot be empty")
	}
	return nil
}

func (m *MetricsConfig) Validate() error {
	if m.Enabled && m.Address == "" {
		return fmt.Errorf("address cannot be empty when metrics are enabled")
	}
	return nil
}

func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got %q", l.Format)
	}
	return nil
}
