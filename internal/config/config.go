// Package config loads the explorer's YAML configuration and builds the
// process logger from it.
package config

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// StoreConfig holds local replica storage configuration.
type StoreConfig struct {
	Path          string `yaml:"path"`
	SimilarityDir string `yaml:"similarity_dir"`
}

// SyncConfig holds sync worker configuration.
type SyncConfig struct {
	BatchSize           int           `yaml:"batch_size"`
	StaleAfter          time.Duration `yaml:"stale_after"`
	PageSize            int           `yaml:"page_size"`
	MetadataConcurrency int           `yaml:"metadata_concurrency"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Config is the complete explorer configuration.
type Config struct {
	Portals []string      `yaml:"portals"`
	Store   StoreConfig   `yaml:"store"`
	Sync    SyncConfig    `yaml:"sync"`
	Logging LoggingConfig `yaml:"logging"`
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults, so running without a config works out of the box.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// defaults only
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	setDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Store.Path == "" {
		cfg.Store.Path = "explorer.db"
	}
	if cfg.Store.SimilarityDir == "" {
		cfg.Store.SimilarityDir = "."
	}
	if cfg.Sync.BatchSize == 0 {
		cfg.Sync.BatchSize = 500
	}
	if cfg.Sync.StaleAfter == 0 {
		cfg.Sync.StaleAfter = 24 * time.Hour
	}
	if cfg.Sync.PageSize == 0 {
		cfg.Sync.PageSize = 1000
	}
	if cfg.Sync.MetadataConcurrency == 0 {
		cfg.Sync.MetadataConcurrency = 8
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if c.Sync.BatchSize < 1 {
		return fmt.Errorf("sync.batch_size must be positive")
	}
	if c.Sync.StaleAfter < 0 {
		return fmt.Errorf("sync.stale_after must not be negative")
	}
	if _, err := zap.ParseAtomicLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// BuildLogger constructs the process logger from the logging section.
func (c *Config) BuildLogger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Logging.Development {
		zc = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = level

	return zc.Build()
}
