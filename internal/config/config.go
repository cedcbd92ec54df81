// Package config handles dwntool configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"github.com/Faultbox/dawn-toolbox/internal/logger"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all dwntool settings.
type Config struct {
	Export  ExportConfig  `yaml:"export"`
	Source  SourceConfig  `yaml:"source"`
	Logging LoggingConfig `yaml:"logging"`
}

// ExportConfig controls what is exported and how the file is written.
type ExportConfig struct {
	SelectedOnly bool   `yaml:"selected_only"` // Only export selected host objects
	Colors       bool   `yaml:"colors"`        // Include vertex colour layers
	AllowEmpty   bool   `yaml:"allow_empty"`   // Write a file even without mesh objects
	Atomic       bool   `yaml:"atomic"`        // Write through a temp file and rename
	OutputDir    string `yaml:"output_dir"`    // Empty writes next to the input
}

// SourceConfig controls how inputs are read.
type SourceConfig struct {
	GRFPaths      []string `yaml:"grf_paths"`      // Archives searched for archive-style paths
	SmoothNormals bool     `yaml:"smooth_normals"` // Smooth normals for RSM models
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			SelectedOnly: false,
			Colors:       true,
			AllowEmpty:   false,
			Atomic:       true,
		},
		Source: SourceConfig{
			GRFPaths: []string{},
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks values that the YAML decoder cannot.
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level: %v", ErrInvalidConfig, err)
	}
	for i, p := range c.Source.GRFPaths {
		if p == "" {
			return fmt.Errorf("%w: source.grf_paths[%d] is empty", ErrInvalidConfig, i)
		}
	}
	return nil
}
