// SPDX-License-Identifier: MIT

// Package config loads tool configuration from defaults, an optional YAML
// file, and VS_* environment overrides, in that precedence order.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the runtime configuration for the staging pipeline and CLI.
type Config struct {
	// StagingDir is the local scratch directory buffering files between
	// remote download and remote upload.
	StagingDir string `yaml:"stagingDir"`

	// MaxBufferSize is the maximum number of files held in LOCAL state
	// before the download stage pauses.
	MaxBufferSize int `yaml:"maxBufferSize"`

	// MaxStagingGB caps staging-directory usage in gigabytes. Zero disables
	// the quota check.
	MaxStagingGB float64 `yaml:"maxStagingGB"`

	// ReplaceOriginal controls whether uploads overwrite the source file
	// (with the output extension) instead of writing a suffixed sibling.
	ReplaceOriginal bool `yaml:"replaceOriginal"`

	// OutputExt is the container extension for encoded outputs.
	OutputExt string `yaml:"outputExt"`

	// Recursive controls whether library discovery descends into
	// subdirectories.
	Recursive bool `yaml:"recursive"`

	// LogLevel sets the zerolog level ("debug", "info", "warn", "error").
	LogLevel string `yaml:"logLevel"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		StagingDir:    filepath.Join(os.TempDir(), "videosentinel"),
		MaxBufferSize: 4,
		OutputExt:     ".mp4",
		LogLevel:      "info",
	}
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (if non-empty), then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c Config) Validate() error {
	if c.StagingDir == "" {
		return fmt.Errorf("config: stagingDir must not be empty")
	}
	if c.MaxBufferSize < 1 {
		return fmt.Errorf("config: maxBufferSize must be >= 1, got %d", c.MaxBufferSize)
	}
	if c.MaxStagingGB < 0 {
		return fmt.Errorf("config: maxStagingGB must not be negative, got %g", c.MaxStagingGB)
	}
	if c.OutputExt == "" || c.OutputExt[0] != '.' {
		return fmt.Errorf("config: outputExt must start with a dot, got %q", c.OutputExt)
	}
	return nil
}

// MaxStagingBytes converts the gigabyte quota to bytes. Zero means no quota.
func (c Config) MaxStagingBytes() int64 {
	return int64(c.MaxStagingGB * float64(1<<30))
}
