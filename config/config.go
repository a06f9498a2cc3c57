// Package config - YAML configuration of an evaluation run.
package config

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/bbox-eval/annotation"
	"github.com/nvr-ai/bbox-eval/evaluation"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config describes one evaluation run.
type Config struct {
	// GroundTruthDir holds the reference annotation files.
	GroundTruthDir string `yaml:"ground_truth_dir"`
	// ResultsDir holds the predicted annotation files.
	ResultsDir string `yaml:"results_dir"`
	// MatchPolicy is "intersection" or "legacy-truncate".
	MatchPolicy string `yaml:"match_policy"`
	// LoadPolicy is "abort" or "skip".
	LoadPolicy string `yaml:"load_policy"`
	// Workers scores pairs concurrently when greater than 1.
	Workers int `yaml:"workers"`
	// Log configures the process logger.
	Log LogConfig `yaml:"log"`
	// Overlay configures rendering of annotated images.
	Overlay OverlayConfig `yaml:"overlay"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// OverlayConfig configures overlay rendering.
type OverlayConfig struct {
	ImagesDir string `yaml:"images_dir"`
	OutputDir string `yaml:"output_dir"`
	MaxWidth  int    `yaml:"max_width"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		MatchPolicy: string(evaluation.PolicyIntersection),
		LoadPolicy:  string(annotation.LoadAbort),
		Workers:     1,
		Log: LogConfig{
			Level: "info",
		},
		Overlay: OverlayConfig{
			OutputDir: "overlays",
		},
	}
}

// Load reads the YAML file at path on top of Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

// Validate checks the values needed by an evaluation.
func (c *Config) Validate() error {
	if c.GroundTruthDir == "" {
		return errors.Wrap(ErrInvalidConfig, "ground_truth_dir is required")
	}
	if c.ResultsDir == "" {
		return errors.Wrap(ErrInvalidConfig, "results_dir is required")
	}
	if _, err := c.Match(); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	if _, err := c.Loading(); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	if c.Workers < 0 {
		return errors.Wrapf(ErrInvalidConfig, "workers must not be negative, got %d", c.Workers)
	}
	if c.Overlay.MaxWidth < 0 {
		return errors.Wrapf(ErrInvalidConfig, "overlay.max_width must not be negative, got %d", c.Overlay.MaxWidth)
	}
	return nil
}

// Match returns the parsed match policy.
func (c *Config) Match() (evaluation.MatchPolicy, error) {
	return evaluation.ParseMatchPolicy(c.MatchPolicy)
}

// Loading returns the parsed load policy.
func (c *Config) Loading() (annotation.LoadPolicy, error) {
	return annotation.ParseLoadPolicy(c.LoadPolicy)
}
