// Package config provides configuration loading and management for edgeuncertainty.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumWorkers is how many cases are scored concurrently
		NumWorkers int `yaml:"numWorkers"`

		// TopN is the number of most and least difficult cases selected per metric
		TopN int `yaml:"topN"`

		// FileSuffix identifies probability volumes in the input directory
		FileSuffix string `yaml:"fileSuffix"`
	} `yaml:"processing"`

	// Encoding parameters for the derived uncertainty masks
	Encoding struct {
		// IncludeCertain paints certain foreground with a small non-zero value
		IncludeCertain bool `yaml:"includeCertain"`

		// CertainScale multiplies the smallest boundary uncertainty
		CertainScale float64 `yaml:"certainScale"`

		// FallbackValue is used for certain foreground when a case has no uncertain voxels
		FallbackValue float64 `yaml:"fallbackValue"`
	} `yaml:"encoding"`

	// Histogram rendering parameters
	Histogram struct {
		Bins         int     `yaml:"bins"`
		WidthInches  float64 `yaml:"widthInches"`
		HeightInches float64 `yaml:"heightInches"`

		// Format is the image file extension: png, svg, pdf, jpg or tif
		Format string `yaml:"format"`
	} `yaml:"histogram"`

	// Output parameters
	Output struct {
		// Dir is where tables, reports and masks are written
		Dir string `yaml:"dir"`

		// SaveHistograms renders a histogram per selected case
		SaveHistograms bool `yaml:"saveHistograms"`

		// SavePreviews writes orthogonal mid-slices of the discrete mask
		SavePreviews bool `yaml:"savePreviews"`

		// SQLitePath enables the run store when non-empty
		SQLitePath string `yaml:"sqlitePath"`

		// LogLevel is one of trace, debug, info, warn, error
		LogLevel string `yaml:"logLevel"`

		// LogFormat is colorful or json
		LogFormat string `yaml:"logFormat"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumWorkers = runtime.NumCPU()
	cfg.Processing.TopN = 10
	cfg.Processing.FileSuffix = ".nii.gz"

	cfg.Encoding.IncludeCertain = true
	cfg.Encoding.CertainScale = 0.95
	cfg.Encoding.FallbackValue = 0.01

	cfg.Histogram.Bins = 50
	cfg.Histogram.WidthInches = 8
	cfg.Histogram.HeightInches = 5
	cfg.Histogram.Format = "png"

	cfg.Output.Dir = "EdgeUncertaintyMasks"
	cfg.Output.SaveHistograms = true
	cfg.Output.SavePreviews = false
	cfg.Output.LogLevel = "info"
	cfg.Output.LogFormat = "colorful"

	return cfg
}

// histogramFormats are the image extensions plot.Save can write.
var histogramFormats = []string{"png", "svg", "pdf", "eps", "jpg", "jpeg", "tif", "tiff", "tex"}

// logFormats are the formatters internal/logging understands.
var logFormats = []string{"colorful", "json"}

// Validate reports the first out-of-range setting.
func (c *Config) Validate() error {
	switch {
	case c.Processing.NumWorkers < 1:
		return fmt.Errorf("%w: processing.numWorkers must be at least 1, got %d", ErrInvalid, c.Processing.NumWorkers)
	case c.Processing.TopN < 1:
		return fmt.Errorf("%w: processing.topN must be at least 1, got %d", ErrInvalid, c.Processing.TopN)
	case c.Processing.FileSuffix == "":
		return fmt.Errorf("%w: processing.fileSuffix is empty", ErrInvalid)
	case c.Encoding.CertainScale <= 0 || c.Encoding.CertainScale > 1:
		return fmt.Errorf("%w: encoding.certainScale must be in (0,1], got %g", ErrInvalid, c.Encoding.CertainScale)
	case c.Encoding.FallbackValue <= 0 || c.Encoding.FallbackValue > 1:
		return fmt.Errorf("%w: encoding.fallbackValue must be in (0,1], got %g", ErrInvalid, c.Encoding.FallbackValue)
	case c.Histogram.Bins < 1:
		return fmt.Errorf("%w: histogram.bins must be at least 1, got %d", ErrInvalid, c.Histogram.Bins)
	case c.Histogram.WidthInches <= 0 || c.Histogram.HeightInches <= 0:
		return fmt.Errorf("%w: histogram size must be positive", ErrInvalid)
	case !slices.Contains(histogramFormats, strings.ToLower(c.Histogram.Format)):
		return fmt.Errorf("%w: histogram.format %q is not one of %v", ErrInvalid, c.Histogram.Format, histogramFormats)
	case c.Output.Dir == "":
		return fmt.Errorf("%w: output.dir is empty", ErrInvalid)
	case !slices.Contains(logFormats, strings.ToLower(c.Output.LogFormat)):
		return fmt.Errorf("%w: output.logFormat %q is not one of %v", ErrInvalid, c.Output.LogFormat, logFormats)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
