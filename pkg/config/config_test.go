package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.Processing.TopN)
	assert.Equal(t, 0.95, cfg.Encoding.CertainScale)
	assert.Equal(t, 0.01, cfg.Encoding.FallbackValue)
	assert.True(t, cfg.Encoding.IncludeCertain)
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
processing:
  topN: 3
encoding:
  includeCertain: false
output:
  dir: out
  sqlitePath: runs.db
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Processing.TopN)
	assert.False(t, cfg.Encoding.IncludeCertain)
	assert.Equal(t, "out", cfg.Output.Dir)
	assert.Equal(t, "runs.db", cfg.Output.SQLitePath)
	// untouched keys keep their defaults
	assert.Equal(t, 0.95, cfg.Encoding.CertainScale)
	assert.Equal(t, 50, cfg.Histogram.Bins)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("processing: [unclosed"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, CreateDefaultConfigFile(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestValidateAcceptsKnownFormats(t *testing.T) {
	for _, format := range []string{"png", "SVG", "pdf"} {
		cfg := DefaultConfig()
		cfg.Histogram.Format = format
		cfg.Output.LogFormat = "JSON"
		assert.NoError(t, cfg.Validate(), format)
	}
}

func TestValidate(t *testing.T) {
	tests := map[string]func(*Config){
		"workers":  func(c *Config) { c.Processing.NumWorkers = 0 },
		"topN":     func(c *Config) { c.Processing.TopN = 0 },
		"suffix":   func(c *Config) { c.Processing.FileSuffix = "" },
		"scale":    func(c *Config) { c.Encoding.CertainScale = 1.5 },
		"fallback": func(c *Config) { c.Encoding.FallbackValue = 0 },
		"bins":     func(c *Config) { c.Histogram.Bins = 0 },
		"size":     func(c *Config) { c.Histogram.WidthInches = -1 },
		"dir":      func(c *Config) { c.Output.Dir = "" },
		"format":   func(c *Config) { c.Histogram.Format = "bmp" },
		"noformat": func(c *Config) { c.Histogram.Format = "" },
		"logFmt":   func(c *Config) { c.Output.LogFormat = "xml" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}
