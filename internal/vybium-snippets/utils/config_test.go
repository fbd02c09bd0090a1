package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultConfig tests the DefaultConfig function
func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	require.NotNil(t, config)
	assert.NoError(t, config.Validate())
	assert.Positive(t, config.MaxCycles)
	assert.Positive(t, config.Workers)
}

// TestConfigValidate tests the Validate method
func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		config    *Config
		expectErr bool
	}{
		{"valid default config", DefaultConfig(), false},
		{"zero cycle limit", DefaultConfig().WithMaxCycles(0), true},
		{"no workers", DefaultConfig().WithWorkers(0), true},
		{"negative random states", DefaultConfig().WithRandomStates(-1), true},
		{"unknown log level", DefaultConfig().WithLogLevel("chatty"), true},
		{"debug log level", DefaultConfig().WithLogLevel("debug"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestConfigClone tests that a clone is independent of the original
func TestConfigClone(t *testing.T) {
	original := DefaultConfig()
	clone := original.Clone().WithSeed("other").WithBenchmarkDir("elsewhere")

	assert.Equal(t, "vybium-snippets", original.Seed)
	assert.Equal(t, "benchmarks", original.BenchmarkDir)
	assert.Equal(t, "other", clone.Seed)
}

// TestLoadConfig tests reading a YAML file over the defaults
func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 2\nseed: abc\nlog_level: debug\n"), 0o600))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2, config.Workers)
	assert.Equal(t, "abc", config.Seed)
	assert.Equal(t, DefaultConfig().MaxCycles, config.MaxCycles)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("workers: 0\n"), 0o600))
	_, err = LoadConfig(bad)
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
