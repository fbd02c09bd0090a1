package utils

import (
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config represents the configuration for snippet verification and benchmarking
type Config struct {
	// Execution parameters
	MaxCycles uint64 `yaml:"max_cycles"` // Cycle limit per VM run

	// Verification parameters
	Workers      int    `yaml:"workers"`       // Parallel verifications
	RandomStates int    `yaml:"random_states"` // Randomized initial states per snippet
	Seed         string `yaml:"seed"`          // Seed for the state generator PRNG

	// Output
	BenchmarkDir string `yaml:"benchmark_dir"` // Directory for persisted benchmark results
	LogLevel     string `yaml:"log_level"`     // logrus level name
}

// DefaultConfig returns the configuration used by the test suite
func DefaultConfig() *Config {
	return &Config{
		MaxCycles:    1_000_000,
		Workers:      4,
		RandomStates: 10,
		Seed:         "vybium-snippets",
		BenchmarkDir: "benchmarks",
		LogLevel:     "info",
	}
}

// LoadConfig reads a YAML configuration file. Fields missing from the file
// keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	return config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.MaxCycles == 0 {
		return errors.New("max cycles must be positive")
	}

	if c.Workers <= 0 {
		return errors.New("workers must be positive")
	}

	if c.RandomStates < 0 {
		return errors.New("random states must not be negative")
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "log level")
	}

	return nil
}

// ApplyLogLevel sets the global logrus level from the configuration
func (c *Config) ApplyLogLevel() error {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return errors.Wrap(err, "log level")
	}
	log.SetLevel(level)
	return nil
}

// WithMaxCycles sets the cycle limit
func (c *Config) WithMaxCycles(cycles uint64) *Config {
	c.MaxCycles = cycles
	return c
}

// WithWorkers sets the number of parallel verifications
func (c *Config) WithWorkers(workers int) *Config {
	c.Workers = workers
	return c
}

// WithRandomStates sets the number of randomized states per snippet
func (c *Config) WithRandomStates(states int) *Config {
	c.RandomStates = states
	return c
}

// WithSeed sets the PRNG seed
func (c *Config) WithSeed(seed string) *Config {
	c.Seed = seed
	return c
}

// WithBenchmarkDir sets the benchmark output directory
func (c *Config) WithBenchmarkDir(dir string) *Config {
	c.BenchmarkDir = dir
	return c
}

// WithLogLevel sets the log level
func (c *Config) WithLogLevel(level string) *Config {
	c.LogLevel = level
	return c
}

// Clone creates a copy of the configuration
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
