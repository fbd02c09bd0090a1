package vybiumsnippets

import (
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/oracle"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippet"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/utils"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/vm"
)

// Snippet is a named code fragment with a stack contract and a reference implementation
type Snippet = snippet.Snippet

// ExecutionState is the machine state a snippet runs on
type ExecutionState = snippet.ExecutionState

// Program is a linked VM program
type Program = vm.Program

// Outcome is the final state of one VM execution, with its resource counts
type Outcome = oracle.Outcome

// BenchmarkResult is the resource usage of one benchmark run
type BenchmarkResult = oracle.BenchmarkResult

// CompiledProgram is a complete program built from snippets
type CompiledProgram = oracle.CompiledProgram

// Config controls verification and benchmarking
type Config = utils.Config

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return utils.DefaultConfig()
}

// LoadConfig reads a YAML configuration file
func LoadConfig(path string) (*Config, error) {
	cfg, err := utils.LoadConfig(path)
	if err != nil {
		return nil, newError(ErrInvalidConfig, "loading configuration", err)
	}
	return cfg, nil
}
