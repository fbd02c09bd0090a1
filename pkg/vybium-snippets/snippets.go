package vybiumsnippets

import (
	"context"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-snippets/internal/vybium-snippets/oracle"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippet"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippets"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/utils"
)

// Catalog returns every snippet the library ships, sorted by entrypoint
func Catalog() []Snippet {
	return snippets.All()
}

// Lookup finds a catalog snippet by entrypoint
func Lookup(entrypoint string) (Snippet, error) {
	s, ok := snippets.Lookup(entrypoint)
	if !ok {
		return nil, newError(ErrUnknownSnippet, "no snippet named "+entrypoint, nil)
	}
	return s, nil
}

// Link links s into a program that calls its entrypoint and halts
func Link(s Snippet) (*Program, error) {
	linked, err := oracle.Link(s, 0)
	if err != nil {
		return nil, newError(ErrLink, "linking "+s.Entrypoint(), err)
	}
	return linked.Program, nil
}

func prepare(cfg *Config) (*Config, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, newError(ErrInvalidConfig, "invalid configuration", err)
	}
	if err := cfg.ApplyLogLevel(); err != nil {
		return nil, newError(ErrInvalidConfig, "invalid log level", err)
	}
	return cfg, nil
}

// Verify checks s on all its initial states and checks that its crash states
// crash both implementations. A nil cfg uses DefaultConfig.
func Verify(ctx context.Context, s Snippet, cfg *Config) error {
	cfg, err := prepare(cfg)
	if err != nil {
		return err
	}
	rng := utils.NewPrng(cfg.Seed + "/" + s.Entrypoint())

	if _, err := oracle.VerifyAll(ctx, s, s.InitialStates(rng), cfg); err != nil {
		return newError(ErrVerification, "verifying "+s.Entrypoint(), err)
	}

	if crasher, ok := s.(snippet.Crasher); ok {
		for _, state := range crasher.CrashStates(rng) {
			if err := oracle.ExpectCrash(s, state, cfg); err != nil {
				return newError(ErrVerification, "crash state of "+s.Entrypoint(), err)
			}
		}
	}
	return nil
}

// VerifyState checks s on one initial state and returns the VM's final state
func VerifyState(s Snippet, state ExecutionState, cfg *Config) (*Outcome, error) {
	cfg, err := prepare(cfg)
	if err != nil {
		return nil, err
	}
	outcome, err := oracle.Verify(s, state, cfg)
	if err != nil {
		return nil, newError(ErrVerification, "verifying "+s.Entrypoint(), err)
	}
	return outcome, nil
}

// VerifyProgram checks that p's VM output equals its reference output
func VerifyProgram(p CompiledProgram, publicInput, secretInput []field.Element, cfg *Config) (*Outcome, error) {
	cfg, err := prepare(cfg)
	if err != nil {
		return nil, err
	}
	outcome, err := oracle.VerifyProgram(p, publicInput, secretInput, cfg)
	if err != nil {
		return nil, newError(ErrVerification, "verifying "+p.Name(), err)
	}
	return outcome, nil
}

// Benchmark measures s on its common and worst case states
func Benchmark(s Snippet, cfg *Config) ([]BenchmarkResult, error) {
	cfg, err := prepare(cfg)
	if err != nil {
		return nil, err
	}
	results, err := oracle.Benchmark(s, cfg)
	if err != nil {
		return nil, newError(ErrBenchmark, "benchmarking "+s.Entrypoint(), err)
	}
	return results, nil
}

// BenchmarkAll benchmarks every given snippet and persists the results to
// cfg.BenchmarkDir. An empty list benchmarks the whole catalog.
func BenchmarkAll(ctx context.Context, cfg *Config, list ...Snippet) ([]BenchmarkResult, error) {
	cfg, err := prepare(cfg)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		list = Catalog()
	}

	var results []BenchmarkResult
	for _, s := range list {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := Benchmark(s, cfg)
		if err != nil {
			return nil, err
		}
		results = append(results, r...)
	}

	if err := oracle.WriteBenchmarks(cfg.BenchmarkDir, results); err != nil {
		return nil, newError(ErrBenchmark, "writing benchmarks", err)
	}
	return results, nil
}

// ReadBenchmarks loads the results persisted for one snippet
func ReadBenchmarks(path string) ([]BenchmarkResult, error) {
	results, err := oracle.ReadBenchmarks(path)
	if err != nil {
		return nil, newError(ErrBenchmark, "reading benchmarks", err)
	}
	return results, nil
}
