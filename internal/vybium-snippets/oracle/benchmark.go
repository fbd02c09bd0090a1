package oracle

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippet"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/utils"
)

// BenchmarkCase names the input state a benchmark ran on
type BenchmarkCase string

const (
	CommonCase BenchmarkCase = "CommonCase"
	WorstCase  BenchmarkCase = "WorstCase"
)

// BenchmarkResult is the resource usage of one run. Table heights count
// coprocessor invocations: hash permutations and u32 operations.
type BenchmarkResult struct {
	Name            string        `yaml:"name"`
	Case            BenchmarkCase `yaml:"case"`
	ClockCycleCount uint64        `yaml:"clock_cycle_count"`
	HashTableHeight int           `yaml:"hash_table_height"`
	U32TableHeight  int           `yaml:"u32_table_height"`
	RAMAccesses     int           `yaml:"ram_accesses"`
}

func resultFromOutcome(name string, benchCase BenchmarkCase, outcome *Outcome) BenchmarkResult {
	return BenchmarkResult{
		Name:            name,
		Case:            benchCase,
		ClockCycleCount: outcome.Cycles,
		HashTableHeight: outcome.HashPermutations,
		U32TableHeight:  outcome.U32Operations,
		RAMAccesses:     outcome.RAMAccesses,
	}
}

// Benchmark verifies s on its common and worst case states and reports the
// resources the VM used on each
func Benchmark(s snippet.Snippet, cfg *utils.Config) ([]BenchmarkResult, error) {
	cases := []struct {
		name  BenchmarkCase
		state snippet.ExecutionState
	}{
		{CommonCase, s.CommonCaseState()},
		{WorstCase, s.WorstCaseState()},
	}

	results := make([]BenchmarkResult, 0, len(cases))
	for _, c := range cases {
		outcome, err := Verify(s, c.state, cfg)
		if err != nil {
			return nil, errors.Wrapf(err, "benchmarking %s", c.name)
		}
		results = append(results, resultFromOutcome(s.Entrypoint(), c.name, outcome))
	}
	return results, nil
}

// WriteBenchmarks persists results to dir, one YAML file per snippet name
func WriteBenchmarks(dir string, results []BenchmarkResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", dir)
	}

	byName := make(map[string][]BenchmarkResult)
	var names []string
	for _, result := range results {
		if _, ok := byName[result.Name]; !ok {
			names = append(names, result.Name)
		}
		byName[result.Name] = append(byName[result.Name], result)
	}

	for _, name := range names {
		data, err := yaml.Marshal(byName[name])
		if err != nil {
			return errors.Wrapf(err, "encoding benchmarks of %s", name)
		}

		path := filepath.Join(dir, name+".yaml")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return errors.Wrapf(err, "writing %s", path)
		}
		log.WithField("path", path).Info("wrote benchmark")
	}
	return nil
}

// ReadBenchmarks loads a file written by WriteBenchmarks
func ReadBenchmarks(path string) ([]BenchmarkResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}

	var results []BenchmarkResult
	if err := yaml.Unmarshal(data, &results); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return results, nil
}
