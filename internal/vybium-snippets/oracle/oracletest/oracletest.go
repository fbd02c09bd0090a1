// Package oracletest drives the equivalence oracle from Go tests.
package oracletest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vybium/vybium-snippets/internal/vybium-snippets/oracle"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippet"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/utils"
)

// Config is the configuration tests verify with
func Config() *utils.Config {
	return utils.DefaultConfig().WithLogLevel("warning")
}

// Prng returns the generator tests use for s, seeded by its entrypoint
func Prng(s snippet.Snippet) *utils.Prng {
	return utils.NewPrng(Config().Seed + "/" + s.Entrypoint())
}

// Run verifies s on all its initial states, its common and worst case
// states, and checks that every crash state crashes both implementations.
func Run(t *testing.T, s snippet.Snippet) {
	t.Helper()
	cfg := Config()
	rng := Prng(s)

	states := s.InitialStates(rng)
	require.NotEmpty(t, states, "%s generates no initial states", s.Entrypoint())

	_, err := oracle.VerifyAll(context.Background(), s, states, cfg)
	require.NoError(t, err)

	_, err = oracle.Benchmark(s, cfg)
	require.NoError(t, err)

	if crasher, ok := s.(snippet.Crasher); ok {
		for i, state := range crasher.CrashStates(rng) {
			t.Run(fmt.Sprintf("crash %d", i), func(t *testing.T) {
				require.NoError(t, oracle.ExpectCrash(s, state, cfg))
			})
		}
	}
}

// Verify verifies s on a single state and returns the VM's final state
func Verify(t *testing.T, s snippet.Snippet, state snippet.ExecutionState) *oracle.Outcome {
	t.Helper()
	outcome, err := oracle.Verify(s, state, Config())
	require.NoError(t, err)
	return outcome
}
