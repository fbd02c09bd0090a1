package hashing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vybium/vybium-snippets/internal/vybium-snippets/datatype"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/oracle/oracletest"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippet"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/utils"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/vm"
)

func TestHashingSnippets(t *testing.T) {
	for _, s := range []snippet.Snippet{HashPair{}, InitSponge{}, AbsorbPair{}, SqueezeScalar{}} {
		t.Run(s.Entrypoint(), func(t *testing.T) {
			oracletest.Run(t, s)
		})
	}
}

// TestHashPairMatchesDigest tests that the snippet and Digest agree
func TestHashPairMatchesDigest(t *testing.T) {
	rng := utils.NewPrng("hash pair digest")
	words := rng.FieldElements(2 * vm.DigestLength)
	left, err := datatype.DecodeDigest(words[:vm.DigestLength])
	require.NoError(t, err)
	right, err := datatype.DecodeDigest(words[vm.DigestLength:])
	require.NoError(t, err)

	outcome := oracletest.Verify(t, HashPair{}, snippet.WithStack(words...))
	parent, err := datatype.DecodeDigest(outcome.Stack[len(outcome.Stack)-vm.DigestLength:])
	require.NoError(t, err)
	assert.Equal(t, Digest(left, right), parent)
}

// TestSpongeRoundTrip tests that absorbing changes what is squeezed
func TestSpongeRoundTrip(t *testing.T) {
	rng := utils.NewPrng("sponge round trip")
	fresh := oracletest.Verify(t, SqueezeScalar{}, spongeState(rng, 0))

	absorbed := AbsorbPair{}.state(rng, 0)
	afterAbsorb := oracletest.Verify(t, AbsorbPair{}, absorbed)

	next := snippet.WithStack()
	next.Sponge = afterAbsorb.Sponge
	squeezed := oracletest.Verify(t, SqueezeScalar{}, next)

	assert.False(t, fresh.Stack[len(fresh.Stack)-1].Equal(squeezed.Stack[len(squeezed.Stack)-1]))
}
