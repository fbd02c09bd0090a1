package mmr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/hash"

	"github.com/vybium/vybium-snippets/internal/vybium-snippets/datatype"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/memory"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/oracle/oracletest"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippet"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/utils"
)

func TestMMRSnippets(t *testing.T) {
	for _, s := range []snippet.Snippet{NumPeaks{}, LeftmostAncestor{}, RightChildAndHeight{}, CalculateNewPeaksFromAppend{}} {
		t.Run(s.Entrypoint(), func(t *testing.T) {
			oracletest.Run(t, s)
		})
	}
}

func TestLeftmostAncestor(t *testing.T) {
	tests := []struct {
		node     uint64
		ancestor uint64
		height   uint32
	}{
		{1, 1, 0},
		{2, 3, 1},
		{3, 3, 1},
		{4, 7, 2},
		{14, 15, 3},
	}

	for _, tt := range tests {
		ancestor, height, err := leftmostAncestor(tt.node)
		require.NoError(t, err)
		assert.Equal(t, tt.ancestor, ancestor, "node %d", tt.node)
		assert.Equal(t, tt.height, height, "node %d", tt.node)
	}

	_, _, err := leftmostAncestor(0)
	assert.ErrorIs(t, err, ErrNodeIndex)
}

func TestRightChildAndHeight(t *testing.T) {
	tests := []struct {
		node    uint64
		isRight bool
		height  uint32
	}{
		{1, false, 0},
		{2, true, 0},
		{3, false, 1},
		{4, false, 0},
		{5, true, 0},
		{6, true, 1},
		{7, false, 2},
		{8, false, 0},
		{14, true, 2},
		{15, false, 3},
		{16, false, 0},
		{17, true, 0},
		{18, false, 1},
	}

	for _, tt := range tests {
		isRight, height, err := rightChildAndHeight(tt.node)
		require.NoError(t, err)
		assert.Equal(t, tt.isRight, isRight, "node %d", tt.node)
		assert.Equal(t, tt.height, height, "node %d", tt.node)

		outcome := oracletest.Verify(t, RightChildAndHeight{}, u64State(tt.node))
		top := outcome.Stack[len(outcome.Stack)-2:]
		assert.Equal(t, datatype.EncodeBool(tt.isRight)[0].Value(), top[0].Value(), "node %d", tt.node)
		assert.Equal(t, uint64(tt.height), top[1].Value(), "node %d", tt.node)
	}

	for _, node := range []uint64{0, 1 << 63} {
		_, _, err := rightChildAndHeight(node)
		assert.ErrorIs(t, err, ErrNodeIndex)
	}
}

func decodeList(t *testing.T, m memory.Memory, pointer uint64) []hash.Digest {
	t.Helper()
	var digests []hash.Digest
	for _, words := range memory.UnsafeList(m, pointer, datatype.Digest.Width()).Elements() {
		digest, err := datatype.DecodeDigest(words)
		require.NoError(t, err)
		digests = append(digests, digest)
	}
	return digests
}

// TestAppendMatchesNativePeaks tests the machine result against AppendPeaks
func TestAppendMatchesNativePeaks(t *testing.T) {
	rng := utils.NewPrng("append peaks")
	for _, count := range []uint64{0, 1, 2, 3, 6, 7, 1<<32 - 1} {
		state := appendState(rng, count)

		stack := state.Stack
		leaf, err := datatype.DecodeDigest(stack[len(stack)-5:])
		require.NoError(t, err)
		pointer := stack[len(stack)-6].Value()
		oldPeaks := decodeList(t, state.Memory, pointer)

		outcome := oracletest.Verify(t, CalculateNewPeaksFromAppend{}, state)
		authPointer := outcome.Stack[len(outcome.Stack)-1].Value()
		assert.Equal(t, pointer, outcome.Stack[len(outcome.Stack)-2].Value())

		wantPeaks, wantPath := AppendPeaks(count, oldPeaks, leaf)
		assert.Equal(t, wantPeaks, decodeList(t, outcome.Memory, pointer), "count %d", count)
		assert.Equal(t, wantPath, decodeList(t, outcome.Memory, authPointer), "count %d", count)
	}
}

// TestAuthPathIsStatic tests that every call returns the same authentication path buffer
func TestAuthPathIsStatic(t *testing.T) {
	rng := utils.NewPrng("static auth path")
	first := oracletest.Verify(t, CalculateNewPeaksFromAppend{}, appendState(rng, 1))
	second := oracletest.Verify(t, CalculateNewPeaksFromAppend{}, appendState(rng, 3))

	assert.Equal(t, first.Stack[len(first.Stack)-1], second.Stack[len(second.Stack)-1])
	assert.Equal(t, memory.FirstDynamicAddress, first.Stack[len(first.Stack)-1].Value())
}
