package snippet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-snippets/internal/vybium-snippets/datatype"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/library"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/vm"
)

// TestStackOperations tests push and pop against the minimum depth
func TestStackOperations(t *testing.T) {
	state := WithStack(field.New(1), field.New(2), field.New(3))
	assert.Len(t, state.Stack, vm.OpStackMinDepth+3)

	top, err := state.Pop()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), top.Value())

	words, err := state.PopN(2)
	require.NoError(t, err)
	assert.Equal(t, []field.Element{field.New(1), field.New(2)}, words)

	_, err = state.Pop()
	assert.ErrorIs(t, err, ErrStackUnderflow)
	_, err = state.PopN(1)
	assert.ErrorIs(t, err, ErrStackUnderflow)
}

// TestU64Helpers tests the u64 stack layout helpers
func TestU64Helpers(t *testing.T) {
	state := WithStack()
	state.PushU64(1<<40 + 5)

	hi, err := state.Peek(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<8), hi.Value())

	x, err := state.PopU64()
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<40+5), x)

	state.Push(field.New(1 << 32))
	_, err = state.PopU32()
	assert.Error(t, err)
}

// TestStreams tests that public and secret input are consumed in order
func TestStreams(t *testing.T) {
	state := WithStack()
	state.PublicInput = []field.Element{field.New(1), field.New(2)}
	state.SecretInput = []field.Element{field.New(9)}

	first, err := state.ReadInput(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), first[0].Value())

	clone := state.Clone()
	second, err := clone.ReadInput(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), second[0].Value())

	_, err = clone.ReadInput(1)
	assert.ErrorIs(t, err, ErrInputExhausted)

	_, err = state.Divine(2)
	assert.ErrorIs(t, err, ErrSecretExhausted)

	state.WriteOutput(field.New(4))
	assert.Len(t, state.Output, 1)
	assert.Empty(t, clone.Output)
}

// TestClone tests that clones share no mutable state
func TestClone(t *testing.T) {
	state := WithStack(field.New(1))
	state.Memory.Write(5, field.New(50))
	state.Sponge = vm.NewSponge()

	clone := state.Clone()
	clone.Push(field.New(2))
	clone.Memory.Write(5, field.New(51))
	clone.Sponge.State[0] = field.One

	assert.Len(t, state.Stack, vm.OpStackMinDepth+1)
	assert.Equal(t, uint64(50), state.Memory.Read(5).Value())
	assert.True(t, state.Sponge.State[0].IsZero())

	_, err := clone.RequireSponge()
	assert.NoError(t, err)
	empty := WithStack()
	_, err = empty.RequireSponge()
	assert.ErrorIs(t, err, ErrSpongeUninitialized)
}

// TestStaticAddress tests the lookup in the static allocation table
func TestStaticAddress(t *testing.T) {
	state := WithStack()
	state.StaticMemory = []library.StaticAllocation{
		{Owner: "a", Address: 1, Words: 3},
		{Owner: "b", Address: 4, Words: 2},
	}

	address, err := state.StaticAddress("b")
	require.NoError(t, err)
	assert.Equal(t, uint64(4), address)

	_, err = state.StaticAddress("c")
	assert.ErrorIs(t, err, ErrNoStaticMemory)
}

// TestBase tests the data part of the contract
func TestBase(t *testing.T) {
	base := Base{
		Name: "example",
		In:   []datatype.Param{datatype.NewParam("x", datatype.U64)},
		Out:  []datatype.Param{datatype.NewParam("d", datatype.Digest)},
		Diff: 3,
	}

	assert.Equal(t, "example", base.Entrypoint())
	assert.Equal(t, 3, base.StackDiff())
	assert.Empty(t, base.CrashConditions())
}
