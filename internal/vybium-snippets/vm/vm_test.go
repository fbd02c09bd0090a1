package vm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/hash"

	"github.com/vybium/vybium-snippets/internal/vybium-snippets/asm"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/vm"
)

func words(values ...uint64) []field.Element {
	result := make([]field.Element, len(values))
	for i, v := range values {
		result[i] = field.New(v)
	}
	return result
}

// load links source and prepares a machine whose stack holds the given
// words above the 16 initial ones
func load(t *testing.T, source string, above []field.Element, publicInput, secretInput []field.Element) *vm.VMState {
	t.Helper()
	program, err := vm.Link(asm.MustParse(source))
	require.NoError(t, err)

	state := vm.NewVMState(program, publicInput, secretInput)
	require.NoError(t, state.LoadStack(append(make([]field.Element, vm.OpStackMinDepth), above...)))
	return state
}

// top returns the n topmost words, top first
func top(state *vm.VMState, n int) []uint64 {
	result := make([]uint64, n)
	for i := 0; i < n; i++ {
		value, _ := state.StackPeek(i)
		result[i] = value.Value()
	}
	return result
}

// TestNewVMState tests the initial stack layout
func TestNewVMState(t *testing.T) {
	program, err := vm.Link(asm.MustParse("halt"))
	require.NoError(t, err)

	state := vm.NewVMState(program, nil, nil)
	require.Equal(t, vm.OpStackMinDepth, state.StackDepth())

	digest := vm.ProgramDigest(program)
	for i := 0; i < vm.DigestLength; i++ {
		assert.True(t, state.Stack[i].Equal(digest[vm.DigestLength-1-i]), "digest word %d", i)
	}
	assert.Empty(t, state.PublicOutput)

	// LoadStack keeps the digest prefix
	require.NoError(t, state.LoadStack(words(9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 42)))
	assert.True(t, state.Stack[0].Equal(digest[vm.DigestLength-1]))
	assert.Equal(t, uint64(9), state.Stack[vm.DigestLength].Value())
	assert.Equal(t, 17, state.StackDepth())

	assert.Error(t, state.LoadStack(words(1, 2, 3)))
}

// TestStackManipulation tests push, pop, dup, swap, pick and place
func TestStackManipulation(t *testing.T) {
	tests := []struct {
		name   string
		source string
		above  []uint64
		want   []uint64 // top first
	}{
		{"push", "push 42 halt", nil, []uint64{42}},
		{"push negative", "push -1 halt", nil, []uint64{field.P - 1}},
		{"pop", "push 1 push 2 push 3 pop 2 halt", nil, []uint64{1}},
		{"dup", "dup 1 halt", []uint64{7, 8}, []uint64{7, 8, 7}},
		{"swap", "swap 2 halt", []uint64{1, 2, 3}, []uint64{1, 2, 3}},
		{"pick", "pick 2 halt", []uint64{1, 2, 3}, []uint64{1, 3, 2}},
		{"place", "place 2 halt", []uint64{1, 2, 3}, []uint64{2, 1, 3}},
		{"place zero", "place 0 halt", []uint64{1, 2}, []uint64{2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := load(t, tt.source, words(tt.above...), nil, nil)
			require.NoError(t, state.Run())
			assert.Equal(t, tt.want, top(state, len(tt.want)))
		})
	}
}

// TestStackUnderflow tests that the stack never shrinks below 16 words
func TestStackUnderflow(t *testing.T) {
	state := load(t, "pop 1 halt", nil, nil, nil)
	err := state.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "underflow")
}

// TestControlFlow tests call, return, skiz and recurse
func TestControlFlow(t *testing.T) {
	t.Run("call and return", func(t *testing.T) {
		source := `
			call f
			halt
		f:
			push 5
			return
		`
		state := load(t, source, nil, nil, nil)
		require.NoError(t, state.Run())
		assert.Equal(t, []uint64{5}, top(state, 1))
		assert.Empty(t, state.JumpStack)
	})

	t.Run("skiz skips two-word instruction", func(t *testing.T) {
		state := load(t, "push 0 skiz push 7 push 8 halt", nil, nil, nil)
		require.NoError(t, state.Run())
		assert.Equal(t, []uint64{8, 0}, top(state, 2))
	})

	t.Run("skiz executes on non-zero", func(t *testing.T) {
		state := load(t, "push 3 skiz push 7 halt", nil, nil, nil)
		require.NoError(t, state.Run())
		assert.Equal(t, []uint64{7}, top(state, 1))
	})

	t.Run("recurse counts down", func(t *testing.T) {
		source := `
			push 5
			call loop
			halt
		loop:
			dup 0 push 0 eq skiz return
			addi -1
			recurse
		`
		state := load(t, source, nil, nil, nil)
		require.NoError(t, state.Run())
		assert.Equal(t, []uint64{0}, top(state, 1))
	})

	t.Run("recurse_or_return", func(t *testing.T) {
		source := `
			call loop
			halt
		loop:
			swap 5 addi 1 swap 5
			recurse_or_return
		`
		// st5 counts up towards st6 = 3
		state := load(t, source, words(3, 0, 9, 9, 9, 9, 9), nil, nil)
		require.NoError(t, state.Run())
		assert.Equal(t, []uint64{3, 3}, top(state, 7)[5:])
	})

	t.Run("failed assert", func(t *testing.T) {
		state := load(t, "push 2 assert halt", nil, nil, nil)
		assert.Error(t, state.Run())
	})

	t.Run("cycle limit", func(t *testing.T) {
		state := load(t, "call f halt f: recurse", nil, nil, nil)
		state.MaxCycles = 100
		err := state.Run()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "maximum cycles")
	})
}

// TestMemory tests read_mem and write_mem
func TestMemory(t *testing.T) {
	t.Run("write then read", func(t *testing.T) {
		// _ v1 v0 p -> m[p] = v0, m[p+1] = v1
		state := load(t, "write_mem 2 halt", words(11, 10, 100), nil, nil)
		require.NoError(t, state.Run())
		assert.Equal(t, uint64(10), state.RAM[field.New(100)].Value())
		assert.Equal(t, uint64(11), state.RAM[field.New(101)].Value())
		assert.Equal(t, []uint64{102}, top(state, 1))
	})

	t.Run("read walks down", func(t *testing.T) {
		state := load(t, "push 101 read_mem 2 halt", nil, nil, nil)
		state.LoadRAM(map[field.Element]field.Element{field.New(100): field.New(10), field.New(101): field.New(11)})
		require.NoError(t, state.Run())
		assert.Equal(t, []uint64{99, 10, 11}, top(state, 3))
	})

	t.Run("uninitialized reads zero", func(t *testing.T) {
		state := load(t, "push 0 read_mem 1 pop 1 halt", nil, nil, nil)
		require.NoError(t, state.Run())
		assert.Equal(t, []uint64{0}, top(state, 1))
		assert.Len(t, state.RAMCalls, 1)
	})
}

// TestU32Instructions tests the u32 coprocessor instructions
func TestU32Instructions(t *testing.T) {
	tests := []struct {
		name   string
		source string
		above  []uint64
		want   []uint64
	}{
		{"split", "split halt", []uint64{0x1_0000_0002}, []uint64{2, 1}},
		{"lt true", "lt halt", []uint64{5, 3}, []uint64{1}},
		{"lt false", "lt halt", []uint64{3, 5}, []uint64{0}},
		{"and", "and halt", []uint64{12, 10}, []uint64{8}},
		{"xor", "xor halt", []uint64{12, 10}, []uint64{6}},
		{"log_2_floor", "log_2_floor halt", []uint64{1025}, []uint64{10}},
		{"pow", "pow halt", []uint64{10, 2}, []uint64{1024}},
		{"div_mod", "div_mod halt", []uint64{3, 17}, []uint64{2, 5}},
		{"pop_count", "pop_count halt", []uint64{0xFF00FF}, []uint64{16}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := load(t, tt.source, words(tt.above...), nil, nil)
			require.NoError(t, state.Run())
			assert.Equal(t, tt.want, top(state, len(tt.want)))
			assert.Positive(t, state.CoProcessorCount(vm.U32CoProcessor))
		})
	}

	t.Run("rejects non-u32 operands", func(t *testing.T) {
		state := load(t, "lt halt", words(1, 1<<32), nil, nil)
		assert.Error(t, state.Run())
	})

	t.Run("division by zero", func(t *testing.T) {
		state := load(t, "div_mod halt", words(0, 1), nil, nil)
		assert.Error(t, state.Run())
	})
}

// TestIO tests read_io, write_io and divine
func TestIO(t *testing.T) {
	state := load(t, "read_io 2 divine 1 write_io 3 halt", nil, words(1, 2), words(3))
	require.NoError(t, state.Run())

	// write_io emits the top of stack first
	require.Len(t, state.PublicOutput, 3)
	assert.Equal(t, uint64(3), state.PublicOutput[0].Value())
	assert.Equal(t, uint64(2), state.PublicOutput[1].Value())
	assert.Equal(t, uint64(1), state.PublicOutput[2].Value())

	exhausted := load(t, "read_io 1 halt", nil, nil, nil)
	assert.Error(t, exhausted.Run())
}

// TestHashAndSponge tests hash and the sponge instructions against the shared primitives
func TestHashAndSponge(t *testing.T) {
	input := words(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)

	t.Run("hash", func(t *testing.T) {
		state := load(t, "hash halt", input, nil, nil)
		require.NoError(t, state.Run())

		var in [vm.SpongeRate]field.Element
		copy(in[:], input)
		digest := vm.HashTen(in)
		for i := 0; i < vm.DigestLength; i++ {
			value, err := state.StackPeek(vm.DigestLength - 1 - i)
			require.NoError(t, err)
			assert.True(t, value.Equal(digest[i]))
		}
		assert.Equal(t, 1, state.CoProcessorCount(vm.HashCoProcessor))
	})

	t.Run("sponge", func(t *testing.T) {
		state := load(t, "sponge_init sponge_absorb sponge_squeeze halt", input, nil, nil)
		require.NoError(t, state.Run())

		var in [vm.SpongeRate]field.Element
		copy(in[:], input)
		sponge := vm.NewSponge()
		sponge.Absorb(in)
		squeezed := sponge.Squeeze()

		assert.True(t, sponge.Equal(state.Sponge))
		value, err := state.StackPeek(0)
		require.NoError(t, err)
		assert.True(t, value.Equal(squeezed[vm.SpongeRate-1]))
	})

	t.Run("absorb without init", func(t *testing.T) {
		state := load(t, "sponge_absorb halt", input, nil, nil)
		assert.Error(t, state.Run())
	})
}

// TestSpongePermutation tests that every state word is derived from the state
// before the permutation, not from words already updated
func TestSpongePermutation(t *testing.T) {
	var in [vm.SpongeRate]field.Element
	copy(in[:], words(1, 2, 3, 4, 5, 6, 7, 8, 9, 10))

	before := make([]field.Element, vm.SpongeStateSize)
	copy(before, in[:])
	for i := vm.SpongeRate; i < vm.SpongeStateSize; i++ {
		before[i] = field.Zero
	}

	sponge := vm.NewSponge()
	sponge.Absorb(in)
	for i := 0; i < vm.SpongeStateSize; i++ {
		expected := hash.PoseidonHash(append(append([]field.Element(nil), before...), field.New(uint64(i))))
		assert.True(t, sponge.State[i].Equal(expected), "state word %d", i)
	}
}

// TestExtensionField tests xx_add, xx_mul and xb_mul
func TestExtensionField(t *testing.T) {
	// X * X^2 = X^3 = X - 1
	state := load(t, "xx_mul halt", words(0, 1, 0, 1, 0, 0), nil, nil)
	require.NoError(t, state.Run())
	assert.Equal(t, []uint64{field.P - 1, 1, 0}, top(state, 3))

	state = load(t, "xx_add push 2 xb_mul halt", words(1, 2, 3, 4, 5, 6), nil, nil)
	require.NoError(t, state.Run())
	assert.Equal(t, []uint64{18, 14, 10}, top(state, 3))
}
