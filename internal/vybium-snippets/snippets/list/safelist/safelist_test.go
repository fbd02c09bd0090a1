package safelist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-snippets/internal/vybium-snippets/datatype"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/memory"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/oracle/oracletest"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippet"
)

func operations(t datatype.DataType) []snippet.Snippet {
	return []snippet.Snippet{
		New{t}, Length{t}, Capacity{t}, Push{t}, Pop{t}, Get{t}, Set{t},
	}
}

func TestSafeListSnippets(t *testing.T) {
	for _, elementType := range []datatype.DataType{datatype.BFE, datatype.U64, datatype.U128, datatype.Digest} {
		for _, s := range operations(elementType) {
			t.Run(s.Entrypoint(), func(t *testing.T) {
				oracletest.Run(t, s)
			})
		}
	}
}

// TestNewLayout tests the header New writes
func TestNewLayout(t *testing.T) {
	outcome := oracletest.Verify(t, New{datatype.U64}, capacityState(7))

	pointer := outcome.Stack[len(outcome.Stack)-1].Value()
	assert.Equal(t, memory.FirstDynamicAddress, pointer)
	assert.Equal(t, uint64(0), outcome.Memory.Read(pointer).Value())
	assert.Equal(t, uint64(7), outcome.Memory.Read(pointer+1).Value())
	assert.Equal(t, pointer+memory.SizeInWords(memory.SafeListHeader, 2, 7), outcome.Memory.Read(memory.DynMallocAddress).Value())
}

// TestGetAfterSet tests that Get returns what Set stored
func TestGetAfterSet(t *testing.T) {
	state := snippet.WithStack()
	list, err := Allocate(state.Memory, datatype.U64, 4)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		require.NoError(t, list.Push(datatype.EncodeU64(uint64(i))))
	}

	state.Push(datatype.EncodeU64(1 << 40)...)
	state.Push(field.New(list.Pointer), field.New(2))
	written := oracletest.Verify(t, Set{datatype.U64}, state)

	read := snippet.WithStack(field.New(list.Pointer), field.New(2))
	read.Memory = written.Memory
	outcome := oracletest.Verify(t, Get{datatype.U64}, read)

	value, err := datatype.DecodeU64(outcome.Stack[len(outcome.Stack)-2:])
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<40), value)
}
