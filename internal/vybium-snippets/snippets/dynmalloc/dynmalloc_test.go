package dynmalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-snippets/internal/vybium-snippets/library"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/memory"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/oracle"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/oracle/oracletest"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippet"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/vm"
)

func TestDynMalloc(t *testing.T) {
	oracletest.Run(t, DynMalloc{})
}

// TestConsecutiveAllocations tests that sizes 10 then 1 are placed at 1 and 11
func TestConsecutiveAllocations(t *testing.T) {
	first := oracletest.Verify(t, DynMalloc{}, withCursor(0, 10))
	assert.Equal(t, uint64(1), first.Stack[len(first.Stack)-1].Value())

	second := snippet.WithStack(field.New(1))
	second.Memory = first.Memory
	outcome := oracletest.Verify(t, DynMalloc{}, second)
	assert.Equal(t, uint64(11), outcome.Stack[len(outcome.Stack)-1].Value())
	assert.Equal(t, uint64(12), outcome.Memory.Read(memory.DynMallocAddress).Value())
}

// TestInitializationCode tests that the emitted code seeds the allocator cell
func TestInitializationCode(t *testing.T) {
	assert.Empty(t, InitializationCode(0))

	lib := library.New()
	malloc := lib.Import(DynMalloc{})
	own := append(InitializationCode(100), vm.InstrArg(vm.Push, field.New(3)), vm.CallLabel(malloc), vm.Instr(vm.Halt))

	program, err := lib.Link(own)
	require.NoError(t, err)

	state := snippet.WithStack()
	outcome, err := oracle.Execute(program, &state, oracletest.Config().MaxCycles)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), outcome.Stack[len(outcome.Stack)-1].Value())
	assert.Equal(t, uint64(103), outcome.Memory.Read(memory.DynMallocAddress).Value())
}
