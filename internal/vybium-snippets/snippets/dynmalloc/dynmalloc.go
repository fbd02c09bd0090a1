// Package dynmalloc provides the dynamic bump allocator as a snippet.
//
// The allocator keeps the next free address in memory cell 0. A zero cell
// means nothing was allocated yet and is read as 1, so the first allocation
// from fresh memory starts at address 1. Allocations are never freed.
package dynmalloc

import (
	"fmt"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-snippets/internal/vybium-snippets/asm"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/datatype"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/library"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/memory"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippet"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/utils"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/vm"
)

// DynMalloc reserves size words: _ size -> _ *addr
type DynMalloc struct{}

func (DynMalloc) Entrypoint() string { return "vybium_dyn_malloc" }

func (DynMalloc) Inputs() []datatype.Param {
	return []datatype.Param{datatype.NewParam("size", datatype.U32)}
}

func (DynMalloc) Outputs() []datatype.Param {
	return []datatype.Param{datatype.NewParam("*addr", datatype.U32)}
}

func (DynMalloc) StackDiff() int { return 0 }

func (DynMalloc) CrashConditions() []string {
	return []string{
		"size is not a u32",
		"allocator cursor would reach 2^32",
	}
}

func (d DynMalloc) Code(*library.Library) []vm.LabelledInstruction {
	return asm.MustParse(fmt.Sprintf(`
	%[1]s:
		// _ size
		push %[2]d read_mem 1 pop 1
		// _ size cursor, where 0 stands for the first dynamic address
		dup 0 push 0 eq skiz addi %[3]d

		dup 1 split pop 1 push 0 eq assert

		// _ cursor next
		dup 0 pick 2 add
		dup 0 split pop 1 push 0 eq assert

		push %[2]d write_mem 1 pop 1
		return
	`, d.Entrypoint(), memory.DynMallocAddress, memory.FirstDynamicAddress))
}

func (DynMalloc) Reference(state *snippet.ExecutionState) error {
	size, err := state.Pop()
	if err != nil {
		return err
	}
	address, err := memory.DynMalloc(state.Memory, size)
	if err != nil {
		return err
	}
	state.Push(field.New(address))
	return nil
}

// withCursor returns a state requesting size words from an allocator at cursor
func withCursor(cursor uint64, size uint64) snippet.ExecutionState {
	state := snippet.WithStack(field.New(size))
	if cursor != 0 {
		memory.InitializeAllocator(state.Memory, cursor)
	}
	return state
}

func (DynMalloc) InitialStates(rng *utils.Prng) []snippet.ExecutionState {
	states := []snippet.ExecutionState{
		withCursor(0, 0),
		withCursor(0, 10),
		withCursor(11, 1),
		withCursor(5, utils.U32Limit-6),
	}
	for i := 0; i < 10; i++ {
		cursor := uint64(rng.Uint32() >> 1)
		size := uint64(rng.Uint32() >> 1)
		states = append(states, withCursor(cursor, size))
	}
	return states
}

func (DynMalloc) CommonCaseState() snippet.ExecutionState { return withCursor(0, 8) }

func (DynMalloc) WorstCaseState() snippet.ExecutionState { return withCursor(1<<20, 1<<20) }

func (DynMalloc) CrashStates(*utils.Prng) []snippet.ExecutionState {
	return []snippet.ExecutionState{
		withCursor(0, utils.U32Limit),
		withCursor(5, utils.U32Limit-5),
		withCursor(0, field.P-1),
	}
}

// InitializationCode points the allocator at firstFree, reserving every
// address below it. It emits nothing for zero, since an untouched cell already
// behaves as a fresh allocator.
func InitializationCode(firstFree uint32) []vm.LabelledInstruction {
	return memory.InitializationCode(uint64(firstFree))
}
