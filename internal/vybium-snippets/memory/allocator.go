package memory

import (
	"github.com/pkg/errors"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-snippets/internal/vybium-snippets/utils"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/vm"
)

// DynMallocAddress is the cell holding the next free dynamic address
const DynMallocAddress uint64 = 0

// FirstDynamicAddress is handed out by the first allocation from a fresh memory
const FirstDynamicAddress uint64 = 1

var (
	// ErrAllocationTooLarge is returned for a requested size of 2^32 words or more
	ErrAllocationTooLarge = errors.New("allocation size does not fit in a u32")

	// ErrArenaExhausted is returned when the cursor would leave the u32 range
	ErrArenaExhausted = errors.New("dynamic memory exhausted")
)

// AllocatorCursor returns the address the next allocation will return
func AllocatorCursor(m Memory) field.Element {
	current := m.Read(DynMallocAddress)
	if current.IsZero() {
		return field.New(FirstDynamicAddress)
	}
	return current
}

// InitializeAllocator points the allocator cell at firstFree. Addresses below
// firstFree are left to static allocations.
func InitializeAllocator(m Memory, firstFree uint64) {
	m.Write(DynMallocAddress, field.New(firstFree))
}

// DynMalloc reserves size words and returns their base address. The cell is
// only updated on success, mirroring the machine, where a failed allocation
// aborts the whole execution.
func DynMalloc(m Memory, size field.Element) (uint64, error) {
	if !utils.IsU32(size) {
		return 0, errors.Wrapf(ErrAllocationTooLarge, "size %d", size.Value())
	}

	current := AllocatorCursor(m)
	next := current.Add(size)
	if !utils.IsU32(next) {
		return 0, errors.Wrapf(ErrArenaExhausted, "cursor %d plus size %d", current.Value(), size.Value())
	}

	m.WriteAt(field.New(DynMallocAddress), next)
	return current.Value(), nil
}

// InitializationCode emits the instructions that point the allocator cell at
// firstFree. It emits nothing for zero, since an untouched cell already
// behaves as a fresh allocator.
func InitializationCode(firstFree uint64) []vm.LabelledInstruction {
	if firstFree == 0 {
		return nil
	}
	return []vm.LabelledInstruction{
		vm.InstrArg(vm.Push, field.New(firstFree)),
		vm.InstrArg(vm.Push, field.New(DynMallocAddress)),
		vm.InstrArg(vm.WriteMem, field.One),
		vm.InstrArg(vm.Pop, field.One),
	}
}
