// Package vm provides the execution engine for linked snippet programs
package vm

import (
	"fmt"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/hash"
)

const (
	// OpStackMinDepth is the number of words the operational stack never shrinks below
	OpStackMinDepth = 16

	// DigestLength is the number of words of the program digest at the bottom of the stack
	DigestLength = 5

	// DefaultMaxCycles bounds Run when no explicit limit is configured
	DefaultMaxCycles uint64 = 1_000_000
)

// VMState represents the complete state of the VM
type VMState struct {
	// Program memory (read-only)
	Program *Program

	// Public I/O
	PublicInput  []field.Element // Input stream
	PublicOutput []field.Element // Output stream
	InputPointer int             // Current position in public input

	// Nondeterminism tape
	SecretInput   []field.Element
	SecretPointer int

	// Random Access Memory
	RAM      map[field.Element]field.Element // Address -> Value
	RAMCalls []RAMCall                       // Every RAM access, in order

	// Operational stack, bottom first (st0 is the last element)
	Stack []field.Element

	// Jump Stack (for call/return)
	JumpStack []VMJumpStackEntry

	// Execution state
	CycleCount         uint64
	InstructionPointer int
	MaxCycles          uint64

	// Sponge state, nil until sponge_init
	Sponge *Sponge

	// Halting state
	Halting bool

	// Co-processor calls (recorded during execution)
	CoProcessorCalls []CoProcessorCall
}

// VMJumpStackEntry represents an entry on the jump stack
type VMJumpStackEntry struct {
	Origin      int // Return address
	Destination int // Start of the called function
}

// RAMCall represents a RAM operation
type RAMCall struct {
	Clock   uint64
	IsWrite bool
	Address field.Element
	Value   field.Element
}

// CoProcessorCall represents a call to a coprocessor
type CoProcessorCall struct {
	Type      CoProcessorType
	Operation string
}

// CoProcessorType identifies which coprocessor was called
type CoProcessorType int

const (
	HashCoProcessor CoProcessorType = iota
	U32CoProcessor
	SpongeResetCoProcessor
)

// NewVMState creates a new VM state. The stack holds 16 words, the bottom
// five of which are the program digest (TIP-0006).
func NewVMState(
	program *Program,
	publicInput []field.Element,
	secretInput []field.Element,
) *VMState {
	programDigest := ProgramDigest(program)

	stack := make([]field.Element, OpStackMinDepth)
	for i := range stack {
		stack[i] = field.Zero
	}

	// Digest goes in reverse order: st15=digest[4], ..., st11=digest[0]
	for i := 0; i < DigestLength; i++ {
		stack[i] = programDigest[DigestLength-1-i]
	}

	return &VMState{
		Program:          program,
		PublicInput:      publicInput,
		PublicOutput:     make([]field.Element, 0),
		SecretInput:      secretInput,
		RAM:              make(map[field.Element]field.Element),
		RAMCalls:         make([]RAMCall, 0),
		Stack:            stack,
		JumpStack:        make([]VMJumpStackEntry, 0),
		MaxCycles:        DefaultMaxCycles,
		CoProcessorCalls: make([]CoProcessorCall, 0),
	}
}

// LoadStack replaces the operational stack. The digest prefix is kept, so
// only words above DigestLength are taken from stack.
func (vm *VMState) LoadStack(stack []field.Element) error {
	if len(stack) < OpStackMinDepth {
		return fmt.Errorf("initial stack has %d words, need at least %d", len(stack), OpStackMinDepth)
	}

	loaded := make([]field.Element, len(stack))
	copy(loaded, stack)
	copy(loaded[:DigestLength], vm.Stack[:DigestLength])
	vm.Stack = loaded
	return nil
}

// LoadRAM copies the given words into RAM
func (vm *VMState) LoadRAM(ram map[field.Element]field.Element) {
	for address, value := range ram {
		vm.RAM[address] = value
	}
}

// Run executes the program until halt or error
func (vm *VMState) Run() error {
	for !vm.Halting {
		if err := vm.Step(); err != nil {
			return fmt.Errorf("execution failed at cycle %d, IP %d: %w",
				vm.CycleCount, vm.InstructionPointer, err)
		}

		if vm.MaxCycles > 0 && vm.CycleCount > vm.MaxCycles {
			return fmt.Errorf("execution exceeded maximum cycles (%d)", vm.MaxCycles)
		}
	}
	return nil
}

// Step executes one instruction
func (vm *VMState) Step() error {
	if vm.Halting {
		return fmt.Errorf("machine already halted")
	}

	inst, err := vm.CurrentInstruction()
	if err != nil {
		return fmt.Errorf("failed to fetch instruction: %w", err)
	}

	if err := vm.ExecuteInstruction(inst); err != nil {
		return fmt.Errorf("failed to execute %s: %w", inst.String(), err)
	}

	vm.CycleCount++

	return nil
}

// CurrentInstruction fetches the current instruction
func (vm *VMState) CurrentInstruction() (*EncodedInstruction, error) {
	return vm.instructionAt(vm.InstructionPointer)
}

func (vm *VMState) instructionAt(address int) (*EncodedInstruction, error) {
	if address < 0 || address >= vm.Program.Length {
		return nil, fmt.Errorf("instruction pointer out of bounds: %d", address)
	}

	inst, err := DecodeInstruction(vm.Program.words, address)
	if err != nil {
		return nil, fmt.Errorf("failed to decode instruction: %w", err)
	}

	return inst, nil
}

// ExecuteInstruction dispatches to the appropriate instruction handler
func (vm *VMState) ExecuteInstruction(inst *EncodedInstruction) error {
	switch inst.Instruction {
	// Stack Manipulation
	case Pop:
		return vm.execPop(inst)
	case Push:
		return vm.execPush(inst)
	case Divine:
		return vm.execDivine(inst)
	case Pick:
		return vm.execPick(inst)
	case Place:
		return vm.execPlace(inst)
	case Dup:
		return vm.execDup(inst)
	case Swap:
		return vm.execSwap(inst)

	// Control Flow
	case Halt:
		return vm.execHalt()
	case Nop:
		return vm.execNop()
	case Skiz:
		return vm.execSkiz()
	case Call:
		return vm.execCall(inst)
	case Return:
		return vm.execReturn()
	case Recurse:
		return vm.execRecurse()
	case RecurseOrReturn:
		return vm.execRecurseOrReturn()
	case Assert:
		return vm.execAssert()

	// Memory Access
	case ReadMem:
		return vm.execReadMem(inst)
	case WriteMem:
		return vm.execWriteMem(inst)

	// Hashing
	case Hash:
		return vm.execHash()
	case AssertVector:
		return vm.execAssertVector()
	case SpongeInit:
		return vm.execSpongeInit()
	case SpongeAbsorb:
		return vm.execSpongeAbsorb()
	case SpongeAbsorbMem:
		return vm.execSpongeAbsorbMem()
	case SpongeSqueeze:
		return vm.execSpongeSqueeze()

	// Base Field Arithmetic
	case Add:
		return vm.execAdd()
	case AddI:
		return vm.execAddI(inst)
	case Mul:
		return vm.execMul()
	case Invert:
		return vm.execInvert()
	case Eq:
		return vm.execEq()

	// U32 Arithmetic
	case Split:
		return vm.execSplit()
	case Lt:
		return vm.execLt()
	case And:
		return vm.execAnd()
	case Xor:
		return vm.execXor()
	case Log2Floor:
		return vm.execLog2Floor()
	case Pow:
		return vm.execPow()
	case DivMod:
		return vm.execDivMod()
	case PopCount:
		return vm.execPopCount()

	// Extension Field Arithmetic
	case XxAdd:
		return vm.execXxAdd()
	case XxMul:
		return vm.execXxMul()
	case XbMul:
		return vm.execXbMul()

	// I/O
	case ReadIo:
		return vm.execReadIo(inst)
	case WriteIo:
		return vm.execWriteIo(inst)

	default:
		return fmt.Errorf("unknown instruction: %d", inst.Instruction)
	}
}

// Stack access helpers

// StackDepth returns the number of words on the operational stack
func (vm *VMState) StackDepth() int {
	return len(vm.Stack)
}

// StackPush pushes a value onto the stack
func (vm *VMState) StackPush(value field.Element) {
	vm.Stack = append(vm.Stack, value)
}

// StackPop pops the top of the stack. The stack never shrinks below
// OpStackMinDepth words.
func (vm *VMState) StackPop() (field.Element, error) {
	if len(vm.Stack) <= OpStackMinDepth {
		return field.Zero, fmt.Errorf("operational stack underflow")
	}

	top := len(vm.Stack) - 1
	value := vm.Stack[top]
	vm.Stack = vm.Stack[:top]
	return value, nil
}

// StackPeek returns the element at the given depth (0 = top)
func (vm *VMState) StackPeek(depth int) (field.Element, error) {
	if depth < 0 || depth >= len(vm.Stack) {
		return field.Zero, fmt.Errorf("stack peek out of bounds: depth %d, size %d", depth, len(vm.Stack))
	}

	return vm.Stack[len(vm.Stack)-1-depth], nil
}

// StackSet overwrites the element at the given depth (0 = top)
func (vm *VMState) StackSet(depth int, value field.Element) error {
	if depth < 0 || depth >= len(vm.Stack) {
		return fmt.Errorf("stack set out of bounds: depth %d, size %d", depth, len(vm.Stack))
	}

	vm.Stack[len(vm.Stack)-1-depth] = value
	return nil
}

// RAM access helpers

// RAMRead reads a word. Uninitialized RAM reads as zero.
func (vm *VMState) RAMRead(address field.Element) field.Element {
	value, exists := vm.RAM[address]
	if !exists {
		value = field.Zero
	}

	vm.RAMCalls = append(vm.RAMCalls, RAMCall{
		Clock:   vm.CycleCount,
		IsWrite: false,
		Address: address,
		Value:   value,
	})
	return value
}

// RAMWrite writes a word
func (vm *VMState) RAMWrite(address field.Element, value field.Element) {
	vm.RAM[address] = value

	vm.RAMCalls = append(vm.RAMCalls, RAMCall{
		Clock:   vm.CycleCount,
		IsWrite: true,
		Address: address,
		Value:   value,
	})
}

// IncrementIP advances the instruction pointer past the current instruction
func (vm *VMState) IncrementIP() error {
	inst, err := vm.CurrentInstruction()
	if err != nil {
		return err
	}

	vm.InstructionPointer += inst.Instruction.Size()
	return nil
}

// CoProcessorCount counts the recorded calls to one coprocessor
func (vm *VMState) CoProcessorCount(kind CoProcessorType) int {
	count := 0
	for _, call := range vm.CoProcessorCalls {
		if call.Type == kind {
			count++
		}
	}
	return count
}

func (vm *VMState) recordCoProcessorCall(kind CoProcessorType, operation string) {
	vm.CoProcessorCalls = append(vm.CoProcessorCalls, CoProcessorCall{Type: kind, Operation: operation})
}

// ===========================================================================
// TIP-0006: Program Attestation
// ===========================================================================

// ProgramDigest computes the digest of a program's encoded words
func ProgramDigest(program *Program) hash.Digest {
	return hash.HashVarlen(program.ToWords())
}
