// Package vm provides the instruction set and executor that snippet programs run on
package vm

import (
	"fmt"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// Instruction represents a VM opcode
type Instruction uint32

// Instruction set. Opcodes follow the Triton VM numbering.
const (
	// ========== Stack Manipulation ==========

	// Pop removes n elements from the stack
	Pop Instruction = 3

	// Push pushes a value onto the stack
	Push Instruction = 1

	// Divine pushes n elements taken from the nondeterminism tape
	Divine Instruction = 9

	// Pick moves stack[i] to the top
	Pick Instruction = 17

	// Place moves the top element down to stack[i]
	Place Instruction = 25

	// Dup duplicates the element at stack[i] to the top
	Dup Instruction = 33

	// Swap swaps the top element with stack[i]
	Swap Instruction = 41

	// ========== Control Flow ==========

	// Halt terminates program execution
	Halt Instruction = 0

	// Nop does nothing
	Nop Instruction = 8

	// Skiz skips the next instruction if top of stack is zero
	Skiz Instruction = 2

	// Call calls the function at the given address
	Call Instruction = 49

	// Return returns from a function call
	Return Instruction = 16

	// Recurse jumps back to the start of the current function
	Recurse Instruction = 24

	// RecurseOrReturn returns if st5 equals st6, recurses otherwise
	RecurseOrReturn Instruction = 32

	// Assert asserts that the top of stack is 1
	Assert Instruction = 10

	// ========== Memory Access ==========

	// ReadMem reads n words from RAM, walking down from the address on top of stack
	ReadMem Instruction = 57

	// WriteMem writes n words to RAM, walking up from the address on top of stack
	WriteMem Instruction = 11

	// ========== Hashing ==========

	// Hash replaces the top 10 elements with their 5-element digest
	Hash Instruction = 18

	// AssertVector asserts stack[0..5] equals stack[5..10]
	AssertVector Instruction = 26

	// SpongeInit resets the sponge state
	SpongeInit Instruction = 40

	// SpongeAbsorb absorbs 10 elements from the stack into the sponge
	SpongeAbsorb Instruction = 34

	// SpongeAbsorbMem absorbs 10 elements from RAM into the sponge
	SpongeAbsorbMem Instruction = 48

	// SpongeSqueeze squeezes 10 elements from the sponge onto the stack
	SpongeSqueeze Instruction = 56

	// ========== Base Field Arithmetic ==========

	// Add adds top two stack elements
	Add Instruction = 42

	// AddI adds an immediate value to top of stack
	AddI Instruction = 65

	// Mul multiplies top two stack elements
	Mul Instruction = 50

	// Invert replaces top of stack with its multiplicative inverse
	Invert Instruction = 64

	// Eq pushes 1 if the top two stack elements are equal, 0 otherwise
	Eq Instruction = 58

	// ========== U32 Arithmetic ==========

	// Split splits top element into high and low 32-bit parts
	Split Instruction = 4

	// Lt pushes 1 if st0 < st1
	Lt Instruction = 6

	// And performs bitwise AND on top two stack elements
	And Instruction = 14

	// Xor performs bitwise XOR on top two stack elements
	Xor Instruction = 22

	// Log2Floor computes floor(log2(top))
	Log2Floor Instruction = 12

	// Pow raises st0 to the power st1
	Pow Instruction = 30

	// DivMod divides st0 by st1, pushing quotient and remainder
	DivMod Instruction = 20

	// PopCount counts the number of 1 bits in top element
	PopCount Instruction = 28

	// ========== Extension Field Arithmetic ==========

	// XxAdd adds two extension field elements
	XxAdd Instruction = 66

	// XxMul multiplies two extension field elements
	XxMul Instruction = 74

	// XbMul multiplies an extension field element by a base field element
	XbMul Instruction = 82

	// ========== I/O Operations ==========

	// ReadIo reads n elements from public input
	ReadIo Instruction = 73

	// WriteIo writes n elements to public output
	WriteIo Instruction = 19
)

// InstructionInfo provides metadata about an instruction
type InstructionInfo struct {
	Opcode      Instruction
	Name        string
	Description string
	Size        int  // Number of words (1 or 2)
	HasArg      bool // Whether instruction takes an argument
	MinArg      uint64
	MaxArg      uint64
}

// AllInstructions maps every opcode to its metadata
var AllInstructions = map[Instruction]InstructionInfo{
	// Stack Manipulation
	Pop:    {Pop, "pop", "Remove n elements from stack", 2, true, 1, 5},
	Push:   {Push, "push", "Push value onto stack", 2, true, 0, field.P - 1},
	Divine: {Divine, "divine", "Push n elements from the nondeterminism tape", 2, true, 1, 5},
	Pick:   {Pick, "pick", "Move stack[i] to top", 2, true, 0, 15},
	Place:  {Place, "place", "Move top to stack[i]", 2, true, 0, 15},
	Dup:    {Dup, "dup", "Duplicate stack[i] to top", 2, true, 0, 15},
	Swap:   {Swap, "swap", "Swap top with stack[i]", 2, true, 1, 15},

	// Control Flow
	Halt:            {Halt, "halt", "Terminate execution", 1, false, 0, 0},
	Nop:             {Nop, "nop", "No operation", 1, false, 0, 0},
	Skiz:            {Skiz, "skiz", "Skip if zero", 1, false, 0, 0},
	Call:            {Call, "call", "Call function", 2, true, 0, field.P - 1},
	Return:          {Return, "return", "Return from function", 1, false, 0, 0},
	Recurse:         {Recurse, "recurse", "Jump to start of current function", 1, false, 0, 0},
	RecurseOrReturn: {RecurseOrReturn, "recurse_or_return", "Return if st5 == st6, recurse otherwise", 1, false, 0, 0},
	Assert:          {Assert, "assert", "Assert top is 1", 1, false, 0, 0},

	// Memory Access
	ReadMem:  {ReadMem, "read_mem", "Read n words from RAM", 2, true, 1, 5},
	WriteMem: {WriteMem, "write_mem", "Write n words to RAM", 2, true, 1, 5},

	// Hashing
	Hash:            {Hash, "hash", "Digest of stack[0..10]", 1, false, 0, 0},
	AssertVector:    {AssertVector, "assert_vector", "Assert vector equality", 1, false, 0, 0},
	SpongeInit:      {SpongeInit, "sponge_init", "Initialize sponge", 1, false, 0, 0},
	SpongeAbsorb:    {SpongeAbsorb, "sponge_absorb", "Absorb into sponge", 1, false, 0, 0},
	SpongeAbsorbMem: {SpongeAbsorbMem, "sponge_absorb_mem", "Absorb from RAM", 1, false, 0, 0},
	SpongeSqueeze:   {SpongeSqueeze, "sponge_squeeze", "Squeeze from sponge", 1, false, 0, 0},

	// Base Field Arithmetic
	Add:    {Add, "add", "Add top two elements", 1, false, 0, 0},
	AddI:   {AddI, "addi", "Add immediate", 2, true, 0, field.P - 1},
	Mul:    {Mul, "mul", "Multiply top two elements", 1, false, 0, 0},
	Invert: {Invert, "invert", "Multiplicative inverse", 1, false, 0, 0},
	Eq:     {Eq, "eq", "Check equality", 1, false, 0, 0},

	// U32 Arithmetic
	Split:     {Split, "split", "Split into high/low 32-bit", 1, false, 0, 0},
	Lt:        {Lt, "lt", "Less than (unsigned)", 1, false, 0, 0},
	And:       {And, "and", "Bitwise AND", 1, false, 0, 0},
	Xor:       {Xor, "xor", "Bitwise XOR", 1, false, 0, 0},
	Log2Floor: {Log2Floor, "log_2_floor", "Floor of log2", 1, false, 0, 0},
	Pow:       {Pow, "pow", "Exponentiation", 1, false, 0, 0},
	DivMod:    {DivMod, "div_mod", "Division with remainder", 1, false, 0, 0},
	PopCount:  {PopCount, "pop_count", "Count 1 bits", 1, false, 0, 0},

	// Extension Field Arithmetic
	XxAdd: {XxAdd, "xx_add", "Extension field addition", 1, false, 0, 0},
	XxMul: {XxMul, "xx_mul", "Extension field multiplication", 1, false, 0, 0},
	XbMul: {XbMul, "xb_mul", "Base × Extension multiplication", 1, false, 0, 0},

	// I/O
	ReadIo:  {ReadIo, "read_io", "Read from standard input", 2, true, 1, 5},
	WriteIo: {WriteIo, "write_io", "Write to standard output", 2, true, 1, 5},
}

// instructionsByName is the inverse of AllInstructions, keyed by mnemonic
var instructionsByName = func() map[string]Instruction {
	byName := make(map[string]Instruction, len(AllInstructions))
	for opcode, info := range AllInstructions {
		byName[info.Name] = opcode
	}
	return byName
}()

// InstructionByName looks up an opcode by its mnemonic
func InstructionByName(name string) (Instruction, bool) {
	inst, ok := instructionsByName[name]
	return inst, ok
}

// String returns the name of the instruction
func (i Instruction) String() string {
	if info, ok := AllInstructions[i]; ok {
		return info.Name
	}
	return fmt.Sprintf("unknown(%d)", i)
}

// Info returns metadata about the instruction
func (i Instruction) Info() (InstructionInfo, error) {
	info, ok := AllInstructions[i]
	if !ok {
		return InstructionInfo{}, fmt.Errorf("unknown instruction: %d", i)
	}
	return info, nil
}

// Size returns the number of words the instruction occupies
func (i Instruction) Size() int {
	info, err := i.Info()
	if err != nil {
		return 1
	}
	return info.Size
}

// HasArgument returns whether the instruction takes an argument
func (i Instruction) HasArgument() bool {
	info, err := i.Info()
	if err != nil {
		return false
	}
	return info.HasArg
}

// EncodedInstruction represents a fully-encoded instruction with its argument
type EncodedInstruction struct {
	Instruction Instruction
	Argument    *field.Element // nil if no argument
}

// NewEncodedInstruction creates a new encoded instruction, checking the
// argument against the instruction's admissible range
func NewEncodedInstruction(inst Instruction, arg *field.Element) (*EncodedInstruction, error) {
	info, err := inst.Info()
	if err != nil {
		return nil, err
	}

	if info.HasArg && arg == nil {
		return nil, fmt.Errorf("instruction %s requires an argument", inst.String())
	}

	if !info.HasArg && arg != nil {
		return nil, fmt.Errorf("instruction %s does not take an argument", inst.String())
	}

	if arg != nil && (arg.Value() < info.MinArg || arg.Value() > info.MaxArg) {
		return nil, fmt.Errorf("argument %d of %s out of range [%d, %d]",
			arg.Value(), inst.String(), info.MinArg, info.MaxArg)
	}

	return &EncodedInstruction{
		Instruction: inst,
		Argument:    arg,
	}, nil
}

// Words returns the instruction as field elements for program memory
func (ei *EncodedInstruction) Words() []field.Element {
	if ei.Instruction.Size() == 1 {
		return []field.Element{field.New(uint64(ei.Instruction))}
	}

	if ei.Argument == nil {
		return []field.Element{field.New(uint64(ei.Instruction)), field.Zero}
	}
	return []field.Element{field.New(uint64(ei.Instruction)), *ei.Argument}
}

// String renders the instruction in assembler syntax
func (ei *EncodedInstruction) String() string {
	if ei.Argument == nil {
		return ei.Instruction.String()
	}
	return fmt.Sprintf("%s %d", ei.Instruction.String(), ei.Argument.Value())
}

// DecodeInstruction decodes an instruction from field elements
func DecodeInstruction(words []field.Element, offset int) (*EncodedInstruction, error) {
	if offset < 0 || offset >= len(words) {
		return nil, fmt.Errorf("offset %d out of bounds", offset)
	}

	opcode := Instruction(words[offset].Value())
	info, err := opcode.Info()
	if err != nil {
		return nil, fmt.Errorf("unknown opcode: %d", words[offset].Value())
	}

	var arg *field.Element
	if info.HasArg {
		if offset+1 >= len(words) {
			return nil, fmt.Errorf("instruction %s requires argument but none found", opcode.String())
		}
		value := words[offset+1]
		arg = &value
	}

	return NewEncodedInstruction(opcode, arg)
}

// Program represents a linked program: a flat sequence of instruction words
type Program struct {
	Instructions []*EncodedInstruction
	Length       int // Total words

	words []field.Element
}

// NewProgram creates a new program
func NewProgram() *Program {
	return &Program{
		Instructions: make([]*EncodedInstruction, 0),
		Length:       0,
	}
}

// AddInstruction adds an instruction to the program
func (p *Program) AddInstruction(inst *EncodedInstruction) {
	p.Instructions = append(p.Instructions, inst)
	p.Length += inst.Instruction.Size()
	p.words = append(p.words, inst.Words()...)
}

// ToWords converts the program to field elements for execution
func (p *Program) ToWords() []field.Element {
	words := make([]field.Element, len(p.words))
	copy(words, p.words)
	return words
}

// ValidateProgram validates a program for correctness
func ValidateProgram(program *Program) error {
	if len(program.Instructions) == 0 {
		return fmt.Errorf("empty program")
	}

	for address := 0; address < program.Length; {
		inst, err := DecodeInstruction(program.words, address)
		if err != nil {
			return fmt.Errorf("invalid instruction at address %d: %w", address, err)
		}
		if inst.Instruction == Call && int(inst.Argument.Value()) >= program.Length {
			return fmt.Errorf("call at address %d targets %d, beyond program end %d",
				address, inst.Argument.Value(), program.Length)
		}
		address += inst.Instruction.Size()
	}

	return nil
}
