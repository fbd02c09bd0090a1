// Package vm provides instruction execution handlers
package vm

import (
	"fmt"
	"math/bits"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// argCount returns the small integer argument of pop, dup, read_mem and friends
func argCount(inst *EncodedInstruction) int {
	return int(inst.Argument.Value())
}

// popN pops n words and returns them in push order (deepest first)
func (vm *VMState) popN(n int) ([]field.Element, error) {
	values := make([]field.Element, n)
	for i := n - 1; i >= 0; i-- {
		value, err := vm.StackPop()
		if err != nil {
			return nil, err
		}
		values[i] = value
	}
	return values, nil
}

// popU32 pops the top of the stack and checks it is a u32
func (vm *VMState) popU32() (uint32, error) {
	value, err := vm.StackPop()
	if err != nil {
		return 0, err
	}
	if value.Value() > 0xFFFFFFFF {
		return 0, fmt.Errorf("operand %d is not a u32", value.Value())
	}
	return uint32(value.Value()), nil
}

// ============================================================================
// Stack Manipulation Instructions
// ============================================================================

// execPop removes n elements from the stack
func (vm *VMState) execPop(inst *EncodedInstruction) error {
	if _, err := vm.popN(argCount(inst)); err != nil {
		return err
	}
	return vm.IncrementIP()
}

// execPush pushes a value onto the stack
func (vm *VMState) execPush(inst *EncodedInstruction) error {
	vm.StackPush(*inst.Argument)
	return vm.IncrementIP()
}

// execDivine pushes n elements from the nondeterminism tape
func (vm *VMState) execDivine(inst *EncodedInstruction) error {
	n := argCount(inst)
	for i := 0; i < n; i++ {
		if vm.SecretPointer >= len(vm.SecretInput) {
			return fmt.Errorf("secret input exhausted")
		}
		vm.StackPush(vm.SecretInput[vm.SecretPointer])
		vm.SecretPointer++
	}
	return vm.IncrementIP()
}

// execPick moves stack[i] to the top
func (vm *VMState) execPick(inst *EncodedInstruction) error {
	index := argCount(inst)
	if index >= len(vm.Stack) {
		return fmt.Errorf("pick index %d out of bounds", index)
	}

	position := len(vm.Stack) - 1 - index
	value := vm.Stack[position]
	vm.Stack = append(vm.Stack[:position], vm.Stack[position+1:]...)
	vm.StackPush(value)

	return vm.IncrementIP()
}

// execPlace moves the top element down to stack[i]
func (vm *VMState) execPlace(inst *EncodedInstruction) error {
	index := argCount(inst)

	value, err := vm.StackPop()
	if err != nil {
		return err
	}
	if index > len(vm.Stack) {
		return fmt.Errorf("place index %d out of bounds", index)
	}

	position := len(vm.Stack) - index
	vm.Stack = append(vm.Stack, field.Zero)
	copy(vm.Stack[position+1:], vm.Stack[position:])
	vm.Stack[position] = value

	return vm.IncrementIP()
}

// execDup duplicates stack[i] to the top
func (vm *VMState) execDup(inst *EncodedInstruction) error {
	value, err := vm.StackPeek(argCount(inst))
	if err != nil {
		return err
	}
	vm.StackPush(value)
	return vm.IncrementIP()
}

// execSwap swaps the top with stack[i]
func (vm *VMState) execSwap(inst *EncodedInstruction) error {
	index := argCount(inst)
	if index >= len(vm.Stack) {
		return fmt.Errorf("swap index %d out of bounds", index)
	}

	top := len(vm.Stack) - 1
	vm.Stack[top], vm.Stack[top-index] = vm.Stack[top-index], vm.Stack[top]

	return vm.IncrementIP()
}

// ============================================================================
// Control Flow Instructions
// ============================================================================

// execHalt terminates execution
func (vm *VMState) execHalt() error {
	vm.Halting = true
	return nil
}

// execNop does nothing
func (vm *VMState) execNop() error {
	return vm.IncrementIP()
}

// execSkiz skips the next instruction if top of stack is zero
func (vm *VMState) execSkiz() error {
	st0, err := vm.StackPop()
	if err != nil {
		return err
	}

	if err := vm.IncrementIP(); err != nil {
		return err
	}

	if st0.IsZero() {
		next, err := vm.CurrentInstruction()
		if err != nil {
			return err
		}
		vm.InstructionPointer += next.Instruction.Size()
	}

	return nil
}

// execCall calls a function
func (vm *VMState) execCall(inst *EncodedInstruction) error {
	target := int(inst.Argument.Value())

	vm.JumpStack = append(vm.JumpStack, VMJumpStackEntry{
		Origin:      vm.InstructionPointer + inst.Instruction.Size(),
		Destination: target,
	})
	vm.InstructionPointer = target

	return nil
}

// execReturn returns from a function call
func (vm *VMState) execReturn() error {
	if len(vm.JumpStack) == 0 {
		return fmt.Errorf("jump stack underflow: cannot return without call")
	}

	entry := vm.JumpStack[len(vm.JumpStack)-1]
	vm.JumpStack = vm.JumpStack[:len(vm.JumpStack)-1]
	vm.InstructionPointer = entry.Origin

	return nil
}

// execRecurse jumps back to the start of the current function
func (vm *VMState) execRecurse() error {
	if len(vm.JumpStack) == 0 {
		return fmt.Errorf("recurse requires at least one call on jump stack")
	}

	vm.InstructionPointer = vm.JumpStack[len(vm.JumpStack)-1].Destination
	return nil
}

// execRecurseOrReturn returns if st5 == st6 and recurses otherwise
func (vm *VMState) execRecurseOrReturn() error {
	st5, err := vm.StackPeek(5)
	if err != nil {
		return err
	}
	st6, err := vm.StackPeek(6)
	if err != nil {
		return err
	}

	if st5.Equal(st6) {
		return vm.execReturn()
	}
	return vm.execRecurse()
}

// execAssert asserts that top of stack is 1
func (vm *VMState) execAssert() error {
	st0, err := vm.StackPop()
	if err != nil {
		return err
	}

	if !st0.Equal(field.One) {
		return fmt.Errorf("assertion failed: expected 1, got %s", st0.String())
	}

	return vm.IncrementIP()
}

// ============================================================================
// Memory Access Instructions
// ============================================================================

// execReadMem reads n words walking down from the address on top of stack.
// Stack: _ p -> _ m[p] m[p-1] ... m[p-n+1] (p-n)
func (vm *VMState) execReadMem(inst *EncodedInstruction) error {
	n := argCount(inst)

	address, err := vm.StackPop()
	if err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		vm.StackPush(vm.RAMRead(address.Sub(field.New(uint64(i)))))
	}
	vm.StackPush(address.Sub(field.New(uint64(n))))

	return vm.IncrementIP()
}

// execWriteMem writes n words walking up from the address on top of stack.
// Stack: _ v_{n-1} ... v_0 p -> _ (p+n), with m[p+i] = v_i
func (vm *VMState) execWriteMem(inst *EncodedInstruction) error {
	n := argCount(inst)

	address, err := vm.StackPop()
	if err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		value, err := vm.StackPop()
		if err != nil {
			return err
		}
		vm.RAMWrite(address.Add(field.New(uint64(i))), value)
	}
	vm.StackPush(address.Add(field.New(uint64(n))))

	return vm.IncrementIP()
}

// ============================================================================
// Base Field Arithmetic Instructions
// ============================================================================

// execAdd adds top two stack elements
func (vm *VMState) execAdd() error {
	operands, err := vm.popN(2)
	if err != nil {
		return err
	}
	vm.StackPush(operands[0].Add(operands[1]))
	return vm.IncrementIP()
}

// execAddI adds the immediate value to top
func (vm *VMState) execAddI(inst *EncodedInstruction) error {
	a, err := vm.StackPop()
	if err != nil {
		return err
	}
	vm.StackPush(a.Add(*inst.Argument))
	return vm.IncrementIP()
}

// execMul multiplies top two stack elements
func (vm *VMState) execMul() error {
	operands, err := vm.popN(2)
	if err != nil {
		return err
	}
	vm.StackPush(operands[0].Mul(operands[1]))
	return vm.IncrementIP()
}

// execInvert computes the multiplicative inverse
func (vm *VMState) execInvert() error {
	a, err := vm.StackPop()
	if err != nil {
		return err
	}

	if a.IsZero() {
		return fmt.Errorf("cannot invert zero")
	}

	vm.StackPush(a.Inverse())
	return vm.IncrementIP()
}

// execEq checks equality of top two stack elements
func (vm *VMState) execEq() error {
	operands, err := vm.popN(2)
	if err != nil {
		return err
	}

	result := field.Zero
	if operands[0].Equal(operands[1]) {
		result = field.One
	}
	vm.StackPush(result)

	return vm.IncrementIP()
}

// ============================================================================
// U32 Instructions
// ============================================================================

// execSplit splits top into high and low 32-bit parts, low on top
func (vm *VMState) execSplit() error {
	a, err := vm.StackPop()
	if err != nil {
		return err
	}

	value := a.Value()
	vm.StackPush(field.New(value >> 32))
	vm.StackPush(field.New(value & 0xFFFFFFFF))
	vm.recordCoProcessorCall(U32CoProcessor, "split")

	return vm.IncrementIP()
}

// execLt pushes 1 if st0 < st1
func (vm *VMState) execLt() error {
	a, err := vm.popU32()
	if err != nil {
		return err
	}
	b, err := vm.popU32()
	if err != nil {
		return err
	}

	result := field.Zero
	if a < b {
		result = field.One
	}
	vm.StackPush(result)
	vm.recordCoProcessorCall(U32CoProcessor, "lt")

	return vm.IncrementIP()
}

// execAnd performs bitwise AND
func (vm *VMState) execAnd() error {
	a, err := vm.popU32()
	if err != nil {
		return err
	}
	b, err := vm.popU32()
	if err != nil {
		return err
	}

	vm.StackPush(field.New(uint64(a & b)))
	vm.recordCoProcessorCall(U32CoProcessor, "and")

	return vm.IncrementIP()
}

// execXor performs bitwise XOR
func (vm *VMState) execXor() error {
	a, err := vm.popU32()
	if err != nil {
		return err
	}
	b, err := vm.popU32()
	if err != nil {
		return err
	}

	vm.StackPush(field.New(uint64(a ^ b)))
	vm.recordCoProcessorCall(U32CoProcessor, "xor")

	return vm.IncrementIP()
}

// execLog2Floor computes floor(log2(x))
func (vm *VMState) execLog2Floor() error {
	a, err := vm.popU32()
	if err != nil {
		return err
	}

	if a == 0 {
		return fmt.Errorf("log2 of zero is undefined")
	}

	vm.StackPush(field.New(uint64(bits.Len32(a) - 1)))
	vm.recordCoProcessorCall(U32CoProcessor, "log_2_floor")

	return vm.IncrementIP()
}

// execPow raises st0 to the power st1
func (vm *VMState) execPow() error {
	base, err := vm.StackPop()
	if err != nil {
		return err
	}
	exponent, err := vm.popU32()
	if err != nil {
		return err
	}

	vm.StackPush(base.ModPow(uint64(exponent)))
	vm.recordCoProcessorCall(U32CoProcessor, "pow")

	return vm.IncrementIP()
}

// execDivMod divides st0 by st1. Stack: _ d n -> _ q r
func (vm *VMState) execDivMod() error {
	numerator, err := vm.popU32()
	if err != nil {
		return err
	}
	denominator, err := vm.popU32()
	if err != nil {
		return err
	}

	if denominator == 0 {
		return fmt.Errorf("division by zero")
	}

	vm.StackPush(field.New(uint64(numerator / denominator)))
	vm.StackPush(field.New(uint64(numerator % denominator)))
	vm.recordCoProcessorCall(U32CoProcessor, "div_mod")

	return vm.IncrementIP()
}

// execPopCount counts the number of 1 bits
func (vm *VMState) execPopCount() error {
	a, err := vm.popU32()
	if err != nil {
		return err
	}

	vm.StackPush(field.New(uint64(bits.OnesCount32(a))))
	vm.recordCoProcessorCall(U32CoProcessor, "pop_count")

	return vm.IncrementIP()
}

// ============================================================================
// Hashing Instructions
// ============================================================================

// execHash replaces the top 10 elements with their digest.
// The digest is pushed in order, so digest[4] ends on top.
func (vm *VMState) execHash() error {
	words, err := vm.popN(SpongeRate)
	if err != nil {
		return fmt.Errorf("hash requires 10 stack elements: %w", err)
	}

	var input [SpongeRate]field.Element
	copy(input[:], words)
	digest := HashTen(input)
	for i := 0; i < DigestLength; i++ {
		vm.StackPush(digest[i])
	}
	vm.recordCoProcessorCall(HashCoProcessor, "hash")

	return vm.IncrementIP()
}

// execAssertVector asserts stack[0..5] equals stack[5..10] and pops the top five
func (vm *VMState) execAssertVector() error {
	for i := 0; i < DigestLength; i++ {
		a, err := vm.StackPeek(i)
		if err != nil {
			return err
		}
		b, err := vm.StackPeek(i + DigestLength)
		if err != nil {
			return err
		}
		if !a.Equal(b) {
			return fmt.Errorf("assert_vector failed: st%d (%s) != st%d (%s)",
				i, a.String(), i+DigestLength, b.String())
		}
	}

	if _, err := vm.popN(DigestLength); err != nil {
		return err
	}

	return vm.IncrementIP()
}

// execSpongeInit resets the sponge
func (vm *VMState) execSpongeInit() error {
	vm.Sponge = NewSponge()
	vm.recordCoProcessorCall(SpongeResetCoProcessor, "sponge_init")
	return vm.IncrementIP()
}

// execSpongeAbsorb absorbs 10 elements from stack into sponge
func (vm *VMState) execSpongeAbsorb() error {
	if vm.Sponge == nil {
		return fmt.Errorf("sponge not initialized (call sponge_init first)")
	}

	words, err := vm.popN(SpongeRate)
	if err != nil {
		return err
	}

	var input [SpongeRate]field.Element
	copy(input[:], words)
	vm.Sponge.Absorb(input)
	vm.recordCoProcessorCall(HashCoProcessor, "sponge_absorb")

	return vm.IncrementIP()
}

// execSpongeAbsorbMem absorbs m[p..p+10] into the sponge. Stack: _ p -> _ (p+10)
func (vm *VMState) execSpongeAbsorbMem() error {
	if vm.Sponge == nil {
		return fmt.Errorf("sponge not initialized (call sponge_init first)")
	}

	address, err := vm.StackPop()
	if err != nil {
		return err
	}

	var input [SpongeRate]field.Element
	for i := range input {
		input[i] = vm.RAMRead(address.Add(field.New(uint64(i))))
	}
	vm.Sponge.Absorb(input)
	vm.StackPush(address.Add(field.New(SpongeRate)))
	vm.recordCoProcessorCall(HashCoProcessor, "sponge_absorb_mem")

	return vm.IncrementIP()
}

// execSpongeSqueeze squeezes 10 elements from sponge onto stack
func (vm *VMState) execSpongeSqueeze() error {
	if vm.Sponge == nil {
		return fmt.Errorf("sponge not initialized (call sponge_init first)")
	}

	output := vm.Sponge.Squeeze()
	for _, word := range output {
		vm.StackPush(word)
	}
	vm.recordCoProcessorCall(HashCoProcessor, "sponge_squeeze")

	return vm.IncrementIP()
}

// ============================================================================
// Extension Field Instructions
// ============================================================================

// XFieldMul multiplies two elements of F_p[X]/(X^3 - X + 1), coefficients
// given lowest degree first
func XFieldMul(a, b [3]field.Element) [3]field.Element {
	c0 := a[0].Mul(b[0])
	c1 := a[0].Mul(b[1]).Add(a[1].Mul(b[0]))
	c2 := a[0].Mul(b[2]).Add(a[1].Mul(b[1])).Add(a[2].Mul(b[0]))
	c3 := a[1].Mul(b[2]).Add(a[2].Mul(b[1]))
	c4 := a[2].Mul(b[2])

	// X^3 = X - 1, X^4 = X^2 - X
	return [3]field.Element{
		c0.Sub(c3),
		c1.Add(c3).Sub(c4),
		c2.Add(c4),
	}
}

// popXField pops an extension field element stored with its constant term on top
func (vm *VMState) popXField() ([3]field.Element, error) {
	var x [3]field.Element
	for i := 0; i < 3; i++ {
		value, err := vm.StackPop()
		if err != nil {
			return x, err
		}
		x[i] = value
	}
	return x, nil
}

// pushXField pushes an extension field element, constant term last
func (vm *VMState) pushXField(x [3]field.Element) {
	for i := 2; i >= 0; i-- {
		vm.StackPush(x[i])
	}
}

// execXxAdd adds two extension field elements
func (vm *VMState) execXxAdd() error {
	x, err := vm.popXField()
	if err != nil {
		return err
	}
	y, err := vm.popXField()
	if err != nil {
		return err
	}

	vm.pushXField([3]field.Element{x[0].Add(y[0]), x[1].Add(y[1]), x[2].Add(y[2])})
	return vm.IncrementIP()
}

// execXxMul multiplies two extension field elements
func (vm *VMState) execXxMul() error {
	x, err := vm.popXField()
	if err != nil {
		return err
	}
	y, err := vm.popXField()
	if err != nil {
		return err
	}

	vm.pushXField(XFieldMul(x, y))
	return vm.IncrementIP()
}

// execXbMul multiplies an extension field element by the base field element on top
func (vm *VMState) execXbMul() error {
	scalar, err := vm.StackPop()
	if err != nil {
		return err
	}
	x, err := vm.popXField()
	if err != nil {
		return err
	}

	vm.pushXField([3]field.Element{x[0].Mul(scalar), x[1].Mul(scalar), x[2].Mul(scalar)})
	return vm.IncrementIP()
}

// ============================================================================
// I/O Instructions
// ============================================================================

// execReadIo reads n elements from public input; the first one read ends deepest
func (vm *VMState) execReadIo(inst *EncodedInstruction) error {
	n := argCount(inst)
	for i := 0; i < n; i++ {
		if vm.InputPointer >= len(vm.PublicInput) {
			return fmt.Errorf("public input exhausted")
		}
		vm.StackPush(vm.PublicInput[vm.InputPointer])
		vm.InputPointer++
	}
	return vm.IncrementIP()
}

// execWriteIo writes n elements to public output, top of stack first
func (vm *VMState) execWriteIo(inst *EncodedInstruction) error {
	n := argCount(inst)
	for i := 0; i < n; i++ {
		value, err := vm.StackPop()
		if err != nil {
			return err
		}
		vm.PublicOutput = append(vm.PublicOutput, value)
	}
	return vm.IncrementIP()
}
