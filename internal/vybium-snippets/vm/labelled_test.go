package vm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-snippets/internal/vybium-snippets/vm"
)

// TestLink tests that call targets resolve to word addresses
func TestLink(t *testing.T) {
	code := []vm.LabelledInstruction{
		vm.CallLabel("f"),
		vm.Instr(vm.Halt),
		vm.LabelDef("f"),
		vm.InstrArg(vm.Push, field.New(1)),
		vm.Instr(vm.Return),
	}

	program, err := vm.Link(code)
	require.NoError(t, err)
	require.Len(t, program.Instructions, 4)

	// call (2 words) + halt (1 word) puts f at address 3
	assert.Equal(t, uint64(3), program.Instructions[0].Argument.Value())
	assert.Equal(t, 6, program.Length)
	assert.NoError(t, vm.ValidateProgram(program))
	assert.Equal(t, []string{"f"}, vm.Labels(code))
}

// TestLinkErrors tests undefined and duplicate labels and bad arguments
func TestLinkErrors(t *testing.T) {
	tests := []struct {
		name string
		code []vm.LabelledInstruction
	}{
		{"undefined label", []vm.LabelledInstruction{vm.CallLabel("missing")}},
		{"duplicate label", []vm.LabelledInstruction{vm.LabelDef("a"), vm.Instr(vm.Halt), vm.LabelDef("a")}},
		{"argument out of range", []vm.LabelledInstruction{vm.InstrArg(vm.Pop, field.New(6))}},
		{"missing argument", []vm.LabelledInstruction{vm.Instr(vm.Dup)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := vm.Link(tt.code)
			assert.Error(t, err)
		})
	}
}

// TestListing tests the textual rendering of labelled code
func TestListing(t *testing.T) {
	code := []vm.LabelledInstruction{
		vm.LabelDef("main"),
		vm.InstrArg(vm.Push, field.New(7)),
		vm.CallLabel("main"),
		vm.Instr(vm.Halt),
	}

	assert.Equal(t, "main:\n    push 7\n    call main\n    halt\n", vm.Listing(code))
}

// TestDecodeInstruction tests the round trip through the word encoding
func TestDecodeInstruction(t *testing.T) {
	arg := field.New(3)
	inst, err := vm.NewEncodedInstruction(vm.Dup, &arg)
	require.NoError(t, err)

	decoded, err := vm.DecodeInstruction(inst.Words(), 0)
	require.NoError(t, err)
	assert.Equal(t, vm.Dup, decoded.Instruction)
	assert.Equal(t, uint64(3), decoded.Argument.Value())

	_, err = vm.DecodeInstruction([]field.Element{field.New(999)}, 0)
	assert.Error(t, err)
}
