// Package io moves typed values between the stack and the input and output
// streams.
package io

import (
	"fmt"

	"github.com/vybium/vybium-snippets/internal/vybium-snippets/asm"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/datatype"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/library"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippet"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/utils"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/vm"
)

func entrypoint(name string, t datatype.DataType) string {
	return "vybium_io_" + name + "___" + t.LabelFriendlyName()
}

func single(name string, t datatype.DataType) []datatype.Param {
	return []datatype.Param{datatype.NewParam(name, t)}
}

// ReadInput reads one value from public input: _ -> _ value
type ReadInput struct {
	Type datatype.DataType
}

func (s ReadInput) Entrypoint() string { return entrypoint("read_input", s.Type) }
func (ReadInput) Inputs() []datatype.Param { return nil }
func (s ReadInput) Outputs() []datatype.Param { return single("value", s.Type) }
func (s ReadInput) StackDiff() int { return s.Type.Width() }
func (ReadInput) CrashConditions() []string { return []string{"public input is exhausted"} }

func (s ReadInput) Code(*library.Library) []vm.LabelledInstruction {
	return asm.MustParse(fmt.Sprintf("%s: read_io %d return", s.Entrypoint(), s.Type.Width()))
}

func (s ReadInput) Reference(state *snippet.ExecutionState) error {
	words, err := state.ReadInput(s.Type.Width())
	if err != nil {
		return err
	}
	state.Push(words...)
	return nil
}

func (ReadInput) withInput(values []datatype.DataType, rng *utils.Prng) snippet.ExecutionState {
	state := snippet.WithStack()
	for _, t := range values {
		state.PublicInput = append(state.PublicInput, t.Random(rng)...)
	}
	return state
}

func (s ReadInput) InitialStates(rng *utils.Prng) []snippet.ExecutionState {
	return []snippet.ExecutionState{
		s.withInput([]datatype.DataType{s.Type}, rng),
		s.withInput([]datatype.DataType{s.Type, s.Type, s.Type}, rng),
	}
}

func (s ReadInput) CommonCaseState() snippet.ExecutionState {
	return s.withInput([]datatype.DataType{s.Type}, utils.NewPrng(s.Entrypoint()))
}

func (s ReadInput) WorstCaseState() snippet.ExecutionState { return s.CommonCaseState() }

func (ReadInput) CrashStates(*utils.Prng) []snippet.ExecutionState {
	return []snippet.ExecutionState{snippet.WithStack()}
}

// DivineValue reads one value from the secret input: _ -> _ value
type DivineValue struct {
	Type datatype.DataType
}

func (s DivineValue) Entrypoint() string { return entrypoint("divine", s.Type) }
func (DivineValue) Inputs() []datatype.Param { return nil }
func (s DivineValue) Outputs() []datatype.Param { return single("value", s.Type) }
func (s DivineValue) StackDiff() int { return s.Type.Width() }
func (DivineValue) CrashConditions() []string { return []string{"secret input is exhausted"} }

func (s DivineValue) Code(*library.Library) []vm.LabelledInstruction {
	return asm.MustParse(fmt.Sprintf("%s: divine %d return", s.Entrypoint(), s.Type.Width()))
}

func (s DivineValue) Reference(state *snippet.ExecutionState) error {
	words, err := state.Divine(s.Type.Width())
	if err != nil {
		return err
	}
	state.Push(words...)
	return nil
}

func (s DivineValue) withSecret(count int, rng *utils.Prng) snippet.ExecutionState {
	state := snippet.WithStack()
	for i := 0; i < count; i++ {
		state.SecretInput = append(state.SecretInput, s.Type.Random(rng)...)
	}
	return state
}

func (s DivineValue) InitialStates(rng *utils.Prng) []snippet.ExecutionState {
	return []snippet.ExecutionState{s.withSecret(1, rng), s.withSecret(2, rng)}
}

func (s DivineValue) CommonCaseState() snippet.ExecutionState {
	return s.withSecret(1, utils.NewPrng(s.Entrypoint()))
}

func (s DivineValue) WorstCaseState() snippet.ExecutionState { return s.CommonCaseState() }

func (DivineValue) CrashStates(*utils.Prng) []snippet.ExecutionState {
	return []snippet.ExecutionState{snippet.WithStack()}
}

// WriteOutput writes the value on top of the stack to public output, top
// word first: _ value -> _
type WriteOutput struct {
	Type datatype.DataType
}

func (s WriteOutput) Entrypoint() string { return entrypoint("write_to_stdout", s.Type) }
func (s WriteOutput) Inputs() []datatype.Param { return single("value", s.Type) }
func (WriteOutput) Outputs() []datatype.Param { return nil }
func (s WriteOutput) StackDiff() int { return -s.Type.Width() }
func (WriteOutput) CrashConditions() []string { return nil }

func (s WriteOutput) Code(*library.Library) []vm.LabelledInstruction {
	return asm.MustParse(fmt.Sprintf("%s: write_io %d return", s.Entrypoint(), s.Type.Width()))
}

func (s WriteOutput) Reference(state *snippet.ExecutionState) error {
	words, err := state.PopN(s.Type.Width())
	if err != nil {
		return err
	}
	for i := len(words) - 1; i >= 0; i-- {
		state.WriteOutput(words[i])
	}
	return nil
}

func (s WriteOutput) InitialStates(rng *utils.Prng) []snippet.ExecutionState {
	states := make([]snippet.ExecutionState, 5)
	for i := range states {
		states[i] = snippet.WithStack(s.Type.Random(rng)...)
	}
	return states
}

func (s WriteOutput) CommonCaseState() snippet.ExecutionState {
	return snippet.WithStack(s.Type.Random(utils.NewPrng(s.Entrypoint()))...)
}

func (s WriteOutput) WorstCaseState() snippet.ExecutionState { return s.CommonCaseState() }
