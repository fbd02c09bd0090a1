// Package hashing wraps the hash and sponge instructions as snippets.
package hashing

import (
	"fmt"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/hash"

	"github.com/vybium/vybium-snippets/internal/vybium-snippets/asm"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/datatype"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/library"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippet"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/utils"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/vm"
)

func digestPair() []datatype.Param {
	return []datatype.Param{
		datatype.NewParam("left", datatype.Digest),
		datatype.NewParam("right", datatype.Digest),
	}
}

// pairState returns a state with two random digests on the stack
func pairState(rng *utils.Prng) snippet.ExecutionState {
	return snippet.WithStack(rng.FieldElements(2 * vm.DigestLength)...)
}

func popRate(state *snippet.ExecutionState) ([vm.SpongeRate]field.Element, error) {
	var input [vm.SpongeRate]field.Element
	words, err := state.PopN(vm.SpongeRate)
	if err != nil {
		return input, err
	}
	copy(input[:], words)
	return input, nil
}

// HashPair hashes two digests into their parent: _ left right -> _ parent
type HashPair struct{}

func (HashPair) Entrypoint() string { return "vybium_hashing_hash_pair" }

func (HashPair) Inputs() []datatype.Param { return digestPair() }

func (HashPair) Outputs() []datatype.Param {
	return []datatype.Param{datatype.NewParam("parent", datatype.Digest)}
}

func (HashPair) StackDiff() int { return -vm.DigestLength }

func (HashPair) CrashConditions() []string { return nil }

func (s HashPair) Code(*library.Library) []vm.LabelledInstruction {
	return asm.MustParse(fmt.Sprintf("%s: hash return", s.Entrypoint()))
}

func (HashPair) Reference(state *snippet.ExecutionState) error {
	input, err := popRate(state)
	if err != nil {
		return err
	}
	state.Push(datatype.EncodeDigest(vm.HashTen(input))...)
	return nil
}

func (HashPair) InitialStates(rng *utils.Prng) []snippet.ExecutionState {
	zeros := make([]field.Element, 2*vm.DigestLength)
	for i := range zeros {
		zeros[i] = field.Zero
	}
	states := []snippet.ExecutionState{snippet.WithStack(zeros...)}
	for i := 0; i < 5; i++ {
		states = append(states, pairState(rng))
	}
	return states
}

func (HashPair) CommonCaseState() snippet.ExecutionState {
	return pairState(utils.NewPrng("hash pair"))
}

func (s HashPair) WorstCaseState() snippet.ExecutionState { return s.CommonCaseState() }

// Digest returns the parent HashPair computes for left and right
func Digest(left, right hash.Digest) hash.Digest {
	var input [vm.SpongeRate]field.Element
	copy(input[:vm.DigestLength], left[:])
	copy(input[vm.DigestLength:], right[:])
	return vm.HashTen(input)
}

// InitSponge resets the sponge: _ -> _
type InitSponge struct{}

func (InitSponge) Entrypoint() string { return "vybium_hashing_sponge_init" }

func (InitSponge) Inputs() []datatype.Param { return nil }

func (InitSponge) Outputs() []datatype.Param { return nil }

func (InitSponge) StackDiff() int { return 0 }

func (InitSponge) CrashConditions() []string { return nil }

func (s InitSponge) Code(*library.Library) []vm.LabelledInstruction {
	return asm.MustParse(fmt.Sprintf("%s: sponge_init return", s.Entrypoint()))
}

func (InitSponge) Reference(state *snippet.ExecutionState) error {
	state.Sponge = vm.NewSponge()
	return nil
}

func (InitSponge) InitialStates(rng *utils.Prng) []snippet.ExecutionState {
	return []snippet.ExecutionState{snippet.WithStack(), spongeState(rng, 3)}
}

func (InitSponge) CommonCaseState() snippet.ExecutionState { return snippet.WithStack() }

func (InitSponge) WorstCaseState() snippet.ExecutionState {
	return spongeState(utils.NewPrng("sponge init"), 1)
}

// spongeState returns a state whose sponge absorbed rounds random chunks
func spongeState(rng *utils.Prng, rounds int) snippet.ExecutionState {
	state := snippet.WithStack()
	state.Sponge = vm.NewSponge()
	for i := 0; i < rounds; i++ {
		var chunk [vm.SpongeRate]field.Element
		copy(chunk[:], rng.FieldElements(vm.SpongeRate))
		state.Sponge.Absorb(chunk)
	}
	return state
}

// AbsorbPair absorbs two digests into the sponge: _ left right -> _
type AbsorbPair struct{}

func (AbsorbPair) Entrypoint() string { return "vybium_hashing_absorb_pair" }

func (AbsorbPair) Inputs() []datatype.Param { return digestPair() }

func (AbsorbPair) Outputs() []datatype.Param { return nil }

func (AbsorbPair) StackDiff() int { return -vm.SpongeRate }

func (AbsorbPair) CrashConditions() []string { return []string{"sponge is not initialized"} }

func (s AbsorbPair) Code(*library.Library) []vm.LabelledInstruction {
	return asm.MustParse(fmt.Sprintf("%s: sponge_absorb return", s.Entrypoint()))
}

func (AbsorbPair) Reference(state *snippet.ExecutionState) error {
	sponge, err := state.RequireSponge()
	if err != nil {
		return err
	}
	input, err := popRate(state)
	if err != nil {
		return err
	}
	sponge.Absorb(input)
	return nil
}

func (AbsorbPair) state(rng *utils.Prng, rounds int) snippet.ExecutionState {
	state := spongeState(rng, rounds)
	state.Push(rng.FieldElements(vm.SpongeRate)...)
	return state
}

func (s AbsorbPair) InitialStates(rng *utils.Prng) []snippet.ExecutionState {
	return []snippet.ExecutionState{s.state(rng, 0), s.state(rng, 1), s.state(rng, 4)}
}

func (s AbsorbPair) CommonCaseState() snippet.ExecutionState {
	return s.state(utils.NewPrng("absorb pair"), 1)
}

func (s AbsorbPair) WorstCaseState() snippet.ExecutionState { return s.CommonCaseState() }

func (AbsorbPair) CrashStates(rng *utils.Prng) []snippet.ExecutionState {
	return []snippet.ExecutionState{pairState(rng)}
}

// SqueezeScalar squeezes the sponge and keeps the first word: _ -> _ scalar
type SqueezeScalar struct{}

func (SqueezeScalar) Entrypoint() string { return "vybium_hashing_squeeze_scalar" }

func (SqueezeScalar) Inputs() []datatype.Param { return nil }

func (SqueezeScalar) Outputs() []datatype.Param {
	return []datatype.Param{datatype.NewParam("scalar", datatype.BFE)}
}

func (SqueezeScalar) StackDiff() int { return 1 }

func (SqueezeScalar) CrashConditions() []string { return []string{"sponge is not initialized"} }

func (s SqueezeScalar) Code(*library.Library) []vm.LabelledInstruction {
	return asm.MustParse(fmt.Sprintf(`
	%s:
		sponge_squeeze
		pop 5 pop 4
		return
	`, s.Entrypoint()))
}

func (SqueezeScalar) Reference(state *snippet.ExecutionState) error {
	sponge, err := state.RequireSponge()
	if err != nil {
		return err
	}
	squeezed := sponge.Squeeze()
	state.Push(squeezed[0])
	return nil
}

func (SqueezeScalar) InitialStates(rng *utils.Prng) []snippet.ExecutionState {
	return []snippet.ExecutionState{spongeState(rng, 0), spongeState(rng, 1), spongeState(rng, 2)}
}

func (SqueezeScalar) CommonCaseState() snippet.ExecutionState {
	return spongeState(utils.NewPrng("squeeze scalar"), 1)
}

func (s SqueezeScalar) WorstCaseState() snippet.ExecutionState { return s.CommonCaseState() }

func (SqueezeScalar) CrashStates(*utils.Prng) []snippet.ExecutionState {
	return []snippet.ExecutionState{snippet.WithStack()}
}
