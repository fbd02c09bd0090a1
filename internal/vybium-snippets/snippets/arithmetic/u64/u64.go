// Package u64 holds snippets over u64 values, pushed as "_ hi lo" u32 limbs.
package u64

import (
	"fmt"
	"math/bits"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-snippets/internal/vybium-snippets/asm"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/datatype"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/library"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippet"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/utils"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/vm"
)

var (
	ErrOverflow  = errors.New("u64 overflow")
	ErrUnderflow = errors.New("u64 underflow")
	ErrShift     = errors.New("shift amount must be below 64")
	ErrLogZero   = errors.New("logarithm of zero")
)

// twoToThe32 is the value a limb reaches when it carries
const twoToThe32 = utils.U32Limit

func value(name string) datatype.Param { return datatype.NewParam(name, datatype.U64) }

// u64Stack returns a state holding the given u64 values, the last on top
func u64Stack(values ...uint64) snippet.ExecutionState {
	state := snippet.WithStack()
	for _, x := range values {
		state.PushU64(x)
	}
	return state
}

// edgeValues are the u64 values every snippet is checked against
var edgeValues = []uint64{0, 1, twoToThe32 - 1, twoToThe32, 1 << 63, ^uint64(0) - 1, ^uint64(0)}

func randomValues(rng *utils.Prng, n int) []uint64 {
	values := make([]uint64, n)
	for i := range values {
		// vary the magnitude so small and large values both occur
		values[i] = rng.Uint64() >> uint(rng.Intn(64))
	}
	return values
}

// Incr computes _ v -> _ (v+1) and crashes on overflow
type Incr struct{}

func (Incr) Entrypoint() string { return "vybium_arithmetic_u64_incr" }
func (Incr) Inputs() []datatype.Param { return []datatype.Param{value("value")} }
func (Incr) Outputs() []datatype.Param { return []datatype.Param{value("value + 1")} }
func (Incr) StackDiff() int { return 0 }
func (Incr) CrashConditions() []string { return []string{"value is 2^64 - 1"} }

func (s Incr) Code(*library.Library) []vm.LabelledInstruction {
	return asm.MustParse(fmt.Sprintf(`
	%[1]s:
		addi 1
		dup 0 push %[2]d eq
		skiz call %[1]s_carry
		return

	// _ hi 2^32 -> _ (hi+1) 0
	%[1]s_carry:
		pop 1
		addi 1
		dup 0 push %[2]d eq push 0 eq assert
		push 0
		return
	`, s.Entrypoint(), twoToThe32))
}

func (Incr) Reference(state *snippet.ExecutionState) error {
	v, err := state.PopU64()
	if err != nil {
		return err
	}
	if v == ^uint64(0) {
		return ErrOverflow
	}
	state.PushU64(v + 1)
	return nil
}

func (Incr) InitialStates(rng *utils.Prng) []snippet.ExecutionState {
	var states []snippet.ExecutionState
	for _, v := range append(edgeValues[:6:6], randomValues(rng, 10)...) {
		states = append(states, u64Stack(v))
	}
	return states
}

func (Incr) CommonCaseState() snippet.ExecutionState { return u64Stack(1 << 20) }

func (Incr) WorstCaseState() snippet.ExecutionState { return u64Stack(twoToThe32 - 1) }

func (Incr) CrashStates(*utils.Prng) []snippet.ExecutionState {
	return []snippet.ExecutionState{u64Stack(^uint64(0))}
}

// Decr computes _ v -> _ (v-1) and crashes on zero
type Decr struct{}

func (Decr) Entrypoint() string { return "vybium_arithmetic_u64_decr" }
func (Decr) Inputs() []datatype.Param { return []datatype.Param{value("value")} }
func (Decr) Outputs() []datatype.Param { return []datatype.Param{value("value - 1")} }
func (Decr) StackDiff() int { return 0 }
func (Decr) CrashConditions() []string { return []string{"value is 0"} }

func (s Decr) Code(*library.Library) []vm.LabelledInstruction {
	return asm.MustParse(fmt.Sprintf(`
	%[1]s:
		push -1 add
		dup 0 push -1 eq
		skiz call %[1]s_carry
		return

	// _ hi -1 -> _ (hi-1) (2^32-1)
	%[1]s_carry:
		pop 1
		push -1 add
		dup 0 push -1 eq push 0 eq assert
		push %[2]d
		return
	`, s.Entrypoint(), twoToThe32-1))
}

func (Decr) Reference(state *snippet.ExecutionState) error {
	v, err := state.PopU64()
	if err != nil {
		return err
	}
	if v == 0 {
		return ErrUnderflow
	}
	state.PushU64(v - 1)
	return nil
}

func (Decr) InitialStates(rng *utils.Prng) []snippet.ExecutionState {
	var states []snippet.ExecutionState
	for _, v := range append(edgeValues[1:len(edgeValues):len(edgeValues)], randomValues(rng, 10)...) {
		if v == 0 {
			continue
		}
		states = append(states, u64Stack(v))
	}
	return states
}

func (Decr) CommonCaseState() snippet.ExecutionState { return u64Stack(1 << 20) }

func (Decr) WorstCaseState() snippet.ExecutionState { return u64Stack(twoToThe32) }

func (Decr) CrashStates(*utils.Prng) []snippet.ExecutionState {
	return []snippet.ExecutionState{u64Stack(0)}
}

// binaryStates pairs every edge value with every other and adds random pairs
func binaryStates(rng *utils.Prng, keep func(lhs, rhs uint64) bool) []snippet.ExecutionState {
	var states []snippet.ExecutionState
	for _, lhs := range edgeValues {
		for _, rhs := range edgeValues {
			if keep(lhs, rhs) {
				states = append(states, u64Stack(lhs, rhs))
			}
		}
	}
	for _, lhs := range randomValues(rng, 10) {
		rhs := rng.Uint64() >> uint(rng.Intn(64))
		if keep(lhs, rhs) {
			states = append(states, u64Stack(lhs, rhs))
		}
		if keep(lhs, lhs) {
			states = append(states, u64Stack(lhs, lhs))
		}
	}
	return states
}

func always(uint64, uint64) bool { return true }

// Eq computes _ lhs rhs -> _ (lhs == rhs)
type Eq struct{}

func (Eq) Entrypoint() string { return "vybium_arithmetic_u64_eq" }

func (Eq) Inputs() []datatype.Param {
	return []datatype.Param{value("lhs"), value("rhs")}
}

func (Eq) Outputs() []datatype.Param {
	return []datatype.Param{datatype.NewParam("lhs == rhs", datatype.Bool)}
}

func (Eq) StackDiff() int { return -3 }

func (Eq) CrashConditions() []string { return nil }

func (s Eq) Code(*library.Library) []vm.LabelledInstruction {
	return asm.MustParse(fmt.Sprintf(`
	%s:
		// _ lhs_hi lhs_lo rhs_hi rhs_lo
		swap 3 eq
		swap 2 eq
		mul
		return
	`, s.Entrypoint()))
}

func (Eq) Reference(state *snippet.ExecutionState) error {
	rhs, err := state.PopU64()
	if err != nil {
		return err
	}
	lhs, err := state.PopU64()
	if err != nil {
		return err
	}
	state.Push(datatype.EncodeBool(lhs == rhs)...)
	return nil
}

func (Eq) InitialStates(rng *utils.Prng) []snippet.ExecutionState { return binaryStates(rng, always) }

func (Eq) CommonCaseState() snippet.ExecutionState { return u64Stack(1<<40, 1<<40) }

func (Eq) WorstCaseState() snippet.ExecutionState { return u64Stack(^uint64(0), ^uint64(0)) }

// Lt computes _ lhs rhs -> _ (lhs < rhs)
type Lt struct{}

func (Lt) Entrypoint() string { return "vybium_arithmetic_u64_lt" }

func (Lt) Inputs() []datatype.Param {
	return []datatype.Param{value("lhs"), value("rhs")}
}

func (Lt) Outputs() []datatype.Param {
	return []datatype.Param{datatype.NewParam("lhs < rhs", datatype.Bool)}
}

func (Lt) StackDiff() int { return -3 }

func (Lt) CrashConditions() []string { return []string{"a limb is not a u32"} }

func (s Lt) Code(*library.Library) []vm.LabelledInstruction {
	return asm.MustParse(fmt.Sprintf(`
	%s:
		// _ lhs_hi lhs_lo rhs_hi rhs_lo
		dup 1 dup 4 lt
		// _ lhs_hi lhs_lo rhs_hi rhs_lo (lhs_hi < rhs_hi)
		dup 4 dup 3 eq
		dup 2 dup 5 lt
		mul add
		swap 4 pop 4
		return
	`, s.Entrypoint()))
}

func (Lt) Reference(state *snippet.ExecutionState) error {
	rhs, err := state.PopU64()
	if err != nil {
		return err
	}
	lhs, err := state.PopU64()
	if err != nil {
		return err
	}
	state.Push(datatype.EncodeBool(lhs < rhs)...)
	return nil
}

func (Lt) InitialStates(rng *utils.Prng) []snippet.ExecutionState { return binaryStates(rng, always) }

func (Lt) CommonCaseState() snippet.ExecutionState { return u64Stack(1<<40, 1<<40+1) }

func (Lt) WorstCaseState() snippet.ExecutionState { return u64Stack(^uint64(0)-1, ^uint64(0)) }

// Add computes _ lhs rhs -> _ (lhs+rhs) and crashes on overflow
type Add struct{}

func (Add) Entrypoint() string { return "vybium_arithmetic_u64_add" }

func (Add) Inputs() []datatype.Param {
	return []datatype.Param{value("lhs"), value("rhs")}
}

func (Add) Outputs() []datatype.Param { return []datatype.Param{value("sum")} }

func (Add) StackDiff() int { return -2 }

func (Add) CrashConditions() []string { return []string{"lhs + rhs overflows a u64"} }

func (s Add) Code(*library.Library) []vm.LabelledInstruction {
	return asm.MustParse(fmt.Sprintf(`
	%s:
		// _ lhs_hi lhs_lo rhs_hi rhs_lo
		pick 2 add split
		// _ lhs_hi rhs_hi carry lo
		place 3
		add add split
		// _ lo overflow hi
		swap 1 push 0 eq assert
		swap 1
		return
	`, s.Entrypoint()))
}

func (Add) Reference(state *snippet.ExecutionState) error {
	rhs, err := state.PopU64()
	if err != nil {
		return err
	}
	lhs, err := state.PopU64()
	if err != nil {
		return err
	}

	sum, overflow := new(uint256.Int).AddOverflow(uint256.NewInt(lhs), uint256.NewInt(rhs))
	if overflow || !sum.IsUint64() {
		return errors.Wrapf(ErrOverflow, "%d + %d", lhs, rhs)
	}
	state.PushU64(sum.Uint64())
	return nil
}

func noOverflow(lhs, rhs uint64) bool {
	_, carry := bits.Add64(lhs, rhs, 0)
	return carry == 0
}

func (Add) InitialStates(rng *utils.Prng) []snippet.ExecutionState {
	return binaryStates(rng, noOverflow)
}

func (Add) CommonCaseState() snippet.ExecutionState { return u64Stack(1<<31, 1<<31) }

func (Add) WorstCaseState() snippet.ExecutionState { return u64Stack(1<<63, 1<<63-1) }

func (Add) CrashStates(rng *utils.Prng) []snippet.ExecutionState {
	return []snippet.ExecutionState{
		u64Stack(^uint64(0), 1),
		u64Stack(1<<63, 1<<63),
		u64Stack(rng.Uint64()|1<<63, rng.Uint64()|1<<63),
	}
}

// PopCount computes _ v -> _ (number of set bits in v)
type PopCount struct{}

func (PopCount) Entrypoint() string { return "vybium_arithmetic_u64_popcount" }

func (PopCount) Inputs() []datatype.Param { return []datatype.Param{value("value")} }

func (PopCount) Outputs() []datatype.Param {
	return []datatype.Param{datatype.NewParam("popcount", datatype.U32)}
}

func (PopCount) StackDiff() int { return -1 }

func (PopCount) CrashConditions() []string { return nil }

func (s PopCount) Code(*library.Library) []vm.LabelledInstruction {
	return asm.MustParse(fmt.Sprintf(`
	%s:
		pop_count
		swap 1 pop_count
		add
		return
	`, s.Entrypoint()))
}

func (PopCount) Reference(state *snippet.ExecutionState) error {
	v, err := state.PopU64()
	if err != nil {
		return err
	}
	state.Push(field.New(uint64(bits.OnesCount64(v))))
	return nil
}

func (PopCount) InitialStates(rng *utils.Prng) []snippet.ExecutionState {
	var states []snippet.ExecutionState
	for _, v := range append(append([]uint64(nil), edgeValues...), randomValues(rng, 10)...) {
		states = append(states, u64Stack(v))
	}
	return states
}

func (PopCount) CommonCaseState() snippet.ExecutionState { return u64Stack(1<<32 - 1) }

func (PopCount) WorstCaseState() snippet.ExecutionState { return u64Stack(^uint64(0)) }
