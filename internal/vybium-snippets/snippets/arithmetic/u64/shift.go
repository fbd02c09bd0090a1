package u64

import (
	"fmt"
	"math/bits"

	"github.com/pkg/errors"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-snippets/internal/vybium-snippets/asm"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/datatype"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/library"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippet"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/utils"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/vm"
)

// ShiftRight computes _ v shift -> _ (v >> shift) for shift below 64
type ShiftRight struct{}

func (ShiftRight) Entrypoint() string { return "vybium_arithmetic_u64_shift_right" }

func (ShiftRight) Inputs() []datatype.Param {
	return []datatype.Param{value("value"), datatype.NewParam("shift", datatype.U32)}
}

func (ShiftRight) Outputs() []datatype.Param { return []datatype.Param{value("value >> shift")} }

func (ShiftRight) StackDiff() int { return -1 }

func (ShiftRight) CrashConditions() []string { return []string{"shift is 64 or more"} }

// Shifts up to 32 multiply both limbs by 2^(32-shift) and keep the high
// halves; larger shifts first move the high limb down and recurse.
func (s ShiftRight) Code(*library.Library) []vm.LabelledInstruction {
	return asm.MustParse(fmt.Sprintf(`
	%[1]s:
		// _ hi lo shift
		push 64 dup 1 lt assert
		dup 0 push 32 lt
		skiz call %[1]s_handle_hi_shift

		// _ hi lo shift, shift <= 32
		push -1 mul push 32 add
		push 2 pow
		// _ hi lo 2^(32-shift)
		swap 1 dup 1 mul
		split pop 1
		// _ hi mul lo_carry
		swap 2 mul
		split
		// _ lo_carry hi' carry
		swap 1 swap 2 add
		return

	// _ hi lo shift -> _ 0 hi (shift-32)
	%[1]s_handle_hi_shift:
		push -32 add
		swap 2 swap 1
		push 32 call %[1]s
		swap 1 swap 2
		return
	`, s.Entrypoint()))
}

func (ShiftRight) Reference(state *snippet.ExecutionState) error {
	shift, err := state.PopU32()
	if err != nil {
		return err
	}
	v, err := state.PopU64()
	if err != nil {
		return err
	}
	if shift >= 64 {
		return errors.Wrapf(ErrShift, "shift %d", shift)
	}
	state.PushU64(v >> shift)
	return nil
}

func shiftState(v uint64, shift uint32) snippet.ExecutionState {
	state := u64Stack(v)
	state.Push(field.New(uint64(shift)))
	return state
}

func (ShiftRight) InitialStates(rng *utils.Prng) []snippet.ExecutionState {
	var states []snippet.ExecutionState
	for _, v := range edgeValues {
		for _, shift := range []uint32{0, 1, 31, 32, 33, 63} {
			states = append(states, shiftState(v, shift))
		}
	}
	for _, v := range randomValues(rng, 10) {
		states = append(states, shiftState(v, uint32(rng.Intn(64))))
	}
	return states
}

func (ShiftRight) CommonCaseState() snippet.ExecutionState { return shiftState(1<<40, 8) }

func (ShiftRight) WorstCaseState() snippet.ExecutionState { return shiftState(^uint64(0), 63) }

func (ShiftRight) CrashStates(*utils.Prng) []snippet.ExecutionState {
	return []snippet.ExecutionState{shiftState(1, 64), shiftState(^uint64(0), 100)}
}

// Log2Floor computes _ v -> _ floor(log2(v)) and crashes on zero
type Log2Floor struct{}

func (Log2Floor) Entrypoint() string { return "vybium_arithmetic_u64_log_2_floor" }

func (Log2Floor) Inputs() []datatype.Param { return []datatype.Param{value("value")} }

func (Log2Floor) Outputs() []datatype.Param {
	return []datatype.Param{datatype.NewParam("log2_floor", datatype.U32)}
}

func (Log2Floor) StackDiff() int { return -1 }

func (Log2Floor) CrashConditions() []string { return []string{"value is 0"} }

func (s Log2Floor) Code(*library.Library) []vm.LabelledInstruction {
	return asm.MustParse(fmt.Sprintf(`
	%[1]s:
		// _ hi lo
		swap 1
		push 1 dup 1
		// _ lo hi 1 hi
		skiz call %[1]s_then
		skiz call %[1]s_else
		return

	// _ lo hi 1 -> _ (log2(hi)+32) 0
	%[1]s_then:
		pop 1
		swap 1 pop 1
		log_2_floor
		push 32 add
		push 0
		return

	// _ lo 0 -> _ log2(lo)
	%[1]s_else:
		pop 1
		log_2_floor
		return
	`, s.Entrypoint()))
}

func (Log2Floor) Reference(state *snippet.ExecutionState) error {
	v, err := state.PopU64()
	if err != nil {
		return err
	}
	if v == 0 {
		return ErrLogZero
	}
	state.Push(field.New(uint64(bits.Len64(v) - 1)))
	return nil
}

func (Log2Floor) InitialStates(rng *utils.Prng) []snippet.ExecutionState {
	var states []snippet.ExecutionState
	for _, v := range append(edgeValues[1:len(edgeValues):len(edgeValues)], randomValues(rng, 10)...) {
		if v != 0 {
			states = append(states, u64Stack(v))
		}
	}
	return states
}

func (Log2Floor) CommonCaseState() snippet.ExecutionState { return u64Stack(1 << 20) }

func (Log2Floor) WorstCaseState() snippet.ExecutionState { return u64Stack(^uint64(0)) }

func (Log2Floor) CrashStates(*utils.Prng) []snippet.ExecutionState {
	return []snippet.ExecutionState{u64Stack(0)}
}

// Pow2 computes _ e -> _ 2^e as a u64 for e below 64
type Pow2 struct{}

func (Pow2) Entrypoint() string { return "vybium_arithmetic_u64_pow2" }

func (Pow2) Inputs() []datatype.Param {
	return []datatype.Param{datatype.NewParam("exponent", datatype.U32)}
}

func (Pow2) Outputs() []datatype.Param { return []datatype.Param{value("2^exponent")} }

func (Pow2) StackDiff() int { return 1 }

func (Pow2) CrashConditions() []string { return []string{"exponent is 64 or more"} }

func (s Pow2) Code(*library.Library) []vm.LabelledInstruction {
	return asm.MustParse(fmt.Sprintf(`
	%s:
		push 64 dup 1 lt assert
		push 2 pow
		split
		return
	`, s.Entrypoint()))
}

func (Pow2) Reference(state *snippet.ExecutionState) error {
	exponent, err := state.PopU32()
	if err != nil {
		return err
	}
	if exponent >= 64 {
		return errors.Wrapf(ErrShift, "exponent %d", exponent)
	}
	state.PushU64(1 << exponent)
	return nil
}

func (Pow2) InitialStates(*utils.Prng) []snippet.ExecutionState {
	states := make([]snippet.ExecutionState, 64)
	for e := range states {
		states[e] = snippet.WithStack(field.New(uint64(e)))
	}
	return states
}

func (Pow2) CommonCaseState() snippet.ExecutionState { return snippet.WithStack(field.New(31)) }

func (Pow2) WorstCaseState() snippet.ExecutionState { return snippet.WithStack(field.New(63)) }

func (Pow2) CrashStates(*utils.Prng) []snippet.ExecutionState {
	return []snippet.ExecutionState{
		snippet.WithStack(field.New(64)),
		snippet.WithStack(field.New(utils.U32Limit - 1)),
	}
}
