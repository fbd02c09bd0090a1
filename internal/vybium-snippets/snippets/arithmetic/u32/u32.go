// Package u32 holds snippets over single u32 words.
package u32

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-snippets/internal/vybium-snippets/asm"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/datatype"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/library"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippet"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/utils"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/vm"
)

// ErrOverflow is returned when a sum leaves the u32 range
var ErrOverflow = errors.New("u32 overflow")

func param(name string, t datatype.DataType) []datatype.Param {
	return []datatype.Param{datatype.NewParam(name, t)}
}

func u32States(rng *utils.Prng, edge ...uint64) []snippet.ExecutionState {
	states := make([]snippet.ExecutionState, 0, len(edge)+10)
	for _, x := range edge {
		states = append(states, snippet.WithStack(field.New(x)))
	}
	for i := 0; i < 10; i++ {
		states = append(states, snippet.WithStack(field.New(uint64(rng.Uint32()))))
	}
	return states
}

// IsOdd computes _ a -> _ (a mod 2)
type IsOdd struct{}

func (IsOdd) Entrypoint() string { return "vybium_arithmetic_u32_is_odd" }
func (IsOdd) Inputs() []datatype.Param { return param("value", datatype.U32) }
func (IsOdd) Outputs() []datatype.Param { return param("value % 2", datatype.Bool) }
func (IsOdd) StackDiff() int { return 0 }
func (IsOdd) CrashConditions() []string { return []string{"value is not a u32"} }

func (s IsOdd) Code(*library.Library) []vm.LabelledInstruction {
	return asm.MustParse(fmt.Sprintf(`
	%s:
		push 2 swap 1 div_mod
		swap 1 pop 1
		return
	`, s.Entrypoint()))
}

func (IsOdd) Reference(state *snippet.ExecutionState) error {
	a, err := state.PopU32()
	if err != nil {
		return err
	}
	state.Push(field.New(uint64(a % 2)))
	return nil
}

func (IsOdd) InitialStates(rng *utils.Prng) []snippet.ExecutionState {
	return u32States(rng, 0, 1, 2, utils.U32Limit-1)
}

func (IsOdd) CommonCaseState() snippet.ExecutionState { return snippet.WithStack(field.New(1 << 16)) }

func (IsOdd) WorstCaseState() snippet.ExecutionState {
	return snippet.WithStack(field.New(utils.U32Limit - 1))
}

func (IsOdd) CrashStates(*utils.Prng) []snippet.ExecutionState {
	return []snippet.ExecutionState{snippet.WithStack(field.New(utils.U32Limit))}
}

// IsU32 computes _ a -> _ (a < 2^32) for any field element
type IsU32 struct{}

func (IsU32) Entrypoint() string { return "vybium_arithmetic_u32_is_u32" }
func (IsU32) Inputs() []datatype.Param { return param("value", datatype.BFE) }
func (IsU32) Outputs() []datatype.Param { return param("value < 2^32", datatype.Bool) }
func (IsU32) StackDiff() int { return 0 }
func (IsU32) CrashConditions() []string { return nil }

func (s IsU32) Code(*library.Library) []vm.LabelledInstruction {
	return asm.MustParse(fmt.Sprintf(`
	%s:
		split pop 1
		push 0 eq
		return
	`, s.Entrypoint()))
}

func (IsU32) Reference(state *snippet.ExecutionState) error {
	a, err := state.Pop()
	if err != nil {
		return err
	}
	state.Push(datatype.EncodeBool(utils.IsU32(a))...)
	return nil
}

func (IsU32) InitialStates(rng *utils.Prng) []snippet.ExecutionState {
	states := u32States(rng, 0, utils.U32Limit-1, utils.U32Limit, field.P-1)
	for i := 0; i < 10; i++ {
		states = append(states, snippet.WithStack(rng.FieldElement()))
	}
	return states
}

func (IsU32) CommonCaseState() snippet.ExecutionState { return snippet.WithStack(field.New(1 << 16)) }

func (IsU32) WorstCaseState() snippet.ExecutionState { return snippet.WithStack(field.New(field.P - 1)) }

// SafeAdd computes _ a b -> _ (a+b), crashing when the sum is not a u32
type SafeAdd struct{}

func (SafeAdd) Entrypoint() string { return "vybium_arithmetic_u32_safe_add" }

func (SafeAdd) Inputs() []datatype.Param {
	return []datatype.Param{datatype.NewParam("lhs", datatype.U32), datatype.NewParam("rhs", datatype.U32)}
}

func (SafeAdd) Outputs() []datatype.Param { return param("lhs + rhs", datatype.U32) }

func (SafeAdd) StackDiff() int { return -1 }

func (SafeAdd) CrashConditions() []string { return []string{"lhs + rhs overflows a u32"} }

func (s SafeAdd) Code(*library.Library) []vm.LabelledInstruction {
	return asm.MustParse(fmt.Sprintf(`
	%s:
		add
		dup 0 split pop 1 push 0 eq assert
		return
	`, s.Entrypoint()))
}

func (SafeAdd) Reference(state *snippet.ExecutionState) error {
	operands, err := state.PopN(2)
	if err != nil {
		return err
	}
	sum := operands[0].Add(operands[1])
	if !utils.IsU32(sum) {
		return errors.Wrapf(ErrOverflow, "%d + %d", operands[0].Value(), operands[1].Value())
	}
	state.Push(sum)
	return nil
}

func pair(a, b uint64) snippet.ExecutionState {
	return snippet.WithStack(field.New(a), field.New(b))
}

func (SafeAdd) InitialStates(rng *utils.Prng) []snippet.ExecutionState {
	states := []snippet.ExecutionState{
		pair(0, 0),
		pair(utils.U32Limit-1, 0),
		pair(1<<31, 1<<31-1),
	}
	for i := 0; i < 10; i++ {
		a := uint64(rng.Uint32())
		b := uint64(rng.Uint32()) % (utils.U32Limit - a)
		states = append(states, pair(a, b))
	}
	return states
}

func (SafeAdd) CommonCaseState() snippet.ExecutionState { return pair(1<<16, 1<<15) }

func (SafeAdd) WorstCaseState() snippet.ExecutionState { return pair(1<<31, 1<<31-1) }

func (SafeAdd) CrashStates(rng *utils.Prng) []snippet.ExecutionState {
	a := uint64(rng.Uint32()) | 1<<31
	return []snippet.ExecutionState{
		pair(utils.U32Limit-1, 1),
		pair(a, a),
	}
}
