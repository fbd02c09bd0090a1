// Package unsafelist implements lists laid out as [len, elements..] with no
// capacity word. Nothing but Pop checks bounds: writing past the allocated
// capacity silently overwrites whatever follows the list.
package unsafelist

import (
	"fmt"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-snippets/internal/vybium-snippets/asm"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/datatype"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/library"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/memory"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippet"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippets/dynmalloc"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/utils"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/vm"
)

func entrypoint(operation string, t datatype.DataType) string {
	return "vybium_list_unsafe_" + operation + "___" + t.LabelFriendlyName()
}

func pointer(t datatype.DataType) datatype.Param {
	return datatype.NewParam("*list", datatype.List(t))
}

func index() datatype.Param { return datatype.NewParam("index", datatype.U32) }

func element(t datatype.DataType) datatype.Param { return datatype.NewParam("element", t) }

// Allocate reserves room for capacity elements of type t and writes an empty
// list there, the way New does
func Allocate(m memory.Memory, t datatype.DataType, capacity uint64) (*memory.List, error) {
	size := memory.SizeInWords(memory.UnsafeListHeader, t.Width(), capacity)
	address, err := memory.DynMalloc(m, field.New(size))
	if err != nil {
		return nil, err
	}
	return memory.NewUnsafeList(m, address, t.Width()), nil
}

// listState returns a state holding a list of length random elements with
// room for capacity, and that list
func listState(rng *utils.Prng, t datatype.DataType, length, capacity uint64) (snippet.ExecutionState, *memory.List) {
	state := snippet.WithStack()
	list, err := Allocate(state.Memory, t, capacity)
	if err != nil {
		panic(err)
	}
	for i := uint64(0); i < length; i++ {
		if err := list.Push(t.Random(rng)); err != nil {
			panic(err)
		}
	}
	return state, list
}

// New allocates an empty list: _ capacity -> _ *list
type New struct {
	ElementType datatype.DataType
}

func (s New) Entrypoint() string { return entrypoint("new", s.ElementType) }

func (New) Inputs() []datatype.Param {
	return []datatype.Param{datatype.NewParam("capacity", datatype.U32)}
}

func (s New) Outputs() []datatype.Param { return []datatype.Param{pointer(s.ElementType)} }

func (New) StackDiff() int { return 0 }

func (New) CrashConditions() []string { return []string{"dynamic memory is exhausted"} }

func (s New) Code(lib *library.Library) []vm.LabelledInstruction {
	malloc := lib.Import(dynmalloc.DynMalloc{})
	return asm.MustParse(fmt.Sprintf(`
	%s:
		// _ capacity
		push %d mul addi %d
		call %s
		// _ *list
		push 0 swap 1
		write_mem 1
		addi -1
		return
	`, s.Entrypoint(), s.ElementType.Width(), memory.UnsafeListHeader, malloc))
}

func (s New) Reference(state *snippet.ExecutionState) error {
	capacity, err := state.PopU32()
	if err != nil {
		return err
	}
	list, err := Allocate(state.Memory, s.ElementType, uint64(capacity))
	if err != nil {
		return err
	}
	state.Push(field.New(list.Pointer))
	return nil
}

func capacityState(capacity uint64) snippet.ExecutionState {
	return snippet.WithStack(field.New(capacity))
}

func (New) InitialStates(rng *utils.Prng) []snippet.ExecutionState {
	states := []snippet.ExecutionState{capacityState(0), capacityState(1)}
	for i := 0; i < 5; i++ {
		states = append(states, capacityState(uint64(rng.Intn(1000))))
	}
	return states
}

func (New) CommonCaseState() snippet.ExecutionState { return capacityState(10) }

func (New) WorstCaseState() snippet.ExecutionState { return capacityState(1 << 16) }

func (New) CrashStates(*utils.Prng) []snippet.ExecutionState {
	return []snippet.ExecutionState{capacityState(utils.U32Limit - 1)}
}

// Length reads the length: _ *list -> _ length
type Length struct {
	ElementType datatype.DataType
}

func (s Length) Entrypoint() string { return entrypoint("length", s.ElementType) }

func (s Length) Inputs() []datatype.Param { return []datatype.Param{pointer(s.ElementType)} }

func (Length) Outputs() []datatype.Param {
	return []datatype.Param{datatype.NewParam("length", datatype.U32)}
}

func (Length) StackDiff() int { return 0 }

func (Length) CrashConditions() []string { return nil }

func (s Length) Code(*library.Library) []vm.LabelledInstruction {
	return asm.MustParse(fmt.Sprintf("%s: read_mem 1 pop 1 return", s.Entrypoint()))
}

func (s Length) Reference(state *snippet.ExecutionState) error {
	p, err := state.Pop()
	if err != nil {
		return err
	}
	state.Push(field.New(memory.UnsafeList(state.Memory, p.Value(), s.ElementType.Width()).Len()))
	return nil
}

func (s Length) state(rng *utils.Prng, length uint64) snippet.ExecutionState {
	state, list := listState(rng, s.ElementType, length, length)
	state.Push(field.New(list.Pointer))
	return state
}

func (s Length) InitialStates(rng *utils.Prng) []snippet.ExecutionState {
	return []snippet.ExecutionState{s.state(rng, 0), s.state(rng, 1), s.state(rng, uint64(rng.Intn(50)))}
}

func (s Length) CommonCaseState() snippet.ExecutionState {
	return s.state(utils.NewPrng(s.Entrypoint()), 10)
}

func (s Length) WorstCaseState() snippet.ExecutionState {
	return s.state(utils.NewPrng(s.Entrypoint()), 100)
}

// SetLength overwrites the length: _ *list length -> _ *list
type SetLength struct {
	ElementType datatype.DataType
}

func (s SetLength) Entrypoint() string { return entrypoint("set_length", s.ElementType) }

func (s SetLength) Inputs() []datatype.Param {
	return []datatype.Param{pointer(s.ElementType), datatype.NewParam("length", datatype.U32)}
}

func (s SetLength) Outputs() []datatype.Param { return []datatype.Param{pointer(s.ElementType)} }

func (SetLength) StackDiff() int { return -1 }

func (SetLength) CrashConditions() []string { return nil }

func (s SetLength) Code(*library.Library) []vm.LabelledInstruction {
	return asm.MustParse(fmt.Sprintf(`
	%s:
		// _ *list length
		dup 1 write_mem 1
		pop 1
		return
	`, s.Entrypoint()))
}

func (s SetLength) Reference(state *snippet.ExecutionState) error {
	length, err := state.Pop()
	if err != nil {
		return err
	}
	p, err := state.Peek(0)
	if err != nil {
		return err
	}
	memory.UnsafeList(state.Memory, p.Value(), s.ElementType.Width()).SetLen(length.Value())
	return nil
}

func (s SetLength) state(rng *utils.Prng, length, newLength uint64) snippet.ExecutionState {
	state, list := listState(rng, s.ElementType, length, length)
	state.Push(field.New(list.Pointer), field.New(newLength))
	return state
}

func (s SetLength) InitialStates(rng *utils.Prng) []snippet.ExecutionState {
	return []snippet.ExecutionState{
		s.state(rng, 5, 0),
		s.state(rng, 5, 3),
		s.state(rng, 0, 7),
	}
}

func (s SetLength) CommonCaseState() snippet.ExecutionState {
	return s.state(utils.NewPrng(s.Entrypoint()), 10, 5)
}

func (s SetLength) WorstCaseState() snippet.ExecutionState {
	return s.state(utils.NewPrng(s.Entrypoint()), 100, 0)
}

// Push appends an element: _ *list [element] -> _
type Push struct {
	ElementType datatype.DataType
}

func (s Push) Entrypoint() string { return entrypoint("push", s.ElementType) }

func (s Push) Inputs() []datatype.Param {
	return []datatype.Param{pointer(s.ElementType), element(s.ElementType)}
}

func (Push) Outputs() []datatype.Param { return nil }

func (s Push) StackDiff() int { return -1 - s.ElementType.Width() }

func (Push) CrashConditions() []string { return nil }

func (s Push) Code(*library.Library) []vm.LabelledInstruction {
	w := s.ElementType.Width()
	return asm.MustParse(fmt.Sprintf(`
	%[1]s:
		// _ *list [element]
		dup %[2]d read_mem 1 pop 1
		push %[2]d mul
		dup %[3]d add addi %[4]d
		// _ *list [element] *slot
		write_mem %[2]d pop 1

		dup 0 read_mem 1 pop 1
		addi 1
		swap 1 write_mem 1
		pop 1
		return
	`, s.Entrypoint(), w, w+1, memory.UnsafeListHeader))
}

func (s Push) Reference(state *snippet.ExecutionState) error {
	value, err := state.PopN(s.ElementType.Width())
	if err != nil {
		return err
	}
	p, err := state.Pop()
	if err != nil {
		return err
	}
	return memory.UnsafeList(state.Memory, p.Value(), s.ElementType.Width()).Push(value)
}

func (s Push) state(rng *utils.Prng, length uint64) snippet.ExecutionState {
	state, list := listState(rng, s.ElementType, length, length+1)
	state.Push(field.New(list.Pointer))
	state.Push(s.ElementType.Random(rng)...)
	return state
}

func (s Push) InitialStates(rng *utils.Prng) []snippet.ExecutionState {
	return []snippet.ExecutionState{s.state(rng, 0), s.state(rng, 1), s.state(rng, uint64(rng.Intn(50)))}
}

func (s Push) CommonCaseState() snippet.ExecutionState {
	return s.state(utils.NewPrng(s.Entrypoint()), 10)
}

func (s Push) WorstCaseState() snippet.ExecutionState {
	return s.state(utils.NewPrng(s.Entrypoint()), 100)
}

// Pop removes the last element: _ *list -> _ [element]
type Pop struct {
	ElementType datatype.DataType
}

func (s Pop) Entrypoint() string { return entrypoint("pop", s.ElementType) }

func (s Pop) Inputs() []datatype.Param { return []datatype.Param{pointer(s.ElementType)} }

func (s Pop) Outputs() []datatype.Param { return []datatype.Param{element(s.ElementType)} }

func (s Pop) StackDiff() int { return s.ElementType.Width() - 1 }

func (Pop) CrashConditions() []string { return []string{"list is empty"} }

func (s Pop) Code(*library.Library) []vm.LabelledInstruction {
	w := s.ElementType.Width()
	return asm.MustParse(fmt.Sprintf(`
	%[1]s:
		// _ *list
		dup 0 read_mem 1 pop 1
		dup 0 push 0 eq push 0 eq assert
		addi -1
		// _ *list new_length
		dup 0 dup 2 write_mem 1 pop 1
		push %[2]d mul add
		addi %[3]d
		// _ *last_word
		read_mem %[2]d pop 1
		return
	`, s.Entrypoint(), w, w+memory.UnsafeListHeader-1))
}

func (s Pop) Reference(state *snippet.ExecutionState) error {
	p, err := state.Pop()
	if err != nil {
		return err
	}
	value, err := memory.UnsafeList(state.Memory, p.Value(), s.ElementType.Width()).Pop()
	if err != nil {
		return err
	}
	state.Push(value...)
	return nil
}

func (s Pop) state(rng *utils.Prng, length uint64) snippet.ExecutionState {
	state, list := listState(rng, s.ElementType, length, length)
	state.Push(field.New(list.Pointer))
	return state
}

func (s Pop) InitialStates(rng *utils.Prng) []snippet.ExecutionState {
	return []snippet.ExecutionState{s.state(rng, 1), s.state(rng, 2), s.state(rng, 1+uint64(rng.Intn(50)))}
}

func (s Pop) CommonCaseState() snippet.ExecutionState {
	return s.state(utils.NewPrng(s.Entrypoint()), 10)
}

func (s Pop) WorstCaseState() snippet.ExecutionState {
	return s.state(utils.NewPrng(s.Entrypoint()), 100)
}

func (s Pop) CrashStates(rng *utils.Prng) []snippet.ExecutionState {
	return []snippet.ExecutionState{s.state(rng, 0)}
}

// Get reads an element: _ *list index -> _ [element]
type Get struct {
	ElementType datatype.DataType
}

func (s Get) Entrypoint() string { return entrypoint("get_element", s.ElementType) }

func (s Get) Inputs() []datatype.Param {
	return []datatype.Param{pointer(s.ElementType), index()}
}

func (s Get) Outputs() []datatype.Param { return []datatype.Param{element(s.ElementType)} }

func (s Get) StackDiff() int { return s.ElementType.Width() - 2 }

func (Get) CrashConditions() []string { return nil }

func (s Get) Code(*library.Library) []vm.LabelledInstruction {
	w := s.ElementType.Width()
	return asm.MustParse(fmt.Sprintf(`
	%[1]s:
		// _ *list index
		push %[2]d mul add
		addi %[3]d
		read_mem %[2]d pop 1
		return
	`, s.Entrypoint(), w, w+memory.UnsafeListHeader-1))
}

func (s Get) Reference(state *snippet.ExecutionState) error {
	i, err := state.Pop()
	if err != nil {
		return err
	}
	p, err := state.Pop()
	if err != nil {
		return err
	}
	value, err := memory.UnsafeList(state.Memory, p.Value(), s.ElementType.Width()).Get(i.Value())
	if err != nil {
		return err
	}
	state.Push(value...)
	return nil
}

func (s Get) state(rng *utils.Prng, length, i uint64) snippet.ExecutionState {
	state, list := listState(rng, s.ElementType, length, length)
	state.Push(field.New(list.Pointer), field.New(i))
	return state
}

func (s Get) InitialStates(rng *utils.Prng) []snippet.ExecutionState {
	length := 1 + uint64(rng.Intn(50))
	return []snippet.ExecutionState{
		s.state(rng, 1, 0),
		s.state(rng, length, 0),
		s.state(rng, length, length-1),
		s.state(rng, length, uint64(rng.Intn(int(length)))),
	}
}

func (s Get) CommonCaseState() snippet.ExecutionState {
	return s.state(utils.NewPrng(s.Entrypoint()), 10, 5)
}

func (s Get) WorstCaseState() snippet.ExecutionState {
	return s.state(utils.NewPrng(s.Entrypoint()), 100, 99)
}

// Set overwrites an element: _ [element] *list index -> _
type Set struct {
	ElementType datatype.DataType
}

func (s Set) Entrypoint() string { return entrypoint("set_element", s.ElementType) }

func (s Set) Inputs() []datatype.Param {
	return []datatype.Param{element(s.ElementType), pointer(s.ElementType), index()}
}

func (Set) Outputs() []datatype.Param { return nil }

func (s Set) StackDiff() int { return -2 - s.ElementType.Width() }

func (Set) CrashConditions() []string { return nil }

func (s Set) Code(*library.Library) []vm.LabelledInstruction {
	w := s.ElementType.Width()
	return asm.MustParse(fmt.Sprintf(`
	%[1]s:
		// _ [element] *list index
		push %[2]d mul add
		addi %[3]d
		write_mem %[2]d pop 1
		return
	`, s.Entrypoint(), w, memory.UnsafeListHeader))
}

func (s Set) Reference(state *snippet.ExecutionState) error {
	i, err := state.Pop()
	if err != nil {
		return err
	}
	p, err := state.Pop()
	if err != nil {
		return err
	}
	value, err := state.PopN(s.ElementType.Width())
	if err != nil {
		return err
	}
	return memory.UnsafeList(state.Memory, p.Value(), s.ElementType.Width()).Set(i.Value(), value)
}

func (s Set) state(rng *utils.Prng, length, i uint64) snippet.ExecutionState {
	state, list := listState(rng, s.ElementType, length, length)
	state.Push(s.ElementType.Random(rng)...)
	state.Push(field.New(list.Pointer), field.New(i))
	return state
}

func (s Set) InitialStates(rng *utils.Prng) []snippet.ExecutionState {
	length := 1 + uint64(rng.Intn(50))
	return []snippet.ExecutionState{
		s.state(rng, 1, 0),
		s.state(rng, length, length-1),
		s.state(rng, length, uint64(rng.Intn(int(length)))),
	}
}

func (s Set) CommonCaseState() snippet.ExecutionState {
	return s.state(utils.NewPrng(s.Entrypoint()), 10, 5)
}

func (s Set) WorstCaseState() snippet.ExecutionState {
	return s.state(utils.NewPrng(s.Entrypoint()), 100, 99)
}
