package snippet

import (
	"github.com/pkg/errors"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-snippets/internal/vybium-snippets/datatype"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/library"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/memory"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/vm"
)

var (
	ErrStackUnderflow      = errors.New("operational stack underflow")
	ErrInputExhausted      = errors.New("public input exhausted")
	ErrSecretExhausted     = errors.New("secret input exhausted")
	ErrSpongeUninitialized = errors.New("sponge not initialized")
	ErrNoStaticMemory      = errors.New("no static memory for snippet")
)

// ExecutionState is a machine state as seen by a reference implementation.
// Stack is bottom first and always holds at least vm.OpStackMinDepth words.
type ExecutionState struct {
	Stack       []field.Element
	PublicInput []field.Element
	SecretInput []field.Element
	Memory      memory.Memory
	Sponge      *vm.Sponge
	Output      []field.Element

	// WordsAllocated counts memory words an enclosing context already claimed
	WordsAllocated uint64

	// StaticMemory is the static allocation table of the linked program
	StaticMemory []library.StaticAllocation

	inputPointer  int
	secretPointer int
}

// EmptyStack returns the initial stack of a fresh machine with a zero digest
func EmptyStack() []field.Element {
	stack := make([]field.Element, vm.OpStackMinDepth)
	for i := range stack {
		stack[i] = field.Zero
	}
	return stack
}

// WithStack returns a state whose stack is the empty stack followed by words
func WithStack(words ...field.Element) ExecutionState {
	return ExecutionState{
		Stack:  append(EmptyStack(), words...),
		Memory: memory.New(),
	}
}

// Clone returns a deep copy; consumed input stays consumed
func (s *ExecutionState) Clone() ExecutionState {
	clone := *s
	clone.Stack = append([]field.Element(nil), s.Stack...)
	clone.PublicInput = append([]field.Element(nil), s.PublicInput...)
	clone.SecretInput = append([]field.Element(nil), s.SecretInput...)
	clone.Output = append([]field.Element(nil), s.Output...)
	clone.StaticMemory = append([]library.StaticAllocation(nil), s.StaticMemory...)
	clone.Sponge = s.Sponge.Clone()
	if s.Memory != nil {
		clone.Memory = s.Memory.Clone()
	} else {
		clone.Memory = memory.New()
	}
	return clone
}

// Push pushes words in order, so the last one ends on top
func (s *ExecutionState) Push(words ...field.Element) {
	s.Stack = append(s.Stack, words...)
}

// Pop removes the top word
func (s *ExecutionState) Pop() (field.Element, error) {
	if len(s.Stack) <= vm.OpStackMinDepth {
		return field.Zero, ErrStackUnderflow
	}
	top := s.Stack[len(s.Stack)-1]
	s.Stack = s.Stack[:len(s.Stack)-1]
	return top, nil
}

// PopN removes n words and returns them in push order
func (s *ExecutionState) PopN(n int) ([]field.Element, error) {
	if len(s.Stack)-n < vm.OpStackMinDepth {
		return nil, errors.Wrapf(ErrStackUnderflow, "popping %d of %d words", n, len(s.Stack))
	}
	words := append([]field.Element(nil), s.Stack[len(s.Stack)-n:]...)
	s.Stack = s.Stack[:len(s.Stack)-n]
	return words, nil
}

// PopU32 removes the top word and checks that it is a u32
func (s *ExecutionState) PopU32() (uint32, error) {
	word, err := s.Pop()
	if err != nil {
		return 0, err
	}
	if word.Value() > 0xFFFFFFFF {
		return 0, errors.Errorf("operand %d is not a u32", word.Value())
	}
	return uint32(word.Value()), nil
}

// PopU64 removes a u64 pushed as hi then lo
func (s *ExecutionState) PopU64() (uint64, error) {
	words, err := s.PopN(2)
	if err != nil {
		return 0, err
	}
	return datatype.DecodeU64(words)
}

// PushU64 pushes a u64 as hi then lo
func (s *ExecutionState) PushU64(x uint64) {
	s.Push(datatype.EncodeU64(x)...)
}

// Peek returns the word at depth (0 is the top)
func (s *ExecutionState) Peek(depth int) (field.Element, error) {
	if depth < 0 || depth >= len(s.Stack) {
		return field.Zero, errors.Errorf("peek at depth %d of %d", depth, len(s.Stack))
	}
	return s.Stack[len(s.Stack)-1-depth], nil
}

// ReadInput consumes n words of public input
func (s *ExecutionState) ReadInput(n int) ([]field.Element, error) {
	if s.inputPointer+n > len(s.PublicInput) {
		return nil, errors.Wrapf(ErrInputExhausted, "reading %d words", n)
	}
	words := s.PublicInput[s.inputPointer : s.inputPointer+n]
	s.inputPointer += n
	return append([]field.Element(nil), words...), nil
}

// Divine consumes n words of secret input
func (s *ExecutionState) Divine(n int) ([]field.Element, error) {
	if s.secretPointer+n > len(s.SecretInput) {
		return nil, errors.Wrapf(ErrSecretExhausted, "divining %d words", n)
	}
	words := s.SecretInput[s.secretPointer : s.secretPointer+n]
	s.secretPointer += n
	return append([]field.Element(nil), words...), nil
}

// RemainingInput returns the public input not consumed yet
func (s *ExecutionState) RemainingInput() []field.Element {
	return s.PublicInput[s.inputPointer:]
}

// RemainingSecret returns the secret input not consumed yet
func (s *ExecutionState) RemainingSecret() []field.Element {
	return s.SecretInput[s.secretPointer:]
}

// WriteOutput appends words to the public output
func (s *ExecutionState) WriteOutput(words ...field.Element) {
	s.Output = append(s.Output, words...)
}

// RequireSponge returns the sponge or an error if sponge_init never ran
func (s *ExecutionState) RequireSponge() (*vm.Sponge, error) {
	if s.Sponge == nil {
		return nil, ErrSpongeUninitialized
	}
	return s.Sponge, nil
}

// StaticAddress returns the first static address owned by the given entrypoint
func (s *ExecutionState) StaticAddress(owner string) (uint64, error) {
	for _, allocation := range s.StaticMemory {
		if allocation.Owner == owner {
			return allocation.Address, nil
		}
	}
	return 0, errors.Wrapf(ErrNoStaticMemory, "%q", owner)
}
