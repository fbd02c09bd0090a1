// Package oracle certifies that a snippet's generated code and its reference
// implementation behave identically.
//
// Verify links the snippet into a standalone program ("call entrypoint; halt"
// followed by every imported body), runs it on the VM and runs the reference
// implementation on a copy of the same state. The two final states must agree
// on the stack above the program digest, on memory other than the allocator
// cell, on output and on the sponge, and the stack must have grown by the
// declared stack diff.
package oracle

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-snippets/internal/vybium-snippets/library"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/memory"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippet"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/utils"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/vm"
)

var (
	// ErrSignature is returned when a snippet's declared stack diff does not
	// match its inputs and outputs
	ErrSignature = errors.New("declared stack diff does not match signature")

	// ErrReferenceFailed is returned when the reference implementation fails
	// on a state the VM accepts, or on a state expected to succeed
	ErrReferenceFailed = errors.New("reference implementation failed")

	// ErrExecutionFailed is returned when the VM fails on a state the
	// reference implementation accepts
	ErrExecutionFailed = errors.New("vm execution failed")

	// ErrNoCrash is returned by ExpectCrash when an execution succeeds
	ErrNoCrash = errors.New("expected execution to fail")
)

// Linked is a snippet linked for an isolated run
type Linked struct {
	Code    []vm.LabelledInstruction
	Program *vm.Program
	Library *library.Library
}

// Outcome is the final state of one execution
type Outcome struct {
	Stack  []field.Element
	Memory memory.Memory
	Output []field.Element
	Sponge *vm.Sponge

	// Resource counts, filled for VM executions only
	Cycles           uint64
	HashPermutations int
	U32Operations    int
	RAMAccesses      int
}

// Link links s into a program that calls its entrypoint and halts. Static
// memory starts after wordsAllocated preallocated words.
func Link(s library.Importable, wordsAllocated uint64) (*Linked, error) {
	lib := library.WithPreallocatedMemory(wordsAllocated)
	entrypoint := lib.Import(s)

	own := []vm.LabelledInstruction{
		vm.CallLabel(entrypoint),
		vm.Instr(vm.Halt),
	}

	code, err := lib.Assemble(own)
	if err != nil {
		return nil, errors.Wrapf(err, "assembling %s", entrypoint)
	}

	program, err := vm.Link(code)
	if err != nil {
		return nil, errors.Wrapf(err, "linking %s", entrypoint)
	}

	return &Linked{Code: code, Program: program, Library: lib}, nil
}

// prepare clones the initial state, seeds the allocator cell past any static
// memory and attaches the static allocation table
func prepare(initial *snippet.ExecutionState, linked *Linked) snippet.ExecutionState {
	state := initial.Clone()

	watermark := linked.Library.StaticWatermark()
	if watermark > memory.FirstDynamicAddress && state.Memory.Read(memory.DynMallocAddress).IsZero() {
		memory.InitializeAllocator(state.Memory, watermark)
	}

	state.StaticMemory = linked.Library.StaticAllocations()
	return state
}

// Execute runs a linked program on a copy of state
func Execute(program *vm.Program, state *snippet.ExecutionState, maxCycles uint64) (*Outcome, error) {
	machine := vm.NewVMState(program, state.RemainingInput(), state.RemainingSecret())
	machine.MaxCycles = maxCycles
	if err := machine.LoadStack(state.Stack); err != nil {
		return nil, err
	}
	machine.LoadRAM(state.Memory)
	machine.Sponge = state.Sponge.Clone()

	err := machine.Run()
	outcome := &Outcome{
		Stack:            machine.Stack,
		Memory:           memory.Memory(machine.RAM),
		Output:           machine.PublicOutput,
		Sponge:           machine.Sponge,
		Cycles:           machine.CycleCount,
		HashPermutations: machine.CoProcessorCount(vm.HashCoProcessor),
		U32Operations:    machine.CoProcessorCount(vm.U32CoProcessor),
		RAMAccesses:      len(machine.RAMCalls),
	}
	return outcome, err
}

func runReference(s snippet.Snippet, state *snippet.ExecutionState) (*Outcome, error) {
	reference := state.Clone()
	err := s.Reference(&reference)
	return &Outcome{
		Stack:  reference.Stack,
		Memory: reference.Memory,
		Output: reference.Output,
		Sponge: reference.Sponge,
	}, err
}

func checkSignature(s snippet.Snippet) error {
	if declared, signature := s.StackDiff(), snippet.SignatureStackDiff(s); declared != signature {
		return errors.Wrapf(ErrSignature, "%s declares %d, signature gives %d", s.Entrypoint(), declared, signature)
	}
	return nil
}

// Verify runs s on initial with both implementations and compares the final
// states. It returns the VM's final state.
func Verify(s snippet.Snippet, initial snippet.ExecutionState, cfg *utils.Config) (*Outcome, error) {
	return VerifyExpecting(s, initial, nil, cfg)
}

// VerifyExpecting is Verify with an additional check of the final stack
// against expected, ignoring the program digest. A nil expected skips the check.
func VerifyExpecting(s snippet.Snippet, initial snippet.ExecutionState, expected []field.Element, cfg *utils.Config) (*Outcome, error) {
	if err := checkSignature(s); err != nil {
		return nil, err
	}

	linked, err := Link(s, initial.WordsAllocated)
	if err != nil {
		return nil, err
	}
	state := prepare(&initial, linked)

	reference, referenceErr := runReference(s, &state)
	actual, executionErr := Execute(linked.Program, &state, cfg.MaxCycles)

	switch {
	case referenceErr != nil:
		return nil, errors.Wrapf(ErrReferenceFailed, "%s: %v (vm error: %v)", s.Entrypoint(), referenceErr, executionErr)
	case executionErr != nil:
		return nil, errors.Wrapf(ErrExecutionFailed, "%s: %v\n%s", s.Entrypoint(), executionErr, vm.Listing(linked.Code))
	}

	if mismatch := compare(s, &state, reference, actual, expected, linked.Code); mismatch != nil {
		return nil, mismatch
	}

	log.WithFields(log.Fields{
		"snippet": s.Entrypoint(),
		"cycles":  actual.Cycles,
	}).Debug("verified snippet")

	return actual, nil
}

// ExpectCrash checks that both implementations fail on initial
func ExpectCrash(s snippet.Snippet, initial snippet.ExecutionState, cfg *utils.Config) error {
	linked, err := Link(s, initial.WordsAllocated)
	if err != nil {
		return err
	}
	state := prepare(&initial, linked)

	if _, err := runReference(s, &state); err == nil {
		return errors.Wrapf(ErrNoCrash, "%s: reference implementation succeeded", s.Entrypoint())
	}
	if _, err := Execute(linked.Program, &state, cfg.MaxCycles); err == nil {
		return errors.Wrapf(ErrNoCrash, "%s: vm execution succeeded\n%s", s.Entrypoint(), vm.Listing(linked.Code))
	}
	return nil
}
