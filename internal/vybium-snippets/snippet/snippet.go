// Package snippet defines the contract every code fragment implements and
// the machine state its reference implementation runs on.
package snippet

import (
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/datatype"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/library"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/utils"
)

// Snippet is a named code fragment with a declared stack contract and a
// native reference implementation of the same behaviour.
//
// Inputs and Outputs list the stack layout immediately before and after a
// call; the last entry is nearest the top. StackDiff must equal the width of
// the outputs minus the width of the inputs.
type Snippet interface {
	library.Importable

	Inputs() []datatype.Param
	Outputs() []datatype.Param
	StackDiff() int

	// CrashConditions describes, for humans, the inputs that abort execution
	CrashConditions() []string

	// Reference applies the snippet's effect to state directly
	Reference(state *ExecutionState) error

	// InitialStates returns representative and randomised states to verify against
	InitialStates(rng *utils.Prng) []ExecutionState

	CommonCaseState() ExecutionState
	WorstCaseState() ExecutionState
}

// Crasher is implemented by snippets that can produce inputs violating their
// crash conditions
type Crasher interface {
	CrashStates(rng *utils.Prng) []ExecutionState
}

// Base holds the parts of the contract that are plain data. Snippets embed
// it and implement the rest.
type Base struct {
	Name    string
	In      []datatype.Param
	Out     []datatype.Param
	Diff    int
	Crashes []string
}

func (b Base) Entrypoint() string { return b.Name }

func (b Base) Inputs() []datatype.Param { return b.In }

func (b Base) Outputs() []datatype.Param { return b.Out }

func (b Base) StackDiff() int { return b.Diff }

func (b Base) CrashConditions() []string { return b.Crashes }

// SignatureStackDiff is the stack growth implied by a snippet's signature
func SignatureStackDiff(s Snippet) int {
	return datatype.TotalWidth(s.Outputs()) - datatype.TotalWidth(s.Inputs())
}
