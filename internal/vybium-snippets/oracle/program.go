package oracle

import (
	"github.com/pkg/errors"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-snippets/internal/vybium-snippets/library"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/memory"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippet"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/utils"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/vm"
)

// CompiledProgram is a complete program built from snippets: it starts on a
// fresh machine, reads its inputs and halts. Only its output is observable.
type CompiledProgram interface {
	Name() string

	// Code returns the program's own instructions and the library holding
	// everything they import
	Code() ([]vm.LabelledInstruction, *library.Library)

	// Reference computes the expected output natively
	Reference(publicInput, secretInput []field.Element) ([]field.Element, error)
}

// LinkProgram assembles and links p. When p's imports use static memory,
// the program first points the allocator cell past it.
func LinkProgram(p CompiledProgram) (*vm.Program, []vm.LabelledInstruction, error) {
	own, lib := p.Code()
	if watermark := lib.StaticWatermark(); watermark > memory.FirstDynamicAddress {
		own = append(memory.InitializationCode(watermark), own...)
	}

	code, err := lib.Assemble(own)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "assembling %s", p.Name())
	}
	program, err := vm.Link(code)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "linking %s", p.Name())
	}
	return program, code, nil
}

// RunProgram executes p on a fresh machine
func RunProgram(p CompiledProgram, publicInput, secretInput []field.Element, cfg *utils.Config) (*Outcome, error) {
	program, _, err := LinkProgram(p)
	if err != nil {
		return nil, err
	}

	state := snippet.WithStack()
	state.PublicInput = publicInput
	state.SecretInput = secretInput

	outcome, err := Execute(program, &state, cfg.MaxCycles)
	if err != nil {
		return nil, errors.Wrapf(ErrExecutionFailed, "%s: %v", p.Name(), err)
	}
	return outcome, nil
}

// VerifyProgram checks that p's VM output equals its reference output
func VerifyProgram(p CompiledProgram, publicInput, secretInput []field.Element, cfg *utils.Config) (*Outcome, error) {
	expected, err := p.Reference(publicInput, secretInput)
	if err != nil {
		return nil, errors.Wrapf(ErrReferenceFailed, "%s: %v", p.Name(), err)
	}

	outcome, err := RunProgram(p, publicInput, secretInput, cfg)
	if err != nil {
		return nil, err
	}

	if !equalWords(expected, outcome.Output) {
		_, code, _ := LinkProgram(p)
		return nil, &MismatchError{
			Snippet: p.Name(),
			Aspects: []string{"output"},
			Report:  "VM output: " + words(outcome.Output) + "\n\nReference output: " + words(expected) + "\n\nCode was:\n" + vm.Listing(code),
		}
	}
	return outcome, nil
}

// BenchmarkProgram runs p once and reports its resource usage
func BenchmarkProgram(p CompiledProgram, benchCase BenchmarkCase, publicInput, secretInput []field.Element, cfg *utils.Config) (BenchmarkResult, error) {
	outcome, err := VerifyProgram(p, publicInput, secretInput, cfg)
	if err != nil {
		return BenchmarkResult{}, err
	}
	return resultFromOutcome(p.Name(), benchCase, outcome), nil
}
