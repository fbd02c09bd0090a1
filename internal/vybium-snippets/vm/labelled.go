package vm

import (
	"fmt"
	"strings"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// LabelledInstruction is one entry of unlinked code: either a label definition
// or an instruction. Call targets are label names until Link resolves them.
type LabelledInstruction struct {
	Label       string // label definition when non-empty; other fields unused
	Instruction Instruction
	Argument    *field.Element
	Target      string // call target label
}

// LabelDef creates a label definition
func LabelDef(name string) LabelledInstruction {
	return LabelledInstruction{Label: name}
}

// Instr creates an instruction without argument
func Instr(inst Instruction) LabelledInstruction {
	return LabelledInstruction{Instruction: inst}
}

// InstrArg creates an instruction with a numeric argument
func InstrArg(inst Instruction, arg field.Element) LabelledInstruction {
	return LabelledInstruction{Instruction: inst, Argument: &arg}
}

// CallLabel creates a call to the given label
func CallLabel(label string) LabelledInstruction {
	return LabelledInstruction{Instruction: Call, Target: label}
}

// IsLabel reports whether the entry defines a label
func (li LabelledInstruction) IsLabel() bool {
	return li.Label != ""
}

// String renders the entry in assembler syntax
func (li LabelledInstruction) String() string {
	switch {
	case li.IsLabel():
		return li.Label + ":"
	case li.Instruction == Call && li.Target != "":
		return "call " + li.Target
	case li.Argument != nil:
		return fmt.Sprintf("%s %d", li.Instruction.String(), li.Argument.Value())
	default:
		return li.Instruction.String()
	}
}

// Listing renders code one entry per line, indenting instructions under labels
func Listing(code []LabelledInstruction) string {
	var sb strings.Builder
	for _, li := range code {
		if !li.IsLabel() {
			sb.WriteString("    ")
		}
		sb.WriteString(li.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Labels returns the label definitions in code, in order of appearance
func Labels(code []LabelledInstruction) []string {
	labels := make([]string, 0)
	for _, li := range code {
		if li.IsLabel() {
			labels = append(labels, li.Label)
		}
	}
	return labels
}

// Link resolves labels to word addresses and encodes the result as a Program.
// The first pass assigns addresses, the second pass patches call targets.
func Link(code []LabelledInstruction) (*Program, error) {
	addresses := make(map[string]int)
	address := 0
	for _, li := range code {
		if li.IsLabel() {
			if _, ok := addresses[li.Label]; ok {
				return nil, fmt.Errorf("label %q defined more than once", li.Label)
			}
			addresses[li.Label] = address
			continue
		}
		address += li.Instruction.Size()
	}

	program := NewProgram()
	for _, li := range code {
		if li.IsLabel() {
			continue
		}

		arg := li.Argument
		if li.Instruction == Call && li.Target != "" {
			target, ok := addresses[li.Target]
			if !ok {
				return nil, fmt.Errorf("call to undefined label %q", li.Target)
			}
			resolved := field.New(uint64(target))
			arg = &resolved
		}

		inst, err := NewEncodedInstruction(li.Instruction, arg)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", li.String(), err)
		}
		program.AddInstruction(inst)
	}

	return program, nil
}
