package oracle

import (
	"fmt"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-snippets/internal/vybium-snippets/memory"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippet"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/vm"
)

// MismatchError reports a disagreement between the reference implementation
// and the VM. Report holds both final states and the linked code.
type MismatchError struct {
	Snippet string
	Aspects []string
	Report  string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: reference and vm disagree on %s\n%s",
		e.Snippet, strings.Join(e.Aspects, ", "), e.Report)
}

// words renders words comma-separated
func words(ws []field.Element) string {
	parts := make([]string, len(ws))
	for i, w := range ws {
		parts[i] = fmt.Sprint(w.Value())
	}
	return strings.Join(parts, ",")
}

// comparableMemory drops the allocator cell and converts to plain integers
func comparableMemory(m memory.Memory) map[uint64]uint64 {
	result := make(map[uint64]uint64, len(m))
	for _, cell := range m.Contents() {
		if cell.Address == memory.DynMallocAddress {
			continue
		}
		result[cell.Address] = cell.Value
	}
	return result
}

func memoryListing(m memory.Memory) string {
	cells := m.Contents()
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = fmt.Sprintf("(%d => %d)", cell.Address, cell.Value)
	}
	return strings.Join(parts, ",")
}

func stackAboveDigest(stack []field.Element) []field.Element {
	if len(stack) < vm.DigestLength {
		return nil
	}
	return stack[vm.DigestLength:]
}

func equalWords(a, b []field.Element) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func compare(
	s snippet.Snippet,
	initial *snippet.ExecutionState,
	reference, actual *Outcome,
	expected []field.Element,
	code []vm.LabelledInstruction,
) *MismatchError {
	var aspects []string
	var report strings.Builder

	referenceStack := stackAboveDigest(reference.Stack)
	actualStack := stackAboveDigest(actual.Stack)
	if !equalWords(referenceStack, actualStack) {
		aspects = append(aspects, "stack")
		fmt.Fprintf(&report, "VM stack: %s\n\nReference stack: %s\n\n", words(actualStack), words(referenceStack))
	}

	if expected != nil && !equalWords(stackAboveDigest(expected), referenceStack) {
		aspects = append(aspects, "expected stack")
		fmt.Fprintf(&report, "Expected stack: %s\n\nReference stack: %s\n\n",
			words(stackAboveDigest(expected)), words(referenceStack))
	}

	referenceMemory := comparableMemory(reference.Memory)
	actualMemory := comparableMemory(actual.Memory)
	if diff := cmp.Diff(referenceMemory, actualMemory); diff != "" {
		aspects = append(aspects, "memory")
		fmt.Fprintf(&report, "VM memory: %s\n\nReference memory: %s\n\nDifference (-reference +vm):\n%s\n",
			memoryListing(actual.Memory), memoryListing(reference.Memory), diff)
	}

	if !equalWords(reference.Output, actual.Output) {
		aspects = append(aspects, "output")
		fmt.Fprintf(&report, "VM output: %s\n\nReference output: %s\n\n", words(actual.Output), words(reference.Output))
	}

	if !reference.Sponge.Equal(actual.Sponge) {
		aspects = append(aspects, "sponge")
		fmt.Fprintf(&report, "VM sponge:\n%s\nReference sponge:\n%s\n", spew.Sdump(actual.Sponge), spew.Sdump(reference.Sponge))
	}

	if growth := len(actual.Stack) - len(initial.Stack); growth != s.StackDiff() {
		aspects = append(aspects, "stack diff")
		fmt.Fprintf(&report, "Stack grew by %d, declared %d.\nInitial stack: %s\nFinal stack: %s\n\n",
			growth, s.StackDiff(), words(initial.Stack), words(actual.Stack))
	}

	if len(aspects) == 0 {
		return nil
	}

	fmt.Fprintf(&report, "Code was:\n%s", vm.Listing(code))
	return &MismatchError{Snippet: s.Entrypoint(), Aspects: aspects, Report: report.String()}
}
