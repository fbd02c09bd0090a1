package oracle

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-snippets/internal/vybium-snippets/asm"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/datatype"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/library"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/memory"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippet"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/utils"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/vm"
)

func testConfig() *utils.Config {
	return utils.DefaultConfig().WithWorkers(2).WithLogLevel("warning")
}

// fake is a snippet assembled from a source template and a reference function
type fake struct {
	snippet.Base
	body      func(lib *library.Library) string
	reference func(state *snippet.ExecutionState) error
}

func (f fake) Code(lib *library.Library) []vm.LabelledInstruction {
	return asm.MustParse(f.Name + ":\n" + f.body(lib) + "\nreturn")
}

func (f fake) Reference(state *snippet.ExecutionState) error { return f.reference(state) }

func (f fake) InitialStates(*utils.Prng) []snippet.ExecutionState {
	return []snippet.ExecutionState{f.CommonCaseState()}
}

func (f fake) CommonCaseState() snippet.ExecutionState { return snippet.WithStack(field.New(21)) }

func (f fake) WorstCaseState() snippet.ExecutionState { return snippet.WithStack(field.New(1 << 31)) }

func bfe(name string) []datatype.Param {
	return []datatype.Param{datatype.NewParam(name, datatype.BFE)}
}

func fixed(source string) func(*library.Library) string {
	return func(*library.Library) string { return source }
}

// doubler computes _ a -> _ 2a, with a reference scaled by factor
func doubler(factor uint64) fake {
	return fake{
		Base: snippet.Base{Name: "test_double", In: bfe("a"), Out: bfe("b")},
		body: fixed("dup 0 add"),
		reference: func(state *snippet.ExecutionState) error {
			a, err := state.Pop()
			if err != nil {
				return err
			}
			state.Push(a.Mul(field.New(factor)))
			return nil
		},
	}
}

// TestVerify tests that a correct snippet verifies and the digest prefix is ignored
func TestVerify(t *testing.T) {
	outcome, err := Verify(doubler(2), snippet.WithStack(field.New(21)), testConfig())
	require.NoError(t, err)

	assert.Equal(t, uint64(42), outcome.Stack[len(outcome.Stack)-1].Value())
	assert.Len(t, outcome.Stack, vm.OpStackMinDepth+1)
	assert.Positive(t, outcome.Cycles)
}

// TestVerifyAfterConsumedInput tests that both executions continue from the
// same input position
func TestVerifyAfterConsumedInput(t *testing.T) {
	reader := fake{
		Base: snippet.Base{Name: "test_read", Out: bfe("x"), Diff: 1},
		body: fixed("read_io 1 divine 1 add"),
		reference: func(state *snippet.ExecutionState) error {
			public, err := state.ReadInput(1)
			if err != nil {
				return err
			}
			secret, err := state.Divine(1)
			if err != nil {
				return err
			}
			state.Push(public[0].Add(secret[0]))
			return nil
		},
	}

	state := snippet.WithStack()
	state.PublicInput = []field.Element{field.New(1), field.New(10)}
	state.SecretInput = []field.Element{field.New(2), field.New(20)}
	_, err := state.ReadInput(1)
	require.NoError(t, err)
	_, err = state.Divine(1)
	require.NoError(t, err)

	outcome, err := Verify(reader, state, testConfig())
	require.NoError(t, err)
	assert.Equal(t, uint64(30), outcome.Stack[len(outcome.Stack)-1].Value())
}

// TestVerifyExpecting tests the optional expected final stack
func TestVerifyExpecting(t *testing.T) {
	_, err := VerifyExpecting(doubler(2), snippet.WithStack(field.New(21)), snippet.WithStack(field.New(42)).Stack, testConfig())
	require.NoError(t, err)

	_, err = VerifyExpecting(doubler(2), snippet.WithStack(field.New(21)), snippet.WithStack(field.New(43)).Stack, testConfig())
	var mismatch *MismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, []string{"expected stack"}, mismatch.Aspects)
}

// TestStackMismatch tests the diagnostics of a stack disagreement
func TestStackMismatch(t *testing.T) {
	_, err := Verify(doubler(3), snippet.WithStack(field.New(21)), testConfig())

	var mismatch *MismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "test_double", mismatch.Snippet)
	assert.Equal(t, []string{"stack"}, mismatch.Aspects)
	assert.Contains(t, mismatch.Report, "VM stack: ")
	assert.Contains(t, mismatch.Report, ",42")
	assert.Contains(t, mismatch.Report, ",63")
	assert.Contains(t, mismatch.Report, "call test_double")
	assert.Contains(t, mismatch.Report, "dup 0")
}

// TestSignature tests that a declared stack diff must match the signature
func TestSignature(t *testing.T) {
	s := doubler(2)
	s.Diff = 1
	_, err := Verify(s, snippet.WithStack(field.New(1)), testConfig())
	assert.ErrorIs(t, err, ErrSignature)
}

// TestStackDiffLaw tests that observed growth is checked against the declared diff
func TestStackDiffLaw(t *testing.T) {
	s := fake{
		Base: snippet.Base{Name: "test_grow", In: bfe("a"), Out: bfe("a")},
		body: fixed("push 7"),
		reference: func(state *snippet.ExecutionState) error {
			state.Push(field.New(7))
			return nil
		},
	}

	_, err := Verify(s, snippet.WithStack(field.New(1)), testConfig())
	var mismatch *MismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, []string{"stack diff"}, mismatch.Aspects)
}

// staticWriter stores its input in a static memory word
func staticWriter(offset uint64) fake {
	name := "test_static_writer"
	return fake{
		Base: snippet.Base{Name: name, In: bfe("a"), Diff: -1},
		body: func(lib *library.Library) string {
			address := lib.AllocateStatic(1)
			return "push " + strconv.FormatUint(address, 10) + " write_mem 1 pop 1"
		},
		reference: func(state *snippet.ExecutionState) error {
			address, err := state.StaticAddress(name)
			if err != nil {
				return err
			}
			a, err := state.Pop()
			if err != nil {
				return err
			}
			state.Memory.Write(address+offset, a)
			return nil
		},
	}
}

// TestStaticMemory tests static allocation and allocator seeding
func TestStaticMemory(t *testing.T) {
	outcome, err := Verify(staticWriter(0), snippet.WithStack(field.New(5)), testConfig())
	require.NoError(t, err)

	assert.Equal(t, uint64(5), outcome.Memory.Read(1).Value())
	assert.Equal(t, uint64(2), outcome.Memory.Read(memory.DynMallocAddress).Value())

	preallocated := snippet.WithStack(field.New(5))
	preallocated.WordsAllocated = 10
	outcome, err = Verify(staticWriter(0), preallocated, testConfig())
	require.NoError(t, err)
	assert.Equal(t, uint64(5), outcome.Memory.Read(11).Value())
	assert.Equal(t, uint64(12), outcome.Memory.Read(memory.DynMallocAddress).Value())
}

// TestMemoryMismatch tests that differing memory is reported
func TestMemoryMismatch(t *testing.T) {
	_, err := Verify(staticWriter(1), snippet.WithStack(field.New(5)), testConfig())

	var mismatch *MismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, []string{"memory"}, mismatch.Aspects)
	assert.Contains(t, mismatch.Report, "(1 => 5)")
	assert.Contains(t, mismatch.Report, "(2 => 5)")
}

// TestAllocatorCellIgnored tests that the allocator cell is excluded from the comparison
func TestAllocatorCellIgnored(t *testing.T) {
	s := fake{
		Base: snippet.Base{Name: "test_cell", In: bfe("a"), Diff: -1},
		body: fixed("push 0 write_mem 1 pop 1"),
		reference: func(state *snippet.ExecutionState) error {
			_, err := state.Pop()
			state.Memory.Write(memory.DynMallocAddress, field.New(1234))
			return err
		},
	}

	_, err := Verify(s, snippet.WithStack(field.New(99)), testConfig())
	assert.NoError(t, err)
}

// TestOutputAndSpongeMismatch tests the output and sponge comparisons
func TestOutputAndSpongeMismatch(t *testing.T) {
	s := fake{
		Base: snippet.Base{Name: "test_io", In: bfe("a"), Diff: -1},
		body: fixed("write_io 1 sponge_init"),
		reference: func(state *snippet.ExecutionState) error {
			a, err := state.Pop()
			state.WriteOutput(a.Add(field.One))
			return err
		},
	}

	_, err := Verify(s, snippet.WithStack(field.New(1)), testConfig())
	var mismatch *MismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, []string{"output", "sponge"}, mismatch.Aspects)
	assert.Contains(t, mismatch.Report, "VM sponge:")
}

// TestFailures tests executions that fail on one side only
func TestFailures(t *testing.T) {
	vmFails := fake{
		Base:      snippet.Base{Name: "test_vm_fails", In: bfe("a"), Out: bfe("a")},
		body:      fixed("push 0 assert"),
		reference: func(*snippet.ExecutionState) error { return nil },
	}
	_, err := Verify(vmFails, snippet.WithStack(field.New(1)), testConfig())
	assert.ErrorIs(t, err, ErrExecutionFailed)

	referenceFails := fake{
		Base:      snippet.Base{Name: "test_reference_fails", In: bfe("a"), Out: bfe("a")},
		body:      fixed("nop"),
		reference: func(*snippet.ExecutionState) error { return assert.AnError },
	}
	_, err = Verify(referenceFails, snippet.WithStack(field.New(1)), testConfig())
	assert.ErrorIs(t, err, ErrReferenceFailed)
}

// TestExpectCrash tests that crash states must fail on both sides
func TestExpectCrash(t *testing.T) {
	s := fake{
		Base: snippet.Base{Name: "test_assert_one", In: bfe("a"), Diff: -1},
		body: fixed("assert"),
		reference: func(state *snippet.ExecutionState) error {
			a, err := state.Pop()
			if err != nil {
				return err
			}
			if !a.Equal(field.One) {
				return assert.AnError
			}
			return nil
		},
	}

	assert.NoError(t, ExpectCrash(s, snippet.WithStack(field.New(2)), testConfig()))
	assert.ErrorIs(t, ExpectCrash(s, snippet.WithStack(field.New(1)), testConfig()), ErrNoCrash)
}

// TestVerifyAll tests parallel verification over many states
func TestVerifyAll(t *testing.T) {
	rng := utils.NewPrng("verify all")
	states := make([]snippet.ExecutionState, 20)
	for i := range states {
		states[i] = snippet.WithStack(rng.FieldElement())
	}

	outcomes, err := VerifyAll(context.Background(), doubler(2), states, testConfig())
	require.NoError(t, err)
	require.Len(t, outcomes, len(states))
	for i, outcome := range outcomes {
		want := states[i].Stack[len(states[i].Stack)-1].Add(states[i].Stack[len(states[i].Stack)-1])
		assert.True(t, want.Equal(outcome.Stack[len(outcome.Stack)-1]))
	}

	_, err = VerifyAll(context.Background(), doubler(3), states, testConfig())
	assert.Error(t, err)
}

// TestBenchmark tests benchmark collection and persistence
func TestBenchmark(t *testing.T) {
	results, err := Benchmark(doubler(2), testConfig())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, CommonCase, results[0].Case)
	assert.Equal(t, WorstCase, results[1].Case)
	assert.Equal(t, "test_double", results[0].Name)
	assert.Positive(t, results[0].ClockCycleCount)

	dir := t.TempDir()
	require.NoError(t, WriteBenchmarks(dir, results))

	loaded, err := ReadBenchmarks(filepath.Join(dir, "test_double.yaml"))
	require.NoError(t, err)
	assert.Equal(t, results, loaded)
}
