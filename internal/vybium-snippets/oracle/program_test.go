package oracle

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-snippets/internal/vybium-snippets/asm"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/library"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/memory"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippets/dynmalloc"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/vm"
)

// fibonacciStep maps _ n a b to _ 0 fib(n) fib(n+1)
type fibonacciStep struct{}

func (fibonacciStep) Entrypoint() string { return "test_fibonacci_step" }

func (fibonacciStep) Code(*library.Library) []vm.LabelledInstruction {
	return asm.MustParse(`
	test_fibonacci_step:
		dup 2 push 0 eq skiz return
		dup 1 dup 1 add
		swap 2 pop 1 swap 1
		swap 2 addi -1 swap 2
		recurse
	`)
}

// fibonacci reads n and writes fib(n+1)
type fibonacci struct {
	broken bool
}

func (fibonacci) Name() string { return "fibonacci" }

func (fibonacci) Code() ([]vm.LabelledInstruction, *library.Library) {
	lib := library.New()
	step := lib.Import(fibonacciStep{})
	own := asm.MustParse("read_io 1 push 0 push 1 call " + step + " write_io 1 pop 2 halt")
	return own, lib
}

func (f fibonacci) Reference(publicInput, _ []field.Element) ([]field.Element, error) {
	a, b := field.Zero, field.One
	for i := uint64(0); i < publicInput[0].Value(); i++ {
		a, b = b, a.Add(b)
	}
	if f.broken {
		b = b.Add(field.One)
	}
	return []field.Element{b}, nil
}

// TestVerifyProgram tests a program assembled from an imported loop
func TestVerifyProgram(t *testing.T) {
	outcome, err := VerifyProgram(fibonacci{}, []field.Element{field.New(10)}, nil, testConfig())
	require.NoError(t, err)
	require.Len(t, outcome.Output, 1)
	assert.Equal(t, uint64(89), outcome.Output[0].Value())

	_, err = VerifyProgram(fibonacci{broken: true}, []field.Element{field.New(10)}, nil, testConfig())
	var mismatch *MismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, []string{"output"}, mismatch.Aspects)
	assert.Contains(t, mismatch.Report, "test_fibonacci_step:")

	_, err = RunProgram(fibonacci{}, nil, nil, testConfig())
	assert.ErrorIs(t, err, ErrExecutionFailed)
}

// TestBenchmarkProgram tests resource reporting for whole programs
func TestBenchmarkProgram(t *testing.T) {
	short, err := BenchmarkProgram(fibonacci{}, CommonCase, []field.Element{field.New(5)}, nil, testConfig())
	require.NoError(t, err)
	long, err := BenchmarkProgram(fibonacci{}, WorstCase, []field.Element{field.New(50)}, nil, testConfig())
	require.NoError(t, err)

	assert.Equal(t, "fibonacci", short.Name)
	assert.Greater(t, long.ClockCycleCount, short.ClockCycleCount)
	assert.Zero(t, long.HashTableHeight)
}

// staticThenDynamic reserves static words and then allocates twice
// dynamically, writing every base address
type staticThenDynamic struct {
	words uint64
}

func (staticThenDynamic) Name() string { return "static_then_dynamic" }

func (p staticThenDynamic) Code() ([]vm.LabelledInstruction, *library.Library) {
	lib := library.New()
	static := lib.AllocateStatic(p.words)
	malloc := lib.Import(dynmalloc.DynMalloc{})
	own := asm.MustParse(fmt.Sprintf(`
		push %d write_io 1
		push 5 call %s write_io 1
		push 5 call %s write_io 1
		halt
	`, static, malloc, malloc))
	return own, lib
}

func (p staticThenDynamic) Reference(_, _ []field.Element) ([]field.Element, error) {
	static := memory.FirstDynamicAddress
	return []field.Element{field.New(static), field.New(static + p.words), field.New(static + p.words + 5)}, nil
}

// TestProgramDynamicMemoryAfterStatic tests that dynamic allocations in a
// compiled program start past its static memory
func TestProgramDynamicMemoryAfterStatic(t *testing.T) {
	outcome, err := VerifyProgram(staticThenDynamic{words: 10}, nil, nil, testConfig())
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 11, 16}, []uint64{outcome.Output[0].Value(), outcome.Output[1].Value(), outcome.Output[2].Value()})
	assert.Equal(t, uint64(21), outcome.Memory.Read(memory.DynMallocAddress).Value())

	// no static memory, no initialization prefix
	_, code, err := LinkProgram(staticThenDynamic{words: 0})
	require.NoError(t, err)
	assert.Equal(t, vm.Push, code[0].Instruction)
	assert.Equal(t, uint64(1), code[0].Argument.Value())
	_, err = VerifyProgram(staticThenDynamic{words: 0}, nil, nil, testConfig())
	require.NoError(t, err)
}
