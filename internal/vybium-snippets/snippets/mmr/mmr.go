// Package mmr holds Merkle mountain range snippets. A range over n leaves has
// one peak per set bit of n, tallest first, kept in an unsafe list of digests.
package mmr

import (
	"fmt"
	"math/bits"

	"github.com/pkg/errors"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/hash"

	"github.com/vybium/vybium-snippets/internal/vybium-snippets/asm"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/datatype"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/library"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/memory"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippet"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippets/arithmetic/u64"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippets/hashing"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippets/list/unsafelist"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/utils"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/vm"
)

// MaxHeight bounds the height of any peak, and so the length of an
// authentication path
const MaxHeight = 64

// ErrNodeIndex is returned for node indices without a leftmost ancestor
var ErrNodeIndex = errors.New("node index out of range")

func leafCount() datatype.Param { return datatype.NewParam("leaf_count", datatype.U64) }

func leafCountStates(rng *utils.Prng) []uint64 {
	counts := []uint64{0, 1, 2, 3, 7, 8, 1<<32 - 1, 1 << 32, 1<<33 - 1}
	for i := 0; i < 5; i++ {
		counts = append(counts, rng.Uint64()>>uint(rng.Intn(64)))
	}
	return counts
}

func u64State(values ...uint64) snippet.ExecutionState {
	state := snippet.WithStack()
	for _, v := range values {
		state.PushU64(v)
	}
	return state
}

// NumPeaks computes _ leaf_count -> _ number_of_peaks
type NumPeaks struct{}

func (NumPeaks) Entrypoint() string { return "vybium_mmr_num_peaks" }

func (NumPeaks) Inputs() []datatype.Param { return []datatype.Param{leafCount()} }

func (NumPeaks) Outputs() []datatype.Param {
	return []datatype.Param{datatype.NewParam("num_peaks", datatype.U32)}
}

func (NumPeaks) StackDiff() int { return -1 }

func (NumPeaks) CrashConditions() []string { return nil }

func (s NumPeaks) Code(lib *library.Library) []vm.LabelledInstruction {
	popcount := lib.Import(u64.PopCount{})
	return asm.MustParse(fmt.Sprintf("%s: call %s return", s.Entrypoint(), popcount))
}

func (NumPeaks) Reference(state *snippet.ExecutionState) error {
	count, err := state.PopU64()
	if err != nil {
		return err
	}
	state.Push(field.New(uint64(bits.OnesCount64(count))))
	return nil
}

func (NumPeaks) InitialStates(rng *utils.Prng) []snippet.ExecutionState {
	var states []snippet.ExecutionState
	for _, count := range leafCountStates(rng) {
		states = append(states, u64State(count))
	}
	return states
}

func (NumPeaks) CommonCaseState() snippet.ExecutionState { return u64State(1 << 20) }

func (NumPeaks) WorstCaseState() snippet.ExecutionState { return u64State(^uint64(0)) }

// LeftmostAncestor finds the leftmost ancestor of a node, indexed in
// post-order from 1: _ node_index -> _ ancestor_index height
type LeftmostAncestor struct{}

func (LeftmostAncestor) Entrypoint() string { return "vybium_mmr_leftmost_ancestor" }

func (LeftmostAncestor) Inputs() []datatype.Param {
	return []datatype.Param{datatype.NewParam("node_index", datatype.U64)}
}

func (LeftmostAncestor) Outputs() []datatype.Param {
	return []datatype.Param{
		datatype.NewParam("leftmost_ancestor", datatype.U64),
		datatype.NewParam("height", datatype.U32),
	}
}

func (LeftmostAncestor) StackDiff() int { return 1 }

func (LeftmostAncestor) CrashConditions() []string {
	return []string{"node index is 0", "node index is 2^63 or more"}
}

func (s LeftmostAncestor) Code(lib *library.Library) []vm.LabelledInstruction {
	log2 := lib.Import(u64.Log2Floor{})
	pow2 := lib.Import(u64.Pow2{})
	decr := lib.Import(u64.Decr{})
	return asm.MustParse(fmt.Sprintf(`
	%s:
		call %s
		// _ height
		dup 0 addi 1
		call %s
		call %s
		// _ height ancestor_hi ancestor_lo
		swap 1 swap 2
		return
	`, s.Entrypoint(), log2, pow2, decr))
}

// leftmostAncestor returns 2^(h+1) - 1 and h for the height h of node
func leftmostAncestor(node uint64) (uint64, uint32, error) {
	if node == 0 || node >= 1<<63 {
		return 0, 0, errors.Wrapf(ErrNodeIndex, "%d", node)
	}
	height := uint32(bits.Len64(node) - 1)
	return 1<<(height+1) - 1, height, nil
}

func (LeftmostAncestor) Reference(state *snippet.ExecutionState) error {
	node, err := state.PopU64()
	if err != nil {
		return err
	}
	ancestor, height, err := leftmostAncestor(node)
	if err != nil {
		return err
	}
	state.PushU64(ancestor)
	state.Push(field.New(uint64(height)))
	return nil
}

func (LeftmostAncestor) InitialStates(rng *utils.Prng) []snippet.ExecutionState {
	states := []snippet.ExecutionState{u64State(1), u64State(2), u64State(3), u64State(1<<63 - 1)}
	for i := 0; i < 5; i++ {
		states = append(states, u64State(1+rng.Uint64()>>uint(2+rng.Intn(62))))
	}
	return states
}

func (LeftmostAncestor) CommonCaseState() snippet.ExecutionState { return u64State(1 << 20) }

func (LeftmostAncestor) WorstCaseState() snippet.ExecutionState { return u64State(1<<63 - 1) }

func (LeftmostAncestor) CrashStates(*utils.Prng) []snippet.ExecutionState {
	return []snippet.ExecutionState{u64State(0), u64State(1 << 63)}
}

// RightChildAndHeight reports whether a node, indexed in post-order from 1,
// is the right child of its parent, and the node's height:
// _ node_index -> _ is_right_child height
type RightChildAndHeight struct{}

func (RightChildAndHeight) Entrypoint() string { return "vybium_mmr_right_child_and_height" }

func (RightChildAndHeight) Inputs() []datatype.Param {
	return []datatype.Param{datatype.NewParam("node_index", datatype.U64)}
}

func (RightChildAndHeight) Outputs() []datatype.Param {
	return []datatype.Param{
		datatype.NewParam("is_right_child", datatype.Bool),
		datatype.NewParam("height", datatype.U32),
	}
}

func (RightChildAndHeight) StackDiff() int { return 0 }

func (RightChildAndHeight) CrashConditions() []string {
	return []string{"node index is 0", "node index is 2^63 or more"}
}

// Node indices stay below 2^63, so they are handled as single field elements
// and split only for comparison.
func (s RightChildAndHeight) Code(lib *library.Library) []vm.LabelledInstruction {
	ancestor := lib.Import(LeftmostAncestor{})
	lt := lib.Import(u64.Lt{})
	return asm.MustParse(fmt.Sprintf(`
	%[1]s:
		dup 1 dup 1
		call %[2]s
		// _ node_hi node_lo ancestor_hi ancestor_lo height
		swap 2 push 4294967296 mul add
		pick 3 push 4294967296 mul pick 3 add
		// _ height ancestor node
		place 2 push 0 place 2
		// _ node is_right height candidate
		call %[1]s_descend
		pop 1 pick 2 pop 1
		return

	// walks down from the leftmost ancestor until it reaches the node
	%[1]s_descend:
		dup 0 dup 4 eq skiz return

		// left_child = candidate - 2^height
		dup 1 push 2 pow
		push -1 mul dup 1 add
		dup 0 split dup 6 split
		call %[3]s
		// _ node is_right height candidate left_child (left_child < node)
		swap 4 pop 1

		// candidate = left_child + is_right * (candidate - 1 - left_child)
		dup 1 addi -1 dup 1 push -1 mul add
		dup 4 mul add
		swap 1 pop 1
		swap 1 addi -1 swap 1
		recurse
	`, s.Entrypoint(), ancestor, lt))
}

// rightChildAndHeight descends from the leftmost ancestor of node, stepping
// to the right child whenever the node lies beyond the left subtree
func rightChildAndHeight(node uint64) (bool, uint32, error) {
	candidate, height, err := leftmostAncestor(node)
	if err != nil {
		return false, 0, err
	}

	isRight := false
	for candidate != node {
		leftChild := candidate - 1<<height
		if leftChild < node {
			isRight = true
			candidate--
		} else {
			isRight = false
			candidate = leftChild
		}
		height--
	}
	return isRight, height, nil
}

func (RightChildAndHeight) Reference(state *snippet.ExecutionState) error {
	node, err := state.PopU64()
	if err != nil {
		return err
	}
	isRight, height, err := rightChildAndHeight(node)
	if err != nil {
		return err
	}
	state.Push(datatype.EncodeBool(isRight)...)
	state.Push(field.New(uint64(height)))
	return nil
}

func (RightChildAndHeight) InitialStates(rng *utils.Prng) []snippet.ExecutionState {
	var states []snippet.ExecutionState
	for node := uint64(1); node <= 18; node++ {
		states = append(states, u64State(node))
	}
	states = append(states, u64State(1<<32), u64State(1<<33-1), u64State(1<<63-1))
	for i := 0; i < 5; i++ {
		states = append(states, u64State(1+rng.Uint64()>>uint(2+rng.Intn(62))))
	}
	return states
}

func (RightChildAndHeight) CommonCaseState() snippet.ExecutionState { return u64State(1<<32 + 1) }

func (RightChildAndHeight) WorstCaseState() snippet.ExecutionState { return u64State(1<<62 + 1) }

func (RightChildAndHeight) CrashStates(*utils.Prng) []snippet.ExecutionState {
	return []snippet.ExecutionState{u64State(0), u64State(1 << 63)}
}

// CalculateNewPeaksFromAppend appends a leaf to a range given its old leaf
// count and peaks list, merging equal-height peaks. It returns the peaks list,
// updated in place, and the authentication path of the new leaf:
// _ old_leaf_count *peaks [new_leaf] -> _ *peaks *auth_path
//
// The authentication path lives in static memory, so every call overwrites
// the path returned by the previous one.
type CalculateNewPeaksFromAppend struct{}

func (CalculateNewPeaksFromAppend) Entrypoint() string {
	return "vybium_mmr_calculate_new_peaks_from_append"
}

func (CalculateNewPeaksFromAppend) Inputs() []datatype.Param {
	return []datatype.Param{
		leafCount(),
		datatype.NewParam("*peaks", datatype.List(datatype.Digest)),
		datatype.NewParam("new_leaf", datatype.Digest),
	}
}

func (CalculateNewPeaksFromAppend) Outputs() []datatype.Param {
	return []datatype.Param{
		datatype.NewParam("*peaks", datatype.List(datatype.Digest)),
		datatype.NewParam("*auth_path", datatype.List(datatype.Digest)),
	}
}

func (CalculateNewPeaksFromAppend) StackDiff() int { return -6 }

func (CalculateNewPeaksFromAppend) CrashConditions() []string { return nil }

func (s CalculateNewPeaksFromAppend) Code(lib *library.Library) []vm.LabelledInstruction {
	push := lib.Import(unsafelist.Push{ElementType: datatype.Digest})
	pop := lib.Import(unsafelist.Pop{ElementType: datatype.Digest})
	authPath := lib.AllocateStatic(memory.SizeInWords(memory.UnsafeListHeader, datatype.Digest.Width(), MaxHeight))

	return asm.MustParse(fmt.Sprintf(`
	%[1]s:
		// _ count_hi count_lo *peaks [new_leaf]
		dup 5 place 5
		call %[2]s

		push 0 push %[4]d write_mem 1 pop 1

		// _ count_hi count_lo *peaks
		call %[1]s_while
		swap 2 pop 2
		push %[4]d
		return

	// merges the two last peaks while the leaf count is odd, halving it each round
	%[1]s_while:
		dup 1 push 2 swap 1 div_mod swap 1 pop 1
		push 0 eq skiz return

		dup 0 call %[3]s
		dup 5 call %[3]s
		// _ count_hi count_lo *peaks [new_peak] [previous_peak]

		dup 4 dup 4 dup 4 dup 4 dup 4
		push %[4]d place 5
		call %[2]s

		pick 9 pick 9 pick 9 pick 9 pick 9
		hash
		dup 5 place 5
		call %[2]s

		// _ count_hi count_lo *peaks
		pick 2 push 2 swap 1 div_mod
		push 2147483648 mul
		pick 3 push 2 swap 1 div_mod pop 1
		add
		pick 2
		recurse
	`, s.Entrypoint(), push, pop, authPath))
}

// AppendPeaks is the native form of CalculateNewPeaksFromAppend: it returns
// the peaks after appending leaf and the leaf's authentication path
func AppendPeaks(leafCount uint64, peaks []hash.Digest, leaf hash.Digest) ([]hash.Digest, []hash.Digest) {
	peaks = append(append([]hash.Digest(nil), peaks...), leaf)
	var authPath []hash.Digest
	for count := leafCount; count&1 == 1; count >>= 1 {
		newPeak := peaks[len(peaks)-1]
		previousPeak := peaks[len(peaks)-2]
		peaks = peaks[:len(peaks)-2]
		authPath = append(authPath, previousPeak)
		peaks = append(peaks, hashing.Digest(previousPeak, newPeak))
	}
	return peaks, authPath
}

func (s CalculateNewPeaksFromAppend) Reference(state *snippet.ExecutionState) error {
	leaf, err := state.PopN(datatype.Digest.Width())
	if err != nil {
		return err
	}
	pointer, err := state.Pop()
	if err != nil {
		return err
	}
	count, err := state.PopU64()
	if err != nil {
		return err
	}

	authAddress, err := state.StaticAddress(s.Entrypoint())
	if err != nil {
		return err
	}

	peaks := memory.UnsafeList(state.Memory, pointer.Value(), datatype.Digest.Width())
	if err := peaks.Push(leaf); err != nil {
		return err
	}
	authPath := memory.NewUnsafeList(state.Memory, authAddress, datatype.Digest.Width())

	for ; count&1 == 1; count >>= 1 {
		newPeak, err := peaks.Pop()
		if err != nil {
			return err
		}
		previousPeak, err := peaks.Pop()
		if err != nil {
			return err
		}
		if err := authPath.Push(previousPeak); err != nil {
			return err
		}

		left, err := datatype.DecodeDigest(previousPeak)
		if err != nil {
			return err
		}
		right, err := datatype.DecodeDigest(newPeak)
		if err != nil {
			return err
		}
		if err := peaks.Push(datatype.EncodeDigest(hashing.Digest(left, right))); err != nil {
			return err
		}
	}

	state.Push(pointer, field.New(authAddress))
	return nil
}

// peaksBase keeps generated peak lists clear of the static authentication path
const peaksBase = 1 << 20

// appendState builds a range of count leaves with random peaks and a random new leaf
func appendState(rng *utils.Prng, count uint64) snippet.ExecutionState {
	state := snippet.WithStack()
	memory.InitializeAllocator(state.Memory, peaksBase)

	peakCount := uint64(bits.OnesCount64(count))
	peaks, err := unsafelist.Allocate(state.Memory, datatype.Digest, peakCount+1)
	if err != nil {
		panic(err)
	}
	for i := uint64(0); i < peakCount; i++ {
		if err := peaks.Push(rng.FieldElements(datatype.Digest.Width())); err != nil {
			panic(err)
		}
	}

	state.PushU64(count)
	state.Push(field.New(peaks.Pointer))
	state.Push(rng.FieldElements(datatype.Digest.Width())...)
	return state
}

func (CalculateNewPeaksFromAppend) InitialStates(rng *utils.Prng) []snippet.ExecutionState {
	var states []snippet.ExecutionState
	for _, count := range leafCountStates(rng) {
		if count == ^uint64(0) {
			continue
		}
		states = append(states, appendState(rng, count))
	}
	return states
}

func (CalculateNewPeaksFromAppend) CommonCaseState() snippet.ExecutionState {
	return appendState(utils.NewPrng("calculate new peaks"), 1<<20-1)
}

func (CalculateNewPeaksFromAppend) WorstCaseState() snippet.ExecutionState {
	return appendState(utils.NewPrng("calculate new peaks"), 1<<62-1)
}
