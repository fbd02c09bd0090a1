package snippets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vybium/vybium-snippets/internal/vybium-snippets/library"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippet"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/vm"
)

func TestEntrypointsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, s := range All() {
		assert.False(t, seen[s.Entrypoint()], "duplicate entrypoint %s", s.Entrypoint())
		seen[s.Entrypoint()] = true
		assert.Regexp(t, `^vybium_[A-Za-z0-9_]+$`, s.Entrypoint())
	}
}

func TestSignatures(t *testing.T) {
	for _, s := range All() {
		assert.Equal(t, snippet.SignatureStackDiff(s), s.StackDiff(), s.Entrypoint())
	}
}

// TestLinkEverything tests that all snippets link together into one program
func TestLinkEverything(t *testing.T) {
	lib := library.New()
	own := []vm.LabelledInstruction{vm.Instr(vm.Halt)}
	for _, s := range All() {
		lib.Import(s)
	}

	program, err := lib.Link(own)
	require.NoError(t, err)
	assert.Positive(t, program.Length)
	assert.Len(t, lib.Imported(), len(All()))
}

func TestLookup(t *testing.T) {
	s, ok := Lookup("vybium_dyn_malloc")
	require.True(t, ok)
	assert.Equal(t, "vybium_dyn_malloc", s.Entrypoint())

	_, ok = Lookup("vybium_no_such_snippet")
	assert.False(t, ok)
}
