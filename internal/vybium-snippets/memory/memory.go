// Package memory models the machine's sparse word memory together with the
// layouts snippets agree on: multi-word values, lists and the bump allocator.
package memory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// Memory maps addresses to words. Addresses that were never written read as zero.
type Memory map[field.Element]field.Element

// Cell is one initialised memory word
type Cell struct {
	Address uint64
	Value   uint64
}

// New returns an empty memory
func New() Memory {
	return make(Memory)
}

// Read returns the word at address
func (m Memory) Read(address uint64) field.Element {
	return m.ReadAt(field.New(address))
}

// ReadAt returns the word at a field-valued address
func (m Memory) ReadAt(address field.Element) field.Element {
	if value, ok := m[address]; ok {
		return value
	}
	return field.Zero
}

// Write stores a word at address
func (m Memory) Write(address uint64, value field.Element) {
	m[field.New(address)] = value
}

// WriteAt stores a word at a field-valued address
func (m Memory) WriteAt(address field.Element, value field.Element) {
	m[address] = value
}

// WriteValue stores a value whose words are given in push order, laid out
// the way write_mem leaves it: the word nearest the top goes to the lowest
// address.
func (m Memory) WriteValue(address uint64, words []field.Element) {
	n := len(words)
	for j := 0; j < n; j++ {
		m.Write(address+uint64(j), words[n-1-j])
	}
}

// ReadValue is the inverse of WriteValue and returns the words in push order
func (m Memory) ReadValue(address uint64, width int) []field.Element {
	words := make([]field.Element, width)
	for j := 0; j < width; j++ {
		words[width-1-j] = m.Read(address + uint64(j))
	}
	return words
}

// Clone returns an independent copy
func (m Memory) Clone() Memory {
	clone := make(Memory, len(m))
	for address, value := range m {
		clone[address] = value
	}
	return clone
}

// Contents lists the initialised words in address order
func (m Memory) Contents() []Cell {
	cells := make([]Cell, 0, len(m))
	for address, value := range m {
		cells = append(cells, Cell{Address: address.Value(), Value: value.Value()})
	}
	sort.Slice(cells, func(i, j int) bool {
		return cells[i].Address < cells[j].Address
	})
	return cells
}

func (m Memory) String() string {
	var sb strings.Builder
	for _, cell := range m.Contents() {
		fmt.Fprintf(&sb, "(%d => %d)\n", cell.Address, cell.Value)
	}
	return sb.String()
}
