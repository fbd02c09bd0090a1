package vm

import (
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/hash"
)

const (
	// SpongeStateSize is the number of words in the sponge state
	SpongeStateSize = 16

	// SpongeRate is the number of words absorbed or squeezed at once
	SpongeRate = 10
)

// Sponge is the register set behind sponge_init, sponge_absorb and
// sponge_squeeze. Snippet reference implementations drive the same type so
// both executions agree word for word.
type Sponge struct {
	State [SpongeStateSize]field.Element
}

// NewSponge returns a sponge in its initial, all-zero state
func NewSponge() *Sponge {
	s := &Sponge{}
	for i := range s.State {
		s.State[i] = field.Zero
	}
	return s
}

// Clone returns an independent copy; nil stays nil
func (s *Sponge) Clone() *Sponge {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// Equal compares two sponges, treating two nil sponges as equal
func (s *Sponge) Equal(other *Sponge) bool {
	if s == nil || other == nil {
		return s == nil && other == nil
	}
	for i := range s.State {
		if !s.State[i].Equal(other.State[i]) {
			return false
		}
	}
	return true
}

// Absorb overwrites the rate part of the state and permutes
func (s *Sponge) Absorb(input [SpongeRate]field.Element) {
	copy(s.State[:SpongeRate], input[:])
	s.permute()
}

// Squeeze returns the rate part of the state and permutes
func (s *Sponge) Squeeze() [SpongeRate]field.Element {
	var output [SpongeRate]field.Element
	copy(output[:], s.State[:SpongeRate])
	s.permute()
	return output
}

// permute derives every state word from the full previous state
func (s *Sponge) permute() {
	var input [SpongeStateSize + 1]field.Element
	copy(input[:], s.State[:])
	for i := range s.State {
		input[SpongeStateSize] = field.New(uint64(i))
		s.State[i] = hash.PoseidonHash(input[:])
	}
}

// HashTen is the function computed by the hash instruction
func HashTen(input [SpongeRate]field.Element) hash.Digest {
	return hash.Hash10(input)
}
