package utils

import (
	"encoding/binary"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
	"golang.org/x/crypto/sha3"
)

// Prng is a deterministic random source for initial-state generators. It
// squeezes a SHAKE256 stream seeded with a label, so a failing state can be
// reproduced from the seed alone.
type Prng struct {
	stream sha3.ShakeHash
	buf    [8]byte
}

// NewPrng creates a generator seeded with the given label
func NewPrng(seed string) *Prng {
	stream := sha3.NewShake256()
	_, _ = stream.Write([]byte(seed))
	return &Prng{stream: stream}
}

// Fork derives an independent generator, so parallel verifications do not
// share a stream
func (p *Prng) Fork(label string) *Prng {
	var seed [32]byte
	_, _ = p.stream.Read(seed[:])
	return NewPrng(string(seed[:]) + label)
}

// Uint64 returns 64 uniformly random bits
func (p *Prng) Uint64() uint64 {
	_, _ = p.stream.Read(p.buf[:])
	return binary.LittleEndian.Uint64(p.buf[:])
}

// Uint32 returns 32 uniformly random bits
func (p *Prng) Uint32() uint32 {
	return uint32(p.Uint64())
}

// Intn returns a value in [0, n); it panics if n <= 0
func (p *Prng) Intn(n int) int {
	if n <= 0 {
		panic("utils: Intn with non-positive bound")
	}
	return int(p.Uint64() % uint64(n))
}

// Bool returns a random bit
func (p *Prng) Bool() bool {
	return p.Uint64()&1 == 1
}

// FieldElement returns a field element, rejecting samples outside the field
func (p *Prng) FieldElement() field.Element {
	for {
		if value := p.Uint64(); value < field.P {
			return field.New(value)
		}
	}
}

// FieldElements returns n random field elements
func (p *Prng) FieldElements(n int) []field.Element {
	elements := make([]field.Element, n)
	for i := range elements {
		elements[i] = p.FieldElement()
	}
	return elements
}
