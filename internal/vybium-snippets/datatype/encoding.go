package datatype

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/hash"

	"github.com/vybium/vybium-snippets/internal/vybium-snippets/utils"
)

// ErrWidth is returned when a word slice does not match the type's width
var ErrWidth = errors.New("wrong number of words")

// ErrRange is returned when a word is outside the range of its type
var ErrRange = errors.New("word out of range")

func checkWidth(t DataType, words []field.Element) error {
	if len(words) != t.Width() {
		return errors.Wrapf(ErrWidth, "%s needs %d words, got %d", t, t.Width(), len(words))
	}
	return nil
}

func u32Limb(word field.Element) (uint32, error) {
	if !utils.IsU32(word) {
		return 0, errors.Wrapf(ErrRange, "limb %d is not a u32", word.Value())
	}
	return uint32(word.Value()), nil
}

// EncodeBool encodes a boolean as 0 or 1
func EncodeBool(b bool) []field.Element {
	if b {
		return []field.Element{field.One}
	}
	return []field.Element{field.Zero}
}

// DecodeBool is the inverse of EncodeBool
func DecodeBool(words []field.Element) (bool, error) {
	if err := checkWidth(Bool, words); err != nil {
		return false, err
	}
	switch words[0].Value() {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, errors.Wrapf(ErrRange, "bool word %d", words[0].Value())
	}
}

// EncodeU32 encodes a u32 as one word
func EncodeU32(x uint32) []field.Element {
	return []field.Element{field.New(uint64(x))}
}

// EncodeU64 encodes a u64 as [hi, lo]
func EncodeU64(x uint64) []field.Element {
	hi, lo := utils.SplitU64(x)
	return []field.Element{field.New(uint64(hi)), field.New(uint64(lo))}
}

// DecodeU64 is the inverse of EncodeU64
func DecodeU64(words []field.Element) (uint64, error) {
	if err := checkWidth(U64, words); err != nil {
		return 0, err
	}
	hi, err := u32Limb(words[0])
	if err != nil {
		return 0, err
	}
	lo, err := u32Limb(words[1])
	if err != nil {
		return 0, err
	}
	return utils.JoinU64(hi, lo), nil
}

// EncodeU128 encodes a value below 2^128 as four u32 limbs, most significant first
func EncodeU128(x *uint256.Int) ([]field.Element, error) {
	if x.BitLen() > 128 {
		return nil, errors.Wrapf(ErrRange, "%s does not fit in 128 bits", x.Hex())
	}

	words := make([]field.Element, 4)
	limb := new(uint256.Int)
	mask := uint256.NewInt(0xFFFFFFFF)
	for i := 0; i < 4; i++ {
		limb.Rsh(x, uint(32*i)).And(limb, mask)
		words[3-i] = field.New(limb.Uint64())
	}
	return words, nil
}

// DecodeU128 is the inverse of EncodeU128
func DecodeU128(words []field.Element) (*uint256.Int, error) {
	if err := checkWidth(U128, words); err != nil {
		return nil, err
	}

	result := new(uint256.Int)
	for _, word := range words {
		limb, err := u32Limb(word)
		if err != nil {
			return nil, err
		}
		result.Lsh(result, 32).Or(result, uint256.NewInt(uint64(limb)))
	}
	return result, nil
}

// EncodeDigest pushes the digest words in order, so the last one ends on top
func EncodeDigest(d hash.Digest) []field.Element {
	words := make([]field.Element, len(d))
	copy(words, d[:])
	return words
}

// DecodeDigest is the inverse of EncodeDigest
func DecodeDigest(words []field.Element) (hash.Digest, error) {
	var d hash.Digest
	if err := checkWidth(Digest, words); err != nil {
		return d, err
	}
	copy(d[:], words)
	return d, nil
}

// EncodeXFE encodes an extension field element given lowest coefficient
// first; the constant term ends on top of the stack
func EncodeXFE(x [3]field.Element) []field.Element {
	return []field.Element{x[2], x[1], x[0]}
}

// DecodeXFE is the inverse of EncodeXFE
func DecodeXFE(words []field.Element) ([3]field.Element, error) {
	if err := checkWidth(XFE, words); err != nil {
		return [3]field.Element{}, err
	}
	return [3]field.Element{words[2], words[1], words[0]}, nil
}

// Validate checks that words are a valid encoding of a value of type t
func (t DataType) Validate(words []field.Element) error {
	if err := checkWidth(t, words); err != nil {
		return err
	}
	switch t.Kind {
	case KindBool:
		_, err := DecodeBool(words)
		return err
	case KindU32, KindU64, KindU128, KindList:
		for _, word := range words {
			if _, err := u32Limb(word); err != nil {
				return err
			}
		}
	}
	return nil
}

// Random returns the encoding of a uniformly random value of type t. List
// pointers are random u32 addresses.
func (t DataType) Random(rng *utils.Prng) []field.Element {
	switch t.Kind {
	case KindBool:
		return EncodeBool(rng.Bool())
	case KindU32, KindList:
		return EncodeU32(rng.Uint32())
	case KindU64:
		return EncodeU64(rng.Uint64())
	case KindU128:
		words := make([]field.Element, 4)
		for i := range words {
			words[i] = field.New(uint64(rng.Uint32()))
		}
		return words
	default:
		return rng.FieldElements(t.Width())
	}
}
