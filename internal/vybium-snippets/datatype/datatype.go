// Package datatype fixes how values map to machine words.
//
// Every type has a fixed width in words. A value's encoding is given in push
// order: the last word of the encoding ends nearest the top of the stack. Wide
// integers put their least significant u32 limb last, so "_ hi lo" is a u64 on
// the stack. Lists are passed around as a one-word pointer.
package datatype

import (
	"fmt"
)

// Kind enumerates the supported value types
type Kind int

const (
	KindBool Kind = iota
	KindU32
	KindU64
	KindU128
	KindBFE
	KindXFE
	KindDigest
	KindList
)

// DataType describes a value type. Element is set for lists only.
type DataType struct {
	Kind    Kind
	Element *DataType
}

var (
	Bool   = DataType{Kind: KindBool}
	U32    = DataType{Kind: KindU32}
	U64    = DataType{Kind: KindU64}
	U128   = DataType{Kind: KindU128}
	BFE    = DataType{Kind: KindBFE}
	XFE    = DataType{Kind: KindXFE}
	Digest = DataType{Kind: KindDigest}
)

// List returns the type of a pointer to a list of the given element type
func List(element DataType) DataType {
	return DataType{Kind: KindList, Element: &element}
}

// Width returns the number of words a value of this type occupies on the stack
func (t DataType) Width() int {
	switch t.Kind {
	case KindBool, KindU32, KindBFE, KindList:
		return 1
	case KindU64:
		return 2
	case KindXFE:
		return 3
	case KindU128:
		return 4
	case KindDigest:
		return 5
	default:
		panic(fmt.Sprintf("datatype: unknown kind %d", t.Kind))
	}
}

// Equal reports whether two types are the same, comparing list elements structurally
func (t DataType) Equal(other DataType) bool {
	if t.Kind != other.Kind {
		return false
	}
	if t.Kind != KindList {
		return true
	}
	return t.Element.Equal(*other.Element)
}

func (t DataType) String() string {
	switch t.Kind {
	case KindBool:
		return "bool"
	case KindU32:
		return "u32"
	case KindU64:
		return "u64"
	case KindU128:
		return "u128"
	case KindBFE:
		return "bfe"
	case KindXFE:
		return "xfe"
	case KindDigest:
		return "digest"
	case KindList:
		return "list<" + t.Element.String() + ">"
	default:
		return fmt.Sprintf("kind(%d)", t.Kind)
	}
}

// LabelFriendlyName renders the type using only characters valid in labels,
// for use in the entrypoints of snippets parametrised over a type
func (t DataType) LabelFriendlyName() string {
	if t.Kind == KindList {
		return "list_L" + t.Element.LabelFriendlyName() + "R"
	}
	return t.String()
}

// Param is one named slot of a snippet's stack signature
type Param struct {
	Name string
	Type DataType
}

// NewParam is shorthand for a Param literal
func NewParam(name string, t DataType) Param {
	return Param{Name: name, Type: t}
}

// TotalWidth sums the widths of the given parameters
func TotalWidth(params []Param) int {
	total := 0
	for _, p := range params {
		total += p.Type.Width()
	}
	return total
}
