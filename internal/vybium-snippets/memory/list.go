package memory

import (
	"github.com/pkg/errors"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

const (
	// UnsafeListHeader is the number of words before the first element: [len]
	UnsafeListHeader = 1

	// SafeListHeader is the number of words before the first element: [len, cap]
	SafeListHeader = 2
)

var (
	ErrEmptyList        = errors.New("pop from empty list")
	ErrCapacityExceeded = errors.New("list capacity exceeded")
	ErrIndexOutOfBounds = errors.New("list index out of bounds")
	ErrElementWidth     = errors.New("element has wrong width")
)

// List is a view of a list stored in memory. Element i starts at
// Pointer + header + i*ElementWidth and is laid out by WriteValue.
type List struct {
	Memory       Memory
	Pointer      uint64
	ElementWidth int
	safe         bool
}

// UnsafeList views the list at pointer as [len, elements..] with no bounds checks
func UnsafeList(m Memory, pointer uint64, elementWidth int) *List {
	return &List{Memory: m, Pointer: pointer, ElementWidth: elementWidth}
}

// SafeList views the list at pointer as [len, cap, elements..]
func SafeList(m Memory, pointer uint64, elementWidth int) *List {
	return &List{Memory: m, Pointer: pointer, ElementWidth: elementWidth, safe: true}
}

// NewUnsafeList writes an empty unsafe list header at pointer
func NewUnsafeList(m Memory, pointer uint64, elementWidth int) *List {
	l := UnsafeList(m, pointer, elementWidth)
	l.SetLen(0)
	return l
}

// NewSafeList writes an empty safe list header with the given capacity at pointer
func NewSafeList(m Memory, pointer uint64, elementWidth int, capacity uint64) *List {
	l := SafeList(m, pointer, elementWidth)
	l.SetLen(0)
	m.Write(pointer+1, field.New(capacity))
	return l
}

// SizeInWords is the memory footprint of a list of the given capacity
func SizeInWords(header int, elementWidth int, capacity uint64) uint64 {
	return uint64(header) + capacity*uint64(elementWidth)
}

func (l *List) header() uint64 {
	if l.safe {
		return SafeListHeader
	}
	return UnsafeListHeader
}

// Len returns the stored length
func (l *List) Len() uint64 {
	return l.Memory.Read(l.Pointer).Value()
}

// SetLen overwrites the stored length
func (l *List) SetLen(n uint64) {
	l.Memory.Write(l.Pointer, field.New(n))
}

// Capacity returns the stored capacity of a safe list; unsafe lists have none
func (l *List) Capacity() (uint64, bool) {
	if !l.safe {
		return 0, false
	}
	return l.Memory.Read(l.Pointer + 1).Value(), true
}

// ElementAddress returns the address of the first word of element i
func (l *List) ElementAddress(i uint64) uint64 {
	return l.Pointer + l.header() + i*uint64(l.ElementWidth)
}

func (l *List) checkIndex(i uint64) error {
	if l.safe && i >= l.Len() {
		return errors.Wrapf(ErrIndexOutOfBounds, "index %d, length %d", i, l.Len())
	}
	return nil
}

// Get returns element i in push order
func (l *List) Get(i uint64) ([]field.Element, error) {
	if err := l.checkIndex(i); err != nil {
		return nil, err
	}
	return l.Memory.ReadValue(l.ElementAddress(i), l.ElementWidth), nil
}

// Set overwrites element i
func (l *List) Set(i uint64, element []field.Element) error {
	if len(element) != l.ElementWidth {
		return errors.Wrapf(ErrElementWidth, "want %d words, got %d", l.ElementWidth, len(element))
	}
	if err := l.checkIndex(i); err != nil {
		return err
	}
	l.Memory.WriteValue(l.ElementAddress(i), element)
	return nil
}

// Push appends an element
func (l *List) Push(element []field.Element) error {
	if len(element) != l.ElementWidth {
		return errors.Wrapf(ErrElementWidth, "want %d words, got %d", l.ElementWidth, len(element))
	}

	n := l.Len()
	if capacity, ok := l.Capacity(); ok && n >= capacity {
		return errors.Wrapf(ErrCapacityExceeded, "capacity %d", capacity)
	}

	l.Memory.WriteValue(l.ElementAddress(n), element)
	l.SetLen(n + 1)
	return nil
}

// Pop removes and returns the last element
func (l *List) Pop() ([]field.Element, error) {
	n := l.Len()
	if n == 0 {
		return nil, ErrEmptyList
	}

	element := l.Memory.ReadValue(l.ElementAddress(n-1), l.ElementWidth)
	l.SetLen(n - 1)
	return element, nil
}

// Elements returns all elements in order
func (l *List) Elements() [][]field.Element {
	n := l.Len()
	elements := make([][]field.Element, n)
	for i := uint64(0); i < n; i++ {
		elements[i] = l.Memory.ReadValue(l.ElementAddress(i), l.ElementWidth)
	}
	return elements
}
