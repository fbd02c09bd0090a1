// Package library links snippet bodies into one program.
//
// A Library is handed to every code generator. Importing a snippet returns
// its label; the body is generated and stored the first time the snippet's
// identity is seen, and never again. A Library also hands out static memory:
// address ranges fixed at link time and private to the snippet that asked.
package library

import (
	"reflect"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/vybium/vybium-snippets/internal/vybium-snippets/memory"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/utils"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/vm"
)

// TopLevel owns static allocations made outside any snippet's code generator
const TopLevel = "<main>"

var (
	// ErrLabelCollision is recorded when two different snippets claim one
	// entrypoint, or two bodies define the same label
	ErrLabelCollision = errors.New("label collision")

	// ErrMissingEntrypoint is recorded when a body does not define its own entrypoint
	ErrMissingEntrypoint = errors.New("body does not define its entrypoint")

	// ErrStaticMemoryExhausted is recorded when static memory would reach 2^32
	ErrStaticMemoryExhausted = errors.New("static memory exhausted")
)

// Importable is anything that can be linked in by label
type Importable interface {
	// Entrypoint is the snippet's identity and the label its body defines
	Entrypoint() string

	// Code generates the body. It may import other snippets and allocate
	// static memory through lib.
	Code(lib *Library) []vm.LabelledInstruction
}

// StaticAllocation is one range handed out by AllocateStatic
type StaticAllocation struct {
	Owner   string
	Address uint64
	Words   uint64
}

// Library is the import table and static memory cursor of one program being
// linked. It is not safe for concurrent use.
type Library struct {
	identities  map[string]reflect.Type
	order       []string
	bodies      map[string][]vm.LabelledInstruction
	labels      map[string]string
	owners      []string
	cursor      uint64
	allocations []StaticAllocation
	err         error
}

// New returns an empty library. Static memory starts right after the
// dynamic allocator cell.
func New() *Library {
	return WithPreallocatedMemory(0)
}

// WithPreallocatedMemory returns an empty library whose static memory starts
// after words addresses already claimed by an enclosing context
func WithPreallocatedMemory(words uint64) *Library {
	return &Library{
		identities: make(map[string]reflect.Type),
		bodies:     make(map[string][]vm.LabelledInstruction),
		labels:     make(map[string]string),
		cursor:     memory.DynMallocAddress + 1 + words,
	}
}

// Import makes the snippet's body part of the program and returns the label
// to call. The body is generated at most once per entrypoint. The label is
// registered before the generator runs, so a body may call itself and two
// snippets may call each other.
func (l *Library) Import(s Importable) string {
	label := s.Entrypoint()
	kind := reflect.TypeOf(s)

	if seen, ok := l.identities[label]; ok {
		if seen != kind {
			l.fail(errors.Wrapf(ErrLabelCollision, "entrypoint %q claimed by %s and %s", label, seen, kind))
		}
		return label
	}

	l.identities[label] = kind
	l.order = append(l.order, label)

	l.owners = append(l.owners, label)
	body := s.Code(l)
	l.owners = l.owners[:len(l.owners)-1]

	l.register(label, body)
	log.WithFields(log.Fields{
		"label":        label,
		"instructions": len(body),
	}).Debug("imported snippet")

	return label
}

func (l *Library) register(owner string, body []vm.LabelledInstruction) {
	definesEntrypoint := false
	for _, name := range vm.Labels(body) {
		if name == owner {
			definesEntrypoint = true
		}
		if other, ok := l.labels[name]; ok {
			l.fail(errors.Wrapf(ErrLabelCollision, "label %q defined by %q and %q", name, other, owner))
			continue
		}
		l.labels[name] = owner
	}
	if !definesEntrypoint {
		l.fail(errors.Wrapf(ErrMissingEntrypoint, "%q", owner))
	}
	l.bodies[owner] = body
}

// AllocateStatic reserves words consecutive addresses for the snippet whose
// code generator is running and returns the first one. Ranges never overlap
// and are never reused within one Library.
//
// Because bodies are generated once per entrypoint, the range is shared by
// every call to that snippet in the program. A snippet that is called again
// while an earlier call still expects its data to be intact will clobber it.
//
// The watermark must stay a u32 so it can seed the allocator cell. A request
// that would move it to 2^32 or beyond records ErrStaticMemoryExhausted and
// leaves the cursor where it was.
func (l *Library) AllocateStatic(words uint64) uint64 {
	owner := TopLevel
	if len(l.owners) > 0 {
		owner = l.owners[len(l.owners)-1]
	}

	address := l.cursor
	if words >= utils.U32Limit || address+words >= utils.U32Limit {
		l.fail(errors.Wrapf(ErrStaticMemoryExhausted, "%s asked for %d words at %d", owner, words, address))
		return address
	}
	l.cursor += words
	l.allocations = append(l.allocations, StaticAllocation{Owner: owner, Address: address, Words: words})

	log.WithFields(log.Fields{
		"owner":   owner,
		"address": address,
		"words":   words,
	}).Debug("allocated static memory")

	return address
}

// StaticAllocations returns every range handed out so far, in allocation order
func (l *Library) StaticAllocations() []StaticAllocation {
	return append([]StaticAllocation(nil), l.allocations...)
}

// StaticWatermark is the first address not yet handed out by AllocateStatic
func (l *Library) StaticWatermark() uint64 {
	return l.cursor
}

// Imported returns the labels of all imported snippets, in first-import order
func (l *Library) Imported() []string {
	return append([]string(nil), l.order...)
}

// AllImports concatenates the bodies of every imported snippet, in
// first-import order
func (l *Library) AllImports() ([]vm.LabelledInstruction, error) {
	if l.err != nil {
		return nil, l.err
	}

	code := make([]vm.LabelledInstruction, 0)
	for _, label := range l.order {
		code = append(code, l.bodies[label]...)
	}
	return code, nil
}

// Assemble returns own followed by every imported body
func (l *Library) Assemble(own []vm.LabelledInstruction) ([]vm.LabelledInstruction, error) {
	imports, err := l.AllImports()
	if err != nil {
		return nil, err
	}

	code := make([]vm.LabelledInstruction, 0, len(own)+len(imports))
	code = append(code, own...)
	return append(code, imports...), nil
}

// Link assembles own with the imports and resolves labels into a program
func (l *Library) Link(own []vm.LabelledInstruction) (*vm.Program, error) {
	code, err := l.Assemble(own)
	if err != nil {
		return nil, err
	}

	program, err := vm.Link(code)
	if err != nil {
		return nil, errors.Wrap(err, "linking")
	}
	return program, nil
}

// Err returns the first error recorded while importing
func (l *Library) Err() error {
	return l.err
}

func (l *Library) fail(err error) {
	log.WithError(err).Debug("library error")
	if l.err == nil {
		l.err = err
	}
}
