// Package asm parses the textual assembly that snippet code generators emit.
//
// The syntax is one token per word: "name:" defines a label, a mnemonic is
// followed by its argument when it takes one ("push -1", "dup 3",
// "call other_label"), and "//" starts a comment running to the end of the line.
package asm

import (
	"fmt"
	"strconv"
	"strings"
	"text/scanner"
	"unicode"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/vm"
)

func isIdentRune(ch rune, i int) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' || ch == '-' || ch == ':'
}

type parser struct {
	s      scanner.Scanner
	code   []vm.LabelledInstruction
	labels map[string]scanner.Position
	err    error
}

func scanError(s *scanner.Scanner, msg string) error {
	pos := s.Position
	if !pos.IsValid() {
		pos = s.Pos()
	}
	return fmt.Errorf("%s: %s", pos, msg)
}

// Parse turns assembly text into labelled instructions. Call targets are left
// symbolic; vm.Link resolves them once every body is assembled.
func Parse(source string) ([]vm.LabelledInstruction, error) {
	p := &parser{labels: make(map[string]scanner.Position)}
	p.s.Init(strings.NewReader(source))
	p.s.Error = func(s *scanner.Scanner, msg string) {
		p.err = scanError(s, msg)
	}
	p.s.IsIdentRune = isIdentRune
	p.s.Mode = scanner.ScanIdents | scanner.ScanComments | scanner.SkipComments
	p.s.Filename = "snippet"

	for tok := p.s.Scan(); p.err == nil && tok != scanner.EOF; tok = p.s.Scan() {
		if tok != scanner.Ident {
			p.err = scanError(&p.s, "unexpected character "+strconv.QuoteRune(tok))
			break
		}
		p.word(p.s.TokenText())
	}

	if p.err != nil {
		return nil, p.err
	}
	return p.code, nil
}

// MustParse is like Parse but panics on malformed source. Snippet bodies are
// program constants, so a parse failure is a bug in the snippet.
func MustParse(source string) []vm.LabelledInstruction {
	code, err := Parse(source)
	if err != nil {
		panic(fmt.Sprintf("asm: %v\n%s", err, source))
	}
	return code
}

func (p *parser) word(s string) {
	if strings.HasSuffix(s, ":") {
		p.label(strings.TrimSuffix(s, ":"))
		return
	}

	inst, ok := vm.InstructionByName(s)
	if !ok {
		p.err = scanError(&p.s, "unknown instruction: "+s)
		return
	}

	if !inst.HasArgument() {
		p.code = append(p.code, vm.Instr(inst))
		return
	}

	if p.s.Scan() != scanner.Ident {
		p.err = scanError(&p.s, "missing argument for "+s)
		return
	}
	arg := p.s.TokenText()

	if inst == vm.Call {
		if !isLabelName(arg) {
			p.err = scanError(&p.s, "invalid call target: "+arg)
			return
		}
		p.code = append(p.code, vm.CallLabel(arg))
		return
	}

	value, err := parseWord(arg)
	if err != nil {
		p.err = scanError(&p.s, err.Error())
		return
	}
	p.code = append(p.code, vm.InstrArg(inst, value))
}

func (p *parser) label(name string) {
	if !isLabelName(name) {
		p.err = scanError(&p.s, "invalid label name: "+strconv.Quote(name))
		return
	}
	if prev, ok := p.labels[name]; ok {
		p.err = scanError(&p.s, "label redefinition: "+name+", previous definition here: "+prev.String())
		return
	}
	p.labels[name] = p.s.Position
	p.code = append(p.code, vm.LabelDef(name))
}

func isLabelName(name string) bool {
	if name == "" || strings.ContainsAny(name, ":-") {
		return false
	}
	first := rune(name[0])
	return unicode.IsLetter(first) || first == '_'
}

// parseWord parses a decimal or 0x-prefixed literal. Negative literals wrap
// around the field modulus, so "push -1" pushes p-1.
func parseWord(s string) (field.Element, error) {
	negative := strings.HasPrefix(s, "-")
	magnitude, err := strconv.ParseUint(strings.TrimPrefix(s, "-"), 0, 64)
	if err != nil {
		return field.Zero, fmt.Errorf("invalid number %q", s)
	}
	if magnitude >= field.P {
		return field.Zero, fmt.Errorf("number %q is not a field element", s)
	}

	value := field.New(magnitude)
	if negative {
		value = value.Neg()
	}
	return value, nil
}
