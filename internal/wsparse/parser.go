// Package wsparse is the external collaborator of §6: "a function
// parse(source_bytes) -> Vec<Instruction>". It is the only place in this
// repository that knows Whitespace's concrete syntax (space/tab/newline
// tokens); the core never looks at raw bytes.
package wsparse

import (
	"fmt"

	"whitesymex/internal/ir"
)

type tok byte

const (
	tSpace tok = iota
	tTab
	tLF
)

// lex strips every byte that isn't space, tab, or newline — Whitespace
// treats anything else as a comment — and returns the remaining token
// stream.
func lex(src []byte) []tok {
	out := make([]tok, 0, len(src))
	for _, b := range src {
		switch b {
		case ' ':
			out = append(out, tSpace)
		case '\t':
			out = append(out, tTab)
		case '\n':
			out = append(out, tLF)
		}
	}
	return out
}

// Parse compiles Whitespace source into the instruction sequence
// internal/interp executes. It is a direct, unoptimized transliteration of
// the public Whitespace IMP grammar.
func Parse(src []byte) ([]ir.Instruction, error) {
	p := &parser{toks: lex(src)}
	var out []ir.Instruction
	for !p.atEnd() {
		instr, err := p.instruction()
		if err != nil {
			return nil, err
		}
		out = append(out, instr)
	}
	return out, nil
}

type parser struct {
	toks []tok
	pos  int
}

func (p *parser) atEnd() bool { return p.pos >= len(p.toks) }

func (p *parser) next() (tok, error) {
	if p.atEnd() {
		return 0, fmt.Errorf("wsparse: unexpected end of input")
	}
	t := p.toks[p.pos]
	p.pos++
	return t, nil
}

func (p *parser) instruction() (ir.Instruction, error) {
	imp, err := p.next()
	if err != nil {
		return ir.Instruction{}, err
	}
	switch imp {
	case tSpace:
		return p.stackManip()
	case tTab:
		sub, err := p.next()
		if err != nil {
			return ir.Instruction{}, err
		}
		switch sub {
		case tSpace:
			return p.arithmetic()
		case tTab:
			return p.heapAccess()
		case tLF:
			return p.ioInstr()
		}
	case tLF:
		return p.flowControl()
	}
	return ir.Instruction{}, fmt.Errorf("wsparse: unreachable IMP dispatch")
}

func (p *parser) stackManip() (ir.Instruction, error) {
	t, err := p.next()
	if err != nil {
		return ir.Instruction{}, err
	}
	switch t {
	case tSpace:
		n, err := p.number()
		if err != nil {
			return ir.Instruction{}, err
		}
		return ir.Instruction{Op: ir.OpPush, Num: n}, nil
	case tTab:
		t2, err := p.next()
		if err != nil {
			return ir.Instruction{}, err
		}
		switch t2 {
		case tSpace:
			n, err := p.number()
			if err != nil {
				return ir.Instruction{}, err
			}
			return ir.Instruction{Op: ir.OpCopy, Num: n}, nil
		case tTab:
			n, err := p.number()
			if err != nil {
				return ir.Instruction{}, err
			}
			return ir.Instruction{Op: ir.OpSlide, Num: n}, nil
		}
	case tLF:
		t2, err := p.next()
		if err != nil {
			return ir.Instruction{}, err
		}
		switch t2 {
		case tSpace:
			return ir.Instruction{Op: ir.OpDuplicate}, nil
		case tTab:
			return ir.Instruction{Op: ir.OpSwap}, nil
		case tLF:
			return ir.Instruction{Op: ir.OpDiscard}, nil
		}
	}
	return ir.Instruction{}, fmt.Errorf("wsparse: malformed stack manipulation instruction")
}

func (p *parser) arithmetic() (ir.Instruction, error) {
	a, err := p.next()
	if err != nil {
		return ir.Instruction{}, err
	}
	b, err := p.next()
	if err != nil {
		return ir.Instruction{}, err
	}
	switch {
	case a == tSpace && b == tSpace:
		return ir.Instruction{Op: ir.OpAdd}, nil
	case a == tSpace && b == tTab:
		return ir.Instruction{Op: ir.OpSub}, nil
	case a == tSpace && b == tLF:
		return ir.Instruction{Op: ir.OpMul}, nil
	case a == tTab && b == tSpace:
		return ir.Instruction{Op: ir.OpDiv}, nil
	case a == tTab && b == tTab:
		return ir.Instruction{Op: ir.OpMod}, nil
	}
	return ir.Instruction{}, fmt.Errorf("wsparse: malformed arithmetic instruction")
}

func (p *parser) heapAccess() (ir.Instruction, error) {
	t, err := p.next()
	if err != nil {
		return ir.Instruction{}, err
	}
	switch t {
	case tSpace:
		return ir.Instruction{Op: ir.OpStore}, nil
	case tTab:
		return ir.Instruction{Op: ir.OpRetrieve}, nil
	}
	return ir.Instruction{}, fmt.Errorf("wsparse: malformed heap access instruction")
}

func (p *parser) flowControl() (ir.Instruction, error) {
	a, err := p.next()
	if err != nil {
		return ir.Instruction{}, err
	}
	if a == tLF {
		b, err := p.next()
		if err != nil {
			return ir.Instruction{}, err
		}
		if b == tLF {
			return ir.Instruction{Op: ir.OpExit}, nil
		}
		return ir.Instruction{}, fmt.Errorf("wsparse: malformed flow control instruction")
	}
	b, err := p.next()
	if err != nil {
		return ir.Instruction{}, err
	}
	if a == tTab && b == tLF {
		return ir.Instruction{Op: ir.OpReturn}, nil
	}
	lbl, err := p.label()
	if err != nil {
		return ir.Instruction{}, err
	}
	switch {
	case a == tSpace && b == tSpace:
		return ir.Instruction{Op: ir.OpMark, Label: lbl}, nil
	case a == tSpace && b == tTab:
		return ir.Instruction{Op: ir.OpCall, Label: lbl}, nil
	case a == tSpace && b == tLF:
		return ir.Instruction{Op: ir.OpJump, Label: lbl}, nil
	case a == tTab && b == tSpace:
		return ir.Instruction{Op: ir.OpJumpZero, Label: lbl}, nil
	case a == tTab && b == tTab:
		return ir.Instruction{Op: ir.OpJumpNegative, Label: lbl}, nil
	}
	return ir.Instruction{}, fmt.Errorf("wsparse: malformed flow control instruction")
}

func (p *parser) ioInstr() (ir.Instruction, error) {
	a, err := p.next()
	if err != nil {
		return ir.Instruction{}, err
	}
	b, err := p.next()
	if err != nil {
		return ir.Instruction{}, err
	}
	switch {
	case a == tSpace && b == tSpace:
		return ir.Instruction{Op: ir.OpOutChar}, nil
	case a == tSpace && b == tTab:
		return ir.Instruction{Op: ir.OpOutNum}, nil
	case a == tTab && b == tSpace:
		return ir.Instruction{Op: ir.OpReadChar}, nil
	case a == tTab && b == tTab:
		return ir.Instruction{Op: ir.OpReadNum}, nil
	}
	return ir.Instruction{}, fmt.Errorf("wsparse: malformed I/O instruction")
}

// number parses a sign bit followed by magnitude bits, terminated by LF:
// space is the 0 bit, tab is the 1 bit, and the sign bit's tab means
// negative (§3: "sign + bit encoding").
func (p *parser) number() (int64, error) {
	sign, err := p.next()
	if err != nil {
		return 0, err
	}
	var mag int64
	for {
		t, err := p.next()
		if err != nil {
			return 0, fmt.Errorf("wsparse: unterminated number literal")
		}
		if t == tLF {
			break
		}
		mag <<= 1
		if t == tTab {
			mag |= 1
		}
	}
	if sign == tTab {
		return -mag, nil
	}
	return mag, nil
}

// label parses a bitstring of space/tab terminated by LF into the opaque
// ir.Label the interpreter indexes by.
func (p *parser) label() (ir.Label, error) {
	bits := make([]byte, 0, 8)
	for {
		t, err := p.next()
		if err != nil {
			return "", fmt.Errorf("wsparse: unterminated label")
		}
		if t == tLF {
			break
		}
		if t == tTab {
			bits = append(bits, '1')
		} else {
			bits = append(bits, '0')
		}
	}
	return ir.Label(bits), nil
}
