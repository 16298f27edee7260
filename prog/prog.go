// Package prog defines the instruction program executed by the matching machine.
//
// A Program is produced once by the compiler and is never modified afterwards,
// so a single Program may be shared by any number of concurrent executions.
package prog

import (
	"fmt"
	"regexp/syntax"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// InstOp is an instruction opcode.
type InstOp uint8

const (
	InstFail  InstOp = iota // dead end
	InstRune                // consume one rune in Runes, continue at Out
	InstSplit               // continue at Out first, then at Arg
	InstJump                // continue at Out
	InstSave                // record position in slot Arg, continue at Out
	InstMark                // set mark bit Arg, continue at Out
	InstEmpty               // zero-width assertion Arg, continue at Out
	InstMatch               // accept
)

var instOpNames = []string{
	InstFail:  "fail",
	InstRune:  "rune",
	InstSplit: "split",
	InstJump:  "jmp",
	InstSave:  "save",
	InstMark:  "mark",
	InstEmpty: "empty",
	InstMatch: "match",
}

func (op InstOp) String() string {
	if int(op) < len(instOpNames) {
		return instOpNames[op]
	}
	return "op" + strconv.Itoa(int(op))
}

// EmptyOp is a set of zero-width assertions. It shares its bit layout with
// regexp/syntax so that syntax.EmptyOpContext can compute it.
type EmptyOp = syntax.EmptyOp

const (
	EmptyBeginLine      = syntax.EmptyBeginLine
	EmptyEndLine        = syntax.EmptyEndLine
	EmptyBeginText      = syntax.EmptyBeginText
	EmptyEndText        = syntax.EmptyEndText
	EmptyWordBoundary   = syntax.EmptyWordBoundary
	EmptyNoWordBoundary = syntax.EmptyNoWordBoundary
)

// Inst is a single program instruction. Addresses are indexes into Program.Inst.
type Inst struct {
	Op    InstOp
	Out   uint32
	Arg   uint32
	Runes []rune // InstRune only: sorted, non-overlapping lo/hi pairs
}

// linearScanLimit is the number of ranges below which MatchRune scans linearly.
const linearScanLimit = 8

// MatchRune reports whether r is inside one of the instruction's rune ranges.
func (i *Inst) MatchRune(r rune) bool {
	runes := i.Runes
	if len(runes) <= 2*linearScanLimit {
		for j := 0; j < len(runes); j += 2 {
			if r < runes[j] {
				return false
			}
			if r <= runes[j+1] {
				return true
			}
		}
		return false
	}

	lo, hi := 0, len(runes)/2
	for lo < hi {
		m := lo + (hi-lo)/2
		if c := runes[2*m]; c <= r {
			if r <= runes[2*m+1] {
				return true
			}
			lo = m + 1
		} else {
			hi = m
		}
	}
	return false
}

// Program is a compiled instruction sequence plus the metadata the machine
// needs to run it.
type Program struct {
	Inst     []Inst
	Start    int
	NumSlots int // 2 x (capture groups + 1); slots 0 and 1 hold the overall match
	NumMarks int // highest reachable mark index + 1, or 0 when no mark is reachable

	// Anchored is set when every match must begin at the start of the text.
	Anchored bool

	// Prefix is a literal every match begins with. Empty when unknown.
	Prefix string

	// MinLen is a lower bound, in bytes, on the length of any match.
	MinLen int
}

// HasMarks reports whether executing the program can set any mark bit.
func (p *Program) HasMarks() bool {
	return p.NumMarks > 0
}

// NumGroups returns the number of capture groups, excluding group 0.
func (p *Program) NumGroups() int {
	if p.NumSlots < 2 {
		return 0
	}
	return p.NumSlots/2 - 1
}

// Validate checks that every address and argument of the program is in range.
// It is used for programs that did not come straight out of the compiler.
func (p *Program) Validate() error {
	n := uint32(len(p.Inst))
	if n == 0 {
		return fmt.Errorf("empty program")
	}
	if p.Start < 0 || p.Start >= len(p.Inst) {
		return fmt.Errorf("start %d out of range [0,%d)", p.Start, n)
	}
	if p.NumSlots < 2 || p.NumSlots%2 != 0 {
		return fmt.Errorf("invalid slot count %d", p.NumSlots)
	}
	for pc := range p.Inst {
		i := &p.Inst[pc]
		switch i.Op {
		case InstFail, InstMatch:
			continue
		case InstSplit:
			if i.Arg >= n {
				return fmt.Errorf("inst %d: split target %d out of range", pc, i.Arg)
			}
		case InstSave:
			if int(i.Arg) >= p.NumSlots {
				return fmt.Errorf("inst %d: slot %d out of range", pc, i.Arg)
			}
		case InstMark:
			if int(i.Arg) >= p.NumMarks {
				return fmt.Errorf("inst %d: mark %d out of range", pc, i.Arg)
			}
		case InstRune:
			if len(i.Runes)%2 != 0 {
				return fmt.Errorf("inst %d: odd rune range list", pc)
			}
			if !sort.SliceIsSorted(i.Runes, func(a, b int) bool { return i.Runes[a] < i.Runes[b] }) {
				return fmt.Errorf("inst %d: rune ranges not sorted", pc)
			}
		case InstJump, InstEmpty:
		default:
			return fmt.Errorf("inst %d: unknown opcode %d", pc, i.Op)
		}
		if i.Out >= n {
			return fmt.Errorf("inst %d: target %d out of range", pc, i.Out)
		}
	}
	return nil
}

// String returns a human-readable listing of the program, one instruction per line.
func (p *Program) String() string {
	var b strings.Builder
	for pc := range p.Inst {
		i := &p.Inst[pc]
		marker := "  "
		if pc == p.Start {
			marker = "* "
		}
		fmt.Fprintf(&b, "%s%3d\t", marker, pc)
		dumpInst(&b, i)
		b.WriteByte('\n')
	}
	return b.String()
}

func dumpInst(b *strings.Builder, i *Inst) {
	switch i.Op {
	case InstFail:
		b.WriteString("fail")
	case InstMatch:
		b.WriteString("match")
	case InstRune:
		fmt.Fprintf(b, "rune %s -> %d", formatRanges(i.Runes), i.Out)
	case InstSplit:
		fmt.Fprintf(b, "split %d, %d", i.Out, i.Arg)
	case InstJump:
		fmt.Fprintf(b, "jmp -> %d", i.Out)
	case InstSave:
		fmt.Fprintf(b, "save %d -> %d", i.Arg, i.Out)
	case InstMark:
		fmt.Fprintf(b, "mark %d -> %d", i.Arg, i.Out)
	case InstEmpty:
		fmt.Fprintf(b, "empty %s -> %d", formatEmpty(EmptyOp(i.Arg)), i.Out)
	default:
		fmt.Fprintf(b, "%v", i.Op)
	}
}

func formatRanges(runes []rune) string {
	if len(runes) == 0 {
		return "[]"
	}
	var b strings.Builder
	b.WriteByte('[')
	for j := 0; j < len(runes); j += 2 {
		lo, hi := runes[j], runes[j+1]
		b.WriteString(formatRune(lo))
		if hi != lo {
			b.WriteByte('-')
			b.WriteString(formatRune(hi))
		}
	}
	b.WriteByte(']')
	return b.String()
}

func formatRune(r rune) string {
	if r < unicode.MaxASCII && unicode.IsPrint(r) && !strings.ContainsRune(`[]-\`, r) {
		return string(r)
	}
	if r == unicode.MaxRune {
		return `\x{10ffff}`
	}
	return fmt.Sprintf(`\x{%x}`, r)
}

var emptyNames = []struct {
	op   EmptyOp
	name string
}{
	{EmptyBeginLine, "^"},
	{EmptyEndLine, "$"},
	{EmptyBeginText, `\A`},
	{EmptyEndText, `\z`},
	{EmptyWordBoundary, `\b`},
	{EmptyNoWordBoundary, `\B`},
}

func formatEmpty(op EmptyOp) string {
	var parts []string
	for _, e := range emptyNames {
		if op&e.op != 0 {
			parts = append(parts, e.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "")
}
