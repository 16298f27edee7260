package compiler

import (
	"strings"

	"github.com/KromDaniel/regmark/prog"
)

// compact retargets edges past Jump instructions, drops instructions that
// cannot be reached from Start and renumbers the rest. Fail stays at FailPC.
func compact(p *prog.Program) {
	follow := func(pc uint32) uint32 {
		// A chain longer than the program is a cycle of jumps; leave it alone.
		for n := 0; n < len(p.Inst) && p.Inst[pc].Op == prog.InstJump; n++ {
			pc = p.Inst[pc].Out
		}
		return pc
	}

	for pc := range p.Inst {
		in := &p.Inst[pc]
		switch in.Op {
		case prog.InstFail, prog.InstMatch:
			continue
		case prog.InstSplit:
			in.Arg = follow(in.Arg)
		}
		in.Out = follow(in.Out)
	}
	start := follow(uint32(p.Start))

	reachable := make([]bool, len(p.Inst))
	reachable[FailPC] = true
	stack := []uint32{start}
	for len(stack) > 0 {
		pc := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reachable[pc] {
			continue
		}
		reachable[pc] = true
		in := &p.Inst[pc]
		switch in.Op {
		case prog.InstFail, prog.InstMatch:
		case prog.InstSplit:
			stack = append(stack, in.Arg, in.Out)
		default:
			stack = append(stack, in.Out)
		}
	}

	remap := make([]uint32, len(p.Inst))
	kept := p.Inst[:0]
	for pc, in := range p.Inst {
		if !reachable[pc] {
			continue
		}
		remap[pc] = uint32(len(kept))
		kept = append(kept, in)
	}
	for i := range kept {
		in := &kept[i]
		switch in.Op {
		case prog.InstFail, prog.InstMatch:
			in.Out = FailPC
			continue
		case prog.InstSplit:
			in.Arg = remap[in.Arg]
		}
		in.Out = remap[in.Out]
	}

	// Release the tail so dropped rune slices can be collected.
	for i := len(kept); i < len(p.Inst); i++ {
		p.Inst[i] = prog.Inst{}
	}
	p.Inst = kept
	p.Start = int(remap[start])
}

// analyze fills in the program metadata the machine relies on. It expects a
// compacted program, in which every instruction is reachable.
func analyze(p *prog.Program) {
	p.NumMarks = 0
	for i := range p.Inst {
		if in := &p.Inst[i]; in.Op == prog.InstMark && int(in.Arg) >= p.NumMarks {
			p.NumMarks = int(in.Arg) + 1
		}
	}
	p.Anchored = isAnchored(p)
	p.Prefix = literalPrefix(p)
}

// isAnchored reports whether every path from Start passes \A before
// consuming input or setting a mark.
func isAnchored(p *prog.Program) bool {
	pc := p.Start
	for n := 0; n < len(p.Inst); n++ {
		in := &p.Inst[pc]
		switch in.Op {
		case prog.InstSave:
		case prog.InstEmpty:
			if prog.EmptyOp(in.Arg)&prog.EmptyBeginText != 0 {
				return true
			}
		default:
			return false
		}
		pc = int(in.Out)
	}
	return false
}

// literalPrefix returns the literal every match starts with: the run of
// single-rune instructions reached from Start through captures only.
func literalPrefix(p *prog.Program) string {
	var b strings.Builder
	pc := p.Start
	for n := 0; n < len(p.Inst); n++ {
		in := &p.Inst[pc]
		switch in.Op {
		case prog.InstSave:
		case prog.InstRune:
			if len(in.Runes) != 2 || in.Runes[0] != in.Runes[1] || !validRune(in.Runes[0]) {
				return b.String()
			}
			b.WriteRune(in.Runes[0])
		default:
			return b.String()
		}
		pc = int(in.Out)
	}
	return b.String()
}

// validRune excludes runes whose UTF-8 form would not round-trip through the
// input decoder.
func validRune(r rune) bool {
	return r >= 0 && r <= 0x10FFFF && (r < 0xD800 || r > 0xDFFF) && r != 0xFFFD
}
