// Package compiler turns a pattern tree into an instruction program.
package compiler

import (
	"log/slog"

	"github.com/KromDaniel/regmark/internal/syntax"
	"github.com/KromDaniel/regmark/prog"
)

// Config holds the bounds declared by the parser and the emission options.
type Config struct {
	Pattern       string        // Source pattern, used for logging only
	NumCaptures   int           // Number of capture groups, excluding group 0
	MaxMark       int           // Highest permitted mark index; -1 forbids marks
	MarkPlacement MarkPlacement // Where SetMark is emitted relative to the marked subexpression
	MaxInst       int           // Instruction limit; 0 means DefaultMaxInst
	Verbose       bool          // Enable verbose logging of compilation decisions
	Logger        *slog.Logger  // Destination of verbose logs; nil uses slog.Default
}

// ConfigFor returns a Config carrying the bounds declared by t.
func ConfigFor(t *syntax.Tree) Config {
	return Config{
		NumCaptures: t.NumCaptures,
		MaxMark:     t.MaxMark,
	}
}

// Compiler emits programs from pattern trees.
type Compiler struct {
	config  Config
	logger  *Logger
	p       *prog.Program
	maxInst int
	err     *Error
}

// New creates a new compiler instance.
func New(config Config) *Compiler {
	logger := NewLogger(config.Verbose)
	logger.SetLogger(config.Logger)

	maxInst := config.MaxInst
	if maxInst <= 0 {
		maxInst = DefaultMaxInst
	}

	return &Compiler{
		config:  config,
		logger:  logger,
		maxInst: maxInst,
	}
}

// Compile compiles re with a fresh compiler built from config.
func Compile(re *syntax.Node, config Config) (*prog.Program, error) {
	return New(config).Compile(re)
}

// CompileTree compiles a parsed tree using the bounds it declares.
func CompileTree(t *syntax.Tree, config Config) (*prog.Program, error) {
	config.NumCaptures = t.NumCaptures
	config.MaxMark = t.MaxMark
	return New(config).Compile(t.Root)
}

// Compile emits the program for re. The result is laid out as
// Fail, Save(0), <re>, Save(1), Match, then compacted.
func (c *Compiler) Compile(re *syntax.Node) (*prog.Program, error) {
	if c.config.NumCaptures < 0 {
		return nil, errorf(ErrMalformed, nil, "negative capture count %d", c.config.NumCaptures)
	}

	c.p = &prog.Program{
		Inst:     []prog.Inst{{Op: prog.InstFail}},
		NumSlots: 2 * (c.config.NumCaptures + 1),
	}
	c.err = nil

	c.logger.Section("Emission")
	c.logger.Log("Pattern: %s", c.config.Pattern)
	c.logger.Log("Capture groups: %d, max mark: %d, mark placement: %v",
		c.config.NumCaptures, c.config.MaxMark, c.config.MarkPlacement)

	body, err := c.compile(re)
	if err != nil {
		return nil, err
	}
	f := c.cat(c.save(MatchSlotStart), c.cat(body, c.save(MatchSlotEnd)))
	m := c.inst(prog.InstMatch)
	c.patch(f.out, m.i)
	c.p.Start = int(f.i)
	if c.err != nil {
		return nil, c.err
	}

	emitted := len(c.p.Inst)
	compact(c.p)
	analyze(c.p)
	lengths := AnalyzeMatchLength(re)
	c.p.MinLen = lengths.MinMatchLen

	c.logger.Section("Pattern Analysis")
	c.logger.Log("Instructions: %d emitted, %d after compaction", emitted, len(c.p.Inst))
	c.logger.Log("Reachable marks: %v (mark bits: %d)", c.p.HasMarks(), c.p.NumMarks)
	c.logger.Log("Anchored: %v", c.p.Anchored)
	c.logger.Log("Literal prefix: %q", c.p.Prefix)
	c.logger.Log("Match length: min %d, max %d", lengths.MinMatchLen, lengths.MaxMatchLen)

	p := c.p
	c.p = nil
	return p, nil
}

// frag is a partially built program: entry address i and the list of holes
// that must be patched to whatever follows it. i == FailPC is a fragment
// that never matches.
type frag struct {
	i        uint32
	out      patchList
	nullable bool // whether the fragment can match the empty string
}

// hole is an unfilled instruction target; arg selects Inst.Arg over Inst.Out.
type hole struct {
	pc  uint32
	arg bool
}

type patchList []hole

func (c *Compiler) patch(l patchList, target uint32) {
	for _, h := range l {
		in := &c.p.Inst[h.pc]
		if h.arg {
			in.Arg = target
		} else {
			in.Out = target
		}
	}
}

func join(a, b patchList) patchList {
	out := make(patchList, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

// inst appends an instruction. Past the instruction limit it records
// ErrTooLarge and hands back a dead fragment so emission can unwind.
func (c *Compiler) inst(op prog.InstOp) frag {
	if c.err != nil {
		return frag{}
	}
	if len(c.p.Inst) >= c.maxInst {
		c.err = errorf(ErrTooLarge, nil, "more than %d instructions", c.maxInst)
		return frag{}
	}
	pc := uint32(len(c.p.Inst))
	c.p.Inst = append(c.p.Inst, prog.Inst{Op: op})
	return frag{i: pc}
}

func (c *Compiler) compile(n *syntax.Node) (frag, error) {
	if c.err != nil {
		return frag{}, c.err
	}
	if n == nil {
		return frag{}, errorf(ErrMalformed, nil, "nil node")
	}

	switch n.Op {
	case syntax.OpLiteral:
		if err := checkRanges(n); err != nil {
			return frag{}, err
		}
		if len(n.Ranges) == 0 {
			return frag{}, nil
		}
		return c.rune(n.Ranges), nil

	case syntax.OpConcat:
		if len(n.Sub) == 0 {
			return c.nop(), nil
		}
		var f frag
		for i, sub := range n.Sub {
			sf, err := c.compile(sub)
			if err != nil {
				return frag{}, err
			}
			if i == 0 {
				f = sf
			} else {
				f = c.cat(f, sf)
			}
		}
		return f, nil

	case syntax.OpAlternate:
		if len(n.Sub) == 0 {
			return frag{}, errorf(ErrMalformed, n, "alternation without branches")
		}
		branches := make([]frag, len(n.Sub))
		for i, sub := range n.Sub {
			bf, err := c.compile(sub)
			if err != nil {
				return frag{}, err
			}
			branches[i] = bf
		}
		// Split(branch_i, rest): earlier branches take priority.
		f := branches[len(branches)-1]
		for i := len(branches) - 2; i >= 0; i-- {
			f = c.alt(branches[i], f)
		}
		return f, nil

	case syntax.OpRepeat:
		if len(n.Sub) != 1 {
			return frag{}, errorf(ErrMalformed, n, "repeat needs exactly one operand, got %d", len(n.Sub))
		}
		if n.Min < 0 || n.Max < -1 || (n.Max != -1 && n.Max < n.Min) {
			return frag{}, errorf(ErrMalformed, n, "invalid repeat bounds {%d,%d}", n.Min, n.Max)
		}
		return c.repeat(n.Sub[0], n.Min, n.Max, !n.Greedy)

	case syntax.OpCapture:
		if len(n.Sub) != 1 {
			return frag{}, errorf(ErrMalformed, n, "capture needs exactly one operand, got %d", len(n.Sub))
		}
		if n.Index < 1 || n.Index > c.config.NumCaptures {
			return frag{}, errorf(ErrCaptureIndex, n, "group %d not in [1,%d]", n.Index, c.config.NumCaptures)
		}
		sub, err := c.compile(n.Sub[0])
		if err != nil {
			return frag{}, err
		}
		f := c.cat(c.save(2*n.Index), sub)
		f = c.cat(f, c.save(2*n.Index+1))
		return f, nil

	case syntax.OpMark:
		if len(n.Sub) != 1 {
			return frag{}, errorf(ErrMalformed, n, "mark needs exactly one operand, got %d", len(n.Sub))
		}
		if n.Index < 0 || n.Index > c.config.MaxMark {
			return frag{}, errorf(ErrMarkIndex, n, "mark %d not in [0,%d]", n.Index, c.config.MaxMark)
		}
		if c.config.MarkPlacement == MarkOnEntry {
			m := c.mark(n.Index)
			sub, err := c.compile(n.Sub[0])
			if err != nil {
				return frag{}, err
			}
			return c.cat(m, sub), nil
		}
		sub, err := c.compile(n.Sub[0])
		if err != nil {
			return frag{}, err
		}
		return c.cat(sub, c.mark(n.Index)), nil

	case syntax.OpEmptyAssertion:
		const known = prog.EmptyBeginLine | prog.EmptyEndLine | prog.EmptyBeginText |
			prog.EmptyEndText | prog.EmptyWordBoundary | prog.EmptyNoWordBoundary
		if n.Assert == 0 || n.Assert&^known != 0 {
			return frag{}, errorf(ErrMalformed, n, "unknown assertion flags %#x", uint8(n.Assert))
		}
		return c.empty(n.Assert), nil

	default:
		return frag{}, errorf(ErrUnsupported, n, "node kind %v", n.Op)
	}
}

// repeat expands sub{min,max} into copies of sub, each compiled afresh.
func (c *Compiler) repeat(sub *syntax.Node, min, max int, lazy bool) (frag, error) {
	one := func() (frag, error) { return c.compile(sub) }

	switch {
	case min == 0 && max == -1:
		f, err := one()
		if err != nil {
			return frag{}, err
		}
		return c.star(f, lazy), nil
	case max == 0:
		return c.nop(), nil
	}

	// min mandatory copies; with an unbounded max the last one loops.
	var f frag
	have := false
	for i := 0; i < min; i++ {
		x, err := one()
		if err != nil {
			return frag{}, err
		}
		if max == -1 && i == min-1 {
			x = c.plus(x, lazy)
		}
		if have {
			f = c.cat(f, x)
		} else {
			f, have = x, true
		}
		if c.err != nil {
			return frag{}, c.err
		}
	}
	if max == -1 || max == min {
		return f, nil
	}

	// (x(x(x)?)?)? for the optional copies, built inside out.
	x, err := one()
	if err != nil {
		return frag{}, err
	}
	suffix := c.quest(x, lazy)
	for i := min + 1; i < max; i++ {
		x, err := one()
		if err != nil {
			return frag{}, err
		}
		suffix = c.quest(c.cat(x, suffix), lazy)
		if c.err != nil {
			return frag{}, c.err
		}
	}
	if !have {
		return suffix, nil
	}
	return c.cat(f, suffix), nil
}

func (c *Compiler) nop() frag {
	f := c.inst(prog.InstJump)
	f.out = patchList{{pc: f.i}}
	f.nullable = true
	return f
}

func (c *Compiler) rune(ranges []rune) frag {
	f := c.inst(prog.InstRune)
	if f.i == FailPC {
		return f
	}
	c.p.Inst[f.i].Runes = append([]rune(nil), ranges...)
	f.out = patchList{{pc: f.i}}
	return f
}

func (c *Compiler) save(slot int) frag {
	f := c.inst(prog.InstSave)
	if f.i == FailPC {
		return f
	}
	c.p.Inst[f.i].Arg = uint32(slot)
	f.out = patchList{{pc: f.i}}
	f.nullable = true
	return f
}

func (c *Compiler) mark(bit int) frag {
	f := c.inst(prog.InstMark)
	if f.i == FailPC {
		return f
	}
	c.p.Inst[f.i].Arg = uint32(bit)
	f.out = patchList{{pc: f.i}}
	f.nullable = true
	return f
}

func (c *Compiler) empty(op prog.EmptyOp) frag {
	f := c.inst(prog.InstEmpty)
	if f.i == FailPC {
		return f
	}
	c.p.Inst[f.i].Arg = uint32(op)
	f.out = patchList{{pc: f.i}}
	f.nullable = true
	return f
}

// cat links f1 to f2. A dead f1 leaves f2 unreachable; compaction drops it.
func (c *Compiler) cat(f1, f2 frag) frag {
	if f1.i == FailPC {
		return frag{}
	}
	c.patch(f1.out, f2.i)
	return frag{i: f1.i, out: f2.out, nullable: f1.nullable && f2.nullable}
}

// alt emits Split(f1, f2): f1 has priority.
func (c *Compiler) alt(f1, f2 frag) frag {
	if f1.i == FailPC {
		return f2
	}
	if f2.i == FailPC {
		return f1
	}
	f := c.inst(prog.InstSplit)
	if f.i == FailPC {
		return f
	}
	in := &c.p.Inst[f.i]
	in.Out = f1.i
	in.Arg = f2.i
	f.out = join(f1.out, f2.out)
	f.nullable = f1.nullable || f2.nullable
	return f
}

// quest emits Split(f1, after) for greedy and Split(after, f1) for lazy.
func (c *Compiler) quest(f1 frag, lazy bool) frag {
	f := c.inst(prog.InstSplit)
	if f.i == FailPC {
		return f
	}
	in := &c.p.Inst[f.i]
	if lazy {
		in.Arg = f1.i
		f.out = patchList{{pc: f.i}}
	} else {
		in.Out = f1.i
		f.out = patchList{{pc: f.i, arg: true}}
	}
	f.out = join(f.out, f1.out)
	f.nullable = true
	return f
}

// loop returns the Split at the head of f1*, with f1 looping back to it.
func (c *Compiler) loop(f1 frag, lazy bool) frag {
	f := c.inst(prog.InstSplit)
	if f.i == FailPC {
		return f
	}
	in := &c.p.Inst[f.i]
	if lazy {
		in.Arg = f1.i
		f.out = patchList{{pc: f.i}}
	} else {
		in.Out = f1.i
		f.out = patchList{{pc: f.i, arg: true}}
	}
	c.patch(f1.out, f.i)
	f.nullable = true
	return f
}

// star compiles f1*. A nullable body is compiled as (f1+)? so that an empty
// iteration cannot take priority over a non-empty one.
func (c *Compiler) star(f1 frag, lazy bool) frag {
	if f1.nullable {
		return c.quest(c.plus(f1, lazy), lazy)
	}
	return c.loop(f1, lazy)
}

func (c *Compiler) plus(f1 frag, lazy bool) frag {
	if f1.i == FailPC {
		return frag{}
	}
	return frag{i: f1.i, out: c.loop(f1, lazy).out, nullable: f1.nullable}
}

func checkRanges(n *syntax.Node) error {
	r := n.Ranges
	if len(r)%2 != 0 {
		return errorf(ErrMalformed, n, "odd rune range list")
	}
	for i := 0; i < len(r); i += 2 {
		if r[i] > r[i+1] || r[i] < 0 {
			return errorf(ErrMalformed, n, "invalid range %#x-%#x", r[i], r[i+1])
		}
		if i > 0 && r[i] <= r[i-1] {
			return errorf(ErrMalformed, n, "ranges not sorted at %#x", r[i])
		}
	}
	return nil
}
