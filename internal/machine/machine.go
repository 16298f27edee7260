// Package machine executes instruction programs with Pike's algorithm: all
// candidate threads advance in lockstep over the input, one queue entry per
// program counter, so a run costs at most O(len(program) x len(input)).
package machine

import (
	"context"

	"github.com/bits-and-blooms/bitset"

	"github.com/KromDaniel/regmark/prog"
)

// ctxCheckInterval is the number of positions between context checks.
const ctxCheckInterval = 256

// Machine holds the reusable state for running one program. A Machine is
// not safe for concurrent use; the Program it runs is.
type Machine struct {
	p        *prog.Program
	longest  bool
	maxSteps int

	q0, q1   queue
	stack    []job
	pool     []*thread
	startcap []int
	matchcap []int

	matched bool
	marks   *bitset.BitSet
	steps   int
}

// thread is a concrete thread: a consuming or Match instruction plus the
// capture slots of the path that reached it.
type thread struct {
	inst *prog.Inst
	cap  []int
}

type entry struct {
	pc uint32
	t  *thread
}

// queue is a sparse set of program counters in priority order.
type queue struct {
	sparse []uint32
	dense  []entry
}

// job is a closure work item: visit pc, or with slot >= 0 restore
// cap[slot] = val once everything pushed after it has been visited.
type job struct {
	pc   uint32
	slot int
	val  int
}

// New returns a machine for p.
func New(p *prog.Program) *Machine {
	n := len(p.Inst)
	m := &Machine{
		p:        p,
		q0:       queue{sparse: make([]uint32, n), dense: make([]entry, 0, n)},
		q1:       queue{sparse: make([]uint32, n), dense: make([]entry, 0, n)},
		startcap: make([]int, p.NumSlots),
		matchcap: make([]int, p.NumSlots),
	}
	return m
}

// Program returns the program the machine runs.
func (m *Machine) Program() *prog.Program {
	return m.p
}

// SetLongest selects leftmost-longest instead of leftmost-first matching.
func (m *Machine) SetLongest(longest bool) {
	m.longest = longest
}

// SetMaxSteps bounds the work of MatchContext. Zero or less disables the bound.
func (m *Machine) SetMaxSteps(n int) {
	m.maxSteps = n
}

// Match runs the program over b from position 0.
func (m *Machine) Match(b []byte, anchor Anchor) Result {
	r, _ := m.run(nil, inputBytes(b), 0, anchor, 0)
	return r
}

// MatchString runs the program over s from position 0.
func (m *Machine) MatchString(s string, anchor Anchor) Result {
	r, _ := m.run(nil, inputString(s), 0, anchor, 0)
	return r
}

// Exec runs the program over in starting at byte offset pos. Assertions at
// pos see the text before it. A pos outside the input never matches.
func (m *Machine) Exec(in Input, pos int, anchor Anchor) Result {
	r, _ := m.run(nil, in, pos, anchor, 0)
	return r
}

// MatchContext is like Exec but stops early with ErrStepBudget once the step
// budget is exhausted, or with ctx.Err() once ctx is done. The returned
// Result then has Matched false and holds the marks set so far.
func (m *Machine) MatchContext(ctx context.Context, in Input, pos int, anchor Anchor) (Result, error) {
	return m.run(ctx, in, pos, anchor, m.maxSteps)
}

func (m *Machine) init() {
	m.matched = false
	m.steps = 0
	for i := range m.matchcap {
		m.matchcap[i] = -1
	}
	for i := range m.startcap {
		m.startcap[i] = -1
	}
	m.clear(&m.q0)
	m.clear(&m.q1)
	m.marks = nil
	if m.p.NumMarks > 0 {
		m.marks = bitset.New(uint(m.p.NumMarks))
	}
}

func (m *Machine) result() Result {
	r := Result{Matched: m.matched, Marks: m.marks, Steps: m.steps}
	if m.matched {
		r.Slots = append([]int(nil), m.matchcap...)
	}
	// The bitset now belongs to the result.
	m.marks = nil
	return r
}

func (m *Machine) run(ctx context.Context, in Input, pos int, anchor Anchor, limit int) (Result, error) {
	m.init()
	start := pos
	if pos < 0 || pos > in.Len() {
		return m.result(), nil
	}
	// Shortcuts that skip start positions would also skip their marks.
	if !m.p.HasMarks() && in.Len()-pos < m.p.MinLen {
		return m.result(), nil
	}

	anchored := anchor != Unanchored || m.p.Anchored
	usePrefix := m.p.Prefix != "" && !m.p.HasMarks() && !anchored

	runq, nextq := &m.q0, &m.q1
	r, width := in.step(pos)
	r1, width1 := endOfText, 0
	if r != endOfText {
		r1, width1 = in.step(pos + width)
	}
	cond := in.context(pos)

	for iter := 0; ; iter++ {
		if len(runq.dense) == 0 {
			if anchored && pos != start {
				break
			}
			if m.matched {
				break
			}
			if usePrefix {
				advance := in.index(m.p.Prefix, pos)
				if advance < 0 {
					break
				}
				if advance > 0 {
					pos += advance
					r, width = in.step(pos)
					r1, width1 = in.step(pos + width)
					cond = in.context(pos)
				}
			}
		}
		if !m.matched && (!anchored || pos == start) {
			m.add(runq, uint32(m.p.Start), pos, m.startcap, cond, nil)
		}
		next := prog.EmptyOp(0)
		if width > 0 {
			next = in.context(pos + width)
		}
		m.step(runq, nextq, pos, pos+width, r, next, anchor == AnchorBoth, in.Len())
		if width == 0 {
			break
		}

		if limit > 0 && m.steps > limit {
			m.clear(nextq)
			m.matched = false
			return m.result(), ErrStepBudget
		}
		if ctx != nil && iter%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				m.clear(nextq)
				m.matched = false
				return m.result(), err
			}
		}

		pos += width
		r, width = r1, width1
		if r != endOfText {
			r1, width1 = in.step(pos + width)
		}
		cond = next
		runq, nextq = nextq, runq
	}
	m.clear(nextq)
	return m.result(), nil
}

// step advances every thread of runq over the rune r at pos, building nextq
// for nextPos. cond holds the assertions true at nextPos.
func (m *Machine) step(runq, nextq *queue, pos, nextPos int, r rune, cond prog.EmptyOp, anchorEnd bool, end int) {
	longest := m.longest
	for j := 0; j < len(runq.dense); j++ {
		d := &runq.dense[j]
		t := d.t
		if t == nil {
			continue
		}
		m.steps++
		if longest && m.matched && m.matchcap[0] < t.cap[0] {
			m.free(t)
			continue
		}
		i := t.inst
		add := false
		switch i.Op {
		case prog.InstMatch:
			if anchorEnd && pos != end {
				break
			}
			if !longest || !m.matched || m.matchcap[1] < pos {
				copy(m.matchcap, t.cap)
			}
			if !longest {
				// Leftmost-first: lower-priority threads are cut.
				for _, d := range runq.dense[j+1:] {
					if d.t != nil {
						m.free(d.t)
					}
				}
				runq.dense = runq.dense[:0]
			}
			m.matched = true

		case prog.InstRune:
			add = i.MatchRune(r)
		}
		if add {
			t = m.add(nextq, i.Out, nextPos, t.cap, cond, t)
		}
		if t != nil {
			m.free(t)
		}
	}
	runq.dense = runq.dense[:0]
}

// add follows the non-consuming instructions reachable from pc in priority
// order, appending a thread to q for every consuming or Match instruction it
// reaches. cap is the capture vector of the path; Save writes into it and is
// undone when the subtree has been visited, so cap is unchanged on return.
// A non-nil t, whose cap may be cap itself, is reused for the first thread
// reached before any Save, and add returns nil; otherwise add returns t.
func (m *Machine) add(q *queue, pc uint32, pos int, cap []int, cond prog.EmptyOp, t *thread) *thread {
	pending := 0 // restore jobs on the stack
	m.stack = append(m.stack[:0], job{pc: pc, slot: -1})
	for len(m.stack) > 0 {
		top := len(m.stack) - 1
		j := m.stack[top]
		m.stack = m.stack[:top]

		if j.slot >= 0 {
			cap[j.slot] = j.val
			pending--
			continue
		}
		pc := j.pc
		if q.contains(pc) {
			continue
		}
		d := q.insert(pc)
		m.steps++

		i := &m.p.Inst[pc]
		switch i.Op {
		case prog.InstFail:

		case prog.InstSplit:
			m.stack = append(m.stack, job{pc: i.Arg, slot: -1}, job{pc: i.Out, slot: -1})

		case prog.InstJump:
			m.stack = append(m.stack, job{pc: i.Out, slot: -1})

		case prog.InstEmpty:
			if op := prog.EmptyOp(i.Arg); op&^cond == 0 {
				m.stack = append(m.stack, job{pc: i.Out, slot: -1})
			}

		case prog.InstSave:
			if slot := int(i.Arg); slot < len(cap) {
				m.stack = append(m.stack, job{slot: slot, val: cap[slot]})
				pending++
				cap[slot] = pos
			}
			m.stack = append(m.stack, job{pc: i.Out, slot: -1})

		case prog.InstMark:
			if m.marks != nil {
				m.marks.Set(uint(i.Arg))
			}
			m.stack = append(m.stack, job{pc: i.Out, slot: -1})

		case prog.InstRune, prog.InstMatch:
			if t == nil || pending > 0 {
				nt := m.alloc(i)
				copy(nt.cap, cap)
				d.t = nt
				continue
			}
			t.inst = i
			copy(t.cap, cap)
			d.t = t
			t = nil
		}
	}
	return t
}

func (m *Machine) alloc(i *prog.Inst) *thread {
	var t *thread
	if n := len(m.pool); n > 0 {
		t = m.pool[n-1]
		m.pool = m.pool[:n-1]
	} else {
		t = &thread{cap: make([]int, m.p.NumSlots)}
	}
	t.inst = i
	return t
}

func (m *Machine) free(t *thread) {
	m.pool = append(m.pool, t)
}

func (m *Machine) clear(q *queue) {
	for _, d := range q.dense {
		if d.t != nil {
			m.free(d.t)
		}
	}
	q.dense = q.dense[:0]
}

func (q *queue) contains(pc uint32) bool {
	j := q.sparse[pc]
	return j < uint32(len(q.dense)) && q.dense[j].pc == pc
}

// insert appends pc; dense never grows past its capacity, so the returned
// pointer stays valid until the queue is cleared.
func (q *queue) insert(pc uint32) *entry {
	j := len(q.dense)
	q.dense = q.dense[:j+1]
	e := &q.dense[j]
	e.pc = pc
	e.t = nil
	q.sparse[pc] = uint32(j)
	return e
}
