package regmark

import (
	"context"
	"unicode/utf8"

	"github.com/bits-and-blooms/bitset"

	"github.com/KromDaniel/regmark/internal/machine"
)

// Matcher runs match attempts of one pattern against one input and holds the
// outcome of the last attempt. A Matcher is not safe for concurrent use.
//
// Group accessors describe the last successful attempt. Marks describe the
// last attempt whether it succeeded or not.
type Matcher struct {
	p   *Pattern
	in  machine.Input
	s   string
	b   []byte
	err error

	slots []int // nil unless the last attempt matched
	marks *bitset.BitSet
	steps int

	pos     int // next search position of Find
	prevEnd int // end of the previous Find match, -1 before the first
}

// Matcher returns a matcher over s.
func (p *Pattern) Matcher(s string) *Matcher {
	m := &Matcher{p: p, in: machine.StringInput(s), s: s}
	m.Reset()
	return m
}

// MatcherBytes returns a matcher over b. b must not change while the
// matcher is in use.
func (p *Pattern) MatcherBytes(b []byte) *Matcher {
	m := &Matcher{p: p, in: machine.BytesInput(b), b: b}
	m.Reset()
	return m
}

// Pattern returns the pattern the matcher runs.
func (m *Matcher) Pattern() *Pattern {
	return m.p
}

// Reset forgets the outcome of earlier attempts and restarts Find at the
// beginning of the input.
func (m *Matcher) Reset() {
	m.slots = nil
	m.marks = nil
	m.err = nil
	m.steps = 0
	m.pos = 0
	m.prevEnd = -1
	if m.p.HasMarks() {
		m.marks = bitset.New(uint(m.p.prog.NumMarks))
	}
}

// Matches reports whether the whole input matches.
func (m *Matcher) Matches() bool {
	ok, _ := m.MatchesContext(context.Background())
	return ok
}

// MatchesContext is like Matches but returns ErrStepBudget when the attempt
// exceeds the pattern's step budget, or ctx.Err() when ctx is done first.
func (m *Matcher) MatchesContext(ctx context.Context) (bool, error) {
	return m.attempt(ctx, 0, machine.AnchorBoth)
}

// LookingAt reports whether a prefix of the input matches.
func (m *Matcher) LookingAt() bool {
	ok, _ := m.attempt(nil, 0, machine.AnchorStart)
	return ok
}

// Find advances to the next match that does not overlap the previous one.
// An empty match directly after the previous match is skipped. It returns
// false when there are no more matches, or when an attempt fails with an
// error, which Err then reports.
func (m *Matcher) Find() bool {
	end := m.in.Len()
	for m.pos <= end {
		ok, err := m.attempt(nil, m.pos, machine.Unanchored)
		if err != nil || !ok {
			m.pos = end + 1
			return false
		}

		lo, hi := m.slots[0], m.slots[1]
		accept := true
		if hi == m.pos {
			if lo == m.prevEnd {
				accept = false
			}
			m.pos += m.width(m.pos)
		} else {
			m.pos = hi
		}
		m.prevEnd = hi
		if accept {
			return true
		}
	}
	m.slots = nil
	return false
}

// FindFrom resets the matcher and finds the first match starting at or after
// byte offset pos.
func (m *Matcher) FindFrom(pos int) bool {
	m.Reset()
	if pos < 0 || pos > m.in.Len() {
		m.pos = m.in.Len() + 1
		return false
	}
	m.pos = pos
	return m.Find()
}

// Steps returns the work done by the last attempt, in machine steps.
func (m *Matcher) Steps() int {
	return m.steps
}

// Err returns the error that ended the last attempt, if any.
func (m *Matcher) Err() error {
	return m.err
}

// GroupCount returns the number of capture groups, excluding group 0.
func (m *Matcher) GroupCount() int {
	return m.p.GroupCount()
}

// Group returns the text of group i of the last match; ok is false when
// there is no match or the group did not participate.
func (m *Matcher) Group(i int) (string, bool) {
	lo, hi := m.Start(i), m.End(i)
	if lo < 0 || hi < 0 {
		return "", false
	}
	if m.b != nil {
		return string(m.b[lo:hi]), true
	}
	return m.s[lo:hi], true
}

// GroupByName is like Group for the first group called name.
func (m *Matcher) GroupByName(name string) (string, bool) {
	i := m.p.SubexpIndex(name)
	if i < 0 {
		return "", false
	}
	return m.Group(i)
}

// Start returns the start offset of group i of the last match, or -1.
func (m *Matcher) Start(i int) int {
	if m.slots == nil || i < 0 || 2*i+1 >= len(m.slots) {
		return -1
	}
	return m.slots[2*i]
}

// End returns the end offset of group i of the last match, or -1.
func (m *Matcher) End(i int) int {
	if m.slots == nil || i < 0 || 2*i+1 >= len(m.slots) {
		return -1
	}
	return m.slots[2*i+1]
}

// Marks returns the marks set by the last attempt, successful or not. It is
// nil when the pattern cannot set marks, and empty before the first attempt.
func (m *Matcher) Marks() *bitset.BitSet {
	return m.marks
}

// IsMarkSet reports whether the last attempt set mark i.
func (m *Matcher) IsMarkSet(i int) bool {
	return m.marks != nil && i >= 0 && m.marks.Test(uint(i))
}

func (m *Matcher) attempt(ctx context.Context, pos int, anchor machine.Anchor) (bool, error) {
	r, err := m.p.exec(ctx, m.in, pos, anchor)
	m.err = err
	m.steps = r.Steps
	m.slots = nil
	if r.Marks != nil {
		m.marks = r.Marks
	}
	if err != nil {
		return false, err
	}
	if r.Matched {
		m.slots = r.Slots
	}
	return r.Matched, nil
}

// width returns the byte width of the rune at pos, 1 past the end of input.
func (m *Matcher) width(pos int) int {
	if pos >= m.in.Len() {
		return 1
	}
	if m.b != nil {
		_, w := utf8.DecodeRune(m.b[pos:])
		return w
	}
	_, w := utf8.DecodeRuneInString(m.s[pos:])
	return w
}
