package machine

import (
	"errors"

	"github.com/bits-and-blooms/bitset"

	"github.com/KromDaniel/regmark/prog"
)

// Anchor selects where a match may start and end.
type Anchor uint8

const (
	// Unanchored lets the match start at any position.
	Unanchored Anchor = iota

	// AnchorStart requires the match to start at the first position of the run.
	AnchorStart

	// AnchorBoth additionally requires the match to end at the end of the input.
	AnchorBoth
)

func (a Anchor) String() string {
	switch a {
	case Unanchored:
		return "unanchored"
	case AnchorStart:
		return "start"
	case AnchorBoth:
		return "both"
	default:
		return "unknown"
	}
}

// ErrStepBudget is returned by MatchContext when a run exceeds its step budget.
var ErrStepBudget = errors.New("machine: step budget exceeded")

// Result is the outcome of one run. A failed match is not an error: Marks
// is populated either way.
type Result struct {
	Matched bool

	// Slots holds byte offsets of the capture slots, -1 for unset. Slot 2i
	// and 2i+1 bound group i. Nil unless Matched.
	Slots []int

	// Marks holds every mark bit set during the run. Nil when the program
	// has no reachable mark instruction.
	Marks *bitset.BitSet

	// Steps counts closure visits and thread steps.
	Steps int
}

// Group returns the bounds of group i, or -1, -1 when it did not participate.
func (r Result) Group(i int) (int, int) {
	if !r.Matched || i < 0 || 2*i+1 >= len(r.Slots) {
		return -1, -1
	}
	return r.Slots[2*i], r.Slots[2*i+1]
}

// MarkSet reports whether mark bit i was set.
func (r Result) MarkSet(i int) bool {
	return r.Marks != nil && i >= 0 && r.Marks.Test(uint(i))
}

// Run matches p against input from position 0.
func Run(p *prog.Program, input []byte, anchor Anchor) Result {
	return New(p).Match(input, anchor)
}

// RunString is like Run but matches a string.
func RunString(p *prog.Program, input string, anchor Anchor) Result {
	return New(p).MatchString(input, anchor)
}
