package compiler

// Program layout constants
const (
	// FailPC is the address of the Fail instruction every program starts with.
	// A zero Out or Arg therefore always leads to a dead end.
	FailPC = 0

	// MatchSlotStart and MatchSlotEnd hold the bounds of the overall match.
	// User-defined group i uses slots 2i and 2i+1.
	MatchSlotStart = 0
	MatchSlotEnd   = 1
)

// Limits
const (
	// DefaultMaxInst is the largest program the compiler emits when
	// Config.MaxInst is zero. Counted repetitions are expanded, so
	// patterns such as (a{1000}){1000} hit this limit.
	DefaultMaxInst = 1 << 20
)

// MarkPlacement selects where the SetMark instruction of a mark is emitted.
type MarkPlacement uint8

const (
	// MarkOnExit emits SetMark after the marked subexpression: the bit is
	// recorded the moment any thread completes it, even when that thread
	// fails later on.
	MarkOnExit MarkPlacement = iota

	// MarkOnEntry emits SetMark before the marked subexpression: the bit is
	// recorded as soon as any thread reaches it.
	MarkOnEntry
)

func (m MarkPlacement) String() string {
	switch m {
	case MarkOnExit:
		return "exit"
	case MarkOnEntry:
		return "entry"
	default:
		return "unknown"
	}
}
