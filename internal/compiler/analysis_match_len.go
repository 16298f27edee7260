package compiler

import (
	"unicode/utf8"

	"github.com/KromDaniel/regmark/internal/syntax"
)

// MatchLengthAnalysis holds the computed match length bounds for a pattern.
type MatchLengthAnalysis struct {
	// MinMatchLen is the minimum number of bytes any match can have.
	// Always >= 0.
	MinMatchLen int

	// MaxMatchLen is the maximum number of bytes any match can have.
	// -1 means unbounded (e.g., patterns with * or + quantifiers).
	MaxMatchLen int
}

// AnalyzeMatchLength computes the minimum and maximum match lengths of a tree.
func AnalyzeMatchLength(n *syntax.Node) MatchLengthAnalysis {
	if n == nil {
		return MatchLengthAnalysis{}
	}
	return MatchLengthAnalysis{
		MinMatchLen: minMatchLen(n),
		MaxMatchLen: maxMatchLen(n),
	}
}

// minMatchLen computes a lower bound on the bytes any match of n consumes.
func minMatchLen(n *syntax.Node) int {
	switch n.Op {
	case syntax.OpLiteral:
		// A literal with no ranges never matches; 0 is still a valid bound.
		if len(n.Ranges) == 0 {
			return 0
		}
		minLen := utf8.UTFMax
		for i := 0; i+1 < len(n.Ranges); i += 2 {
			lo, hi := n.Ranges[i], n.Ranges[i+1]
			l := runeLen(lo)
			if lo <= utf8.RuneError && utf8.RuneError <= hi {
				// An invalid byte decodes to RuneError with width 1.
				l = 1
			}
			if l < minLen {
				minLen = l
			}
		}
		return minLen

	case syntax.OpEmptyAssertion:
		return 0

	case syntax.OpCapture, syntax.OpMark:
		if len(n.Sub) > 0 {
			return minMatchLen(n.Sub[0])
		}
		return 0

	case syntax.OpRepeat:
		if len(n.Sub) > 0 {
			return n.Min * minMatchLen(n.Sub[0])
		}
		return 0

	case syntax.OpConcat:
		total := 0
		for _, sub := range n.Sub {
			total += minMatchLen(sub)
		}
		return total

	case syntax.OpAlternate:
		if len(n.Sub) == 0 {
			return 0
		}
		min := minMatchLen(n.Sub[0])
		for _, sub := range n.Sub[1:] {
			if subMin := minMatchLen(sub); subMin < min {
				min = subMin
			}
		}
		return min

	default:
		return 0
	}
}

// maxMatchLen computes the maximum number of bytes a match of n can have.
// Returns -1 if the match length is unbounded.
func maxMatchLen(n *syntax.Node) int {
	switch n.Op {
	case syntax.OpLiteral:
		maxLen := 0
		for i := 0; i+1 < len(n.Ranges); i += 2 {
			if l := runeLen(n.Ranges[i+1]); l > maxLen {
				maxLen = l
			}
		}
		return maxLen

	case syntax.OpEmptyAssertion:
		return 0

	case syntax.OpCapture, syntax.OpMark:
		if len(n.Sub) > 0 {
			return maxMatchLen(n.Sub[0])
		}
		return 0

	case syntax.OpRepeat:
		if len(n.Sub) == 0 || n.Max == 0 {
			return 0
		}
		if n.Max == -1 {
			return -1
		}
		subMax := maxMatchLen(n.Sub[0])
		if subMax == -1 {
			return -1
		}
		return n.Max * subMax

	case syntax.OpConcat:
		total := 0
		for _, sub := range n.Sub {
			subMax := maxMatchLen(sub)
			if subMax == -1 {
				return -1
			}
			total += subMax
		}
		return total

	case syntax.OpAlternate:
		max := 0
		for _, sub := range n.Sub {
			subMax := maxMatchLen(sub)
			if subMax == -1 {
				return -1
			}
			if subMax > max {
				max = subMax
			}
		}
		return max

	default:
		return 0
	}
}

// runeLen is utf8.RuneLen with invalid runes (surrogates, out of range)
// counted as the 3-byte replacement character they decode to.
func runeLen(r rune) int {
	if l := utf8.RuneLen(r); l > 0 {
		return l
	}
	return 3
}
