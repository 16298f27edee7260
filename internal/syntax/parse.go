package syntax

import (
	"errors"
	"fmt"
	"regexp/syntax"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/KromDaniel/regmark/prog"
)

// Flags control how pattern text is interpreted.
type Flags uint8

const (
	FoldCase  Flags = 1 << iota // case-insensitive matching, as (?i)
	DotNL                       // . matches \n, as (?s)
	MultiLine                   // ^ and $ match at line boundaries, as (?m)
	Literal                     // the pattern is a literal string
)

// MaxMarkIndex is the highest mark index accepted in a (?M<N>...) construct.
const MaxMarkIndex = 1<<16 - 1

// markGroupPrefix starts the reserved group names marks are rewritten into.
const markGroupPrefix = "_M"

var (
	// ErrInvalidMark is returned for a malformed (?M<N>...) construct.
	ErrInvalidMark = errors.New("invalid mark construct")

	// ErrReservedName is returned when a capture group uses the reserved mark name shape.
	ErrReservedName = errors.New("reserved capture group name")
)

// Parse parses pattern into a Tree. The accepted syntax is the Perl/RE2
// syntax of regexp/syntax extended with the marking construct (?M<N>re),
// which records mark bit N when re is traversed.
func Parse(pattern string, flags Flags) (*Tree, error) {
	src := pattern
	if flags&Literal == 0 {
		rewritten, err := rewriteMarks(pattern)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", pattern, err)
		}
		src = rewritten
	}

	re, err := syntax.Parse(src, syntaxFlags(flags))
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", pattern, err)
	}

	c := &converter{names: []string{""}, maxMark: -1}
	root, err := c.convert(re)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", pattern, err)
	}

	return &Tree{
		Root:        root,
		NumCaptures: c.ncap,
		MaxMark:     c.maxMark,
		Names:       c.names,
	}, nil
}

func syntaxFlags(flags Flags) syntax.Flags {
	f := syntax.Perl
	if flags&FoldCase != 0 {
		f |= syntax.FoldCase
	}
	if flags&DotNL != 0 {
		f |= syntax.DotNL
	}
	if flags&MultiLine != 0 {
		f &^= syntax.OneLine
	}
	if flags&Literal != 0 {
		f |= syntax.Literal
	}
	return f
}

// rewriteMarks replaces every (?M<N> with a named group carrying a reserved
// name, so regexp/syntax can parse the rest of the pattern unchanged.
// Escapes, \Q...\E quoting and character classes are copied verbatim.
func rewriteMarks(pattern string) (string, error) {
	var b strings.Builder
	b.Grow(len(pattern) + 16)

	seq := 0
	inClass := false
	quoted := false

	for i := 0; i < len(pattern); {
		c := pattern[i]
		rest := pattern[i:]

		switch {
		case quoted:
			if strings.HasPrefix(rest, `\E`) {
				quoted = false
				b.WriteString(`\E`)
				i += 2
				continue
			}
			b.WriteByte(c)
			i++

		case c == '\\':
			if len(rest) < 2 {
				b.WriteByte(c)
				i++
				continue
			}
			if rest[1] == 'Q' && !inClass {
				quoted = true
			}
			b.WriteString(rest[:2])
			i += 2

		case inClass:
			if strings.HasPrefix(rest, "[:") {
				if end := strings.Index(rest, ":]"); end > 0 {
					b.WriteString(rest[:end+2])
					i += end + 2
					continue
				}
			}
			if c == ']' {
				inClass = false
			}
			b.WriteByte(c)
			i++

		case c == '[':
			inClass = true
			b.WriteByte(c)
			i++
			if i < len(pattern) && pattern[i] == '^' {
				b.WriteByte('^')
				i++
			}
			if i < len(pattern) && pattern[i] == ']' {
				b.WriteByte(']')
				i++
			}

		case strings.HasPrefix(rest, "(?M<"):
			index, n, err := scanMark(rest)
			if err != nil {
				return "", fmt.Errorf("%w at offset %d", err, i)
			}
			fmt.Fprintf(&b, "(?P<%s%d_%d>", markGroupPrefix, index, seq)
			seq++
			i += n

		case strings.HasPrefix(rest, "(?P<") || strings.HasPrefix(rest, "(?<"):
			open := strings.IndexByte(rest, '<')
			if end := strings.IndexByte(rest, '>'); end > open {
				if _, ok := parseMarkName(rest[open+1 : end]); ok {
					return "", fmt.Errorf("%w %q at offset %d", ErrReservedName, rest[open+1:end], i)
				}
			}
			b.WriteByte(c)
			i++

		default:
			b.WriteByte(c)
			i++
		}
	}

	return b.String(), nil
}

// scanMark parses "(?M<N>" at the start of s and returns N and the number of
// bytes consumed.
func scanMark(s string) (int, int, error) {
	const open = len("(?M<")
	end := open
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == open || end >= len(s) || s[end] != '>' {
		return 0, 0, ErrInvalidMark
	}
	digits := s[open:end]
	index, err := strconv.Atoi(digits)
	if err != nil || index > MaxMarkIndex {
		return 0, 0, fmt.Errorf("%w: mark index %s exceeds %d", ErrInvalidMark, digits, MaxMarkIndex)
	}
	return index, end + 1, nil
}

// parseMarkName reports whether name has the reserved shape _M<index>_<seq>
// and returns the mark index.
func parseMarkName(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, markGroupPrefix)
	if !ok {
		return 0, false
	}
	digits, seq, ok := strings.Cut(rest, "_")
	if !ok || !allDigits(digits) || !allDigits(seq) {
		return 0, false
	}
	index, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return index, true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// converter turns a regexp/syntax tree into a Node tree, renumbering capture
// groups once the rewritten mark groups are taken out.
type converter struct {
	ncap    int
	names   []string
	maxMark int
}

func (c *converter) convert(re *syntax.Regexp) (*Node, error) {
	switch re.Op {
	case syntax.OpNoMatch:
		return &Node{Op: OpLiteral}, nil

	case syntax.OpEmptyMatch:
		return Cat(), nil

	case syntax.OpLiteral:
		fold := re.Flags&syntax.FoldCase != 0
		subs := make([]*Node, 0, len(re.Rune))
		for _, r := range re.Rune {
			if fold {
				subs = append(subs, Class(foldOrbit(r)...))
			} else {
				subs = append(subs, Char(r))
			}
		}
		if len(subs) == 1 {
			return subs[0], nil
		}
		return Cat(subs...), nil

	case syntax.OpCharClass:
		return Class(append([]rune(nil), re.Rune...)...), nil

	case syntax.OpAnyCharNotNL:
		return Class(0, '\n'-1, '\n'+1, unicode.MaxRune), nil

	case syntax.OpAnyChar:
		return Class(0, unicode.MaxRune), nil

	case syntax.OpBeginLine:
		return Assert(prog.EmptyBeginLine), nil
	case syntax.OpEndLine:
		return Assert(prog.EmptyEndLine), nil
	case syntax.OpBeginText:
		return Assert(prog.EmptyBeginText), nil
	case syntax.OpEndText:
		return Assert(prog.EmptyEndText), nil
	case syntax.OpWordBoundary:
		return Assert(prog.EmptyWordBoundary), nil
	case syntax.OpNoWordBoundary:
		return Assert(prog.EmptyNoWordBoundary), nil

	case syntax.OpCapture:
		if index, ok := parseMarkName(re.Name); ok {
			sub, err := c.convert(re.Sub[0])
			if err != nil {
				return nil, err
			}
			if index > c.maxMark {
				c.maxMark = index
			}
			return Mark(index, sub), nil
		}
		// Group numbers follow the order of the opening parenthesis.
		c.ncap++
		index := c.ncap
		c.names = append(c.names, re.Name)
		sub, err := c.convert(re.Sub[0])
		if err != nil {
			return nil, err
		}
		n := Capture(index, sub)
		n.Name = re.Name
		return n, nil

	case syntax.OpStar, syntax.OpPlus, syntax.OpQuest, syntax.OpRepeat:
		sub, err := c.convert(re.Sub[0])
		if err != nil {
			return nil, err
		}
		min, max := re.Min, re.Max
		switch re.Op {
		case syntax.OpStar:
			min, max = 0, -1
		case syntax.OpPlus:
			min, max = 1, -1
		case syntax.OpQuest:
			min, max = 0, 1
		}
		return Repeat(sub, min, max, re.Flags&syntax.NonGreedy == 0), nil

	case syntax.OpConcat, syntax.OpAlternate:
		subs := make([]*Node, 0, len(re.Sub))
		for _, s := range re.Sub {
			n, err := c.convert(s)
			if err != nil {
				return nil, err
			}
			subs = append(subs, n)
		}
		if re.Op == syntax.OpConcat {
			return Cat(subs...), nil
		}
		return Alt(subs...), nil

	default:
		return nil, fmt.Errorf("unsupported syntax op %v", re.Op)
	}
}

// foldOrbit returns the simple case-folding orbit of r as sorted lo/hi pairs.
func foldOrbit(r rune) []rune {
	orbit := []rune{r}
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		orbit = append(orbit, f)
	}
	sort.Slice(orbit, func(i, j int) bool { return orbit[i] < orbit[j] })

	ranges := make([]rune, 0, 2*len(orbit))
	for _, o := range orbit {
		if n := len(ranges); n > 0 && ranges[n-1]+1 == o {
			ranges[n-1] = o
			continue
		}
		ranges = append(ranges, o, o)
	}
	return ranges
}
