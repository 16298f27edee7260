// Package replace parses and expands replacement templates.
//
// A template is literal text with references to the groups of a match:
//
//	$0, ${0}        the whole match
//	$1 .. $99       group by number (at most two digits are read)
//	${12}           group by number, any width
//	$name, ${name}  group by name
//	$$              a literal dollar sign
//
// A '$' that does not start a reference is kept literally.
package replace

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// SegmentType identifies what a segment expands to.
type SegmentType int

const (
	// SegmentLiteral is copied to the output unchanged.
	SegmentLiteral SegmentType = iota
	// SegmentGroup expands to the text of group Index; 0 is the whole match.
	SegmentGroup
	// SegmentNamed expands to the text of the group called Name.
	SegmentNamed
)

func (t SegmentType) String() string {
	switch t {
	case SegmentLiteral:
		return "literal"
	case SegmentGroup:
		return "group"
	case SegmentNamed:
		return "named"
	default:
		return "unknown"
	}
}

// Segment is one piece of a parsed template.
type Segment struct {
	Type    SegmentType
	Literal string // SegmentLiteral
	Index   int    // SegmentGroup
	Name    string // SegmentNamed
}

// Template is a parsed replacement template.
type Template struct {
	Source   string
	Segments []Segment
}

var (
	// ErrSyntax is returned by Parse for a malformed ${...} reference.
	ErrSyntax = errors.New("invalid template reference")

	// ErrUnknownGroup is returned by Validate for a reference to a group
	// the pattern does not have.
	ErrUnknownGroup = errors.New("unknown group")
)

// Parse parses template.
func Parse(template string) (*Template, error) {
	t := &Template{Source: template, Segments: []Segment{}}
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			t.Segments = append(t.Segments, Segment{Type: SegmentLiteral, Literal: lit.String()})
			lit.Reset()
		}
	}

	s := template
	for len(s) > 0 {
		i := strings.IndexByte(s, '$')
		if i < 0 {
			lit.WriteString(s)
			break
		}
		lit.WriteString(s[:i])
		s = s[i+1:]

		if s == "" {
			lit.WriteByte('$')
			break
		}
		if s[0] == '$' {
			lit.WriteByte('$')
			s = s[1:]
			continue
		}

		seg, n, err := reference(s)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", template, err)
		}
		if n == 0 {
			lit.WriteByte('$')
			continue
		}
		flush()
		t.Segments = append(t.Segments, seg)
		s = s[n:]
	}
	flush()
	return t, nil
}

// MustParse is like Parse but panics on error.
func MustParse(template string) *Template {
	t, err := Parse(template)
	if err != nil {
		panic(err)
	}
	return t
}

// reference parses the reference at the start of s, which directly follows
// a '$'. It returns the number of bytes consumed, 0 when s does not start a
// reference.
func reference(s string) (Segment, int, error) {
	if s[0] == '{' {
		end := strings.IndexByte(s, '}')
		if end < 0 {
			return Segment{}, 0, fmt.Errorf("%w: unclosed ${", ErrSyntax)
		}
		seg, ok := segmentFor(s[1:end])
		if !ok {
			return Segment{}, 0, fmt.Errorf("%w: ${%s}", ErrSyntax, s[1:end])
		}
		return seg, end + 1, nil
	}

	if isDigit(s[0]) {
		n := 1
		if len(s) > 1 && isDigit(s[1]) {
			n = 2
		}
		idx, _ := strconv.Atoi(s[:n])
		return Segment{Type: SegmentGroup, Index: idx}, n, nil
	}

	if isNameStart(s[0]) {
		n := 1
		for n < len(s) && isNameByte(s[n]) {
			n++
		}
		return Segment{Type: SegmentNamed, Name: s[:n]}, n, nil
	}
	return Segment{}, 0, nil
}

// segmentFor interprets the contents of a ${...} reference.
func segmentFor(ref string) (Segment, bool) {
	if ref == "" {
		return Segment{}, false
	}
	if isDigit(ref[0]) {
		idx, err := strconv.Atoi(ref)
		if err != nil || idx < 0 {
			return Segment{}, false
		}
		return Segment{Type: SegmentGroup, Index: idx}, true
	}
	if !isNameStart(ref[0]) {
		return Segment{}, false
	}
	for i := 1; i < len(ref); i++ {
		if !isNameByte(ref[i]) {
			return Segment{}, false
		}
	}
	return Segment{Type: SegmentNamed, Name: ref}, true
}

// Validate checks every reference against a pattern with the given number of
// groups (excluding group 0) and group names, where names[i] names group i.
func (t *Template) Validate(groups int, names []string) error {
	for _, seg := range t.Segments {
		switch seg.Type {
		case SegmentGroup:
			if seg.Index > groups {
				return fmt.Errorf("%w: $%d (pattern has %d groups)", ErrUnknownGroup, seg.Index, groups)
			}
		case SegmentNamed:
			if lookup(names, seg.Name) < 0 {
				return fmt.Errorf("%w: %q", ErrUnknownGroup, seg.Name)
			}
		}
	}
	return nil
}

// Expand appends the expansion of t to dst and returns the result. slots
// holds the match bounds as produced by the matcher: group i spans
// src[slots[2i]:slots[2i+1]], and a negative bound means the group did not
// participate. Unset and unknown groups expand to nothing.
func (t *Template) Expand(dst []byte, src string, slots []int, names []string) []byte {
	for _, seg := range t.Segments {
		switch seg.Type {
		case SegmentLiteral:
			dst = append(dst, seg.Literal...)
		case SegmentGroup:
			dst = appendGroup(dst, src, slots, seg.Index)
		case SegmentNamed:
			dst = appendGroup(dst, src, slots, lookup(names, seg.Name))
		}
	}
	return dst
}

// ExpandString is like Expand but returns a string.
func (t *Template) ExpandString(src string, slots []int, names []string) string {
	return string(t.Expand(nil, src, slots, names))
}

// String returns the source of the template.
func (t *Template) String() string {
	return t.Source
}

func appendGroup(dst []byte, src string, slots []int, i int) []byte {
	if i < 0 || 2*i+1 >= len(slots) {
		return dst
	}
	lo, hi := slots[2*i], slots[2*i+1]
	if lo < 0 || hi < lo || hi > len(src) {
		return dst
	}
	return append(dst, src[lo:hi]...)
}

// lookup returns the first group called name, or -1.
func lookup(names []string, name string) int {
	if name == "" {
		return -1
	}
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isNameStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isNameByte(c byte) bool {
	return isNameStart(c) || isDigit(c)
}
