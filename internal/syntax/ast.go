// Package syntax defines the pattern abstract syntax tree consumed by the
// compiler, and an adapter that builds it from pattern text.
package syntax

import (
	"fmt"
	"strings"

	"github.com/KromDaniel/regmark/prog"
)

// Op is the kind of a Node.
type Op uint8

const (
	OpLiteral        Op = iota + 1 // matches one rune in Ranges
	OpConcat                       // matches Sub in sequence; no Sub matches the empty string
	OpAlternate                    // matches one of Sub, earlier Sub take priority
	OpRepeat                       // matches Sub[0] between Min and Max times
	OpCapture                      // capturing group Index around Sub[0]
	OpMark                         // mark Index around Sub[0]
	OpEmptyAssertion               // zero-width assertion Assert
)

var opNames = map[Op]string{
	OpLiteral:        "Literal",
	OpConcat:         "Concat",
	OpAlternate:      "Alternate",
	OpRepeat:         "Repeat",
	OpCapture:        "Capture",
	OpMark:           "Mark",
	OpEmptyAssertion: "EmptyAssertion",
}

func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Op(%d)", uint8(op))
}

// Node is a node of the pattern tree.
type Node struct {
	Op     Op
	Sub    []*Node
	Ranges []rune       // OpLiteral: sorted lo/hi pairs; empty matches nothing
	Min    int          // OpRepeat
	Max    int          // OpRepeat; -1 means unbounded
	Greedy bool         // OpRepeat
	Index  int          // OpCapture: group number (1-based); OpMark: mark bit
	Name   string       // OpCapture: optional group name
	Assert prog.EmptyOp // OpEmptyAssertion
}

// Tree is a parsed pattern together with the counts declared while parsing.
type Tree struct {
	Root        *Node
	NumCaptures int      // capture groups, excluding the implicit group 0
	MaxMark     int      // highest mark index used, -1 when the pattern has no marks
	Names       []string // Names[i] is the name of group i; Names[0] is always ""
}

// Lit returns a literal node matching exactly the runes in s, one after another.
func Lit(s string) *Node {
	var subs []*Node
	for _, r := range s {
		subs = append(subs, Char(r))
	}
	if len(subs) == 1 {
		return subs[0]
	}
	return &Node{Op: OpConcat, Sub: subs}
}

// Char returns a literal node matching r.
func Char(r rune) *Node {
	return &Node{Op: OpLiteral, Ranges: []rune{r, r}}
}

// Class returns a literal node matching any rune in the given lo/hi pairs.
func Class(ranges ...rune) *Node {
	return &Node{Op: OpLiteral, Ranges: ranges}
}

// Cat returns the concatenation of subs.
func Cat(subs ...*Node) *Node {
	return &Node{Op: OpConcat, Sub: subs}
}

// Alt returns the prioritised alternation of subs.
func Alt(subs ...*Node) *Node {
	return &Node{Op: OpAlternate, Sub: subs}
}

// Repeat returns sub repeated between min and max times (max -1 = unbounded).
func Repeat(sub *Node, min, max int, greedy bool) *Node {
	return &Node{Op: OpRepeat, Sub: []*Node{sub}, Min: min, Max: max, Greedy: greedy}
}

// Capture returns a capturing group with the given 1-based index.
func Capture(index int, sub *Node) *Node {
	return &Node{Op: OpCapture, Sub: []*Node{sub}, Index: index}
}

// Mark returns a mark node setting bit index when sub is traversed.
func Mark(index int, sub *Node) *Node {
	return &Node{Op: OpMark, Sub: []*Node{sub}, Index: index}
}

// Assert returns a zero-width assertion node.
func Assert(op prog.EmptyOp) *Node {
	return &Node{Op: OpEmptyAssertion, Assert: op}
}

// String renders the node in a compact prefix notation, used in errors and logs.
func (n *Node) String() string {
	var b strings.Builder
	writeNode(&b, n)
	return b.String()
}

func writeNode(b *strings.Builder, n *Node) {
	if n == nil {
		b.WriteString("<nil>")
		return
	}
	switch n.Op {
	case OpLiteral:
		fmt.Fprintf(b, "lit%q", string(rangesPreview(n.Ranges)))
		return
	case OpRepeat:
		fmt.Fprintf(b, "rep{%d,%d", n.Min, n.Max)
		if !n.Greedy {
			b.WriteString(",lazy")
		}
		b.WriteString("}")
	case OpCapture:
		fmt.Fprintf(b, "cap%d", n.Index)
	case OpMark:
		fmt.Fprintf(b, "mark%d", n.Index)
	case OpEmptyAssertion:
		fmt.Fprintf(b, "assert%d", n.Assert)
		return
	case OpConcat:
		b.WriteString("cat")
	case OpAlternate:
		b.WriteString("alt")
	default:
		b.WriteString(n.Op.String())
	}
	b.WriteByte('(')
	for i, sub := range n.Sub {
		if i > 0 {
			b.WriteByte(' ')
		}
		writeNode(b, sub)
	}
	b.WriteByte(')')
}

// rangesPreview lists the low end of each range; good enough to identify a literal.
func rangesPreview(ranges []rune) []rune {
	out := make([]rune, 0, len(ranges)/2)
	for i := 0; i+1 < len(ranges); i += 2 {
		out = append(out, ranges[i])
	}
	return out
}
