// Package codegen emits compiled programs as Go source, so that a pattern can
// be compiled once at build time and loaded with regmark.FromProgram.
package codegen

import (
	"github.com/KromDaniel/regmark/pkg/regmark"
	"github.com/KromDaniel/regmark/prog"
)

// Import paths referenced by generated code.
const (
	progPath    = "github.com/KromDaniel/regmark/prog"
	regmarkPath = "github.com/KromDaniel/regmark/pkg/regmark"
)

// opIdents names the prog constant for each opcode.
var opIdents = map[prog.InstOp]string{
	prog.InstFail:  "InstFail",
	prog.InstRune:  "InstRune",
	prog.InstSplit: "InstSplit",
	prog.InstJump:  "InstJump",
	prog.InstSave:  "InstSave",
	prog.InstMark:  "InstMark",
	prog.InstEmpty: "InstEmpty",
	prog.InstMatch: "InstMatch",
}

// flagIdents names the regmark constant for each flag, in bit order.
var flagIdents = []struct {
	flag  regmark.Flags
	ident string
}{
	{regmark.CaseInsensitive, "CaseInsensitive"},
	{regmark.DotAll, "DotAll"},
	{regmark.Multiline, "Multiline"},
	{regmark.Literal, "Literal"},
	{regmark.Longest, "Longest"},
	{regmark.MarkOnEntry, "MarkOnEntry"},
}

// ProgramName returns the name of the program variable generated for name.
func ProgramName(name string) string {
	return name + "Program"
}

// UpperFirst converts the first character of a string to uppercase when it
// is an ASCII letter.
func UpperFirst(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]&^0x20) + s[1:]
}
