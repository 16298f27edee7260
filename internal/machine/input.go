package machine

import (
	"bytes"
	"regexp/syntax"
	"strings"
	"unicode/utf8"

	"github.com/KromDaniel/regmark/prog"
)

// endOfText is the rune reported past the last position of an input.
const endOfText rune = -1

// Input is the text a machine runs over. Use StringInput or BytesInput.
type Input interface {
	// Len returns the length of the text in bytes.
	Len() int

	step(pos int) (rune, int)
	index(prefix string, pos int) int
	context(pos int) prog.EmptyOp
}

// StringInput wraps s as an Input.
func StringInput(s string) Input {
	return inputString(s)
}

// BytesInput wraps b as an Input. b must not change while a run is in progress.
func BytesInput(b []byte) Input {
	return inputBytes(b)
}

type inputString string

func (i inputString) Len() int { return len(i) }

func (i inputString) step(pos int) (rune, int) {
	if pos < len(i) {
		c := i[pos]
		if c < utf8.RuneSelf {
			return rune(c), 1
		}
		return utf8.DecodeRuneInString(string(i[pos:]))
	}
	return endOfText, 0
}

func (i inputString) index(prefix string, pos int) int {
	return strings.Index(string(i[pos:]), prefix)
}

func (i inputString) context(pos int) prog.EmptyOp {
	r1, r2 := endOfText, endOfText
	if uint(pos-1) < uint(len(i)) {
		r1, _ = utf8.DecodeLastRuneInString(string(i[:pos]))
	}
	if uint(pos) < uint(len(i)) {
		r2, _ = utf8.DecodeRuneInString(string(i[pos:]))
	}
	return syntax.EmptyOpContext(r1, r2)
}

type inputBytes []byte

func (i inputBytes) Len() int { return len(i) }

func (i inputBytes) step(pos int) (rune, int) {
	if pos < len(i) {
		c := i[pos]
		if c < utf8.RuneSelf {
			return rune(c), 1
		}
		return utf8.DecodeRune(i[pos:])
	}
	return endOfText, 0
}

func (i inputBytes) index(prefix string, pos int) int {
	return bytes.Index(i[pos:], []byte(prefix))
}

func (i inputBytes) context(pos int) prog.EmptyOp {
	r1, r2 := endOfText, endOfText
	if uint(pos-1) < uint(len(i)) {
		r1, _ = utf8.DecodeLastRune(i[:pos])
	}
	if uint(pos) < uint(len(i)) {
		r2, _ = utf8.DecodeRune(i[pos:])
	}
	return syntax.EmptyOpContext(r1, r2)
}
