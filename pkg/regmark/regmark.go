// Package regmark compiles regular expressions with marks and matches them in
// time linear in the size of the input.
//
// The syntax is that of regexp/syntax (Perl flavour) extended with the
// marking construct (?M<N>re). A mark records, for the whole match attempt,
// that some thread traversed re; unlike a capture it is never undone when
// that thread later dies:
//
//	p := regmark.MustCompile(`(?M<1>a)b|ac`)
//	m := p.Matcher("ac")
//	m.Matches()      // true
//	m.IsMarkSet(1)   // true, although the branch that set it failed
package regmark

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/KromDaniel/regmark/internal/compiler"
	"github.com/KromDaniel/regmark/internal/machine"
	"github.com/KromDaniel/regmark/internal/syntax"
	"github.com/KromDaniel/regmark/prog"
	"github.com/KromDaniel/regmark/replace"
)

// Flags alter how a pattern is parsed and matched.
type Flags uint16

const (
	CaseInsensitive Flags = 1 << iota // as (?i)
	DotAll                            // . matches \n, as (?s)
	Multiline                         // ^ and $ match at line boundaries, as (?m)
	Literal                           // the pattern is a literal string
	Longest                           // leftmost-longest instead of leftmost-first
	MarkOnEntry                       // set marks on entering the marked group rather than on leaving it

	allFlags = CaseInsensitive | DotAll | Multiline | Literal | Longest | MarkOnEntry
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{CaseInsensitive, "i"},
	{DotAll, "s"},
	{Multiline, "m"},
	{Literal, "literal"},
	{Longest, "longest"},
	{MarkOnEntry, "entry"},
}

func (f Flags) String() string {
	var parts []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			parts = append(parts, fn.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}

// ParseFlags parses a comma separated list of flag names as printed by
// Flags.String: i, s, m, literal, longest, entry. Empty and "none" yield 0.
func ParseFlags(s string) (Flags, error) {
	var f Flags
	if s == "" || s == "none" {
		return 0, nil
	}
next:
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		for _, fn := range flagNames {
			if fn.name == name {
				f |= fn.flag
				continue next
			}
		}
		return 0, fmt.Errorf("unknown flag %q", name)
	}
	return f, nil
}

// ErrStepBudget is returned when a match attempt exceeds Options.MaxSteps.
var ErrStepBudget = machine.ErrStepBudget

// Options configures compilation.
type Options struct {
	Flags Flags

	// MaxSteps bounds the work of a single match attempt. Zero means unbounded.
	MaxSteps int

	// MaxInst bounds the size of the compiled program. Zero uses the compiler default.
	MaxInst int

	// Verbose logs compilation decisions through Logger.
	Verbose bool

	// Logger receives verbose output; nil uses slog.Default.
	Logger *slog.Logger
}

// Validate checks if the options are valid.
func (o Options) Validate() error {
	if o.Flags&^allFlags != 0 {
		return fmt.Errorf("unknown flags %#x", uint16(o.Flags&^allFlags))
	}
	if o.MaxSteps < 0 {
		return fmt.Errorf("max steps cannot be negative")
	}
	if o.MaxInst < 0 {
		return fmt.Errorf("max instructions cannot be negative")
	}
	return nil
}

// Pattern is a compiled regular expression. It is safe for concurrent use.
type Pattern struct {
	expr     string
	flags    Flags
	prog     *prog.Program
	names    []string
	maxSteps int

	machines sync.Pool
}

// Compile parses expr and returns a Pattern.
func Compile(expr string) (*Pattern, error) {
	return CompileOptions(expr, Options{})
}

// CompileFlags is like Compile but applies flags.
func CompileFlags(expr string, flags Flags) (*Pattern, error) {
	return CompileOptions(expr, Options{Flags: flags})
}

// CompileOptions parses expr and compiles it according to opts.
func CompileOptions(expr string, opts Options) (*Pattern, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	tree, err := syntax.Parse(expr, syntaxFlags(opts.Flags))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pattern: %w", err)
	}

	placement := compiler.MarkOnExit
	if opts.Flags&MarkOnEntry != 0 {
		placement = compiler.MarkOnEntry
	}
	p, err := compiler.CompileTree(tree, compiler.Config{
		Pattern:       expr,
		MarkPlacement: placement,
		MaxInst:       opts.MaxInst,
		Verbose:       opts.Verbose,
		Logger:        opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compile pattern: %w", err)
	}

	return newPattern(expr, opts.Flags, p, tree.Names, opts.MaxSteps), nil
}

// MustCompile is like Compile but panics if expr cannot be compiled.
func MustCompile(expr string) *Pattern {
	p, err := Compile(expr)
	if err != nil {
		panic(`regmark: Compile(` + quote(expr) + `): ` + err.Error())
	}
	return p
}

// FromProgram wraps a program compiled ahead of time, typically by generated
// code. names[i] is the name of group i and must have one entry per group
// including group 0; nil means no group is named. Only the Longest flag
// affects matching; the others are recorded for Flags.
func FromProgram(expr string, flags Flags, p *prog.Program, names []string) (*Pattern, error) {
	if p == nil {
		return nil, fmt.Errorf("program cannot be nil")
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid program: %w", err)
	}
	if flags&^allFlags != 0 {
		return nil, fmt.Errorf("unknown flags %#x", uint16(flags&^allFlags))
	}
	if names == nil {
		names = make([]string, p.NumGroups()+1)
	}
	if len(names) != p.NumGroups()+1 {
		return nil, fmt.Errorf("got %d group names, program has %d groups", len(names), p.NumGroups()+1)
	}
	return newPattern(expr, flags, p, names, 0), nil
}

// MustFromProgram is like FromProgram but panics on error.
func MustFromProgram(expr string, flags Flags, p *prog.Program, names []string) *Pattern {
	pat, err := FromProgram(expr, flags, p, names)
	if err != nil {
		panic(`regmark: FromProgram(` + quote(expr) + `): ` + err.Error())
	}
	return pat
}

// WithMaxSteps returns a copy of p whose match attempts are bounded by n
// steps, as Options.MaxSteps. Zero removes the bound. Generated code uses it
// to restore the budget of a pattern loaded with FromProgram.
func (p *Pattern) WithMaxSteps(n int) *Pattern {
	if n < 0 {
		n = 0
	}
	return newPattern(p.expr, p.flags, p.prog, p.names, n)
}

// MaxSteps returns the step budget of a match attempt, or 0 when unbounded.
func (p *Pattern) MaxSteps() int {
	return p.maxSteps
}

func newPattern(expr string, flags Flags, p *prog.Program, names []string, maxSteps int) *Pattern {
	return &Pattern{
		expr:     expr,
		flags:    flags,
		prog:     p,
		names:    append([]string(nil), names...),
		maxSteps: maxSteps,
	}
}

func syntaxFlags(f Flags) syntax.Flags {
	var sf syntax.Flags
	if f&CaseInsensitive != 0 {
		sf |= syntax.FoldCase
	}
	if f&DotAll != 0 {
		sf |= syntax.DotNL
	}
	if f&Multiline != 0 {
		sf |= syntax.MultiLine
	}
	if f&Literal != 0 {
		sf |= syntax.Literal
	}
	return sf
}

func quote(s string) string {
	if strings.ContainsAny(s, "`\n") || !utf8.ValidString(s) {
		return fmt.Sprintf("%q", s)
	}
	return "`" + s + "`"
}

// String returns the source text of the pattern.
func (p *Pattern) String() string {
	return p.expr
}

// Flags returns the flags the pattern was compiled with.
func (p *Pattern) Flags() Flags {
	return p.flags
}

// GroupCount returns the number of capture groups, excluding group 0.
func (p *Pattern) GroupCount() int {
	return p.prog.NumGroups()
}

// GroupNames returns the group names; element i names group i and element 0
// is always empty.
func (p *Pattern) GroupNames() []string {
	return append([]string(nil), p.names...)
}

// SubexpIndex returns the index of the first group called name, or -1.
func (p *Pattern) SubexpIndex(name string) int {
	if name == "" {
		return -1
	}
	for i, n := range p.names {
		if n == name {
			return i
		}
	}
	return -1
}

// Program returns the compiled program. It must not be modified.
func (p *Pattern) Program() *prog.Program {
	return p.prog
}

// HasMarks reports whether a match attempt can set any mark.
func (p *Pattern) HasMarks() bool {
	return p.prog.HasMarks()
}

// MatchString reports whether s contains a match. An attempt that exceeds
// the step budget reports false.
func (p *Pattern) MatchString(s string) bool {
	r, err := p.exec(nil, machine.StringInput(s), 0, machine.Unanchored)
	return err == nil && r.Matched
}

// Match reports whether b contains a match.
func (p *Pattern) Match(b []byte) bool {
	r, err := p.exec(nil, machine.BytesInput(b), 0, machine.Unanchored)
	return err == nil && r.Matched
}

// FindStringIndex returns the bounds of the leftmost match in s, or nil.
func (p *Pattern) FindStringIndex(s string) []int {
	r, err := p.exec(nil, machine.StringInput(s), 0, machine.Unanchored)
	if err != nil || !r.Matched {
		return nil
	}
	return r.Slots[:2:2]
}

// FindStringSubmatchIndex returns the slots of the leftmost match in s:
// group i spans s[a[2i]:a[2i+1]], -1 when it did not participate. It
// returns nil when there is no match.
func (p *Pattern) FindStringSubmatchIndex(s string) []int {
	r, err := p.exec(nil, machine.StringInput(s), 0, machine.Unanchored)
	if err != nil || !r.Matched {
		return nil
	}
	return r.Slots
}

// FindAllStringSubmatchIndex returns the slots of successive non-overlapping
// matches in s, at most n of them when n >= 0. An empty match directly after
// the previous match is skipped.
func (p *Pattern) FindAllStringSubmatchIndex(s string, n int) [][]int {
	var out [][]int
	m := p.Matcher(s)
	for (n < 0 || len(out) < n) && m.Find() {
		out = append(out, append([]int(nil), m.slots...))
	}
	return out
}

// ReplaceAllString returns a copy of src with every match replaced by the
// expansion of the template repl (see package replace). Unlike
// regexp.Regexp.ReplaceAllString, a reference to a group the pattern does
// not have is an error.
func (p *Pattern) ReplaceAllString(src, repl string) (string, error) {
	tmpl, err := replace.Parse(repl)
	if err != nil {
		return "", err
	}
	return p.ReplaceAllTemplate(src, tmpl)
}

// ReplaceAllTemplate is like ReplaceAllString but takes a parsed template,
// so callers replacing in many inputs parse it once.
func (p *Pattern) ReplaceAllTemplate(src string, tmpl *replace.Template) (string, error) {
	if err := tmpl.Validate(p.GroupCount(), p.names); err != nil {
		return "", err
	}

	in := machine.StringInput(src)
	var buf []byte
	lastEnd, searchPos := 0, 0
	for searchPos <= len(src) {
		r, err := p.exec(nil, in, searchPos, machine.Unanchored)
		if err != nil {
			return "", err
		}
		if !r.Matched {
			break
		}
		a := r.Slots
		buf = append(buf, src[lastEnd:a[0]]...)
		// An empty match right after the previous match is not replaced.
		if a[1] > lastEnd || a[0] == 0 {
			buf = tmpl.Expand(buf, src, a, p.names)
		}
		lastEnd = a[1]

		_, width := utf8.DecodeRuneInString(src[searchPos:])
		switch {
		case searchPos+width > a[1]:
			searchPos += width
		case searchPos+1 > a[1]:
			searchPos++
		default:
			searchPos = a[1]
		}
	}
	buf = append(buf, src[lastEnd:]...)
	return string(buf), nil
}
