package regmark

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KromDaniel/regmark/internal/compiler"
	"github.com/KromDaniel/regmark/internal/syntax"
	"github.com/KromDaniel/regmark/prog"
	"github.com/KromDaniel/regmark/replace"
)

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		opts    Options
		wantErr error
		wantMsg string
	}{
		{name: "negative max steps", expr: "a", opts: Options{MaxSteps: -1}, wantMsg: "invalid options"},
		{name: "negative max inst", expr: "a", opts: Options{MaxInst: -1}, wantMsg: "invalid options"},
		{name: "unknown flag", expr: "a", opts: Options{Flags: 1 << 12}, wantMsg: "invalid options"},
		{name: "syntax", expr: "(a", wantMsg: "failed to parse pattern"},
		{name: "bad mark", expr: "(?M<x>a)", wantErr: syntax.ErrInvalidMark},
		{name: "reserved name", expr: "(?P<_M1_0>a)", wantErr: syntax.ErrReservedName},
		{name: "too large", expr: "abcdefgh", opts: Options{MaxInst: 4}, wantErr: compiler.ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := CompileOptions(tt.expr, tt.opts)
			require.Error(t, err)
			assert.Nil(t, p)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestMustCompilePanics(t *testing.T) {
	assert.Panics(t, func() { MustCompile("(?M<1>a") })
	assert.NotPanics(t, func() { MustCompile("(?M<1>a)") })
}

func TestFlags(t *testing.T) {
	assert.Equal(t, "none", Flags(0).String())
	assert.Equal(t, "i,m,longest", (CaseInsensitive | Multiline | Longest).String())

	f, err := ParseFlags("i, s,entry")
	require.NoError(t, err)
	assert.Equal(t, CaseInsensitive|DotAll|MarkOnEntry, f)

	f, err = ParseFlags("")
	require.NoError(t, err)
	assert.Zero(t, f)

	_, err = ParseFlags("i,x")
	assert.Error(t, err)

	all := CaseInsensitive | DotAll | Multiline | Literal | Longest | MarkOnEntry
	f, err = ParseFlags(all.String())
	require.NoError(t, err)
	assert.Equal(t, all, f)
}

func TestFlagSemantics(t *testing.T) {
	tests := []struct {
		expr  string
		flags Flags
		input string
		want  bool
	}{
		{"HELLO", 0, "hello", false},
		{"HELLO", CaseInsensitive, "hello", true},
		{"a.b", 0, "a\nb", false},
		{"a.b", DotAll, "a\nb", true},
		{"^b$", 0, "a\nb", false},
		{"^b$", Multiline, "a\nb", true},
		{"a.b", Literal, "axb", false},
		{"a.b", Literal, "xa.by", true},
		{"(?M<1>a)", Literal, "(?M<1>a)", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr+"/"+tt.flags.String(), func(t *testing.T) {
			p, err := CompileFlags(tt.expr, tt.flags)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.MatchString(tt.input))
			assert.Equal(t, tt.want, p.Match([]byte(tt.input)))
			assert.Equal(t, tt.flags, p.Flags())
		})
	}
}

func TestPatternMetadata(t *testing.T) {
	p := MustCompile(`(?P<user>\w+)@(\w+)(?M<3>x)?`)
	assert.Equal(t, `(?P<user>\w+)@(\w+)(?M<3>x)?`, p.String())
	assert.Equal(t, 2, p.GroupCount())
	assert.Equal(t, []string{"", "user", ""}, p.GroupNames())
	assert.Equal(t, 1, p.SubexpIndex("user"))
	assert.Equal(t, -1, p.SubexpIndex(""))
	assert.Equal(t, -1, p.SubexpIndex("host"))
	assert.True(t, p.HasMarks())
	assert.Equal(t, 4, p.Program().NumMarks)

	names := p.GroupNames()
	names[1] = "changed"
	assert.Equal(t, "user", p.GroupNames()[1])

	assert.False(t, MustCompile(`a(b)`).HasMarks())
}

func TestFindStringIndex(t *testing.T) {
	tests := []struct {
		expr  string
		input string
	}{
		{`b+`, "abbbc"},
		{`x`, "abc"},
		{`a*`, "baaa"},
		{`\bfoo\b`, "a foo b"},
		{`é+`, "caféé!"},
		{`(?:)`, ""},
		{`(a)|(b)`, "xb"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			re := regexp.MustCompile(tt.expr)
			p := MustCompile(tt.expr)
			assert.Equal(t, re.FindStringIndex(tt.input), p.FindStringIndex(tt.input))
			assert.Equal(t, re.FindStringSubmatchIndex(tt.input), p.FindStringSubmatchIndex(tt.input))
		})
	}
}

func TestFindAllStringSubmatchIndex(t *testing.T) {
	exprs := []string{`a*`, ``, `b|`, `(a)|b`, `x*`, `(\w)(\w)?`, `é|`}
	inputs := []string{"", "baaac", "abab", "héllo", "xx"}

	for _, expr := range exprs {
		re := regexp.MustCompile(expr)
		p := MustCompile(expr)
		for _, input := range inputs {
			for _, n := range []int{-1, 0, 2} {
				want := re.FindAllStringSubmatchIndex(input, n)
				got := p.FindAllStringSubmatchIndex(input, n)
				assert.Equal(t, want, got, "expr %q input %q n %d", expr, input, n)
			}
		}
	}
}

func TestReplaceAllString(t *testing.T) {
	tests := []struct {
		expr string
		src  string
		repl string
	}{
		{`a*`, "baaac", "<$0>"},
		{`x*`, "-ab-", "[${0}]"},
		{`(\w+)@(\w+)`, "bob@site, amy@host", "${2}:${1}"},
		{`(?P<first>\w+) (?P<last>\w+)`, "Ada Lovelace", "$last, $first"},
		{`é`, "café", "e$$"},
		{`z`, "abc", "y"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			want := regexp.MustCompile(tt.expr).ReplaceAllString(tt.src, tt.repl)
			got, err := MustCompile(tt.expr).ReplaceAllString(tt.src, tt.repl)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestReplaceAllStringErrors(t *testing.T) {
	p := MustCompile(`(?P<a>x)(y)`)

	_, err := p.ReplaceAllString("xy", "$3")
	assert.ErrorIs(t, err, replace.ErrUnknownGroup)

	_, err = p.ReplaceAllString("xy", "$b")
	assert.ErrorIs(t, err, replace.ErrUnknownGroup)

	_, err = p.ReplaceAllString("xy", "${a")
	assert.ErrorIs(t, err, replace.ErrSyntax)

	got, err := p.ReplaceAllString("xyxy", "${2}$a")
	require.NoError(t, err)
	assert.Equal(t, "yxyx", got)
}

func TestStepBudget(t *testing.T) {
	p, err := CompileOptions(`(a|aa)*b`, Options{MaxSteps: 200})
	require.NoError(t, err)
	input := strings.Repeat("a", 1000)

	assert.False(t, p.MatchString(input))
	_, err = p.ReplaceAllString(input, "x")
	assert.ErrorIs(t, err, ErrStepBudget)

	m := p.Matcher(input)
	ok, err := m.MatchesContext(context.Background())
	assert.False(t, ok)
	assert.True(t, errors.Is(err, ErrStepBudget))

	assert.False(t, m.Find())
	assert.ErrorIs(t, m.Err(), ErrStepBudget)

	// Within budget.
	assert.True(t, p.MatchString("aab"))
}

func TestWithMaxSteps(t *testing.T) {
	src := MustCompile(`(a|aa)*b`)
	loaded := MustFromProgram(src.String(), src.Flags(), src.Program(), src.GroupNames())
	assert.Equal(t, 0, loaded.MaxSteps())

	bounded := loaded.WithMaxSteps(200)
	assert.Equal(t, 200, bounded.MaxSteps())
	assert.Equal(t, 0, loaded.MaxSteps(), "the original pattern keeps its budget")

	input := strings.Repeat("a", 1000)
	m := bounded.Matcher(input)
	assert.False(t, m.Find())
	assert.ErrorIs(t, m.Err(), ErrStepBudget)
	assert.True(t, bounded.MatchString("aab"))

	m = loaded.Matcher(input)
	assert.False(t, m.Find())
	assert.NoError(t, m.Err())

	assert.Equal(t, 0, bounded.WithMaxSteps(0).MaxSteps())
	assert.Equal(t, 0, bounded.WithMaxSteps(-5).MaxSteps())
}

func TestReplaceAllTemplate(t *testing.T) {
	p := MustCompile(`(?P<user>\w+)@(\w+)`)
	tmpl := replace.MustParse("${2}:$user")

	for _, in := range []string{"bob@host", "a@b, c@d", "none", ""} {
		got, err := p.ReplaceAllTemplate(in, tmpl)
		require.NoError(t, err)
		want, err := p.ReplaceAllString(in, "${2}:$user")
		require.NoError(t, err)
		assert.Equal(t, want, got, "input %q", in)
	}

	_, err := p.ReplaceAllTemplate("x@y", replace.MustParse("$3"))
	assert.ErrorIs(t, err, replace.ErrUnknownGroup)
}

func TestFromProgram(t *testing.T) {
	src := MustCompile(`(?P<k>\w+)=(?M<1>\d+)`)

	p, err := FromProgram(src.String(), src.Flags(), src.Program(), src.GroupNames())
	require.NoError(t, err)
	assert.Equal(t, src.GroupNames(), p.GroupNames())

	m := p.Matcher("port=80")
	require.True(t, m.Matches())
	v, ok := m.GroupByName("k")
	assert.True(t, ok)
	assert.Equal(t, "port", v)
	assert.True(t, m.IsMarkSet(1))

	unnamed, err := FromProgram("x", 0, src.Program(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"", ""}, unnamed.GroupNames())

	_, err = FromProgram("x", 0, src.Program(), []string{""})
	assert.Error(t, err)

	_, err = FromProgram("x", 0, nil, nil)
	assert.Error(t, err)

	bad := &prog.Program{Inst: []prog.Inst{{Op: prog.InstMatch}}, Start: 3, NumSlots: 2}
	_, err = FromProgram("x", 0, bad, nil)
	assert.ErrorContains(t, err, "invalid program")

	assert.Panics(t, func() { MustFromProgram("x", 0, bad, nil) })
}

func TestConcurrentUse(t *testing.T) {
	p := MustCompile(`(?M<1>a+)b|a+c`)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				input := strings.Repeat("a", i%7+1) + "c"
				m := p.Matcher(input)
				if !m.Matches() || !m.IsMarkSet(1) {
					t.Errorf("goroutine %d: %q did not match with mark 1", g, input)
					return
				}
			}
		}(g)
	}
	wg.Wait()
}
