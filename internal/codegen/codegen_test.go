package codegen

import (
	"bytes"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KromDaniel/regmark/pkg/regmark"
	"github.com/KromDaniel/regmark/prog"
)

func testConfig(t *testing.T, expr string, flags regmark.Flags) Config {
	t.Helper()
	p, err := regmark.CompileFlags(expr, flags)
	if err != nil {
		t.Fatalf("CompileFlags(%q) error: %v", expr, err)
	}
	return Config{
		Pattern: expr,
		Name:    "email",
		Package: "patterns",
		Program: p.Program(),
		Names:   p.GroupNames(),
		Flags:   flags,
	}
}

func TestSource(t *testing.T) {
	cfg := testConfig(t, `(?P<user>\w+)@(?M<2>'x\\)`, regmark.CaseInsensitive|regmark.Longest)
	src, err := New(cfg).Source()
	if err != nil {
		t.Fatalf("Source() error: %v", err)
	}
	out := string(src)

	for _, want := range []string{
		"// Code generated by regmark. DO NOT EDIT.",
		"package patterns",
		`"github.com/KromDaniel/regmark/pkg/regmark"`,
		`"github.com/KromDaniel/regmark/prog"`,
		"var EmailProgram = &prog.Program{",
		"var Email = regmark.MustFromProgram(",
		"regmark.CaseInsensitive|regmark.Longest",
		`[]string{"", "user"}`,
		"{Op: prog.InstFail}",
		"Op: prog.InstMark",
		"NumMarks: 3,",
		"NumSlots: 4,",
		"'@'",
		"39",
		"92",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("generated source does not contain %q:\n%s", want, out)
		}
	}
}

func TestSourceParses(t *testing.T) {
	for _, expr := range []string{`a`, `^abc`, `[^a-z]+(?M<0>x)|\b`, `(a)(b)?`, `é{2}`} {
		t.Run(expr, func(t *testing.T) {
			cfg := testConfig(t, expr, 0)
			src, err := New(cfg).Source()
			if err != nil {
				t.Fatalf("Source() error: %v", err)
			}
			f, err := parser.ParseFile(token.NewFileSet(), "gen.go", src, 0)
			if err != nil {
				t.Fatalf("generated source does not parse: %v\n%s", err, src)
			}
			if got, want := countInsts(f), len(cfg.Program.Inst); got != want {
				t.Errorf("generated %d instructions, want %d", got, want)
			}
		})
	}
}

// countInsts returns the number of elements of the []prog.Inst literal in f.
func countInsts(f *ast.File) int {
	n := -1
	ast.Inspect(f, func(node ast.Node) bool {
		lit, ok := node.(*ast.CompositeLit)
		if !ok {
			return true
		}
		arr, ok := lit.Type.(*ast.ArrayType)
		if !ok {
			return true
		}
		if sel, ok := arr.Elt.(*ast.SelectorExpr); ok && sel.Sel.Name == "Inst" {
			n = len(lit.Elts)
			return false
		}
		return true
	})
	return n
}

func TestSourceOmitsZeroFields(t *testing.T) {
	cfg := testConfig(t, `a`, 0)
	src, err := New(cfg).Source()
	if err != nil {
		t.Fatalf("Source() error: %v", err)
	}
	out := string(src)
	for _, unwanted := range []string{"NumMarks", "Anchored", "Arg: 0", "Out: 0", "WithMaxSteps"} {
		if strings.Contains(out, unwanted) {
			t.Errorf("generated source contains %q:\n%s", unwanted, out)
		}
	}
	if !strings.Contains(out, `MustFromProgram("a", 0, EmailProgram,`) {
		t.Errorf("unexpected MustFromProgram call:\n%s", out)
	}
}

func TestSourceMaxSteps(t *testing.T) {
	cfg := testConfig(t, `(a|aa)*b`, 0)
	cfg.MaxSteps = 500
	src, err := New(cfg).Source()
	if err != nil {
		t.Fatalf("Source() error: %v", err)
	}
	if !strings.Contains(string(src), ").WithMaxSteps(500)") {
		t.Errorf("generated pattern does not keep the step budget:\n%s", src)
	}
	if _, err := parser.ParseFile(token.NewFileSet(), "gen.go", src, 0); err != nil {
		t.Fatalf("generated source does not parse: %v\n%s", err, src)
	}
}

func TestValidate(t *testing.T) {
	valid := testConfig(t, `(a)`, 0)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty name", func(c *Config) { c.Name = "" }},
		{"bad name", func(c *Config) { c.Name = "my-regex" }},
		{"empty package", func(c *Config) { c.Package = "" }},
		{"bad package", func(c *Config) { c.Package = "1pkg" }},
		{"nil program", func(c *Config) { c.Program = nil }},
		{"invalid program", func(c *Config) { c.Program = &prog.Program{} }},
		{"names mismatch", func(c *Config) { c.Names = []string{""} }},
		{"negative max steps", func(c *Config) { c.MaxSteps = -1 }},
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() on valid config: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() succeeded, want error")
			}
			if _, err := New(cfg).Source(); err == nil {
				t.Error("Source() succeeded, want error")
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	cfg := testConfig(t, `x+`, 0)

	if err := New(cfg).Generate(); err == nil {
		t.Error("Generate() without output file succeeded")
	}

	cfg.OutputFile = filepath.Join(t.TempDir(), "email.go")
	if err := New(cfg).Generate(); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	written, err := os.ReadFile(cfg.OutputFile)
	if err != nil {
		t.Fatal(err)
	}

	var rendered bytes.Buffer
	if err := New(cfg).Render(&rendered); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !bytes.Equal(written, rendered.Bytes()) {
		t.Error("Generate and Render produced different output")
	}
}
