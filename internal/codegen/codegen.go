package codegen

import (
	"bytes"
	"fmt"
	"go/format"
	"go/token"
	"io"
	"os"

	"github.com/dave/jennifer/jen"

	"github.com/KromDaniel/regmark/pkg/regmark"
	"github.com/KromDaniel/regmark/prog"
)

// Config holds the configuration for code generation.
type Config struct {
	Pattern    string
	Name       string // Prefix of the generated identifiers; exported if it starts with a lowercase letter
	Package    string
	OutputFile string
	Program    *prog.Program
	Names      []string // Group names, Names[0] for group 0; nil when no group is named
	Flags      regmark.Flags
	MaxSteps   int // Step budget restored on the generated pattern; 0 for none
}

// Validate checks if the config is valid. OutputFile is only checked by Generate.
func (c Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if !token.IsIdentifier(c.Name) {
		return fmt.Errorf("name %q is not a Go identifier", c.Name)
	}
	if c.Package == "" {
		return fmt.Errorf("package cannot be empty")
	}
	if !token.IsIdentifier(c.Package) {
		return fmt.Errorf("package %q is not a Go identifier", c.Package)
	}
	if c.Program == nil {
		return fmt.Errorf("program cannot be nil")
	}
	if err := c.Program.Validate(); err != nil {
		return fmt.Errorf("invalid program: %w", err)
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("max steps cannot be negative")
	}
	if c.Names != nil && len(c.Names) != c.Program.NumGroups()+1 {
		return fmt.Errorf("got %d group names, program has %d groups", len(c.Names), c.Program.NumGroups()+1)
	}
	return nil
}

// Generator renders one program as a Go file.
type Generator struct {
	config Config
	name   string
}

// New creates a generator for config.
func New(config Config) *Generator {
	return &Generator{config: config, name: UpperFirst(config.Name)}
}

// Generate writes the formatted source to the configured output file.
func (g *Generator) Generate() error {
	if g.config.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	src, err := g.Source()
	if err != nil {
		return err
	}
	if err := os.WriteFile(g.config.OutputFile, src, 0644); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}

// Render writes the formatted source to w.
func (g *Generator) Render(w io.Writer) error {
	src, err := g.Source()
	if err != nil {
		return err
	}
	_, err = w.Write(src)
	return err
}

// Source returns the formatted source of the generated file.
func (g *Generator) Source() ([]byte, error) {
	if err := g.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	f := jen.NewFile(g.config.Package)
	f.HeaderComment("Code generated by regmark. DO NOT EDIT.")

	progName := ProgramName(g.name)
	f.Commentf("%s is the compiled program of %s.", progName, quote(g.config.Pattern))
	f.Var().Id(progName).Op("=").Add(g.program())
	f.Line()

	f.Commentf("%s matches %s.", g.name, quote(g.config.Pattern))
	pattern := jen.Qual(regmarkPath, "MustFromProgram").Call(
		jen.Lit(g.config.Pattern),
		g.flags(),
		jen.Id(progName),
		g.names(),
	)
	if g.config.MaxSteps > 0 {
		pattern.Dot("WithMaxSteps").Call(jen.Lit(g.config.MaxSteps))
	}
	f.Var().Id(g.name).Op("=").Add(pattern)

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, fmt.Errorf("failed to render file: %w", err)
	}
	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to format file: %w", err)
	}
	return formatted, nil
}

func (g *Generator) program() *jen.Statement {
	p := g.config.Program
	insts := jen.Index().Qual(progPath, "Inst").CustomFunc(jen.Options{
		Open:      "{",
		Close:     "}",
		Separator: ",",
		Multi:     true,
	}, func(grp *jen.Group) {
		for pc := range p.Inst {
			grp.Add(inst(&p.Inst[pc]))
		}
	})

	fields := jen.Dict{
		jen.Id("Inst"):     insts,
		jen.Id("Start"):    jen.Lit(p.Start),
		jen.Id("NumSlots"): jen.Lit(p.NumSlots),
	}
	if p.NumMarks > 0 {
		fields[jen.Id("NumMarks")] = jen.Lit(p.NumMarks)
	}
	if p.Anchored {
		fields[jen.Id("Anchored")] = jen.True()
	}
	if p.Prefix != "" {
		fields[jen.Id("Prefix")] = jen.Lit(p.Prefix)
	}
	if p.MinLen > 0 {
		fields[jen.Id("MinLen")] = jen.Lit(p.MinLen)
	}
	return jen.Op("&").Qual(progPath, "Program").Values(fields)
}

// inst renders one instruction as a single-line keyed literal, leaving out
// zero fields.
func inst(i *prog.Inst) jen.Code {
	fields := []jen.Code{field("Op", jen.Qual(progPath, opIdents[i.Op]))}
	if i.Out != 0 {
		fields = append(fields, field("Out", jen.Lit(int(i.Out))))
	}
	if i.Arg != 0 {
		fields = append(fields, field("Arg", jen.Lit(int(i.Arg))))
	}
	if len(i.Runes) > 0 {
		runes := make([]jen.Code, len(i.Runes))
		for j, r := range i.Runes {
			runes[j] = runeLit(r)
		}
		fields = append(fields, field("Runes", jen.Index().Rune().Values(runes...)))
	}
	return jen.Custom(jen.Options{Open: "{", Close: "}", Separator: ","}, fields...)
}

func field(name string, value jen.Code) jen.Code {
	return jen.Id(name).Op(":").Add(value)
}

// runeLit renders printable ASCII as a character literal and anything else
// as a number, which stays exact for surrogates and other invalid runes.
func runeLit(r rune) jen.Code {
	if r >= ' ' && r <= '~' && r != '\'' && r != '\\' {
		return jen.LitRune(r)
	}
	return jen.Lit(int(r))
}

func (g *Generator) flags() jen.Code {
	var set []jen.Code
	for _, fi := range flagIdents {
		if g.config.Flags&fi.flag != 0 {
			set = append(set, jen.Qual(regmarkPath, fi.ident))
		}
	}
	if len(set) == 0 {
		return jen.Lit(0)
	}
	s := jen.Add(set[0])
	for _, c := range set[1:] {
		s = s.Op("|").Add(c)
	}
	return s
}

func (g *Generator) names() jen.Code {
	if g.config.Names == nil {
		return jen.Nil()
	}
	lits := make([]jen.Code, len(g.config.Names))
	for i, n := range g.config.Names {
		lits[i] = jen.Lit(n)
	}
	return jen.Index().String().Values(lits...)
}

func quote(s string) string {
	return fmt.Sprintf("%q", s)
}
