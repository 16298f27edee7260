package main

import (
	"fmt"
	"io"

	"github.com/bits-and-blooms/bitset"
	"github.com/spf13/cobra"

	"github.com/KromDaniel/regmark/internal/config"
	"github.com/KromDaniel/regmark/pkg/regmark"
)

type matchOptions struct {
	mode    string
	all     bool
	replace string
}

func newMatchCmd(a *app) *cobra.Command {
	opts := &matchOptions{}
	cmd := &cobra.Command{
		Use:   "match PATTERN INPUT...",
		Short: "Match inputs against a pattern and print groups and marks",
		Example: `  regmark match '(?M<1>foo)|(?M<2>bar)' bar
  regmark match --mode find --all '\d+' 'a1 b22'
  regmark match --replace '${2}:${1}' '(\w+)@(\w+)' bob@host`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(cmd, a, opts, args[0], args[1:])
		},
	}
	cmd.Flags().StringVar(&opts.mode, "mode", config.ModeMatches, "matches, looking_at or find")
	cmd.Flags().BoolVar(&opts.all, "all", false, "with --mode find, print every match")
	cmd.Flags().StringVar(&opts.replace, "replace", "", "print each input with every match replaced by this template")
	return cmd
}

func runMatch(cmd *cobra.Command, a *app, opts *matchOptions, expr string, inputs []string) error {
	switch opts.mode {
	case config.ModeMatches, config.ModeLookingAt, config.ModeFind:
	default:
		return fmt.Errorf("unknown mode %q", opts.mode)
	}

	p, err := a.compile(cmd, expr, 0, false)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if cmd.Flags().Changed("replace") {
		for _, in := range inputs {
			s, err := p.ReplaceAllString(in, opts.replace)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, s)
		}
		return nil
	}

	for _, in := range inputs {
		m := p.Matcher(in)
		switch opts.mode {
		case config.ModeMatches:
			m.Matches()
		case config.ModeLookingAt:
			m.LookingAt()
		case config.ModeFind:
			if opts.all {
				n := 0
				for m.Find() {
					printMatch(out, in, m)
					n++
				}
				if err := m.Err(); err != nil {
					return err
				}
				if n == 0 {
					printMatch(out, in, m)
				}
				continue
			}
			m.Find()
		}
		if err := m.Err(); err != nil {
			return fmt.Errorf("%q: %w", in, err)
		}
		printMatch(out, in, m)
	}
	return nil
}

// printMatch prints the outcome of the last attempt of m over in:
//
//	"bar": matched [0,3] marks=[2]
//	  group 1 "x" [0,1]
func printMatch(w io.Writer, in string, m *regmark.Matcher) {
	if m.Start(0) < 0 {
		fmt.Fprintf(w, "%q: no match marks=%s\n", in, formatMarks(m.Marks()))
		return
	}
	fmt.Fprintf(w, "%q: matched [%d,%d] marks=%s\n", in, m.Start(0), m.End(0), formatMarks(m.Marks()))
	names := m.Pattern().GroupNames()
	for i := 1; i <= m.GroupCount(); i++ {
		label := fmt.Sprint(i)
		if names[i] != "" {
			label += " (" + names[i] + ")"
		}
		g, ok := m.Group(i)
		if !ok {
			fmt.Fprintf(w, "  group %s unset\n", label)
			continue
		}
		fmt.Fprintf(w, "  group %s %q [%d,%d]\n", label, g, m.Start(i), m.End(i))
	}
}

// setMarks lists the set bits of b; nil for a nil set.
func setMarks(b *bitset.BitSet) []uint {
	if b == nil {
		return nil
	}
	out := make([]uint, 0, b.Count())
	for i, ok := b.NextSet(0); ok; i, ok = b.NextSet(i + 1) {
		out = append(out, i)
	}
	return out
}

func formatMarks(b *bitset.BitSet) string {
	if b == nil {
		return "-"
	}
	return fmt.Sprint(setMarks(b))
}
