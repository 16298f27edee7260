package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDumpCmd(a *app) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "dump PATTERN",
		Short: "Print the compiled program of a pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.compile(cmd, args[0], 0, verbose)
			if err != nil {
				return err
			}
			prog := p.Program()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pattern:      %q\n", p.String())
			fmt.Fprintf(out, "flags:        %s\n", p.Flags())
			fmt.Fprintf(out, "groups:       %d\n", p.GroupCount())
			fmt.Fprintf(out, "marks:        %d\n", prog.NumMarks)
			fmt.Fprintf(out, "instructions: %d\n", len(prog.Inst))
			fmt.Fprintf(out, "anchored:     %v\n", prog.Anchored)
			fmt.Fprintf(out, "prefix:       %q\n", prog.Prefix)
			fmt.Fprintf(out, "min length:   %d\n", prog.MinLen)
			fmt.Fprintln(out)
			fmt.Fprint(out, prog.String())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log compilation decisions")
	return cmd
}
