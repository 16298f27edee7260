package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/KromDaniel/regmark/pkg/regmark"
	"github.com/KromDaniel/regmark/stream"
)

type grepOptions struct {
	invert  bool
	replace string
}

func newGrepCmd(a *app) *cobra.Command {
	opts := &grepOptions{}
	cmd := &cobra.Command{
		Use:   "grep PATTERN [FILE...]",
		Short: "Print the lines that match a pattern",
		Long: `grep reads the named files, or standard input when there are none, and
prints every line containing a match. With --replace it prints every line
with its matches replaced instead.`,
		Example: `  regmark grep '^ERROR' app.log
  dmesg | regmark grep -v usb
  regmark grep --replace '$user' '(?P<user>\w+)@\w+' addresses.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGrep(cmd, a, opts, args[0], args[1:])
		},
	}
	cmd.Flags().BoolVarP(&opts.invert, "invert", "v", false, "print the lines that do not match")
	cmd.Flags().StringVar(&opts.replace, "replace", "", "replace matches with this template instead of filtering")
	return cmd
}

func runGrep(cmd *cobra.Command, a *app, opts *grepOptions, expr string, files []string) error {
	p, err := a.compile(cmd, expr, 0, false)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return grepReader(cmd, a, opts, p, cmd.InOrStdin(), "-")
	}
	for _, name := range files {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		err = grepReader(cmd, a, opts, p, f, name)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// grepReader copies the filtered or rewritten lines of in to the output.
func grepReader(cmd *cobra.Command, a *app, opts *grepOptions, p *regmark.Pattern, in io.Reader, name string) error {
	var out io.Reader
	if cmd.Flags().Changed("replace") {
		var err error
		out, err = stream.Replace(in, p, opts.replace)
		if err != nil {
			return err
		}
	} else {
		out = stream.Grep(in, p, opts.invert)
	}

	n, err := io.Copy(cmd.OutOrStdout(), out)
	a.logger.Debug("grep done", "pattern", p.String(), "input", name, "bytes", n)
	return err
}
