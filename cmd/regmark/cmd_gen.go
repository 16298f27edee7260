package main

import (
	"github.com/spf13/cobra"

	"github.com/KromDaniel/regmark/internal/codegen"
)

type genOptions struct {
	name    string
	pkg     string
	output  string
	verbose bool
}

func newGenCmd(a *app) *cobra.Command {
	opts := &genOptions{}
	cmd := &cobra.Command{
		Use:   "gen PATTERN",
		Short: "Generate Go source declaring a precompiled pattern",
		Long: `gen compiles PATTERN and writes a Go file declaring its program and a
pattern loaded from it. The configured step budget (max_steps or
--max-steps) is kept by the generated pattern.`,
		Example: `  regmark gen --name Email --package patterns --output email.go '(?P<user>\w+)@(?M<1>\w+)'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.compile(cmd, args[0], 0, opts.verbose)
			if err != nil {
				return err
			}
			g := codegen.New(codegen.Config{
				Pattern:    p.String(),
				Name:       opts.name,
				Package:    opts.pkg,
				OutputFile: opts.output,
				Program:    p.Program(),
				Names:      p.GroupNames(),
				Flags:      p.Flags(),
				MaxSteps:   a.cfg.MaxSteps,
			})
			if opts.output == "" {
				return g.Render(cmd.OutOrStdout())
			}
			if err := g.Generate(); err != nil {
				return err
			}
			a.logger.Info("generated pattern", "name", opts.name, "file", opts.output)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.name, "name", "", "prefix of the generated identifiers (required)")
	cmd.Flags().StringVar(&opts.pkg, "package", "main", "package of the generated file")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: standard output)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log compilation decisions")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
