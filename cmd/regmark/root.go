package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KromDaniel/regmark/internal/config"
	"github.com/KromDaniel/regmark/pkg/regmark"
)

// app is the state shared by all commands: persistent flags, and the
// configuration and logger derived from them before a command runs.
type app struct {
	configPath string
	flags      string
	maxSteps   int
	logLevel   string

	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "regmark",
		Short: "Compile and run regular expressions with marks",
		Long: `regmark runs regular expressions in linear time. Besides the usual
Perl/RE2 syntax it accepts (?M<N>re), which records mark N whenever any
attempt passes through re, even one that fails later.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")
	pf.StringVar(&a.flags, "flags", "", "comma separated pattern flags: i,s,m,literal,longest,entry")
	pf.IntVar(&a.maxSteps, "max-steps", 0, "bound the work of a match attempt (0: unbounded)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newMatchCmd(a),
		newDumpCmd(a),
		newGenCmd(a),
		newCheckCmd(a),
		newGrepCmd(a),
	)
	return root
}

// load reads the configuration file and applies the flags that override it.
func (a *app) load(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("flags") {
		cfg.Flags = splitList(a.flags)
	}
	if flags.Changed("max-steps") {
		cfg.MaxSteps = a.maxSteps
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level, _ := cfg.Level()
	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

// compile compiles expr with the configured options plus extra flags.
// Verbose compiler output is logged at info level, so it is raised to be
// visible when requested.
func (a *app) compile(cmd *cobra.Command, expr string, extra regmark.Flags, verbose bool) (*regmark.Pattern, error) {
	logger := a.logger
	if verbose {
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	opts, err := a.cfg.Options(logger)
	if err != nil {
		return nil, err
	}
	opts.Flags |= extra
	opts.Verbose = verbose

	p, err := regmark.CompileOptions(expr, opts)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("compiled pattern",
		"pattern", expr,
		"flags", opts.Flags.String(),
		"instructions", len(p.Program().Inst),
		"marks", p.Program().NumMarks)
	return p, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
