package main

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/KromDaniel/regmark/internal/config"
	"github.com/KromDaniel/regmark/internal/telemetry"
	"github.com/KromDaniel/regmark/pkg/regmark"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check CASEFILE...",
		Short: "Run regression case files and report failures",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, a, args)
		},
	}
}

func runCheck(cmd *cobra.Command, a *app, files []string) error {
	metrics := telemetry.New()
	out := cmd.OutOrStdout()

	total, failed := 0, 0
	for _, file := range files {
		cf, err := config.LoadCases(file)
		if err != nil {
			return err
		}
		for _, c := range cf.Cases {
			total++
			problems, err := runCase(cmd, a, c, metrics)
			switch {
			case err != nil:
				failed++
				metrics.CaseDone(telemetry.ResultError)
				fmt.Fprintf(out, "ERROR %s: %v\n", c.Name, err)
			case len(problems) > 0:
				failed++
				metrics.CaseDone(telemetry.ResultFail)
				fmt.Fprintf(out, "FAIL  %s: %s\n", c.Name, strings.Join(problems, "; "))
			default:
				metrics.CaseDone(telemetry.ResultPass)
				fmt.Fprintf(out, "PASS  %s\n", c.Name)
			}
		}
	}
	fmt.Fprintf(out, "%d passed, %d failed\n", total-failed, failed)

	if a.cfg.MetricsFile != "" {
		if err := metrics.WriteFile(a.cfg.MetricsFile); err != nil {
			return err
		}
		a.logger.Info("wrote metrics", "file", a.cfg.MetricsFile)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d cases failed", failed, total)
	}
	return nil
}

// runCase runs c and returns what differed from the expectation. An error
// means the case could not be run at all.
func runCase(cmd *cobra.Command, a *app, c config.Case, metrics *telemetry.Metrics) ([]string, error) {
	flags, err := regmark.ParseFlags(strings.Join(c.Flags, ","))
	if err != nil {
		return nil, err
	}
	p, err := a.compile(cmd, c.Pattern, flags, false)
	if err != nil {
		return nil, err
	}

	m := p.Matcher(c.Input)
	start := time.Now()
	var ok bool
	switch c.Mode {
	case config.ModeMatches:
		ok = m.Matches()
	case config.ModeLookingAt:
		ok = m.LookingAt()
	case config.ModeFind:
		ok = m.Find()
	}
	if err := m.Err(); err != nil {
		return nil, err
	}
	var nmarks uint
	if marks := m.Marks(); marks != nil {
		nmarks = marks.Count()
	}
	metrics.ObserveAttempt(m.Steps(), nmarks, time.Since(start))

	var problems []string
	if ok != c.Want {
		problems = append(problems, fmt.Sprintf("matched = %v, want %v", ok, c.Want))
	}
	switch marks := m.Marks(); {
	case c.NoMarks && marks != nil:
		problems = append(problems, fmt.Sprintf("marks = %v, want none possible", setMarks(marks)))
	case c.Marks != nil && marks == nil:
		problems = append(problems, fmt.Sprintf("marks not possible, want %v", c.Marks))
	case c.Marks != nil:
		if got := setMarks(marks); !slices.Equal(got, c.Marks) {
			problems = append(problems, fmt.Sprintf("marks = %v, want %v", got, c.Marks))
		}
	}
	if ok {
		for i, want := range c.Groups {
			got, set := m.Group(i)
			if !set || got != want {
				problems = append(problems, fmt.Sprintf("group %d = %q, want %q", i, got, want))
			}
		}
	}
	return problems, nil
}
