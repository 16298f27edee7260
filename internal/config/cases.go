package config

import (
	"fmt"
	"os"
)

// Modes a case can match with.
const (
	ModeMatches   = "matches"    // the whole input must match
	ModeLookingAt = "looking_at" // a prefix of the input must match
	ModeFind      = "find"       // some substring must match
)

// Case is one regression case: a pattern run against an input with the
// expected outcome.
type Case struct {
	Name    string   `yaml:"name"`
	Pattern string   `yaml:"pattern"`
	Flags   []string `yaml:"flags,omitempty"`
	Input   string   `yaml:"input"`
	Mode    string   `yaml:"mode,omitempty"` // defaults to matches
	Want    bool     `yaml:"want"`

	// Marks, when present, is the exact set of marks expected after the
	// attempt, whether it matched or not. An empty list requires a pattern
	// that can set marks but set none.
	Marks []uint `yaml:"marks,omitempty"`

	// NoMarks requires a pattern that cannot set any mark, so that the
	// matcher reports no mark set at all.
	NoMarks bool `yaml:"no_marks,omitempty"`

	// Groups, when present, lists the expected text of group 0 onwards.
	// Only checked when the attempt matched.
	Groups []string `yaml:"groups,omitempty"`
}

// CaseFile is a file of regression cases.
type CaseFile struct {
	Cases []Case `yaml:"cases"`
}

// LoadCases reads and validates a case file.
func LoadCases(path string) (*CaseFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read case file: %w", err)
	}
	var cf CaseFile
	if err := decodeStrict(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse case file %s: %w", path, err)
	}
	for i := range cf.Cases {
		c := &cf.Cases[i]
		if c.Mode == "" {
			c.Mode = ModeMatches
		}
		if c.Name == "" {
			c.Name = fmt.Sprintf("case-%d", i+1)
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("case %q: %w", c.Name, err)
		}
	}
	return &cf, nil
}

// Validate checks if the case is well formed.
func (c Case) Validate() error {
	switch c.Mode {
	case ModeMatches, ModeLookingAt, ModeFind:
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if c.NoMarks && c.Marks != nil {
		return fmt.Errorf("marks given for a case with no_marks")
	}
	if len(c.Groups) > 0 && !c.Want {
		return fmt.Errorf("groups given for a case that must not match")
	}
	return nil
}
