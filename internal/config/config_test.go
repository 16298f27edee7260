package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KromDaniel/regmark/pkg/regmark"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	flags, err := cfg.RegmarkFlags()
	require.NoError(t, err)
	assert.Zero(t, flags)

	loaded, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoad(t *testing.T) {
	path := writeFile(t, "regmark.yaml", `
flags: [i, longest]
max_steps: 5000
log_level: debug
metrics_file: /tmp/regmark.prom
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.MaxSteps)
	assert.Equal(t, "/tmp/regmark.prom", cfg.MetricsFile)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	opts, err := cfg.Options(nil)
	require.NoError(t, err)
	assert.Equal(t, regmark.CaseInsensitive|regmark.Longest, opts.Flags)
	assert.Equal(t, 5000, opts.MaxSteps)
}

func TestLoadKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "partial.yaml", "max_inst: 100\n"))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.MaxInst)
	assert.Equal(t, "warn", cfg.LogLevel)

	cfg, err = Load(writeFile(t, "empty.yaml", ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"unknown key", "max_stepz: 1\n", "failed to parse"},
		{"bad yaml", "flags: [i\n", "failed to parse"},
		{"negative steps", "max_steps: -1\n", "max_steps"},
		{"negative inst", "max_inst: -1\n", "max_inst"},
		{"bad level", "log_level: loud\n", "log_level"},
		{"bad flag", "flags: [q]\n", "invalid flags"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "bad.yaml", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Flags = []string{"m"}
	cfg.MaxSteps = 10

	data, err := cfg.Marshal()
	require.NoError(t, err)

	loaded, err := Load(writeFile(t, "out.yaml", string(data)))
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadCases(t *testing.T) {
	path := writeFile(t, "cases.yaml", `
cases:
  - name: alternation
    pattern: "(?M<1>foo)|(?M<2>bar)"
    input: bar
    want: true
    marks: [2]
  - pattern: "(\\w+)@"
    input: "bob@"
    mode: looking_at
    want: true
    groups: ["bob@", "bob"]
  - pattern: "x"
    input: "abc"
    mode: find
    want: false
    no_marks: true
  - pattern: "(?M<1>a)|b"
    input: b
    want: true
    marks: []
`)
	cf, err := LoadCases(path)
	require.NoError(t, err)
	require.Len(t, cf.Cases, 4)

	assert.Equal(t, "alternation", cf.Cases[0].Name)
	assert.Equal(t, ModeMatches, cf.Cases[0].Mode)
	assert.Equal(t, []uint{2}, cf.Cases[0].Marks)

	assert.Equal(t, "case-2", cf.Cases[1].Name)
	assert.Equal(t, ModeLookingAt, cf.Cases[1].Mode)
	assert.Equal(t, []string{"bob@", "bob"}, cf.Cases[1].Groups)

	assert.Equal(t, ModeFind, cf.Cases[2].Mode)
	assert.False(t, cf.Cases[2].Want)
	assert.True(t, cf.Cases[2].NoMarks)
	assert.Nil(t, cf.Cases[2].Marks)

	// An empty list is an expectation, unlike a missing one.
	assert.NotNil(t, cf.Cases[3].Marks)
	assert.Empty(t, cf.Cases[3].Marks)
	assert.False(t, cf.Cases[3].NoMarks)
}

func TestLoadCasesErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad mode", "cases:\n  - pattern: a\n    mode: search\n"},
		{"groups without match", "cases:\n  - pattern: a\n    groups: [a]\n"},
		{"unknown key", "cases:\n  - pattern: a\n    expect: true\n"},
		{"marks with no_marks", "cases:\n  - pattern: a\n    no_marks: true\n    marks: []\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCases(writeFile(t, "cases.yaml", tt.content))
			assert.Error(t, err)
		})
	}
}

func TestRepositoryCaseFile(t *testing.T) {
	cf, err := LoadCases(filepath.Join("..", "..", "testdata", "marks.yaml"))
	require.NoError(t, err)
	assert.NotEmpty(t, cf.Cases)
}
