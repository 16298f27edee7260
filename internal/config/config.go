// Package config loads the CLI configuration and regression case files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/KromDaniel/regmark/pkg/regmark"
)

// Config is the CLI configuration file.
type Config struct {
	// Flags are applied to every pattern, as accepted by regmark.ParseFlags.
	Flags []string `yaml:"flags,omitempty"`

	// MaxSteps bounds the work of a single match attempt; 0 is unbounded.
	MaxSteps int `yaml:"max_steps"`

	// MaxInst bounds program size; 0 uses the compiler default.
	MaxInst int `yaml:"max_inst"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// MetricsFile, if set, receives the metrics of a check run in the
	// Prometheus text format.
	MetricsFile string `yaml:"metrics_file,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		MaxSteps: 0,
		LogLevel: "warn",
	}
}

// Load reads the configuration at path on top of Default. An empty path
// returns Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := decodeStrict(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.MaxSteps < 0 {
		return fmt.Errorf("max_steps cannot be negative")
	}
	if c.MaxInst < 0 {
		return fmt.Errorf("max_inst cannot be negative")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if _, err := c.RegmarkFlags(); err != nil {
		return err
	}
	return nil
}

// Level returns LogLevel as a slog level.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return slog.LevelWarn, nil
	}
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return l, nil
}

// RegmarkFlags returns Flags combined into regmark flags.
func (c Config) RegmarkFlags() (regmark.Flags, error) {
	f, err := regmark.ParseFlags(strings.Join(c.Flags, ","))
	if err != nil {
		return 0, fmt.Errorf("invalid flags: %w", err)
	}
	return f, nil
}

// Options returns the compile options described by the configuration.
func (c Config) Options(logger *slog.Logger) (regmark.Options, error) {
	flags, err := c.RegmarkFlags()
	if err != nil {
		return regmark.Options{}, err
	}
	return regmark.Options{
		Flags:    flags,
		MaxSteps: c.MaxSteps,
		MaxInst:  c.MaxInst,
		Logger:   logger,
	}, nil
}

// Marshal returns the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// decodeStrict unmarshals data into v, rejecting unknown keys.
func decodeStrict(data []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
