// Package config implements the tangle engine's small, core-affecting knob
// set (spec.md §4.6): the delimiter override, the allow-absolute-paths
// switch, and the omit-trailing-newline switch. Everything else about CLI
// parsing and subcommand dispatch is out of scope for the core and lives in
// internal/maincmd.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

// Delimiter names one of the five recognized delimiter classes, or the zero
// value meaning "no override: use each block's own esc: spec."
type Delimiter string

const (
	DelimiterIgnore  Delimiter = "ignore"
	DelimiterChevron Delimiter = "chevron"
	DelimiterBrace   Delimiter = "brace"
	DelimiterBracket Delimiter = "bracket"
	DelimiterParen   Delimiter = "paren"
)

// OpenClose returns the open/close byte sequences d names, or ok=false if d
// is the zero value (meaning "no override"). DelimiterIgnore returns empty
// strings with ok=true: placeholder recognition is disabled entirely.
func (d Delimiter) OpenClose() (open, close string, ok bool) {
	switch d {
	case DelimiterIgnore:
		return "", "", true
	case DelimiterChevron:
		return "<", ">", true
	case DelimiterBrace:
		return "{", "}", true
	case DelimiterBracket:
		return "[", "]", true
	case DelimiterParen:
		return "(", ")", true
	default:
		return "", "", false
	}
}

// Config is the layered configuration: CLI flag > environment variable >
// config file > zero value, mirroring how mainer.Parser itself layers
// flags over environment variables for the CLI's own flag set.
type Config struct {
	Delimiter           Delimiter `flag:"delimiter" yaml:"delimiter" env:"TANGLE_DELIMITER"`
	AllowAbsolutePaths  bool      `flag:"allow-absolute-paths" yaml:"allow_absolute_paths" env:"TANGLE_ALLOW_ABSOLUTE_PATHS"`
	OmitTrailingNewline bool      `flag:"omit-trailing-newline" yaml:"omit_trailing_newline" env:"TANGLE_OMIT_TRAILING_NEWLINE"`
}

// Load reads a YAML config file (the lowest-precedence layer) from path. A
// missing file is not an error; it simply leaves Config at its zero value.
func Load(path string) (Config, error) {
	var c Config
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return c, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("parse config %s: %w", path, err)
	}
	return c, nil
}

// ApplyEnv overlays environment-variable overrides onto c, in place.
// Variables that aren't set leave the corresponding field untouched (this
// is env/v6's default behavior for non-required fields).
func (c *Config) ApplyEnv() error {
	return env.Parse(c)
}

// Merge overlays override onto c: any non-zero-value field of override wins.
// Used to apply CLI flags (the highest-precedence layer) over a
// file+env-derived Config.
func (c Config) Merge(override Config) Config {
	if override.Delimiter != "" {
		c.Delimiter = override.Delimiter
	}
	if override.AllowAbsolutePaths {
		c.AllowAbsolutePaths = true
	}
	if override.OmitTrailingNewline {
		c.OmitTrailingNewline = true
	}
	return c
}
