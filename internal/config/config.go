// Package config loads the YAML settings shared by the command line tools,
// the language server and the REPL.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// ColorMode selects when terminal output is colorized.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

type Log struct {
	// Verbosity follows commonlog: 0 is errors only, higher is noisier.
	Verbosity int    `yaml:"verbosity"`
	File      string `yaml:"file"`
}

type Config struct {
	// Workers bounds the number of functions lowered concurrently.
	Workers int `yaml:"workers"`
	// FirstBlockID is the id given to the first block of every graph.
	FirstBlockID int `yaml:"first_block_id"`
	// EnableAsserts lowers assert statements instead of dropping them.
	EnableAsserts bool `yaml:"enable_asserts"`
	// StackOverflowChecks emits checks in prologues and on loop back edges.
	StackOverflowChecks bool      `yaml:"stack_overflow_checks"`
	Color               ColorMode `yaml:"color"`
	Log                 Log       `yaml:"log"`
	// Manifests lists extra symbol manifests loaded after the core one.
	Manifests []string `yaml:"manifests"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Workers:             runtime.NumCPU(),
		FirstBlockID:        1,
		StackOverflowChecks: true,
		Color:               ColorAuto,
		Log:                 Log{Verbosity: 0},
	}
}

// Load reads a YAML file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of the defaults. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("invalid config: workers must be at least 1, got %d", c.Workers)
	}
	if c.FirstBlockID < 1 {
		return fmt.Errorf("invalid config: first_block_id must be at least 1, got %d", c.FirstBlockID)
	}
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("invalid config: color must be auto, always or never, got %q", c.Color)
	}
	if c.Log.Verbosity < 0 {
		return fmt.Errorf("invalid config: log.verbosity must not be negative")
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
