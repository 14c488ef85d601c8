package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/reason/pkg/reason/internalerr"
	"github.com/cognicore/reason/pkg/reason/kb"
	"github.com/cognicore/reason/pkg/reason/parse"
)

// Config is the YAML configuration of a reasoner
type Config struct {
	// MaxDepth bounds nested inference; 0 means unbounded
	MaxDepth int    `yaml:"max_depth"`
	LogLevel string `yaml:"log_level"`
	// Facts and Rules are asserted in order, facts first
	Facts []string `yaml:"facts"`
	Rules []string `yaml:"rules"`
}

var logLevels = map[string]bool{"": true, "debug": true, "info": true, "warn": true, "error": true}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.MaxDepth < 0 {
		return fmt.Errorf("%w: max_depth must be >= 0, got %d", internalerr.ErrInvalidConfig, c.MaxDepth)
	}
	if !logLevels[c.LogLevel] {
		return fmt.Errorf("%w: unknown log_level %q", internalerr.ErrInvalidConfig, c.LogLevel)
	}
	return nil
}

// Items parses the inline facts and rules
func (c *Config) Items() ([]kb.Item, error) {
	items := make([]kb.Item, 0, len(c.Facts)+len(c.Rules))
	for _, s := range c.Facts {
		f, err := parse.ParseFact("fact: " + s)
		if err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	for _, s := range c.Rules {
		r, err := parse.ParseRule("rule: " + s)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, nil
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadKB loads items from a line-oriented KB file
func LoadKB(path string) ([]kb.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	items, err := parse.ParseKB(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return items, nil
}
