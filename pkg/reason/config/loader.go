package config

import (
	"fmt"

	"github.com/cognicore/reason/pkg/reason/kb"
)

// Loader loads all configuration files
type Loader struct {
	ConfigPath string
	KBPath     string
}

// Components holds everything needed to build a reasoner
type Components struct {
	Config *Config
	// Items in assertion order: config facts, config rules, then the KB file
	Items []kb.Item
}

// Load reads all configured files
func (l *Loader) Load() (*Components, error) {
	comp := &Components{Config: &Config{}}

	if l.ConfigPath != "" {
		cfg, err := LoadConfig(l.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		comp.Config = cfg
	}

	items, err := comp.Config.Items()
	if err != nil {
		return nil, fmt.Errorf("config items: %w", err)
	}
	comp.Items = items

	if l.KBPath != "" {
		fileItems, err := LoadKB(l.KBPath)
		if err != nil {
			return nil, fmt.Errorf("load kb: %w", err)
		}
		comp.Items = append(comp.Items, fileItems...)
	}

	return comp, nil
}
