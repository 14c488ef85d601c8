package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/reason/pkg/reason/internalerr"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, "config.yaml", `
max_depth: 10
log_level: debug
facts:
  - (on a b)
  - (on b c)
rules:
  - ((on ?x ?y)) -> (above ?x ?y)
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.MaxDepth)
	assert.Equal(t, "debug", cfg.LogLevel)

	items, err := cfg.Items()
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "rule: ((on ?x ?y)) -> (above ?x ?y)", items[2].String())
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", "max_depth: [1, 2\n")
	_, err := LoadConfig(path)
	assert.Error(t, err, "should error on malformed YAML")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"zero value", Config{}, true},
		{"bounded", Config{MaxDepth: 5, LogLevel: "warn"}, true},
		{"negative depth", Config{MaxDepth: -1}, false},
		{"unknown level", Config{LogLevel: "chatty"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
			}
		})
	}
}

func TestItemsRejectsBadStatement(t *testing.T) {
	cfg := Config{Facts: []string{"on a b"}}
	_, err := cfg.Items()
	assert.ErrorIs(t, err, internalerr.ErrParse)
}
