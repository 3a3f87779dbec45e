package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
workers: 2
enable_asserts: true
color: never
log:
  verbosity: 2
manifests:
  - extra.yaml
`))
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Workers)
	assert.True(t, cfg.EnableAsserts)
	assert.True(t, cfg.StackOverflowChecks)
	assert.Equal(t, 1, cfg.FirstBlockID)
	assert.Equal(t, ColorNever, cfg.Color)
	assert.Equal(t, 2, cfg.Log.Verbosity)
	assert.Equal(t, []string{"extra.yaml"}, cfg.Manifests)
}

func TestParseEmptyDocument(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		msg  string
	}{
		{"unknown key", "wokers: 3", "field wokers not found"},
		{"zero workers", "workers: 0", "workers must be at least 1"},
		{"block id", "first_block_id: 0", "first_block_id"},
		{"color", "color: sometimes", "color must be"},
		{"verbosity", "log: {verbosity: -1}", "log.verbosity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dil.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stack_overflow_checks: false\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.StackOverflowChecks)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Manifests = []string{"a.yaml"}

	data, err := cfg.Marshal()
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, parsed)
}
