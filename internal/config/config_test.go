package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vincentbai/visitwatch/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("VISITWATCH_CONFIG", "")
	t.Setenv("VISITWATCH_ADDRESS", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultInterval, cfg.Interval)
	assert.Equal(t, DefaultSourceTimeout, cfg.SourceTimeout)
	assert.Equal(t, DefaultRowCap, cfg.RowCap)
	assert.Equal(t, "127.0.0.1:9321", cfg.ListenAddress)
	assert.NotEmpty(t, cfg.Sources)
}

func TestLoadFile(t *testing.T) {
	t.Setenv("VISITWATCH_ADDRESS", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
interval: 2s
source_timeout: 5s
row_cap: 10
csv_path: /var/log/visits.csv
sources:
  - name: Chrome
    family: chromium
    path: /data/chrome/History
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Interval)
	assert.Equal(t, 5*time.Second, cfg.SourceTimeout)
	assert.Equal(t, 10, cfg.RowCap)
	assert.Equal(t, "/var/log/visits.csv", cfg.CSVPath)
	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, "Chrome", cfg.Sources[0].Name)
	assert.Equal(t, models.FamilyChromium, cfg.Sources[0].Family)

	// Unset keys keep their defaults.
	assert.Equal(t, Default().PIDPath, cfg.PIDPath)
}

func TestLoadEnvConfigPath(t *testing.T) {
	t.Setenv("VISITWATCH_ADDRESS", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("interval: 3s\n"), 0o644))
	t.Setenv("VISITWATCH_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.Interval)
}

func TestAddressEnvOverride(t *testing.T) {
	t.Setenv("VISITWATCH_CONFIG", "")
	t.Setenv("VISITWATCH_ADDRESS", "127.0.0.1:18080")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:18080", cfg.ListenAddress)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"zero interval", "interval: 0s\n"},
		{"bad duration", "interval: soon\n"},
		{"negative row cap", "row_cap: -1\n"},
		{
			"unknown family",
			"sources:\n  - name: Netscape\n    family: mosaic\n    path: /tmp/history\n",
		},
		{
			"source missing path",
			"sources:\n  - name: Chrome\n    family: chromium\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestDefaultSourcesPerOS(t *testing.T) {
	darwin := DefaultSources("darwin")
	linux := DefaultSources("linux")

	names := func(sources []SourceConfig) []string {
		var out []string
		for _, s := range sources {
			out = append(out, s.Name)
		}
		return out
	}

	assert.Contains(t, names(darwin), "Safari")
	assert.NotContains(t, names(linux), "Safari")

	for _, s := range append(darwin, linux...) {
		assert.True(t, s.Family.Valid(), "family of %s", s.Name)
		assert.NotEmpty(t, s.Path)
	}
}
