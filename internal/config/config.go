package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vincentbai/visitwatch/internal/models"
)

const (
	DefaultInterval      = 10 * time.Second
	DefaultSourceTimeout = 30 * time.Second
	DefaultRowCap        = 100
)

// SourceConfig names one record store to poll. Path may start with "~/"
// and may contain glob segments (Firefox keeps per-profile stores under
// sibling directories).
type SourceConfig struct {
	Name   string        `yaml:"name"`
	Family models.Family `yaml:"family"`
	Path   string        `yaml:"path"`
}

type Config struct {
	Interval      time.Duration
	SourceTimeout time.Duration
	RowCap        int
	CSVPath       string
	LogPath       string
	PIDPath       string
	ListenAddress string
	Sources       []SourceConfig
}

// fileConfig is the on-disk YAML shape. Durations are strings so configs
// can say "10s" instead of nanosecond integers; zero values mean "keep the
// default".
type fileConfig struct {
	Interval      string         `yaml:"interval"`
	SourceTimeout string         `yaml:"source_timeout"`
	RowCap        int            `yaml:"row_cap"`
	CSVPath       string         `yaml:"csv_path"`
	LogPath       string         `yaml:"log_path"`
	PIDPath       string         `yaml:"pid_path"`
	ListenAddress string         `yaml:"listen_address"`
	Sources       []SourceConfig `yaml:"sources"`
}

func Default() Config {
	tmp := os.TempDir()
	return Config{
		Interval:      DefaultInterval,
		SourceTimeout: DefaultSourceTimeout,
		RowCap:        DefaultRowCap,
		CSVPath:       filepath.Join(tmp, "visitwatch_visits.csv"),
		LogPath:       filepath.Join(tmp, "visitwatch.log"),
		PIDPath:       filepath.Join(tmp, "visitwatch.pid"),
		ListenAddress: "127.0.0.1:9321",
		Sources:       DefaultSources(runtime.GOOS),
	}
}

// DefaultSources lists the store locations per platform.
func DefaultSources(goos string) []SourceConfig {
	switch goos {
	case "darwin":
		return []SourceConfig{
			{Name: "Chrome", Family: models.FamilyChromium, Path: "~/Library/Application Support/Google/Chrome/Default/History"},
			{Name: "Edge", Family: models.FamilyChromium, Path: "~/Library/Application Support/Microsoft Edge/Default/History"},
			{Name: "Safari", Family: models.FamilyWebKit, Path: "~/Library/Safari/History.db"},
			{Name: "Firefox", Family: models.FamilyGecko, Path: "~/Library/Application Support/Firefox/Profiles/*/places.sqlite"},
		}
	default: // linux and others
		return []SourceConfig{
			{Name: "Chrome", Family: models.FamilyChromium, Path: "~/.config/google-chrome/Default/History"},
			{Name: "Chromium", Family: models.FamilyChromium, Path: "~/.config/chromium/Default/History"},
			{Name: "Edge", Family: models.FamilyChromium, Path: "~/.config/microsoft-edge/Default/History"},
			{Name: "Firefox", Family: models.FamilyGecko, Path: "~/.mozilla/firefox/*/places.sqlite"},
		}
	}
}

// Load reads the YAML config at path, falling back to the VISITWATCH_CONFIG
// environment variable and then to built-in defaults when no file is named.
// The listen address can always be overridden via VISITWATCH_ADDRESS.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("VISITWATCH_CONFIG")
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
		if err := fc.apply(&cfg); err != nil {
			return Config{}, err
		}
	}
	if addr := os.Getenv("VISITWATCH_ADDRESS"); addr != "" {
		cfg.ListenAddress = addr
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (fc fileConfig) apply(cfg *Config) error {
	if fc.Interval != "" {
		d, err := time.ParseDuration(fc.Interval)
		if err != nil {
			return fmt.Errorf("parse interval: %w", err)
		}
		cfg.Interval = d
	}
	if fc.SourceTimeout != "" {
		d, err := time.ParseDuration(fc.SourceTimeout)
		if err != nil {
			return fmt.Errorf("parse source_timeout: %w", err)
		}
		cfg.SourceTimeout = d
	}
	if fc.RowCap != 0 {
		cfg.RowCap = fc.RowCap
	}
	if fc.CSVPath != "" {
		cfg.CSVPath = fc.CSVPath
	}
	if fc.LogPath != "" {
		cfg.LogPath = fc.LogPath
	}
	if fc.PIDPath != "" {
		cfg.PIDPath = fc.PIDPath
	}
	if fc.ListenAddress != "" {
		cfg.ListenAddress = fc.ListenAddress
	}
	if fc.Sources != nil {
		cfg.Sources = fc.Sources
	}
	return nil
}

func (c Config) validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", c.Interval)
	}
	if c.SourceTimeout <= 0 {
		return fmt.Errorf("source_timeout must be positive, got %s", c.SourceTimeout)
	}
	if c.RowCap <= 0 {
		return fmt.Errorf("row_cap must be positive, got %d", c.RowCap)
	}
	for _, s := range c.Sources {
		if s.Name == "" || s.Path == "" {
			return fmt.Errorf("source entries need both name and path: %+v", s)
		}
		if !s.Family.Valid() {
			return fmt.Errorf("source %s: unknown family %q", s.Name, s.Family)
		}
	}
	return nil
}
