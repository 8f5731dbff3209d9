// Package config handles configuration loading from YAML files and environment variables.
// Configuration precedence: CLI flags > environment variables > config file >
// embedded config > defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/curator-app/agent/internal/models"
)

// Duration is a wrapper around time.Duration that supports YAML unmarshaling
// from human-readable strings like "15s", "30s", "1m".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		parsed, err := time.ParseDuration(value.Value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value.Value, err)
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("unsupported duration format: %v", value.Kind)
	}
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds all agent configuration.
type Config struct {
	Installation  InstallationConfig          `yaml:"installation"`
	Monitoring    MonitoringConfig            `yaml:"monitoring"`
	Notifications NotificationConfig          `yaml:"notifications"`
	Applications  []models.WatchedApplication `yaml:"applications"`
	Logging       LoggingConfig               `yaml:"logging"`
}

// InstallationConfig identifies the physical installation this machine runs.
type InstallationConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Location    string `yaml:"location"`
	Contact     string `yaml:"contact"`
}

// MonitoringConfig holds metric collection settings.
type MonitoringConfig struct {
	Enabled    bool                   `yaml:"enabled"`
	Interval   Duration               `yaml:"interval"`
	Thresholds models.AlertThresholds `yaml:"thresholds"`
}

// ChannelConfig is one notification delivery target.
type ChannelConfig struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

// NotificationConfig holds alert delivery settings.
type NotificationConfig struct {
	Enabled     bool            `yaml:"enabled"`
	Channels    []ChannelConfig `yaml:"channels"`
	AlertLevels []string        `yaml:"alert_levels"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Monitoring: MonitoringConfig{
			Enabled:    true,
			Interval:   Duration{30 * time.Second},
			Thresholds: models.DefaultThresholds(),
		},
		Notifications: NotificationConfig{
			Enabled:     true,
			AlertLevels: []string{"warning", "critical"},
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// CLIOverrides holds values from command-line flags.
// Zero values are treated as "not set" and skipped.
type CLIOverrides struct {
	Interval time.Duration
	LogLevel string
}

// Locate searches standard config file paths and returns the first one found.
// CURATOR_CONFIG takes precedence over the search paths. Returns empty
// string if no config file exists.
func Locate() string {
	if p := os.Getenv("CURATOR_CONFIG"); p != "" {
		return p
	}
	candidates := configSearchPaths()
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadLayered loads configuration with the full precedence chain:
// CLI flags > env vars > external YAML file > embedded bytes > defaults.
//
// An optional configPath argument controls external-file discovery:
//   - omitted        → auto-discover via Locate()
//   - explicit value → use that path ("" means no external file)
func LoadLayered(cli CLIOverrides, embedded []byte, configPath ...string) (*Config, error) {
	cfg := DefaultConfig()

	// Layer 1: embedded config (lowest priority data layer)
	if len(embedded) > 0 {
		if err := yaml.Unmarshal(embedded, cfg); err != nil {
			return nil, fmt.Errorf("parsing embedded config: %w", err)
		}
	}

	// Layer 2: external YAML file
	var filePath string
	if len(configPath) > 0 {
		filePath = configPath[0] // caller-supplied (may be "")
	} else {
		filePath = Locate() // auto-discover
	}
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", filePath, err)
			}
		}
	}

	// Layer 3: environment variables
	applyEnvOverrides(cfg)

	// Layer 4: CLI flags (highest priority)
	if cli.Interval > 0 {
		cfg.Monitoring.Interval = Duration{cli.Interval}
	}
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}

	return cfg, nil
}

// WriteConfig serializes the config to a YAML file at the given path.
// Creates parent directories if needed.
func WriteConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0640)
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if level := os.Getenv("CURATOR_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if interval := os.Getenv("CURATOR_INTERVAL"); interval != "" {
		if parsed, err := time.ParseDuration(interval); err == nil {
			cfg.Monitoring.Interval = Duration{parsed}
		}
	}
}

// Validate checks that the configuration is usable. Threshold values must
// be percentages; webhook channels need a URL.
func (c *Config) Validate() error {
	if c.Monitoring.Interval.Duration <= 0 {
		return fmt.Errorf("monitoring interval must be positive (got %v)", c.Monitoring.Interval.Duration)
	}
	t := c.Monitoring.Thresholds
	for name, v := range map[string]float64{
		"cpu_usage":    t.CPUUsage,
		"memory_usage": t.MemoryUsage,
		"disk_usage":   t.DiskUsage,
	} {
		if v <= 0 || v > 100 {
			return fmt.Errorf("threshold %s must be in (0,100] (got %v)", name, v)
		}
	}
	for _, ch := range c.Notifications.Channels {
		if ch.Enabled && ch.Type == "webhook" && ch.URL == "" {
			return fmt.Errorf("webhook channel %q has no URL", ch.Name)
		}
	}
	seen := make(map[string]bool)
	for _, app := range c.Applications {
		if app.Name == "" {
			return fmt.Errorf("watched application with empty name")
		}
		if seen[app.Name] {
			return fmt.Errorf("duplicate watched application %q", app.Name)
		}
		seen[app.Name] = true
	}
	return nil
}
