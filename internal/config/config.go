// Package config loads icesnap's on-disk configuration, grounded on
// the teacher's server/config.Config / Load / LoadFromFile: a
// YAML-backed struct with a DefaultConfig fallback and a small search
// path when no file is given explicitly.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is icesnap's top-level configuration: where manifests and
// metadata live, the engine name/version, the optional metrics HTTP
// surface, and retry and logging settings. Retry and Logging are
// loaded and saved, but nothing in this module reads them.
type Config struct {
	BaseDir string       `yaml:"base_dir"`
	Engine  EngineConfig `yaml:"engine"`
	Metrics MetricsConfig `yaml:"metrics"`
	Retry   RetryConfig  `yaml:"retry"`
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig names the writer recorded in every CommitReport's
// environment map (spec.md §6 "engine-name"/"engine-version").
type EngineConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// MetricsConfig controls the optional /healthz and /metrics HTTP
// exposition served alongside the CLI (internal/telemetry.ServeHTTP).
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// RetryConfig holds process-level retry settings whose defaults match
// tableprops.DefaultRetryPolicy. The commit driver does not read them:
// its retry policy comes from table properties only.
type RetryConfig struct {
	MaxRetries   int           `yaml:"max_retries"`
	MinWait      time.Duration `yaml:"min_wait"`
	MaxWait      time.Duration `yaml:"max_wait"`
	TotalTimeout time.Duration `yaml:"total_timeout"`
}

// LoggingConfig holds a log level and format. internal/rlog does not
// read it: rlog.New builds its logger without any configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig's retry values mirror tableprops.DefaultRetryPolicy,
// so a process with no config file on disk behaves exactly like one
// with an explicit file matching these values.
func DefaultConfig() *Config {
	return &Config{
		BaseDir: "./icesnap-data",
		Engine: EngineConfig{
			Name:    "icesnap",
			Version: "0.1.0",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9090",
		},
		Retry: RetryConfig{
			MaxRetries:   4,
			MinWait:      100 * time.Millisecond,
			MaxWait:      60 * time.Second,
			TotalTimeout: 30 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load resolves a config file the same way the CLI does: an explicit
// path if given, else a short well-known search path, else defaults.
func Load(explicitPath string) (*Config, error) {
	path := explicitPath
	if path == "" {
		path = findConfigFile()
	}
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFromFile(path)
}

// LoadFromFile reads and unmarshals a YAML config file, starting from
// DefaultConfig so an omitted section keeps its default value.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func findConfigFile() string {
	if _, err := os.Stat("icesnap.yml"); err == nil {
		return "icesnap.yml"
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(homeDir, ".icesnap", "icesnap.yml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if _, err := os.Stat("/etc/icesnap/icesnap.yml"); err == nil {
		return "/etc/icesnap/icesnap.yml"
	}
	return ""
}
