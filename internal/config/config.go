// Package config loads the application configuration from YAML and
// exposes a passive hierarchical Settings lookup over YAML or JSON
// documents. Configuration tunes behavior; nothing here is consulted for
// arithmetic or task-state correctness.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/quantfabric/fincore/pkg/financial"
	"github.com/quantfabric/fincore/pkg/logger"
)

// EnvConfigPath overrides the default configuration file location.
const EnvConfigPath = "FINCORE_CONFIG"

// Config is the application configuration. Settings optionally points at
// a second document of free-form defaults served through the Settings
// view.
type Config struct {
	Logging   logger.LoggingConfig `yaml:"logging"`
	Storage   StorageConfig        `yaml:"storage"`
	Pipeline  PipelineConfig       `yaml:"pipeline"`
	Scheduler SchedulerConfig      `yaml:"scheduler"`
	Financial FinancialConfig      `yaml:"financial"`
	Metrics   MetricsConfig        `yaml:"metrics"`
	Settings  string               `yaml:"settings"`
}

// StorageConfig selects the store backend.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// PipelineConfig sizes the execution worker pool.
type PipelineConfig struct {
	Workers    int `yaml:"workers"`
	QueueDepth int `yaml:"queue_depth"`
}

// SchedulerConfig lists the recurring pipeline submissions.
type SchedulerConfig struct {
	Jobs []JobConfig `yaml:"jobs"`
}

// JobConfig is one recurring submission: a cron spec and the pipeline it
// feeds.
type JobConfig struct {
	Name     string `yaml:"name"`
	Spec     string `yaml:"spec"`
	Pipeline string `yaml:"pipeline"`
	Payload  string `yaml:"payload"`
}

// FinancialConfig carries presentation defaults for tools; the engine
// itself always receives precision explicitly.
type FinancialConfig struct {
	FracDigits int    `yaml:"frac_digits"`
	RoundMode  string `yaml:"round_mode"`
}

// MetricsConfig controls the Prometheus listener. An empty address
// disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads the configuration from $FINCORE_CONFIG, falling back to
// config/fincore.yaml.
func Load() (*Config, error) {
	path := os.Getenv(EnvConfigPath)
	if path == "" {
		path = filepath.Join("config", "fincore.yaml")
	}
	return LoadFromPath(path)
}

// LoadFromPath reads and validates the configuration at path.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads the configuration, returning defaults when the file
// is missing or unreadable.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns the configuration used when no file is present: memory
// storage, a small worker pool and two-digit half-away rounding for tools.
func Default() *Config {
	return &Config{
		Logging: logger.LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Storage: StorageConfig{
			Driver: "memory",
		},
		Pipeline: PipelineConfig{
			Workers:    4,
			QueueDepth: 64,
		},
		Financial: FinancialConfig{
			FracDigits: 2,
			RoundMode:  "round",
		},
	}
}

// Validate checks every field that later wiring relies on, so a bad file
// fails at startup instead of mid-run.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return fmt.Errorf("storage: postgres driver requires a dsn")
		}
	default:
		return fmt.Errorf("storage: unknown driver %q", c.Storage.Driver)
	}

	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline: workers must be at least 1, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.QueueDepth < 0 {
		return fmt.Errorf("pipeline: queue_depth must not be negative, got %d", c.Pipeline.QueueDepth)
	}

	for i, job := range c.Scheduler.Jobs {
		if strings.TrimSpace(job.Name) == "" {
			return fmt.Errorf("scheduler: job %d: name is required", i)
		}
		if strings.TrimSpace(job.Spec) == "" {
			return fmt.Errorf("scheduler: job %q: spec is required", job.Name)
		}
		if strings.TrimSpace(job.Pipeline) == "" {
			return fmt.Errorf("scheduler: job %q: pipeline is required", job.Name)
		}
	}

	if c.Financial.FracDigits < 0 {
		return fmt.Errorf("financial: frac_digits must not be negative, got %d", c.Financial.FracDigits)
	}
	if _, err := financial.ParseRoundMode(c.Financial.RoundMode); err != nil {
		return fmt.Errorf("financial: %w", err)
	}
	return nil
}
