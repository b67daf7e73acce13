// Package config loads milestone.yaml, the CLI settings shared by every
// command: the default dialect, the target database, the run-history store
// and metrics export.
package config

import (
	"fmt"

	"github.com/leapstack-labs/milestone/internal/cli/output"
	"github.com/leapstack-labs/milestone/pkg/adapter"
)

// Default configuration values.
const (
	DefaultStateFile = ".milestone/state.db"
	DefaultEnv       = "dev"
	DefaultOutput    = "auto" // TTY=text, non-TTY=markdown
	DefaultLogLevel  = "warn"
	DefaultJobsDir   = "jobs"
)

// Config holds all CLI configuration options.
type Config struct {
	// Dialect is used for jobs that name none and when no target is set.
	Dialect      string               `koanf:"dialect"`
	JobsDir      string               `koanf:"jobs_dir"`
	StatePath    string               `koanf:"state_path"`
	Environment  string               `koanf:"environment"`
	Verbose      bool                 `koanf:"verbose"`
	LogLevel     string               `koanf:"log_level"`
	OutputFormat string               `koanf:"output"`
	Target       *adapter.Config      `koanf:"target"`
	Metrics      MetricsConfig        `koanf:"metrics"`
	Environments map[string]EnvConfig `koanf:"environments"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// EnvConfig holds environment-specific overrides.
type EnvConfig struct {
	Dialect string          `koanf:"dialect"`
	Target  *adapter.Config `koanf:"target"`
}

// MetricsConfig controls Prometheus export of run metrics.
type MetricsConfig struct {
	// Textfile is written after each run for the node exporter textfile collector.
	Textfile string `koanf:"textfile"`
	// PushURL is a Pushgateway base URL.
	PushURL string `koanf:"push_url"`
	Job     string `koanf:"job"`
}

// Enabled reports whether any metrics sink is configured.
func (m MetricsConfig) Enabled() bool {
	return m.Textfile != "" || m.PushURL != ""
}

// Validate checks settings that can be checked without side effects.
func (c *Config) Validate() error {
	if _, err := output.ParseMode(c.OutputFormat); err != nil {
		return err
	}
	if c.Target != nil && c.Target.Type == "" {
		return fmt.Errorf("target.type is required when a target is configured")
	}
	return nil
}
