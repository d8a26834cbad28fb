// Package config loads runtime configuration for the minllm CLI and its
// supporting services from YAML files. Configuration is discovered with
// first-match semantics: an explicit path, then ./minllm.yaml, then
// ~/.minllm/config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	projectConfigName = "minllm.yaml"
	homeConfigName    = "config.yaml"
)

// Config is the top-level configuration file shape.
type Config struct {
	// Log configures structured logging output.
	Log LogConfig `yaml:"log,omitempty"`

	// Events configures event persistence.
	Events EventsConfig `yaml:"events,omitempty"`

	// OTLP configures trace export.
	OTLP OTLPConfig `yaml:"otlp,omitempty"`

	// Schedules lists cron-driven flow runs.
	Schedules []ScheduleConfig `yaml:"schedules,omitempty"`
}

// Duration is a time.Duration that unmarshals from YAML strings like
// "30s" or "24h".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// LogConfig configures the slog output.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Default: info.
	Level string `yaml:"level,omitempty"`

	// Format is "text" or "json". Default: text.
	Format string `yaml:"format,omitempty"`
}

// EventsConfig configures where run events are persisted.
type EventsConfig struct {
	// Driver is "memory" or "sqlite". Default: memory.
	Driver string `yaml:"driver,omitempty"`

	// Path is the SQLite database file (sqlite driver only).
	Path string `yaml:"path,omitempty"`

	// RetentionAge prunes events older than this duration (0 = keep all).
	RetentionAge Duration `yaml:"retention_age,omitempty"`

	// RetentionCount keeps at most this many events per run (0 = keep all).
	RetentionCount int `yaml:"retention_count,omitempty"`
}

// OTLPConfig configures OpenTelemetry trace export.
type OTLPConfig struct {
	// Endpoint is the OTLP/HTTP collector endpoint (host:port). Empty
	// disables export.
	Endpoint string `yaml:"endpoint,omitempty"`

	// Insecure disables TLS for the exporter connection.
	Insecure bool `yaml:"insecure,omitempty"`
}

// ScheduleConfig declares one cron-driven flow run.
type ScheduleConfig struct {
	// Name identifies the registered flow to run.
	Name string `yaml:"name"`

	// Cron is the schedule spec, standard five-field cron syntax.
	Cron string `yaml:"cron"`

	// Params are merged into the flow's params for each scheduled run.
	Params map[string]any `yaml:"params,omitempty"`
}

// Default returns the configuration used when no file is found.
func Default() Config {
	return Config{
		Log:    LogConfig{Level: "info", Format: "text"},
		Events: EventsConfig{Driver: "memory"},
	}
}

// Discover resolves the config file location with first-match semantics.
// Returns the path and true when a file was found; an explicit path that
// does not exist is an error.
func Discover(explicitPath string) (string, bool, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false, fmt.Errorf("resolve working directory: %w", err)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("resolve user home: %w", err)
	}
	return DiscoverFrom(explicitPath, cwd, homeDir)
}

// DiscoverFrom is a testable variant of Discover.
func DiscoverFrom(explicitPath, cwd, homeDir string) (string, bool, error) {
	candidates := make([]string, 0, 2)
	if clean := strings.TrimSpace(explicitPath); clean != "" {
		candidates = append(candidates, filepath.Clean(clean))
	} else {
		candidates = append(candidates, filepath.Join(cwd, projectConfigName))
		candidates = append(candidates, filepath.Join(homeDir, ".minllm", homeConfigName))
	}

	for i, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, true, nil
		}
		if errors.Is(err, os.ErrNotExist) {
			if i == 0 && strings.TrimSpace(explicitPath) != "" {
				return "", false, fmt.Errorf("config file %q not found", candidate)
			}
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("checking config path %q: %w", candidate, err)
		}
	}
	return "", false, nil
}

// Load reads and validates a config file.
func Load(path string) (Config, error) {
	// #nosec G304 -- path resolved from explicit local config discovery.
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault discovers and loads configuration, falling back to
// defaults when no file exists.
func LoadOrDefault(explicitPath string) (Config, error) {
	path, found, err := Discover(explicitPath)
	if err != nil {
		return Config{}, err
	}
	if !found {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks the configuration for unusable values.
func (c Config) Validate() error {
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	switch c.Events.Driver {
	case "", "memory", "sqlite":
	default:
		return fmt.Errorf("unknown events driver %q", c.Events.Driver)
	}
	if c.Events.Driver == "sqlite" && strings.TrimSpace(c.Events.Path) == "" {
		return errors.New("events driver sqlite requires a path")
	}
	for i, s := range c.Schedules {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("schedule %d: missing name", i)
		}
		if strings.TrimSpace(s.Cron) == "" {
			return fmt.Errorf("schedule %q: missing cron spec", s.Name)
		}
	}
	return nil
}
