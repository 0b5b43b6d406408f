package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	BackendURL     string          `yaml:"backend_url"`
	PollInterval   time.Duration   `yaml:"-"`
	RawInterval    string          `yaml:"poll_interval"`
	RequestTimeout time.Duration   `yaml:"-"`
	RawTimeout     string          `yaml:"request_timeout"`
	LogFile        string          `yaml:"log_file"`
	Log            LogConfig       `yaml:"log"`
	TUI            TUIConfig       `yaml:"tui"`
	Simulator      SimulatorConfig `yaml:"simulator"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type TUIConfig struct {
	RefreshInterval time.Duration `yaml:"-"`
	RawInterval     string        `yaml:"refresh_interval"`
}

// SimulatorConfig drives the in-process fake backend.
type SimulatorConfig struct {
	Listen            string        `yaml:"listen"`
	PendingFor        time.Duration `yaml:"-"`
	RawPendingFor     string        `yaml:"pending_for"`
	IterationEvery    time.Duration `yaml:"-"`
	RawIterationEvery string        `yaml:"iteration_every"`
	MaxIterations     int           `yaml:"-"`
	RawMaxIterations  *int          `yaml:"max_iterations"`
	InitialIssues     int           `yaml:"-"`
	RawInitialIssues  *int          `yaml:"initial_issues"`
	FailRepos         []string      `yaml:"fail_repos"`
}

// Load reads the YAML file at path. A missing file is not an error: every
// key has a default.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) setDefaults() error {
	if c.BackendURL == "" {
		c.BackendURL = "http://localhost:8000"
	}
	if c.LogFile == "" {
		c.LogFile = filepath.Join(os.TempDir(), "fixwatch", "logs", "fixwatch.log")
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	var err error
	if c.PollInterval, err = parseDuration("poll_interval", &c.RawInterval, "2s"); err != nil {
		return err
	}
	if c.RequestTimeout, err = parseDuration("request_timeout", &c.RawTimeout, "10s"); err != nil {
		return err
	}
	if c.TUI.RefreshInterval, err = parseDuration("tui.refresh_interval", &c.TUI.RawInterval, "1s"); err != nil {
		return err
	}

	s := &c.Simulator
	if s.Listen == "" {
		s.Listen = "127.0.0.1:8000"
	}
	if s.PendingFor, err = parseDuration("simulator.pending_for", &s.RawPendingFor, "2s"); err != nil {
		return err
	}
	if s.IterationEvery, err = parseDuration("simulator.iteration_every", &s.RawIterationEvery, "5s"); err != nil {
		return err
	}
	s.MaxIterations = intOr(s.RawMaxIterations, 5)
	// An explicit 0 is kept: the run has nothing to fix and passes at once.
	s.InitialIssues = intOr(s.RawInitialIssues, 4)

	return nil
}

func intOr(raw *int, def int) int {
	if raw == nil {
		return def
	}
	return *raw
}

func parseDuration(key string, raw *string, def string) (time.Duration, error) {
	if *raw == "" {
		*raw = def
	}
	d, err := time.ParseDuration(*raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", key, *raw, err)
	}
	return d, nil
}

func (c *Config) validate() error {
	if err := ValidateBackendURL(c.BackendURL); err != nil {
		return err
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.RawInterval)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RawTimeout)
	}
	if c.TUI.RefreshInterval <= 0 {
		return fmt.Errorf("tui.refresh_interval must be positive, got %s", c.TUI.RawInterval)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level %q (debug|info|warn|error)", c.Log.Level)
	}

	s := c.Simulator
	if s.PendingFor < 0 {
		return fmt.Errorf("simulator.pending_for must not be negative, got %s", s.RawPendingFor)
	}
	if s.IterationEvery <= 0 {
		return fmt.Errorf("simulator.iteration_every must be positive, got %s", s.RawIterationEvery)
	}
	if s.MaxIterations <= 0 {
		return fmt.Errorf("simulator.max_iterations must be positive, got %d", s.MaxIterations)
	}
	if s.InitialIssues < 0 {
		return fmt.Errorf("simulator.initial_issues must not be negative, got %d", s.InitialIssues)
	}
	return nil
}

// ValidateBackendURL accepts absolute http(s) URLs only.
func ValidateBackendURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse backend_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend_url must be an absolute http(s) URL, got %q", raw)
	}
	return nil
}
