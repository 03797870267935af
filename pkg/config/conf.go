package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"

	"github.com/mchmarny/fraudboard/pkg/fraud"
	"gopkg.in/yaml.v3"
)

const (
	// FileName is the config file looked up when no path is given.
	FileName = "fraudboard.yaml"

	dirMode  = 0700
	fileMode = 0600

	defaultAddress = "127.0.0.1"
	defaultPort    = 8080
)

var ErrExists = errors.New("config file already exists")

// Config represents the dashboard config file.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Artifacts Artifacts       `yaml:"artifacts"`
	Log       LogConfig       `yaml:"log"`

	// dir is the directory relative artifact locations resolve against.
	dir string
}

type ServerConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// DashboardConfig holds the initial state of the interactive panel.
type DashboardConfig struct {
	Model     string  `yaml:"model"`
	Threshold float64 `yaml:"threshold"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Artifacts lists the upstream files the dashboard loads at startup. Each
// location is a path, relative to the config file, or an http(s) URL.
type Artifacts struct {
	CacheDir string     `yaml:"cache_dir,omitempty"`
	Models   ModelPaths `yaml:"models"`
	Eval     EvalPaths  `yaml:"eval"`
	Tables   TablePaths `yaml:"tables"`
}

type ModelPaths struct {
	WithoutISO string `yaml:"without_iso"`
	WithISO    string `yaml:"with_iso"`
}

type EvalPaths struct {
	WithoutISO string `yaml:"without_iso"`
	WithISO    string `yaml:"with_iso"`
	Labels     string `yaml:"labels"`
}

type TablePaths struct {
	Metrics string `yaml:"metrics"`
	Summary string `yaml:"summary"`
}

// Default returns the config matching the layout of the upstream notebook
// export (a saved_models directory next to the config file).
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address: defaultAddress,
			Port:    defaultPort,
		},
		Dashboard: DashboardConfig{
			Model:     string(fraud.DefaultModel),
			Threshold: fraud.DefaultThreshold,
		},
		Artifacts: Artifacts{
			Models: ModelPaths{
				WithoutISO: "saved_models/xgb_model_without_iso.json",
				WithISO:    "saved_models/xgb_model_with_iso_thresh_0033.json",
			},
			Eval: EvalPaths{
				WithoutISO: "saved_models/X_test_scaled.csv",
				WithISO:    "saved_models/X_test_with_iso.csv",
				Labels:     "saved_models/y_test.csv",
			},
			Tables: TablePaths{
				Metrics: "saved_models/metrics_summary.csv",
				Summary: "saved_models/df_dashboard_summary.csv",
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "cli",
		},
		dir: ".",
	}
}

// Load reads the config file at path on top of the defaults. A missing file
// yields the defaults resolved against the file's directory.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path required")
	}

	c := Default()
	c.dir = filepath.Dir(path)

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("config file not found, using defaults", "path", path)
			return c, c.Validate()
		}
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("error unmarshalling config file %s: %w", path, err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return c, nil
}

// Save writes c to path, creating the parent directory. It refuses to
// overwrite an existing file unless force is set.
func Save(path string, c *Config, force bool) error {
	if path == "" {
		return errors.New("config path required")
	}
	if c == nil {
		return errors.New("config required")
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%w: %s", ErrExists, path)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, dirMode); err != nil {
			return fmt.Errorf("failed to create dir %s: %w", dir, err)
		}
	}

	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// Validate checks the config values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if _, err := fraud.ParseModelChoice(c.Dashboard.Model); err != nil {
		return fmt.Errorf("dashboard.model: %w", err)
	}
	if err := fraud.ValidateThreshold(c.Dashboard.Threshold); err != nil {
		return fmt.Errorf("dashboard.threshold: %w", err)
	}

	required := map[string]string{
		"artifacts.models.without_iso": c.Artifacts.Models.WithoutISO,
		"artifacts.models.with_iso":    c.Artifacts.Models.WithISO,
		"artifacts.eval.without_iso":   c.Artifacts.Eval.WithoutISO,
		"artifacts.eval.with_iso":      c.Artifacts.Eval.WithISO,
		"artifacts.eval.labels":        c.Artifacts.Eval.Labels,
		"artifacts.tables.metrics":     c.Artifacts.Tables.Metrics,
		"artifacts.tables.summary":     c.Artifacts.Tables.Summary,
	}
	for _, key := range sortedKeys(required) {
		if required[key] == "" {
			return fmt.Errorf("%s is required", key)
		}
	}
	return nil
}

// Model returns the configured initial model choice.
func (c *Config) Model() fraud.ModelChoice {
	m, err := fraud.ParseModelChoice(c.Dashboard.Model)
	if err != nil {
		return fraud.DefaultModel
	}
	return m
}

// Resolve maps an artifact location to a URL or an absolute-or-relative path
// anchored at the config file's directory.
func (c *Config) Resolve(location string) string {
	if IsRemote(location) || filepath.IsAbs(location) {
		return location
	}
	return filepath.Join(c.dir, location)
}

// Dir is the directory the config was loaded from.
func (c *Config) Dir() string {
	return c.dir
}

// IsRemote reports whether location is an http(s) URL.
func IsRemote(location string) bool {
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
