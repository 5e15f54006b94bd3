package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Credential backends.
const (
	BackendFile   = "file"
	BackendEtcd   = "etcd"
	BackendMemory = "memory"
)

// Config holds the shopctl configuration.
type Config struct {
	ServerURL    string        `yaml:"server_url" json:"server_url"`
	OutputFormat string        `yaml:"output_format" json:"output_format"`
	Profile      string        `yaml:"profile" json:"profile"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
	PageSize     int           `yaml:"page_size" json:"page_size"`

	Credentials Credentials `yaml:"credentials" json:"credentials"`
	Journal     Journal     `yaml:"journal" json:"journal"`
	Dashboard   Dashboard   `yaml:"dashboard" json:"dashboard"`
	Log         Log         `yaml:"log" json:"log"`

	// Warnings collects non-fatal problems found while loading.
	Warnings []string `yaml:"-" json:"-"`
}

// Credentials selects where login tokens are stored.
type Credentials struct {
	Backend       string   `yaml:"backend" json:"backend"`
	Path          string   `yaml:"path" json:"path"`
	EtcdEndpoints []string `yaml:"etcd_endpoints" json:"etcd_endpoints"`
}

// Journal selects the admin action journal.
type Journal struct {
	Driver string `yaml:"driver" json:"driver"`
	DSN    string `yaml:"dsn" json:"dsn"`
}

// Dashboard configures the interactive dashboard.
type Dashboard struct {
	Refresh     time.Duration `yaml:"refresh" json:"refresh"`
	NoticeTTL   time.Duration `yaml:"notice_ttl" json:"notice_ttl"`
	MetricsAddr string        `yaml:"metrics_addr" json:"metrics_addr"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Dir returns the shopctl state directory: ~/.shopctl
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".shopctl")
	}
	return filepath.Join(home, ".shopctl")
}

// DefaultPath returns the default config file path: ~/.shopctl/config.yaml
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ServerURL:    "http://localhost:8000",
		OutputFormat: "table",
		Profile:      "default",
		Timeout:      30 * time.Second,
		PageSize:     20,
		Credentials:  Credentials{Backend: BackendFile},
		Journal:      Journal{Driver: "sqlite3", DSN: filepath.Join(Dir(), "journal.db")},
		Dashboard:    Dashboard{Refresh: 15 * time.Second, NoticeTTL: 3 * time.Second},
		Log:          Log{Level: "warn", Format: "text"},
	}
}

// Load reads the configuration from the given YAML file path and applies
// SHOPCTL_* environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	return Read(path, os.LookupEnv)
}

// Read is Load with an explicit environment lookup.
func Read(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	// Check permissions before reading: the file may point at credential
	// stores and journal databases.
	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, err
	default:
		if perm := info.Mode().Perm(); perm&0o077 != 0 {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf(
				"config file %s has permissions %04o, expected 0600", path, perm))
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"SHOPCTL_SERVER":              &c.ServerURL,
		"SHOPCTL_OUTPUT":              &c.OutputFormat,
		"SHOPCTL_PROFILE":             &c.Profile,
		"SHOPCTL_CREDENTIALS_BACKEND": &c.Credentials.Backend,
		"SHOPCTL_CREDENTIALS_PATH":    &c.Credentials.Path,
		"SHOPCTL_JOURNAL_DRIVER":      &c.Journal.Driver,
		"SHOPCTL_JOURNAL_DSN":         &c.Journal.DSN,
		"SHOPCTL_METRICS_ADDR":        &c.Dashboard.MetricsAddr,
		"SHOPCTL_LOG_LEVEL":           &c.Log.Level,
		"SHOPCTL_LOG_FORMAT":          &c.Log.Format,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	durations := map[string]*time.Duration{
		"SHOPCTL_TIMEOUT":           &c.Timeout,
		"SHOPCTL_DASHBOARD_REFRESH": &c.Dashboard.Refresh,
	}
	for key, dst := range durations {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}
	if v, ok := lookup("SHOPCTL_PAGE_SIZE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SHOPCTL_PAGE_SIZE: %w", err)
		}
		c.PageSize = n
	}
	if v, ok := lookup("SHOPCTL_ETCD_ENDPOINTS"); ok && v != "" {
		c.Credentials.EtcdEndpoints = strings.Split(v, ",")
	}
	return nil
}

// Validate checks the values that have a fixed set of choices.
func (c *Config) Validate() error {
	switch strings.ToLower(c.OutputFormat) {
	case "table", "wide", "json", "yaml":
	default:
		return fmt.Errorf("invalid output format %q (want table, wide, json or yaml)", c.OutputFormat)
	}
	switch c.Credentials.Backend {
	case BackendFile, BackendMemory:
	case BackendEtcd:
		if len(c.Credentials.EtcdEndpoints) == 0 {
			return fmt.Errorf("credentials backend etcd needs etcd_endpoints")
		}
	default:
		return fmt.Errorf("invalid credentials backend %q (want file, etcd or memory)", c.Credentials.Backend)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if c.PageSize < 1 || c.PageSize > 100 {
		return fmt.Errorf("page_size must be between 1 and 100, got %d", c.PageSize)
	}
	return nil
}

// Save writes the configuration to path with owner-only permissions.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
