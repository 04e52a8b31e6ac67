// Package config loads nutricount's YAML configuration from the config
// directory and applies environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of the config file inside the config directory.
const ConfigFileName = "config.yaml"

// Store backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// Defaults.
const (
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "console"
	DefaultLocale         = "en"
	DefaultPrecision      = 1
	DefaultMaxAttempts    = 3
	DefaultLockoutSeconds = 30
	maxPrecision          = 6
)

// Validation errors.
var (
	ErrUnknownKey       = errors.New("unknown config key")
	ErrInvalidBackend   = errors.New("store backend must be 'file', 'sqlite' or 'memory'")
	ErrInvalidFormat    = errors.New("output format must be 'table' or 'json'")
	ErrInvalidPrecision = errors.New("precision must be between 0 and 6")
	ErrInvalidAttempts  = errors.New("auth.max_attempts must be positive")
	ErrInvalidLockout   = errors.New("auth.lockout_seconds must be positive")
)

// Config is the full nutricount configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store"   json:"store"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Output  OutputConfig  `yaml:"output"  json:"output"`
	Auth    AuthConfig    `yaml:"auth"    json:"auth"`

	configPath string
}

// StoreConfig selects the document store backend.
type StoreConfig struct {
	Backend string `yaml:"backend" json:"backend"`
	// Path is a directory for the file backend and a database file for sqlite.
	Path string `yaml:"path" json:"path"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"          json:"level"`
	Format string `yaml:"format"         json:"format"`
	File   string `yaml:"file,omitempty" json:"file,omitempty"`
}

// OutputConfig controls how commands render results.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format" json:"default_format"`
	Locale        string `yaml:"locale"         json:"locale"`
	Precision     int    `yaml:"precision"      json:"precision"`
}

// AuthConfig controls the PIN gate.
type AuthConfig struct {
	Enabled        bool `yaml:"enabled"         json:"enabled"`
	MaxAttempts    int  `yaml:"max_attempts"    json:"max_attempts"`
	LockoutSeconds int  `yaml:"lockout_seconds" json:"lockout_seconds"`
}

// Default returns the built-in configuration rooted at dir.
func Default(dir string) *Config {
	return &Config{
		Store: StoreConfig{
			Backend: BackendFile,
			Path:    filepath.Join(dir, "data"),
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Output: OutputConfig{
			DefaultFormat: FormatTable,
			Locale:        DefaultLocale,
			Precision:     DefaultPrecision,
		},
		Auth: AuthConfig{
			MaxAttempts:    DefaultMaxAttempts,
			LockoutSeconds: DefaultLockoutSeconds,
		},
		configPath: filepath.Join(dir, ConfigFileName),
	}
}

// New returns the defaults overlaid by the config file, when present, and
// then by environment overrides. An unreadable config file is ignored so a
// broken file never blocks the CLI; Load reports it instead.
func New() *Config {
	cfg, _ := Load()
	return cfg
}

// Load is New with the config file error surfaced. The returned config is
// always usable.
func Load() (*Config, error) {
	dir, err := GetConfigDir()
	if err != nil {
		dir = "."
	}
	cfg := Default(dir)

	var loadErr error
	if _, statErr := os.Stat(cfg.configPath); statErr == nil {
		loadErr = ShallowMergeYAML(cfg, cfg.configPath)
	}
	cfg.applyEnv()
	return cfg, loadErr
}

func (c *Config) applyEnv() {
	if v := os.Getenv("NUTRICOUNT_STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("NUTRICOUNT_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("NUTRICOUNT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("NUTRICOUNT_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

// Path returns the config file path.
func (c *Config) Path() string {
	return c.configPath
}

// Save writes the config file, creating the config directory if needed.
func (c *Config) Save() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err = os.WriteFile(c.configPath, data, 0o600); err != nil {
		return fmt.Errorf("writing config file %s: %w", c.configPath, err)
	}
	return nil
}

// Validate checks enumerations and ranges.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidBackend, c.Store.Backend)
	}
	switch c.Output.DefaultFormat {
	case FormatTable, FormatJSON:
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidFormat, c.Output.DefaultFormat)
	}
	if c.Output.Precision < 0 || c.Output.Precision > maxPrecision {
		return fmt.Errorf("%w: got %d", ErrInvalidPrecision, c.Output.Precision)
	}
	if c.Auth.MaxAttempts <= 0 {
		return ErrInvalidAttempts
	}
	if c.Auth.LockoutSeconds <= 0 {
		return ErrInvalidLockout
	}
	return nil
}

// field binds a dotted key to a config field.
type field struct {
	get func(*Config) string
	set func(*Config, string) error
}

func stringField(p func(*Config) *string) field {
	return field{
		get: func(c *Config) string { return *p(c) },
		set: func(c *Config, v string) error { *p(c) = v; return nil },
	}
}

func intField(p func(*Config) *int) field {
	return field{
		get: func(c *Config) string { return strconv.Itoa(*p(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("expected an integer, got %q", v)
			}
			*p(c) = n
			return nil
		},
	}
}

//nolint:gochecknoglobals // Static key table.
var fields = map[string]field{
	"store.backend":         stringField(func(c *Config) *string { return &c.Store.Backend }),
	"store.path":            stringField(func(c *Config) *string { return &c.Store.Path }),
	"logging.level":         stringField(func(c *Config) *string { return &c.Logging.Level }),
	"logging.format":        stringField(func(c *Config) *string { return &c.Logging.Format }),
	"logging.file":          stringField(func(c *Config) *string { return &c.Logging.File }),
	"output.default_format": stringField(func(c *Config) *string { return &c.Output.DefaultFormat }),
	"output.locale":         stringField(func(c *Config) *string { return &c.Output.Locale }),
	"output.precision":      intField(func(c *Config) *int { return &c.Output.Precision }),
	"auth.max_attempts":     intField(func(c *Config) *int { return &c.Auth.MaxAttempts }),
	"auth.lockout_seconds":  intField(func(c *Config) *int { return &c.Auth.LockoutSeconds }),
	"auth.enabled": {
		get: func(c *Config) string { return strconv.FormatBool(c.Auth.Enabled) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("expected true or false, got %q", v)
			}
			c.Auth.Enabled = b
			return nil
		},
	},
}

// Keys returns every settable key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value of a dotted key.
func (c *Config) Get(key string) (string, error) {
	f, ok := fields[strings.ToLower(key)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return f.get(c), nil
}

// Set assigns a dotted key and validates the result. On error the config
// is left unchanged.
func (c *Config) Set(key, value string) error {
	f, ok := fields[strings.ToLower(key)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	next := *c
	if err := f.set(&next, value); err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}
