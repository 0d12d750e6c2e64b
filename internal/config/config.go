// Package config provides configuration management for sqlcsv.
package config

import (
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/open-cli-collective/sqlcsv-cli/internal/database"
	"github.com/open-cli-collective/sqlcsv-cli/internal/textenc"
)

// Environment variables that override the config file.
const (
	EnvDriver     = "SQLCSV_DRIVER"
	EnvDatabase   = "SQLCSV_DATABASE"
	EnvSMTPServer = "SQLCSV_SMTP_SERVER"
	EnvFrom       = "SQLCSV_FROM"
)

// EnvVars lists every variable LoadFromEnv reads.
var EnvVars = []string{EnvDriver, EnvDatabase, EnvSMTPServer, EnvFrom, "SMTP_SERVER"}

// Config holds the defaults sqlcsv applies to values an invocation leaves
// unset.
type Config struct {
	Driver         string `yaml:"driver,omitempty"`
	Database       string `yaml:"database,omitempty"`
	SMTPServer     string `yaml:"smtp_server,omitempty"`
	From           string `yaml:"from,omitempty"`
	FieldSeparator string `yaml:"field_separator,omitempty"`
	Encoding       string `yaml:"encoding,omitempty"`
}

// Validate checks the values that have a fixed format.
func (c *Config) Validate() error {
	if c.FieldSeparator != "" && c.FieldSeparator != `\t` && utf8.RuneCountInString(c.FieldSeparator) != 1 {
		return errors.Newf("field_separator must be a single character or \\t, got %q", c.FieldSeparator)
	}
	if c.Encoding != "" {
		if _, err := textenc.Lookup(c.Encoding); err != nil {
			return errors.Wrap(err, "encoding")
		}
	}
	return nil
}

// IsEmpty reports whether no value is set.
func (c *Config) IsEmpty() bool {
	return *c == Config{}
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables override existing values only if set and non-empty.
// Precedence: SQLCSV_* → SMTP_SERVER (smtp server only) → existing config value
func (c *Config) LoadFromEnv() {
	if driver := os.Getenv(EnvDriver); driver != "" {
		c.Driver = driver
	}
	if database := os.Getenv(EnvDatabase); database != "" {
		c.Database = database
	}
	if server := getEnvWithFallback(EnvSMTPServer, "SMTP_SERVER"); server != "" {
		c.SMTPServer = server
	}
	if from := os.Getenv(EnvFrom); from != "" {
		c.From = from
	}
}

// getEnvWithFallback returns the value of the primary env var, or the fallback if primary is empty.
func getEnvWithFallback(primary, fallback string) string {
	if v := os.Getenv(primary); v != "" {
		return v
	}
	return os.Getenv(fallback)
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "sqlcsv", "config.yml")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".sqlcsv", "config.yml")
	}

	return filepath.Join(home, ".config", "sqlcsv", "config.yml")
}

// Save writes the configuration to the specified path.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	// The file may name a database with credentials in a DSN.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}

	return nil
}

// Load reads the configuration from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config file %s", path)
	}

	return &cfg, nil
}

// LoadWithEnv loads configuration from file and overrides with environment
// variables. A missing file yields an empty config; a file that exists but
// cannot be parsed is an error.
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = &Config{}
	}

	cfg.LoadFromEnv()
	return cfg, nil
}

// DatabaseSettings returns the connection the config describes. For drivers
// other than sqlite3 the database value is a data source name.
func (c *Config) DatabaseSettings() database.Settings {
	if c.Driver == "" || c.Driver == database.DefaultDriver {
		return database.Settings{Driver: c.Driver, Database: c.Database}
	}
	return database.Settings{Driver: c.Driver, DSN: c.Database}
}
