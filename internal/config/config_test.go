package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range EnvVars {
		t.Setenv(v, "")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
		errMsg  string
	}{
		{
			name:   "empty config",
			config: Config{},
		},
		{
			name: "valid config",
			config: Config{
				Driver:         "sqlite3",
				Database:       "/var/data/sales.db",
				FieldSeparator: ";",
				Encoding:       "utf8",
			},
		},
		{
			name:   "tab separator",
			config: Config{FieldSeparator: `\t`},
		},
		{
			name:    "long separator",
			config:  Config{FieldSeparator: ";;"},
			wantErr: true,
			errMsg:  "field_separator must be a single character",
		},
		{
			name:    "unknown encoding",
			config:  Config{Encoding: "ebcdic"},
			wantErr: true,
			errMsg:  "encoding",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_LoadFromEnv(t *testing.T) {
	t.Run("loads all env vars", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvDriver, "sqlite3")
		t.Setenv(EnvDatabase, "/tmp/env.db")
		t.Setenv(EnvSMTPServer, "smtp.example.com")
		t.Setenv(EnvFrom, "reports@example.com")

		cfg := &Config{}
		cfg.LoadFromEnv()

		assert.Equal(t, "sqlite3", cfg.Driver)
		assert.Equal(t, "/tmp/env.db", cfg.Database)
		assert.Equal(t, "smtp.example.com", cfg.SMTPServer)
		assert.Equal(t, "reports@example.com", cfg.From)
	})

	t.Run("env vars override existing values", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvDatabase, "/tmp/override.db")

		cfg := &Config{
			Database: "/tmp/original.db",
			From:     "original@example.com",
		}
		cfg.LoadFromEnv()

		assert.Equal(t, "/tmp/override.db", cfg.Database)
		// Empty env var doesn't override
		assert.Equal(t, "original@example.com", cfg.From)
	})

	t.Run("SMTP_SERVER fallback", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SMTP_SERVER", "relay.example.com")

		cfg := &Config{}
		cfg.LoadFromEnv()
		assert.Equal(t, "relay.example.com", cfg.SMTPServer)

		t.Setenv(EnvSMTPServer, "smtp.example.com")
		cfg.LoadFromEnv()
		assert.Equal(t, "smtp.example.com", cfg.SMTPServer)
	})
}

func TestDefaultConfigPath(t *testing.T) {
	t.Run("home directory", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		path := DefaultConfigPath()

		home, err := os.UserHomeDir()
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(path, home))
		assert.Contains(t, path, "sqlcsv")
		assert.Equal(t, ".yml", filepath.Ext(path))
	})

	t.Run("XDG config home", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", dir)
		assert.Equal(t, filepath.Join(dir, "sqlcsv", "config.yml"), DefaultConfigPath())
	})
}

func TestConfig_Save_and_Load(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config.yml")

	original := Config{
		Driver:         "sqlite3",
		Database:       "/var/data/sales.db",
		SMTPServer:     "smtp.example.com",
		From:           "reports@example.com (Reports)",
		FieldSeparator: ";",
		Encoding:       "utf8",
	}

	require.NoError(t, original.Save(configPath))

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, original, *loaded)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yml")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadWithEnv(t *testing.T) {
	t.Run("missing file gives empty config", func(t *testing.T) {
		clearEnv(t)
		cfg, err := LoadWithEnv(filepath.Join(t.TempDir(), "config.yml"))
		require.NoError(t, err)
		assert.True(t, cfg.IsEmpty())
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "config.yml")
		require.NoError(t, os.WriteFile(path, []byte("driver: [unclosed"), 0600))

		_, err := LoadWithEnv(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})

	t.Run("env overrides file", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "config.yml")
		require.NoError(t, (&Config{Database: "file.db", Encoding: "utf8"}).Save(path))
		t.Setenv(EnvDatabase, "env.db")

		cfg, err := LoadWithEnv(path)
		require.NoError(t, err)
		assert.Equal(t, "env.db", cfg.Database)
		assert.Equal(t, "utf8", cfg.Encoding)
	})
}

func TestGetEnvWithFallback(t *testing.T) {
	t.Run("returns primary when set", func(t *testing.T) {
		t.Setenv("TEST_PRIMARY", "primary-value")
		t.Setenv("TEST_FALLBACK", "fallback-value")
		assert.Equal(t, "primary-value", getEnvWithFallback("TEST_PRIMARY", "TEST_FALLBACK"))
	})

	t.Run("returns fallback when primary empty", func(t *testing.T) {
		t.Setenv("TEST_PRIMARY", "")
		t.Setenv("TEST_FALLBACK", "fallback-value")
		assert.Equal(t, "fallback-value", getEnvWithFallback("TEST_PRIMARY", "TEST_FALLBACK"))
	})

	t.Run("returns empty when both empty", func(t *testing.T) {
		t.Setenv("TEST_PRIMARY", "")
		t.Setenv("TEST_FALLBACK", "")
		assert.Equal(t, "", getEnvWithFallback("TEST_PRIMARY", "TEST_FALLBACK"))
	})
}

func TestDatabaseSettings(t *testing.T) {
	s := (&Config{Database: "sales.db"}).DatabaseSettings()
	assert.Equal(t, "sales.db", s.Database)
	assert.Empty(t, s.DSN)

	s = (&Config{Driver: "sqlite3", Database: "sales.db"}).DatabaseSettings()
	assert.Equal(t, "sales.db", s.Database)

	s = (&Config{Driver: "postgres", Database: "host=db user=report"}).DatabaseSettings()
	assert.Equal(t, "postgres", s.Driver)
	assert.Equal(t, "host=db user=report", s.DSN)
	assert.Empty(t, s.Database)
}
