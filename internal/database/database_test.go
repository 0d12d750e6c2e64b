package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		wantErr  string
	}{
		{"database path", Settings{Database: "data.db"}, ""},
		{"explicit dsn", Settings{Driver: "postgres", DSN: "postgres://x"}, ""},
		{"missing database", Settings{}, `"Database" parameter is required`},
		{"other driver without dsn", Settings{Driver: "mysql", Database: "x"}, "needs an explicit -dsn"},
		{"local server", Settings{Server: "(local)", Database: "data.db"}, ""},
		{"localhost", Settings{Server: "LocalHost", Database: "data.db"}, ""},
		{"remote server", Settings{Server: "db01", Database: "data.db"}, `server "db01" cannot be reached`},
		{"remote server with dsn", Settings{Server: "db01", Driver: "postgres", DSN: "host=db01"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.settings.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSettings_DataSourceName(t *testing.T) {
	assert.Equal(t, "data.db", Settings{Database: "data.db"}.DataSourceName())
	assert.Equal(t, "custom", Settings{Database: "data.db", DSN: "custom"}.DataSourceName())
	assert.Equal(t,
		"file:data.db?_auth=&_auth_pass=s%26cret&_auth_user=admin",
		Settings{Database: "data.db", User: "admin", Password: "s&cret"}.DataSourceName())
}

func TestSettings_Redacted(t *testing.T) {
	s := Settings{Database: "data.db", User: "admin", Password: "s&cret"}
	redacted := s.Redacted()
	assert.NotContains(t, redacted, "cret")
	assert.Contains(t, redacted, "_auth_pass=****")
	assert.Contains(t, redacted, "Driver=sqlite3")

	assert.Equal(t, "Driver=sqlite3;Server=(local);DataSource=data.db",
		Settings{Server: "(local)", Database: "data.db"}.Redacted())
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(context.Background(), Settings{Database: path})
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("CREATE TABLE t (x INTEGER)")
	assert.NoError(t, err)
}

func TestOpen_Invalid(t *testing.T) {
	_, err := Open(context.Background(), Settings{})
	require.Error(t, err)
}
