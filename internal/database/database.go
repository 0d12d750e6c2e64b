// Package database opens the database/sql connection sqlcsv works against.
package database

import (
	"context"
	"database/sql"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
)

// DefaultDriver is the database/sql driver used when none is given.
const DefaultDriver = "sqlite3"

// Settings describes how to reach the database.
type Settings struct {
	Driver   string
	Database string
	User     string
	Password string

	// Server is the host the database lives on. sqlite3 only reads local
	// files, so anything but a local name needs a DSN for a server driver.
	Server string

	// DSN, when set, is handed to the driver unchanged.
	DSN string
}

func (s Settings) driver() string {
	if s.Driver == "" {
		return DefaultDriver
	}
	return s.Driver
}

// IsLocal reports whether Server names the local machine.
func (s Settings) IsLocal() bool {
	switch strings.ToLower(strings.TrimSpace(s.Server)) {
	case "", "(local)", ".", "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// Validate checks that a data source can be built.
func (s Settings) Validate() error {
	if s.DSN != "" {
		return nil
	}
	if !s.IsLocal() {
		return errors.WithHintf(errors.Newf("server %q cannot be reached without a data source name", s.Server),
			"pass -driver:<name> and -dsn:<data source name> for %s", s.Server)
	}
	if s.Database == "" {
		return errors.WithHint(errors.New(`"Database" parameter is required`),
			"pass -database:<path> or -dsn:<data source name>, or set database in the config file")
	}
	if s.driver() != DefaultDriver {
		return errors.Newf("driver %q needs an explicit -dsn", s.driver())
	}
	return nil
}

// DataSourceName builds the string handed to sql.Open. For sqlite3 a user
// and password become the driver's _auth parameters.
func (s Settings) DataSourceName() string {
	if s.DSN != "" {
		return s.DSN
	}
	if s.User == "" {
		return s.Database
	}

	q := url.Values{}
	q.Set("_auth", "")
	q.Set("_auth_user", s.User)
	q.Set("_auth_pass", s.Password)
	return "file:" + s.Database + "?" + q.Encode()
}

// Redacted describes the connection for display, masking the password.
func (s Settings) Redacted() string {
	dsn := s.DataSourceName()
	if s.Password != "" {
		dsn = strings.ReplaceAll(dsn, url.QueryEscape(s.Password), "****")
	}
	out := "Driver=" + s.driver()
	if s.Server != "" {
		out += ";Server=" + s.Server
	}
	return out + ";DataSource=" + dsn
}

// Open opens the database and verifies the connection.
func Open(ctx context.Context, s Settings) (*sql.DB, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open(s.driver(), s.DataSourceName())
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s database", s.driver())
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "connecting to %s", s.Redacted())
	}
	return db, nil
}
