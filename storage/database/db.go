// Package database opens the configured storage engine and prepares the postgres schema.
package database

import (
	"context"
	"database/sql"
	"net/url"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/trezcool/goose"

	"github.com/exoshivam/smart-attendance/core"
	appfs "github.com/exoshivam/smart-attendance/fs"
)

const pingAttempts = 30

// dsn builds the postgres connection URL for dbName, as the admin role when admin is set
// and one is configured.
func dsn(dbName string, admin bool, conf core.DatabaseConfig) string {
	user := url.UserPassword(conf.User, conf.Password)
	if admin && conf.AdminUser != "" {
		user = url.UserPassword(conf.AdminUser, conf.AdminPassword)
	}

	sslMode := "require"
	if conf.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   EnginePostgres,
		User:     user,
		Host:     conf.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Open returns a handle on the attendance database, connected as the app user.
func Open(conf *core.Config) (*sql.DB, error) {
	return sql.Open(EnginePostgres, dsn(conf.Database.Name, false, conf.Database))
}

// ping waits for the database to be ready, backing off 100ms more after each attempt.
func ping(db *sql.DB) error {
	var err error
	for attempt := 1; attempt <= pingAttempts; attempt++ {
		if err = db.Ping(); err == nil {
			return nil
		}
		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}
	return errors.Wrap(err, "DB ping timeout")
}

func createUserStmt(user, password string) string {
	return "CREATE USER " + pq.QuoteIdentifier(user) + " CREATEDB ENCRYPTED PASSWORD " + pq.QuoteLiteral(password)
}

func createDBStmt(name string) string {
	return "CREATE DATABASE " + pq.QuoteIdentifier(name)
}

// exists reports whether query, run with arg, returns a row.
func exists(ctx context.Context, db *sql.DB, query string, arg string) (bool, error) {
	var found bool
	err := db.QueryRowContext(ctx, query, arg).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return found, err
}

func createAppUser(ctx context.Context, db *sql.DB, conf core.DatabaseConfig) error {
	if conf.User == "" {
		return nil
	}
	found, err := exists(ctx, db, "SELECT true FROM pg_roles WHERE rolname = $1", conf.User)
	if err != nil {
		return errors.Wrap(err, "checking app user")
	}
	if found {
		return nil
	}
	if _, err = db.ExecContext(ctx, createUserStmt(conf.User, conf.Password)); err != nil {
		return errors.Wrap(err, "creating app user")
	}
	return nil
}

func createDB(ctx context.Context, db *sql.DB, conf core.DatabaseConfig) error {
	found, err := exists(ctx, db, "SELECT true FROM pg_database WHERE datname = $1", conf.Name)
	if err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if found {
		return nil
	}
	if _, err = db.ExecContext(ctx, createDBStmt(conf.Name)); err != nil {
		return errors.Wrap(err, "creating database")
	}
	return nil
}

// CreateIfNotExist creates the app role (as admin) and then the app database (as the app role).
func CreateIfNotExist(ctx context.Context, conf *core.Config) error {
	admin, err := sql.Open(EnginePostgres, dsn("postgres", true, conf.Database))
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = admin.Close() }()

	if err = ping(admin); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	if err = createAppUser(ctx, admin, conf.Database); err != nil {
		return err
	}

	db, err := sql.Open(EnginePostgres, dsn("postgres", false, conf.Database))
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()
	return createDB(ctx, db, conf.Database)
}

// Migrate applies the embedded migrations.
func Migrate(db *sql.DB) error {
	if err := goose.RunFS("up", db, appfs.FS, "migrations"); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}
