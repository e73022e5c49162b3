// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

// Package sqlite provides SQLite implementations of auth repositories.
//
// The schema matches the device-local okiri.db written by earlier releases of
// the app, so an existing database file can be opened and migrated in place.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"

	"github.com/pressly/goose/v3"
	"github.com/samber/oops"

	// Register the pure-Go "sqlite" database/sql driver.
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DriverName is the database/sql driver name registered by modernc.org/sqlite.
const DriverName = "sqlite"

// DBTX is the subset of *sql.DB and *sql.Tx the repositories use.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open opens the database at dsn and applies pending migrations.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, oops.Code("SQLITE_OPEN_FAILED").With("dsn", dsn).Wrap(err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:"
	// databases from splitting across pool connections.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close() //nolint:errcheck // ping error takes precedence
		return nil, oops.Code("SQLITE_OPEN_FAILED").With("dsn", dsn).Wrap(err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close() //nolint:errcheck // pragma error takes precedence
		return nil, oops.Code("SQLITE_OPEN_FAILED").With("operation", "set busy_timeout").Wrap(err)
	}

	if _, err := Migrate(ctx, db); err != nil {
		_ = db.Close() //nolint:errcheck // migration error takes precedence
		return nil, err
	}
	return db, nil
}

// Migrate applies pending migrations and returns the resulting schema version.
func Migrate(ctx context.Context, db *sql.DB) (int64, error) {
	provider, err := newProvider(db)
	if err != nil {
		return 0, err
	}
	if _, err := provider.Up(ctx); err != nil {
		return 0, oops.Code("SQLITE_MIGRATE_FAILED").Wrap(err)
	}
	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return 0, oops.Code("SQLITE_MIGRATE_FAILED").With("operation", "read version").Wrap(err)
	}
	return version, nil
}

// SchemaVersion returns the applied schema version without migrating.
func SchemaVersion(ctx context.Context, db *sql.DB) (int64, error) {
	provider, err := newProvider(db)
	if err != nil {
		return 0, err
	}
	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return 0, oops.Code("SQLITE_VERSION_FAILED").Wrap(err)
	}
	return version, nil
}

func newProvider(db *sql.DB) (*goose.Provider, error) {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, oops.Code("SQLITE_MIGRATE_FAILED").With("operation", "open migrations").Wrap(err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return nil, oops.Code("SQLITE_MIGRATE_FAILED").With("operation", "create provider").Wrap(err)
	}
	return provider, nil
}
