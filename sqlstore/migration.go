package sqlstore

import (
	"database/sql"

	"github.com/rubenv/sql-migrate"
)

// This file maintains the database migration code.  See
// https://github.com/rubenv/sql-migrate for details of what goes in
// here.  This runs "outside" the normal store flow, either at initial
// startup or from an external tool.

var migrationSources = map[string]*migrate.MemoryMigrationSource{
	Postgres: {
		Migrations: []*migrate.Migration{
			{
				Id: "1-cache-blob",
				Up: []string{
					`CREATE TABLE cache_blob (
						name TEXT PRIMARY KEY,
						data BYTEA NOT NULL,
						updated TIMESTAMP WITH TIME ZONE NOT NULL
					)`,
				},
				Down: []string{"DROP TABLE cache_blob"},
			},
		},
	},
	SQLite: {
		Migrations: []*migrate.Migration{
			{
				Id: "1-cache-blob",
				Up: []string{
					`CREATE TABLE cache_blob (
						name TEXT PRIMARY KEY,
						data BLOB NOT NULL,
						updated DATETIME NOT NULL
					)`,
				},
				Down: []string{"DROP TABLE cache_blob"},
			},
		},
	},
}

// Upgrade upgrades a database to the latest database schema version.
func Upgrade(db *sql.DB, dialect string) error {
	source, ok := migrationSources[dialect]
	if !ok {
		return ErrUnknownDialect
	}
	_, err := migrate.Exec(db, dialect, source, migrate.Up)
	return err
}

// Drop clears a database by running all of the migrations in reverse,
// ultimately resulting in dropping all of the tables.
func Drop(db *sql.DB, dialect string) error {
	source, ok := migrationSources[dialect]
	if !ok {
		return ErrUnknownDialect
	}
	_, err := migrate.Exec(db, dialect, source, migrate.Down)
	return err
}
