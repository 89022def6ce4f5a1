package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

const (
	// CurrentSchemaVersion tracks the database schema version
	CurrentSchemaVersion = "1.1.0"
)

// Migration represents a schema migration of one documents table.
// Up and Down receive the quoted table name.
type Migration struct {
	Version string
	Up      func(table string) string
	Down    func(table string) string
}

// AllMigrations contains all database migrations in order
var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		Up: func(table string) string {
			return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    identity TEXT PRIMARY KEY,
    content TEXT NOT NULL,
    fingerprint TEXT NOT NULL,
    embedding BLOB NOT NULL,
    dimension INTEGER NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`, table)
		},
		Down: func(table string) string {
			return fmt.Sprintf("DROP TABLE IF EXISTS %s;", table)
		},
	},
	{
		Version: "1.1.0",
		Up: func(table string) string {
			return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(fingerprint);",
				quoteIdent("idx_"+unquote(table)+"_fingerprint"), table)
		},
		Down: func(table string) string {
			return fmt.Sprintf("DROP INDEX IF EXISTS %s;", quoteIdent("idx_"+unquote(table)+"_fingerprint"))
		},
	},
}

const createSchemaVersion = `
CREATE TABLE IF NOT EXISTS schema_version (
    table_name TEXT NOT NULL,
    version TEXT NOT NULL,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (table_name, version)
);`

// currentVersion returns the highest applied version for table, or 0.0.0
func currentVersion(ctx context.Context, db *sql.DB, table string) (*semver.Version, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_version WHERE table_name = ?", table)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_version: %w", err)
	}
	defer rows.Close()

	current := semver.MustParse("0.0.0")
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		v, err := semver.NewVersion(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid schema version %s: %w", raw, err)
		}
		if v.GreaterThan(current) {
			current = v
		}
	}
	return current, rows.Err()
}

// ApplyMigrations runs all pending migrations for table
func ApplyMigrations(ctx context.Context, db *sql.DB, table string) error {
	if _, err := db.ExecContext(ctx, createSchemaVersion); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	current, err := currentVersion(ctx, db, table)
	if err != nil {
		return err
	}

	for _, migration := range AllMigrations {
		migrationVersion, err := semver.NewVersion(migration.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", migration.Version, err)
		}

		if !current.LessThan(migrationVersion) {
			continue // Already applied
		}

		if _, err := db.ExecContext(ctx, migration.Up(quoteIdent(table))); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}

		_, err = db.ExecContext(ctx,
			"INSERT INTO schema_version (table_name, version) VALUES (?, ?)", table, migration.Version)
		if err != nil {
			return fmt.Errorf("failed to record migration %s: %w", migration.Version, err)
		}

		current = migrationVersion
	}

	return nil
}

// RollbackMigration rolls back the most recent migration of table
func RollbackMigration(ctx context.Context, db *sql.DB, table string) error {
	current, err := currentVersion(ctx, db, table)
	if err != nil {
		return err
	}
	if current.Equal(semver.MustParse("0.0.0")) {
		return fmt.Errorf("no migrations to rollback for %s", table)
	}

	var migration *Migration
	for i := range AllMigrations {
		if v, err := semver.NewVersion(AllMigrations[i].Version); err == nil && v.Equal(current) {
			migration = &AllMigrations[i]
			break
		}
	}
	if migration == nil {
		return fmt.Errorf("migration %s not found", current)
	}

	if _, err := db.ExecContext(ctx, migration.Down(quoteIdent(table))); err != nil {
		return fmt.Errorf("failed to rollback migration %s: %w", migration.Version, err)
	}

	_, err = db.ExecContext(ctx,
		"DELETE FROM schema_version WHERE table_name = ? AND version = ?", table, migration.Version)
	if err != nil {
		return fmt.Errorf("failed to remove migration record %s: %w", migration.Version, err)
	}

	return nil
}

// quoteIdent double-quotes a validated identifier
func quoteIdent(name string) string {
	return `"` + name + `"`
}

func unquote(name string) string {
	if len(name) >= 2 && name[0] == '"' && name[len(name)-1] == '"' {
		return name[1 : len(name)-1]
	}
	return name
}
