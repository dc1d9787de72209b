package database

import (
	"database/sql"
	"fmt"
	"os"
)

// Migrate applies docs/schema.sql relative to the working directory.
func Migrate(db *sql.DB) error {
	return MigrateFrom(db, "docs/schema.sql")
}

// MigrateFrom applies the schema at the given path. Tests use this to reach
// the schema from their package directory.
func MigrateFrom(db *sql.DB, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if _, err := db.Exec(string(b)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
