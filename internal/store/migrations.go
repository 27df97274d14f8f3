package store

import (
	"database/sql"
	"fmt"
)

// Migration is one idempotent schema step.
type Migration struct {
	Name string
	Func func(*sql.DB) error
}

var migrationsList = []Migration{
	{"core_schema", migrateCoreSchema},
	{"search_index_fts", migrateSearchIndexFTS},
}

// ListMigrations returns the registered migrations for inspection (e.g. a
// future `ariadne doctor` command). All migrations are idempotent, so this
// always reflects the full set, not just pending ones.
func ListMigrations() []string {
	names := make([]string, len(migrationsList))
	for i, m := range migrationsList {
		names[i] = m.Name
	}
	return names
}

func migrateCoreSchema(db *sql.DB) error {
	_, err := db.Exec(schemaSQL)
	return err
}

func migrateSearchIndexFTS(db *sql.DB) error {
	_, err := db.Exec(ftsSchemaSQL)
	return err
}

// RunMigrations executes all registered migrations in order inside a single
// EXCLUSIVE transaction, serializing migration runs across processes that
// might open the same database concurrently. Foreign keys are disabled
// before the transaction starts, since PRAGMA foreign_keys has no effect
// inside an active transaction in SQLite.
func RunMigrations(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("disabling foreign keys for migrations: %w", err)
	}
	defer func() { _, _ = db.Exec("PRAGMA foreign_keys = ON") }()

	if _, err := db.Exec("BEGIN EXCLUSIVE"); err != nil {
		return fmt.Errorf("acquiring exclusive lock for migrations: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_, _ = db.Exec("ROLLBACK")
		}
	}()

	for _, m := range migrationsList {
		if err := m.Func(db); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.Name, err)
		}
	}

	if _, err := db.Exec("COMMIT"); err != nil {
		return fmt.Errorf("committing migrations: %w", err)
	}
	committed = true
	return nil
}
