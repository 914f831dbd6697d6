// Package migration applies versioned SQL migrations to a SQLite database.
//
// Migration files live in an fs.FS (usually an embedded directory) and follow
// the naming convention {version}_{description}.sql, e.g. "001_initial_schema.sql".
// Applied versions are tracked in the schema_migrations table together with the
// checksum of the file at the time it ran, so a migration is never executed twice.
//
// Example usage:
//
//	manager := migration.NewManager(migration.NewFileScanner(), migration.NewSQLiteExecutor(db), files, "migrations", logger)
//	if err := manager.Run(ctx); err != nil {
//		return err
//	}
package migration
