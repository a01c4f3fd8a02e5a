// Package migration applies versioned SQL files to the schedule database.
//
// Migration files live in an fs.FS (normally the embedded migrations
// directory) and are named {version}_{description}.sql, e.g.
// "002_add_recurring_days.sql". Applied versions are tracked in the
// schema_migrations table so each file runs exactly once, inside its own
// transaction.
//
//	scanner := migration.NewFileScanner(migrationsFS)
//	executor := migration.NewSQLiteExecutor(db)
//	manager := migration.NewMigrationManager(scanner, executor, "migrations", logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
