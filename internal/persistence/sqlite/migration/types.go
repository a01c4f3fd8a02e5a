package migration

import (
	"context"
	"time"
)

// Migration is a single versioned schema change.
type Migration struct {
	Version     string
	Description string
	SQL         string
	FilePath    string
	Checksum    string
}

// MigrationManager orchestrates the migration process.
type MigrationManager interface {
	// RunMigrations executes all pending migrations in version order.
	RunMigrations(ctx context.Context) error

	// GetAppliedVersions returns the versions recorded in schema_migrations.
	GetAppliedVersions(ctx context.Context) ([]string, error)

	// GetPendingMigrations returns migrations that have not been applied yet.
	GetPendingMigrations(ctx context.Context) ([]Migration, error)

	// GetMigrationStatus summarises applied and pending migrations.
	GetMigrationStatus(ctx context.Context) (*MigrationStatus, error)
}

// FileScanner discovers and parses migration files.
type FileScanner interface {
	ScanMigrations(migrationDir string) ([]Migration, error)
	ValidateFileName(filename string) error
	ParseMigrationFile(filePath string) (*Migration, error)
}

// Executor runs migrations against the database and tracks versions.
type Executor interface {
	ExecuteMigration(ctx context.Context, migration Migration) error
	InitializeVersionTable(ctx context.Context) error
	RecordMigration(ctx context.Context, migration Migration, executionTime time.Duration) error
	GetAppliedVersions(ctx context.Context) ([]AppliedMigration, error)
}

// MigrationStatus reports the current migration state.
type MigrationStatus struct {
	CurrentVersion    string
	PendingCount      int
	AppliedMigrations []AppliedMigration
	PendingMigrations []Migration
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}
