package migration

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

type migrationManager struct {
	scanner      FileScanner
	executor     Executor
	migrationDir string
	logger       *slog.Logger
}

// NewMigrationManager wires a scanner and executor together. A nil logger
// falls back to slog.Default.
func NewMigrationManager(scanner FileScanner, executor Executor, migrationDir string, logger *slog.Logger) MigrationManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &migrationManager{
		scanner:      scanner,
		executor:     executor,
		migrationDir: migrationDir,
		logger:       logger.With("component", "migration"),
	}
}

// RunMigrations executes all pending migrations in sequential order.
func (m *migrationManager) RunMigrations(ctx context.Context) error {
	start := time.Now()

	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		m.logger.ErrorContext(ctx, "initialize schema_migrations failed", "error", err)
		return fmt.Errorf("failed to initialize version table: %w", err)
	}

	pending, err := m.GetPendingMigrations(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "scan pending migrations failed", "dir", m.migrationDir, "error", err)
		return fmt.Errorf("failed to get pending migrations: %w", err)
	}

	if len(pending) == 0 {
		m.logger.DebugContext(ctx, "schema up to date")
		return nil
	}

	m.logger.InfoContext(ctx, "applying migrations", "pending", len(pending))

	for i, migration := range pending {
		migrationStart := time.Now()
		logger := m.logger.With("version", migration.Version, "description", migration.Description)

		if err := m.executor.ExecuteMigration(ctx, migration); err != nil {
			logger.ErrorContext(ctx, "migration failed", "file", migration.FilePath, "error", err)
			return NewMigrationError(migration.Version, migration.FilePath,
				"execute migration", fmt.Errorf("%w: %v", ErrMigrationFailed, err))
		}

		elapsed := time.Since(migrationStart)
		if err := m.executor.RecordMigration(ctx, migration, elapsed); err != nil {
			logger.ErrorContext(ctx, "record migration failed", "error", err)
			return NewMigrationError(migration.Version, migration.FilePath,
				"record migration", fmt.Errorf("failed to record migration: %w", err))
		}

		logger.InfoContext(ctx, "migration applied",
			"step", i+1,
			"of", len(pending),
			"duration", elapsed,
		)
	}

	m.logger.InfoContext(ctx, "migrations complete", "applied", len(pending), "duration", time.Since(start))
	return nil
}

// GetAppliedVersions returns the applied versions in ascending order.
func (m *migrationManager) GetAppliedVersions(ctx context.Context) ([]string, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize version table: %w", err)
	}

	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied versions: %w", err)
	}

	versions := make([]string, len(applied))
	for i, migration := range applied {
		versions[i] = migration.Version
	}
	return versions, nil
}

// GetPendingMigrations returns migrations whose version is not yet applied.
func (m *migrationManager) GetPendingMigrations(ctx context.Context) ([]Migration, error) {
	available, err := m.scanner.ScanMigrations(m.migrationDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan migrations: %w", err)
	}

	appliedVersions, err := m.GetAppliedVersions(ctx)
	if err != nil {
		return nil, err
	}

	if err := validateSequence(available, appliedVersions); err != nil {
		return nil, fmt.Errorf("migration sequence validation failed: %w", err)
	}

	applied := make(map[string]bool, len(appliedVersions))
	for _, version := range appliedVersions {
		applied[version] = true
	}

	var pending []Migration
	for _, migration := range available {
		if !applied[migration.Version] {
			pending = append(pending, migration)
		}
	}
	sortByVersion(pending)
	return pending, nil
}

// GetMigrationStatus summarises applied and pending migrations.
func (m *migrationManager) GetMigrationStatus(ctx context.Context) (*MigrationStatus, error) {
	pending, err := m.GetPendingMigrations(ctx)
	if err != nil {
		return nil, err
	}

	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	current := ""
	highest := -1
	for _, migration := range applied {
		if version, err := strconv.Atoi(migration.Version); err == nil && version > highest {
			highest = version
			current = migration.Version
		}
	}

	return &MigrationStatus{
		CurrentVersion:    current,
		PendingCount:      len(pending),
		AppliedMigrations: applied,
		PendingMigrations: pending,
	}, nil
}

// validateSequence rejects gaps in the available versions and applied
// versions that no longer have a file.
func validateSequence(available []Migration, appliedVersions []string) error {
	known := make(map[int]bool, len(available))
	minVersion, maxVersion := 0, -1
	for i, migration := range available {
		version, err := strconv.Atoi(migration.Version)
		if err != nil {
			return NewMigrationError(migration.Version, migration.FilePath, "validate sequence",
				fmt.Errorf("%w: version '%s' is not numeric", ErrInvalidVersion, migration.Version))
		}
		known[version] = true
		if i == 0 || version < minVersion {
			minVersion = version
		}
		if version > maxVersion {
			maxVersion = version
		}
	}

	for version := minVersion; version <= maxVersion; version++ {
		if !known[version] {
			return fmt.Errorf("%w: missing migration version %03d in sequence", ErrVersionConflict, version)
		}
	}

	for _, raw := range appliedVersions {
		version, err := strconv.Atoi(raw)
		if err != nil {
			return NewDatabaseError(raw, "", "validate sequence",
				fmt.Errorf("%w: applied version '%s' is not numeric", ErrVersionTableCorrupt, raw))
		}
		if !known[version] {
			return fmt.Errorf("%w: applied migration %03d not found in available migrations", ErrVersionConflict, version)
		}
	}
	return nil
}
