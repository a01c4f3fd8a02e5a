// Package sqlite persists schedules and notification events in an embedded
// SQLite database.
package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/home-scheduler/internal/persistence"
	"github.com/example/home-scheduler/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationDir = "migrations"

var (
	_ persistence.ScheduleRepository     = (*Storage)(nil)
	_ persistence.NotificationRepository = (*Storage)(nil)
)

// Storage implements the persistence repositories on SQLite.
type Storage struct {
	pool     *ConnectionPool
	location *time.Location
	logger   *slog.Logger
}

// Option customises a Storage.
type Option func(*Storage)

// WithLocation sets the zone schedule date-times are decoded into. The
// time-of-day ordering of ListSchedules is evaluated in this zone.
func WithLocation(loc *time.Location) Option {
	return func(s *Storage) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithLogger sets the logger used for skipped rows and migrations.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Storage) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open opens the database file at dsn with production settings.
func Open(dsn string, opts ...Option) (*Storage, error) {
	return OpenWithConfig(migration.DefaultSQLiteConfig(dsn), opts...)
}

// OpenWithConfig opens a database using an explicit connection config.
func OpenWithConfig(config migration.SQLiteConfig, opts ...Option) (*Storage, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, persistence.NewStorageError("open", err)
	}

	storage := &Storage{
		pool:     pool,
		location: time.Local,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(storage)
	}
	storage.logger = storage.logger.With("component", "sqlite")
	return storage, nil
}

// Close releases the database handle.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// Ping checks that the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return mapError("ping", s.pool.Ping(ctx))
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	manager := migration.NewMigrationManager(
		migration.NewFileScanner(migrationFiles),
		migration.NewSQLiteExecutor(s.pool.DB()),
		migrationDir,
		s.logger,
	)
	if err := manager.RunMigrations(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}
