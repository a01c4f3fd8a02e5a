package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/home-scheduler/internal/persistence"
	"github.com/example/home-scheduler/internal/persistence/sqlite"
	"github.com/example/home-scheduler/internal/persistence/sqlite/migration"
)

// SQLiteHarness provides repository access backed by a temporary, migrated
// SQLite database. Date-times are decoded in UTC.
type SQLiteHarness struct {
	Storage       *sqlite.Storage
	Schedules     persistence.ScheduleRepository
	Notifications persistence.NotificationRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness. Close is registered with
// tb.Cleanup, so calling it explicitly is optional.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "homesched.db")
	storage, err := sqlite.OpenWithConfig(
		migration.TempFileTestSQLiteConfig(path),
		sqlite.WithLocation(time.UTC),
		sqlite.WithLogger(DiscardLogger()),
	)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := storage.Migrate(context.Background()); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage:       storage,
		Schedules:     storage,
		Notifications: storage,
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
