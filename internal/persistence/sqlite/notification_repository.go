package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/home-scheduler/internal/persistence"
)

// InsertNotification appends event to the notification history.
func (s *Storage) InsertNotification(ctx context.Context, event persistence.NotificationEvent) error {
	err := s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO notifications (id, title, content, created_at, success) VALUES (?, ?, ?, ?, ?)`,
			event.ID,
			event.Title,
			event.Content,
			event.Timestamp.UnixNano(),
			boolToInt(event.Success),
		)
		return err
	})
	return mapError("insert notification", err)
}

// ListNotifications returns the most recent events first. A non-positive
// limit returns every event.
func (s *Storage) ListNotifications(ctx context.Context, limit int) ([]persistence.NotificationEvent, error) {
	query := `SELECT id, title, content, created_at, success FROM notifications ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError("list notifications", err)
	}
	defer rows.Close()

	events := make([]persistence.NotificationEvent, 0)
	for rows.Next() {
		var (
			event     persistence.NotificationEvent
			createdAt int64
			success   int
		)
		if err := rows.Scan(&event.ID, &event.Title, &event.Content, &createdAt, &success); err != nil {
			return nil, mapError("list notifications", err)
		}
		event.Timestamp = time.Unix(0, createdAt).In(s.location)
		event.Success = success != 0
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list notifications", err)
	}
	return events, nil
}

// DeleteNotificationsBefore removes events recorded strictly before cutoff
// and returns how many were removed.
func (s *Storage) DeleteNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM notifications WHERE created_at < ?`, cutoff.UnixNano())
		if err != nil {
			return err
		}
		removed, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, mapError("delete notifications", err)
	}
	return removed, nil
}
