package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/example/home-scheduler/internal/codec"
	"github.com/example/home-scheduler/internal/persistence"
)

const dateTimeLayout = time.RFC3339

const selectScheduleColumns = `SELECT id, date_time, house_id, commands, recurring_days, is_enabled FROM schedules`

// CreateSchedule inserts schedule and returns the id assigned by the database.
// Any ID already set on schedule is ignored.
func (s *Storage) CreateSchedule(ctx context.Context, schedule persistence.Schedule) (int64, error) {
	commands, err := codec.EncodeCommands(schedule.Commands)
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO schedules (date_time, house_id, commands, recurring_days, is_enabled) VALUES (?, ?, ?, ?, ?)`,
			formatDateTime(schedule.DateTime),
			schedule.HouseID,
			commands,
			codec.EncodeDays(schedule.RecurringDays),
			boolToInt(schedule.IsEnabled),
		)
		if err != nil {
			return err
		}
		id, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return 0, mapError("create schedule", err)
	}
	return id, nil
}

// GetSchedule returns the schedule with id or persistence.ErrNotFound.
func (s *Storage) GetSchedule(ctx context.Context, id int64) (persistence.Schedule, error) {
	row := s.pool.DB().QueryRowContext(ctx, selectScheduleColumns+` WHERE id = ?`, id)
	schedule, err := s.scanSchedule(row)
	if err != nil {
		return persistence.Schedule{}, mapError("get schedule", err)
	}
	return schedule, nil
}

// ListSchedules returns every schedule ordered by time-of-day. Rows that fail
// to decode are logged and skipped.
func (s *Storage) ListSchedules(ctx context.Context) ([]persistence.Schedule, error) {
	rows, err := s.pool.DB().QueryContext(ctx, selectScheduleColumns+` ORDER BY id`)
	if err != nil {
		return nil, mapError("list schedules", err)
	}
	defer rows.Close()

	schedules := make([]persistence.Schedule, 0)
	for rows.Next() {
		schedule, err := s.scanSchedule(rows)
		if err != nil {
			var corrupt *persistence.CorruptDataError
			if errors.As(err, &corrupt) {
				s.logger.WarnContext(ctx, "skipping corrupt schedule row",
					"schedule_id", corrupt.ScheduleID,
					"field", corrupt.Field,
					"error", corrupt,
				)
				continue
			}
			return nil, mapError("list schedules", err)
		}
		schedules = append(schedules, schedule)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list schedules", err)
	}

	sort.SliceStable(schedules, func(i, j int) bool {
		return timeOfDay(schedules[i].DateTime) < timeOfDay(schedules[j].DateTime)
	})
	return schedules, nil
}

// UpdateScheduleDateTime changes only the date_time column. A missing id is
// not an error.
func (s *Storage) UpdateScheduleDateTime(ctx context.Context, id int64, dateTime time.Time) error {
	err := s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE schedules SET date_time = ? WHERE id = ?`, formatDateTime(dateTime), id)
		return err
	})
	return mapError("update schedule date_time", err)
}

// SetScheduleEnabled toggles is_enabled. A missing id is not an error.
func (s *Storage) SetScheduleEnabled(ctx context.Context, id int64, enabled bool) error {
	err := s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE schedules SET is_enabled = ? WHERE id = ?`, boolToInt(enabled), id)
		return err
	})
	return mapError("set schedule enabled", err)
}

// DeleteSchedule removes the row. Deleting a missing id succeeds.
func (s *Storage) DeleteSchedule(ctx context.Context, id int64) error {
	err := s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id)
		return err
	})
	return mapError("delete schedule", err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Storage) scanSchedule(row rowScanner) (persistence.Schedule, error) {
	var (
		schedule      persistence.Schedule
		dateTime      string
		commands      string
		recurringDays string
		enabled       int
	)
	if err := row.Scan(&schedule.ID, &dateTime, &schedule.HouseID, &commands, &recurringDays, &enabled); err != nil {
		return persistence.Schedule{}, err
	}

	parsed, err := time.Parse(dateTimeLayout, dateTime)
	if err != nil {
		return persistence.Schedule{}, &persistence.CorruptDataError{ScheduleID: schedule.ID, Field: "date_time", Err: err}
	}
	schedule.DateTime = parsed.In(s.location)

	decoded, err := codec.DecodeCommands(commands)
	if err != nil {
		var corrupt *persistence.CorruptDataError
		if errors.As(err, &corrupt) {
			corrupt.ScheduleID = schedule.ID
		}
		return persistence.Schedule{}, err
	}
	schedule.Commands = decoded
	schedule.RecurringDays = codec.DecodeDays(recurringDays)
	schedule.IsEnabled = enabled != 0
	return schedule, nil
}

func formatDateTime(t time.Time) string {
	return t.Truncate(time.Second).Format(dateTimeLayout)
}

// timeOfDay returns the offset from midnight in the value's own zone.
func timeOfDay(t time.Time) time.Duration {
	hour, minute, second := t.Clock()
	return time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
