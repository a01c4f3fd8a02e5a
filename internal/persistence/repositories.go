package persistence

import (
	"context"
	"time"
)

// ScheduleRepository stores schedules and their command lists.
type ScheduleRepository interface {
	CreateSchedule(ctx context.Context, schedule Schedule) (int64, error)
	GetSchedule(ctx context.Context, id int64) (Schedule, error)
	ListSchedules(ctx context.Context) ([]Schedule, error)
	UpdateScheduleDateTime(ctx context.Context, id int64, dateTime time.Time) error
	SetScheduleEnabled(ctx context.Context, id int64, enabled bool) error
	DeleteSchedule(ctx context.Context, id int64) error
}

// NotificationRepository stores execution outcome events.
type NotificationRepository interface {
	InsertNotification(ctx context.Context, event NotificationEvent) error
	ListNotifications(ctx context.Context, limit int) ([]NotificationEvent, error)
	DeleteNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
