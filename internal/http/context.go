package http

import (
	"context"
	"log/slog"

	"github.com/example/home-scheduler/internal/logging"
)

type contextKey string

const (
	scheduleIDContextKey contextKey = "schedule_id"
	houseIDContextKey    contextKey = "house_id"
	requestIDContextKey  contextKey = "request_id"
)

// ContextWithLogger attaches a request scoped logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext returns the request scoped logger, if any.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

// ContextWithScheduleID injects the schedule identifier resolved from the request path.
func ContextWithScheduleID(ctx context.Context, scheduleID int64) context.Context {
	return context.WithValue(ctx, scheduleIDContextKey, scheduleID)
}

// ScheduleIDFromContext extracts a schedule identifier previously associated with the context.
func ScheduleIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(scheduleIDContextKey).(int64)
	return id, ok
}

// ContextWithHouseID injects the house identifier resolved from the request path.
func ContextWithHouseID(ctx context.Context, houseID int64) context.Context {
	return context.WithValue(ctx, houseIDContextKey, houseID)
}

// HouseIDFromContext extracts a house identifier previously associated with the context.
func HouseIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(houseIDContextKey).(int64)
	return id, ok
}

// RequestIDFromContext returns the identifier assigned by RequestLogger.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDContextKey).(string)
	return id, ok
}
