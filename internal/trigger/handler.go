package trigger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/home-scheduler/internal/notify"
	"github.com/example/home-scheduler/internal/persistence"
	"github.com/example/home-scheduler/internal/recurrence"
)

// Handler executes a schedule when its timer fires.
type Handler struct {
	schedules  persistence.ScheduleRepository
	dispatcher Dispatcher
	recorder   Recorder
	timer      TimerPort
	engine     *recurrence.Engine
	now        func() time.Time
	logger     *slog.Logger

	sessionExpired func(error) bool

	mu       sync.Mutex
	inFlight map[int64]struct{}
}

// HandlerOption customises a Handler.
type HandlerOption func(*Handler)

// WithHandlerClock overrides the time source used to date a firing.
func WithHandlerClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// WithHandlerLogger sets the handler logger.
func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithSessionExpired installs a predicate recognising dispatch errors caused
// by a missing or expired session. Firings that hit such an error are
// recorded as skipped with a sign-in hint instead of as plain failures.
func WithSessionExpired(match func(error) bool) HandlerOption {
	return func(h *Handler) {
		h.sessionExpired = match
	}
}

// NewHandler wires a Handler.
func NewHandler(
	schedules persistence.ScheduleRepository,
	dispatcher Dispatcher,
	recorder Recorder,
	timer TimerPort,
	engine *recurrence.Engine,
	opts ...HandlerOption,
) (*Handler, error) {
	switch {
	case schedules == nil:
		return nil, errors.New("trigger: schedule repository is required")
	case dispatcher == nil:
		return nil, errors.New("trigger: dispatcher is required")
	case recorder == nil:
		return nil, errors.New("trigger: recorder is required")
	case timer == nil:
		return nil, errors.New("trigger: timer is required")
	}
	if engine == nil {
		engine = recurrence.NewEngine(nil)
	}

	h := &Handler{
		schedules:  schedules,
		dispatcher: dispatcher,
		recorder:   recorder,
		timer:      timer,
		engine:     engine,
		now:        time.Now,
		logger:     slog.Default(),
		inFlight:   make(map[int64]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "trigger")
	return h, nil
}

// Fire runs schedule id: dispatch every command, then advance or delete the
// schedule, then record one notification. An absent or disabled schedule is
// left untouched.
//
// The new date of a recurring schedule is persisted only after dispatch, so a
// crash in between fires the schedule again on restart. Bookkeeping after
// dispatch ignores cancellation of ctx, so a firing interrupted by shutdown
// still advances or deletes its schedule and records its event.
func (h *Handler) Fire(ctx context.Context, id int64) (Outcome, error) {
	outcome := Outcome{ScheduleID: id}
	logger := h.logger.With("schedule_id", id, "firing_id", uuid.NewString())

	if !h.acquire(id) {
		logger.WarnContext(ctx, "schedule already firing")
		outcome.Skipped = true
		return outcome, nil
	}
	defer h.release(id)

	schedule, err := h.schedules.GetSchedule(ctx, id)
	if errors.Is(err, persistence.ErrNotFound) {
		logger.InfoContext(ctx, "schedule gone, ignoring wake-up")
		outcome.Skipped = true
		return outcome, nil
	}
	if err != nil {
		logger.ErrorContext(ctx, "load schedule failed", "error", err)
		return outcome, err
	}
	if !schedule.IsEnabled {
		logger.InfoContext(ctx, "schedule disabled, ignoring wake-up")
		outcome.Skipped = true
		return outcome, nil
	}

	firedAt := h.now()
	expired := false
	for _, command := range schedule.Commands {
		outcome.Dispatched++
		if err := h.dispatcher.Dispatch(ctx, schedule.HouseID, command); err != nil {
			logger.WarnContext(ctx, "dispatch failed",
				"peripheral_id", command.PeripheralID,
				"command", command.Command,
				"error", err,
			)
			outcome.Failures = append(outcome.Failures, err)
			if h.sessionExpired != nil && h.sessionExpired(err) {
				expired = true
			}
		}
	}

	ctx = context.WithoutCancel(ctx)
	var errs []error
	if schedule.IsRecurring() {
		next, err := h.engine.Next(h.engine.OnDate(firedAt, schedule.DateTime), schedule.RecurringDays)
		if err == nil {
			err = h.reschedule(ctx, id, next)
		}
		if err != nil {
			logger.ErrorContext(ctx, "reschedule failed", "error", err)
			errs = append(errs, err)
		} else {
			outcome.NextAt = next
		}
	} else {
		if err := h.schedules.DeleteSchedule(ctx, id); err != nil {
			logger.ErrorContext(ctx, "delete one-shot schedule failed", "error", err)
			errs = append(errs, err)
		} else {
			outcome.Deleted = true
		}
	}

	var event persistence.NotificationEvent
	if expired {
		event, err = h.recorder.Record(ctx, notify.TitleSkipped, notify.ContentSessionEnded, false)
	} else {
		event, err = h.recorder.RecordOutcome(ctx, schedule.HouseID, outcome.Dispatched, len(outcome.Failures))
	}
	if err != nil {
		logger.ErrorContext(ctx, "record notification failed", "error", err)
		errs = append(errs, err)
	}
	outcome.Event = event

	logger.InfoContext(ctx, "schedule fired",
		"house_id", schedule.HouseID,
		"dispatched", outcome.Dispatched,
		"failed", len(outcome.Failures),
		"next_at", outcome.NextAt,
		"deleted", outcome.Deleted,
	)
	return outcome, errors.Join(errs...)
}

func (h *Handler) reschedule(ctx context.Context, id int64, next time.Time) error {
	if err := h.schedules.UpdateScheduleDateTime(ctx, id, next); err != nil {
		return err
	}
	return h.timer.Schedule(id, next)
}

func (h *Handler) acquire(id int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, busy := h.inFlight[id]; busy {
		return false
	}
	h.inFlight[id] = struct{}{}
	return true
}

func (h *Handler) release(id int64) {
	h.mu.Lock()
	delete(h.inFlight, id)
	h.mu.Unlock()
}
