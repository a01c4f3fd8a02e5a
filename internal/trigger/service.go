package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/example/home-scheduler/internal/persistence"
	"github.com/example/home-scheduler/internal/remote"
)

// Service keeps the timer in step with the schedule store.
type Service struct {
	schedules persistence.ScheduleRepository
	timer     TimerPort
	handler   *Handler
	logger    *slog.Logger
}

// NewService connects handler to timer so that every wake-up runs
// handler.Fire.
func NewService(schedules persistence.ScheduleRepository, timer TimerPort, handler *Handler, logger *slog.Logger) (*Service, error) {
	if schedules == nil || timer == nil || handler == nil {
		return nil, errors.New("trigger: schedules, timer and handler are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	svc := &Service{
		schedules: schedules,
		timer:     timer,
		handler:   handler,
		logger:    logger.With("component", "trigger"),
	}
	timer.OnFire(svc.onFire)
	return svc, nil
}

func (s *Service) onFire(ctx context.Context, id int64) {
	if _, err := s.handler.Fire(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "firing completed with errors", "schedule_id", id, "error", err)
	}
}

// Arm registers schedule with the timer when it is enabled and disarms it
// otherwise.
func (s *Service) Arm(schedule persistence.Schedule) error {
	if !schedule.IsEnabled {
		s.timer.Cancel(schedule.ID)
		return nil
	}
	if err := s.timer.Schedule(schedule.ID, schedule.DateTime); err != nil {
		return fmt.Errorf("trigger: arm schedule %d: %w", schedule.ID, err)
	}
	return nil
}

// Disarm cancels any pending wake-up for id.
func (s *Service) Disarm(id int64) {
	s.timer.Cancel(id)
}

// RearmAll registers every enabled schedule. It runs at start-up, when no
// timer registrations survive from the previous process. Past-due schedules
// fire immediately.
func (s *Service) RearmAll(ctx context.Context) (int, error) {
	schedules, err := s.schedules.ListSchedules(ctx)
	if err != nil {
		return 0, err
	}

	armed := 0
	var errs []error
	for _, schedule := range schedules {
		if !schedule.IsEnabled {
			continue
		}
		if err := s.Arm(schedule); err != nil {
			errs = append(errs, err)
			continue
		}
		armed++
	}
	s.logger.InfoContext(ctx, "schedules re-armed", "armed", armed, "total", len(schedules))
	return armed, errors.Join(errs...)
}

// RunNow fires id immediately, independent of its timer registration. The
// firing outlives ctx so that a caller may stop waiting without aborting it.
func (s *Service) RunNow(ctx context.Context, id int64) *remote.Future[Outcome] {
	return remote.Async(context.WithoutCancel(ctx), func(ctx context.Context) (Outcome, error) {
		return s.handler.Fire(ctx, id)
	})
}
