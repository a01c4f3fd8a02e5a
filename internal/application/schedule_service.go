package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/example/home-scheduler/internal/codec"
	"github.com/example/home-scheduler/internal/persistence"
	"github.com/example/home-scheduler/internal/recurrence"
	"github.com/example/home-scheduler/internal/remote"
	"github.com/example/home-scheduler/internal/scheduler"
	"github.com/example/home-scheduler/internal/trigger"
)

// previewCount is the number of upcoming firings listed for recurring schedules.
const previewCount = 3

// Trigger keeps timer registrations in step with schedule changes.
type Trigger interface {
	Arm(schedule persistence.Schedule) error
	Disarm(id int64)
	RunNow(ctx context.Context, id int64) *remote.Future[trigger.Outcome]
}

// ScheduleService orchestrates validation, persistence and timer registration
// for schedule operations.
type ScheduleService struct {
	schedules persistence.ScheduleRepository
	trigger   Trigger
	engine    *recurrence.Engine
	now       func() time.Time
	logger    *slog.Logger
}

// NewScheduleService wires dependencies for schedule operations.
func NewScheduleService(schedules persistence.ScheduleRepository, trig Trigger, engine *recurrence.Engine, now func() time.Time) *ScheduleService {
	return NewScheduleServiceWithLogger(schedules, trig, engine, now, nil)
}

// NewScheduleServiceWithLogger wires dependencies with a specified logger.
func NewScheduleServiceWithLogger(schedules persistence.ScheduleRepository, trig Trigger, engine *recurrence.Engine, now func() time.Time, logger *slog.Logger) *ScheduleService {
	if engine == nil {
		engine = recurrence.NewEngine(nil)
	}
	if now == nil {
		now = time.Now
	}
	return &ScheduleService{
		schedules: schedules,
		trigger:   trig,
		engine:    engine,
		now:       now,
		logger:    defaultLogger(logger),
	}
}

func (s *ScheduleService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ScheduleService", operation, attrs...)
}

// CreateSchedule validates the request, persists it and arms its timer.
// Conflict warnings are advisory; creation still succeeds.
func (s *ScheduleService) CreateSchedule(ctx context.Context, input ScheduleInput) (view ScheduleView, warnings []ConflictWarning, err error) {
	if s == nil || s.schedules == nil {
		err = fmt.Errorf("schedule repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateSchedule", "house_id", input.HouseID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create schedule", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("schedule_id", view.ID, "warnings", len(warnings)).InfoContext(ctx, "schedule created")
	}()

	schedule, vErr := buildSchedule(input, s.engine.Location())
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if !schedule.IsRecurring() && schedule.DateTime.Before(s.now()) {
		vErr = &ValidationError{}
		vErr.add("date_time", "a one-time schedule must be in the future")
		err = vErr
		return
	}
	if schedule.DateTime, err = s.firstOccurrence(schedule); err != nil {
		return
	}

	existing, err := s.schedules.ListSchedules(ctx)
	if err != nil {
		err = mapScheduleRepoError(err)
		return
	}
	warnings = toConflictWarnings(scheduler.DetectConflicts(existing, schedule))

	id, err := s.schedules.CreateSchedule(ctx, schedule)
	if err != nil {
		err = mapScheduleRepoError(err)
		return
	}
	schedule.ID = id

	if s.trigger != nil {
		if err = s.trigger.Arm(schedule); err != nil {
			return
		}
	}

	view = s.toView(schedule)
	return
}

// GetSchedule returns a single schedule.
func (s *ScheduleService) GetSchedule(ctx context.Context, id int64) (ScheduleView, error) {
	if s == nil || s.schedules == nil {
		return ScheduleView{}, fmt.Errorf("schedule repository not configured")
	}
	schedule, err := s.schedules.GetSchedule(ctx, id)
	if err != nil {
		return ScheduleView{}, mapScheduleRepoError(err)
	}
	return s.toView(schedule), nil
}

// ListSchedules returns every readable schedule ordered by time of day.
func (s *ScheduleService) ListSchedules(ctx context.Context) ([]ScheduleView, error) {
	if s == nil || s.schedules == nil {
		return nil, fmt.Errorf("schedule repository not configured")
	}
	schedules, err := s.schedules.ListSchedules(ctx)
	if err != nil {
		return nil, mapScheduleRepoError(err)
	}
	views := make([]ScheduleView, 0, len(schedules))
	for _, schedule := range schedules {
		views = append(views, s.toView(schedule))
	}
	return views, nil
}

// UpdateDateTime moves a schedule and re-arms it.
func (s *ScheduleService) UpdateDateTime(ctx context.Context, id int64, dateTime time.Time) (view ScheduleView, err error) {
	if s == nil || s.schedules == nil {
		err = fmt.Errorf("schedule repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateDateTime", "schedule_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update schedule", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("date_time", view.DateTime).InfoContext(ctx, "schedule moved")
	}()

	if dateTime.IsZero() {
		vErr := &ValidationError{}
		vErr.add("date_time", "date_time is required")
		err = vErr
		return
	}

	schedule, err := s.schedules.GetSchedule(ctx, id)
	if err != nil {
		err = mapScheduleRepoError(err)
		return
	}
	schedule.DateTime = dateTime.In(s.engine.Location()).Truncate(time.Second)
	if !schedule.IsRecurring() && schedule.DateTime.Before(s.now()) {
		vErr := &ValidationError{}
		vErr.add("date_time", "a one-time schedule must be in the future")
		err = vErr
		return
	}
	if schedule.DateTime, err = s.firstOccurrence(schedule); err != nil {
		return
	}

	if err = s.schedules.UpdateScheduleDateTime(ctx, id, schedule.DateTime); err != nil {
		err = mapScheduleRepoError(err)
		return
	}
	if s.trigger != nil {
		if err = s.trigger.Arm(schedule); err != nil {
			return
		}
	}
	view = s.toView(schedule)
	return
}

// SetEnabled toggles a schedule, arming or disarming its timer.
func (s *ScheduleService) SetEnabled(ctx context.Context, id int64, enabled bool) (view ScheduleView, err error) {
	if s == nil || s.schedules == nil {
		err = fmt.Errorf("schedule repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "SetEnabled", "schedule_id", id, "enabled", enabled)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to toggle schedule", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "schedule toggled")
	}()

	schedule, err := s.schedules.GetSchedule(ctx, id)
	if err != nil {
		err = mapScheduleRepoError(err)
		return
	}
	if enabled {
		var next time.Time
		if next, err = s.firstOccurrence(schedule); err != nil {
			return
		}
		if !next.Equal(schedule.DateTime) {
			if err = s.schedules.UpdateScheduleDateTime(ctx, id, next); err != nil {
				err = mapScheduleRepoError(err)
				return
			}
			schedule.DateTime = next
		}
	}
	if err = s.schedules.SetScheduleEnabled(ctx, id, enabled); err != nil {
		err = mapScheduleRepoError(err)
		return
	}
	schedule.IsEnabled = enabled

	if s.trigger != nil {
		if err = s.trigger.Arm(schedule); err != nil {
			return
		}
	}
	view = s.toView(schedule)
	return
}

// DeleteSchedule removes a schedule and cancels its timer. Deleting a missing
// schedule succeeds.
func (s *ScheduleService) DeleteSchedule(ctx context.Context, id int64) (err error) {
	if s == nil || s.schedules == nil {
		return fmt.Errorf("schedule repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteSchedule", "schedule_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete schedule", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "schedule deleted")
	}()

	if s.trigger != nil {
		s.trigger.Disarm(id)
	}
	if err = s.schedules.DeleteSchedule(ctx, id); err != nil {
		err = mapScheduleRepoError(err)
	}
	return
}

// RunNow fires a schedule immediately. The returned future completes when
// every command has been dispatched and bookkeeping is done.
func (s *ScheduleService) RunNow(ctx context.Context, id int64) *remote.Future[RunResult] {
	if s == nil || s.schedules == nil || s.trigger == nil {
		return remote.Resolved(RunResult{}, fmt.Errorf("schedule service not configured"))
	}
	if _, err := s.schedules.GetSchedule(ctx, id); err != nil {
		return remote.Resolved(RunResult{}, mapScheduleRepoError(err))
	}

	pending := s.trigger.RunNow(ctx, id)
	return remote.Async(context.WithoutCancel(ctx), func(ctx context.Context) (RunResult, error) {
		outcome, err := pending.Await(ctx)
		return RunResult{
			ScheduleID: outcome.ScheduleID,
			Dispatched: outcome.Dispatched,
			Failed:     len(outcome.Failures),
			NextAt:     outcome.NextAt,
			Deleted:    outcome.Deleted,
			Skipped:    outcome.Skipped,
		}, err
	})
}

// firstOccurrence returns the instant a recurring schedule should next fire:
// its DateTime when that is still ahead and on one of its days, otherwise the
// first matching day from today on at the same time of day. One-shot
// schedules keep their DateTime.
func (s *ScheduleService) firstOccurrence(schedule persistence.Schedule) (time.Time, error) {
	at := schedule.DateTime
	if !schedule.IsRecurring() {
		return at, nil
	}

	now := s.now()
	if !at.Before(now) && slices.Contains(schedule.RecurringDays, at.In(s.engine.Location()).Weekday()) {
		return at, nil
	}

	from := at
	if from.Before(now) {
		from = s.engine.OnDate(now, at)
	}
	next, err := s.engine.Next(from.AddDate(0, 0, -1), schedule.RecurringDays)
	for err == nil && next.Before(now) {
		next, err = s.engine.Next(next, schedule.RecurringDays)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("compute first occurrence: %w", err)
	}
	return next, nil
}

// toView attaches the upcoming firings. For a recurring schedule DateTime is
// the next firing and the rest follow from its weekday set.
func (s *ScheduleService) toView(schedule persistence.Schedule) ScheduleView {
	view := ScheduleView{Schedule: schedule}
	if !schedule.IsEnabled {
		return view
	}
	view.NextOccurrences = []time.Time{schedule.DateTime}
	if schedule.IsRecurring() {
		more, err := s.engine.Upcoming(schedule.DateTime, schedule.RecurringDays, previewCount-1)
		if err == nil {
			view.NextOccurrences = append(view.NextOccurrences, more...)
		}
	}
	return view
}

// buildSchedule validates input and converts it into a storable schedule.
func buildSchedule(input ScheduleInput, loc *time.Location) (persistence.Schedule, *ValidationError) {
	vErr := &ValidationError{}

	if input.DateTime.IsZero() {
		vErr.add("date_time", "date_time is required")
	}
	if input.HouseID <= 0 {
		vErr.add("house_id", "house_id must be positive")
	}
	if len(input.Commands) == 0 {
		vErr.add("commands", "at least one command is required")
	}

	commands := make([]persistence.ScheduleCommand, 0, len(input.Commands))
	for i, cmd := range input.Commands {
		field := fmt.Sprintf("commands[%d]", i)
		peripheralID := strings.TrimSpace(cmd.PeripheralID)
		peripheralType := strings.TrimSpace(cmd.PeripheralType)
		verb, ok := normalizeVerb(cmd.Command)
		switch {
		case peripheralID == "":
			vErr.add(field, "peripheral id is required")
		case peripheralType == "":
			vErr.add(field, "peripheral type is required")
		case !ok:
			vErr.add(field, fmt.Sprintf("unknown command %q", cmd.Command))
		}
		commands = append(commands, persistence.ScheduleCommand{
			PeripheralID:   peripheralID,
			PeripheralType: peripheralType,
			Command:        verb,
		})
	}

	days := make([]time.Weekday, 0, len(input.RecurringDays))
	for _, day := range input.RecurringDays {
		if day < int(time.Sunday) || day > int(time.Saturday) {
			vErr.add("recurring_days", "days must be between 0 (Sunday) and 6 (Saturday)")
			continue
		}
		days = append(days, time.Weekday(day))
	}

	if vErr.HasErrors() {
		return persistence.Schedule{}, vErr
	}

	enabled := true
	if input.IsEnabled != nil {
		enabled = *input.IsEnabled
	}
	schedule := persistence.Schedule{
		DateTime:  input.DateTime.In(loc).Truncate(time.Second),
		HouseID:   input.HouseID,
		Commands:  commands,
		IsEnabled: enabled,
	}
	if len(days) > 0 {
		schedule.RecurringDays = codec.NormalizeDays(days)
	}
	return schedule, nil
}

var knownVerbs = map[string]struct{}{
	VerbOpen:    {},
	VerbClose:   {},
	VerbStop:    {},
	VerbTurnOn:  {},
	VerbTurnOff: {},
}

func normalizeVerb(verb string) (string, bool) {
	normalized := strings.ToUpper(strings.Join(strings.Fields(verb), " "))
	_, ok := knownVerbs[normalized]
	return normalized, ok
}

func toConflictWarnings(conflicts []scheduler.Conflict) []ConflictWarning {
	if len(conflicts) == 0 {
		return nil
	}

	warnings := make([]ConflictWarning, 0, len(conflicts))
	for _, conflict := range conflicts {
		warnings = append(warnings, ConflictWarning{
			ScheduleID:   conflict.WithScheduleID,
			PeripheralID: conflict.PeripheralID,
			Command:      conflict.Command,
			OtherCommand: conflict.OtherCommand,
			Days:         append([]time.Weekday(nil), conflict.Days...),
		})
	}
	return warnings
}

func mapScheduleRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
