package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/home-scheduler/internal/persistence"
	"github.com/example/home-scheduler/internal/recurrence"
	"github.com/example/home-scheduler/internal/testfixtures"
	"github.com/example/home-scheduler/internal/trigger"
)

type scheduleEnv struct {
	harness    *testfixtures.SQLiteHarness
	clock      *testfixtures.Clock
	timer      *testfixtures.FakeTimer
	dispatcher *testfixtures.ScriptedDispatcher
	svc        *ScheduleService
}

func newScheduleEnv(t *testing.T) *scheduleEnv {
	t.Helper()

	env := &scheduleEnv{
		harness:    testfixtures.NewSQLiteHarness(t),
		clock:      testfixtures.NewClock(time.Date(2024, 6, 9, 12, 0, 0, 0, time.UTC)),
		timer:      testfixtures.NewFakeTimer(),
		dispatcher: testfixtures.NewScriptedDispatcher(),
	}
	engine := recurrence.NewEngine(time.UTC)
	notifier := testfixtures.NewServiceFactory(testfixtures.WithClock(env.clock)).NewNotifier(t, env.harness.Notifications)

	handler, err := trigger.NewHandler(env.harness.Schedules, env.dispatcher, notifier, env.timer, engine,
		trigger.WithHandlerClock(env.clock.NowFunc()),
		trigger.WithHandlerLogger(testfixtures.DiscardLogger()),
	)
	if err != nil {
		t.Fatalf("NewHandler returned error: %v", err)
	}
	trig, err := trigger.NewService(env.harness.Schedules, env.timer, handler, testfixtures.DiscardLogger())
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}

	env.svc = NewScheduleServiceWithLogger(env.harness.Schedules, trig, engine, env.clock.NowFunc(), testfixtures.DiscardLogger())
	return env
}

func validInput() ScheduleInput {
	return ScheduleInput{
		DateTime: time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC),
		HouseID:  1,
		Commands: []CommandInput{{PeripheralID: "1.1", PeripheralType: "light", Command: "TURN ON"}},
	}
}

func TestScheduleService_CreateSchedule_ValidatesInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*ScheduleInput)
		field  string
	}{
		{name: "missing date", mutate: func(in *ScheduleInput) { in.DateTime = time.Time{} }, field: "date_time"},
		{name: "house id", mutate: func(in *ScheduleInput) { in.HouseID = 0 }, field: "house_id"},
		{name: "no commands", mutate: func(in *ScheduleInput) { in.Commands = nil }, field: "commands"},
		{name: "unknown verb", mutate: func(in *ScheduleInput) { in.Commands[0].Command = "DANCE" }, field: "commands[0]"},
		{name: "missing peripheral", mutate: func(in *ScheduleInput) { in.Commands[0].PeripheralID = " " }, field: "commands[0]"},
		{name: "missing type", mutate: func(in *ScheduleInput) { in.Commands[0].PeripheralType = "" }, field: "commands[0]"},
		{name: "weekday out of range", mutate: func(in *ScheduleInput) { in.RecurringDays = []int{1, 7} }, field: "recurring_days"},
		{
			name:   "one-shot in the past",
			mutate: func(in *ScheduleInput) { in.DateTime = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC) },
			field:  "date_time",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			env := newScheduleEnv(t)
			input := validInput()
			tc.mutate(&input)

			_, _, err := env.svc.CreateSchedule(context.Background(), input)

			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if _, ok := vErr.FieldErrors[tc.field]; !ok {
				t.Fatalf("expected %s validation error, got %v", tc.field, vErr.FieldErrors)
			}
		})
	}
}

func TestScheduleService_CreateSchedule_NormalizesAndArms(t *testing.T) {
	t.Parallel()

	env := newScheduleEnv(t)
	input := validInput()
	input.Commands[0].Command = " turn   on "
	input.RecurringDays = []int{5, 1, 5}

	view, warnings, err := env.svc.CreateSchedule(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateSchedule returned error: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %+v", warnings)
	}
	if view.ID == 0 {
		t.Fatal("expected an assigned id")
	}
	if view.Commands[0].Command != VerbTurnOn {
		t.Fatalf("expected normalized verb, got %q", view.Commands[0].Command)
	}
	if len(view.RecurringDays) != 2 || view.RecurringDays[0] != time.Monday || view.RecurringDays[1] != time.Friday {
		t.Fatalf("unexpected recurring days %v", view.RecurringDays)
	}
	if armed, ok := env.timer.Armed(view.ID); !ok || !armed.Equal(input.DateTime) {
		t.Fatalf("expected timer armed at %v, got %v (%t)", input.DateTime, armed, ok)
	}
	want := []time.Time{
		time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 14, 8, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 17, 8, 0, 0, 0, time.UTC),
	}
	if len(view.NextOccurrences) != len(want) {
		t.Fatalf("expected %d occurrences, got %v", len(want), view.NextOccurrences)
	}
	for i := range want {
		if !view.NextOccurrences[i].Equal(want[i]) {
			t.Fatalf("occurrence %d: expected %v, got %v", i, want[i], view.NextOccurrences[i])
		}
	}
}

func TestScheduleService_CreateSchedule_RecurringStartsOnMatchingDay(t *testing.T) {
	t.Parallel()

	// The service clock reads Sunday 2024-06-09 12:00 UTC.
	tests := []struct {
		name     string
		dateTime time.Time
		days     []int
		want     time.Time
	}{
		{
			name:     "past date on another weekday",
			dateTime: time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC),
			days:     []int{3},
			want:     time.Date(2024, 6, 12, 8, 0, 0, 0, time.UTC),
		},
		{
			name:     "future date on another weekday",
			dateTime: time.Date(2024, 6, 11, 8, 0, 0, 0, time.UTC),
			days:     []int{5},
			want:     time.Date(2024, 6, 14, 8, 0, 0, 0, time.UTC),
		},
		{
			name:     "today with the time already passed",
			dateTime: time.Date(2024, 6, 9, 8, 0, 0, 0, time.UTC),
			days:     []int{0},
			want:     time.Date(2024, 6, 16, 8, 0, 0, 0, time.UTC),
		},
		{
			name:     "past date whose time is still ahead today",
			dateTime: time.Date(2024, 6, 2, 18, 0, 0, 0, time.UTC),
			days:     []int{0},
			want:     time.Date(2024, 6, 9, 18, 0, 0, 0, time.UTC),
		},
		{
			name:     "future date on a listed day is kept",
			dateTime: time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC),
			days:     []int{1},
			want:     time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			env := newScheduleEnv(t)
			input := validInput()
			input.DateTime = tc.dateTime
			input.RecurringDays = tc.days

			view, _, err := env.svc.CreateSchedule(context.Background(), input)
			if err != nil {
				t.Fatalf("CreateSchedule returned error: %v", err)
			}
			if !view.DateTime.Equal(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, view.DateTime)
			}
			stored, err := env.harness.Schedules.GetSchedule(context.Background(), view.ID)
			if err != nil || !stored.DateTime.Equal(tc.want) {
				t.Fatalf("expected stored date %v, got %v (%v)", tc.want, stored.DateTime, err)
			}
			if armed, ok := env.timer.Armed(view.ID); !ok || !armed.Equal(tc.want) {
				t.Fatalf("expected timer armed at %v, got %v (%t)", tc.want, armed, ok)
			}
		})
	}
}

func TestScheduleService_CreateSchedule_DisabledIsNotArmed(t *testing.T) {
	t.Parallel()

	env := newScheduleEnv(t)
	input := validInput()
	disabled := false
	input.IsEnabled = &disabled

	view, _, err := env.svc.CreateSchedule(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateSchedule returned error: %v", err)
	}
	if _, ok := env.timer.Armed(view.ID); ok {
		t.Fatal("disabled schedule must not be armed")
	}
	if view.NextOccurrences != nil {
		t.Fatalf("disabled schedule has no upcoming firings, got %v", view.NextOccurrences)
	}
}

func TestScheduleService_CreateSchedule_ReportsConflicts(t *testing.T) {
	t.Parallel()

	env := newScheduleEnv(t)
	ctx := context.Background()

	first := validInput()
	first.Commands = []CommandInput{{PeripheralID: "1.4", PeripheralType: "shutter", Command: "OPEN"}}
	existing, _, err := env.svc.CreateSchedule(ctx, first)
	if err != nil {
		t.Fatalf("CreateSchedule returned error: %v", err)
	}

	second := validInput()
	second.Commands = []CommandInput{{PeripheralID: "1.4", PeripheralType: "shutter", Command: "close"}}
	created, warnings, err := env.svc.CreateSchedule(ctx, second)
	if err != nil {
		t.Fatalf("conflicting schedule must still be created: %v", err)
	}
	if created.ID == 0 || len(warnings) != 1 {
		t.Fatalf("expected one warning, got %+v", warnings)
	}
	if warnings[0].ScheduleID != existing.ID || warnings[0].OtherCommand != VerbOpen || warnings[0].Command != VerbClose {
		t.Fatalf("unexpected warning %+v", warnings[0])
	}
}

func TestScheduleService_EndToEndOneShotFiring(t *testing.T) {
	t.Parallel()

	env := newScheduleEnv(t)
	ctx := context.Background()

	view, _, err := env.svc.CreateSchedule(ctx, validInput())
	if err != nil {
		t.Fatalf("CreateSchedule returned error: %v", err)
	}

	env.clock.Set(view.DateTime)
	env.timer.Fire(ctx, view.ID)

	calls := env.dispatcher.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected one dispatch, got %d", len(calls))
	}
	if calls[0].HouseID != 1 || calls[0].Command.PeripheralID != "1.1" || calls[0].Command.Command != "TURN ON" {
		t.Fatalf("unexpected dispatch %+v", calls[0])
	}
	if _, err := env.svc.GetSchedule(ctx, view.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected schedule to be gone, got %v", err)
	}
}

func TestScheduleService_SetEnabled(t *testing.T) {
	t.Parallel()

	env := newScheduleEnv(t)
	ctx := context.Background()
	view, _, err := env.svc.CreateSchedule(ctx, validInput())
	if err != nil {
		t.Fatalf("CreateSchedule returned error: %v", err)
	}

	if _, err := env.svc.SetEnabled(ctx, view.ID, false); err != nil {
		t.Fatalf("SetEnabled returned error: %v", err)
	}
	if _, ok := env.timer.Armed(view.ID); ok {
		t.Fatal("expected timer to be cancelled")
	}

	// A stale wake-up after disabling must not dispatch.
	env.timer.Fire(ctx, view.ID)
	if len(env.dispatcher.Calls()) != 0 {
		t.Fatal("disabled schedule dispatched commands")
	}

	enabled, err := env.svc.SetEnabled(ctx, view.ID, true)
	if err != nil {
		t.Fatalf("SetEnabled returned error: %v", err)
	}
	if !enabled.IsEnabled {
		t.Fatal("expected schedule to be enabled")
	}
	if _, ok := env.timer.Armed(view.ID); !ok {
		t.Fatal("expected timer to be re-armed")
	}

	if _, err := env.svc.SetEnabled(ctx, 999, true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestScheduleService_UpdateDateTime(t *testing.T) {
	t.Parallel()

	env := newScheduleEnv(t)
	ctx := context.Background()
	view, _, err := env.svc.CreateSchedule(ctx, validInput())
	if err != nil {
		t.Fatalf("CreateSchedule returned error: %v", err)
	}

	moved := time.Date(2024, 6, 11, 21, 30, 0, 0, time.UTC)
	updated, err := env.svc.UpdateDateTime(ctx, view.ID, moved)
	if err != nil {
		t.Fatalf("UpdateDateTime returned error: %v", err)
	}
	if !updated.DateTime.Equal(moved) {
		t.Fatalf("expected %v, got %v", moved, updated.DateTime)
	}
	if armed, _ := env.timer.Armed(view.ID); !armed.Equal(moved) {
		t.Fatalf("expected timer re-armed at %v, got %v", moved, armed)
	}
	stored, err := env.harness.Schedules.GetSchedule(ctx, view.ID)
	if err != nil || !stored.DateTime.Equal(moved) {
		t.Fatalf("expected stored date %v, got %v (%v)", moved, stored.DateTime, err)
	}

	if _, err := env.svc.UpdateDateTime(ctx, 999, moved); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var vErr *ValidationError
	if _, err := env.svc.UpdateDateTime(ctx, view.ID, time.Time{}); !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestScheduleService_UpdateDateTime_RecurringMovesToMatchingDay(t *testing.T) {
	t.Parallel()

	env := newScheduleEnv(t)
	ctx := context.Background()
	input := validInput()
	input.RecurringDays = []int{1}
	view, _, err := env.svc.CreateSchedule(ctx, input)
	if err != nil {
		t.Fatalf("CreateSchedule returned error: %v", err)
	}

	updated, err := env.svc.UpdateDateTime(ctx, view.ID, time.Date(2024, 6, 1, 7, 15, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("UpdateDateTime returned error: %v", err)
	}
	want := time.Date(2024, 6, 10, 7, 15, 0, 0, time.UTC)
	if !updated.DateTime.Equal(want) {
		t.Fatalf("expected %v, got %v", want, updated.DateTime)
	}
	if armed, _ := env.timer.Armed(view.ID); !armed.Equal(want) {
		t.Fatalf("expected timer armed at %v, got %v", want, armed)
	}
}

func TestScheduleService_SetEnabled_RecurringSkipsMissedDays(t *testing.T) {
	t.Parallel()

	env := newScheduleEnv(t)
	ctx := context.Background()
	input := validInput()
	input.RecurringDays = []int{1}
	view, _, err := env.svc.CreateSchedule(ctx, input)
	if err != nil {
		t.Fatalf("CreateSchedule returned error: %v", err)
	}
	if _, err := env.svc.SetEnabled(ctx, view.ID, false); err != nil {
		t.Fatalf("SetEnabled returned error: %v", err)
	}

	// Re-enabled on Wednesday after the Monday firing was missed.
	env.clock.Set(time.Date(2024, 6, 12, 9, 0, 0, 0, time.UTC))
	enabled, err := env.svc.SetEnabled(ctx, view.ID, true)
	if err != nil {
		t.Fatalf("SetEnabled returned error: %v", err)
	}

	want := time.Date(2024, 6, 17, 8, 0, 0, 0, time.UTC)
	if !enabled.DateTime.Equal(want) {
		t.Fatalf("expected %v, got %v", want, enabled.DateTime)
	}
	stored, err := env.harness.Schedules.GetSchedule(ctx, view.ID)
	if err != nil || !stored.DateTime.Equal(want) || !stored.IsEnabled {
		t.Fatalf("expected enabled schedule stored at %v, got %+v (%v)", want, stored, err)
	}
	if armed, ok := env.timer.Armed(view.ID); !ok || !armed.Equal(want) {
		t.Fatalf("expected timer armed at %v, got %v (%t)", want, armed, ok)
	}
}

func TestScheduleService_DeleteSchedule(t *testing.T) {
	t.Parallel()

	env := newScheduleEnv(t)
	ctx := context.Background()
	view, _, err := env.svc.CreateSchedule(ctx, validInput())
	if err != nil {
		t.Fatalf("CreateSchedule returned error: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := env.svc.DeleteSchedule(ctx, view.ID); err != nil {
			t.Fatalf("DeleteSchedule attempt %d returned error: %v", i+1, err)
		}
	}
	if _, ok := env.timer.Armed(view.ID); ok {
		t.Fatal("expected timer to be cancelled")
	}
	if _, err := env.svc.GetSchedule(ctx, view.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestScheduleService_ListSchedules_OrdersByTimeOfDay(t *testing.T) {
	t.Parallel()

	env := newScheduleEnv(t)
	ctx := context.Background()

	late := validInput()
	late.DateTime = time.Date(2024, 6, 10, 22, 0, 0, 0, time.UTC)
	early := validInput()
	early.DateTime = time.Date(2024, 6, 20, 8, 0, 0, 0, time.UTC)

	for _, input := range []ScheduleInput{late, early} {
		if _, _, err := env.svc.CreateSchedule(ctx, input); err != nil {
			t.Fatalf("CreateSchedule returned error: %v", err)
		}
	}

	views, err := env.svc.ListSchedules(ctx)
	if err != nil {
		t.Fatalf("ListSchedules returned error: %v", err)
	}
	if len(views) != 2 || views[0].DateTime.Hour() != 8 || views[1].DateTime.Hour() != 22 {
		t.Fatalf("unexpected order %+v", views)
	}
}

func TestScheduleService_RunNow(t *testing.T) {
	t.Parallel()

	env := newScheduleEnv(t)
	ctx := context.Background()
	input := validInput()
	input.Commands = append(input.Commands, CommandInput{PeripheralID: "1.9", PeripheralType: "garage", Command: "CLOSE"})
	env.dispatcher.FailPeripheral("1.9", nil)

	view, _, err := env.svc.CreateSchedule(ctx, input)
	if err != nil {
		t.Fatalf("CreateSchedule returned error: %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	result, err := env.svc.RunNow(ctx, view.ID).Await(waitCtx)
	if err != nil {
		t.Fatalf("RunNow returned error: %v", err)
	}
	if result.Dispatched != 2 || result.Failed != 1 || !result.Deleted {
		t.Fatalf("unexpected result %+v", result)
	}

	if _, err := env.svc.RunNow(ctx, view.ID).Await(waitCtx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a deleted schedule, got %v", err)
	}
}

func TestMapScheduleRepoError(t *testing.T) {
	t.Parallel()

	if err := mapScheduleRepoError(persistence.ErrNotFound); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	storage := persistence.NewStorageError("insert schedule", errors.New("disk full"))
	if err := mapScheduleRepoError(storage); err != storage {
		t.Fatalf("expected storage error to pass through, got %v", err)
	}
	if mapScheduleRepoError(nil) != nil {
		t.Fatal("expected nil")
	}
}
