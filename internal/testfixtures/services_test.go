package testfixtures

import (
	"context"
	"testing"
)

func TestServiceFactoryNewNotifier(t *testing.T) {
	factory := NewServiceFactory()
	harness := NewSQLiteHarness(t)

	svc := factory.NewNotifier(t, harness.Notifications)

	event, err := svc.RecordOutcome(context.Background(), 1, 2, 0)
	if err != nil {
		t.Fatalf("RecordOutcome returned error: %v", err)
	}
	if event.ID != "evt-1" {
		t.Fatalf("expected generated ID evt-1, got %q", event.ID)
	}
	if !event.Timestamp.Equal(factory.Clock.Now()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Now(), event.Timestamp)
	}

	stored, err := svc.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(stored) != 1 || stored[0].ID != event.ID {
		t.Fatalf("unexpected stored events %+v", stored)
	}
}

func TestScriptedDispatcherFailsScriptedPeripheral(t *testing.T) {
	dispatcher := NewScriptedDispatcher()
	dispatcher.FailPeripheral("1.2", nil)

	ok := dispatcher.Dispatch(context.Background(), 1, Command("1.1", "light", "TURN ON"))
	failed := dispatcher.Dispatch(context.Background(), 1, Command("1.2", "light", "TURN OFF"))

	if ok != nil || failed != ErrScriptedFailure {
		t.Fatalf("unexpected results %v, %v", ok, failed)
	}
	if calls := dispatcher.Calls(); len(calls) != 2 || calls[1].Command.PeripheralID != "1.2" {
		t.Fatalf("unexpected calls %+v", calls)
	}
}

func TestFakeTimerFireDisarms(t *testing.T) {
	timer := NewFakeTimer()
	var fired []int64
	timer.OnFire(func(_ context.Context, id int64) { fired = append(fired, id) })

	if err := timer.Schedule(3, ReferenceTime()); err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}
	timer.Fire(context.Background(), 3)

	if _, ok := timer.Armed(3); ok {
		t.Fatal("expected timer to be disarmed after firing")
	}
	if len(fired) != 1 || fired[0] != 3 {
		t.Fatalf("unexpected fired ids %v", fired)
	}
}
