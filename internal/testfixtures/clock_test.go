package testfixtures

import (
	"testing"
	"time"
)

func TestClock(t *testing.T) {
	t.Parallel()

	monday := time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		start time.Time
		drive func(*Clock)
		want  time.Time
	}{
		{name: "zero start uses reference time", drive: func(*Clock) {}, want: ReferenceTime()},
		{name: "advance", start: monday, drive: func(c *Clock) { c.Advance(90 * time.Minute) }, want: monday.Add(90 * time.Minute)},
		{name: "set to a firing", start: monday, drive: func(c *Clock) { c.Set(monday.AddDate(0, 0, 7)) }, want: monday.AddDate(0, 0, 7)},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			clock := NewClock(tc.start)
			now := clock.NowFunc()
			tc.drive(clock)
			if got := now(); !got.Equal(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestClockNowFuncOnNilClock(t *testing.T) {
	t.Parallel()

	var clock *Clock
	if got := clock.NowFunc()(); got.IsZero() {
		t.Fatal("expected wall-clock time from a nil clock")
	}
}
