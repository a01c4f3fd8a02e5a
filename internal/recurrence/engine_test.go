package recurrence

import (
	"errors"
	"testing"
	"time"
)

func TestEngine_Next(t *testing.T) {
	t.Parallel()

	engine := NewEngine(time.UTC)
	// 2024-06-10 is a Monday.
	monday := time.Date(2024, time.June, 10, 8, 0, 0, 0, time.UTC)
	wednesday := time.Date(2024, time.June, 12, 21, 15, 30, 0, time.UTC)

	tests := []struct {
		name string
		from time.Time
		days []time.Weekday
		want time.Time
	}{
		{
			name: "same weekday only advances one week",
			from: wednesday,
			days: []time.Weekday{time.Wednesday},
			want: time.Date(2024, time.June, 19, 21, 15, 30, 0, time.UTC),
		},
		{
			name: "monday to wednesday of the same week",
			from: monday,
			days: []time.Weekday{time.Wednesday, time.Friday},
			want: time.Date(2024, time.June, 12, 8, 0, 0, 0, time.UTC),
		},
		{
			name: "wraps into next week",
			from: time.Date(2024, time.June, 15, 6, 0, 0, 0, time.UTC),
			days: []time.Weekday{time.Monday, time.Tuesday},
			want: time.Date(2024, time.June, 17, 6, 0, 0, 0, time.UTC),
		},
		{
			name: "every day is tomorrow",
			from: monday,
			days: []time.Weekday{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday},
			want: time.Date(2024, time.June, 11, 8, 0, 0, 0, time.UTC),
		},
		{
			name: "crosses month boundary",
			from: time.Date(2024, time.January, 31, 7, 30, 0, 0, time.UTC),
			days: []time.Weekday{time.Friday},
			want: time.Date(2024, time.February, 2, 7, 30, 0, 0, time.UTC),
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := engine.Next(tc.from, tc.days)
			if err != nil {
				t.Fatalf("Next returned error: %v", err)
			}
			if !got.Equal(tc.want) {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestEngine_NextPreservesWallClockAcrossDST(t *testing.T) {
	t.Parallel()

	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	engine := NewEngine(paris)

	// Clocks move forward on Sunday 2024-03-31.
	from := time.Date(2024, time.March, 30, 8, 0, 0, 0, paris)
	got, err := engine.Next(from, []time.Weekday{time.Monday})
	if err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	if got.Hour() != 8 || got.Minute() != 0 || got.Day() != 1 || got.Month() != time.April {
		t.Fatalf("expected 2024-04-01 08:00 local, got %s", got)
	}
}

func TestEngine_NextRejectsEmptySet(t *testing.T) {
	t.Parallel()

	engine := NewEngine(time.UTC)
	for _, days := range [][]time.Weekday{nil, {}, {time.Weekday(9)}} {
		if _, err := engine.Next(time.Now(), days); !errors.Is(err, ErrNoWeekdays) {
			t.Fatalf("expected ErrNoWeekdays for %v, got %v", days, err)
		}
	}
}

func TestEngine_Upcoming(t *testing.T) {
	t.Parallel()

	engine := NewEngine(time.UTC)
	from := time.Date(2024, time.June, 10, 8, 0, 0, 0, time.UTC)

	got, err := engine.Upcoming(from, []time.Weekday{time.Monday, time.Thursday}, 4)
	if err != nil {
		t.Fatalf("Upcoming returned error: %v", err)
	}

	want := []time.Time{
		time.Date(2024, time.June, 13, 8, 0, 0, 0, time.UTC),
		time.Date(2024, time.June, 17, 8, 0, 0, 0, time.UTC),
		time.Date(2024, time.June, 20, 8, 0, 0, 0, time.UTC),
		time.Date(2024, time.June, 24, 8, 0, 0, 0, time.UTC),
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d occurrences, got %d", len(want), len(got))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("occurrence %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	if none, err := engine.Upcoming(from, []time.Weekday{time.Monday}, 0); err != nil || none != nil {
		t.Fatalf("expected nil for n=0, got %v (%v)", none, err)
	}
}

func TestEngine_OnDate(t *testing.T) {
	t.Parallel()

	engine := NewEngine(time.UTC)
	got := engine.OnDate(
		time.Date(2025, time.February, 3, 23, 59, 0, 0, time.UTC),
		time.Date(2020, time.July, 1, 6, 45, 0, 0, time.UTC),
	)
	want := time.Date(2025, time.February, 3, 6, 45, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}
