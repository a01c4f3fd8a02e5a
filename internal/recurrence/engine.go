package recurrence

import (
	"errors"
	"time"
)

// daysPerWeek bounds the search for the next matching weekday.
const daysPerWeek = 7

// ErrNoWeekdays indicates that a weekday set is empty or holds no valid day.
var ErrNoWeekdays = errors.New("recurrence: weekday set is empty")

// Engine computes weekday-based occurrences of a schedule.
type Engine struct {
	location *time.Location
}

// NewEngine constructs an Engine that evaluates dates and times of day in loc.
// If loc is nil, time.Local is used.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{location: loc}
}

// Location returns the zone the engine evaluates dates in.
func (e *Engine) Location() *time.Location {
	if e == nil || e.location == nil {
		return time.Local
	}
	return e.location
}

// Next returns the first occurrence strictly after the calendar date of from
// whose weekday is in days, keeping the time-of-day of from.
//
// When days holds only the weekday of from, the result is exactly one week
// later.
func (e *Engine) Next(from time.Time, days []time.Weekday) (time.Time, error) {
	set := weekdaySet(days)
	if len(set) == 0 {
		return time.Time{}, ErrNoWeekdays
	}

	loc := e.Location()
	from = from.In(loc)
	for offset := 1; offset <= daysPerWeek; offset++ {
		candidate := combineDateTime(from.AddDate(0, 0, offset), from, loc)
		if _, ok := set[candidate.Weekday()]; ok {
			return candidate, nil
		}
	}
	return time.Time{}, ErrNoWeekdays
}

// Upcoming lists the next n occurrences after from. It is used to preview a
// recurring schedule; n <= 0 yields nil.
func (e *Engine) Upcoming(from time.Time, days []time.Weekday, n int) ([]time.Time, error) {
	if n <= 0 {
		return nil, nil
	}

	occurrences := make([]time.Time, 0, n)
	current := from
	for len(occurrences) < n {
		next, err := e.Next(current, days)
		if err != nil {
			return nil, err
		}
		occurrences = append(occurrences, next)
		current = next
	}
	return occurrences, nil
}

// OnDate returns template's time-of-day placed on the calendar date of day.
func (e *Engine) OnDate(day, template time.Time) time.Time {
	return combineDateTime(day, template, e.Location())
}

func weekdaySet(days []time.Weekday) map[time.Weekday]struct{} {
	set := make(map[time.Weekday]struct{}, len(days))
	for _, day := range days {
		if day < time.Sunday || day > time.Saturday {
			continue
		}
		set[day] = struct{}{}
	}
	return set
}

func combineDateTime(dateSource, template time.Time, loc *time.Location) time.Time {
	y, m, d := dateSource.In(loc).Date()
	clock := template.In(loc)
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), clock.Second(), clock.Nanosecond(), loc)
}
