package persistence

import "time"

// ScheduleCommand is a single verb sent to a peripheral when a schedule fires.
type ScheduleCommand struct {
	PeripheralID   string
	PeripheralType string
	Command        string
}

// Schedule is a persisted intent to send commands to peripherals of a house.
//
// For recurring schedules only the time-of-day of DateTime is stable; the date
// holds the most recently computed occurrence.
type Schedule struct {
	ID            int64
	DateTime      time.Time
	HouseID       int64
	Commands      []ScheduleCommand
	RecurringDays []time.Weekday
	IsEnabled     bool
}

// IsRecurring reports whether the schedule repeats on at least one weekday.
func (s Schedule) IsRecurring() bool {
	return len(s.RecurringDays) > 0
}

// Clone returns a deep copy so callers never share slices with the store.
func (s Schedule) Clone() Schedule {
	clone := s
	if s.Commands != nil {
		clone.Commands = append([]ScheduleCommand(nil), s.Commands...)
	}
	if s.RecurringDays != nil {
		clone.RecurringDays = append([]time.Weekday(nil), s.RecurringDays...)
	}
	return clone
}

// NotificationEvent records the outcome of a schedule firing. Title and
// Content are always stored in the canonical language.
type NotificationEvent struct {
	ID        string
	Title     string
	Content   string
	Timestamp time.Time
	Success   bool
}
