package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/home-scheduler/internal/persistence"
)

var peripheralCounter uint64

var referenceTime = time.Date(2024, time.June, 10, 8, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
// It falls on a Monday.
func ReferenceTime() time.Time {
	return referenceTime
}

// ScheduleOption configures a generated schedule.
type ScheduleOption func(*persistence.Schedule)

// NewSchedule returns an enabled one-shot schedule for house 1 at
// ReferenceTime with a single command, adjusted by opts.
func NewSchedule(opts ...ScheduleOption) persistence.Schedule {
	schedule := persistence.Schedule{
		DateTime:  referenceTime,
		HouseID:   1,
		Commands:  []persistence.ScheduleCommand{NewCommand("light", "TURN ON")},
		IsEnabled: true,
	}
	for _, opt := range opts {
		opt(&schedule)
	}
	return schedule
}

// WithScheduleID sets the schedule id.
func WithScheduleID(id int64) ScheduleOption {
	return func(s *persistence.Schedule) {
		s.ID = id
	}
}

// WithDateTime sets the firing instant.
func WithDateTime(t time.Time) ScheduleOption {
	return func(s *persistence.Schedule) {
		s.DateTime = t
	}
}

// WithHouse sets the target house.
func WithHouse(houseID int64) ScheduleOption {
	return func(s *persistence.Schedule) {
		s.HouseID = houseID
	}
}

// WithCommands replaces the command list.
func WithCommands(commands ...persistence.ScheduleCommand) ScheduleOption {
	return func(s *persistence.Schedule) {
		s.Commands = append([]persistence.ScheduleCommand(nil), commands...)
	}
}

// WithRecurringDays makes the schedule recurring on days.
func WithRecurringDays(days ...time.Weekday) ScheduleOption {
	return func(s *persistence.Schedule) {
		s.RecurringDays = append([]time.Weekday(nil), days...)
	}
}

// Disabled marks the schedule as disabled.
func Disabled() ScheduleOption {
	return func(s *persistence.Schedule) {
		s.IsEnabled = false
	}
}

// NewCommand returns a command for a freshly numbered peripheral of
// peripheralType.
func NewCommand(peripheralType, verb string) persistence.ScheduleCommand {
	idx := atomic.AddUint64(&peripheralCounter, 1)
	return persistence.ScheduleCommand{
		PeripheralID:   fmt.Sprintf("1.%d", idx),
		PeripheralType: peripheralType,
		Command:        verb,
	}
}

// Command returns a command for an explicit peripheral.
func Command(peripheralID, peripheralType, verb string) persistence.ScheduleCommand {
	return persistence.ScheduleCommand{
		PeripheralID:   peripheralID,
		PeripheralType: peripheralType,
		Command:        verb,
	}
}

// At returns ReferenceTime's date with the given time of day.
func At(hour, minute int) time.Time {
	return time.Date(referenceTime.Year(), referenceTime.Month(), referenceTime.Day(), hour, minute, 0, 0, time.UTC)
}
