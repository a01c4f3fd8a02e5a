package application

import (
	"time"

	"github.com/example/home-scheduler/internal/persistence"
)

// Known command verbs.
const (
	VerbOpen    = "OPEN"
	VerbClose   = "CLOSE"
	VerbStop    = "STOP"
	VerbTurnOn  = "TURN ON"
	VerbTurnOff = "TURN OFF"
)

// CommandInput captures one caller provided command.
type CommandInput struct {
	PeripheralID   string
	PeripheralType string
	Command        string
}

// ScheduleInput captures caller provided schedule fields. A nil IsEnabled
// means enabled.
type ScheduleInput struct {
	DateTime      time.Time
	HouseID       int64
	Commands      []CommandInput
	RecurringDays []int
	IsEnabled     *bool
}

// ScheduleView is a schedule with a preview of its upcoming firings.
type ScheduleView struct {
	persistence.Schedule
	NextOccurrences []time.Time
}

// ConflictWarning describes a scheduling conflict that should be surfaced to callers.
type ConflictWarning struct {
	ScheduleID   int64
	PeripheralID string
	Command      string
	OtherCommand string
	Days         []time.Weekday
}

// RunResult is the outcome of a manual run.
type RunResult struct {
	ScheduleID int64
	Dispatched int
	Failed     int
	NextAt     time.Time
	Deleted    bool
	Skipped    bool
}

// SessionStatus describes the remote API session.
type SessionStatus struct {
	SignedIn  bool
	Expired   bool
	Email     string
	ExpiresAt *time.Time
}

// PreferencesInput carries a partial preferences update. Nil fields are left
// unchanged.
type PreferencesInput struct {
	Language *string
	Theme    *string
	HouseID  *int64
}

// Notification is a notification event rendered in a display language.
type Notification struct {
	ID        string
	Title     string
	Content   string
	Timestamp time.Time
	Success   bool
	Language  string
}
