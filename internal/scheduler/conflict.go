package scheduler

import (
	"sort"
	"time"

	"github.com/example/home-scheduler/internal/persistence"
)

// Conflict details a pair of schedules that drive the same peripheral in
// opposite directions at the same moment.
type Conflict struct {
	WithScheduleID int64
	PeripheralID   string
	Command        string
	OtherCommand   string
	Days           []time.Weekday
}

// DetectConflicts reports schedules of the candidate's house that fire at the
// same time-of-day (minute precision) on a common day and send a different
// command to a common peripheral. The candidate itself, matched by ID, and
// disabled schedules are ignored.
func DetectConflicts(existing []persistence.Schedule, candidate persistence.Schedule) []Conflict {
	if !candidate.IsEnabled {
		return nil
	}
	candidateDays := firingDays(candidate)
	candidateMinute := minuteOfDay(candidate.DateTime)

	var conflicts []Conflict
	for _, other := range existing {
		if !other.IsEnabled || other.HouseID != candidate.HouseID {
			continue
		}
		if candidate.ID != 0 && other.ID == candidate.ID {
			continue
		}
		if minuteOfDay(other.DateTime) != candidateMinute {
			continue
		}
		if !candidate.IsRecurring() && !other.IsRecurring() && !sameDate(candidate.DateTime, other.DateTime) {
			continue
		}
		common := intersectDays(candidateDays, firingDays(other))
		if len(common) == 0 {
			continue
		}
		for _, cmd := range candidate.Commands {
			for _, otherCmd := range other.Commands {
				if cmd.PeripheralID != otherCmd.PeripheralID || cmd.Command == otherCmd.Command {
					continue
				}
				conflicts = append(conflicts, Conflict{
					WithScheduleID: other.ID,
					PeripheralID:   cmd.PeripheralID,
					Command:        cmd.Command,
					OtherCommand:   otherCmd.Command,
					Days:           common,
				})
			}
		}
	}
	return conflicts
}

// firingDays returns the weekdays a schedule fires on. A one-shot schedule
// fires on the weekday of its date.
func firingDays(s persistence.Schedule) map[time.Weekday]struct{} {
	days := make(map[time.Weekday]struct{}, 7)
	if !s.IsRecurring() {
		days[s.DateTime.Weekday()] = struct{}{}
		return days
	}
	for _, day := range s.RecurringDays {
		days[day] = struct{}{}
	}
	return days
}

func intersectDays(a, b map[time.Weekday]struct{}) []time.Weekday {
	var common []time.Weekday
	for day := range a {
		if _, ok := b[day]; ok {
			common = append(common, day)
		}
	}
	sort.Slice(common, func(i, j int) bool { return common[i] < common[j] })
	return common
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
