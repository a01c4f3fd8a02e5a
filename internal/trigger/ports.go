// Package trigger turns "a schedule's time has arrived" into command dispatch,
// rescheduling and a notification.
package trigger

import (
	"context"
	"time"

	"github.com/example/home-scheduler/internal/persistence"
)

// TimerPort registers wake-ups for schedules. Implementations may fire a
// cancelled id anyway; Handler.Fire re-checks the store before acting.
type TimerPort interface {
	Schedule(id int64, instant time.Time) error
	Cancel(id int64)
	OnFire(fn func(ctx context.Context, id int64))
}

// Dispatcher sends a single command to the remote home-automation API.
type Dispatcher interface {
	Dispatch(ctx context.Context, houseID int64, command persistence.ScheduleCommand) error
}

// Recorder stores the outcome of a firing.
type Recorder interface {
	Record(ctx context.Context, title, content string, success bool) (persistence.NotificationEvent, error)
	RecordOutcome(ctx context.Context, houseID int64, total, failed int) (persistence.NotificationEvent, error)
}

// Outcome summarises one call to Handler.Fire. Skipped is set when the
// schedule was absent, disabled or already firing. NextAt is the new firing
// instant of a recurring schedule.
type Outcome struct {
	ScheduleID int64
	Skipped    bool
	Dispatched int
	Failures   []error
	NextAt     time.Time
	Deleted    bool
	Event      persistence.NotificationEvent
}

// Succeeded reports whether every command was delivered.
func (o Outcome) Succeeded() bool {
	return !o.Skipped && len(o.Failures) == 0
}
