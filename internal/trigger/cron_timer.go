package trigger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// CronTimer implements TimerPort on top of a cron runner. Each registration
// is a one-shot entry; periodic housekeeping jobs share the same runner.
type CronTimer struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.Mutex
	ctx     context.Context
	entries map[int64]cron.EntryID
	onFire  func(ctx context.Context, id int64)
}

// NewCronTimer builds a stopped timer evaluating instants in loc.
func NewCronTimer(loc *time.Location, logger *slog.Logger) *CronTimer {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "timer")
	cronLog := NewCronLogger(logger)

	return &CronTimer{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog)),
		),
		logger:  logger,
		ctx:     context.Background(),
		entries: make(map[int64]cron.EntryID),
	}
}

// Start begins firing entries. Callbacks receive ctx.
func (t *CronTimer) Start(ctx context.Context) {
	t.mu.Lock()
	t.ctx = ctx
	t.mu.Unlock()
	t.cron.Start()
}

// Stop halts the runner and returns a context that is done once running jobs
// have completed.
func (t *CronTimer) Stop() context.Context {
	return t.cron.Stop()
}

// OnFire registers the callback invoked when a schedule is due.
func (t *CronTimer) OnFire(fn func(ctx context.Context, id int64)) {
	t.mu.Lock()
	t.onFire = fn
	t.mu.Unlock()
}

// Schedule arms id to fire at instant, replacing any earlier registration.
// An instant in the past fires as soon as the runner is started.
func (t *CronTimer) Schedule(id int64, instant time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if previous, ok := t.entries[id]; ok {
		t.cron.Remove(previous)
	}

	// The job reads its own entry id under mu, which is held until the
	// assignment below completes.
	var entryID cron.EntryID
	entryID = t.cron.Schedule(newOnce(instant), cron.FuncJob(func() {
		t.mu.Lock()
		self := entryID
		t.mu.Unlock()
		t.run(id, self)
	}))
	t.entries[id] = entryID
	t.logger.Debug("schedule armed", "schedule_id", id, "at", instant)
	return nil
}

// Cancel disarms id. Cancelling an unknown id is a no-op.
func (t *CronTimer) Cancel(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if entryID, ok := t.entries[id]; ok {
		t.cron.Remove(entryID)
		delete(t.entries, id)
		t.logger.Debug("schedule disarmed", "schedule_id", id)
	}
}

// Armed reports the instant id is registered for.
func (t *CronTimer) Armed(id int64) (time.Time, bool) {
	t.mu.Lock()
	entryID, ok := t.entries[id]
	t.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	entry := t.cron.Entry(entryID)
	if once, ok := entry.Schedule.(*once); ok {
		return once.at, true
	}
	return time.Time{}, false
}

// Every runs job on a standard five-field cron spec.
func (t *CronTimer) Every(spec string, job func(ctx context.Context)) error {
	_, err := t.cron.AddFunc(spec, func() {
		t.mu.Lock()
		ctx := t.ctx
		t.mu.Unlock()
		job(ctx)
	})
	return err
}

func (t *CronTimer) run(id int64, entryID cron.EntryID) {
	t.mu.Lock()
	current, ok := t.entries[id]
	if ok && current == entryID {
		delete(t.entries, id)
	}
	fn := t.onFire
	ctx := t.ctx
	t.mu.Unlock()

	t.cron.Remove(entryID)
	if !ok || current != entryID {
		return
	}
	if fn == nil {
		t.logger.Warn("schedule due without a fire callback", "schedule_id", id)
		return
	}
	fn(ctx, id)
}

// once is a cron.Schedule that yields its instant a single time. The runner
// asks for the next activation when an entry is added and again after each
// run, so the second call retires the entry.
type once struct {
	at   time.Time
	used atomic.Bool
}

func newOnce(at time.Time) *once {
	return &once{at: at}
}

// Next implements cron.Schedule.
func (o *once) Next(time.Time) time.Time {
	if o.used.Swap(true) {
		return time.Time{}
	}
	return o.at
}

// cronLogger adapts slog to cron.Logger. The runner's own progress messages
// are demoted to debug.
type cronLogger struct {
	logger *slog.Logger
}

// NewCronLogger returns a cron.Logger writing to logger.
func NewCronLogger(logger *slog.Logger) cron.Logger {
	return cronLogger{logger: logger}
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
