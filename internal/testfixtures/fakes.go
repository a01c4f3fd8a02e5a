package testfixtures

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/example/home-scheduler/internal/persistence"
)

// FakeTimer records registrations instead of waiting for wall-clock time.
// Fire invokes the registered callback synchronously.
type FakeTimer struct {
	mu        sync.Mutex
	armed     map[int64]time.Time
	cancelled []int64
	onFire    func(ctx context.Context, id int64)
}

// NewFakeTimer returns an empty FakeTimer.
func NewFakeTimer() *FakeTimer {
	return &FakeTimer{armed: make(map[int64]time.Time)}
}

// Schedule records that id should fire at instant.
func (f *FakeTimer) Schedule(id int64, instant time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armed[id] = instant
	return nil
}

// Cancel forgets id.
func (f *FakeTimer) Cancel(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.armed, id)
	f.cancelled = append(f.cancelled, id)
}

// OnFire registers the fire callback.
func (f *FakeTimer) OnFire(fn func(ctx context.Context, id int64)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onFire = fn
}

// Armed returns the instant registered for id.
func (f *FakeTimer) Armed(id int64) (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	at, ok := f.armed[id]
	return at, ok
}

// Cancelled lists the ids passed to Cancel in call order.
func (f *FakeTimer) Cancelled() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.cancelled...)
}

// Fire removes id from the armed set, as a real one-shot timer would, and
// runs the callback.
func (f *FakeTimer) Fire(ctx context.Context, id int64) {
	f.mu.Lock()
	delete(f.armed, id)
	fn := f.onFire
	f.mu.Unlock()
	if fn != nil {
		fn(ctx, id)
	}
}

// DispatchCall is one command observed by a ScriptedDispatcher.
type DispatchCall struct {
	HouseID int64
	Command persistence.ScheduleCommand
}

// ErrScriptedFailure is the default failure returned by a ScriptedDispatcher.
var ErrScriptedFailure = errors.New("scripted dispatch failure")

// ScriptedDispatcher records dispatched commands and fails the ones whose
// peripheral id was scripted to fail.
//
// Like the remote client, it fails every command once ctx is done.
type ScriptedDispatcher struct {
	mu       sync.Mutex
	calls    []DispatchCall
	failures map[string]error
	observe  func(DispatchCall)
}

// NewScriptedDispatcher returns a dispatcher that accepts every command.
func NewScriptedDispatcher() *ScriptedDispatcher {
	return &ScriptedDispatcher{failures: make(map[string]error)}
}

// FailPeripheral makes commands to peripheralID fail with err, or with
// ErrScriptedFailure when err is nil.
func (d *ScriptedDispatcher) FailPeripheral(peripheralID string, err error) {
	if err == nil {
		err = ErrScriptedFailure
	}
	d.mu.Lock()
	d.failures[peripheralID] = err
	d.mu.Unlock()
}

// OnDispatch registers fn to observe every call before its result is
// decided.
func (d *ScriptedDispatcher) OnDispatch(fn func(DispatchCall)) {
	d.mu.Lock()
	d.observe = fn
	d.mu.Unlock()
}

// Dispatch records the call and returns the scripted result.
func (d *ScriptedDispatcher) Dispatch(ctx context.Context, houseID int64, command persistence.ScheduleCommand) error {
	call := DispatchCall{HouseID: houseID, Command: command}
	d.mu.Lock()
	d.calls = append(d.calls, call)
	observe := d.observe
	failure := d.failures[command.PeripheralID]
	d.mu.Unlock()

	if observe != nil {
		observe(call)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return failure
}

// Calls returns the dispatched commands in order.
func (d *ScriptedDispatcher) Calls() []DispatchCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]DispatchCall(nil), d.calls...)
}
