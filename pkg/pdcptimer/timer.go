// Package pdcptimer provides the abstract timer capability a PDCP entity is
// constructed with: arm(duration, callback) -> handle, cancel(handle). The
// entity never reaches for time.AfterFunc directly; it holds a Factory and
// lets the factory decide how callbacks are actually scheduled, so that
// production code and deterministic tests can share the same state-machine
// logic against different clocks.
package pdcptimer

import (
	"sync"
	"time"
)

// Handle identifies a single armed timer so it can later be cancelled.
// Handles are opaque to callers; a zero Handle never refers to a live timer.
type Handle uint64

// Factory arms and cancels timers. Implementations must deliver a fired
// callback on the same task/goroutine the owning bearer processes its other
// operations on — production code does this by handing the callback to the
// bearer's single-goroutine dispatch loop rather than invoking it inline
// from the timer's own goroutine.
type Factory interface {
	// Arm schedules callback to run once after duration elapses and returns
	// a handle that can later be passed to Cancel. A duration of 0 or less
	// fires as soon as possible.
	Arm(duration time.Duration, callback func()) Handle

	// Cancel stops a previously armed timer. Cancelling an unknown or
	// already-fired handle is a no-op; Cancel is always idempotent.
	Cancel(handle Handle)
}

// RealFactory is a Factory backed by time.AfterFunc. Callbacks run on their
// own goroutine per time.AfterFunc semantics; callers that need single-task
// delivery pass a dispatch function to NewRealFactory, which then receives
// each fired callback.
type RealFactory struct {
	mu      sync.Mutex
	timers  map[Handle]*time.Timer
	nextID  Handle
	dispatch func(func())
}

// NewRealFactory creates a RealFactory. dispatch, if non-nil, is called with
// each fired callback instead of running it directly on the timer's
// goroutine — the owning bearer's single-task scheduler should be passed
// here so timer callbacks are serialised with write_sdu/write_pdu the same
// way the concurrency model requires.
func NewRealFactory(dispatch func(func())) *RealFactory {
	if dispatch == nil {
		dispatch = func(f func()) { f() }
	}
	return &RealFactory{
		timers:   make(map[Handle]*time.Timer),
		dispatch: dispatch,
	}
}

func (f *RealFactory) Arm(duration time.Duration, callback func()) Handle {
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.mu.Unlock()

	t := time.AfterFunc(duration, func() {
		f.mu.Lock()
		_, stillArmed := f.timers[id]
		delete(f.timers, id)
		f.mu.Unlock()

		if stillArmed {
			f.dispatch(callback)
		}
	})

	f.mu.Lock()
	f.timers[id] = t
	f.mu.Unlock()

	return id
}

func (f *RealFactory) Cancel(handle Handle) {
	f.mu.Lock()
	t, ok := f.timers[handle]
	delete(f.timers, handle)
	f.mu.Unlock()

	if ok {
		t.Stop()
	}
}

// Count returns the number of timers currently armed. Useful for tests that
// assert on "bearer reports one running discard timer" style properties.
func (f *RealFactory) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.timers)
}
