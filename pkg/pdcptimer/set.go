package pdcptimer

import (
	"sync"
	"time"
)

// Set is a mapping from a sequence number to a single one-shot timer of a
// fixed duration, the shape both the TX discard-timer set and the RX
// t-Reordering timer are built from. Arming an SN that already has a running
// timer is a no-op: discard timers and the reordering timer are never
// re-armed while already running, only cancelled and later re-armed fresh.
type Set struct {
	factory  Factory
	duration time.Duration
	onExpiry func(sn uint32)

	mu      sync.Mutex
	handles map[uint32]Handle
}

// NewSet creates a Set that arms timers of the given duration against
// factory, invoking onExpiry with the expired SN when a timer fires. A
// duration of 0 disables arming entirely: Arm becomes a no-op, matching the
// "infinite discard timer" configuration option, which never expires at all.
func NewSet(factory Factory, duration time.Duration, onExpiry func(sn uint32)) *Set {
	return &Set{
		factory:  factory,
		duration: duration,
		onExpiry: onExpiry,
		handles:  make(map[uint32]Handle),
	}
}

// Arm starts a timer for sn unless one is already running or the set is
// configured with an infinite (zero) duration.
func (s *Set) Arm(sn uint32) {
	if s.duration <= 0 {
		return
	}

	s.mu.Lock()
	if _, running := s.handles[sn]; running {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	h := s.factory.Arm(s.duration, func() { s.fire(sn) })

	s.mu.Lock()
	s.handles[sn] = h
	s.mu.Unlock()
}

func (s *Set) fire(sn uint32) {
	s.mu.Lock()
	_, ok := s.handles[sn]
	delete(s.handles, sn)
	s.mu.Unlock()

	if ok {
		s.onExpiry(sn)
	}
}

// Cancel stops the timer for sn, if any. Cancelling an SN with no running
// timer is a no-op.
func (s *Set) Cancel(sn uint32) {
	s.mu.Lock()
	h, ok := s.handles[sn]
	delete(s.handles, sn)
	s.mu.Unlock()

	if ok {
		s.factory.Cancel(h)
	}
}

// CancelAll stops every running timer in the set, used on reestablishment
// and teardown where every outstanding discard timer must be torn down
// together.
func (s *Set) CancelAll() {
	s.mu.Lock()
	handles := s.handles
	s.handles = make(map[uint32]Handle)
	s.mu.Unlock()

	for _, h := range handles {
		s.factory.Cancel(h)
	}
}

// Count returns the number of timers currently running in the set.
func (s *Set) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// Running reports whether sn currently has an armed timer.
func (s *Set) Running(sn uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.handles[sn]
	return ok
}
