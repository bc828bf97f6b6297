// Package sched provides a small scheduler abstraction over deferred
// callbacks. Timer-driven state machines (debounce, connection timeouts,
// retry polling) take a Scheduler instead of calling time.AfterFunc directly
// so tests can drive them deterministically with a manual clock.
package sched

import (
	"sync"
	"time"
)

// Token identifies a scheduled callback for cancellation.
type Token uint64

// NoToken is the zero Token; Cancel(NoToken) is always a no-op.
const NoToken Token = 0

// Scheduler schedules callbacks to run after a delay.
type Scheduler interface {
	// Schedule runs fn after d. The callback runs at most once.
	Schedule(d time.Duration, fn func()) Token

	// Cancel stops a pending callback. Returns false if the token is
	// unknown, already fired, or already cancelled.
	Cancel(tok Token) bool

	// Now returns the scheduler's current time.
	Now() time.Time
}

// timerScheduler implements Scheduler with real time.AfterFunc timers.
type timerScheduler struct {
	mu     sync.Mutex
	next   Token
	timers map[Token]*time.Timer
}

// New returns a Scheduler backed by real timers.
func New() Scheduler {
	return &timerScheduler{timers: make(map[Token]*time.Timer)}
}

func (s *timerScheduler) Schedule(d time.Duration, fn func()) Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	tok := s.next
	s.timers[tok] = time.AfterFunc(d, func() {
		s.mu.Lock()
		_, live := s.timers[tok]
		delete(s.timers, tok)
		s.mu.Unlock()
		// A concurrent Cancel that won the race removed the entry first.
		if live {
			fn()
		}
	})
	return tok
}

func (s *timerScheduler) Cancel(tok Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	timer, ok := s.timers[tok]
	if !ok {
		return false
	}
	delete(s.timers, tok)
	return timer.Stop()
}

func (s *timerScheduler) Now() time.Time {
	return time.Now()
}
