package sched

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Scheduler driven by explicit Advance calls instead of wall
// time. Tests use it to step timer-driven state machines deterministically.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	next    Token
	pending map[Token]*manualEntry
}

type manualEntry struct {
	due time.Time
	seq Token
	fn  func()
}

// NewManual creates a manual scheduler starting at an arbitrary fixed time.
func NewManual() *Manual {
	return &Manual{
		now:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		pending: make(map[Token]*manualEntry),
	}
}

func (m *Manual) Schedule(d time.Duration, fn func()) Token {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.next++
	tok := m.next
	m.pending[tok] = &manualEntry{due: m.now.Add(d), seq: tok, fn: fn}
	return tok
}

func (m *Manual) Cancel(tok Token) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pending[tok]; !ok {
		return false
	}
	delete(m.pending, tok)
	return true
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d, firing due callbacks in order.
// Callbacks run without the lock held, so they may schedule or cancel.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		entry, tok := m.nextDue(target)
		if entry == nil {
			break
		}
		m.mu.Lock()
		if m.now.Before(entry.due) {
			m.now = entry.due
		}
		delete(m.pending, tok)
		m.mu.Unlock()
		entry.fn()
	}

	m.mu.Lock()
	m.now = target
	m.mu.Unlock()
}

// PendingCount returns the number of callbacks not yet fired or cancelled.
func (m *Manual) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// nextDue returns the earliest entry due at or before target, preferring
// scheduling order on ties.
func (m *Manual) nextDue(target time.Time) (*manualEntry, Token) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var entries []*manualEntry
	for _, e := range m.pending {
		if !e.due.After(target) {
			entries = append(entries, e)
		}
	}
	if len(entries) == 0 {
		return nil, NoToken
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].due.Equal(entries[j].due) {
			return entries[i].seq < entries[j].seq
		}
		return entries[i].due.Before(entries[j].due)
	})
	return entries[0], entries[0].seq
}
