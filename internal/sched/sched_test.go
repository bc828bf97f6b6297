package sched

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimerScheduler_FiresCallback(t *testing.T) {
	s := New()

	var fired atomic.Bool
	s.Schedule(5*time.Millisecond, func() { fired.Store(true) })

	require.Eventually(t, fired.Load, time.Second, time.Millisecond)
}

func TestTimerScheduler_CancelPreventsFire(t *testing.T) {
	s := New()

	var fired atomic.Bool
	tok := s.Schedule(20*time.Millisecond, func() { fired.Store(true) })
	require.True(t, s.Cancel(tok))

	time.Sleep(40 * time.Millisecond)
	require.False(t, fired.Load())

	// Second cancel reports the token is gone.
	require.False(t, s.Cancel(tok))
}

func TestTimerScheduler_CancelUnknownToken(t *testing.T) {
	s := New()
	require.False(t, s.Cancel(NoToken))
	require.False(t, s.Cancel(Token(99)))
}

func TestManual_AdvanceFiresInOrder(t *testing.T) {
	m := NewManual()

	var order []int
	m.Schedule(30*time.Millisecond, func() { order = append(order, 3) })
	m.Schedule(10*time.Millisecond, func() { order = append(order, 1) })
	m.Schedule(20*time.Millisecond, func() { order = append(order, 2) })

	m.Advance(25 * time.Millisecond)
	require.Equal(t, []int{1, 2}, order)
	require.Equal(t, 1, m.PendingCount())

	m.Advance(10 * time.Millisecond)
	require.Equal(t, []int{1, 2, 3}, order)
	require.Equal(t, 0, m.PendingCount())
}

func TestManual_CallbackMaySchedule(t *testing.T) {
	m := NewManual()

	var fired int
	m.Schedule(10*time.Millisecond, func() {
		fired++
		m.Schedule(10*time.Millisecond, func() { fired++ })
	})

	// The rescheduled callback lands inside the same advance window.
	m.Advance(25 * time.Millisecond)
	require.Equal(t, 2, fired)
}

func TestManual_CancelAndNow(t *testing.T) {
	m := NewManual()
	start := m.Now()

	var fired bool
	tok := m.Schedule(10*time.Millisecond, func() { fired = true })
	require.True(t, m.Cancel(tok))
	require.False(t, m.Cancel(tok))

	m.Advance(time.Hour)
	require.False(t, fired)
	require.Equal(t, start.Add(time.Hour), m.Now())
}
