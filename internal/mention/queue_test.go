package mention

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/termdock/termdock/internal/config"
	"github.com/termdock/termdock/internal/sched"
	"github.com/termdock/termdock/internal/session"
)

type recordingSender struct {
	mu     sync.Mutex
	sent   []PendingMention
	fail   bool
	calls  int
	onSend func(PendingMention)
}

func (r *recordingSender) Send(_ session.ID, m PendingMention) error {
	r.mu.Lock()
	r.calls++
	if r.fail {
		r.mu.Unlock()
		return errors.New("transport down")
	}
	r.sent = append(r.sent, m)
	hook := r.onSend
	r.mu.Unlock()
	if hook != nil {
		hook(m)
	}
	return nil
}

func (r *recordingSender) delivered() []PendingMention {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PendingMention, len(r.sent))
	copy(out, r.sent)
	return out
}

type fakeConn struct {
	mu sync.Mutex
	on bool
}

func (c *fakeConn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.on
}

func (c *fakeConn) set(on bool) {
	c.mu.Lock()
	c.on = on
	c.mu.Unlock()
}

func testMentionConfig() config.MentionConfig {
	return config.MentionConfig{
		Debounce:          100 * time.Millisecond,
		ConnectionTimeout: 30 * time.Second,
		Expiry:            60 * time.Second,
		SendDelay:         0,
		SettleDelay:       200 * time.Millisecond,
		RetryInterval:     500 * time.Millisecond,
	}
}

func newTestQueue(conn *fakeConn) (*Queue, *recordingSender, *sched.Manual) {
	clock := sched.NewManual()
	sender := &recordingSender{}
	q := NewQueue(testMentionConfig(), clock, sender, conn, session.ID("s1"))
	return q, sender, clock
}

func mentionAt(clock *sched.Manual, path string) PendingMention {
	return PendingMention{Path: path, LineStart: 1, LineEnd: 1, EnqueuedAt: clock.Now()}
}

func TestQueueDebouncedFlushWhileConnected(t *testing.T) {
	conn := &fakeConn{on: true}
	q, sender, clock := newTestQueue(conn)

	q.Enqueue(mentionAt(clock, "a.go"))
	require.Equal(t, StateDebouncing, q.State())

	clock.Advance(50 * time.Millisecond)
	require.Empty(t, sender.delivered())

	clock.Advance(100 * time.Millisecond)
	got := sender.delivered()
	require.Len(t, got, 1)
	require.Equal(t, "a.go", got[0].Path)
	require.Equal(t, StateIdle, q.State())
	require.Zero(t, q.Len())
}

func TestQueueBurstBatchesIntoOneFlush(t *testing.T) {
	conn := &fakeConn{on: true}
	q, sender, clock := newTestQueue(conn)

	q.Enqueue(mentionAt(clock, "a.go"))
	clock.Advance(60 * time.Millisecond)
	q.Enqueue(mentionAt(clock, "b.go"))
	clock.Advance(60 * time.Millisecond)
	// First debounce window was restarted by b.go, so nothing flushed yet.
	require.Empty(t, sender.delivered())
	q.Enqueue(mentionAt(clock, "c.go"))

	clock.Advance(100 * time.Millisecond)
	got := sender.delivered()
	require.Len(t, got, 3)
	require.Equal(t, []string{"a.go", "b.go", "c.go"},
		[]string{got[0].Path, got[1].Path, got[2].Path})
}

func TestQueueDisconnectedWaitsThenFlushesOnConnect(t *testing.T) {
	conn := &fakeConn{on: false}
	q, sender, clock := newTestQueue(conn)

	q.Enqueue(mentionAt(clock, "a.go"))
	require.Equal(t, StateAwaitingConnection, q.State())

	clock.Advance(10 * time.Second)
	require.Empty(t, sender.delivered())

	conn.set(true)
	q.OnConnected()
	// Settle delay has not elapsed yet.
	require.Empty(t, sender.delivered())

	clock.Advance(200 * time.Millisecond)
	require.Len(t, sender.delivered(), 1)
	require.Equal(t, StateIdle, q.State())
}

func TestQueueNeverConnectedDropsEverything(t *testing.T) {
	conn := &fakeConn{on: false}
	q, sender, clock := newTestQueue(conn)

	q.Enqueue(mentionAt(clock, "a.go"))
	q.Enqueue(mentionAt(clock, "b.go"))

	clock.Advance(30 * time.Second)
	require.Empty(t, sender.delivered())
	require.Equal(t, StateIdle, q.State())
	require.Zero(t, q.Len())

	// A connect after the drop delivers nothing.
	conn.set(true)
	q.OnConnected()
	clock.Advance(time.Second)
	require.Empty(t, sender.delivered())
}

func TestQueueRetriesWhileHandshakeIncomplete(t *testing.T) {
	conn := &fakeConn{on: false}
	q, sender, clock := newTestQueue(conn)

	q.Enqueue(mentionAt(clock, "a.go"))
	q.OnConnected() // signal arrived but Connected() still false

	clock.Advance(200 * time.Millisecond)
	require.Empty(t, sender.delivered())
	require.Equal(t, StateAwaitingConnection, q.State())

	// Two retry ticks later the handshake completes.
	clock.Advance(500 * time.Millisecond)
	conn.set(true)
	clock.Advance(500 * time.Millisecond)
	require.Len(t, sender.delivered(), 1)
}

func TestQueueRetryGivesUpAtDeadline(t *testing.T) {
	conn := &fakeConn{on: false}
	q, sender, clock := newTestQueue(conn)

	q.Enqueue(mentionAt(clock, "a.go"))
	q.OnConnected()

	// Handshake never completes; polling stops once the wait deadline
	// passes and the queue is dropped.
	clock.Advance(31 * time.Second)
	require.Empty(t, sender.delivered())
	require.Equal(t, StateIdle, q.State())
	require.Zero(t, q.Len())
	require.Zero(t, clock.PendingCount())
}

func TestQueueExpiredMentionsSkippedAtFlush(t *testing.T) {
	conn := &fakeConn{on: false}
	q, sender, clock := newTestQueue(conn)

	stale := mentionAt(clock, "old.go")
	stale.EnqueuedAt = clock.Now().Add(-2 * time.Minute)
	q.Enqueue(stale)
	q.Enqueue(mentionAt(clock, "fresh.go"))

	conn.set(true)
	q.OnConnected()
	clock.Advance(200 * time.Millisecond)

	got := sender.delivered()
	require.Len(t, got, 1)
	require.Equal(t, "fresh.go", got[0].Path)
}

func TestQueueEnqueueDuringFlushIsDelivered(t *testing.T) {
	conn := &fakeConn{on: true}
	q, sender, clock := newTestQueue(conn)

	// The transport side effect of delivering a.go queues b.go, landing
	// while the flush is still in flight. The re-armed debounce window
	// must survive the flush finishing.
	var once sync.Once
	sender.onSend = func(PendingMention) {
		once.Do(func() {
			q.Enqueue(mentionAt(clock, "b.go"))
		})
	}

	q.Enqueue(mentionAt(clock, "a.go"))
	clock.Advance(time.Minute)

	got := sender.delivered()
	require.Len(t, got, 2)
	require.Equal(t, "a.go", got[0].Path)
	require.Equal(t, "b.go", got[1].Path)
	require.Equal(t, StateIdle, q.State())
	require.Zero(t, q.Len())
	require.Zero(t, clock.PendingCount())
}

func TestQueueSendFailureIsAtMostOnce(t *testing.T) {
	conn := &fakeConn{on: true}
	q, sender, clock := newTestQueue(conn)
	sender.fail = true

	q.Enqueue(mentionAt(clock, "a.go"))
	clock.Advance(100 * time.Millisecond)

	require.Equal(t, 1, sender.calls)
	require.Zero(t, q.Len())
	require.Equal(t, StateIdle, q.State())

	// Nothing retries the failed item.
	clock.Advance(time.Minute)
	require.Equal(t, 1, sender.calls)
}

func TestQueueFlushLeavesNoPendingTimers(t *testing.T) {
	conn := &fakeConn{on: true}
	q, _, clock := newTestQueue(conn)

	q.Enqueue(mentionAt(clock, "a.go"))
	q.Enqueue(mentionAt(clock, "b.go"))
	clock.Advance(time.Second)
	require.Zero(t, clock.PendingCount())
}
