package mention

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/termdock/termdock/internal/sched"
	"github.com/termdock/termdock/internal/session"
)

func TestHubRoutesPerSession(t *testing.T) {
	conn := &fakeConn{on: true}
	clock := sched.NewManual()
	sender := &recordingSender{}
	hub := NewHub(testMentionConfig(), clock, sender, conn)

	hub.Enqueue(session.ID("s1"), mentionAt(clock, "a.go"))
	hub.Enqueue(session.ID("s2"), mentionAt(clock, "b.go"))

	require.Equal(t, 1, hub.QueueFor(session.ID("s1")).Len())
	require.Equal(t, 1, hub.QueueFor(session.ID("s2")).Len())

	clock.Advance(100 * time.Millisecond)
	require.Len(t, sender.delivered(), 2)
}

func TestHubOnConnectedReachesAllQueues(t *testing.T) {
	conn := &fakeConn{on: false}
	clock := sched.NewManual()
	sender := &recordingSender{}
	hub := NewHub(testMentionConfig(), clock, sender, conn)

	hub.Enqueue(session.ID("s1"), mentionAt(clock, "a.go"))
	hub.Enqueue(session.ID("s2"), mentionAt(clock, "b.go"))

	conn.set(true)
	hub.OnConnected()
	clock.Advance(200 * time.Millisecond)
	require.Len(t, sender.delivered(), 2)
}

func TestHubRemoveDiscardsQueue(t *testing.T) {
	conn := &fakeConn{on: false}
	clock := sched.NewManual()
	sender := &recordingSender{}
	hub := NewHub(testMentionConfig(), clock, sender, conn)

	hub.Enqueue(session.ID("s1"), mentionAt(clock, "a.go"))
	hub.Remove(session.ID("s1"))

	// A fresh queue replaces the removed one.
	require.Zero(t, hub.QueueFor(session.ID("s1")).Len())
}
