package mention

import (
	"sync"
	"time"

	"github.com/termdock/termdock/internal/config"
	"github.com/termdock/termdock/internal/log"
	"github.com/termdock/termdock/internal/sched"
	"github.com/termdock/termdock/internal/session"
)

// State is the queue's explicit state machine:
// Idle -> Debouncing -> Flushing while connected,
// Idle -> AwaitingConnection -> Flushing | Expired while disconnected.
type State int

const (
	StateIdle State = iota
	StateDebouncing
	StateAwaitingConnection
	StateFlushing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDebouncing:
		return "debouncing"
	case StateAwaitingConnection:
		return "awaiting_connection"
	case StateFlushing:
		return "flushing"
	default:
		return "unknown"
	}
}

// Queue batches mentions for one session. All timers run through the
// scheduler so tests drive the machine deterministically.
type Queue struct {
	cfg       config.MentionConfig
	scheduler sched.Scheduler
	sender    Sender
	conn      Conn
	sessionID session.ID

	mu           sync.Mutex
	state        State
	items        []PendingMention
	debounceTok  sched.Token
	timeoutTok   sched.Token
	retryTok     sched.Token
	waitDeadline time.Time
}

// NewQueue creates a queue for the given session.
func NewQueue(cfg config.MentionConfig, scheduler sched.Scheduler, sender Sender,
	conn Conn, sessionID session.ID) *Queue {
	return &Queue{
		cfg:       cfg,
		scheduler: scheduler,
		sender:    sender,
		conn:      conn,
		sessionID: sessionID,
	}
}

// State returns the current machine state.
func (q *Queue) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Len returns the number of queued mentions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Enqueue adds a mention. While connected it (re)starts the debounce
// window; while disconnected it arms the bounded connection timeout.
func (q *Queue) Enqueue(m PendingMention) {
	if m.EnqueuedAt.IsZero() {
		m.EnqueuedAt = q.scheduler.Now()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, m)

	if q.conn.Connected() {
		// Every new mention restarts the inactivity window: a burst
		// batches into one flush.
		q.scheduler.Cancel(q.debounceTok)
		q.state = StateDebouncing
		q.debounceTok = q.scheduler.Schedule(q.cfg.Debounce, q.onDebounce)
		return
	}

	if q.state != StateAwaitingConnection {
		q.state = StateAwaitingConnection
		q.waitDeadline = q.scheduler.Now().Add(q.cfg.ConnectionTimeout)
		q.timeoutTok = q.scheduler.Schedule(q.cfg.ConnectionTimeout, q.onConnectionTimeout)
	}
}

// OnConnected reacts to the external connected transition: flush after a
// settle delay, polling on a bounded retry interval until the handshake
// completes.
func (q *Queue) OnConnected() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 || q.state != StateAwaitingConnection {
		return
	}

	q.scheduler.Cancel(q.timeoutTok)
	q.timeoutTok = sched.NoToken
	q.retryTok = q.scheduler.Schedule(q.cfg.SettleDelay, q.attemptFlush)
}

// onDebounce fires when the inactivity window elapses while connected.
func (q *Queue) onDebounce() {
	q.mu.Lock()
	if q.state != StateDebouncing {
		q.mu.Unlock()
		return
	}
	items := q.takeLocked()
	q.mu.Unlock()

	q.deliver(items)
}

// onConnectionTimeout drops the whole queue: the remote never connected.
func (q *Queue) onConnectionTimeout() {
	q.mu.Lock()
	if q.state != StateAwaitingConnection {
		q.mu.Unlock()
		return
	}
	dropped := len(q.items)
	q.items = nil
	q.state = StateIdle
	q.mu.Unlock()

	log.Warn(log.CatMention, "connection timeout, queue dropped",
		"session", q.sessionID, "dropped", dropped)
}

// attemptFlush runs after the settle delay and on every retry tick. The
// handshake may still be incomplete right after the connected signal; poll
// until it completes or the wait deadline passes.
func (q *Queue) attemptFlush() {
	q.mu.Lock()
	if q.state != StateAwaitingConnection || len(q.items) == 0 {
		q.mu.Unlock()
		return
	}

	if !q.conn.Connected() {
		if q.scheduler.Now().After(q.waitDeadline) {
			dropped := len(q.items)
			q.items = nil
			q.state = StateIdle
			q.mu.Unlock()
			log.Warn(log.CatMention, "handshake never completed, queue dropped",
				"session", q.sessionID, "dropped", dropped)
			return
		}
		q.retryTok = q.scheduler.Schedule(q.cfg.RetryInterval, q.attemptFlush)
		q.mu.Unlock()
		return
	}

	items := q.takeLocked()
	q.mu.Unlock()

	q.deliver(items)
}

// takeLocked clears the queue and cancels every pending timer; the caller
// holds the lock. Clearing before sending is what makes delivery
// at-most-once: a send failure cannot re-enqueue.
func (q *Queue) takeLocked() []PendingMention {
	q.scheduler.Cancel(q.debounceTok)
	q.scheduler.Cancel(q.timeoutTok)
	q.scheduler.Cancel(q.retryTok)
	q.debounceTok = sched.NoToken
	q.timeoutTok = sched.NoToken
	q.retryTok = sched.NoToken

	items := q.items
	q.items = nil
	q.state = StateFlushing
	return items
}

// deliver sends each unexpired item, spacing sends by the configured
// inter-item delay so the transport is not flooded.
func (q *Queue) deliver(items []PendingMention) {
	now := q.scheduler.Now()
	sent := 0
	for _, m := range items {
		if q.cfg.Expiry > 0 && now.Sub(m.EnqueuedAt) > q.cfg.Expiry {
			log.Debug(log.CatMention, "mention expired, skipped",
				"session", q.sessionID, "path", m.Path)
			continue
		}
		if sent > 0 && q.cfg.SendDelay > 0 {
			time.Sleep(q.cfg.SendDelay)
		}
		if err := q.sender.Send(q.sessionID, m); err != nil {
			log.Warn(log.CatMention, "mention delivery failed",
				"session", q.sessionID, "path", m.Path, "error", err)
		}
		sent++
	}

	// An Enqueue that landed while sends were in flight has already moved
	// the machine on and re-armed its timer; only a still-flushing queue
	// returns to idle.
	q.mu.Lock()
	if q.state == StateFlushing {
		q.state = StateIdle
	}
	q.mu.Unlock()

	log.Debug(log.CatMention, "flush complete",
		"session", q.sessionID, "sent", sent, "skipped", len(items)-sent)
}
