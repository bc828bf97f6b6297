package mention

import (
	"sync"

	"github.com/termdock/termdock/internal/config"
	"github.com/termdock/termdock/internal/sched"
	"github.com/termdock/termdock/internal/session"
)

// Hub owns one queue per session. Queues are created lazily on first
// enqueue and dropped when the session goes away.
type Hub struct {
	cfg       config.MentionConfig
	scheduler sched.Scheduler
	sender    Sender
	conn      Conn

	mu     sync.Mutex
	queues map[session.ID]*Queue
}

// NewHub creates the hub. All queues share the scheduler, sender, and
// connection predicate.
func NewHub(cfg config.MentionConfig, scheduler sched.Scheduler, sender Sender, conn Conn) *Hub {
	return &Hub{
		cfg:       cfg,
		scheduler: scheduler,
		sender:    sender,
		conn:      conn,
		queues:    make(map[session.ID]*Queue),
	}
}

// Enqueue routes a mention to the session's queue, creating it on demand.
func (h *Hub) Enqueue(id session.ID, m PendingMention) {
	h.queueFor(id).Enqueue(m)
}

// OnConnected fans the connected transition out to every queue.
func (h *Hub) OnConnected() {
	h.mu.Lock()
	queues := make([]*Queue, 0, len(h.queues))
	for _, q := range h.queues {
		queues = append(queues, q)
	}
	h.mu.Unlock()

	for _, q := range queues {
		q.OnConnected()
	}
}

// Remove drops the session's queue. Pending mentions are discarded; their
// timers fire into a queue nothing references and no-op via state checks.
func (h *Hub) Remove(id session.ID) {
	h.mu.Lock()
	delete(h.queues, id)
	h.mu.Unlock()
}

// QueueFor exposes the session's queue, mainly for tests and status
// display.
func (h *Hub) QueueFor(id session.ID) *Queue {
	return h.queueFor(id)
}

func (h *Hub) queueFor(id session.ID) *Queue {
	h.mu.Lock()
	defer h.mu.Unlock()
	q, ok := h.queues[id]
	if !ok {
		q = NewQueue(h.cfg, h.scheduler, h.sender, h.conn, id)
		h.queues[id] = q
	}
	return q
}
