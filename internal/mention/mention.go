// Package mention implements the connection-aware notification queue. File
// mentions queued for the remote assistant are debounce-batched while the
// connection is up and timeout-guarded while it is down; delivery is
// at-most-once per mention.
package mention

import (
	"time"

	"github.com/termdock/termdock/internal/session"
)

// PendingMention is one queued file reference.
type PendingMention struct {
	Path       string
	LineStart  int
	LineEnd    int
	EnqueuedAt time.Time
}

// Sender delivers one mention to the remote assistant. Delivery failure is
// logged by the queue, never retried.
type Sender interface {
	Send(id session.ID, m PendingMention) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(id session.ID, m PendingMention) error

// Send implements Sender.
func (f SenderFunc) Send(id session.ID, m PendingMention) error {
	return f(id, m)
}

// Conn is the handshake-complete predicate supplied by the connection
// status collaborator.
type Conn interface {
	Connected() bool
}
