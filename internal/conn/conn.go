// Package conn exposes the connection-status collaborator: a handshake
// predicate per remote assistant connection plus transition events. The
// RPC layer that actually performs the handshake lives outside this
// subsystem.
package conn

import (
	"sync"

	"github.com/termdock/termdock/internal/pubsub"
)

// Status reports whether the remote assistant has completed its handshake.
type Status interface {
	Connected() bool
}

// StateChange is published when the connection state flips.
type StateChange struct {
	Connected bool
}

// Tracker is a settable Status with pubsub transition events. The host
// wires the external RPC layer's callbacks into Set; the mention queue
// subscribes to the broker.
type Tracker struct {
	mu        sync.RWMutex
	connected bool
	broker    *pubsub.Broker[StateChange]
}

// NewTracker creates a disconnected tracker.
func NewTracker() *Tracker {
	return &Tracker{broker: pubsub.NewBroker[StateChange]()}
}

// Connected implements Status.
func (t *Tracker) Connected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.connected
}

// Set updates the state, publishing an event only on a genuine transition.
func (t *Tracker) Set(connected bool) {
	t.mu.Lock()
	if t.connected == connected {
		t.mu.Unlock()
		return
	}
	t.connected = connected
	t.mu.Unlock()

	t.broker.Publish(pubsub.UpdatedEvent, StateChange{Connected: connected})
}

// Broker exposes the transition event broker.
func (t *Tracker) Broker() *pubsub.Broker[StateChange] {
	return t.broker
}

// Close shuts down the event broker.
func (t *Tracker) Close() {
	t.broker.Close()
}

var _ Status = (*Tracker)(nil)
