// Package session defines the external session-registry collaborator.
//
// A session is a logical conversation identity, independent of whether it
// currently has a live process. The long-lived registry that assigns names
// and survives host restarts lives outside this subsystem; termdock consumes
// it through the Registry interface and ships an in-memory reference
// implementation for the host binary and tests.
package session

import (
	"errors"
	"time"
)

// ID identifies a session.
type ID string

// ErrNotFound is returned for operations on unknown session IDs.
var ErrNotFound = errors.New("session not found")

// TerminalInfo records the terminal identity currently bound to a session.
// All fields refer to subsystem-owned resources; the registry only stores
// them so they can be recovered after a reload.
type TerminalInfo struct {
	SurfaceID string
	BufferID  string
	JobID     string
	PID       int
}

// Session is a snapshot of one registry entry.
type Session struct {
	ID        ID
	Name      string
	Terminal  *TerminalInfo
	CreatedAt time.Time
}

// Registry is the session-registry contract consumed by the dock subsystem.
// Implementations must be safe for concurrent use.
type Registry interface {
	// Create allocates a new session with a generated name.
	Create() (*Session, error)

	// Destroy removes a session. Destroying the active session clears
	// the active marker.
	Destroy(id ID) error

	// Ensure returns the active session, creating one if none exists.
	Ensure() (*Session, error)

	// List returns all sessions ordered by creation time.
	List() []*Session

	// Get retrieves a session by ID.
	Get(id ID) (*Session, bool)

	// SetActive marks a session as the active one.
	SetActive(id ID) error

	// ActiveID returns the active session's ID, if any.
	ActiveID() (ID, bool)

	// Count returns the number of sessions.
	Count() int

	// UpdateTerminalInfo replaces the terminal identity bound to a session.
	UpdateTerminalInfo(id ID, info *TerminalInfo) error

	// UpdateName renames a session.
	UpdateName(id ID, name string) error

	// FindByBufferID locates the session bound to a buffer identity.
	// This is a recovery path: it lets the dock re-associate a surface
	// after its own bookkeeping was lost.
	FindByBufferID(bufferID string) (*Session, bool)
}
