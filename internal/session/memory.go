package session

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRegistry is the in-memory reference implementation of Registry.
type MemoryRegistry struct {
	mu       sync.RWMutex
	sessions map[ID]*Session
	active   ID
	seq      int
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{sessions: make(map[ID]*Session)}
}

// Create allocates a new session with a generated name. The first session
// created becomes active.
func (r *MemoryRegistry) Create() (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	sess := &Session{
		ID:        ID(uuid.NewString()),
		Name:      fmt.Sprintf("session-%d", r.seq),
		CreatedAt: time.Now(),
	}
	r.sessions[sess.ID] = sess
	if r.active == "" {
		r.active = sess.ID
	}
	return r.clone(sess), nil
}

// Destroy removes a session.
func (r *MemoryRegistry) Destroy(id ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return fmt.Errorf("destroying %s: %w", id, ErrNotFound)
	}
	delete(r.sessions, id)
	if r.active == id {
		r.active = ""
	}
	return nil
}

// Ensure returns the active session, creating one if the registry is empty.
func (r *MemoryRegistry) Ensure() (*Session, error) {
	r.mu.RLock()
	if r.active != "" {
		if sess, ok := r.sessions[r.active]; ok {
			defer r.mu.RUnlock()
			return r.clone(sess), nil
		}
	}
	r.mu.RUnlock()
	return r.Create()
}

// List returns all sessions ordered by creation time.
func (r *MemoryRegistry) List() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		out = append(out, r.clone(sess))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Get retrieves a session by ID.
func (r *MemoryRegistry) Get(id ID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	return r.clone(sess), true
}

// SetActive marks a session as active.
func (r *MemoryRegistry) SetActive(id ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return fmt.Errorf("activating %s: %w", id, ErrNotFound)
	}
	r.active = id
	return nil
}

// ActiveID returns the active session's ID, if any.
func (r *MemoryRegistry) ActiveID() (ID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.active == "" {
		return "", false
	}
	return r.active, true
}

// Count returns the number of sessions.
func (r *MemoryRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// UpdateTerminalInfo replaces the terminal identity bound to a session.
// A nil info detaches the terminal.
func (r *MemoryRegistry) UpdateTerminalInfo(id ID, info *TerminalInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("updating terminal info for %s: %w", id, ErrNotFound)
	}
	if info == nil {
		sess.Terminal = nil
		return nil
	}
	cp := *info
	sess.Terminal = &cp
	return nil
}

// UpdateName renames a session.
func (r *MemoryRegistry) UpdateName(id ID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("renaming %s: %w", id, ErrNotFound)
	}
	sess.Name = name
	return nil
}

// FindByBufferID locates the session bound to a buffer identity.
func (r *MemoryRegistry) FindByBufferID(bufferID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if bufferID == "" {
		return nil, false
	}
	for _, sess := range r.sessions {
		if sess.Terminal != nil && sess.Terminal.BufferID == bufferID {
			return r.clone(sess), true
		}
	}
	return nil, false
}

// clone returns a defensive copy so callers never alias registry state.
func (r *MemoryRegistry) clone(sess *Session) *Session {
	cp := *sess
	if sess.Terminal != nil {
		term := *sess.Terminal
		cp.Terminal = &term
	}
	return &cp
}

var _ Registry = (*MemoryRegistry)(nil)
