package surface

import (
	"sync"

	"github.com/termdock/termdock/internal/session"
)

// Store tracks all live surfaces. The cleanup engine scans it as one of its
// PID sources, and the dock slot uses it to recover a session's surface
// after state has gone stale.
type Store struct {
	mu       sync.RWMutex
	surfaces map[ID]*Surface
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{surfaces: make(map[ID]*Surface)}
}

// Add registers a surface.
func (st *Store) Add(s *Surface) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.surfaces[s.ID()] = s
}

// Remove deletes a surface by ID. Unknown IDs are ignored.
func (st *Store) Remove(id ID) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.surfaces, id)
}

// Get returns the surface with the given ID, or nil.
func (st *Store) Get(id ID) *Surface {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.surfaces[id]
}

// BySession returns the first non-scratch surface owned by the session, or
// nil when none exists.
func (st *Store) BySession(sessionID session.ID) *Surface {
	st.mu.RLock()
	defer st.mu.RUnlock()
	for _, s := range st.surfaces {
		if !s.IsScratch() && s.SessionID() == sessionID {
			return s
		}
	}
	return nil
}

// ForEachTerminal visits every surface that hosts a job. Visiting order is
// unspecified.
func (st *Store) ForEachTerminal(fn func(*Surface)) {
	st.mu.RLock()
	snapshot := make([]*Surface, 0, len(st.surfaces))
	for _, s := range st.surfaces {
		if !s.IsScratch() {
			snapshot = append(snapshot, s)
		}
	}
	st.mu.RUnlock()

	for _, s := range snapshot {
		fn(s)
	}
}

// Len returns the number of tracked surfaces, scratch included.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.surfaces)
}
