// Package surface models the display units hosted inside the dock slot. A
// Surface couples a supervised job with the output buffer and geometry the
// slot renders; scratch surfaces are content-less placeholders that keep the
// slot open while nothing runs.
package surface

import (
	"sync"

	"github.com/google/uuid"

	"github.com/termdock/termdock/internal/dock/proc"
	"github.com/termdock/termdock/internal/log"
	"github.com/termdock/termdock/internal/session"
)

// ID identifies a surface.
type ID string

// NewID allocates a fresh surface identifier.
func NewID() ID {
	return ID(uuid.NewString())
}

// defaultScrollback bounds each surface's retained output.
const defaultScrollback = 2000

// Surface is one displayable unit: a job's live output, or a scratch
// placeholder with no job.
type Surface struct {
	id        ID
	sessionID session.ID
	buffer    *LineBuffer

	mu     sync.RWMutex
	job    *proc.Job
	width  int
	height int
}

// New creates a terminal surface bound to a job.
func New(sessionID session.ID, job *proc.Job) *Surface {
	return Adopt(sessionID, job, NewLineBuffer(defaultScrollback))
}

// Adopt creates a surface around an existing buffer. Spawning wires the
// job's output into a buffer before the surface exists, so no early lines
// are lost; Adopt then takes ownership of that buffer.
func Adopt(sessionID session.ID, job *proc.Job, buf *LineBuffer) *Surface {
	if buf == nil {
		buf = NewLineBuffer(defaultScrollback)
	}
	return &Surface{
		id:        NewID(),
		sessionID: sessionID,
		buffer:    buf,
		job:       job,
	}
}

// NewScratch creates a placeholder surface with no job.
func NewScratch() *Surface {
	return &Surface{
		id:     NewID(),
		buffer: NewLineBuffer(1),
	}
}

// ID returns the surface identifier.
func (s *Surface) ID() ID { return s.id }

// SessionID returns the owning session; empty for scratch surfaces.
func (s *Surface) SessionID() session.ID { return s.sessionID }

// Buffer returns the surface's output buffer.
func (s *Surface) Buffer() *LineBuffer { return s.buffer }

// Job returns the hosted job, or nil for scratch surfaces.
func (s *Surface) Job() *proc.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.job
}

// IsScratch reports whether the surface is a placeholder with no job.
func (s *Surface) IsScratch() bool {
	return s.Job() == nil
}

// PID returns the hosted process's PID, or -1 when there is none.
func (s *Surface) PID() int {
	job := s.Job()
	if job == nil {
		return -1
	}
	return job.PID()
}

// AppendLine records one output line.
func (s *Surface) AppendLine(line string) {
	s.buffer.Append(line)
}

// Size returns the last recorded dimensions.
func (s *Surface) Size() (width, height int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.width, s.height
}

// Resize records new dimensions and notifies the hosted process group so
// full-screen children re-query their terminal size. Only genuine changes
// trigger the notification.
func (s *Surface) Resize(width, height int) {
	s.mu.Lock()
	changed := width != s.width || height != s.height
	s.width = width
	s.height = height
	job := s.job
	s.mu.Unlock()

	if !changed || job == nil || !job.IsRunning() {
		return
	}
	if err := proc.NotifyResize(job.PID()); err != nil {
		log.Debug(log.CatSlot, "resize notify failed",
			"surface", s.id, "pid", job.PID(), "error", err)
	}
}
