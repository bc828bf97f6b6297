// Package provider defines the backend contract for materializing sessions
// into surfaces, plus the three built-in backends: native (in-process spawn,
// fully owned), external (detached OS application, PID-tracked only) and
// widget (viewport-backed surface re-parented into the slot).
package provider

import (
	"context"
	"errors"

	"github.com/termdock/termdock/internal/dock/proc"
	"github.com/termdock/termdock/internal/dock/surface"
	"github.com/termdock/termdock/internal/session"
)

var (
	// ErrUnavailable indicates the backend cannot run in this environment.
	ErrUnavailable = errors.New("provider unavailable")

	// ErrNoSurface indicates no surface exists for the requested session.
	ErrNoSurface = errors.New("no surface for session")

	// ErrNoActiveSession indicates an operation needing an active session
	// found none.
	ErrNoActiveSession = errors.New("no active session")
)

// OpenOptions carries the spawn parameters for one open request.
type OpenOptions struct {
	Command string
	Args    []string
	Env     []string
	WorkDir string
	Focus   bool
}

// Presenter is the slot-facing contract a backend presents surfaces
// through. The dock slot satisfies it.
type Presenter interface {
	Present(id surface.ID, focus bool) error
	Hide()
	IsVisible() bool
	Dimensions() (width, height int)
	CurrentSurface() (surface.ID, bool)
	Focus(id surface.ID) error
	IsFocused(id surface.ID) bool
}

// ClosingMarker records sessions that are intentionally being torn down, so
// the exit handler can tell a close from a crash.
type ClosingMarker interface {
	Mark(id session.ID)
}

// Tracker is the process-registry surface a backend needs.
type Tracker interface {
	Track(job *proc.Job)
}

// Provider is the uniform backend contract. Every operation must be safe to
// call regardless of backend kind; backends without a given capability
// degrade to a logged no-op rather than an error where the contract says so.
type Provider interface {
	Name() string
	IsAvailable() bool

	// Open materializes the active session (creating one when none
	// exists) and presents its surface.
	Open(ctx context.Context, opts OpenOptions) error

	// OpenSession materializes the given session and presents its
	// surface, reusing a live surface when one exists.
	OpenSession(ctx context.Context, id session.ID, opts OpenOptions) error

	// Close hides the slot without destroying the active surface.
	Close() error

	// CloseSession tears down the session's process and surface.
	CloseSession(id session.ID) error

	// CloseSessionKeepWindow replaces old with new in the slot before
	// tearing old down. The old session stays in the closing set for the
	// exit handler to clear.
	CloseSessionKeepWindow(ctx context.Context, oldID, newID session.ID, opts OpenOptions) error

	// FocusSession focuses the session's surface, presenting it first if
	// needed.
	FocusSession(id session.ID) error

	// SimpleToggle unconditionally shows or hides the slot.
	SimpleToggle(ctx context.Context, opts OpenOptions) error

	// FocusToggle hides only when the surface is currently focused;
	// otherwise it focuses without hiding.
	FocusToggle(ctx context.Context, opts OpenOptions) error

	ActiveSurfaceID() (surface.ID, bool)
	SurfaceIDForSession(id session.ID) (surface.ID, bool)
	ListActiveSessionIDs() []session.ID
}

// Optional holds the operations a custom provider may omit; the validated
// wrapper supplies composed defaults for them.
type Optional interface {
	// Toggle is a provider-specific show/hide; defaults to SimpleToggle.
	Toggle(ctx context.Context, opts OpenOptions) error

	// DebugState exposes internals for test introspection.
	DebugState() map[string]any
}

// Deps is the collaborator set shared by the built-in backends.
type Deps struct {
	Surfaces *surface.Store
	Sessions session.Registry
	Registry Tracker
	Present  Presenter
	Closing  ClosingMarker

	// OnExit receives every owned job's exit event; the dock manager
	// installs its lifecycle handler here.
	OnExit func(proc.ExitEvent)
}
