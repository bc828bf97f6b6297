package provider

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/termdock/termdock/internal/config"
	"github.com/termdock/termdock/internal/dock/proc"
	"github.com/termdock/termdock/internal/dock/registry"
	"github.com/termdock/termdock/internal/dock/surface"
	"github.com/termdock/termdock/internal/log"
	"github.com/termdock/termdock/internal/session"
	"github.com/termdock/termdock/internal/tracing"
)

// legacySurfaces is the process-wide last-known surface per session. It
// survives manager reconstruction on hot reload and serves as the second
// recovery path in CloseSessionKeepWindow.
var (
	legacyMu       sync.Mutex
	legacySurfaces = make(map[session.ID]surface.ID)
)

func rememberSurface(id session.ID, surfID surface.ID) {
	legacyMu.Lock()
	legacySurfaces[id] = surfID
	legacyMu.Unlock()
}

func forgetSurface(id session.ID) {
	legacyMu.Lock()
	delete(legacySurfaces, id)
	legacyMu.Unlock()
}

func legacySurface(id session.ID) (surface.ID, bool) {
	legacyMu.Lock()
	defer legacyMu.Unlock()
	surfID, ok := legacySurfaces[id]
	return surfID, ok
}

// Native is the in-process backend: it spawns and fully owns process plus
// surface pairs. Always available; the fallback for every other backend.
type Native struct {
	deps Deps

	mu        sync.Mutex
	bySession map[session.ID]*surface.Surface
}

// NewNative creates the native backend.
func NewNative(deps Deps) *Native {
	return &Native{
		deps:      deps,
		bySession: make(map[session.ID]*surface.Surface),
	}
}

// Name implements Provider.
func (n *Native) Name() string { return config.ProviderNative }

// IsAvailable implements Provider; the native backend always is.
func (n *Native) IsAvailable() bool { return true }

// Open materializes the active session, creating one when none exists.
func (n *Native) Open(ctx context.Context, opts OpenOptions) error {
	sess, err := n.deps.Sessions.Ensure()
	if err != nil {
		return fmt.Errorf("ensuring session: %w", err)
	}
	return n.OpenSession(ctx, sess.ID, opts)
}

// OpenSession presents the session's surface, spawning a process when no
// live one exists. Spawn failure leaves no partial state behind.
func (n *Native) OpenSession(ctx context.Context, id session.ID, opts OpenOptions) error {
	if surf := n.liveSurface(id); surf != nil {
		if err := n.deps.Present.Present(surf.ID(), opts.Focus); err != nil {
			return err
		}
		return n.deps.Sessions.SetActive(id)
	}

	surf, err := n.spawn(ctx, id, opts)
	if err != nil {
		return err
	}
	if err := n.deps.Present.Present(surf.ID(), opts.Focus); err != nil {
		return err
	}
	return n.deps.Sessions.SetActive(id)
}

// spawn starts a process for the session and registers the resulting
// surface everywhere it needs to be known.
func (n *Native) spawn(ctx context.Context, id session.ID, opts OpenOptions) (*surface.Surface, error) {
	ctx, span := tracing.Start(ctx, "provider.spawn",
		attribute.String("session.id", string(id)),
		attribute.String("command", opts.Command))
	defer span.End()

	buf := surface.NewLineBuffer(2000)
	job, err := proc.NewSpawnBuilder(ctx).
		WithExecutable(opts.Command, opts.Args).
		WithEnv(opts.Env).
		WithWorkDir(opts.WorkDir).
		WithSession(id).
		WithStdin(true).
		WithStdoutLine(buf.Append).
		WithStderrLine(buf.Append).
		WithStderrCapture(true).
		WithOnExit(n.deps.OnExit).
		Build()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("spawning %s: %w", opts.Command, err)
	}
	span.SetAttributes(attribute.Int("pid", job.PID()))

	surf := surface.Adopt(id, job, buf)
	n.deps.Registry.Track(job)
	n.deps.Surfaces.Add(surf)

	n.mu.Lock()
	n.bySession[id] = surf
	n.mu.Unlock()
	rememberSurface(id, surf.ID())

	if err := n.deps.Sessions.UpdateTerminalInfo(id, &session.TerminalInfo{
		SurfaceID: string(surf.ID()),
		BufferID:  string(surf.ID()),
		JobID:     string(job.ID()),
		PID:       job.PID(),
	}); err != nil {
		log.Warn(log.CatProvider, "terminal info update failed", "session", id, "error", err)
	}

	log.Info(log.CatProvider, "session opened",
		"session", id, "surface", surf.ID(), "pid", job.PID())
	return surf, nil
}

// Close hides the slot; the surface and its process stay alive.
func (n *Native) Close() error {
	n.deps.Present.Hide()
	return nil
}

// CloseSession marks the session as intentionally closing and tears its
// process down two-phase. Surface removal is left to the exit handler.
func (n *Native) CloseSession(id session.ID) error {
	surf := n.liveSurface(id)
	if surf == nil {
		return fmt.Errorf("close session %s: %w", id, ErrNoSurface)
	}

	n.deps.Closing.Mark(id)
	registry.KillTwoPhase(context.Background(), surf.PID())
	if job := surf.Job(); job != nil {
		job.Stop()
	}
	return nil
}

// CloseSessionKeepWindow swaps newID into the slot before killing oldID's
// process. The closing-set entry stays for the exit handler.
func (n *Native) CloseSessionKeepWindow(ctx context.Context, oldID, newID session.ID, opts OpenOptions) error {
	n.deps.Closing.Mark(oldID)

	replacement, ok := n.findReplacement(newID)
	if !ok {
		// No recoverable surface anywhere; materialize a fresh one.
		if err := n.OpenSession(ctx, newID, opts); err != nil {
			return fmt.Errorf("materializing replacement session %s: %w", newID, err)
		}
	} else {
		if err := n.deps.Present.Present(replacement, opts.Focus); err != nil {
			return fmt.Errorf("presenting replacement surface: %w", err)
		}
		if err := n.deps.Sessions.SetActive(newID); err != nil {
			log.Warn(log.CatProvider, "set active failed", "session", newID, "error", err)
		}
	}

	// Only after the replacement is on screen does the old process die.
	if old := n.liveSurface(oldID); old != nil {
		registry.KillTwoPhase(ctx, old.PID())
		if job := old.Job(); job != nil {
			job.Stop()
		}
	}
	return nil
}

// findReplacement locates newID's surface through the three recovery paths:
// the live store, the process-wide legacy reference, then the session
// registry's recorded buffer identity.
func (n *Native) findReplacement(newID session.ID) (surface.ID, bool) {
	if surf := n.deps.Surfaces.BySession(newID); surf != nil {
		return surf.ID(), true
	}
	if surfID, ok := legacySurface(newID); ok {
		if n.deps.Surfaces.Get(surfID) != nil {
			return surfID, true
		}
	}
	if sess, ok := n.deps.Sessions.Get(newID); ok && sess.Terminal != nil {
		surfID := surface.ID(sess.Terminal.BufferID)
		if n.deps.Surfaces.Get(surfID) != nil {
			return surfID, true
		}
	}
	return "", false
}

// FocusSession presents (if hidden) and focuses the session's surface.
func (n *Native) FocusSession(id session.ID) error {
	surf := n.liveSurface(id)
	if surf == nil {
		return fmt.Errorf("focus session %s: %w", id, ErrNoSurface)
	}
	if !n.deps.Present.IsVisible() {
		return n.deps.Present.Present(surf.ID(), true)
	}
	return n.deps.Present.Focus(surf.ID())
}

// SimpleToggle unconditionally shows or hides the slot.
func (n *Native) SimpleToggle(ctx context.Context, opts OpenOptions) error {
	if n.deps.Present.IsVisible() {
		n.deps.Present.Hide()
		return nil
	}
	return n.Open(ctx, opts)
}

// FocusToggle hides only when the slot's surface is focused; a visible but
// unfocused slot is focused instead.
func (n *Native) FocusToggle(ctx context.Context, opts OpenOptions) error {
	if n.deps.Present.IsVisible() {
		if current, ok := n.deps.Present.CurrentSurface(); ok {
			if n.deps.Present.IsFocused(current) {
				n.deps.Present.Hide()
				return nil
			}
			return n.deps.Present.Focus(current)
		}
		n.deps.Present.Hide()
		return nil
	}
	opts.Focus = true
	return n.Open(ctx, opts)
}

// ActiveSurfaceID implements Provider.
func (n *Native) ActiveSurfaceID() (surface.ID, bool) {
	return n.deps.Present.CurrentSurface()
}

// SurfaceIDForSession implements Provider.
func (n *Native) SurfaceIDForSession(id session.ID) (surface.ID, bool) {
	if surf := n.liveSurface(id); surf != nil {
		return surf.ID(), true
	}
	return "", false
}

// ListActiveSessionIDs returns sessions that currently hold a live surface.
func (n *Native) ListActiveSessionIDs() []session.ID {
	n.mu.Lock()
	defer n.mu.Unlock()
	ids := make([]session.ID, 0, len(n.bySession))
	for id, surf := range n.bySession {
		if job := surf.Job(); job != nil && job.IsRunning() {
			ids = append(ids, id)
		}
	}
	return ids
}

// Forget drops all bookkeeping for a session. The dock manager calls it
// from the exit handler, the only place surface teardown is allowed.
func (n *Native) Forget(id session.ID) {
	n.mu.Lock()
	surf := n.bySession[id]
	delete(n.bySession, id)
	n.mu.Unlock()

	if surf != nil {
		n.deps.Surfaces.Remove(surf.ID())
	}
	forgetSurface(id)
}

// liveSurface returns the session's surface when its process still runs.
func (n *Native) liveSurface(id session.ID) *surface.Surface {
	n.mu.Lock()
	surf := n.bySession[id]
	n.mu.Unlock()

	if surf == nil {
		// Recovery: the store may know a surface this instance does not,
		// e.g. after the manager was rebuilt mid-session.
		surf = n.deps.Surfaces.BySession(id)
		if surf == nil {
			return nil
		}
		n.mu.Lock()
		n.bySession[id] = surf
		n.mu.Unlock()
	}
	if job := surf.Job(); job == nil || !job.IsRunning() {
		return nil
	}
	return surf
}

var _ Provider = (*Native)(nil)
