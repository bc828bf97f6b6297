package provider

import (
	"context"
	"fmt"
	"os/exec"
	"sync"

	"github.com/termdock/termdock/internal/config"
	"github.com/termdock/termdock/internal/dock/proc"
	"github.com/termdock/termdock/internal/dock/registry"
	"github.com/termdock/termdock/internal/dock/surface"
	"github.com/termdock/termdock/internal/log"
	"github.com/termdock/termdock/internal/session"
)

// External hands sessions off to a detached OS application described by a
// launcher definition. It owns no surface: the spawned application renders
// itself, and the dock tracks it by PID only. Surface-facing operations
// degrade to logged no-ops.
type External struct {
	deps      Deps
	launchers map[string]Launcher

	mu        sync.Mutex
	bySession map[session.ID]*proc.Job
}

// NewExternal creates the external backend from the launcher definitions at
// path (providers.yaml).
func NewExternal(deps Deps, path string) (*External, error) {
	launchers, err := LoadLaunchers(path)
	if err != nil {
		return nil, err
	}
	return &External{
		deps:      deps,
		launchers: launchers,
		bySession: make(map[session.ID]*proc.Job),
	}, nil
}

// Name implements Provider.
func (e *External) Name() string { return config.ProviderExternal }

// IsAvailable reports whether at least one launcher's command resolves on
// PATH.
func (e *External) IsAvailable() bool {
	for _, l := range e.launchers {
		if _, err := exec.LookPath(l.Command); err == nil {
			return true
		}
	}
	return false
}

// launcherFor picks the launcher named by opts.Command, else the single
// defined launcher when there is exactly one.
func (e *External) launcherFor(opts OpenOptions) (Launcher, error) {
	if l, ok := e.launchers[opts.Command]; ok {
		return l, nil
	}
	if len(e.launchers) == 1 {
		for _, l := range e.launchers {
			return l, nil
		}
	}
	return Launcher{}, fmt.Errorf("no launcher %q: %w", opts.Command, ErrUnavailable)
}

// Open launches the external application for the active session.
func (e *External) Open(ctx context.Context, opts OpenOptions) error {
	sess, err := e.deps.Sessions.Ensure()
	if err != nil {
		return fmt.Errorf("ensuring session: %w", err)
	}
	return e.OpenSession(ctx, sess.ID, opts)
}

// OpenSession launches the external application for the session unless one
// already runs.
func (e *External) OpenSession(ctx context.Context, id session.ID, opts OpenOptions) error {
	e.mu.Lock()
	existing := e.bySession[id]
	e.mu.Unlock()
	if existing != nil && existing.IsRunning() {
		return e.deps.Sessions.SetActive(id)
	}

	launcher, err := e.launcherFor(opts)
	if err != nil {
		return err
	}

	job, err := proc.NewSpawnBuilder(ctx).
		WithExecutable(launcher.Command, append(launcher.Args, opts.Args...)).
		WithEnv(append(launcher.Env, opts.Env...)).
		WithWorkDir(opts.WorkDir).
		WithSession(id).
		WithDetach(true).
		WithOnExit(e.deps.OnExit).
		Build()
	if err != nil {
		return fmt.Errorf("launching %s: %w", launcher.Name, err)
	}

	e.deps.Registry.Track(job)
	e.mu.Lock()
	e.bySession[id] = job
	e.mu.Unlock()

	if err := e.deps.Sessions.UpdateTerminalInfo(id, &session.TerminalInfo{
		JobID: string(job.ID()),
		PID:   job.PID(),
	}); err != nil {
		log.Warn(log.CatProvider, "terminal info update failed", "session", id, "error", err)
	}

	log.Info(log.CatProvider, "external application launched",
		"session", id, "launcher", launcher.Name, "pid", job.PID())
	return e.deps.Sessions.SetActive(id)
}

// Close has nothing to hide; the external application owns its own window.
func (e *External) Close() error {
	log.Debug(log.CatProvider, "close ignored, external backend owns no slot content")
	return nil
}

// CloseSession kills the session's external application.
func (e *External) CloseSession(id session.ID) error {
	e.mu.Lock()
	job := e.bySession[id]
	e.mu.Unlock()
	if job == nil || !job.IsRunning() {
		return fmt.Errorf("close session %s: %w", id, ErrNoSurface)
	}

	e.deps.Closing.Mark(id)
	registry.KillTwoPhase(context.Background(), job.PID())
	job.Stop()
	return nil
}

// CloseSessionKeepWindow has no window of its own to keep; it activates the
// replacement session (launching it when needed) before killing the old one.
func (e *External) CloseSessionKeepWindow(ctx context.Context, oldID, newID session.ID, opts OpenOptions) error {
	e.deps.Closing.Mark(oldID)
	if err := e.OpenSession(ctx, newID, opts); err != nil {
		return err
	}

	e.mu.Lock()
	old := e.bySession[oldID]
	e.mu.Unlock()
	if old != nil && old.IsRunning() {
		registry.KillTwoPhase(ctx, old.PID())
		old.Stop()
	}
	return nil
}

// FocusSession cannot focus another application's window.
func (e *External) FocusSession(id session.ID) error {
	log.Debug(log.CatProvider, "focus ignored, external backend", "session", id)
	return e.deps.Sessions.SetActive(id)
}

// SimpleToggle re-launches when nothing runs; there is no hide.
func (e *External) SimpleToggle(ctx context.Context, opts OpenOptions) error {
	return e.Open(ctx, opts)
}

// FocusToggle degrades to SimpleToggle for this backend.
func (e *External) FocusToggle(ctx context.Context, opts OpenOptions) error {
	return e.SimpleToggle(ctx, opts)
}

// ActiveSurfaceID implements Provider; external sessions own no surface.
func (e *External) ActiveSurfaceID() (surface.ID, bool) { return "", false }

// SurfaceIDForSession implements Provider; external sessions own no surface.
func (e *External) SurfaceIDForSession(session.ID) (surface.ID, bool) { return "", false }

// ListActiveSessionIDs returns sessions whose application still runs.
func (e *External) ListActiveSessionIDs() []session.ID {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]session.ID, 0, len(e.bySession))
	for id, job := range e.bySession {
		if job.IsRunning() {
			ids = append(ids, id)
		}
	}
	return ids
}

// Forget drops the session's job handle after exit handling.
func (e *External) Forget(id session.ID) {
	e.mu.Lock()
	delete(e.bySession, id)
	e.mu.Unlock()
}

var _ Provider = (*External)(nil)
