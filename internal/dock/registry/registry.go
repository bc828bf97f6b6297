// Package registry tracks every process the dock has spawned and owns their
// cleanup. The in-memory registry is the fast path; a SQLite-backed durable
// layer lets a later invocation find and kill processes that survived a host
// crash or reload.
package registry

import (
	"context"
	"os"
	"sync"

	"github.com/termdock/termdock/internal/dock/proc"
	"github.com/termdock/termdock/internal/dock/surface"
	"github.com/termdock/termdock/internal/log"
	"github.com/termdock/termdock/internal/session"
)

// entry is one tracked process.
type entry struct {
	jobID     proc.JobID
	sessionID session.ID
	pid       int
	job       *proc.Job
}

// Registry tracks spawned jobs and kills them during cleanup. Construct one
// per host process via New and share it; Install/Default provide the shared
// handle for code without access to the wiring.
type Registry struct {
	strategy string
	provider string
	durable  *DurableStore
	sessions session.Registry
	surfaces *surface.Store

	mu      sync.Mutex
	entries map[proc.JobID]*entry
}

// Option configures a Registry.
type Option func(*Registry)

// WithDurable attaches the SQLite-backed durable layer.
func WithDurable(ds *DurableStore) Option {
	return func(r *Registry) { r.durable = ds }
}

// WithSessions attaches the session registry, one of the cleanup PID sources.
func WithSessions(sessions session.Registry) Option {
	return func(r *Registry) { r.sessions = sessions }
}

// WithSurfaces attaches the surface store, one of the cleanup PID sources.
func WithSurfaces(store *surface.Store) Option {
	return func(r *Registry) { r.surfaces = store }
}

// WithProviderName records which backend spawned the tracked jobs; stored in
// the durable layer for the cleanup CLI's listing.
func WithProviderName(name string) Option {
	return func(r *Registry) { r.provider = name }
}

// New creates a Registry using the given kill strategy
// (config.StrategyPkillChildren and friends).
func New(strategy string, opts ...Option) *Registry {
	r := &Registry{
		strategy: strategy,
		entries:  make(map[proc.JobID]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var (
	installMu sync.Mutex
	installed *Registry
)

// Install publishes r as the process-wide registry. Installing twice is a
// programming error and panics; the registry must be constructed exactly once.
func Install(r *Registry) {
	installMu.Lock()
	defer installMu.Unlock()
	if installed != nil {
		panic("registry: Install called twice")
	}
	installed = r
}

// Default returns the installed registry, or nil before Install.
func Default() *Registry {
	installMu.Lock()
	defer installMu.Unlock()
	return installed
}

// Track records a job for later cleanup. Jobs whose PID cannot be resolved
// are skipped silently: a process that never started needs no cleanup, and
// failing the caller here would take down an otherwise healthy open.
func (r *Registry) Track(job *proc.Job) {
	if job == nil {
		return
	}
	pid := job.PID()
	if pid <= 0 {
		log.Debug(log.CatRegistry, "track skipped, no pid", "job", job.ID())
		return
	}

	r.mu.Lock()
	r.entries[job.ID()] = &entry{
		jobID:     job.ID(),
		sessionID: job.SessionID(),
		pid:       pid,
		job:       job,
	}
	r.mu.Unlock()

	if r.durable != nil {
		rec := JobRecord{
			JobID:     string(job.ID()),
			SessionID: string(job.SessionID()),
			PID:       pid,
			Command:   job.CommandLine(),
			Provider:  r.provider,
			OwnerPID:  os.Getpid(),
		}
		if err := r.durable.Save(rec); err != nil {
			log.Warn(log.CatRegistry, "durable save failed", "job", job.ID(), "error", err)
		}
	}
	log.Debug(log.CatRegistry, "job tracked", "job", job.ID(), "pid", pid)
}

// Untrack removes a job after its normal exit. Killing is not involved; the
// process is already gone.
func (r *Registry) Untrack(id proc.JobID) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()

	if r.durable != nil {
		if err := r.durable.Delete(string(id)); err != nil {
			log.Warn(log.CatRegistry, "durable delete failed", "job", id, "error", err)
		}
	}
	log.Debug(log.CatRegistry, "job untracked", "job", id)
}

// TrackedCount returns the number of tracked jobs.
func (r *Registry) TrackedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// TrackedPIDs returns the PIDs of all tracked jobs.
func (r *Registry) TrackedPIDs() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	pids := make([]int, 0, len(r.entries))
	for _, e := range r.entries {
		pids = append(pids, e.pid)
	}
	return pids
}

// target is one merged cleanup candidate.
type target struct {
	pid int
	job *proc.Job
}

// CleanupAll kills every process the dock may have spawned. Three PID
// sources are merged before any kill: tracked jobs, the session registry
// walk, and the live-surface scan. Tracked state alone is not trusted: a
// reload can drop the in-memory map while sessions and surfaces still hold
// live process identities. The call is idempotent: a second invocation with
// nothing tracked and no live surfaces is a no-op.
func (r *Registry) CleanupAll(ctx context.Context) {
	targets := r.collectTargets()
	if len(targets) == 0 {
		log.Debug(log.CatRegistry, "cleanup: nothing to do")
		return
	}

	pids := make([]int, 0, len(targets))
	jobs := make([]*proc.Job, 0, len(targets))
	for _, t := range targets {
		if t.pid > 0 {
			pids = append(pids, t.pid)
		}
		if t.job != nil {
			jobs = append(jobs, t.job)
		}
	}

	log.Info(log.CatRegistry, "cleanup start",
		"strategy", r.strategy, "pids", len(pids), "jobs", len(jobs))
	applyStrategy(ctx, r.strategy, pids, jobs)

	// Every strategy finishes with the job handles' own stop, then the
	// registry is cleared.
	for _, job := range jobs {
		job.Stop()
	}

	r.mu.Lock()
	r.entries = make(map[proc.JobID]*entry)
	r.mu.Unlock()

	if r.durable != nil {
		if err := r.durable.DeleteByOwner(os.Getpid()); err != nil {
			log.Warn(log.CatRegistry, "durable clear failed", "error", err)
		}
	}
	log.Info(log.CatRegistry, "cleanup done")
}

// collectTargets merges the three PID sources, deduplicating by job where
// the job is known and by PID otherwise.
func (r *Registry) collectTargets() []target {
	seenJobs := make(map[proc.JobID]bool)
	seenPIDs := make(map[int]bool)
	var targets []target

	add := func(jobID proc.JobID, pid int, job *proc.Job) {
		if jobID != "" {
			if seenJobs[jobID] {
				return
			}
			seenJobs[jobID] = true
		}
		if pid > 0 {
			if seenPIDs[pid] {
				return
			}
			seenPIDs[pid] = true
		}
		if pid <= 0 && job == nil {
			return
		}
		targets = append(targets, target{pid: pid, job: job})
	}

	r.mu.Lock()
	for _, e := range r.entries {
		add(e.jobID, e.pid, e.job)
	}
	r.mu.Unlock()

	if r.sessions != nil {
		for _, sess := range r.sessions.List() {
			if sess.Terminal == nil {
				continue
			}
			add(proc.JobID(sess.Terminal.JobID), sess.Terminal.PID, nil)
		}
	}

	if r.surfaces != nil {
		r.surfaces.ForEachTerminal(func(s *surface.Surface) {
			job := s.Job()
			var id proc.JobID
			if job != nil {
				id = job.ID()
			}
			add(id, s.PID(), job)
		})
	}

	return targets
}

// SweepOrphans scans the durable layer for jobs recorded by a dead owner
// process. Surviving PIDs are force-killed children-first; rows are dropped
// either way.
func (r *Registry) SweepOrphans() {
	if r.durable == nil {
		return
	}
	records, err := r.durable.List()
	if err != nil {
		log.Warn(log.CatRegistry, "orphan scan failed", "error", err)
		return
	}

	current := os.Getpid()
	for _, rec := range records {
		if rec.OwnerPID == current || proc.Alive(rec.OwnerPID) {
			continue
		}
		if proc.Alive(rec.PID) {
			log.Info(log.CatRegistry, "killing orphan",
				"job", rec.JobID, "pid", rec.PID, "owner", rec.OwnerPID)
			forceKillTree(rec.PID)
		}
		if err := r.durable.Delete(rec.JobID); err != nil {
			log.Warn(log.CatRegistry, "orphan row delete failed", "job", rec.JobID, "error", err)
		}
	}
}

// Strategy returns the configured kill strategy.
func (r *Registry) Strategy() string { return r.strategy }
