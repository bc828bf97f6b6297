package dock

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/termdock/termdock/internal/config"
	"github.com/termdock/termdock/internal/dock/proc"
	"github.com/termdock/termdock/internal/dock/provider"
	"github.com/termdock/termdock/internal/dock/registry"
	"github.com/termdock/termdock/internal/log"
	"github.com/termdock/termdock/internal/pubsub"
	"github.com/termdock/termdock/internal/session"
	"github.com/termdock/termdock/internal/tracing"
)

// lifecycleState is the per-session state machine. The explicit closer and
// the asynchronous exit callback both funnel through a CAS transition to
// stateClosing; only the winner runs teardown.
type lifecycleState int

const (
	stateOpen lifecycleState = iota
	stateClosing
	stateClosed
)

// closeReason records who won the transition to stateClosing.
type closeReason int

const (
	reasonUserClose closeReason = iota
	reasonProcessExit
)

func (r closeReason) String() string {
	if r == reasonUserClose {
		return "user_close"
	}
	return "process_exit"
}

// SessionEvent is published on every lifecycle edge the host may care
// about: opens, closes, crashes.
type SessionEvent struct {
	SessionID session.ID
	Kind      SessionEventKind
	ExitCode  int
	Err       error
}

// SessionEventKind enumerates lifecycle edges.
type SessionEventKind int

const (
	EventOpened SessionEventKind = iota
	EventClosed
	EventCrashed
	EventSwitched
)

// Manager orchestrates sessions through the single display slot. It owns
// the lifecycle state machine, installs itself as the provider's exit
// handler, and is the only component allowed to clear ClosingSet entries.
type Manager struct {
	cfg      config.Config
	prov     *provider.Validated
	sessions session.Registry
	registry *registry.Registry
	slot     *Slot
	closing  *ClosingSet
	events   *pubsub.Broker[SessionEvent]

	mu     sync.Mutex
	states map[session.ID]lifecycleState
}

// NewManager wires the orchestration layer. The provider must have been
// built with this manager's HandleExit as its OnExit (see Builder in the
// app wiring); nil prov means the "none" provider and every operation
// degrades to a logged no-op.
func NewManager(cfg config.Config, prov *provider.Validated, sessions session.Registry,
	reg *registry.Registry, slot *Slot, closing *ClosingSet) *Manager {
	return &Manager{
		cfg:      cfg,
		prov:     prov,
		sessions: sessions,
		registry: reg,
		slot:     slot,
		closing:  closing,
		events:   pubsub.NewBroker[SessionEvent](),
		states:   make(map[session.ID]lifecycleState),
	}
}

// Events exposes the lifecycle event broker for host subscriptions.
func (m *Manager) Events() *pubsub.Broker[SessionEvent] {
	return m.events
}

// Slot exposes the display slot for host layout and rendering.
func (m *Manager) Slot() *Slot {
	return m.slot
}

// ProviderName reports the selected backend, "none" when degraded.
func (m *Manager) ProviderName() string {
	if m.prov == nil {
		return config.ProviderNone
	}
	return m.prov.Name()
}

// openOptions builds the spawn options from configuration.
func (m *Manager) openOptions(focus bool) provider.OpenOptions {
	return provider.OpenOptions{
		Command: m.cfg.Command,
		Args:    m.cfg.Args,
		Env:     m.cfg.Env,
		Focus:   focus,
	}
}

func (m *Manager) providerMissing() bool {
	if m.prov == nil {
		log.Debug(log.CatSlot, "operation ignored, provider is none")
		return true
	}
	return false
}

// Open shows the active session, creating one when none exists.
func (m *Manager) Open(ctx context.Context) error {
	if m.providerMissing() {
		return nil
	}
	ctx, span := tracing.Start(ctx, "dock.open",
		attribute.String("provider", m.prov.Name()))
	defer span.End()
	if err := m.prov.Open(ctx, m.openOptions(true)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if id, ok := m.sessions.ActiveID(); ok {
		m.setState(id, stateOpen)
		m.events.Publish(pubsub.CreatedEvent, SessionEvent{SessionID: id, Kind: EventOpened})
	}
	return nil
}

// Close hides the slot; processes keep running.
func (m *Manager) Close() error {
	if m.providerMissing() {
		return nil
	}
	return m.prov.Close()
}

// SimpleToggle unconditionally shows or hides the slot.
func (m *Manager) SimpleToggle(ctx context.Context) error {
	if m.providerMissing() {
		return nil
	}
	return m.prov.SimpleToggle(ctx, m.openOptions(false))
}

// FocusToggle hides only when focused, else focuses.
func (m *Manager) FocusToggle(ctx context.Context) error {
	if m.providerMissing() {
		return nil
	}
	return m.prov.FocusToggle(ctx, m.openOptions(false))
}

// OpenNewSession creates a fresh session and presents it.
func (m *Manager) OpenNewSession(ctx context.Context) error {
	if m.providerMissing() {
		return nil
	}
	ctx, span := tracing.Start(ctx, "dock.open_new_session",
		attribute.String("provider", m.prov.Name()))
	defer span.End()
	sess, err := m.sessions.Create()
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	span.SetAttributes(attribute.String("session.id", string(sess.ID)))
	if err := m.prov.OpenSession(ctx, sess.ID, m.openOptions(true)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	m.setState(sess.ID, stateOpen)
	m.events.Publish(pubsub.CreatedEvent, SessionEvent{SessionID: sess.ID, Kind: EventOpened})
	return nil
}

// SwitchToSession presents the given session, reusing its surface when one
// lives.
func (m *Manager) SwitchToSession(ctx context.Context, id session.ID) error {
	if m.providerMissing() {
		return nil
	}
	if _, ok := m.sessions.Get(id); !ok {
		return fmt.Errorf("switch: %w", session.ErrNotFound)
	}
	ctx, span := tracing.Start(ctx, "dock.switch_session",
		attribute.String("session.id", string(id)))
	defer span.End()
	if err := m.prov.OpenSession(ctx, id, m.openOptions(true)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	m.setState(id, stateOpen)
	m.events.Publish(pubsub.UpdatedEvent, SessionEvent{SessionID: id, Kind: EventSwitched})
	return nil
}

// ListSessions returns the registry's sessions.
func (m *Manager) ListSessions() []*session.Session {
	return m.sessions.List()
}

// CloseSession tears down the given session (the active one when id is
// empty). When another session exists its surface replaces the closing one
// in the slot before the old process dies; otherwise the slot hides.
func (m *Manager) CloseSession(ctx context.Context, id session.ID) error {
	if m.providerMissing() {
		return nil
	}
	if id == "" {
		active, ok := m.sessions.ActiveID()
		if !ok {
			return provider.ErrNoActiveSession
		}
		id = active
	}
	if _, ok := m.sessions.Get(id); !ok {
		return fmt.Errorf("close: %w", session.ErrNotFound)
	}
	ctx, span := tracing.Start(ctx, "dock.close_session",
		attribute.String("session.id", string(id)))
	defer span.End()

	if !m.beginClose(id, reasonUserClose) {
		log.Debug(log.CatSlot, "close ignored, session already closing", "session", id)
		return nil
	}

	replacement, hasReplacement := m.pickReplacement(id)

	var err error
	if hasReplacement {
		err = m.prov.CloseSessionKeepWindow(ctx, id, replacement, m.openOptions(true))
	} else {
		err = m.prov.CloseSession(id)
		m.slot.Hide()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Warn(log.CatSlot, "session teardown reported error", "session", id, "error", err)
	}

	// The session identity goes away now; surface/process bookkeeping is
	// cleared by the exit handler when the exit event lands.
	if destroyErr := m.sessions.Destroy(id); destroyErr != nil {
		log.Warn(log.CatSlot, "session destroy failed", "session", id, "error", destroyErr)
	}
	if hasReplacement {
		if activeErr := m.sessions.SetActive(replacement); activeErr != nil {
			log.Warn(log.CatSlot, "set active failed", "session", replacement, "error", activeErr)
		}
	}
	m.events.Publish(pubsub.DeletedEvent, SessionEvent{SessionID: id, Kind: EventClosed})
	return err
}

// pickReplacement chooses the session whose surface should take over the
// slot: the first other session with a live surface, else the first other
// session at all.
func (m *Manager) pickReplacement(closing session.ID) (session.ID, bool) {
	var fallback session.ID
	for _, sess := range m.sessions.List() {
		if sess.ID == closing {
			continue
		}
		if _, ok := m.prov.SurfaceIDForSession(sess.ID); ok {
			return sess.ID, true
		}
		if fallback == "" {
			fallback = sess.ID
		}
	}
	if fallback != "" {
		return fallback, true
	}
	return "", false
}

// CleanupAll runs the global kill path.
func (m *Manager) CleanupAll(ctx context.Context) {
	ctx, span := tracing.Start(ctx, "dock.cleanup_all",
		attribute.String("strategy", m.cfg.CleanupStrategy))
	defer span.End()
	m.registry.CleanupAll(ctx)
}

// HandleExit is installed as the provider's OnExit callback. It races the
// explicit closer through the same CAS transition; whoever wins runs the
// teardown decisions, and the ClosingSet disambiguates why the process
// died.
func (m *Manager) HandleExit(ev proc.ExitEvent) {
	id := ev.SessionID
	intentional := ev.SessionID != "" && m.closing.Contains(id)

	wonTransition := m.beginClose(id, reasonProcessExit)

	// Was the dead session's surface the one on screen? Decided before
	// the bookkeeping below forgets the surface.
	presented := false
	if sess, ok := m.sessions.Get(id); ok && sess.Terminal != nil {
		if current, visible := m.slot.CurrentSurface(); visible &&
			string(current) == sess.Terminal.SurfaceID {
			presented = true
		}
	}

	// Normal-exit bookkeeping happens regardless of who won: the process
	// is gone, so its tracking entry and surface go too.
	m.registry.Untrack(ev.JobID)
	if m.prov != nil {
		m.prov.Forget(id)
	}

	switch {
	case intentional:
		// User-initiated close: suppress error reporting and skip the
		// failover logic the closer already performed. Only the exit
		// handler clears the marker.
		m.closing.Clear(id)
		log.Debug(log.CatSlot, "intentional close completed",
			"session", id, "job", ev.JobID)
	case wonTransition:
		if ev.ExitCode != 0 || ev.Err != nil {
			log.Warn(log.CatSlot, "session process exited abnormally",
				"session", id, "code", ev.ExitCode, "error", ev.Err)
		}
		m.events.Publish(pubsub.UpdatedEvent, SessionEvent{
			SessionID: id, Kind: EventCrashed, ExitCode: ev.ExitCode, Err: ev.Err,
		})
		if presented {
			m.failover(id)
		}
	}

	m.setState(id, stateClosed)
}

// failover decides what the slot shows after a crash took its surface away.
func (m *Manager) failover(crashed session.ID) {
	if next, ok := m.pickReplacement(crashed); ok {
		if surfID, live := m.prov.SurfaceIDForSession(next); live {
			if err := m.slot.Present(surfID, false); err == nil {
				if err := m.sessions.SetActive(next); err != nil {
					log.Warn(log.CatSlot, "set active failed", "session", next, "error", err)
				}
				return
			}
		}
	}
	if m.cfg.AutoCloseOnExit {
		m.slot.Hide()
	}
}

// beginClose attempts the Open -> Closing transition. Returns true when
// this caller won and owns teardown.
func (m *Manager) beginClose(id session.ID, reason closeReason) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, known := m.states[id]
	if known && state != stateOpen {
		return false
	}
	m.states[id] = stateClosing
	log.Debug(log.CatSlot, "lifecycle closing", "session", id, "reason", reason)
	return true
}

func (m *Manager) setState(id session.ID, state lifecycleState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state == stateClosed {
		delete(m.states, id)
		return
	}
	m.states[id] = state
}
