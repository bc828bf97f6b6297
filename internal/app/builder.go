package app

import (
	"context"
	"fmt"

	"github.com/termdock/termdock/internal/config"
	"github.com/termdock/termdock/internal/conn"
	"github.com/termdock/termdock/internal/dock"
	"github.com/termdock/termdock/internal/dock/proc"
	"github.com/termdock/termdock/internal/dock/provider"
	"github.com/termdock/termdock/internal/dock/registry"
	"github.com/termdock/termdock/internal/dock/surface"
	"github.com/termdock/termdock/internal/log"
	"github.com/termdock/termdock/internal/mention"
	"github.com/termdock/termdock/internal/sched"
	"github.com/termdock/termdock/internal/session"
	"github.com/termdock/termdock/internal/tracing"
)

// Runtime bundles everything the host model and the CLI subcommands need.
type Runtime struct {
	Config   config.Config
	Manager  *dock.Manager
	Sessions session.Registry
	Surfaces *surface.Store
	Slot     *dock.Slot
	Registry *registry.Registry
	Conn     *conn.Tracker
	Mentions *mention.Hub
	Tracing  *tracing.Provider

	durable *registry.DurableStore
}

// BuildRuntime wires the whole subsystem from configuration: durable
// registry (with an orphan sweep from previous runs), surface store, slot,
// provider table, manager, connection tracker, and mention hub.
func BuildRuntime(ctx context.Context, cfg config.Config) (*Runtime, error) {
	traceProvider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("tracing setup: %w", err)
	}

	sessions := session.NewMemoryRegistry()
	surfaces := surface.NewStore()
	slot := dock.NewSlot(surfaces, cfg.Split)
	closing := dock.NewClosingSet()
	tracker := conn.NewTracker()

	var durable *registry.DurableStore
	if cfg.RegistryPath != "" {
		durable, err = registry.OpenDurable(cfg.RegistryPath)
		if err != nil {
			// The in-process registry still works without the durable
			// layer; cross-restart recovery is lost, nothing else.
			log.Warn(log.CatRegistry, "durable registry unavailable",
				"path", cfg.RegistryPath, "error", err)
		}
	}

	regOpts := []registry.Option{
		registry.WithSessions(sessions),
		registry.WithSurfaces(surfaces),
		registry.WithProviderName(cfg.Provider),
	}
	if durable != nil {
		regOpts = append(regOpts, registry.WithDurable(durable))
	}
	// The process entry point calls registry.Install on this registry;
	// installing here would break the exactly-once contract under tests
	// that build multiple runtimes.
	reg := registry.New(cfg.CleanupStrategy, regOpts...)
	reg.SweepOrphans()

	// The manager is the provider's exit handler, but providers are built
	// first; the closure breaks the cycle. Exit events cannot fire before
	// a spawn, and spawns go through the manager.
	var mgr *dock.Manager
	deps := provider.Deps{
		Surfaces: surfaces,
		Sessions: sessions,
		Registry: reg,
		Present:  slot,
		Closing:  closing,
		OnExit: func(ev proc.ExitEvent) {
			if mgr != nil {
				mgr.HandleExit(ev)
			}
		},
	}

	table := provider.NewTable()
	if _, err := table.Register(provider.NewNative(deps)); err != nil {
		return nil, fmt.Errorf("register native provider: %w", err)
	}
	if _, err := table.Register(provider.NewWidget(deps)); err != nil {
		return nil, fmt.Errorf("register widget provider: %w", err)
	}
	if external, err := provider.NewExternal(deps, cfg.LaunchersPath); err != nil {
		log.Warn(log.CatProvider, "external provider unavailable",
			"path", cfg.LaunchersPath, "error", err)
	} else if _, err := table.Register(external); err != nil {
		return nil, fmt.Errorf("register external provider: %w", err)
	}

	validated := provider.Select(table, cfg.Provider)
	mgr = dock.NewManager(cfg, validated, sessions, reg, slot, closing)

	hub := mention.NewHub(cfg.Mention, sched.New(),
		stdinSender(sessions, surfaces), tracker)

	return &Runtime{
		Config:   cfg,
		Manager:  mgr,
		Sessions: sessions,
		Surfaces: surfaces,
		Slot:     slot,
		Registry: reg,
		Conn:     tracker,
		Mentions: hub,
		Tracing:  traceProvider,
		durable:  durable,
	}, nil
}

// Close releases runtime resources. Processes are not touched; callers
// decide whether to run CleanupAll first.
func (rt *Runtime) Close(ctx context.Context) error {
	rt.Conn.Close()
	if rt.durable != nil {
		if err := rt.durable.Close(); err != nil {
			log.Warn(log.CatRegistry, "durable registry close failed", "error", err)
		}
	}
	return rt.Tracing.Shutdown(ctx)
}

// stdinSender delivers mentions over the session process's stdin pipe.
func stdinSender(sessions session.Registry, surfaces *surface.Store) mention.Sender {
	return mention.SenderFunc(func(id session.ID, m mention.PendingMention) error {
		sess, ok := sessions.Get(id)
		if !ok || sess.Terminal == nil {
			return fmt.Errorf("no terminal for session %s", id)
		}
		surf := surfaces.Get(surface.ID(sess.Terminal.BufferID))
		if surf == nil || surf.Job() == nil {
			return fmt.Errorf("no live process for session %s", id)
		}
		return surf.Job().SendText(formatMention(m))
	})
}

// formatMention renders a queued mention as the @-reference the assistant
// CLI understands.
func formatMention(m mention.PendingMention) string {
	if m.LineEnd > m.LineStart {
		return fmt.Sprintf("@%s#L%d-%d", m.Path, m.LineStart, m.LineEnd)
	}
	if m.LineStart > 0 {
		return fmt.Sprintf("@%s#L%d", m.Path, m.LineStart)
	}
	return "@" + m.Path
}
