package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/termdock/termdock/internal/session"
)

// Table holds registered providers by name. Custom providers are validated
// once at registration and wrapped so optional operations always resolve.
type Table struct {
	mu        sync.RWMutex
	providers map[string]*Validated
}

// NewTable creates an empty provider table.
func NewTable() *Table {
	return &Table{providers: make(map[string]*Validated)}
}

// Register validates and stores a provider under its name. A nil provider,
// empty name, or duplicate name is rejected.
func (t *Table) Register(p Provider) (*Validated, error) {
	if p == nil {
		return nil, fmt.Errorf("register: provider cannot be nil")
	}
	name := p.Name()
	if name == "" {
		return nil, fmt.Errorf("register: provider name cannot be empty")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.providers[name]; exists {
		return nil, fmt.Errorf("register: provider %q already registered", name)
	}
	v := newValidated(p)
	t.providers[name] = v
	return v, nil
}

// Lookup returns the provider registered under name.
func (t *Table) Lookup(name string) (*Validated, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.providers[name]
	return v, ok
}

// Names returns the registered provider names, sorted.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.providers))
	for name := range t.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validated wraps a registered provider, supplying composed defaults for
// the optional operations a custom provider may omit.
type Validated struct {
	Provider
	optional Optional
}

func newValidated(p Provider) *Validated {
	v := &Validated{Provider: p}
	if opt, ok := p.(Optional); ok {
		v.optional = opt
	}
	return v
}

// Toggle runs the provider's own toggle when implemented, else the composed
// default (SimpleToggle).
func (v *Validated) Toggle(ctx context.Context, opts OpenOptions) error {
	if v.optional != nil {
		return v.optional.Toggle(ctx, opts)
	}
	return v.SimpleToggle(ctx, opts)
}

// SessionForgetter is implemented by backends that keep per-session
// bookkeeping the exit handler must drop after teardown.
type SessionForgetter interface {
	Forget(id session.ID)
}

// Forget drops per-session bookkeeping on backends that keep any.
func (v *Validated) Forget(id session.ID) {
	if f, ok := v.Provider.(SessionForgetter); ok {
		f.Forget(id)
	}
}

// DebugState returns the provider's introspection map, or a minimal default.
func (v *Validated) DebugState() map[string]any {
	if v.optional != nil {
		return v.optional.DebugState()
	}
	active, ok := v.ActiveSurfaceID()
	state := map[string]any{
		"name":      v.Name(),
		"available": v.IsAvailable(),
		"sessions":  len(v.ListActiveSessionIDs()),
	}
	if ok {
		state["active_surface"] = string(active)
	}
	return state
}
