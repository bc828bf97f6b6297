package provider

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/termdock/termdock/internal/config"
	"github.com/termdock/termdock/internal/dock/proc"
	"github.com/termdock/termdock/internal/dock/surface"
	"github.com/termdock/termdock/internal/session"
)

// fakePresenter records slot interactions for assertions.
type fakePresenter struct {
	mu        sync.Mutex
	visible   bool
	current   surface.ID
	focused   map[surface.ID]bool
	width     int
	height    int
	presented []surface.ID
	onPresent func(surface.ID)
}

func newFakePresenter() *fakePresenter {
	return &fakePresenter{focused: make(map[surface.ID]bool), width: 80, height: 24}
}

func (f *fakePresenter) Present(id surface.ID, focus bool) error {
	f.mu.Lock()
	f.visible = true
	f.current = id
	f.focused[id] = focus
	f.presented = append(f.presented, id)
	cb := f.onPresent
	f.mu.Unlock()
	if cb != nil {
		cb(id)
	}
	return nil
}

func (f *fakePresenter) Hide() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visible = false
}

func (f *fakePresenter) IsVisible() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visible
}

func (f *fakePresenter) Dimensions() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.width, f.height
}

func (f *fakePresenter) CurrentSurface() (surface.ID, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, f.visible && f.current != ""
}

func (f *fakePresenter) Focus(id surface.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.focused[id] = true
	return nil
}

func (f *fakePresenter) IsFocused(id surface.ID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.focused[id]
}

type fakeClosing struct {
	mu     sync.Mutex
	marked []session.ID
}

func (f *fakeClosing) Mark(id session.ID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, id)
}

func (f *fakeClosing) has(id session.ID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.marked {
		if m == id {
			return true
		}
	}
	return false
}

type fakeTracker struct {
	mu   sync.Mutex
	jobs []*proc.Job
}

func (f *fakeTracker) Track(job *proc.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
}

func (f *fakeTracker) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}

func testDeps() (Deps, *fakePresenter, *fakeClosing, *fakeTracker) {
	presenter := newFakePresenter()
	closing := &fakeClosing{}
	tracker := &fakeTracker{}
	deps := Deps{
		Surfaces: surface.NewStore(),
		Sessions: session.NewMemoryRegistry(),
		Registry: tracker,
		Present:  presenter,
		Closing:  closing,
	}
	return deps, presenter, closing, tracker
}

// stubProvider is a minimal Provider for table tests.
type stubProvider struct {
	name      string
	available bool
	toggled   int
}

func (s *stubProvider) Name() string      { return s.name }
func (s *stubProvider) IsAvailable() bool { return s.available }
func (s *stubProvider) Open(context.Context, OpenOptions) error {
	return nil
}
func (s *stubProvider) OpenSession(context.Context, session.ID, OpenOptions) error { return nil }
func (s *stubProvider) Close() error                                               { return nil }
func (s *stubProvider) CloseSession(session.ID) error                              { return nil }
func (s *stubProvider) CloseSessionKeepWindow(context.Context, session.ID, session.ID, OpenOptions) error {
	return nil
}
func (s *stubProvider) FocusSession(session.ID) error { return nil }
func (s *stubProvider) SimpleToggle(context.Context, OpenOptions) error {
	s.toggled++
	return nil
}
func (s *stubProvider) FocusToggle(context.Context, OpenOptions) error { return nil }
func (s *stubProvider) ActiveSurfaceID() (surface.ID, bool)            { return "", false }
func (s *stubProvider) SurfaceIDForSession(session.ID) (surface.ID, bool) {
	return "", false
}
func (s *stubProvider) ListActiveSessionIDs() []session.ID { return nil }

// optionalProvider adds its own Toggle.
type optionalProvider struct {
	stubProvider
	ownToggle int
}

func (o *optionalProvider) Toggle(context.Context, OpenOptions) error {
	o.ownToggle++
	return nil
}

func (o *optionalProvider) DebugState() map[string]any {
	return map[string]any{"custom": true}
}

func TestTableRegisterValidation(t *testing.T) {
	table := NewTable()

	_, err := table.Register(nil)
	require.Error(t, err)

	_, err = table.Register(&stubProvider{name: ""})
	require.Error(t, err)

	_, err = table.Register(&stubProvider{name: "custom"})
	require.NoError(t, err)

	_, err = table.Register(&stubProvider{name: "custom"})
	require.Error(t, err)

	require.Equal(t, []string{"custom"}, table.Names())
}

func TestValidatedSuppliesToggleDefault(t *testing.T) {
	table := NewTable()
	stub := &stubProvider{name: "plain", available: true}
	v, err := table.Register(stub)
	require.NoError(t, err)

	require.NoError(t, v.Toggle(context.Background(), OpenOptions{}))
	require.Equal(t, 1, stub.toggled, "default Toggle composes SimpleToggle")

	state := v.DebugState()
	require.Equal(t, "plain", state["name"])
}

func TestValidatedUsesOptionalWhenImplemented(t *testing.T) {
	table := NewTable()
	opt := &optionalProvider{stubProvider: stubProvider{name: "rich", available: true}}
	v, err := table.Register(opt)
	require.NoError(t, err)

	require.NoError(t, v.Toggle(context.Background(), OpenOptions{}))
	require.Equal(t, 1, opt.ownToggle)
	require.Zero(t, opt.toggled)
	require.Equal(t, map[string]any{"custom": true}, v.DebugState())
}

func TestSelectPolicy(t *testing.T) {
	table := NewTable()
	native, err := table.Register(&stubProvider{name: config.ProviderNative, available: true})
	require.NoError(t, err)
	widget, err := table.Register(&stubProvider{name: config.ProviderWidget, available: true})
	require.NoError(t, err)
	_, err = table.Register(&stubProvider{name: config.ProviderExternal, available: false})
	require.NoError(t, err)

	require.Nil(t, Select(table, config.ProviderNone))
	require.Equal(t, widget, Select(table, config.ProviderAuto))
	require.Equal(t, widget, Select(table, ""))
	require.Equal(t, native, Select(table, "does-not-exist"))
	require.Equal(t, native, Select(table, config.ProviderExternal),
		"unavailable configured provider falls back, never hard-fails")
	require.Equal(t, widget, Select(table, config.ProviderWidget))
}

func TestSelectAutoFallsBackWhenWidgetUnavailable(t *testing.T) {
	table := NewTable()
	native, err := table.Register(&stubProvider{name: config.ProviderNative, available: true})
	require.NoError(t, err)
	_, err = table.Register(&stubProvider{name: config.ProviderWidget, available: false})
	require.NoError(t, err)

	require.Equal(t, native, Select(table, config.ProviderAuto))
}

func TestParseLaunchers(t *testing.T) {
	launchers, err := ParseLaunchers([]byte(`
launchers:
  - name: xterm
    command: xterm
    args: ["-e", "claude"]
  - name: kitty
    command: kitty
    env: ["TERMDOCK=1"]
`))
	require.NoError(t, err)
	require.Len(t, launchers, 2)
	require.Equal(t, []string{"-e", "claude"}, launchers["xterm"].Args)
	require.Equal(t, []string{"TERMDOCK=1"}, launchers["kitty"].Env)
}

func TestParseLaunchersRejectsBadDefinitions(t *testing.T) {
	_, err := ParseLaunchers([]byte("launchers:\n  - command: xterm\n"))
	require.Error(t, err)

	_, err = ParseLaunchers([]byte("launchers:\n  - name: a\n"))
	require.Error(t, err)

	_, err = ParseLaunchers([]byte("launchers:\n  - name: a\n    command: x\n  - name: a\n    command: y\n"))
	require.Error(t, err)

	_, err = ParseLaunchers([]byte("launchers: [\n"))
	require.Error(t, err)
}

func TestLoadLaunchersMissingFile(t *testing.T) {
	launchers, err := LoadLaunchers("/nonexistent/providers.yaml")
	require.NoError(t, err)
	require.Empty(t, launchers)
}
