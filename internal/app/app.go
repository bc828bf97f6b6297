// Package app contains the root application model.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"github.com/termdock/termdock/internal/config"
	"github.com/termdock/termdock/internal/conn"
	"github.com/termdock/termdock/internal/dock"
	"github.com/termdock/termdock/internal/dock/surface"
	"github.com/termdock/termdock/internal/keys"
	"github.com/termdock/termdock/internal/log"
	"github.com/termdock/termdock/internal/mention"
	"github.com/termdock/termdock/internal/pubsub"
	"github.com/termdock/termdock/internal/session"
	"github.com/termdock/termdock/internal/ui/logoverlay"
	"github.com/termdock/termdock/internal/ui/statusbar"
	"github.com/termdock/termdock/internal/ui/styles"
	"github.com/termdock/termdock/internal/watcher"
)

// Options tune host behavior that doesn't belong in the subsystem config.
type Options struct {
	// Debug enables the log overlay toggle.
	Debug bool
	// ConfigPath, when set, is watched so split changes apply live.
	ConfigPath string
	// Reload re-reads the config file after a watcher notification.
	Reload func() (config.Config, error)
}

// configChangedMsg arrives after the watcher's debounce window.
type configChangedMsg struct{}

// Model is the root application state.
type Model struct {
	rt     *Runtime
	opts   Options
	keymap keys.KeyMap

	width  int
	height int

	overlay  logoverlay.Model
	helpView help.Model
	showHelp bool

	logListener     *log.LogListener
	sessionListener *pubsub.ContinuousListener[dock.SessionEvent]
	connListener    *pubsub.ContinuousListener[conn.StateChange]
	listenCtx       context.Context
	listenCancel    context.CancelFunc

	cfgWatcher *watcher.Watcher
	cfgChanges <-chan struct{}

	lastDismiss time.Time
}

// New creates the host model around a built runtime.
func New(rt *Runtime, opts Options) Model {
	ctx, cancel := context.WithCancel(context.Background())

	m := Model{
		rt:              rt,
		opts:            opts,
		keymap:          keys.DefaultKeyMap(),
		overlay:         logoverlay.New(),
		helpView:        help.New(),
		sessionListener: pubsub.NewContinuousListener(ctx, rt.Manager.Events()),
		connListener:    pubsub.NewContinuousListener(ctx, rt.Conn.Broker()),
		listenCtx:       ctx,
		listenCancel:    cancel,
	}
	m.helpView.ShowAll = true

	if opts.Debug {
		m.logListener = log.NewListener(ctx)
	}

	if opts.ConfigPath != "" && opts.Reload != nil {
		w, err := watcher.New(watcher.DefaultConfig(opts.ConfigPath))
		if err == nil {
			changes, startErr := w.Start()
			if startErr == nil {
				m.cfgWatcher = w
				m.cfgChanges = changes
			} else {
				_ = w.Stop()
			}
		}
		// The app works fine without hot reload; errors are not fatal.
	}

	return m
}

// Close tears down listeners and the config watcher. The runtime itself is
// closed by the caller.
func (m Model) Close() {
	m.listenCancel()
	if m.cfgWatcher != nil {
		_ = m.cfgWatcher.Stop()
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.sessionListener.Listen(),
		m.connListener.Listen(),
	}
	if m.logListener != nil {
		cmds = append(cmds, m.logListener.Listen())
	}
	if m.cfgChanges != nil {
		cmds = append(cmds, m.awaitConfigChange())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// The bottom row belongs to the status bar.
		m.rt.Slot.Layout(msg.Width, msg.Height-1, dock.ReasonResize)
		m.overlay.SetSize(msg.Width, msg.Height)
		return m, nil

	case log.LogEvent:
		var cmd tea.Cmd
		m.overlay, cmd = m.overlay.Update(msg)
		cmds := []tea.Cmd{cmd}
		if m.logListener != nil {
			cmds = append(cmds, m.logListener.Listen())
		}
		return m, tea.Batch(cmds...)

	case pubsub.Event[dock.SessionEvent]:
		if msg.Payload.Kind == dock.EventClosed {
			m.rt.Mentions.Remove(msg.Payload.SessionID)
		}
		return m, m.sessionListener.Listen()

	case pubsub.Event[conn.StateChange]:
		if msg.Payload.Connected {
			m.rt.Mentions.OnConnected()
		}
		return m, m.connListener.Listen()

	case configChangedMsg:
		m.applyConfigReload()
		return m, m.awaitConfigChange()

	case logoverlay.CloseMsg:
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.opts.Debug && key.Matches(msg, m.keymap.LogOverlay) && !m.overlay.Visible() {
		m.overlay.Toggle()
		return m, nil
	}
	if m.overlay.Visible() {
		var cmd tea.Cmd
		m.overlay, cmd = m.overlay.Update(msg)
		return m, cmd
	}

	ctx := context.Background()

	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.rt.Manager.CleanupAll(ctx)
		m.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Toggle):
		if err := m.rt.Manager.SimpleToggle(ctx); err != nil {
			log.Warn(log.CatApp, "toggle failed", "error", err)
		}
		return m, nil

	case key.Matches(msg, m.keymap.FocusToggle):
		if err := m.rt.Manager.FocusToggle(ctx); err != nil {
			log.Warn(log.CatApp, "focus toggle failed", "error", err)
		}
		return m, nil

	case key.Matches(msg, m.keymap.NewSession):
		if err := m.rt.Manager.OpenNewSession(ctx); err != nil {
			log.Warn(log.CatApp, "new session failed", "error", err)
		}
		return m, nil

	case key.Matches(msg, m.keymap.NextSession):
		m.switchNeighbor(ctx, 1)
		return m, nil

	case key.Matches(msg, m.keymap.PrevSession):
		m.switchNeighbor(ctx, -1)
		return m, nil

	case key.Matches(msg, m.keymap.CloseSession):
		if err := m.rt.Manager.CloseSession(ctx, ""); err != nil {
			log.Warn(log.CatApp, "close session failed", "error", err)
		}
		return m, nil

	case key.Matches(msg, m.keymap.GrowSlot):
		m.adjustSlotWidth(5)
		return m, nil

	case key.Matches(msg, m.keymap.ShrinkSlot):
		m.adjustSlotWidth(-5)
		return m, nil

	case key.Matches(msg, m.keymap.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keymap.Escape):
		return m.smartDismiss()
	}

	return m, nil
}

// smartDismiss hides the slot only on a double press within the configured
// window while the slot owns focus; a single press is forwarded and only
// arms the timer.
func (m Model) smartDismiss() (tea.Model, tea.Cmd) {
	slot := m.rt.Slot
	current, visible := slot.CurrentSurface()
	if !visible || !slot.IsFocused(current) {
		m.showHelp = false
		return m, nil
	}

	now := time.Now()
	if !m.lastDismiss.IsZero() && now.Sub(m.lastDismiss) <= m.rt.Config.Keys.SmartDismissTimeout {
		m.lastDismiss = time.Time{}
		if err := m.rt.Manager.Close(); err != nil {
			log.Warn(log.CatApp, "dismiss failed", "error", err)
		}
		return m, nil
	}
	m.lastDismiss = now
	return m, nil
}

// switchNeighbor moves the active session forward or backward through the
// creation-ordered list.
func (m Model) switchNeighbor(ctx context.Context, delta int) {
	sessions := m.rt.Manager.ListSessions()
	if len(sessions) < 2 {
		return
	}
	active, ok := m.rt.Sessions.ActiveID()
	if !ok {
		active = sessions[0].ID
	}
	idx := 0
	for i, sess := range sessions {
		if sess.ID == active {
			idx = i
			break
		}
	}
	next := sessions[(idx+delta+len(sessions))%len(sessions)].ID
	if err := m.rt.Manager.SwitchToSession(ctx, next); err != nil {
		log.Warn(log.CatApp, "switch session failed", "error", err)
		return
	}
	// Tab switches re-apply the configured width fraction.
	m.rt.Slot.Layout(m.width, m.height-1, dock.ReasonTabSwitch)
}

// adjustSlotWidth applies a manual width chosen by focus-adjacent keys;
// the fraction is not re-applied until the next resize or tab switch.
func (m Model) adjustSlotWidth(delta int) {
	w, _ := m.rt.Slot.Dimensions()
	if w == 0 {
		return
	}
	w += delta
	if w < 10 {
		w = 10
	}
	if m.width > 0 && w > m.width-10 {
		w = m.width - 10
	}
	m.rt.Slot.SetUserWidth(w)
}

func (m *Model) applyConfigReload() {
	cfg, err := m.opts.Reload()
	if err != nil {
		log.Warn(log.CatConfig, "config reload failed", "error", err)
		return
	}
	log.Info(log.CatConfig, "config reloaded",
		"side", cfg.Split.Side, "width_fraction", cfg.Split.WidthFraction)
	m.rt.Slot.SetSplit(cfg.Split)
}

func (m Model) awaitConfigChange() tea.Cmd {
	changes := m.cfgChanges
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return configChangedMsg{}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	bodyHeight := m.height - 1
	body := m.renderBody(bodyHeight)

	var footer string
	if m.showHelp {
		footer = m.helpView.View(m.keymap)
	} else {
		footer = statusbar.Render(m.width, m.statusState())
	}

	view := body + "\n" + footer
	return m.overlay.Overlay(view)
}

func (m Model) renderBody(height int) string {
	slot := m.rt.Slot
	current, visible := slot.CurrentSurface()
	if !visible {
		return m.renderWorkspace(m.width, height)
	}

	slotW, _ := slot.Dimensions()
	if slotW >= m.width {
		slotW = m.width - 1
	}
	workspace := m.renderWorkspace(m.width-slotW, height)
	pane := m.renderSlotPane(current, slotW, height)

	if slot.Side() == config.SideLeft {
		return lipgloss.JoinHorizontal(lipgloss.Top, pane, workspace)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, workspace, pane)
}

// renderWorkspace draws the session list panel occupying the non-slot
// share of the window.
func (m Model) renderWorkspace(width, height int) string {
	if width < 4 {
		width = 4
	}
	active, _ := m.rt.Sessions.ActiveID()

	var b strings.Builder
	title := lipgloss.NewStyle().Bold(true).Foreground(styles.TextPrimaryColor)
	b.WriteString(title.Render("Sessions"))
	b.WriteString("\n\n")

	sessions := m.rt.Manager.ListSessions()
	if len(sessions) == 0 {
		muted := lipgloss.NewStyle().Foreground(styles.TextMutedColor).Italic(true)
		b.WriteString(muted.Render("none - ctrl+n opens one"))
	}
	for _, sess := range sessions {
		marker := "  "
		if sess.ID == active {
			marker = "> "
		}
		name := runewidth.Truncate(sess.Name, width-6, "…")
		line := marker + name
		if sess.Terminal != nil && sess.Terminal.PID > 0 {
			line += fmt.Sprintf(" [%d]", sess.Terminal.PID)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	panel := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(styles.BorderDefaultColor).
		Width(width - 2).
		Height(height - 2).
		Padding(0, 1)
	return panel.Render(b.String())
}

// renderSlotPane draws the presented surface's scrollback.
func (m Model) renderSlotPane(id surface.ID, width, height int) string {
	borderColor := styles.BorderDefaultColor
	if m.rt.Slot.IsFocused(id) {
		borderColor = styles.BorderFocusedColor
	}

	contentW := width - 2
	contentH := height - 2
	if contentW < 1 {
		contentW = 1
	}

	var content string
	surf := m.rt.Surfaces.Get(id)
	if surf == nil || surf.IsScratch() {
		muted := lipgloss.NewStyle().Foreground(styles.TextMutedColor).Italic(true)
		content = muted.Render("starting…")
	} else {
		lines := surf.Buffer().LastN(contentH)
		wrapped := make([]string, 0, len(lines))
		for _, line := range lines {
			wrapped = append(wrapped, wordwrap.String(line, contentW))
		}
		content = strings.Join(wrapped, "\n")
	}

	pane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Width(contentW).
		Height(contentH)
	return pane.Render(content)
}

func (m Model) statusState() statusbar.State {
	state := statusbar.State{
		Provider:  m.rt.Manager.ProviderName(),
		Connected: m.rt.Conn.Connected(),
	}

	if current, visible := m.rt.Slot.CurrentSurface(); visible {
		state.SlotVisible = true
		state.SlotFocused = m.rt.Slot.IsFocused(current)
	}

	sessions := m.rt.Manager.ListSessions()
	if active, ok := m.rt.Sessions.ActiveID(); ok {
		for i, sess := range sessions {
			if sess.ID == active {
				state.SessionName = sess.Name
				state.SessionIndex = i + 1
				break
			}
		}
	}
	state.SessionCount = len(sessions)
	return state
}

// EnqueueMention routes a mention into the active session's queue. External
// integrations (editor plugins over RPC) land here.
func (m Model) EnqueueMention(pm mention.PendingMention) error {
	active, ok := m.rt.Sessions.ActiveID()
	if !ok {
		return session.ErrNotFound
	}
	m.rt.Mentions.Enqueue(active, pm)
	return nil
}
