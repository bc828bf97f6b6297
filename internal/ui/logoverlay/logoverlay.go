// Package logoverlay provides an in-app log viewer overlay that shows
// recent log entries without leaving the TUI.
package logoverlay

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/termdock/termdock/internal/log"
	"github.com/termdock/termdock/internal/ui/overlay"
	"github.com/termdock/termdock/internal/ui/styles"
)

const (
	maxEntries        = 2000
	viewportMaxHeight = 25
	viewportMinHeight = 5
	boxMaxWidth       = 160
	boxMinWidth       = 40
)

// CloseMsg is sent when the overlay should be closed.
type CloseMsg struct{}

// Model is the log overlay component state. Entries arrive as pubsub log
// events and accumulate in a bounded ring.
type Model struct {
	visible  bool
	minLevel log.Level
	width    int
	height   int
	entries  []string
	viewport viewport.Model
}

// New creates a new log overlay model.
func New() Model {
	return Model{minLevel: log.LevelDebug}
}

// Update handles messages for the log overlay. Log events are recorded
// even while hidden so the overlay opens with history.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case log.LogEvent:
		m.entries = append(m.entries, msg.Payload)
		if len(m.entries) > maxEntries {
			m.entries = m.entries[len(m.entries)-maxEntries:]
		}
		if m.visible {
			m.refreshViewport()
		}
		return m, nil

	case tea.KeyMsg:
		if !m.visible {
			return m, nil
		}
		switch msg.String() {
		case "c":
			m.entries = nil
			m.refreshViewport()
			return m, nil
		case "d":
			m.minLevel = log.LevelDebug
			m.refreshViewport()
			return m, nil
		case "i":
			m.minLevel = log.LevelInfo
			m.refreshViewport()
			return m, nil
		case "w":
			m.minLevel = log.LevelWarn
			m.refreshViewport()
			return m, nil
		case "e":
			m.minLevel = log.LevelError
			m.refreshViewport()
			return m, nil
		case "j", "down":
			m.viewport.ScrollDown(1)
			return m, nil
		case "k", "up":
			m.viewport.ScrollUp(1)
			return m, nil
		case "g":
			m.viewport.GotoTop()
			return m, nil
		case "G":
			m.viewport.GotoBottom()
			return m, nil
		case "esc", "ctrl+g":
			m.visible = false
			return m, func() tea.Msg { return CloseMsg{} }
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.visible {
			m.refreshViewport()
		}
	}

	return m, nil
}

// View renders the log overlay content.
func (m Model) View() string {
	if !m.visible {
		return ""
	}

	boxWidth := m.boxWidth()

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(styles.OverlayTitleColor).
		PaddingLeft(1)
	dividerStyle := lipgloss.NewStyle().Foreground(styles.OverlayBorderColor)
	divider := dividerStyle.Render(strings.Repeat("─", boxWidth))

	var b strings.Builder
	b.WriteString(titleStyle.Render("Logs"))
	b.WriteString("\n")
	b.WriteString(divider)
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(divider)
	b.WriteString("\n")
	b.WriteString(m.filterHint())

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.OverlayBorderColor).
		Width(boxWidth)

	return boxStyle.Render(b.String())
}

// Overlay renders the log overlay centered on the given background.
func (m Model) Overlay(bg string) string {
	if !m.visible {
		return bg
	}
	return overlay.Center(m.width, m.height, m.View(), bg)
}

// Visible returns whether the overlay is currently visible.
func (m Model) Visible() bool {
	return m.visible
}

// Toggle flips visibility.
func (m *Model) Toggle() {
	m.visible = !m.visible
	if m.visible {
		m.refreshViewport()
	}
}

// SetSize updates the overlay's knowledge of viewport size.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.visible {
		m.refreshViewport()
	}
}

// EntryCount returns how many entries the ring holds, before filtering.
func (m Model) EntryCount() int {
	return len(m.entries)
}

func (m *Model) refreshViewport() {
	if m.width == 0 || m.height == 0 {
		return
	}

	contentWidth := m.boxWidth() - 2
	// Header, footer, and borders take six lines
	vpHeight := min(viewportMaxHeight, m.height-6)
	vpHeight = max(vpHeight, viewportMinHeight)

	m.viewport = viewport.New(contentWidth, vpHeight)
	m.viewport.SetContent(m.content(contentWidth))
	m.viewport.GotoBottom()
}

func (m Model) content(contentWidth int) string {
	var lines []string
	for _, entry := range m.entries {
		if !m.matchesLevel(entry) {
			continue
		}
		lines = append(lines, m.colorize(entry, contentWidth))
	}
	if len(lines) == 0 {
		empty := lipgloss.NewStyle().Foreground(styles.TextMutedColor).Italic(true)
		return empty.Render("No logs to display")
	}
	return strings.Join(lines, "\n")
}

func (m Model) boxWidth() int {
	return max(min(m.width-4, boxMaxWidth), boxMinWidth)
}

// matchesLevel reports whether the entry's level is at or above the
// filter. Entries without a recognizable level are always shown.
func (m Model) matchesLevel(entry string) bool {
	var level log.Level
	switch {
	case strings.Contains(entry, "[ERROR]"):
		level = log.LevelError
	case strings.Contains(entry, "[WARN]"):
		level = log.LevelWarn
	case strings.Contains(entry, "[INFO]"):
		level = log.LevelInfo
	case strings.Contains(entry, "[DEBUG]"):
		level = log.LevelDebug
	default:
		return true
	}
	return level >= m.minLevel
}

func (m Model) colorize(entry string, maxWidth int) string {
	entry = strings.TrimSuffix(entry, "\n")
	if ansi.StringWidth(entry) > maxWidth {
		entry = ansi.Truncate(entry, maxWidth-3, "...")
	}

	var style lipgloss.Style
	switch {
	case strings.Contains(entry, "[ERROR]"):
		style = lipgloss.NewStyle().Foreground(styles.StatusErrorColor)
	case strings.Contains(entry, "[WARN]"):
		style = lipgloss.NewStyle().Foreground(styles.StatusWarningColor)
	case strings.Contains(entry, "[INFO]"):
		style = lipgloss.NewStyle().Foreground(styles.StatusInfoColor)
	case strings.Contains(entry, "[DEBUG]"):
		style = lipgloss.NewStyle().Foreground(styles.TextMutedColor)
	default:
		style = lipgloss.NewStyle().Foreground(styles.TextPrimaryColor)
	}
	return style.Render(entry)
}

func (m Model) filterHint() string {
	hint := lipgloss.NewStyle().Foreground(styles.TextMutedColor)
	active := lipgloss.NewStyle().Foreground(styles.TextPrimaryColor).Bold(true)

	render := func(level log.Level, label string) string {
		if m.minLevel == level {
			return active.Render(label)
		}
		return hint.Render(label)
	}

	parts := []string{
		hint.Render("[c] Clear"),
		render(log.LevelDebug, "[d] Debug"),
		render(log.LevelInfo, "[i] Info"),
		render(log.LevelWarn, "[w] Warn"),
		render(log.LevelError, "[e] Error"),
	}
	return strings.Join(parts, "  ")
}
