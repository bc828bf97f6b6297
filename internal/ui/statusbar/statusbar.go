// Package statusbar renders the single-line footer with session,
// provider, and connection state.
package statusbar

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/termdock/termdock/internal/ui/styles"
)

// State carries everything the bar displays. The host rebuilds it each
// frame from the manager and connection tracker.
type State struct {
	SessionName  string
	SessionIndex int
	SessionCount int
	Provider     string
	Connected    bool
	SlotVisible  bool
	SlotFocused  bool
}

// Render draws the bar at the given width.
func Render(width int, s State) string {
	barStyle := lipgloss.NewStyle().
		Background(styles.StatusBarBgColor).
		Foreground(styles.StatusBarTextColor).
		Width(width)
	sep := lipgloss.NewStyle().
		Background(styles.StatusBarBgColor).
		Foreground(styles.TextMutedColor).
		Render(" │ ")

	session := "no session"
	if s.SessionName != "" {
		session = fmt.Sprintf("%s (%d/%d)", s.SessionName, s.SessionIndex, s.SessionCount)
	}

	conn := lipgloss.NewStyle().
		Background(styles.StatusBarBgColor).
		Foreground(styles.StatusErrorColor).
		Render("● offline")
	if s.Connected {
		conn = lipgloss.NewStyle().
			Background(styles.StatusBarBgColor).
			Foreground(styles.StatusSuccessColor).
			Render("● connected")
	}

	slot := "hidden"
	switch {
	case s.SlotVisible && s.SlotFocused:
		slot = "focused"
	case s.SlotVisible:
		slot = "visible"
	}

	parts := []string{
		" " + session,
		"provider: " + s.Provider,
		"slot: " + slot,
	}
	line := strings.Join(parts, sep) + sep + conn

	if ansi.StringWidth(line) > width {
		line = ansi.Truncate(line, width, "…")
	}
	return barStyle.Render(line)
}
