package logoverlay

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termdock/termdock/internal/log"
	"github.com/termdock/termdock/internal/pubsub"
)

func logEvent(entry string) log.LogEvent {
	return log.LogEvent{Type: pubsub.CreatedEvent, Payload: entry, Timestamp: time.Now()}
}

func sized() Model {
	m := New()
	m.SetSize(120, 40)
	return m
}

func TestEntriesAccumulateWhileHidden(t *testing.T) {
	m := sized()

	m, _ = m.Update(logEvent("2026-01-01T00:00:00 [INFO] [app] started\n"))
	m, _ = m.Update(logEvent("2026-01-01T00:00:01 [WARN] [slot] layout clamped\n"))

	require.False(t, m.Visible())
	assert.Equal(t, 2, m.EntryCount())
}

func TestToggleShowsAccumulatedEntries(t *testing.T) {
	m := sized()
	m, _ = m.Update(logEvent("2026-01-01T00:00:00 [INFO] [app] started\n"))

	m.Toggle()
	require.True(t, m.Visible())
	assert.Contains(t, m.View(), "started")
}

func TestLevelFilterHidesLowerEntries(t *testing.T) {
	m := sized()
	m, _ = m.Update(logEvent("2026-01-01T00:00:00 [DEBUG] [proc] spawn args\n"))
	m, _ = m.Update(logEvent("2026-01-01T00:00:01 [ERROR] [proc] spawn failed\n"))
	m.Toggle()

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'e'}})

	view := m.View()
	assert.Contains(t, view, "spawn failed")
	assert.NotContains(t, view, "spawn args")
}

func TestClearEmptiesRing(t *testing.T) {
	m := sized()
	m, _ = m.Update(logEvent("2026-01-01T00:00:00 [INFO] [app] started\n"))
	m.Toggle()

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'c'}})

	assert.Zero(t, m.EntryCount())
	assert.Contains(t, m.View(), "No logs to display")
}

func TestEscClosesOverlay(t *testing.T) {
	m := sized()
	m.Toggle()
	require.True(t, m.Visible())

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	assert.False(t, m.Visible())
	require.NotNil(t, cmd)
	_, ok := cmd().(CloseMsg)
	assert.True(t, ok)
}

func TestRingIsBounded(t *testing.T) {
	m := sized()
	for i := 0; i < maxEntries+50; i++ {
		m, _ = m.Update(logEvent("2026-01-01T00:00:00 [DEBUG] [ui] tick\n"))
	}
	assert.Equal(t, maxEntries, m.EntryCount())
}

func TestOverlayReturnsBackgroundWhenHidden(t *testing.T) {
	m := sized()
	bg := "background content"
	assert.Equal(t, bg, m.Overlay(bg))
}
