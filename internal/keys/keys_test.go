package keys_test

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"github.com/termdock/termdock/internal/keys"
)

func TestDefaultKeyMapMatchesBindings(t *testing.T) {
	km := keys.DefaultKeyMap()

	assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyCtrlT}, km.Toggle))
	assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyCtrlF}, km.FocusToggle))
	assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyCtrlN}, km.NewSession))
	assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyTab}, km.NextSession))
	assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyCtrlW}, km.CloseSession))
	assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyEsc}, km.Escape))
	assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyCtrlC}, km.Quit))
}

func TestHelpViewsCoverCoreBindings(t *testing.T) {
	km := keys.DefaultKeyMap()

	assert.Len(t, km.ShortHelp(), 3)
	full := km.FullHelp()
	assert.Len(t, full, 3)
	for _, group := range full {
		assert.NotEmpty(t, group)
	}
}
