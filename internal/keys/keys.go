// Package keys contains keybinding definitions.
package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings for the application.
type KeyMap struct {
	// Slot control
	Toggle      key.Binding
	FocusToggle key.Binding
	GrowSlot    key.Binding
	ShrinkSlot  key.Binding

	// Sessions
	NewSession   key.Binding
	NextSession  key.Binding
	PrevSession  key.Binding
	CloseSession key.Binding

	// General
	LogOverlay key.Binding
	Help       key.Binding
	Escape     key.Binding
	Quit       key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		// Slot control
		Toggle: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "toggle assistant"),
		),
		FocusToggle: key.NewBinding(
			key.WithKeys("ctrl+f"),
			key.WithHelp("ctrl+f", "focus assistant"),
		),
		GrowSlot: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "widen slot"),
		),
		ShrinkSlot: key.NewBinding(
			key.WithKeys("ctrl+h"),
			key.WithHelp("ctrl+h", "narrow slot"),
		),

		// Sessions
		NewSession: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("ctrl+n", "new session"),
		),
		NextSession: key.NewBinding(
			key.WithKeys("ctrl+j", "tab"),
			key.WithHelp("ctrl+j", "next session"),
		),
		PrevSession: key.NewBinding(
			key.WithKeys("ctrl+k", "shift+tab"),
			key.WithHelp("ctrl+k", "previous session"),
		),
		CloseSession: key.NewBinding(
			key.WithKeys("ctrl+w"),
			key.WithHelp("ctrl+w", "close session"),
		),

		// General
		LogOverlay: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("ctrl+g", "toggle log view"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "dismiss"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// ShortHelp returns keybindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Help, k.Quit}
}

// FullHelp returns keybindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.FocusToggle, k.GrowSlot, k.ShrinkSlot},      // Slot
		{k.NewSession, k.NextSession, k.PrevSession, k.CloseSession}, // Sessions
		{k.LogOverlay, k.Help, k.Escape, k.Quit},                 // General
	}
}
