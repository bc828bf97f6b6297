// Package styles contains Lip Gloss style definitions.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Text hierarchy
	TextPrimaryColor = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#CCCCCC"} // Main text
	TextMutedColor   = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#696969"} // Hints, footers

	// Borders
	BorderDefaultColor = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#696969"} // Unfocused
	BorderFocusedColor = lipgloss.AdaptiveColor{Light: "#3498DB", Dark: "#89B4FA"} // Focused slot

	// Status
	StatusSuccessColor = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	StatusWarningColor = lipgloss.AdaptiveColor{Light: "#FECA57", Dark: "#FECA57"}
	StatusErrorColor   = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF8787"}
	StatusInfoColor    = lipgloss.AdaptiveColor{Light: "#1E66F5", Dark: "#89B4FA"}

	// Overlay chrome
	OverlayTitleColor  = lipgloss.AdaptiveColor{Light: "#1A5276", Dark: "#89B4FA"}
	OverlayBorderColor = lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#696969"}

	// Status bar
	StatusBarBgColor   = lipgloss.AdaptiveColor{Light: "#E8E8E8", Dark: "#2D3436"}
	StatusBarTextColor = lipgloss.AdaptiveColor{Light: "#333333", Dark: "#CCCCCC"}
)
