package statusbar_test

import (
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"

	"github.com/termdock/termdock/internal/ui/statusbar"
)

func TestRenderShowsSessionAndProvider(t *testing.T) {
	out := statusbar.Render(120, statusbar.State{
		SessionName:  "session-1",
		SessionIndex: 1,
		SessionCount: 3,
		Provider:     "native",
		Connected:    true,
		SlotVisible:  true,
	})

	plain := ansi.Strip(out)
	assert.Contains(t, plain, "session-1 (1/3)")
	assert.Contains(t, plain, "provider: native")
	assert.Contains(t, plain, "slot: visible")
	assert.Contains(t, plain, "connected")
}

func TestRenderNoSession(t *testing.T) {
	out := statusbar.Render(80, statusbar.State{Provider: "none"})
	plain := ansi.Strip(out)

	assert.Contains(t, plain, "no session")
	assert.Contains(t, plain, "offline")
	assert.Contains(t, plain, "slot: hidden")
}

func TestRenderTruncatesToWidth(t *testing.T) {
	out := statusbar.Render(20, statusbar.State{
		SessionName:  "a-very-long-session-name-indeed",
		SessionIndex: 1,
		SessionCount: 1,
		Provider:     "external",
	})

	for _, line := range []string{ansi.Strip(out)} {
		assert.LessOrEqual(t, ansi.StringWidth(line), 20)
	}
}
