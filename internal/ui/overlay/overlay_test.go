package overlay_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/termdock/termdock/internal/ui/overlay"
)

func TestCenterPlacesForegroundOverBackground(t *testing.T) {
	bg := strings.Join([]string{
		"..........",
		"..........",
		"..........",
		"..........",
	}, "\n")

	out := overlay.Center(10, 4, "XX", bg)
	lines := strings.Split(out, "\n")

	assert.Len(t, lines, 4)
	assert.Contains(t, lines[1], "XX")
	assert.Equal(t, "....XX....", lines[1])
	assert.Equal(t, "..........", lines[0])
}

func TestCenterPadsShortBackground(t *testing.T) {
	out := overlay.Center(6, 3, "AB", "")
	lines := strings.Split(out, "\n")

	assert.Len(t, lines, 3)
	assert.Contains(t, lines[1], "AB")
}

func TestCenterOversizedForegroundClampsToOrigin(t *testing.T) {
	bg := "....\n...."
	out := overlay.Center(4, 2, "ABCDEFGH", bg)

	assert.Contains(t, out, "ABCDEFGH")
}
