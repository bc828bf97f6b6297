// Package overlay renders modal content centered on top of a background
// view without clearing the screen.
package overlay

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Center draws fg centered over bg inside a width x height viewport.
// ANSI-aware splicing preserves styling on both layers.
func Center(width, height int, fg, bg string) string {
	fgLines := strings.Split(fg, "\n")
	bgLines := strings.Split(bg, "\n")

	for len(bgLines) < height {
		bgLines = append(bgLines, strings.Repeat(" ", width))
	}

	fgWidth := lipgloss.Width(fg)
	startX := (width - fgWidth) / 2
	startY := (height - len(fgLines)) / 2
	if startX < 0 {
		startX = 0
	}
	if startY < 0 {
		startY = 0
	}

	for i, fgLine := range fgLines {
		y := startY + i
		if y >= len(bgLines) {
			break
		}
		bgLines[y] = splice(bgLines[y], fgLine, startX)
	}

	return strings.Join(bgLines, "\n")
}

// splice lays fgLine over bgLine starting at column x, keeping whatever
// background remains visible to either side.
func splice(bgLine, fgLine string, x int) string {
	left := ansi.Truncate(bgLine, x, "")
	if w := ansi.StringWidth(left); w < x {
		left += strings.Repeat(" ", x-w)
	}

	end := x + ansi.StringWidth(fgLine)
	var right string
	if end < ansi.StringWidth(bgLine) {
		right = ansi.TruncateLeft(bgLine, end, "")
	}

	return left + fgLine + right
}
