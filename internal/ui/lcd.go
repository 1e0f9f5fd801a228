package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muurk/virtkeypad/internal/display"
)

// RenderLCD draws the text grid of a screen in a framed panel, with the
// cursor cell highlighted when it is visible.
func RenderLCD(s *display.Screen) string {
	cursor := s.Cursor()
	lines := s.Lines()

	rendered := make([]string, len(lines))
	for i, line := range lines {
		row := i + 1
		if !cursor.Visible || cursor.Row != row {
			rendered[i] = line
			continue
		}
		cells := []rune(line)
		col := cursor.Col - 1
		rendered[i] = string(cells[:col]) +
			LCDCursorStyle.Render(string(cells[col])) +
			string(cells[col+1:])
	}
	return LCDStyle.Render(strings.Join(rendered, "\n"))
}

// RenderPixels draws the tile plane, two pixel rows per line. It needs a
// terminal at least display.Width+2 columns wide.
func RenderPixels(s *display.Screen) string {
	return PixelStyle.Render(s.PixelArt())
}

// PixelsFit reports whether the pixel panel fits the terminal width
func PixelsFit(width int) bool {
	return width >= display.Width+lipgloss.Width(PixelStyle.Render(""))
}
