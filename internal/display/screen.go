package display

import (
	"strings"
	"sync"

	"github.com/muurk/virtkeypad/internal/protocol"
)

// LCD geometry. Text cells are 8x12 pixels; mono tiles use an 8x8 grid.
const (
	Cols       = 16
	Rows       = 5
	CellWidth  = 8
	CellHeight = 12
	TileHeight = 8
	Width      = Cols * CellWidth  // 128
	Height     = Rows * CellHeight // 60
)

// Placeholder is painted over the whole text grid while the link is down.
// Cell i lands at column 1+i%16, row 1+i/16, so the text sits on row 3.
const Placeholder = "                                Connecting...                                   "

// charTrans maps LCD font codes to the character they stand for
var charTrans = map[byte]rune{
	223: '°',
}

// Cursor is the selection rectangle, positioned on a text cell (1-based)
type Cursor struct {
	Col     int
	Row     int
	Visible bool
}

// Screen is the state of the keypad LCD: a text grid, a pixel plane written
// by tiles, and the cursor. It is safe for concurrent use; the transport
// applies commands from its event loop while a UI reads snapshots.
type Screen struct {
	mu      sync.RWMutex
	text    [Rows][Cols]byte
	pixels  [Height][Width]bool
	cursor  Cursor
	version uint64
}

// NewScreen returns a blank screen with the cursor hidden
func NewScreen() *Screen {
	return &Screen{}
}

// Apply updates the screen for one decoded command. It reports whether the
// screen changed. Cells outside the LCD are ignored.
func (s *Screen) Apply(cmd protocol.Command) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	switch c := cmd.(type) {
	case protocol.DrawGlyphRun:
		for i, code := range c.Codes {
			// zero leaves the cell as it is
			if code == 0 {
				continue
			}
			changed = s.putGlyph(int(c.Col)+i, int(c.Row), code) || changed
		}

	case protocol.DrawMonoTile:
		x0 := CellWidth * (int(c.Col) - 1)
		y0 := TileHeight * (int(c.Row) - 1)
		for y := 0; y < TileHeight; y++ {
			for x := 0; x < CellWidth; x++ {
				on := c.Bits[x]&(0x80>>y) != 0
				changed = s.setPixel(x0+x, y0+y, on) || changed
			}
		}

	case protocol.DrawColorTile:
		x0 := CellWidth * (int(c.Col) - 1)
		y0 := CellHeight * (int(c.Row) - 1)
		for y := 0; y < protocol.ColorTileBytes; y++ {
			for x := 0; x < CellWidth; x++ {
				on := c.Rows[y]&(1<<x) != 0
				changed = s.setPixel(x0+x, y0+y, on) || changed
			}
		}

	case protocol.SetCursor:
		col, row := int(c.Col), int(c.Row)
		if !inText(col, row) {
			return false
		}
		next := Cursor{Col: col, Row: row, Visible: true}
		changed = s.cursor != next
		s.cursor = next

	case protocol.HideCursor:
		changed = s.cursor.Visible
		s.cursor.Visible = false
	}

	if changed {
		s.version++
	}
	return changed
}

// ShowPlaceholder paints the "Connecting..." text over the whole grid and
// hides the cursor.
func (s *Screen) ShowPlaceholder() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < len(Placeholder) && i < Cols*Rows; i++ {
		s.putGlyph(1+(i&15), 1+(i>>4), Placeholder[i])
	}
	s.cursor.Visible = false
	s.version++
}

// Clear blanks text, pixels and cursor
func (s *Screen) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.text = [Rows][Cols]byte{}
	s.pixels = [Height][Width]bool{}
	s.cursor = Cursor{}
	s.version++
}

// Version increases every time the screen changes
func (s *Screen) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Cursor returns the cursor state
func (s *Screen) Cursor() Cursor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor
}

// Glyph returns the raw font code at a 1-based cell, or 0 when outside
func (s *Screen) Glyph(col, row int) byte {
	if !inText(col, row) {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.text[row-1][col-1]
}

// Pixel reports whether the 0-based pixel is lit
func (s *Screen) Pixel(x, y int) bool {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pixels[y][x]
}

// Line returns one text row (1-based) as a string of Cols characters
func (s *Screen) Line(row int) string {
	if row < 1 || row > Rows {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lineString(s.text[row-1])
}

// Lines returns all text rows top to bottom
func (s *Screen) Lines() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := make([]string, Rows)
	for r := range s.text {
		lines[r] = lineString(s.text[r])
	}
	return lines
}

// String renders the text grid, one line per row
func (s *Screen) String() string {
	return strings.Join(s.Lines(), "\n")
}

// PixelArt renders the pixel plane with half-block characters, two pixel
// rows per text line.
func (s *Screen) PixelArt() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b strings.Builder
	for y := 0; y < Height; y += 2 {
		if y > 0 {
			b.WriteByte('\n')
		}
		for x := 0; x < Width; x++ {
			top := s.pixels[y][x]
			bottom := y+1 < Height && s.pixels[y+1][x]
			switch {
			case top && bottom:
				b.WriteRune('█')
			case top:
				b.WriteRune('▀')
			case bottom:
				b.WriteRune('▄')
			default:
				b.WriteByte(' ')
			}
		}
	}
	return b.String()
}

// HasPixels reports whether any pixel is lit
func (s *Screen) HasPixels() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for y := range s.pixels {
		for x := range s.pixels[y] {
			if s.pixels[y][x] {
				return true
			}
		}
	}
	return false
}

// TranslateChar maps an LCD font code to a printable rune
func TranslateChar(code byte) rune {
	if r, ok := charTrans[code]; ok {
		return r
	}
	switch {
	case code == 0:
		return ' '
	case code < 0x20, code == 0x7f, code >= 0x80 && code < 0xa0:
		return '·'
	default:
		// the font follows Latin-1 above the control range
		return rune(code)
	}
}

func (s *Screen) putGlyph(col, row int, code byte) bool {
	if !inText(col, row) {
		return false
	}
	cell := &s.text[row-1][col-1]
	if *cell == code {
		return false
	}
	*cell = code
	return true
}

func (s *Screen) setPixel(x, y int, on bool) bool {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return false
	}
	if s.pixels[y][x] == on {
		return false
	}
	s.pixels[y][x] = on
	return true
}

func inText(col, row int) bool {
	return col >= 1 && col <= Cols && row >= 1 && row <= Rows
}

func lineString(cells [Cols]byte) string {
	runes := make([]rune, Cols)
	for i, c := range cells {
		runes[i] = TranslateChar(c)
	}
	return string(runes)
}
