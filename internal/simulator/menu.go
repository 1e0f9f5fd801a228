package simulator

import (
	"fmt"

	"github.com/muurk/virtkeypad/internal/display"
	"github.com/muurk/virtkeypad/internal/protocol"
)

// Item is one entry of the simulated main menu
type Item struct {
	Title  string
	Detail func(m *Menu) string
}

// page identifies what the simulated LCD is showing
type page int

const (
	pageMain page = iota
	pageItem
	pageStopped
)

// maxEntry is how many digits the entry line accepts
const maxEntry = 8

// trackingIcon is the 8x8 star drawn while tracking is on
var trackingIcon = [protocol.MonoTileBytes]byte{0x10, 0x54, 0x38, 0xfe, 0x38, 0x54, 0x10, 0x00}

// parkIcon is the two-tone parked marker
var parkIcon = [protocol.ColorTileBytes]byte{0x00, 0x3c, 0x42, 0x81, 0x81, 0x81, 0x81, 0x81, 0x81, 0x42, 0x3c, 0x00}

// Menu is a small hand-controller menu: a title row, four selectable items,
// and a detail page per item. HandleKey turns key presses into the display
// commands a mount would send.
type Menu struct {
	Title    string
	Items    []Item
	selected int
	page     page
	entry    string
	tracking bool
	parked   bool
}

// NewMenu returns the default main menu
func NewMenu(title string) *Menu {
	if title == "" {
		title = "MAIN MENU"
	}
	return &Menu{
		Title: title,
		Items: []Item{
			{Title: "Alignment", Detail: func(*Menu) string { return "3 stars  0.8\"" }},
			{Title: "Tracking", Detail: func(m *Menu) string { return onOff("Sidereal", m.tracking) }},
			{Title: "Park", Detail: func(m *Menu) string { return onOff("Parked", m.parked) }},
			{Title: "Settings", Detail: func(*Menu) string { return "Temp 12" + string(rune(223)) + "C" }},
		},
	}
}

// Selected returns the index of the highlighted item
func (m *Menu) Selected() int { return m.selected }

// Tracking reports the simulated tracking flag
func (m *Menu) Tracking() bool { return m.tracking }

// Entry returns the digits typed on an item page
func (m *Menu) Entry() string { return m.entry }

// Paint returns the commands that draw the current page from scratch
func (m *Menu) Paint() []protocol.Command {
	switch m.page {
	case pageItem:
		item := m.Items[m.selected]
		cmds := rows(item.Title, "", item.Detail(m), entryLine(m.entry), "ESC back")
		return append(cmds, protocol.HideCursor{})
	case pageStopped:
		cmds := rows("", "", "   ALL STOP", "", "ESC back")
		return append(cmds, protocol.HideCursor{})
	}

	lines := []string{m.Title}
	for _, it := range m.Items {
		lines = append(lines, " "+it.Title)
	}
	cmds := rows(lines...)
	cmds = append(cmds, m.icons()...)
	return append(cmds, m.cursor())
}

// HandleKey applies one key event and returns the commands to send. Releases
// and unknown keys produce nothing.
func (m *Menu) HandleKey(ev protocol.KeyEvent) []protocol.Command {
	if !ev.Pressed {
		return nil
	}
	name := protocol.ButtonName(ev.Code)

	if name == "stop" {
		m.page = pageStopped
		m.tracking = false
		return m.Paint()
	}
	if name == "menu" {
		m.page, m.entry = pageMain, ""
		return m.Paint()
	}

	switch m.page {
	case pageMain:
		switch name {
		case "up", "left":
			m.selected = (m.selected + len(m.Items) - 1) % len(m.Items)
			return []protocol.Command{m.cursor()}
		case "down", "right":
			m.selected = (m.selected + 1) % len(m.Items)
			return []protocol.Command{m.cursor()}
		case "enter":
			m.page = pageItem
			return m.Paint()
		}

	case pageItem:
		switch {
		case name == "esc":
			m.page, m.entry = pageMain, ""
			return m.Paint()
		case name == "enter":
			m.toggle()
			return m.Paint()
		case name == "minus" && m.entry != "":
			m.entry = m.entry[:len(m.entry)-1]
			return rows4(entryLine(m.entry))
		case len(name) == 1 && name[0] >= '0' && name[0] <= '9' && len(m.entry) < maxEntry:
			m.entry += name
			return rows4(entryLine(m.entry))
		}

	case pageStopped:
		if name == "esc" {
			m.page = pageMain
			return m.Paint()
		}
	}
	return nil
}

func (m *Menu) toggle() {
	switch m.Items[m.selected].Title {
	case "Tracking":
		m.tracking = !m.tracking
	case "Park":
		m.parked = !m.parked
		if m.parked {
			m.tracking = false
		}
	}
}

func (m *Menu) cursor() protocol.Command {
	return protocol.SetCursor{Col: 1, Row: byte(m.selected + 2)}
}

// icons draws the status tiles in the rightmost column of the main page
func (m *Menu) icons() []protocol.Command {
	var star [protocol.MonoTileBytes]byte
	if m.tracking {
		star = trackingIcon
	}
	var park [protocol.ColorTileBytes]byte
	if m.parked {
		park = parkIcon
	}
	return []protocol.Command{
		protocol.DrawMonoTile{Col: display.Cols, Row: 1, Bits: star},
		protocol.DrawColorTile{Col: display.Cols, Row: display.Rows, Rows: park},
	}
}

// rows draws each line padded to the full width, starting at row 1
func rows(lines ...string) []protocol.Command {
	cmds := make([]protocol.Command, 0, display.Rows)
	for r := 0; r < display.Rows; r++ {
		text := ""
		if r < len(lines) {
			text = lines[r]
		}
		cmds = append(cmds, protocol.DrawGlyphRun{Col: 1, Row: byte(r + 1), Codes: pad(text)})
	}
	return cmds
}

func rows4(line string) []protocol.Command {
	return []protocol.Command{protocol.DrawGlyphRun{Col: 1, Row: 4, Codes: pad(line)}}
}

// pad converts text to glyph codes, space filled to the LCD width. Runes
// above 255 become '?'.
func pad(text string) []byte {
	codes := make([]byte, 0, display.Cols)
	for _, r := range text {
		if len(codes) == display.Cols {
			break
		}
		if r > 255 {
			r = '?'
		}
		codes = append(codes, byte(r))
	}
	for len(codes) < display.Cols {
		codes = append(codes, ' ')
	}
	return codes
}

func entryLine(entry string) string {
	if entry == "" {
		return ""
	}
	return "Value " + entry
}

func onOff(label string, on bool) string {
	state := "OFF"
	if on {
		state = "ON"
	}
	return fmt.Sprintf("%-12s%s", label, state)
}
