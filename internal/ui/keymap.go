package ui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/muurk/virtkeypad/internal/protocol"
)

// keypadKeyMap binds terminal keys to keypad buttons and TUI actions
type keypadKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Left   key.Binding
	Right  key.Binding
	Enter  key.Binding
	Esc    key.Binding
	Menu   key.Binding
	Stop   key.Binding
	Plus   key.Binding
	Minus  key.Binding
	Digit  key.Binding
	Pixels key.Binding
	Help   key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k keypadKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Enter, k.Esc, k.Menu, k.Stop, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k keypadKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Enter, k.Esc, k.Menu, k.Stop},
		{k.Digit, k.Plus, k.Minus},
		{k.Pixels, k.Help, k.Quit},
	}
}

func newKeypadKeyMap() keypadKeyMap {
	return keypadKeyMap{
		Up:     key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "up")),
		Down:   key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "down")),
		Left:   key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "left")),
		Right:  key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "right")),
		Enter:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "enter")),
		Esc:    key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "esc")),
		Menu:   key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "menu")),
		Stop:   key.NewBinding(key.WithKeys("s", " "), key.WithHelp("s/space", "stop")),
		Plus:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "plus")),
		Minus:  key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "minus")),
		Digit:  key.NewBinding(key.WithKeys("0", "1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("0-9", "digits")),
		Pixels: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "pixels")),
		Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// button returns the keypad button for a terminal key
func (k keypadKeyMap) button(msg string) (byte, bool) {
	var name string
	switch {
	case key.Matches(keyString(msg), k.Up):
		name = "up"
	case key.Matches(keyString(msg), k.Down):
		name = "down"
	case key.Matches(keyString(msg), k.Left):
		name = "left"
	case key.Matches(keyString(msg), k.Right):
		name = "right"
	case key.Matches(keyString(msg), k.Enter):
		name = "enter"
	case key.Matches(keyString(msg), k.Esc):
		name = "esc"
	case key.Matches(keyString(msg), k.Menu):
		name = "menu"
	case key.Matches(keyString(msg), k.Stop):
		name = "stop"
	case key.Matches(keyString(msg), k.Plus):
		name = "plus"
	case key.Matches(keyString(msg), k.Minus):
		name = "minus"
	case key.Matches(keyString(msg), k.Digit):
		name = msg
	default:
		return 0, false
	}
	return protocol.LookupButton(name)
}

// keyString lets key.Matches work on a plain key name
type keyString string

func (s keyString) String() string { return string(s) }
