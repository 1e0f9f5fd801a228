package protocol

import (
	"fmt"
	"sort"
	"strings"
)

// Key event frame ids
const (
	KeyDownID = 0x05
	KeyUpID   = 0x06
)

// KeyEvent is a press or release of one keypad button
type KeyEvent struct {
	Code    byte
	Pressed bool
}

func (e KeyEvent) String() string {
	action := "up"
	if e.Pressed {
		action = "down"
	}
	return fmt.Sprintf("KeyEvent{%s (%d) %s}", ButtonName(e.Code), e.Code, action)
}

// Buttons maps keypad button names to the codes the mount expects
var Buttons = map[string]byte{
	"key_0":     82,
	"key_1":     92,
	"key_2":     94,
	"key_3":     98,
	"key_4":     32,
	"key_5":     34,
	"key_6":     38,
	"key_7":     22,
	"key_8":     24,
	"key_9":     28,
	"key_esc":   84,
	"key_enter": 106,
	"key_stop":  96,
	"key_menu":  88,
	"key_plus":  36,
	"key_minus": 46,
	"key_up":    11,
	"key_left":  14,
	"key_down":  12,
	"key_right": 18,
}

// LookupButton resolves a button name. The "key_" prefix is optional and
// matching is case-insensitive, so "enter", "KEY_ENTER" and "key_enter" are
// equivalent.
func LookupButton(name string) (byte, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if !strings.HasPrefix(name, "key_") {
		name = "key_" + name
	}
	code, ok := Buttons[name]
	return code, ok
}

// ButtonName returns the short button name for a code, or "?" when unknown
func ButtonName(code byte) string {
	for name, c := range Buttons {
		if c == code {
			return strings.TrimPrefix(name, "key_")
		}
	}
	return "?"
}

// ButtonNames returns the short button names in sorted order
func ButtonNames() []string {
	names := make([]string, 0, len(Buttons))
	for name := range Buttons {
		names = append(names, strings.TrimPrefix(name, "key_"))
	}
	sort.Strings(names)
	return names
}
