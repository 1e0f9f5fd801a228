package protocol

import (
	"errors"
	"fmt"
)

// CommandID is the leading byte of a display command
type CommandID byte

// Display command identifiers sent by the keypad
const (
	CmdDrawGlyphRun  CommandID = 0x01 // run of character glyphs on the text grid
	CmdDrawMonoTile  CommandID = 0x02 // 8x8 monochrome tile
	CmdDrawColorTile CommandID = 0x03 // 8x12 two-tone tile
	CmdSetCursor     CommandID = 0x05 // show the selection rectangle
	CmdHideCursor    CommandID = 0x06 // hide the selection rectangle
)

// Tile sizes in row or column bytes
const (
	MonoTileBytes  = 8
	ColorTileBytes = 12
)

// ErrTruncated is wrapped by DecodeError when a payload is shorter than its
// command requires.
var ErrTruncated = errors.New("truncated command payload")

// Command is a decoded display command
type Command interface {
	ID() CommandID
	Encode() []byte
	String() string
}

// DrawGlyphRun draws len(Codes) glyphs left to right from (Col, Row).
// A zero code means "no glyph" and leaves the cell untouched.
type DrawGlyphRun struct {
	Col   byte
	Row   byte
	Codes []byte
}

func (c DrawGlyphRun) ID() CommandID { return CmdDrawGlyphRun }

func (c DrawGlyphRun) Encode() []byte {
	b := []byte{byte(CmdDrawGlyphRun), c.Col, c.Row, byte(len(c.Codes))}
	return append(b, c.Codes...)
}

func (c DrawGlyphRun) String() string {
	return fmt.Sprintf("DrawGlyphRun{col=%d, row=%d, count=%d, codes=%q}",
		c.Col, c.Row, len(c.Codes), printable(c.Codes))
}

// DrawMonoTile draws an 8x8 monochrome tile. Each byte is one pixel column,
// most significant bit at the top.
type DrawMonoTile struct {
	Col  byte
	Row  byte
	Bits [MonoTileBytes]byte
}

func (c DrawMonoTile) ID() CommandID { return CmdDrawMonoTile }

func (c DrawMonoTile) Encode() []byte {
	return append([]byte{byte(CmdDrawMonoTile), c.Col, c.Row}, c.Bits[:]...)
}

func (c DrawMonoTile) String() string {
	return fmt.Sprintf("DrawMonoTile{col=%d, row=%d, bits=% x}", c.Col, c.Row, c.Bits[:])
}

// DrawColorTile draws an 8x12 tile in the fixed two-tone palette. Each byte
// is one pixel row, least significant bit on the left.
type DrawColorTile struct {
	Col  byte
	Row  byte
	Rows [ColorTileBytes]byte
}

func (c DrawColorTile) ID() CommandID { return CmdDrawColorTile }

func (c DrawColorTile) Encode() []byte {
	return append([]byte{byte(CmdDrawColorTile), c.Col, c.Row}, c.Rows[:]...)
}

func (c DrawColorTile) String() string {
	return fmt.Sprintf("DrawColorTile{col=%d, row=%d, rows=% x}", c.Col, c.Row, c.Rows[:])
}

// SetCursor positions and shows the selection rectangle on a text cell
type SetCursor struct {
	Col byte
	Row byte
}

func (c SetCursor) ID() CommandID { return CmdSetCursor }

func (c SetCursor) Encode() []byte { return []byte{byte(CmdSetCursor), c.Col, c.Row} }

func (c SetCursor) String() string {
	return fmt.Sprintf("SetCursor{col=%d, row=%d}", c.Col, c.Row)
}

// HideCursor hides the selection rectangle
type HideCursor struct{}

func (HideCursor) ID() CommandID { return CmdHideCursor }

func (HideCursor) Encode() []byte { return []byte{byte(CmdHideCursor)} }

func (HideCursor) String() string { return "HideCursor{}" }

// Unknown carries a command this client does not understand. Newer firmware
// may send ids we have never seen; they are reported, not rejected.
type Unknown struct {
	RawID byte
	Data  []byte
}

func (c Unknown) ID() CommandID { return CommandID(c.RawID) }

func (c Unknown) Encode() []byte { return append([]byte{c.RawID}, c.Data...) }

func (c Unknown) String() string {
	return fmt.Sprintf("Unknown{id=0x%02x, data_len=%d}", c.RawID, len(c.Data))
}

// DecodeError describes a payload that could not be decoded
type DecodeError struct {
	ID   CommandID
	Need int // bytes required
	Have int // bytes available
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: need %d bytes, have %d", GetCommandName(e.ID), e.Need, e.Have)
}

// Unwrap returns ErrTruncated
func (e *DecodeError) Unwrap() error { return ErrTruncated }

// DecodeCommand decodes a display payload (after 7-to-8 regrouping). Unknown
// ids decode to Unknown without error. Trailing bytes beyond the command's
// shape are padding and are ignored.
func DecodeCommand(b []byte) (Command, error) {
	if len(b) == 0 {
		return nil, &DecodeError{Need: 1}
	}

	id := CommandID(b[0])
	need := func(n int) error {
		if len(b) < n {
			return &DecodeError{ID: id, Need: n, Have: len(b)}
		}
		return nil
	}

	switch id {
	case CmdDrawGlyphRun:
		if err := need(4); err != nil {
			return nil, err
		}
		count := int(b[3])
		if err := need(4 + count); err != nil {
			return nil, err
		}
		codes := make([]byte, count)
		copy(codes, b[4:4+count])
		return DrawGlyphRun{Col: b[1], Row: b[2], Codes: codes}, nil

	case CmdDrawMonoTile:
		if err := need(3 + MonoTileBytes); err != nil {
			return nil, err
		}
		c := DrawMonoTile{Col: b[1], Row: b[2]}
		copy(c.Bits[:], b[3:])
		return c, nil

	case CmdDrawColorTile:
		if err := need(3 + ColorTileBytes); err != nil {
			return nil, err
		}
		c := DrawColorTile{Col: b[1], Row: b[2]}
		copy(c.Rows[:], b[3:])
		return c, nil

	case CmdSetCursor:
		if err := need(3); err != nil {
			return nil, err
		}
		return SetCursor{Col: b[1], Row: b[2]}, nil

	case CmdHideCursor:
		return HideCursor{}, nil

	default:
		data := make([]byte, len(b)-1)
		copy(data, b[1:])
		return Unknown{RawID: b[0], Data: data}, nil
	}
}

// GetCommandName returns a human-readable name for a command id
func GetCommandName(id CommandID) string {
	switch id {
	case CmdDrawGlyphRun:
		return "DrawGlyphRun"
	case CmdDrawMonoTile:
		return "DrawMonoTile"
	case CmdDrawColorTile:
		return "DrawColorTile"
	case CmdSetCursor:
		return "SetCursor"
	case CmdHideCursor:
		return "HideCursor"
	default:
		return fmt.Sprintf("Unknown(0x%02x)", byte(id))
	}
}

// printable renders glyph codes for logs; zero codes show as spaces
func printable(codes []byte) string {
	runes := make([]rune, len(codes))
	for i, c := range codes {
		switch {
		case c == 0:
			runes[i] = ' '
		case c < 32 || c == 127:
			runes[i] = '.'
		default:
			runes[i] = rune(c)
		}
	}
	return string(runes)
}
