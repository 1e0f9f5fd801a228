package protocol

import (
	"fmt"
)

// Frame constructors for both directions of the keypad link.
//
// Key events travel client -> mount as plain frames. Display commands travel
// mount -> client with their bytes regrouped into 7-bit values; the simulator
// and the tests build those with EncodeDisplay.

// KeyFrameSize is the length of a complete key event frame
const KeyFrameSize = 5

// BuildKeyDown constructs a key press frame
//
// Frame Structure:
//
//	[0]  0x02      FrameStart
//	[1]  0x05      KeyDownID
//	[2]  code      Button code (see Buttons)
//	[3]  checksum  Checksum of bytes 0-2
//	[4]  0x03      FrameEnd
//
// Key frames are sent as-is, without 7-bit regrouping.
func BuildKeyDown(code byte) []byte {
	return BuildFrame(KeyDownID, []byte{code})
}

// BuildKeyUp constructs a key release frame. The layout matches BuildKeyDown
// with KeyUpID in byte 1.
func BuildKeyUp(code byte) []byte {
	return BuildFrame(KeyUpID, []byte{code})
}

// BuildKeyEvent constructs the frame for a press or release
func BuildKeyEvent(ev KeyEvent) []byte {
	if ev.Pressed {
		return BuildKeyDown(ev.Code)
	}
	return BuildKeyUp(ev.Code)
}

// BuildTap constructs a press immediately followed by a release, the way a
// single click on a keypad button is reported.
func BuildTap(code byte) []byte {
	return append(BuildKeyDown(code), BuildKeyUp(code)...)
}

// ParseKeyFrame decodes a frame built by BuildKeyEvent
//
// Returns an error if the frame has the wrong size or markers, a bad
// checksum, or an id other than KeyDownID / KeyUpID.
func ParseKeyFrame(frame []byte) (KeyEvent, error) {
	if len(frame) != KeyFrameSize {
		return KeyEvent{}, fmt.Errorf("key frame size %d, want %d", len(frame), KeyFrameSize)
	}
	if frame[0] != FrameStart || frame[KeyFrameSize-1] != FrameEnd {
		return KeyEvent{}, fmt.Errorf("key frame markers 0x%02x..0x%02x, want 0x%02x..0x%02x",
			frame[0], frame[KeyFrameSize-1], FrameStart, FrameEnd)
	}
	payload, err := ValidateFrame(frame[1 : KeyFrameSize-1])
	if err != nil {
		return KeyEvent{}, err
	}
	switch payload[0] {
	case KeyDownID:
		return KeyEvent{Code: payload[1], Pressed: true}, nil
	case KeyUpID:
		return KeyEvent{Code: payload[1], Pressed: false}, nil
	default:
		return KeyEvent{}, fmt.Errorf("unknown key frame id: 0x%02x", payload[0])
	}
}

// SplitFrames returns the bodies (bytes strictly between the markers) of
// every complete frame in data, without validating them.
func SplitFrames(data []byte) [][]byte {
	var bodies [][]byte
	start := -1
	for i, b := range data {
		switch b {
		case FrameStart:
			start = i + 1
		case FrameEnd:
			if start >= 0 {
				bodies = append(bodies, data[start:i])
				start = -1
			}
		}
	}
	return bodies
}

// EncodeDisplay builds the frame a mount sends for a display command
//
// Frame Structure:
//
//	[0]    0x02            FrameStart
//	[1]    0x00            MsgTypeDisplay
//	[2..]  values          Unpack8to7(cmd.Encode(), true, 1)
//	[N-2]  checksum
//	[N-1]  0x03            FrameEnd
//
// The high-bit tag puts every value in 128-255, clear of the control range.
//
// Example:
//
//	frame := EncodeDisplay(SetCursor{Col: 3, Row: 4})
//	d := NewDispatcher(func(c Command) { fmt.Println(c) })
//	_ = d.Feed(frame) // SetCursor{col=3, row=4}
func EncodeDisplay(cmd Command) []byte {
	return BuildFrame(MsgTypeDisplay, Unpack8to7(cmd.Encode(), true, 1))
}

// BuildHeartbeat constructs an empty keep-alive frame
func BuildHeartbeat() []byte {
	return BuildFrame(MsgTypeHeartbeat, nil)
}
