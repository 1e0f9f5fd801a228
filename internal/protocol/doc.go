// Package protocol implements the framing used by the 10micron virtual keypad.
//
// The mount streams display updates for a 16x5 character LCD over a
// WebSocket (subprotocol "binary") and accepts key press/release frames in
// return. This package handles bit regrouping, checksums, frame scanning and
// command decoding. It performs no I/O.
//
// # Frame Format
//
// Every frame is delimited by two marker bytes:
//   - 0x02: FrameStart
//   - body: message type, data, checksum
//   - 0x03: FrameEnd
//
// Bytes 0-9 are reserved for control. The checksum is the XOR of the start
// marker and the body (without the checksum itself), raised by 10 when it
// would fall in the control range.
//
// # Message Types
//
// The first body byte selects how the rest is read:
//   - 0x00: display data, 7-bit values to be regrouped into command bytes
//   - 0x01: heartbeat, ignored
//   - other: ignored
//
// Display values carry the high bit so they never collide with a marker.
// Pack7to8 strips it while regrouping.
//
// # Display Commands
//
// The regrouped bytes start with a command id:
//   - 0x01 DrawGlyphRun:  col, row, count, codes...
//   - 0x02 DrawMonoTile:  col, row, 8 column bytes
//   - 0x03 DrawColorTile: col, row, 12 row bytes
//   - 0x05 SetCursor:     col, row
//   - 0x06 HideCursor
//
// Unrecognised ids decode to Unknown and are dropped by the Dispatcher.
//
// # Key Events
//
// Key frames go the other way and are not regrouped:
//
//	[0x02, 0x05|0x06, code, checksum, 0x03]
//
// 0x05 is a press, 0x06 a release. Button codes are listed in Buttons.
//
// # Usage Example - Receiving
//
//	d := protocol.NewDispatcher(func(cmd protocol.Command) {
//	    switch c := cmd.(type) {
//	    case protocol.SetCursor:
//	        fmt.Printf("cursor at %d,%d\n", c.Col, c.Row)
//	    }
//	})
//	if err := d.Feed(payload); err != nil {
//	    log.Printf("decode: %v", err)
//	}
//
// # Usage Example - Sending
//
//	code, _ := protocol.LookupButton("enter")
//	err := conn.WriteMessage(websocket.BinaryMessage, protocol.BuildTap(code))
//
// # Error Handling
//
// Frames with a bad checksum are dropped silently and counted in Stats; a
// noisy link only loses the affected frame. Valid frames too short for their
// command produce a *DecodeError, which Feed returns after consuming the rest
// of its input.
//
// # Thread Safety
//
// The packing, checksum and constructor functions are stateless and safe for
// concurrent use. A Dispatcher is not.
package protocol
