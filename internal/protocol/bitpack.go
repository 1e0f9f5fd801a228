package protocol

// Pack7to8 regroups a stream of 7-bit values into 8-bit bytes.
//
// Each value contributes its low seven bits, most significant first. A byte
// is emitted whenever eight bits are available. With flushPartial set, any
// leftover bits are emitted as one final byte padded with zeros on the right.
//
// Example (from the keypad firmware captures):
//
//	Pack7to8([]byte{200, 100, 10, 34}, false) // [145 144 82]
//	Pack7to8([]byte{200, 100, 10, 34}, true)  // [145 144 82 32]
func Pack7to8(values []byte, flushPartial bool) []byte {
	out := make([]byte, 0, (len(values)*7+7)/8)
	var acc uint32
	bits := 0
	for _, v := range values {
		acc = acc<<7 | uint32(v&0x7f)
		bits += 7
		if bits >= 8 {
			bits -= 8
			out = append(out, byte(acc>>bits))
		}
	}
	if flushPartial && bits > 0 {
		out = append(out, byte(acc<<(8-bits)))
	}
	return out
}

// Unpack8to7 regroups bytes into 7-bit values, the inverse of Pack7to8.
//
// Every emitted value is OR-ed with highBitTag<<7. The keypad sets the tag on
// display data so no value can be mistaken for a control byte (0-9). With
// flushPartial set, leftover bits become one final value padded with zeros on
// the right.
func Unpack8to7(data []byte, flushPartial bool, highBitTag byte) []byte {
	tag := (highBitTag & 1) << 7
	out := make([]byte, 0, (len(data)*8+6)/7)
	var acc uint32
	bits := 0
	for _, b := range data {
		acc = acc<<8 | uint32(b)
		bits += 8
		for bits >= 7 {
			bits -= 7
			out = append(out, byte(acc>>bits)&0x7f|tag)
		}
	}
	if flushPartial && bits > 0 {
		out = append(out, byte(acc<<(7-bits))&0x7f|tag)
	}
	return out
}
