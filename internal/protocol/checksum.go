package protocol

import (
	"errors"
	"fmt"
)

// Frame markers and reserved ranges
const (
	FrameStart = 0x02 // opens a frame
	FrameEnd   = 0x03 // closes a frame

	// ControlLimit is the first value outside the control range. Checksums are
	// pushed to ControlLimit or above so they never look like a marker.
	ControlLimit = 10
)

// ErrChecksumMismatch is returned when a frame's transmitted checksum does not
// match the computed one. Dispatchers drop such frames silently.
var ErrChecksumMismatch = errors.New("frame checksum mismatch")

// Checksum XOR-folds b. Results below ControlLimit are raised by
// ControlLimit, so the checksum is always in [10, 255].
func Checksum(b []byte) byte {
	var sum byte
	for _, c := range b {
		sum ^= c
	}
	if sum < ControlLimit {
		sum += ControlLimit
	}
	return sum
}

// ValidateFrame checks a frame body, the bytes strictly between FrameStart and
// FrameEnd. The last byte is the transmitted checksum, computed over the
// start marker followed by the rest of the body. On success the body without
// its checksum is returned.
func ValidateFrame(body []byte) ([]byte, error) {
	if len(body) < 2 {
		return nil, fmt.Errorf("frame body too short: %d bytes", len(body))
	}
	payload := body[:len(body)-1]
	want := body[len(body)-1]

	sum := byte(FrameStart)
	for _, c := range payload {
		sum ^= c
	}
	if sum < ControlLimit {
		sum += ControlLimit
	}
	if sum != want {
		return nil, fmt.Errorf("%w: got 0x%02x, want 0x%02x", ErrChecksumMismatch, want, sum)
	}
	return payload, nil
}

// BuildFrame assembles [FrameStart, id, payload..., checksum, FrameEnd].
func BuildFrame(id byte, payload []byte) []byte {
	frame := make([]byte, 0, len(payload)+4)
	frame = append(frame, FrameStart, id)
	frame = append(frame, payload...)
	frame = append(frame, Checksum(frame))
	return append(frame, FrameEnd)
}
