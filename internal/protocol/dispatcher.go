package protocol

import (
	"fmt"

	"github.com/muurk/virtkeypad/internal/logging"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Message types carried in the first byte of a frame body
const (
	MsgTypeDisplay   = 0x00 // 7-bit packed display command follows
	MsgTypeHeartbeat = 0x01 // keep-alive, no payload
)

// MaxFrameBody bounds the bytes collected between markers. A longer run is
// line noise; the partial frame is dropped and the dispatcher goes idle.
const MaxFrameBody = 1024

// State is the dispatcher's position in the framing state machine
type State int

const (
	StateIdle State = iota
	StateCollecting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCollecting:
		return "collecting"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Stats counts what the dispatcher has seen since creation or Reset
type Stats struct {
	Frames        uint64 // frames with a valid checksum
	Dispatched    uint64 // commands delivered to the handler
	ChecksumDrops uint64 // frames dropped for a bad checksum
	Heartbeats    uint64
	Ignored       uint64 // valid frames with a message type we do not handle
	Unknown       uint64 // display frames carrying an unknown command id
	DecodeErrors  uint64 // display frames too short for their command
	Overlong      uint64 // partial frames dropped at MaxFrameBody
}

// CommandHandler receives every decoded command, once per valid frame
type CommandHandler func(Command)

// Dispatcher scans a byte stream for frames, validates them and hands the
// decoded commands to a handler. It is not safe for concurrent use.
type Dispatcher struct {
	handler    CommandHandler
	collecting bool
	buf        []byte
	stats      Stats
}

// NewDispatcher creates a dispatcher delivering commands to h
func NewDispatcher(h CommandHandler) *Dispatcher {
	return &Dispatcher{
		handler: h,
		buf:     make([]byte, 0, 64),
	}
}

// State returns the current framing state
func (d *Dispatcher) State() State {
	if d.collecting {
		return StateCollecting
	}
	return StateIdle
}

// Stats returns a snapshot of the counters
func (d *Dispatcher) Stats() Stats { return d.stats }

// Reset discards any partial frame and zeroes the counters
func (d *Dispatcher) Reset() {
	d.collecting = false
	d.buf = d.buf[:0]
	d.stats = Stats{}
}

// Feed consumes data. A partial frame at the end is kept for the next call.
// Checksum failures are dropped silently; decode failures of otherwise valid
// frames are collected and returned together after all of data is consumed.
func (d *Dispatcher) Feed(data []byte) error {
	var errs error
	for _, b := range data {
		switch {
		case b == FrameStart:
			d.buf = d.buf[:0]
			d.collecting = true

		case b == FrameEnd:
			if !d.collecting {
				continue
			}
			d.collecting = false
			if len(d.buf) > 1 {
				errs = multierr.Append(errs, d.finish(d.buf))
			}

		case d.collecting:
			if len(d.buf) >= MaxFrameBody {
				d.collecting = false
				d.stats.Overlong++
				logging.Debug("Dropping overlong frame",
					zap.Int("max_body", MaxFrameBody),
				)
				continue
			}
			d.buf = append(d.buf, b)
		}
	}
	return errs
}

func (d *Dispatcher) finish(body []byte) error {
	payload, err := ValidateFrame(body)
	if err != nil {
		d.stats.ChecksumDrops++
		logging.Debug("Dropping frame",
			zap.Error(err),
			zap.Int("body_len", len(body)),
		)
		return nil
	}
	d.stats.Frames++

	switch payload[0] {
	case MsgTypeDisplay:
		return d.display(payload[1:])
	case MsgTypeHeartbeat:
		d.stats.Heartbeats++
	default:
		d.stats.Ignored++
		logging.Debug("Ignoring frame",
			zap.Uint8("message_type", payload[0]),
		)
	}
	return nil
}

func (d *Dispatcher) display(packed []byte) error {
	data := Pack7to8(packed, false)
	if len(data) == 0 {
		d.stats.Ignored++
		return nil
	}

	cmd, err := DecodeCommand(data)
	if err != nil {
		d.stats.DecodeErrors++
		return fmt.Errorf("display frame: %w", err)
	}

	if u, ok := cmd.(Unknown); ok {
		d.stats.Unknown++
		logging.Debug("Unknown display command",
			zap.String("command", u.String()),
		)
		return nil
	}

	d.stats.Dispatched++
	if d.handler != nil {
		d.handler(cmd)
	}
	return nil
}
