package protocol

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

type recorder struct {
	cmds []Command
}

func (r *recorder) handle(c Command) { r.cmds = append(r.cmds, c) }

func TestDispatcher_KnownFrame(t *testing.T) {
	frame := []byte{2, 0, 130, 192, 160, 160, 64, 3}

	rec := &recorder{}
	d := NewDispatcher(rec.handle)
	if err := d.Feed(frame); err != nil {
		t.Fatalf("Feed() error = %v", err)
	}

	want := []Command{SetCursor{Col: 1, Row: 2}}
	if !reflect.DeepEqual(rec.cmds, want) {
		t.Errorf("dispatched = %v, want %v", rec.cmds, want)
	}
	if !bytes.Equal(EncodeDisplay(SetCursor{Col: 1, Row: 2}), frame) {
		t.Errorf("EncodeDisplay() = %v, want %v", EncodeDisplay(SetCursor{Col: 1, Row: 2}), frame)
	}
}

func TestDispatcher_RoundTrip(t *testing.T) {
	commands := []Command{
		DrawGlyphRun{Col: 1, Row: 1, Codes: []byte("Mount")},
		DrawMonoTile{Col: 3, Row: 2, Bits: [8]byte{0xff, 0, 0xff, 0, 0xff, 0, 0xff, 0}},
		DrawColorTile{Col: 16, Row: 5, Rows: [12]byte{1, 3, 7, 15, 31, 63, 127, 255, 127, 63, 31, 15}},
		SetCursor{Col: 3, Row: 4},
		HideCursor{},
	}

	var stream []byte
	for _, cmd := range commands {
		frame := EncodeDisplay(cmd)
		for _, b := range frame[1 : len(frame)-1] {
			if b == FrameStart || b == FrameEnd {
				t.Fatalf("%s: marker byte inside frame body %v", cmd, frame)
			}
		}
		stream = append(stream, frame...)
	}

	rec := &recorder{}
	d := NewDispatcher(rec.handle)
	if err := d.Feed(stream); err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if !reflect.DeepEqual(rec.cmds, commands) {
		t.Errorf("dispatched = %v, want %v", rec.cmds, commands)
	}
	if got := d.Stats().Dispatched; got != uint64(len(commands)) {
		t.Errorf("Stats().Dispatched = %d, want %d", got, len(commands))
	}
}

func TestDispatcher_ByteAtATime(t *testing.T) {
	frame := EncodeDisplay(DrawGlyphRun{Col: 2, Row: 3, Codes: []byte("RA 12h")})

	rec := &recorder{}
	d := NewDispatcher(rec.handle)
	for i, b := range frame {
		if err := d.Feed([]byte{b}); err != nil {
			t.Fatalf("Feed(byte %d) error = %v", i, err)
		}
		if i > 0 && i < len(frame)-1 && d.State() != StateCollecting {
			t.Fatalf("after byte %d: State() = %v, want collecting", i, d.State())
		}
	}
	if d.State() != StateIdle {
		t.Errorf("State() = %v, want idle", d.State())
	}
	if len(rec.cmds) != 1 {
		t.Fatalf("dispatched %d commands, want 1", len(rec.cmds))
	}
}

func TestDispatcher_Framing(t *testing.T) {
	cursor := EncodeDisplay(SetCursor{Col: 5, Row: 1})

	tests := []struct {
		name  string
		input []byte
		want  int
		check func(t *testing.T, s Stats)
	}{
		{
			name:  "noise before frame",
			input: append([]byte{0x41, 0x03, 0x99, 0x00}, cursor...),
			want:  1,
		},
		{
			name:  "stray end marker",
			input: append([]byte{FrameEnd, FrameEnd}, cursor...),
			want:  1,
		},
		{
			name:  "start marker restarts collection",
			input: append([]byte{FrameStart, 0, 130, 140}, cursor...),
			want:  1,
		},
		{
			name:  "heartbeat",
			input: append(BuildHeartbeat(), cursor...),
			want:  1,
			check: func(t *testing.T, s Stats) {
				if s.Heartbeats != 1 {
					t.Errorf("Heartbeats = %d, want 1", s.Heartbeats)
				}
			},
		},
		{
			name:  "ignored message type",
			input: BuildFrame(20, []byte{200, 201}),
			want:  0,
			check: func(t *testing.T, s Stats) {
				if s.Ignored != 1 {
					t.Errorf("Ignored = %d, want 1", s.Ignored)
				}
			},
		},
		{
			name:  "unknown command id",
			input: EncodeDisplay(Unknown{RawID: 9, Data: []byte{1, 2}}),
			want:  0,
			check: func(t *testing.T, s Stats) {
				if s.Unknown != 1 {
					t.Errorf("Unknown = %d, want 1", s.Unknown)
				}
			},
		},
		{
			name:  "single byte body",
			input: []byte{FrameStart, 50, FrameEnd},
			want:  0,
			check: func(t *testing.T, s Stats) {
				if s != (Stats{}) {
					t.Errorf("Stats() = %+v, want zero", s)
				}
			},
		},
		{
			name:  "empty body",
			input: []byte{FrameStart, FrameEnd},
			want:  0,
		},
		{
			name:  "partial frame kept",
			input: cursor[:len(cursor)-1],
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			d := NewDispatcher(rec.handle)
			if err := d.Feed(tt.input); err != nil {
				t.Fatalf("Feed() error = %v", err)
			}
			if len(rec.cmds) != tt.want {
				t.Errorf("dispatched %d commands (%v), want %d", len(rec.cmds), rec.cmds, tt.want)
			}
			if tt.check != nil {
				tt.check(t, d.Stats())
			}
		})
	}
}

func TestDispatcher_ChecksumRejection(t *testing.T) {
	frame := EncodeDisplay(SetCursor{Col: 7, Row: 3})

	for i := 1; i < len(frame)-2; i++ {
		corrupt := append([]byte(nil), frame...)
		corrupt[i] ^= 0x01

		rec := &recorder{}
		d := NewDispatcher(rec.handle)
		if err := d.Feed(corrupt); err != nil {
			t.Errorf("byte %d: Feed() error = %v, want silent drop", i, err)
		}
		if len(rec.cmds) != 0 {
			t.Errorf("byte %d: dispatched %v, want nothing", i, rec.cmds)
		}
		if got := d.Stats().ChecksumDrops; got != 1 {
			t.Errorf("byte %d: ChecksumDrops = %d, want 1", i, got)
		}
	}
}

func TestDispatcher_TruncatedCommand(t *testing.T) {
	bad := BuildFrame(MsgTypeDisplay, Unpack8to7([]byte{1, 1, 1, 5, 'A'}, true, 1))
	good := EncodeDisplay(HideCursor{})

	rec := &recorder{}
	d := NewDispatcher(rec.handle)
	err := d.Feed(append(bad, good...))
	if err == nil {
		t.Fatal("Feed() error = nil, want decode error")
	}
	if !errors.Is(err, ErrTruncated) {
		t.Errorf("Feed() error = %v, want ErrTruncated", err)
	}
	if !reflect.DeepEqual(rec.cmds, []Command{HideCursor{}}) {
		t.Errorf("dispatched = %v, want the frame after the bad one", rec.cmds)
	}
	if got := d.Stats().DecodeErrors; got != 1 {
		t.Errorf("DecodeErrors = %d, want 1", got)
	}
}

func TestDispatcher_Overlong(t *testing.T) {
	input := []byte{FrameStart}
	input = append(input, bytes.Repeat([]byte{200}, MaxFrameBody+76)...)
	input = append(input, FrameEnd)
	input = append(input, EncodeDisplay(HideCursor{})...)

	rec := &recorder{}
	d := NewDispatcher(rec.handle)
	if err := d.Feed(input); err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	s := d.Stats()
	if s.Overlong != 1 {
		t.Errorf("Overlong = %d, want 1", s.Overlong)
	}
	if len(rec.cmds) != 1 {
		t.Errorf("dispatched %d commands, want 1", len(rec.cmds))
	}
}

func TestDispatcher_Reset(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec.handle)
	frame := EncodeDisplay(SetCursor{Col: 1, Row: 1})

	_ = d.Feed(BuildHeartbeat())
	_ = d.Feed(frame[:3])
	if d.State() != StateCollecting {
		t.Fatalf("State() = %v, want collecting", d.State())
	}

	d.Reset()
	if d.State() != StateIdle {
		t.Errorf("State() after Reset = %v, want idle", d.State())
	}
	if d.Stats() != (Stats{}) {
		t.Errorf("Stats() after Reset = %+v, want zero", d.Stats())
	}

	// The tail of the interrupted frame is noise once reset.
	_ = d.Feed(frame[3:])
	if len(rec.cmds) != 0 {
		t.Errorf("dispatched %v after Reset, want nothing", rec.cmds)
	}
}

func TestDispatcher_NilHandler(t *testing.T) {
	d := NewDispatcher(nil)
	if err := d.Feed(EncodeDisplay(HideCursor{})); err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if got := d.Stats().Dispatched; got != 1 {
		t.Errorf("Dispatched = %d, want 1", got)
	}
}

func TestState_String(t *testing.T) {
	if StateIdle.String() != "idle" || StateCollecting.String() != "collecting" {
		t.Errorf("State strings = %q, %q", StateIdle, StateCollecting)
	}
}
