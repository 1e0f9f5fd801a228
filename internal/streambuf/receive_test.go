package streambuf

import (
	"bytes"
	"errors"
	"testing"
)

func seq(n int, start byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = start + byte(i)
	}
	return b
}

func TestNewReceiveQueue(t *testing.T) {
	tests := []struct {
		name        string
		capacity    int
		ceiling     int
		wantCap     int
		wantCeiling int
	}{
		{"defaults", 0, 0, DefaultCapacity, DefaultCeiling},
		{"explicit", 64, 1024, 64, 1024},
		{"capacity clamped to ceiling", 4096, 1024, 1024, 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewReceiveQueueWithCeiling(tt.capacity, tt.ceiling)
			if q.Capacity() != tt.wantCap {
				t.Errorf("Capacity() = %d, want %d", q.Capacity(), tt.wantCap)
			}
			if q.Ceiling() != tt.wantCeiling {
				t.Errorf("Ceiling() = %d, want %d", q.Ceiling(), tt.wantCeiling)
			}
			if q.Remaining() != 0 {
				t.Errorf("Remaining() = %d, want 0", q.Remaining())
			}
		})
	}
}

func TestReceiveQueue_CursorReads(t *testing.T) {
	q := NewReceiveQueue(64)
	if err := q.Append([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 'H', 'i', 0xB0}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if b, err := q.Peek8(); err != nil || b != 0x01 {
		t.Errorf("Peek8() = %d, %v, want 1, nil", b, err)
	}
	if b, err := q.Shift8(); err != nil || b != 0x01 {
		t.Errorf("Shift8() = %d, %v, want 1, nil", b, err)
	}
	if v, err := q.Shift16(); err != nil || v != 0x0203 {
		t.Errorf("Shift16() = 0x%04x, %v, want 0x0203, nil", v, err)
	}
	if err := q.Skip8(); err != nil {
		t.Errorf("Skip8() error = %v", err)
	}
	if v, err := q.Shift32(); err != nil || v != 0x05060708 {
		t.Errorf("Shift32() = 0x%08x, %v, want 0x05060708, nil", v, err)
	}
	if s, err := q.ShiftString(3); err != nil || s != "Hi°" {
		t.Errorf("ShiftString(3) = %q, %v, want %q, nil", s, err, "Hi°")
	}
	if q.Remaining() != 0 {
		t.Errorf("Remaining() = %d, want 0", q.Remaining())
	}
	if _, err := q.Shift8(); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("Shift8() on empty queue error = %v, want ErrShortBuffer", err)
	}
	if len(q.Whole()) != 11 {
		t.Errorf("len(Whole()) = %d, want 11", len(q.Whole()))
	}
}

func TestReceiveQueue_ShiftBytesAndSlice(t *testing.T) {
	q := NewReceiveQueue(32)
	_ = q.Append(seq(10, 0))

	view, err := q.ShiftBytes(3)
	if err != nil {
		t.Fatalf("ShiftBytes(3) error = %v", err)
	}
	if !bytes.Equal(view, []byte{0, 1, 2}) {
		t.Errorf("ShiftBytes(3) = %v, want [0 1 2]", view)
	}

	s, err := q.Slice(1, 3)
	if err != nil {
		t.Fatalf("Slice(1,3) error = %v", err)
	}
	if !bytes.Equal(s, []byte{4, 5}) {
		t.Errorf("Slice(1,3) = %v, want [4 5]", s)
	}
	if s, _ := q.Slice(5, 0); !bytes.Equal(s, []byte{8, 9}) {
		t.Errorf("Slice(5,0) = %v, want [8 9]", s)
	}
	if _, err := q.Slice(2, 20); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("Slice(2,20) error = %v, want ErrShortBuffer", err)
	}

	dst := make([]byte, 2)
	if err := q.ShiftTo(dst); err != nil || !bytes.Equal(dst, []byte{3, 4}) {
		t.Errorf("ShiftTo() = %v, %v, want [3 4], nil", dst, err)
	}

	rest := q.ShiftAll()
	if !bytes.Equal(rest, []byte{5, 6, 7, 8, 9}) {
		t.Errorf("ShiftAll() = %v, want [5 6 7 8 9]", rest)
	}
	if _, err := q.ShiftBytes(1); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("ShiftBytes past end error = %v, want ErrShortBuffer", err)
	}
}

func TestReceiveQueue_Wait(t *testing.T) {
	q := NewReceiveQueue(32)
	_ = q.Append([]byte{1, 2, 3})

	more, err := q.Wait(3, 0)
	if err != nil || more {
		t.Errorf("Wait(3,0) = %v, %v, want false, nil", more, err)
	}

	_, _ = q.Shift8()
	_, _ = q.Shift8()

	more, err = q.Wait(4, 2)
	if err != nil || !more {
		t.Errorf("Wait(4,2) = %v, %v, want true, nil", more, err)
	}
	if q.Index() != 0 {
		t.Errorf("Index() after backup = %d, want 0", q.Index())
	}

	_, _ = q.Shift8()
	more, err = q.Wait(10, 2)
	if !more {
		t.Error("Wait(10,2) should report more data needed")
	}
	if !errors.Is(err, ErrInvalidBackup) {
		t.Errorf("Wait(10,2) error = %v, want ErrInvalidBackup", err)
	}
	if q.Index() != 1 {
		t.Errorf("Index() after invalid backup = %d, want 1 (unchanged)", q.Index())
	}
}

func TestReceiveQueue_AppendCompactsWhenRoomAfterConsumed(t *testing.T) {
	q := NewReceiveQueueWithCeiling(16, 1024)
	_ = q.Append(seq(12, 0))
	_ = q.Skip(10)

	// 2 unread + 8 new fits in 16 once consumed bytes are dropped
	if err := q.Append(seq(8, 100)); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if q.Capacity() != 16 {
		t.Errorf("Capacity() = %d, want 16 (compacted, not grown)", q.Capacity())
	}
	if q.Index() != 0 {
		t.Errorf("Index() = %d, want 0", q.Index())
	}
	want := append([]byte{10, 11}, seq(8, 100)...)
	if got := q.ShiftAll(); !bytes.Equal(got, want) {
		t.Errorf("unread = %v, want %v", got, want)
	}
}

func TestReceiveQueue_Growth(t *testing.T) {
	q := NewReceiveQueueWithCeiling(16, 4096)
	_ = q.Append(seq(10, 0))
	_ = q.Skip(4)
	unread, _ := q.Slice(0, 0)
	before := append([]byte(nil), unread...)

	payload := seq(20, 50)
	if err := q.Append(payload); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	// max(16*2, 8*(6+20))
	if q.Capacity() != 208 {
		t.Errorf("Capacity() = %d, want 208", q.Capacity())
	}
	if q.Capacity() < 32 {
		t.Errorf("Capacity() = %d, should at least double", q.Capacity())
	}

	got := q.ShiftAll()
	if !bytes.Equal(got[:len(before)], before) {
		t.Errorf("previously unread bytes = %v, want %v", got[:len(before)], before)
	}
	if !bytes.Equal(got[len(before):], payload) {
		t.Errorf("appended bytes = %v, want %v", got[len(before):], payload)
	}
}

func TestReceiveQueue_GrowthCappedAtCeiling(t *testing.T) {
	q := NewReceiveQueueWithCeiling(16, 100)
	_ = q.Append(seq(10, 0))

	if err := q.Append(seq(40, 0)); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if q.Capacity() != 100 {
		t.Errorf("Capacity() = %d, want 100 (ceiling)", q.Capacity())
	}
	if q.Remaining() != 50 {
		t.Errorf("Remaining() = %d, want 50", q.Remaining())
	}
}

func TestReceiveQueue_Overflow(t *testing.T) {
	q := NewReceiveQueueWithCeiling(16, 64)
	_ = q.Append(seq(10, 0))
	_ = q.Skip(2)

	err := q.Append(seq(60, 0))
	if !errors.Is(err, ErrBufferOverflow) {
		t.Fatalf("Append() error = %v, want ErrBufferOverflow", err)
	}

	if q.Capacity() != 16 {
		t.Errorf("Capacity() = %d, want 16 (unchanged)", q.Capacity())
	}
	if q.Index() != 2 || q.Len() != 10 {
		t.Errorf("cursor = [%d,%d), want [2,10) (unchanged)", q.Index(), q.Len())
	}
	if got := q.ShiftAll(); !bytes.Equal(got, seq(8, 2)) {
		t.Errorf("unread = %v, want %v", got, seq(8, 2))
	}
}

func TestReceiveQueue_Reclaim(t *testing.T) {
	t.Run("fully consumed resets", func(t *testing.T) {
		q := NewReceiveQueue(64)
		_ = q.Append(seq(5, 0))
		_ = q.Skip(5)
		q.Reclaim()
		if q.Index() != 0 || q.Len() != 0 {
			t.Errorf("cursor = [%d,%d), want [0,0)", q.Index(), q.Len())
		}
	})

	t.Run("below threshold leaves cursor", func(t *testing.T) {
		q := NewReceiveQueue(64) // threshold 8
		_ = q.Append(seq(6, 0))
		_ = q.Skip(2)
		q.Reclaim()
		if q.Index() != 2 || q.Len() != 6 {
			t.Errorf("cursor = [%d,%d), want [2,6)", q.Index(), q.Len())
		}
	})

	t.Run("over threshold compacts", func(t *testing.T) {
		q := NewReceiveQueue(64)
		_ = q.Append(seq(20, 0))
		_ = q.Skip(15)
		q.Reclaim()
		if q.Index() != 0 || q.Len() != 5 {
			t.Errorf("cursor = [%d,%d), want [0,5)", q.Index(), q.Len())
		}
		if q.Capacity() != 64 {
			t.Errorf("Capacity() = %d, want 64", q.Capacity())
		}
	})

	t.Run("more than half unread doubles", func(t *testing.T) {
		q := NewReceiveQueueWithCeiling(64, 1024)
		_ = q.Append(seq(40, 0))
		_ = q.Skip(1)
		q.Reclaim()
		if q.Capacity() != 128 {
			t.Errorf("Capacity() = %d, want 128", q.Capacity())
		}
		if got := q.ShiftAll(); !bytes.Equal(got, seq(39, 1)) {
			t.Errorf("unread = %v, want %v", got, seq(39, 1))
		}
	})
}

func TestReceiveQueue_CompactAndSetIndex(t *testing.T) {
	q := NewReceiveQueue(32)
	_ = q.Append(seq(6, 0))
	if err := q.SetIndex(4); err != nil {
		t.Fatalf("SetIndex(4) error = %v", err)
	}
	q.Compact()
	if q.Index() != 0 || q.Len() != 2 {
		t.Errorf("cursor = [%d,%d), want [0,2)", q.Index(), q.Len())
	}
	if err := q.SetIndex(3); err == nil {
		t.Error("SetIndex(3) past length should fail")
	}
	if err := q.SetIndex(-1); err == nil {
		t.Error("SetIndex(-1) should fail")
	}

	q.Reset()
	if q.Remaining() != 0 {
		t.Errorf("Remaining() after Reset = %d, want 0", q.Remaining())
	}
}
