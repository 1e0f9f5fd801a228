package streambuf

import (
	"encoding/binary"
	"fmt"
)

const (
	// DefaultCapacity is the initial receive queue size (4 MiB)
	DefaultCapacity = 4 * 1024 * 1024

	// DefaultCeiling is the hard limit the receive queue may grow to (40 MiB)
	DefaultCeiling = 41943040
)

// ReceiveQueue is a growable inbound byte buffer with a read cursor.
type ReceiveQueue struct {
	buf       []byte
	index     int // read cursor
	length    int // end of valid data
	ceiling   int
	threshold int // compaction threshold for Reclaim (capacity/8)
}

// NewReceiveQueue creates a receive queue with the given initial capacity
// and the default ceiling. A non-positive capacity selects DefaultCapacity.
func NewReceiveQueue(capacity int) *ReceiveQueue {
	return NewReceiveQueueWithCeiling(capacity, DefaultCeiling)
}

// NewReceiveQueueWithCeiling creates a receive queue with an explicit growth
// ceiling. The initial capacity is clamped to the ceiling.
func NewReceiveQueueWithCeiling(capacity, ceiling int) *ReceiveQueue {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if capacity > ceiling {
		capacity = ceiling
	}
	return &ReceiveQueue{
		buf:       make([]byte, capacity),
		ceiling:   ceiling,
		threshold: capacity / 8,
	}
}

// Capacity returns the current size of the underlying buffer
func (q *ReceiveQueue) Capacity() int { return len(q.buf) }

// Ceiling returns the maximum capacity the queue may grow to
func (q *ReceiveQueue) Ceiling() int { return q.ceiling }

// Len returns the logical length, including consumed bytes not yet compacted
func (q *ReceiveQueue) Len() int { return q.length }

// Index returns the read cursor position
func (q *ReceiveQueue) Index() int { return q.index }

// SetIndex moves the read cursor. It must stay within [0, Len()].
func (q *ReceiveQueue) SetIndex(i int) error {
	if i < 0 || i > q.length {
		return fmt.Errorf("index %d out of range [0,%d]", i, q.length)
	}
	q.index = i
	return nil
}

// Remaining returns the number of unread bytes
func (q *ReceiveQueue) Remaining() int { return q.length - q.index }

// Append copies p to the end of the queue, compacting or growing first when
// the free space is too small. On ErrBufferOverflow the queue is unchanged.
func (q *ReceiveQueue) Append(p []byte) error {
	if len(p) > len(q.buf)-q.length {
		if err := q.expandCompact(len(p)); err != nil {
			return err
		}
	}
	copy(q.buf[q.length:], p)
	q.length += len(p)
	return nil
}

// Compact moves the unread region to offset zero without changing capacity.
func (q *ReceiveQueue) Compact() {
	unread := q.length - q.index
	copy(q.buf, q.buf[q.index:q.length])
	q.index = 0
	q.length = unread
}

// Reclaim runs after a consumption pass. A fully consumed queue is reset to
// empty; otherwise the queue is compacted once its length passes the
// threshold, doubling capacity when more than half of it is unread.
func (q *ReceiveQueue) Reclaim() {
	if q.index == q.length {
		q.index = 0
		q.length = 0
		return
	}
	if q.length > q.threshold {
		// need == 0 never overflows
		_ = q.expandCompact(0)
	}
}

// Reset empties the queue without releasing the buffer
func (q *ReceiveQueue) Reset() {
	q.index = 0
	q.length = 0
}

// expandCompact makes room for need more bytes. The new capacity is computed
// and checked against the ceiling before anything is moved.
func (q *ReceiveQueue) expandCompact(need int) error {
	unread := q.length - q.index
	capacity := len(q.buf)
	newCap := capacity

	if need > 0 {
		if unread+need > capacity {
			newCap = max(capacity*2, 8*(unread+need))
		}
	} else if unread > capacity/2 {
		newCap = capacity * 2
	}

	if newCap > q.ceiling {
		newCap = q.ceiling
		if newCap-unread < need {
			return fmt.Errorf("%w: %d unread + %d new bytes, ceiling %d",
				ErrBufferOverflow, unread, need, q.ceiling)
		}
	}

	if newCap != capacity {
		buf := make([]byte, newCap)
		copy(buf, q.buf[q.index:q.length])
		q.buf = buf
		q.threshold = newCap / 8
	} else {
		copy(q.buf, q.buf[q.index:q.length])
	}
	q.index = 0
	q.length = unread
	return nil
}

// Wait reports whether fewer than minBytes remain unread, in which case the
// caller should stop and retry on the next message. If backup is non-zero the
// cursor is first rewound by that many bytes so a partially consumed header
// is read again later.
func (q *ReceiveQueue) Wait(minBytes, backup int) (bool, error) {
	if q.length-q.index >= minBytes {
		return false, nil
	}
	if backup > 0 {
		if q.index < backup {
			return true, fmt.Errorf("%w: backup %d, cursor %d", ErrInvalidBackup, backup, q.index)
		}
		q.index -= backup
	}
	return true, nil
}

func (q *ReceiveQueue) need(n int) error {
	if n < 0 || q.length-q.index < n {
		return fmt.Errorf("%w: need %d, have %d", ErrShortBuffer, n, q.length-q.index)
	}
	return nil
}

// Peek8 returns the next byte without consuming it
func (q *ReceiveQueue) Peek8() (byte, error) {
	if err := q.need(1); err != nil {
		return 0, err
	}
	return q.buf[q.index], nil
}

// Shift8 consumes one byte
func (q *ReceiveQueue) Shift8() (byte, error) {
	if err := q.need(1); err != nil {
		return 0, err
	}
	b := q.buf[q.index]
	q.index++
	return b, nil
}

// Shift16 consumes a big-endian uint16
func (q *ReceiveQueue) Shift16() (uint16, error) {
	if err := q.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(q.buf[q.index:])
	q.index += 2
	return v, nil
}

// Shift32 consumes a big-endian uint32
func (q *ReceiveQueue) Shift32() (uint32, error) {
	if err := q.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(q.buf[q.index:])
	q.index += 4
	return v, nil
}

// Skip8 consumes one byte and discards it
func (q *ReceiveQueue) Skip8() error {
	return q.Skip(1)
}

// Skip consumes n bytes and discards them
func (q *ReceiveQueue) Skip(n int) error {
	if err := q.need(n); err != nil {
		return err
	}
	q.index += n
	return nil
}

// ShiftBytes consumes n bytes and returns them as a view into the queue.
// The view is only valid until the next Append, Compact or Reclaim.
func (q *ReceiveQueue) ShiftBytes(n int) ([]byte, error) {
	if err := q.need(n); err != nil {
		return nil, err
	}
	view := q.buf[q.index : q.index+n : q.index+n]
	q.index += n
	return view, nil
}

// ShiftAll consumes every unread byte and returns them as a view
func (q *ReceiveQueue) ShiftAll() []byte {
	view, _ := q.ShiftBytes(q.length - q.index)
	return view
}

// ShiftTo consumes len(dst) bytes by copying them into dst
func (q *ReceiveQueue) ShiftTo(dst []byte) error {
	if err := q.need(len(dst)); err != nil {
		return err
	}
	q.index += copy(dst, q.buf[q.index:q.length])
	return nil
}

// ShiftString consumes n bytes and decodes them as Latin-1, one rune per byte
func (q *ReceiveQueue) ShiftString(n int) (string, error) {
	b, err := q.ShiftBytes(n)
	if err != nil {
		return "", err
	}
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes), nil
}

// Slice returns a view of the unread region between start and end, both
// relative to the cursor. An end of zero means "to the end of the data".
func (q *ReceiveQueue) Slice(start, end int) ([]byte, error) {
	unread := q.length - q.index
	if end == 0 {
		end = unread
	}
	if start < 0 || start > end || end > unread {
		return nil, fmt.Errorf("%w: slice [%d:%d] of %d unread bytes", ErrShortBuffer, start, end, unread)
	}
	return q.buf[q.index+start : q.index+end], nil
}

// Whole returns a view of every byte from offset zero to the logical length,
// including bytes already consumed.
func (q *ReceiveQueue) Whole() []byte {
	return q.buf[:q.length]
}
