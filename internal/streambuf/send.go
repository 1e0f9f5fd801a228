package streambuf

import "fmt"

// DefaultSendCapacity is the default send queue size (10 KiB)
const DefaultSendCapacity = 10 * 1024

// SendQueue collects outbound bytes until they are flushed. It never grows on
// its own; Grow is the only way to enlarge it.
type SendQueue struct {
	buf    []byte
	length int
}

// NewSendQueue creates a send queue. A non-positive capacity selects
// DefaultSendCapacity.
func NewSendQueue(capacity int) *SendQueue {
	if capacity <= 0 {
		capacity = DefaultSendCapacity
	}
	return &SendQueue{buf: make([]byte, capacity)}
}

// Push appends p to the pending bytes
func (s *SendQueue) Push(p []byte) error {
	if s.length+len(p) > len(s.buf) {
		return fmt.Errorf("%w: %d pending + %d new bytes, capacity %d",
			ErrSendQueueFull, s.length, len(p), len(s.buf))
	}
	copy(s.buf[s.length:], p)
	s.length += len(p)
	return nil
}

// Grow reallocates the queue so at least n more bytes fit after the pending
// ones. Pending bytes are preserved.
func (s *SendQueue) Grow(n int) {
	if n <= len(s.buf)-s.length {
		return
	}
	buf := make([]byte, s.length+n)
	copy(buf, s.buf[:s.length])
	s.buf = buf
}

// Bytes returns a view of the pending bytes, valid until the next Push or Reset
func (s *SendQueue) Bytes() []byte { return s.buf[:s.length] }

// Len returns the number of pending bytes
func (s *SendQueue) Len() int { return s.length }

// Capacity returns the queue size
func (s *SendQueue) Capacity() int { return len(s.buf) }

// Reset discards pending bytes
func (s *SendQueue) Reset() { s.length = 0 }
