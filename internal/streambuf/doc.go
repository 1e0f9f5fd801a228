// Package streambuf holds the raw bytes exchanged with the keypad socket.
//
// A ReceiveQueue buffers inbound WebSocket payloads and exposes cursor-based
// reads so a parser can consume them byte by byte, word by word or as a view.
// A SendQueue collects outbound bytes until the transport flushes them.
//
// # Receive Queue Layout
//
//	0            index           length          capacity
//	|  consumed   |    unread      |    free        |
//
// The invariant 0 <= index <= length <= capacity <= ceiling always holds.
// Consumed bytes are discarded by compaction, which moves the unread region
// to offset zero. When free space cannot hold a new payload the queue grows
// to max(capacity*2, 8*(unread+needed)), never beyond the ceiling
// (DefaultCeiling, 40 MiB). A payload that cannot fit even at the ceiling
// fails with ErrBufferOverflow and leaves the queue untouched.
//
// # Partial Parsing
//
// Wait lets a parser suspend when not enough bytes have arrived yet:
//
//	more, err := q.Wait(4, 1)
//	if err != nil {
//	    return err // parser bug: backed up past the start
//	}
//	if more {
//	    return nil // resume on the next message
//	}
//	length, _ := q.Shift32()
//
// # Thread Safety
//
// Queues are not safe for concurrent use. They are owned by a single
// transport event loop.
package streambuf
