package streambuf

import "errors"

var (
	// ErrBufferOverflow is returned when a payload cannot fit in the receive
	// queue even after growing it to the ceiling. The connection must be
	// aborted.
	ErrBufferOverflow = errors.New("receive queue exceeded its ceiling and the message could not fit")

	// ErrInvalidBackup is returned by Wait when asked to rewind further than
	// the bytes consumed so far. It indicates a parser bug.
	ErrInvalidBackup = errors.New("cannot back up past the start of the receive queue")

	// ErrShortBuffer is returned by cursor reads that need more unread bytes
	// than are available.
	ErrShortBuffer = errors.New("not enough unread bytes in receive queue")

	// ErrSendQueueFull is returned when pending outbound bytes would exceed
	// the send queue capacity.
	ErrSendQueueFull = errors.New("send queue capacity exceeded")
)
