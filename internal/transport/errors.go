package transport

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by Send after Close or once Run has returned
var ErrClosed = errors.New("transport closed")

// ErrNotConnected is wrapped by the error Send returns while the link is down
// and waiting to reconnect
var ErrNotConnected = errors.New("link down, waiting to reconnect")

// ErrorKind is the category of a transport error
type ErrorKind int

const (
	// KindDial indicates the WebSocket could not be opened
	KindDial ErrorKind = iota
	// KindConnection indicates an open connection failed or closed abnormally
	KindConnection
	// KindWrite indicates a flush of the send queue failed
	KindWrite
	// KindBufferOverflow indicates the receive queue hit its ceiling
	KindBufferOverflow
	// KindDecode indicates one or more valid frames could not be decoded
	KindDecode
	// KindSendQueueFull indicates a send did not fit in the send queue
	KindSendQueueFull
	// KindNotConnected indicates a send was refused because the link was down
	KindNotConnected
)

// String returns a short name for the kind, also used as a metrics label
func (k ErrorKind) String() string {
	switch k {
	case KindDial:
		return "dial"
	case KindConnection:
		return "connection"
	case KindWrite:
		return "write"
	case KindBufferOverflow:
		return "buffer_overflow"
	case KindDecode:
		return "decode"
	case KindSendQueueFull:
		return "send_queue_full"
	case KindNotConnected:
		return "not_connected"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is reported through the error handler and returned by Send
type Error struct {
	Kind      ErrorKind
	URL       string // mount endpoint
	Err       error  // underlying error
	Retryable bool   // the transport reconnects on its own, or the call can be repeated
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error on %s: %v", e.Kind, e.URL, e.Err)
	}
	return fmt.Sprintf("%s error on %s", e.Kind, e.URL)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, url string, err error) *Error {
	return &Error{
		Kind:      kind,
		URL:       url,
		Err:       err,
		Retryable: kind != KindDecode,
	}
}

// IsRetryable reports whether err is a transport error marked retryable
func IsRetryable(err error) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Retryable
	}
	return false
}

// KindOf returns the kind of a transport error, and false for other errors
func KindOf(err error) (ErrorKind, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return 0, false
}
