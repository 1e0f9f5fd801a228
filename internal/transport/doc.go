// Package transport owns the WebSocket link to a mount's virtual keypad.
//
// A Transport dials ws://<host>:8000/ with the "binary" subprotocol, feeds
// every inbound message through a receive queue and the frame dispatcher,
// and delivers decoded display commands to a handler. Outbound key events go
// through a bounded send queue that is flushed whenever the link is open.
//
// # Event Loop
//
// Run drives a single goroutine. Socket open, message and close
// notifications, sends and reconnect timers all arrive there as events and
// are handled one at a time, so the queues and the dispatcher need no locks.
//
// # Reconnect
//
// Every close (a failed dial, a remote close, an aborted connection) moves the
// link to StateClosed and schedules exactly one new attempt to the same URL
// after ReconnectDelay. There is no backoff and no retry limit. Close, or
// cancelling Run's context, stops the pending timer and ends the loop.
//
// # Errors
//
// Errors are reported to the error handler as *Error with an ErrorKind:
//
//	transport.New(cfg, transport.WithErrorHandler(func(err error) {
//	    if kind, ok := transport.KindOf(err); ok && kind == transport.KindDecode {
//	        // the link is still up
//	    }
//	}))
//
// A receive queue overflow aborts the connection, which then reconnects.
// Decode errors leave it open.
package transport
