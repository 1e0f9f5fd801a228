package transport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/muurk/virtkeypad/internal/logging"
	"go.uber.org/zap"
)

// Subprotocol is the WebSocket subprotocol the mount speaks
const Subprotocol = "binary"

// DefaultHandshakeTimeout bounds the WebSocket opening handshake
const DefaultHandshakeTimeout = 3 * time.Second

// Conn is the part of *websocket.Conn the transport uses. Reads happen on one
// goroutine and writes on another, which gorilla/websocket allows.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens connections to the mount
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// WebSocketDialer dials with gorilla/websocket, asking for the "binary"
// subprotocol.
type WebSocketDialer struct {
	HandshakeTimeout time.Duration
	Header           http.Header
}

// Dial opens a WebSocket to url
func (d WebSocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	timeout := d.HandshakeTimeout
	if timeout <= 0 {
		timeout = DefaultHandshakeTimeout
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
		Subprotocols:     []string{Subprotocol},
	}

	conn, resp, err := dialer.DialContext(ctx, url, d.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("handshake failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, err
	}

	if p := conn.Subprotocol(); p != "" {
		logging.Debug("Server chose sub-protocol",
			zap.String("url", url),
			zap.String("subprotocol", p),
		)
	}
	return conn, nil
}

// Timer is a pending reconnect
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d. Tests swap in a manual scheduler.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
