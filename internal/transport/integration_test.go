package transport

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/muurk/virtkeypad/internal/protocol"
)

// mountServer is a minimal device peer: it paints one glyph run on connect
// and forwards every message it receives.
func mountServer(t *testing.T, received chan<- []byte, protocols chan<- string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{Subprotocols: []string{Subprotocol}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		protocols <- conn.Subprotocol()

		frame := protocol.EncodeDisplay(protocol.DrawGlyphRun{Col: 1, Row: 1, Codes: []byte("MAIN MENU")})
		if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			return
		}
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			received <- data
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTransport_WebSocketRoundTrip(t *testing.T) {
	received := make(chan []byte, 8)
	protocols := make(chan string, 1)
	srv := mountServer(t, received, protocols)

	cmds := make(chan protocol.Command, 8)
	opened := make(chan struct{}, 1)
	tr := New(Config{URL: "ws" + strings.TrimPrefix(srv.URL, "http") + "/"},
		WithCommandHandler(func(c protocol.Command) { cmds <- c }),
		WithStateHandler(func(s State) {
			if s == StateOpen {
				opened <- struct{}{}
			}
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = tr.Run(ctx) }()
	defer tr.Close()

	if got := recv(t, protocols); got != Subprotocol {
		t.Errorf("negotiated subprotocol = %q, want %q", got, Subprotocol)
	}
	recv(t, opened)

	cmd := recv(t, cmds)
	run, ok := cmd.(protocol.DrawGlyphRun)
	if !ok || string(run.Codes) != "MAIN MENU" {
		t.Fatalf("command = %v, want MAIN MENU glyph run", cmd)
	}

	code, _ := protocol.LookupButton("down")
	if err := tr.Tap(ctx, code); err != nil {
		t.Fatalf("Tap() error = %v", err)
	}
	if got := recv(t, received); !bytes.Equal(got, protocol.BuildKeyDown(code)) {
		t.Errorf("server got %v, want key down", got)
	}
	if got := recv(t, received); !bytes.Equal(got, protocol.BuildKeyUp(code)) {
		t.Errorf("server got %v, want key up", got)
	}
}

func TestWebSocketDialer_Refused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := WebSocketDialer{}.Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http")+"/")
	if err == nil {
		t.Fatal("Dial() to a plain HTTP handler should fail")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error = %v, want the handshake status", err)
	}
}
