package simulator

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/muurk/virtkeypad/internal/capture"
	"github.com/muurk/virtkeypad/internal/display"
	"github.com/muurk/virtkeypad/internal/logging"
	"github.com/muurk/virtkeypad/internal/protocol"
	"go.uber.org/zap"
)

// session is one connected keypad client
type session struct {
	server     *Server
	conn       *websocket.Conn
	remoteAddr string
	recorder   *capture.Recorder

	// writeMu serializes writers; gorilla allows one at a time.
	writeMu sync.Mutex
	menu    *Menu
	screen  *display.Screen
}

func (s *session) run() {
	logging.LogConnection(s.remoteAddr, "websocket_upgraded")
	defer func() {
		_ = s.conn.Close()
		if s.recorder != nil {
			_ = s.recorder.Close()
		}
		logging.LogConnection(s.remoteAddr, "websocket_closed")
	}()

	if err := s.send(s.menu.Paint()...); err != nil {
		return
	}

	stop := make(chan struct{})
	defer close(stop)
	if interval := s.server.config.HeartbeatInterval; interval > 0 {
		go s.heartbeat(interval, stop)
	}

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Info("Client closed the keypad", zap.String("remote_addr", s.remoteAddr))
			} else {
				logging.Info("Connection closed or error reading message",
					zap.String("remote_addr", s.remoteAddr),
					zap.Error(err),
				)
			}
			return
		}

		logging.LogWebSocketMessage(s.remoteAddr, "received", websocket.BinaryMessage, data)
		s.capture(capture.DirectionSent, data)

		for _, body := range protocol.SplitFrames(data) {
			frame := append(append([]byte{protocol.FrameStart}, body...), protocol.FrameEnd)
			logging.LogFrame(s.remoteAddr, "received", body)
			ev, err := protocol.ParseKeyFrame(frame)
			if err != nil {
				logging.Warn("Ignoring frame from client",
					zap.String("remote_addr", s.remoteAddr),
					zap.Binary("body", body),
					zap.Error(err),
				)
				continue
			}

			logging.Info("Key event",
				zap.String("remote_addr", s.remoteAddr),
				zap.String("key", ev.String()),
			)
			s.server.recordKey(s.remoteAddr, ev)

			if err := s.send(s.menu.HandleKey(ev)...); err != nil {
				return
			}
		}
	}
}

// send mirrors each command on the session's screen and writes it as its
// own message, the way a mount streams display updates.
func (s *session) send(cmds ...protocol.Command) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	for _, cmd := range cmds {
		s.screen.Apply(cmd)
		if err := s.write(protocol.EncodeDisplay(cmd)); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) heartbeat(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.write(protocol.BuildHeartbeat())
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// write must be called with writeMu held
func (s *session) write(frame []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	if err := s.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		logging.Error("Failed to send message",
			zap.String("remote_addr", s.remoteAddr),
			zap.Error(err),
		)
		return err
	}
	logging.LogWebSocketMessage(s.remoteAddr, "sent", websocket.BinaryMessage, frame)
	s.capture(capture.DirectionReceived, frame)
	return nil
}

func (s *session) capture(direction string, data []byte) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(direction, data); err != nil {
		logging.Error("Failed to write capture record",
			zap.String("path", s.recorder.Path()),
			zap.Error(err),
		)
	}
}
