package simulator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/muurk/virtkeypad/internal/capture"
	"github.com/muurk/virtkeypad/internal/display"
	"github.com/muurk/virtkeypad/internal/logging"
	"github.com/muurk/virtkeypad/internal/protocol"
	"go.uber.org/zap"
)

const (
	// Subprotocol is the WebSocket subprotocol the mount accepts
	Subprotocol = "binary"

	// DefaultPort is the keypad port of a real mount
	DefaultPort = 8000

	// DefaultHeartbeatInterval is how often an idle session sends a heartbeat
	DefaultHeartbeatInterval = 5 * time.Second

	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second
)

// Config holds the simulator configuration
type Config struct {
	Host  string
	Port  int
	Title string // main menu title

	// HeartbeatInterval of zero uses the default; negative disables heartbeats.
	HeartbeatInterval time.Duration

	// CaptureDir receives one JSONL capture per session (empty = disabled).
	CaptureDir string

	// OnKey is called for every key frame received.
	OnKey func(remoteAddr string, ev protocol.KeyEvent)
}

// Server is a simulated mount keypad endpoint
type Server struct {
	config   Config
	upgrader websocket.Upgrader
	httpSrv  *http.Server
	listener net.Listener
	wg       sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*session
	keys     []protocol.KeyEvent
}

// New creates a new Server instance
func New(config Config) *Server {
	if config.Port == 0 {
		config.Port = DefaultPort
	}
	if config.HeartbeatInterval == 0 {
		config.HeartbeatInterval = DefaultHeartbeatInterval
	}
	return &Server{
		config: config,
		upgrader: websocket.Upgrader{
			Subprotocols: []string{Subprotocol},
			CheckOrigin:  func(*http.Request) bool { return true },
		},
		sessions: make(map[string]*session),
	}
}

// Addr returns the listen address once Listen succeeded
func (s *Server) Addr() string {
	if s.listener == nil {
		return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	}
	return s.listener.Addr().String()
}

// Listen opens the TCP listener
func (s *Server) Listen() error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	return nil
}

// Serve accepts keypad clients until ctx is cancelled, then shuts down
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	s.httpSrv = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: writeWait,
	}

	logging.Info("Simulated mount listening",
		zap.String("addr", s.listener.Addr().String()),
		zap.String("title", s.config.Title),
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.httpSrv.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// ServeHTTP upgrades a keypad client and runs its session
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	remoteAddr := r.RemoteAddr

	headers := make(map[string]string)
	for key, values := range r.Header {
		headers[key] = strings.Join(values, ", ")
	}
	logging.LogHTTPRequest(remoteAddr, r.Method, r.URL.Path, headers)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error("WebSocket upgrade failed",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
		return
	}

	sess := s.newSession(conn, remoteAddr)

	s.mu.Lock()
	s.sessions[remoteAddr] = sess
	s.mu.Unlock()
	s.wg.Add(1)

	defer func() {
		s.mu.Lock()
		delete(s.sessions, remoteAddr)
		s.mu.Unlock()
		s.wg.Done()
	}()

	sess.run()
}

// Shutdown closes the listener and every active session
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down simulator...")

	var err error
	if s.httpSrv != nil {
		err = s.httpSrv.Shutdown(ctx)
	}
	s.DropConnections()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All sessions closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	}
	return err
}

// DropConnections closes every session's socket without a close frame, the
// way a mount reboot looks to a client.
func (s *Server) DropConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for addr, sess := range s.sessions {
		logging.Info("Dropping session", zap.String("remote_addr", addr))
		_ = sess.conn.Close()
	}
	return len(s.sessions)
}

// Broadcast sends a display command to every connected client
func (s *Server) Broadcast(cmd protocol.Command) {
	s.mu.Lock()
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		_ = sess.send(cmd)
	}
}

// GetActiveConnections returns the number of connected clients
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// SessionInfo is a snapshot of one connected client
type SessionInfo struct {
	RemoteAddr string
	Lines      []string
	Cursor     display.Cursor
}

// Sessions returns what each connected client is being shown
func (s *Server) Sessions() []SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]SessionInfo, 0, len(s.sessions))
	for addr, sess := range s.sessions {
		sess.writeMu.Lock()
		info := SessionInfo{RemoteAddr: addr, Lines: sess.screen.Lines(), Cursor: sess.screen.Cursor()}
		sess.writeMu.Unlock()
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].RemoteAddr < infos[j].RemoteAddr })
	return infos
}

// KeyEvents returns every key event received so far
func (s *Server) KeyEvents() []protocol.KeyEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.KeyEvent(nil), s.keys...)
}

func (s *Server) recordKey(remoteAddr string, ev protocol.KeyEvent) {
	s.mu.Lock()
	s.keys = append(s.keys, ev)
	s.mu.Unlock()
	if s.config.OnKey != nil {
		s.config.OnKey(remoteAddr, ev)
	}
}

func (s *Server) newSession(conn *websocket.Conn, remoteAddr string) *session {
	sess := &session{
		server:     s,
		conn:       conn,
		remoteAddr: remoteAddr,
		menu:       NewMenu(s.config.Title),
		screen:     display.NewScreen(),
	}
	if s.config.CaptureDir != "" {
		rec, err := capture.NewRecorder(s.config.CaptureDir, remoteAddr)
		if err != nil {
			logging.Error("Failed to open capture file", zap.Error(err))
		} else {
			sess.recorder = rec
		}
	}
	return sess
}
