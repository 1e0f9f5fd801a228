package transport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/muurk/virtkeypad/internal/protocol"
)

const testTimeout = 2 * time.Second

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(testTimeout):
		var zero T
		t.Fatalf("timed out waiting for %T", zero)
		return zero
	}
}

type fakeConn struct {
	in       chan []byte
	closed   chan struct{}
	once     sync.Once
	wrote    chan []byte
	closeMsg atomic.Bool
	writeErr error
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan []byte, 16),
		closed: make(chan struct{}),
		wrote:  make(chan []byte, 16),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case p := <-c.in:
		return websocket.BinaryMessage, p, nil
	case <-c.closed:
		return 0, nil, errors.New("use of closed network connection")
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	if messageType == websocket.CloseMessage {
		c.closeMsg.Store(true)
		return nil
	}
	if c.writeErr != nil {
		return c.writeErr
	}
	c.wrote <- append([]byte(nil), data...)
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

type dialResult struct {
	conn Conn
	err  error
}

type fakeDialer struct {
	results chan dialResult
	dials   atomic.Int32
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{results: make(chan dialResult, 8)}
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (Conn, error) {
	d.dials.Add(1)
	select {
	case r := <-d.results:
		return r.conn, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped atomic.Bool
}

func (t *fakeTimer) Stop() bool { return !t.stopped.Swap(true) }

func (t *fakeTimer) fire() {
	if !t.stopped.Load() {
		t.f()
	}
}

type fakeScheduler struct {
	mu        sync.Mutex
	timers    []*fakeTimer
	scheduled chan *fakeTimer
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{scheduled: make(chan *fakeTimer, 16)}
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	t := &fakeTimer{d: d, f: f}
	s.mu.Lock()
	s.timers = append(s.timers, t)
	s.mu.Unlock()
	s.scheduled <- t
	return t
}

func (s *fakeScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

type harness struct {
	tr     *Transport
	dialer *fakeDialer
	sched  *fakeScheduler
	states chan State
	cmds   chan protocol.Command
	errs   chan error
	runErr chan error
	cancel context.CancelFunc
}

func newHarness(t *testing.T, cfg Config, opts ...Option) *harness {
	t.Helper()
	if cfg.URL == "" {
		cfg.URL = "ws://mount.test:8000/"
	}

	h := &harness{
		dialer: newFakeDialer(),
		sched:  newFakeScheduler(),
		states: make(chan State, 64),
		cmds:   make(chan protocol.Command, 64),
		errs:   make(chan error, 64),
		runErr: make(chan error, 1),
	}
	opts = append([]Option{
		WithDialer(h.dialer),
		WithScheduler(h.sched),
		WithStateHandler(func(s State) { h.states <- s }),
		WithCommandHandler(func(c protocol.Command) { h.cmds <- c }),
		WithErrorHandler(func(err error) { h.errs <- err }),
	}, opts...)
	h.tr = New(cfg, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.runErr <- h.tr.Run(ctx) }()

	t.Cleanup(func() {
		_ = h.tr.Close()
		cancel()
	})
	return h
}

func (h *harness) expectState(t *testing.T, want State) {
	t.Helper()
	if got := recv(t, h.states); got != want {
		t.Fatalf("state = %v, want %v", got, want)
	}
}

// open completes a dial with conn and waits for the link to open
func (h *harness) open(t *testing.T, conn Conn) {
	t.Helper()
	h.dialer.results <- dialResult{conn: conn}
	h.expectState(t, StateConnecting)
	h.expectState(t, StateOpen)
}

// sync returns once every event posted before it has been handled
func (h *harness) sync(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	if err := h.tr.Send(ctx, nil); err != nil {
		t.Fatalf("sync: %v", err)
	}
}

func expectKind(t *testing.T, err error, want ErrorKind) {
	t.Helper()
	kind, ok := KindOf(err)
	if !ok || kind != want {
		t.Fatalf("error = %v, want kind %v", err, want)
	}
}

type fakeMetrics struct {
	mu         sync.Mutex
	bytes      map[string]int
	dispatched uint64
	reconnects int
	states     []string
	errors     []string
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{bytes: make(map[string]int)}
}

func (m *fakeMetrics) ObserveBytes(direction string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bytes[direction] += n
}

func (m *fakeMetrics) ObserveDispatch(d protocol.Stats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatched += d.Dispatched
}

func (m *fakeMetrics) ObserveReconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconnects++
}

func (m *fakeMetrics) ObserveState(state string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, state)
}

func (m *fakeMetrics) ObserveError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, kind)
}
