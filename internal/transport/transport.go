package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/muurk/virtkeypad/internal/capture"
	"github.com/muurk/virtkeypad/internal/logging"
	"github.com/muurk/virtkeypad/internal/protocol"
	"github.com/muurk/virtkeypad/internal/streambuf"
	"go.uber.org/zap"
)

// DefaultReconnectDelay is the fixed wait between a close and the next attempt
const DefaultReconnectDelay = 3 * time.Second

// State is the connection state reported to the state handler
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config holds the transport configuration
type Config struct {
	URL             string        // e.g. ws://192.168.2.15:8000/
	ReconnectDelay  time.Duration // default 3s
	ReceiveCapacity int           // initial receive queue size, default 4 MiB
	ReceiveCeiling  int           // receive queue limit, default 40 MiB
	SendCapacity    int           // send queue size, default 10 KiB
}

// Metrics receives observations about the link. *metrics.Collector
// implements it.
type Metrics interface {
	ObserveBytes(direction string, n int)
	ObserveDispatch(delta protocol.Stats)
	ObserveReconnect()
	ObserveState(state string)
	ObserveError(kind string)
}

// Recorder receives every message in both directions. *capture.Recorder
// implements it.
type Recorder interface {
	Record(direction string, payload []byte) error
}

// Option configures a Transport
type Option func(*Transport)

// WithDialer replaces the gorilla/websocket dialer
func WithDialer(d Dialer) Option {
	return func(t *Transport) { t.dialer = d }
}

// WithScheduler replaces the timer used for reconnects
func WithScheduler(s Scheduler) Option {
	return func(t *Transport) { t.sched = s }
}

// WithCommandHandler sets the receiver of decoded display commands
func WithCommandHandler(h protocol.CommandHandler) Option {
	return func(t *Transport) { t.onCommand = h }
}

// WithStateHandler sets the receiver of state changes
func WithStateHandler(h func(State)) Option {
	return func(t *Transport) { t.onState = h }
}

// WithErrorHandler sets the receiver of transport errors
func WithErrorHandler(h func(error)) Option {
	return func(t *Transport) { t.onError = h }
}

// WithMetrics reports link activity to m
func WithMetrics(m Metrics) Option {
	return func(t *Transport) { t.metrics = m }
}

// WithRecorder captures every message to r
func WithRecorder(r Recorder) Option {
	return func(t *Transport) { t.recorder = r }
}

type eventKind int

const (
	evOpen eventKind = iota
	evMessage
	evClose
	evSend
	evReconnect
)

type event struct {
	kind  eventKind
	gen   uint64
	conn  Conn
	data  []byte
	err   error
	reply chan error
}

// Transport owns the WebSocket to the mount. All state lives on the goroutine
// running Run: socket callbacks, sends and reconnect timers are delivered to
// it as events and handled one at a time.
//
// Handlers are called on that goroutine. They must not call Send or Close
// directly; hand the work to another goroutine instead.
type Transport struct {
	cfg       Config
	dialer    Dialer
	sched     Scheduler
	onCommand protocol.CommandHandler
	onState   func(State)
	onError   func(error)
	metrics   Metrics
	recorder  Recorder

	events    chan event
	closing   chan struct{}
	closeOnce sync.Once
	done      chan struct{}
	running   atomic.Bool
	wg        sync.WaitGroup
	state     atomic.Int32

	statsMu sync.Mutex
	total   protocol.Stats

	// owned by the event loop
	ctx      context.Context
	gen      uint64
	conn     Conn
	rq       *streambuf.ReceiveQueue
	sq       *streambuf.SendQueue
	disp     *protocol.Dispatcher
	timer    Timer
	stopping bool
}

// New creates a transport for cfg. Nothing happens until Run.
func New(cfg Config, opts ...Option) *Transport {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.ReceiveCapacity <= 0 {
		cfg.ReceiveCapacity = streambuf.DefaultCapacity
	}
	if cfg.ReceiveCeiling <= 0 {
		cfg.ReceiveCeiling = streambuf.DefaultCeiling
	}
	if cfg.SendCapacity <= 0 {
		cfg.SendCapacity = streambuf.DefaultSendCapacity
	}

	t := &Transport{
		cfg:     cfg,
		dialer:  WebSocketDialer{},
		sched:   realScheduler{},
		metrics: nopMetrics{},
		events:  make(chan event),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
		rq:      streambuf.NewReceiveQueueWithCeiling(cfg.ReceiveCapacity, cfg.ReceiveCeiling),
		sq:      streambuf.NewSendQueue(cfg.SendCapacity),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.disp = protocol.NewDispatcher(t.deliver)
	return t
}

// URL returns the mount endpoint
func (t *Transport) URL() string { return t.cfg.URL }

// State returns the current connection state
func (t *Transport) State() State { return State(t.state.Load()) }

// Stats returns dispatcher counters accumulated over every connection
func (t *Transport) Stats() protocol.Stats {
	t.statsMu.Lock()
	defer t.statsMu.Unlock()
	return t.total
}

// Done is closed when Run has returned
func (t *Transport) Done() <-chan struct{} { return t.done }

// Run connects and keeps the link up until ctx is cancelled or Close is
// called. A closed link is reopened after the reconnect delay, forever.
func (t *Transport) Run(ctx context.Context) error {
	if !t.running.CompareAndSwap(false, true) {
		return errors.New("transport already running")
	}
	defer t.wg.Wait()
	defer close(t.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	t.ctx = ctx

	logging.Info("Starting keypad transport",
		zap.String("url", t.cfg.URL),
		zap.Duration("reconnect_delay", t.cfg.ReconnectDelay),
	)

	t.open()
	for {
		select {
		case <-ctx.Done():
			t.shutdown()
			return ctx.Err()
		case <-t.closing:
			t.shutdown()
			return nil
		case ev := <-t.events:
			t.handle(ev)
		}
	}
}

// Close shuts the transport down, cancelling any pending reconnect. It waits
// for Run to return when Run is active.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() { close(t.closing) })
	if t.running.Load() {
		<-t.done
	}
	return nil
}

// Send queues data and flushes it if the link is open. Data sent while
// Connecting waits in the send queue for the open. While the link is Closed
// and waiting to reconnect, Send returns a KindNotConnected error and the
// data is not kept.
func (t *Transport) Send(ctx context.Context, data []byte) error {
	reply := make(chan error, 1)
	ev := event{kind: evSend, data: append([]byte(nil), data...), reply: reply}

	select {
	case t.events <- ev:
	case <-ctx.Done():
		return ctx.Err()
	case <-t.closing:
		return ErrClosed
	case <-t.done:
		return ErrClosed
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return ErrClosed
	}
}

// SendKeyEvent sends one press or release
func (t *Transport) SendKeyEvent(ctx context.Context, ev protocol.KeyEvent) error {
	logging.Debug("Sending key event",
		zap.String("url", t.cfg.URL),
		zap.String("event", ev.String()),
	)
	return t.Send(ctx, protocol.BuildKeyEvent(ev))
}

// Tap sends a press followed by a release, as two messages
func (t *Transport) Tap(ctx context.Context, code byte) error {
	if err := t.SendKeyEvent(ctx, protocol.KeyEvent{Code: code, Pressed: true}); err != nil {
		return err
	}
	return t.SendKeyEvent(ctx, protocol.KeyEvent{Code: code, Pressed: false})
}

// post delivers an event to the loop. It reports false once Run has returned.
func (t *Transport) post(ev event) bool {
	select {
	case t.events <- ev:
		return true
	case <-t.done:
		return false
	}
}

func (t *Transport) handle(ev event) {
	if ev.kind == evSend {
		ev.reply <- t.send(ev.data)
		return
	}

	if ev.gen != t.gen {
		// left over from an earlier connection
		if ev.kind == evOpen && ev.conn != nil {
			_ = ev.conn.Close()
		}
		return
	}

	switch ev.kind {
	case evOpen:
		t.opened(ev.conn)
	case evMessage:
		if t.State() == StateOpen {
			t.message(ev.data)
		}
	case evClose:
		t.closed(ev.err)
	case evReconnect:
		t.reconnect()
	}
}

func (t *Transport) open() {
	t.gen++
	gen := t.gen

	t.rq.Reset()
	t.sq.Reset()
	t.disp.Reset()
	t.setState(StateConnecting)

	t.wg.Add(1)
	go t.connect(gen)
}

// connect dials and then reads until the connection fails
func (t *Transport) connect(gen uint64) {
	defer t.wg.Done()

	conn, err := t.dialer.Dial(t.ctx, t.cfg.URL)
	if err != nil {
		t.post(event{kind: evClose, gen: gen, err: err})
		return
	}
	if !t.post(event{kind: evOpen, gen: gen, conn: conn}) {
		_ = conn.Close()
		return
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			t.post(event{kind: evClose, gen: gen, err: err})
			return
		}
		if msgType != websocket.BinaryMessage && msgType != websocket.TextMessage {
			continue
		}
		if !t.post(event{kind: evMessage, gen: gen, data: data}) {
			return
		}
	}
}

func (t *Transport) opened(conn Conn) {
	t.conn = conn
	logging.LogConnection(t.cfg.URL, "websocket_opened")
	t.setState(StateOpen)
	if err := t.flush(); err != nil {
		logging.Debug("Flush on open failed", zap.Error(err))
	}
}

func (t *Transport) message(data []byte) {
	if len(data) == 0 {
		logging.Debug("Ignoring empty message", zap.String("url", t.cfg.URL))
		return
	}

	logging.LogWebSocketMessage(t.cfg.URL, "received", websocket.BinaryMessage, data)
	t.metrics.ObserveBytes("received", len(data))
	t.record(capture.DirectionReceived, data)

	if err := t.rq.Append(data); err != nil {
		t.report(newError(KindBufferOverflow, t.cfg.URL, err))
		t.abort()
		return
	}

	before := t.disp.Stats()
	err := t.disp.Feed(t.rq.ShiftAll())
	t.rq.Reclaim()
	t.addStats(statsDelta(before, t.disp.Stats()))

	if err != nil {
		logging.LogRawBytes("Message with undecodable frame", data)
		t.report(newError(KindDecode, t.cfg.URL, err))
	}
}

func (t *Transport) deliver(cmd protocol.Command) {
	if t.onCommand != nil {
		t.onCommand(cmd)
	}
}

// send queues data and flushes it when the link is open. Data sent while
// Connecting waits for the open. While Closed the queue would be reset by the
// next open, so the send is refused instead.
func (t *Transport) send(data []byte) error {
	if len(data) > 0 && t.State() == StateClosed {
		return newError(KindNotConnected, t.cfg.URL, ErrNotConnected)
	}
	if err := t.sq.Push(data); err != nil {
		terr := newError(KindSendQueueFull, t.cfg.URL, err)
		t.report(terr)
		return terr
	}
	return t.flush()
}

// flush writes the send queue as one message. It does nothing while the link
// is not open or the queue is empty.
func (t *Transport) flush() error {
	if t.conn == nil || t.State() != StateOpen || t.sq.Len() == 0 {
		return nil
	}

	data := t.sq.Bytes()
	err := t.conn.WriteMessage(websocket.BinaryMessage, data)
	if err != nil {
		t.sq.Reset()
		terr := newError(KindWrite, t.cfg.URL, err)
		t.report(terr)
		t.abort()
		return terr
	}

	logging.LogWebSocketMessage(t.cfg.URL, "sent", websocket.BinaryMessage, data)
	t.metrics.ObserveBytes("sent", len(data))
	t.record(capture.DirectionSent, data)
	t.sq.Reset()
	return nil
}

// abort drops the current connection after an error that was already
// reported. The reader's close event for it is then ignored.
func (t *Transport) abort() {
	if t.conn != nil {
		_ = t.conn.Close()
	}
	t.closed(nil)
}

func (t *Transport) closed(err error) {
	if t.State() == StateClosed {
		// one reconnect per connection
		return
	}
	wasOpen := t.State() == StateOpen

	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
	}

	if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		kind := KindConnection
		if !wasOpen {
			kind = KindDial
		}
		t.report(newError(kind, t.cfg.URL, err))
	}

	t.setState(StateClosed)
	if t.stopping {
		return
	}

	gen := t.gen
	t.timer = t.sched.AfterFunc(t.cfg.ReconnectDelay, func() {
		t.post(event{kind: evReconnect, gen: gen})
	})
	logging.Info("Reconnect scheduled",
		zap.String("url", t.cfg.URL),
		zap.Duration("delay", t.cfg.ReconnectDelay),
	)
}

func (t *Transport) reconnect() {
	t.timer = nil
	if t.State() != StateClosed || t.stopping {
		return
	}
	t.metrics.ObserveReconnect()
	logging.LogConnection(t.cfg.URL, "reconnecting")
	t.open()
}

func (t *Transport) shutdown() {
	t.stopping = true
	t.gen++

	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.conn != nil {
		_ = t.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = t.conn.Close()
		t.conn = nil
	}
	if t.State() != StateClosed {
		t.setState(StateClosed)
	}
	logging.Info("Keypad transport stopped", zap.String("url", t.cfg.URL))
}

func (t *Transport) setState(s State) {
	prev := State(t.state.Swap(int32(s)))
	if prev == s {
		return
	}
	logging.LogStateChange(t.cfg.URL, prev.String(), s.String())
	t.metrics.ObserveState(s.String())
	if t.onState != nil {
		t.onState(s)
	}
}

func (t *Transport) report(err *Error) {
	logging.Warn("Transport error",
		zap.String("url", err.URL),
		zap.String("kind", err.Kind.String()),
		zap.Error(err.Err),
	)
	t.metrics.ObserveError(err.Kind.String())
	if t.onError != nil {
		t.onError(err)
	}
}

func (t *Transport) record(direction string, data []byte) {
	if t.recorder == nil {
		return
	}
	if err := t.recorder.Record(direction, data); err != nil {
		logging.Warn("Failed to capture message", zap.Error(err))
	}
}

func (t *Transport) addStats(d protocol.Stats) {
	t.statsMu.Lock()
	t.total.Frames += d.Frames
	t.total.Dispatched += d.Dispatched
	t.total.ChecksumDrops += d.ChecksumDrops
	t.total.Heartbeats += d.Heartbeats
	t.total.Ignored += d.Ignored
	t.total.Unknown += d.Unknown
	t.total.DecodeErrors += d.DecodeErrors
	t.total.Overlong += d.Overlong
	t.statsMu.Unlock()

	t.metrics.ObserveDispatch(d)
}

func statsDelta(before, after protocol.Stats) protocol.Stats {
	return protocol.Stats{
		Frames:        after.Frames - before.Frames,
		Dispatched:    after.Dispatched - before.Dispatched,
		ChecksumDrops: after.ChecksumDrops - before.ChecksumDrops,
		Heartbeats:    after.Heartbeats - before.Heartbeats,
		Ignored:       after.Ignored - before.Ignored,
		Unknown:       after.Unknown - before.Unknown,
		DecodeErrors:  after.DecodeErrors - before.DecodeErrors,
		Overlong:      after.Overlong - before.Overlong,
	}
}

type nopMetrics struct{}

func (nopMetrics) ObserveBytes(string, int) {}
func (nopMetrics) ObserveDispatch(protocol.Stats) {}
func (nopMetrics) ObserveReconnect() {}
func (nopMetrics) ObserveState(string) {}
func (nopMetrics) ObserveError(string) {}
